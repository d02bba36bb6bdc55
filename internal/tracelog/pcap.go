package tracelog

// PCAP export using the SocketCAN link type, readable by Wireshark.

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/tturner/canusb/internal/lawicel"
)

// LinkTypeSocketCAN is LINKTYPE_CAN_SOCKETCAN.
const LinkTypeSocketCAN layers.LinkType = 227

const (
	canFrameLen = 16
	canEFFFlag  = 0x80000000
	canRTRFlag  = 0x40000000
	canSFFMask  = 0x000007FF
	canEFFMask  = 0x1FFFFFFF
)

// WritePCAP writes every well-formed frame event as a SocketCAN record and
// returns the number of packets written. Non-frame and malformed events are skipped.
func WritePCAP(out io.Writer, events []lawicel.Event) (int, error) {
	w := pcapgo.NewWriter(out)
	if err := w.WriteFileHeader(65535, LinkTypeSocketCAN); err != nil {
		return 0, fmt.Errorf("write pcap header: %w", err)
	}

	written := 0
	for _, ev := range events {
		frame, ok := SocketCANFrame(ev)
		if !ok {
			continue
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     ev.Timestamp,
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := w.WritePacket(ci, frame); err != nil {
			return written, fmt.Errorf("write pcap packet: %w", err)
		}
		written++
	}
	return written, nil
}

// SocketCANFrame encodes a frame event as a 16-byte struct can_frame with a
// big-endian can_id, as pcap stores it.
func SocketCANFrame(ev lawicel.Event) ([]byte, bool) {
	if !ev.Kind.IsFrame() || !ev.HasDLC() {
		return nil, false
	}
	id, err := strconv.ParseUint(ev.ID, 16, 32)
	if err != nil {
		return nil, false
	}

	canID := uint32(id)
	if ev.Kind.IsExtended() {
		canID = canID&canEFFMask | canEFFFlag
	} else {
		canID &= canSFFMask
	}

	frame := make([]byte, canFrameLen)
	if ev.Kind.IsRemote() {
		canID |= canRTRFlag
	} else {
		payload, err := hex.DecodeString(strings.Join(ev.Data, ""))
		if err != nil || len(payload) != ev.DLC {
			return nil, false
		}
		copy(frame[8:], payload)
	}
	binary.BigEndian.PutUint32(frame[0:4], canID)
	frame[4] = byte(ev.DLC)
	return frame, true
}
