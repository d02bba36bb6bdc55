package lawicel

// Lawicel/SLCAN ASCII line codec.
//
// Receive grammar (one CR-terminated line, CR already stripped):
//   t iii l dd..   standard frame, 3 hex id, decimal dlc, dlc*2 hex data
//   T iiiiiiii l dd..   extended frame, 8 hex id
//   r iii l / R iiiiiiii l   remote transmission requests
//   F xx   status flags
//   V xxxx   version
//   Z / z   transmit ack
//   BEL   command error
//   ""   command ok

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Protocol control bytes.
const (
	CR   byte = '\r'
	BELL byte = 0x07
)

// Field widths in hex characters.
const (
	StandardIDLen = 3
	ExtendedIDLen = 8
	MaxDLC        = 8
)

// NoDLC marks an absent or unparseable data length code.
const NoDLC = -1

// Markers used as the single data token of non-frame events.
const (
	MarkerRTR   = "RTR"
	MarkerOK    = "OK"
	MarkerBell  = "BELL"
	MarkerEmpty = "EMPTY"
)

// Kind identifies the type of a decoded adapter line.
type Kind int

const (
	KindOther Kind = iota
	KindStandardFrame
	KindExtendedFrame
	KindStandardRemoteRequest
	KindExtendedRemoteRequest
	KindStatusFlags
	KindVersion
	KindAck
	KindErrorSignal
	KindOkSignal
	KindParseError
)

var kindNames = map[Kind]string{
	KindOther:                 "other",
	KindStandardFrame:         "can_std",
	KindExtendedFrame:         "can_ext",
	KindStandardRemoteRequest: "rtr_std",
	KindExtendedRemoteRequest: "rtr_ext",
	KindStatusFlags:           "status_flags",
	KindVersion:               "version",
	KindAck:                   "ack",
	KindErrorSignal:           "error_response",
	KindOkSignal:              "ok_response",
	KindParseError:            "parse_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindOther, false
}

// IsFrame reports whether the kind carries an id and dlc.
func (k Kind) IsFrame() bool {
	switch k {
	case KindStandardFrame, KindExtendedFrame, KindStandardRemoteRequest, KindExtendedRemoteRequest:
		return true
	}
	return false
}

// IsExtended reports whether the kind uses a 29-bit identifier.
func (k Kind) IsExtended() bool {
	return k == KindExtendedFrame || k == KindExtendedRemoteRequest
}

// IsRemote reports whether the kind is a remote transmission request.
func (k Kind) IsRemote() bool {
	return k == KindStandardRemoteRequest || k == KindExtendedRemoteRequest
}

// Direction tells whether an event was received from or sent to the adapter.
type Direction int

const (
	Rx Direction = iota
	Tx
)

func (d Direction) String() string {
	if d == Tx {
		return "tx"
	}
	return "rx"
}

// Event is one decoded adapter line.
type Event struct {
	Raw       string
	Kind      Kind
	Direction Direction
	ID        string
	DLC       int
	Data      []string
	Timestamp time.Time
	Err       string
}

// HasDLC reports whether DLC holds a parsed value.
func (e Event) HasDLC() bool {
	return e.DLC >= 0 && e.DLC <= MaxDLC
}

// TypeLabel returns the export label, e.g. CAN_STD or SENT_CAN_STD.
func (e Event) TypeLabel() string {
	label := strings.ToUpper(e.Kind.String())
	if e.Direction == Tx {
		return "SENT_" + label
	}
	return label
}

// DataString joins the data tokens with single spaces.
func (e Event) DataString() string {
	return strings.Join(e.Data, " ")
}

// Decoder stamps events with a clock that never runs backwards within one stream.
type Decoder struct {
	// Now defaults to time.Now.
	Now func() time.Time

	mu   sync.Mutex
	last time.Time
}

// Decode decodes a line using the decoder's clock.
func (d *Decoder) Decode(line string) Event {
	return decodeAt(line, d.stamp())
}

func (d *Decoder) stamp() time.Time {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	ts := now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if ts.Before(d.last) {
		ts = d.last
	}
	d.last = ts
	return ts
}

// Decode decodes a single adapter line stamped with the current time.
// It never panics; malformed input yields a KindParseError or KindOther event.
func Decode(line string) Event {
	return decodeAt(line, time.Now())
}

func decodeAt(line string, ts time.Time) (ev Event) {
	ev = Event{Raw: line, Kind: KindOther, DLC: NoDLC, Timestamp: ts}
	defer func() {
		if r := recover(); r != nil {
			ev = parseError(line, ts, fmt.Sprint(r))
		}
	}()

	if line == "" {
		ev.Kind = KindOkSignal
		ev.Data = []string{MarkerEmpty}
		return ev
	}
	if line == string(BELL) {
		ev.Kind = KindErrorSignal
		ev.Data = []string{MarkerBell}
		return ev
	}

	switch line[0] {
	case 't':
		return decodeFrame(line, ts, KindStandardFrame, StandardIDLen)
	case 'T':
		return decodeFrame(line, ts, KindExtendedFrame, ExtendedIDLen)
	case 'r':
		return decodeFrame(line, ts, KindStandardRemoteRequest, StandardIDLen)
	case 'R':
		return decodeFrame(line, ts, KindExtendedRemoteRequest, ExtendedIDLen)
	case 'F':
		ev.Kind = KindStatusFlags
		ev.Data = []string{line[1:]}
	case 'V':
		ev.Kind = KindVersion
		ev.Data = []string{line[1:]}
	case 'Z', 'z':
		ev.Kind = KindAck
		ev.Data = []string{MarkerOK}
	default:
		ev.Data = []string{line}
	}
	return ev
}

func decodeFrame(line string, ts time.Time, kind Kind, idLen int) Event {
	ev := Event{Raw: line, Kind: kind, DLC: NoDLC, Timestamp: ts}

	rest := line[1:]
	if len(rest) < idLen {
		return parseError(line, ts, fmt.Sprintf("truncated %s identifier: want %d hex characters, got %d", kind, idLen, len(rest)))
	}
	ev.ID = rest[:idLen]
	if !IsValidHex(ev.ID, idLen) {
		return parseError(line, ts, fmt.Sprintf("invalid %s identifier %q", kind, ev.ID))
	}
	rest = rest[idLen:]

	if len(rest) > 0 {
		if c := rest[0]; c >= '0' && c <= '0'+MaxDLC {
			ev.DLC = int(c - '0')
		}
		rest = rest[1:]
	}

	if kind.IsRemote() {
		ev.Data = []string{MarkerRTR}
		return ev
	}

	if ev.HasDLC() && len(rest) >= ev.DLC*2 {
		rest = rest[:ev.DLC*2]
	}
	ev.Data = splitPairs(rest)
	return ev
}

func parseError(line string, ts time.Time, msg string) Event {
	return Event{
		Raw:       line,
		Kind:      KindParseError,
		DLC:       NoDLC,
		Data:      []string{line},
		Timestamp: ts,
		Err:       msg,
	}
}

// splitPairs cuts s into two-character chunks; an odd tail is kept as a one-character chunk.
func splitPairs(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, (len(s)+1)/2)
	for i := 0; i < len(s); i += 2 {
		end := min(i+2, len(s))
		out = append(out, s[i:end])
	}
	return out
}

// Encode renders a send command as adapter text, without the CR terminator.
func Encode(cmd SendCommand) string {
	var b strings.Builder
	b.Grow(1 + len(cmd.ID) + 1 + len(cmd.DataHex))
	b.WriteByte(cmd.prefix())
	b.WriteString(strings.ToUpper(cmd.ID))
	b.WriteByte(hexDigits[cmd.DLC&0x0F])
	if !cmd.Remote {
		b.WriteString(strings.ToUpper(cmd.DataHex))
	}
	return b.String()
}

const hexDigits = "0123456789ABCDEF"
