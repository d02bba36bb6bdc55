package lawicel

import "strings"

// Framer reassembles CR-terminated adapter lines from arbitrarily chunked input.
// A BELL is reported at the position it arrives and never becomes part of a line,
// so the output does not depend on how the input was chunked.
// A Framer is not safe for concurrent use.
type Framer struct {
	buf strings.Builder
}

// Bell is the segment Feed emits for an out-of-band BELL; Decode maps it to KindErrorSignal.
const Bell = string(BELL)

// Feed appends chunk to the pending line and returns every completed segment in
// arrival order: one per CR-terminated line and one Bell per BELL byte.
// Empty lines are returned as "" (an OK acknowledgment).
func (f *Framer) Feed(chunk []byte) []string {
	var segments []string
	for _, b := range chunk {
		switch b {
		case CR:
			segments = append(segments, f.buf.String())
			f.buf.Reset()
		case BELL:
			segments = append(segments, Bell)
		default:
			f.buf.WriteByte(b)
		}
	}
	return segments
}

// Pending returns the incomplete line retained for the next Feed.
func (f *Framer) Pending() string {
	return f.buf.String()
}

// Reset discards any retained partial line.
func (f *Framer) Reset() {
	f.buf.Reset()
}
