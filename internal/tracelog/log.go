package tracelog

// In-memory CAN event log and aggregate statistics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tturner/canusb/internal/lawicel"
)

// Log collects events for display and export. The full history is kept;
// views use Tail to bound what they render.
type Log struct {
	mu      sync.RWMutex
	events  []lawicel.Event
	summary *Summary
}

// Summary contains aggregated statistics
type Summary struct {
	Total          int
	Received       int
	Sent           int
	Frames         int
	RemoteRequests int
	ErrorSignals   int
	ParseErrors    int
	Acks           int
	First          time.Time
	Last           time.Time
	ByKind         map[string]int
	ByID           map[string]*IDStats
}

// IDStats tracks traffic for one CAN identifier.
type IDStats struct {
	Count    int
	LastDLC  int
	LastData string
	LastSeen time.Time
}

func newSummary() *Summary {
	return &Summary{
		ByKind: make(map[string]int),
		ByID:   make(map[string]*IDStats),
	}
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{summary: newSummary()}
}

// Record appends an event.
func (l *Log) Record(ev lawicel.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, ev)
	l.summary.add(ev)
}

// Events returns a copy of every recorded event, oldest first.
func (l *Log) Events() []lawicel.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]lawicel.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Tail returns up to n events, newest first.
func (l *Log) Tail(n int) []lawicel.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.events) || n < 0 {
		n = len(l.events)
	}
	out := make([]lawicel.Event, 0, n)
	for i := len(l.events) - 1; i >= len(l.events)-n; i-- {
		out = append(out, l.events[i])
	}
	return out
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Clear drops all events and resets the summary.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
	l.summary = newSummary()
}

// Summary returns a copy of the aggregated statistics.
func (l *Log) Summary() *Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := *l.summary
	s.ByKind = make(map[string]int, len(l.summary.ByKind))
	for k, v := range l.summary.ByKind {
		s.ByKind[k] = v
	}
	s.ByID = make(map[string]*IDStats, len(l.summary.ByID))
	for k, v := range l.summary.ByID {
		stats := *v
		s.ByID[k] = &stats
	}
	return &s
}

// Summarize builds a summary for an event slice, e.g. one read back from CSV.
func Summarize(events []lawicel.Event) *Summary {
	s := newSummary()
	for _, ev := range events {
		s.add(ev)
	}
	return s
}

func (s *Summary) add(ev lawicel.Event) {
	s.Total++
	if s.First.IsZero() || ev.Timestamp.Before(s.First) {
		s.First = ev.Timestamp
	}
	if ev.Timestamp.After(s.Last) {
		s.Last = ev.Timestamp
	}
	if ev.Direction == lawicel.Tx {
		s.Sent++
	} else {
		s.Received++
	}
	s.ByKind[ev.TypeLabel()]++

	switch ev.Kind {
	case lawicel.KindStandardFrame, lawicel.KindExtendedFrame:
		s.Frames++
	case lawicel.KindStandardRemoteRequest, lawicel.KindExtendedRemoteRequest:
		s.RemoteRequests++
	case lawicel.KindErrorSignal:
		s.ErrorSignals++
	case lawicel.KindParseError:
		s.ParseErrors++
	case lawicel.KindAck:
		s.Acks++
	}

	if ev.Kind.IsFrame() && ev.ID != "" {
		key := strings.ToUpper(ev.ID)
		stats, ok := s.ByID[key]
		if !ok {
			stats = &IDStats{}
			s.ByID[key] = stats
		}
		stats.Count++
		stats.LastDLC = ev.DLC
		stats.LastData = ev.DataString()
		stats.LastSeen = ev.Timestamp
	}
}

// FormatSummary formats a summary for human-readable output
func FormatSummary(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total Events: %d (rx %d, tx %d)\n", s.Total, s.Received, s.Sent)
	fmt.Fprintf(&b, "Data Frames: %d\n", s.Frames)
	if s.RemoteRequests > 0 {
		fmt.Fprintf(&b, "Remote Requests: %d\n", s.RemoteRequests)
	}
	if s.Acks > 0 {
		fmt.Fprintf(&b, "Acks: %d\n", s.Acks)
	}
	if s.ErrorSignals > 0 {
		fmt.Fprintf(&b, "Adapter Errors: %d\n", s.ErrorSignals)
	}
	if s.ParseErrors > 0 {
		fmt.Fprintf(&b, "Parse Errors: %d\n", s.ParseErrors)
	}
	if !s.First.IsZero() && s.Last.After(s.First) {
		elapsed := s.Last.Sub(s.First)
		fmt.Fprintf(&b, "Duration: %s", elapsed.Round(time.Millisecond))
		if s.Frames > 0 {
			fmt.Fprintf(&b, " (%.1f frames/s)", float64(s.Frames)/elapsed.Seconds())
		}
		b.WriteString("\n")
	}

	if len(s.ByID) > 0 {
		ids := make([]string, 0, len(s.ByID))
		for id := range s.ByID {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		b.WriteString("\nBy CAN ID:\n")
		for _, id := range ids {
			st := s.ByID[id]
			fmt.Fprintf(&b, "  %-8s %6d  last: %s\n", id, st.Count, st.LastData)
		}
	}
	return b.String()
}
