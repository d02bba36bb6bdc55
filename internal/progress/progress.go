// Package progress renders single-line progress indicators on a terminal.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	barWidth       = 40
	renderInterval = 100 * time.Millisecond
)

// Bar shows how much of a known-size input has been processed.
// A Bar with a nil writer is disabled.
type Bar struct {
	out     io.Writer
	label   string
	total   int64
	current int64
	start   time.Time
	last    time.Time
	now     func() time.Time
}

// NewBar creates a bar for total units written to out.
func NewBar(out io.Writer, total int64, label string) *Bar {
	now := time.Now()
	return &Bar{out: out, label: label, total: total, start: now, now: time.Now}
}

// Add advances the bar by n units.
func (b *Bar) Add(n int64) {
	b.current += n
	b.render(false)
}

// Finish renders the final state and ends the line.
func (b *Bar) Finish() {
	if b.out == nil {
		return
	}
	if b.total > 0 {
		b.current = b.total
	}
	b.render(true)
	fmt.Fprint(b.out, "\n")
}

func (b *Bar) render(force bool) {
	if b.out == nil {
		return
	}
	now := b.now()
	if !force && now.Sub(b.last) < renderInterval && b.current < b.total {
		return
	}
	b.last = now
	fmt.Fprint(b.out, "\r"+b.Line(now.Sub(b.start)))
}

// Line formats the bar for the given elapsed time.
func (b *Bar) Line(elapsed time.Duration) string {
	var percent float64
	if b.total > 0 {
		percent = float64(b.current) / float64(b.total) * 100
	}
	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat("-", barWidth-filled-1)
	}

	line := fmt.Sprintf("[%s] %d/%d (%.1f%%) | %s", bar, b.current, b.total, percent, FormatDuration(elapsed))
	if b.label != "" {
		line = b.label + " " + line
	}
	return line
}

// Reader advances a bar by the bytes read through it.
type Reader struct {
	r   io.Reader
	bar *Bar
}

func NewReader(r io.Reader, bar *Bar) *Reader {
	return &Reader{r: r, bar: bar}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.bar.Add(int64(n))
	}
	return n, err
}

// Counter shows a running event count for open-ended streams.
// It is safe for concurrent use; a Counter with a nil writer is disabled.
type Counter struct {
	mu       sync.Mutex
	out      io.Writer
	label    string
	interval time.Duration
	last     time.Time
	now      func() time.Time
	dirty    bool
}

func NewCounter(out io.Writer, label string, interval time.Duration) *Counter {
	return &Counter{out: out, label: label, interval: interval, now: time.Now}
}

// Update redraws the line at most once per interval.
func (c *Counter) Update(count int64, detail string) {
	if c.out == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.last) < c.interval {
		return
	}
	c.last = now
	c.dirty = true

	line := fmt.Sprintf("%d events", count)
	if c.label != "" {
		line = c.label + ": " + line
	}
	if detail != "" {
		line += " | " + detail
	}
	fmt.Fprint(c.out, "\r"+line)
}

// Finish ends the line if anything was drawn.
func (c *Counter) Finish() {
	if c.out == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty {
		fmt.Fprint(c.out, "\n")
		c.dirty = false
	}
}

// FormatDuration formats a duration for progress lines.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
