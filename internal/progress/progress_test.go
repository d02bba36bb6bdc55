package progress

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"
)

func TestBarLine(t *testing.T) {
	bar := NewBar(nil, 200, "capture.bin")
	bar.current = 50

	line := bar.Line(1500 * time.Millisecond)
	want := "capture.bin [" + strings.Repeat("=", 10) + ">" + strings.Repeat("-", 29) + "] 50/200 (25.0%) | 1.5s"
	if line != want {
		t.Fatalf("Line:\n got %q\nwant %q", line, want)
	}

	bar.current = 200
	if line := bar.Line(0); !strings.Contains(line, strings.Repeat("=", barWidth)+"]") {
		t.Fatalf("full bar not rendered: %q", line)
	}
}

func TestBarDisabled(t *testing.T) {
	bar := NewBar(nil, 10, "")
	bar.Add(5)
	bar.Finish()
	if bar.current != 5 {
		t.Fatalf("current = %d, want 5", bar.current)
	}
}

func TestReaderAdvancesBar(t *testing.T) {
	var out bytes.Buffer
	bar := NewBar(&out, 11, "")
	r := NewReader(strings.NewReader("t1232AABB\r\a"), bar)

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(data) != 11 || bar.current != 11 {
		t.Fatalf("read %d bytes, bar at %d", len(data), bar.current)
	}
	bar.Finish()
	if !strings.Contains(out.String(), "11/11 (100.0%)") || !strings.HasSuffix(out.String(), "\n") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCounterThrottle(t *testing.T) {
	var out bytes.Buffer
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCounter(&out, "Monitoring", time.Second)
	c.now = func() time.Time { return now }

	c.Update(1, "last 123")
	c.Update(2, "last 124")
	if got := out.String(); got != "\rMonitoring: 1 events | last 123" {
		t.Fatalf("unexpected output %q", got)
	}

	now = now.Add(time.Second)
	c.Update(3, "")
	c.Finish()
	if got := out.String(); !strings.HasSuffix(got, "\rMonitoring: 3 events\n") {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestCounterFinishWithoutOutput(t *testing.T) {
	var out bytes.Buffer
	c := NewCounter(&out, "", time.Second)
	c.Finish()
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{2500 * time.Millisecond, "2.5s"},
		{125 * time.Second, "2m5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
