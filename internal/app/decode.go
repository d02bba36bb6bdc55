package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tturner/canusb/internal/lawicel"
	"github.com/tturner/canusb/internal/progress"
	"github.com/tturner/canusb/internal/tracelog"
)

type DecodeOptions struct {
	Input    string // file path, "-" for stdin
	In       io.Reader
	Out      io.Writer
	CSVPath  string
	JSONPath string
	PCAPPath string
	Summary  bool
	Quiet    bool

	// Progress receives a progress bar while a file input is read.
	Progress io.Writer

	// Now stamps decoded lines; defaults to time.Now.
	Now func() time.Time
}

const decodeChunkSize = 4096

// RunDecode replays a raw adapter byte capture through the framer and decoder.
func RunDecode(opts DecodeOptions) error {
	in := opts.In
	var bar *progress.Bar
	if in == nil {
		if opts.Input == "" || opts.Input == "-" {
			in = os.Stdin
		} else {
			file, err := os.Open(opts.Input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer file.Close()
			in = file
			if opts.Progress != nil {
				if info, err := file.Stat(); err == nil {
					bar = progress.NewBar(opts.Progress, info.Size(), filepath.Base(opts.Input))
					in = progress.NewReader(file, bar)
				}
			}
		}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	events, err := DecodeStream(in, &lawicel.Decoder{Now: opts.Now})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if !opts.Quiet {
		w := bufio.NewWriter(out)
		for _, ev := range events {
			fmt.Fprintln(w, FormatEvent(ev))
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if opts.CSVPath != "" || opts.JSONPath != "" {
		writer, err := tracelog.NewWriter(opts.CSVPath, opts.JSONPath)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := writer.WriteEvent(ev); err != nil {
				writer.Close()
				return err
			}
		}
		if err := writer.Close(); err != nil {
			return err
		}
	}
	if opts.PCAPPath != "" {
		if err := writePCAPFile(opts.PCAPPath, events); err != nil {
			return err
		}
	}
	if opts.Summary {
		fmt.Fprintf(out, "\n%s", tracelog.FormatSummary(tracelog.Summarize(events)))
	}
	return nil
}

// DecodeStream frames and decodes everything readable from r. A trailing
// partial line without CR is decoded as well.
func DecodeStream(r io.Reader, dec *lawicel.Decoder) ([]lawicel.Event, error) {
	var framer lawicel.Framer
	var events []lawicel.Event
	buf := make([]byte, decodeChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range framer.Feed(buf[:n]) {
				events = append(events, dec.Decode(line))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return events, fmt.Errorf("read input: %w", err)
		}
	}

	if tail := framer.Pending(); tail != "" {
		events = append(events, dec.Decode(tail))
	}
	return events, nil
}
