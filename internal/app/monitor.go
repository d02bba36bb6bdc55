package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/tturner/canusb/internal/engine"
	"github.com/tturner/canusb/internal/errors"
	"github.com/tturner/canusb/internal/lawicel"
	"github.com/tturner/canusb/internal/progress"
	"github.com/tturner/canusb/internal/tracelog"
)

type MonitorOptions struct {
	CommonOptions
	Duration time.Duration // 0 runs until interrupted
	CSVPath  string
	JSONPath string
	PCAPPath string
	Quiet    bool // suppress per-frame output
	Summary  bool
}

// RunMonitor connects to the adapter and prints every received line until the
// context ends, the duration elapses, or the connection drops.
func RunMonitor(ctx context.Context, opts MonitorOptions) error {
	cfg, err := loadConfig(opts.CommonOptions)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.CommonOptions)
	if err != nil {
		return err
	}
	defer logger.Close()

	out := opts.stdout()
	color := isTerminal(out)
	logger.LogStartup(cfg.Filter().String(), cfg.Adapter.Port, cfg.Adapter.BaudRate, cfg.CAN.BitrateKbps, opts.ConfigPath)

	writer, err := tracelog.NewWriter(opts.CSVPath, opts.JSONPath)
	if err != nil {
		return err
	}
	defer writer.Close()

	log := tracelog.NewLog()
	var progressOut io.Writer
	if opts.Quiet && isTerminal(opts.stderr()) {
		progressOut = opts.stderr()
	}
	counter := progress.NewCounter(progressOut, "Monitoring", 250*time.Millisecond)
	var outMu sync.Mutex
	ended := make(chan engine.StateChange, 1)
	var eng *engine.Engine
	name := cfg.Adapter.Port

	engOpts := engineOptions(cfg, logger)
	engOpts.OnEvent = func(ev lawicel.Event) {
		log.Record(ev)
		outMu.Lock()
		defer outMu.Unlock()
		if err := writer.WriteEvent(ev); err != nil {
			logger.Error("write trace: %v", err)
		}
		if !opts.Quiet {
			fmt.Fprintln(out, styledEvent(ev, color))
		} else if ev.Kind.IsFrame() {
			counter.Update(int64(log.Len()), "last "+ev.ID)
		}
	}
	engOpts.OnState = func(c engine.StateChange) {
		if c.To == engine.Opening {
			name = portName(eng, name)
		}
		if c.Message != "" {
			msg := c.Message
			if color {
				msg = bannerStyle.Render(msg)
			}
			outMu.Lock()
			fmt.Fprintln(out, msg)
			outMu.Unlock()
		}
		if c.To == engine.Disconnected && c.Err != nil {
			select {
			case ended <- c:
			default:
			}
		}
	}

	eng = engine.New(acquirerFor(opts.CommonOptions, cfg), engOpts)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, opts.Duration)
		defer cancel()
	}

	if err := eng.Connect(runCtx); err != nil {
		return errors.WrapEngineError(err)
	}

	var dropped error
	select {
	case <-runCtx.Done():
	case c := <-ended:
		dropped = c.Err
	}

	if err := eng.Disconnect(context.Background()); err != nil {
		logger.Error("disconnect: %v", err)
	}
	counter.Finish()

	if opts.PCAPPath != "" {
		if err := writePCAPFile(opts.PCAPPath, log.Events()); err != nil {
			return err
		}
		fmt.Fprintf(out, "PCAP written to: %s\n", absPath(opts.PCAPPath))
	}
	if opts.CSVPath != "" {
		fmt.Fprintf(out, "CSV written to: %s\n", absPath(opts.CSVPath))
	}
	if opts.JSONPath != "" {
		fmt.Fprintf(out, "JSON written to: %s\n", absPath(opts.JSONPath))
	}
	if opts.Summary {
		fmt.Fprintf(out, "\n%s", tracelog.FormatSummary(log.Summary()))
	}

	if dropped != nil {
		return errors.WrapTransportError(dropped, name)
	}
	return nil
}

func writePCAPFile(path string, events []lawicel.Event) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pcap file: %w", err)
	}
	if _, err := tracelog.WritePCAP(file, events); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close pcap file: %w", err)
	}
	return nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func portName(eng *engine.Engine, fallback string) string {
	if p := eng.Port(); p != nil {
		return p.Info().Name
	}
	if fallback != "" {
		return fallback
	}
	return "adapter"
}
