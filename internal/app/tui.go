package app

import (
	"context"
	"io"

	"github.com/tturner/canusb/internal/tui"
)

type TUIOptions struct {
	CommonOptions
	AutoConnect bool
}

// RunTUI starts the interactive monitor. Console logging is disabled while the
// alternate screen is active; use --log-file to keep a trace.
func RunTUI(ctx context.Context, opts TUIOptions) error {
	cfg, err := loadConfig(opts.CommonOptions)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.CommonOptions)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.SetOutput(io.Discard, io.Discard)
	logger.LogStartup(cfg.Filter().String(), cfg.Adapter.Port, cfg.Adapter.BaudRate, cfg.CAN.BitrateKbps, opts.ConfigPath)

	title := cfg.Filter().String()
	if cfg.Adapter.Port != "" {
		title = cfg.Adapter.Port
	}

	return tui.Run(ctx, acquirerFor(opts.CommonOptions, cfg), engineOptions(cfg, logger), tui.Options{
		Title:       title,
		BitrateKbps: cfg.CAN.BitrateKbps,
		MaxRows:     cfg.Log.MaxRows,
		ExportDir:   cfg.Log.ExportDir,
		AutoConnect: opts.AutoConnect,
	})
}
