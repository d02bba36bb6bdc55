package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tturner/canusb/internal/engine"
	"github.com/tturner/canusb/internal/transport"
)

// Run starts the interactive monitor on acq and blocks until the user quits.
// The connection is closed before returning.
func Run(ctx context.Context, acq transport.Acquirer, engOpts engine.Options, opts Options) error {
	bridge := NewBridge()
	engOpts.OnEvent = bridge.OnEvent
	engOpts.OnState = bridge.OnState
	eng := engine.New(acq, engOpts)

	if opts.Title == "" {
		opts.Title = engOpts.Filter.String()
	}
	if opts.BitrateKbps == 0 {
		opts.BitrateKbps = engOpts.BitrateKbps
	}

	model := NewModel(ctx, eng, bridge, opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	_, runErr := program.Run()
	bridge.Close()

	if err := eng.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
