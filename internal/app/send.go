package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tturner/canusb/internal/engine"
	"github.com/tturner/canusb/internal/errors"
	"github.com/tturner/canusb/internal/lawicel"
	"github.com/tturner/canusb/internal/tui"
)

type SendOptions struct {
	CommonOptions
	ID       string
	DLC      string
	Data     string
	Extended bool
	Remote   bool
	Count    int
	Interval time.Duration
	Listen   time.Duration // keep printing received lines after the last frame

	// Prompt fills in the frame when ID is empty. Defaults to the interactive form.
	Prompt func(tui.SendDefaults) (lawicel.SendCommand, error)
}

// BuildSendCommand validates the frame fields.
func BuildSendCommand(opts SendOptions) (lawicel.SendCommand, error) {
	if opts.Remote {
		return lawicel.ParseRemoteCommand(opts.ID, opts.DLC, opts.Extended)
	}
	dlc := opts.DLC
	if dlc == "" {
		// DLC follows the data length when omitted
		dlc = strconv.Itoa(len(strings.Join(strings.Fields(opts.Data), "")) / 2)
	}
	return lawicel.ParseSendCommand(opts.ID, dlc, opts.Data, opts.Extended)
}

// PromptSendCommand asks for the frame fields with a form.
func PromptSendCommand(d tui.SendDefaults) (lawicel.SendCommand, error) {
	form := tui.NewSendForm(d)
	if err := form.Run(); err != nil {
		return lawicel.SendCommand{}, fmt.Errorf("send form: %w", err)
	}
	return tui.ParseSendForm(form)
}

// RunSend connects, transmits the frame Count times and disconnects.
func RunSend(ctx context.Context, opts SendOptions) error {
	var cmd lawicel.SendCommand
	var err error
	if opts.ID == "" {
		prompt := opts.Prompt
		if prompt == nil {
			prompt = PromptSendCommand
		}
		cmd, err = prompt(tui.SendDefaults{DLC: opts.DLC, Data: opts.Data, Extended: opts.Extended, Remote: opts.Remote})
	} else {
		cmd, err = BuildSendCommand(opts)
	}
	if err != nil {
		return errors.WrapEngineError(err)
	}
	if opts.Count <= 0 {
		opts.Count = 1
	}

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
	var outMu sync.Mutex
	emit := func(s string) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintln(out, s)
	}

	engOpts := engineOptions(cfg, logger)
	engOpts.OnEvent = func(ev lawicel.Event) {
		emit(styledEvent(ev, color))
	}
	engOpts.OnState = func(c engine.StateChange) {
		logger.Verbose("%s", c.Message)
	}
	eng := engine.New(acquirerFor(opts.CommonOptions, cfg), engOpts)

	if err := eng.Connect(ctx); err != nil {
		return errors.WrapEngineError(err)
	}
	defer func() {
		if err := eng.Disconnect(context.Background()); err != nil {
			logger.Error("disconnect: %v", err)
		}
	}()

	for i := 0; i < opts.Count; i++ {
		if i > 0 && opts.Interval > 0 {
			if err := wait(ctx, opts.Interval); err != nil {
				return nil
			}
		}
		if err := eng.Send(ctx, cmd); err != nil {
			return errors.WrapEngineError(err)
		}
	}

	if opts.Listen > 0 {
		_ = wait(ctx, opts.Listen)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
