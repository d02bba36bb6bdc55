// Package engine drives a Lawicel/SLCAN adapter over a transport.Port: it runs the
// open/configure/close sequence, owns the read loop, and reports decoded events and
// state transitions to registered callbacks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tturner/canusb/internal/lawicel"
	"github.com/tturner/canusb/internal/transport"
)

var (
	ErrBusy         = errors.New("connection attempt already in progress")
	ErrNotConnected = errors.New("not connected")
	ErrStreamEnded  = errors.New("adapter stream ended")
)

// Connect steps reported by ConnectError.
const (
	StepRequest   = "request"
	StepOpen      = "open"
	StepConfigure = "configure"
)

// ConnectError reports which step of Connect failed.
type ConnectError struct {
	Step string
	Port string // device name, or the filter for StepRequest
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Step == StepRequest {
		return fmt.Sprintf("request port %s: %v", e.Port, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Step, e.Port, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Status messages carried by StateChange.Message.
const (
	MsgRequesting       = "Requesting port..."
	MsgConfiguring      = "Port open, configuring CAN..."
	MsgDisconnecting    = "Disconnecting..."
	MsgDisconnected     = "Disconnected"
	MsgUnexpectedEnd    = "Disconnected (Read loop ended unexpectedly)"
	MsgAlreadyClosed    = "Already disconnected"
	MsgConnectionFailed = "Connection failed"
)

// Logger is the subset of logging.Logger the engine uses.
type Logger interface {
	Error(format string, v ...interface{})
	Info(format string, v ...interface{})
	Verbose(format string, v ...interface{})
	Debug(format string, v ...interface{})
	LogTraffic(direction, line string)
	LogState(from, to string, err error)
}

// Options configures an Engine.
type Options struct {
	Filter         transport.Filter
	BaudRate       int
	BitrateCommand string
	BitrateKbps    int
	SettleDelay    time.Duration
	CommandDelay   time.Duration
	Logger         Logger

	// OnEvent receives every decoded line and every sent frame.
	// OnState receives every transition, in order.
	// Callbacks run on engine goroutines and must not call Connect or Disconnect.
	OnEvent func(lawicel.Event)
	OnState func(StateChange)

	// Clock stamps events; defaults to time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the reference adapter settings: 115200 baud, 500 kbit/s,
// 100ms settle time and 50ms command pacing.
func DefaultOptions() Options {
	return Options{
		Filter:         transport.Filter{VendorID: 0x0483, ProductID: 0x5740},
		BaudRate:       115200,
		BitrateCommand: "S6",
		BitrateKbps:    500,
		SettleDelay:    100 * time.Millisecond,
		CommandDelay:   50 * time.Millisecond,
	}
}

const readBufferSize = 256

// Engine is a single adapter connection. Construct with New; Connect and
// Disconnect may be called repeatedly.
type Engine struct {
	acquirer transport.Acquirer
	opts     Options
	logger   Logger
	decoder  *lawicel.Decoder

	// transitionMu orders state changes and their notifications.
	transitionMu sync.Mutex
	// writeMu is held by whichever path is writing to the adapter.
	writeMu sync.Mutex

	mu          sync.Mutex
	state       State
	port        transport.Port
	opened      bool
	writer      transport.Writer
	reader      transport.Reader
	keepReading bool
	loopDone    chan struct{}
}

// New creates an idle engine.
func New(acquirer transport.Acquirer, opts Options) *Engine {
	if opts.BaudRate == 0 {
		opts.BaudRate = 115200
	}
	if opts.BitrateCommand == "" {
		opts.BitrateCommand = "S6"
		opts.BitrateKbps = 500
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Engine{
		acquirer: acquirer,
		opts:     opts,
		logger:   logger,
		decoder:  &lawicel.Decoder{Now: opts.Clock},
		state:    Idle,
	}
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Port returns the port of the current connection, or nil.
func (e *Engine) Port() transport.Port {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.port
}

// Connect acquires a port, opens it and sends the configuration sequence
// (flush, bitrate, open channel). It returns once the read loop is running.
// A call while another attempt or connection is active returns ErrBusy.
func (e *Engine) Connect(ctx context.Context) error {
	if _, ok := e.transitionIf(State.CanConnect, RequestingTransport, MsgRequesting, nil); !ok {
		e.logger.Verbose("connect ignored in state %s", e.State())
		return ErrBusy
	}

	port, err := e.acquirer.RequestAccess(ctx, e.opts.Filter)
	if err != nil {
		err = &ConnectError{Step: StepRequest, Port: e.opts.Filter.String(), Err: err}
		e.logger.Error("%v", err)
		e.transition(Failed, MsgConnectionFailed, err)
		return err
	}
	name := port.Info().Name

	e.mu.Lock()
	e.port = port
	e.mu.Unlock()
	e.transition(Opening, fmt.Sprintf("Opening %s...", name), nil)

	if err := port.Open(e.opts.BaudRate); err != nil {
		err = &ConnectError{Step: StepOpen, Port: name, Err: err}
		e.abort(err)
		return err
	}
	e.mu.Lock()
	e.opened = true
	e.mu.Unlock()
	e.transition(Configuring, MsgConfiguring, nil)

	if err := e.configure(ctx, port); err != nil {
		err = &ConnectError{Step: StepConfigure, Port: name, Err: err}
		e.abort(err)
		return err
	}

	done := make(chan struct{})
	e.mu.Lock()
	e.keepReading = true
	e.loopDone = done
	e.mu.Unlock()

	e.transition(Connected, fmt.Sprintf("Connected (%d kbit/s)", e.opts.BitrateKbps), nil)
	go e.readLoop(port, done)
	return nil
}

// configure waits for the device to settle, then writes the setup commands in
// order with the pacing delay after each. Acknowledgments are not awaited.
func (e *Engine) configure(ctx context.Context, port transport.Port) error {
	if err := sleep(ctx, e.opts.SettleDelay); err != nil {
		return err
	}

	w, err := port.Writer()
	if err != nil {
		return fmt.Errorf("acquire writer: %w", err)
	}
	e.mu.Lock()
	e.writer = w
	e.mu.Unlock()

	for _, cmd := range []string{lawicel.CmdFlush, e.opts.BitrateCommand, lawicel.CmdOpen} {
		e.writeMu.Lock()
		err := e.write(w, cmd)
		e.writeMu.Unlock()
		if err != nil {
			return fmt.Errorf("send %q: %w", cmd, err)
		}
		if err := sleep(ctx, e.opts.CommandDelay); err != nil {
			return err
		}
	}
	return nil
}

// abort releases whatever a failed Connect acquired and enters Failed.
func (e *Engine) abort(cause error) {
	e.mu.Lock()
	port, writer, opened := e.port, e.writer, e.opened
	e.port, e.writer, e.opened = nil, nil, false
	e.mu.Unlock()

	if writer != nil {
		if err := writer.Release(); err != nil {
			e.logger.Error("release writer: %v", err)
		}
	}
	if port != nil && opened {
		if err := port.Close(); err != nil {
			e.logger.Error("close port: %v", err)
		}
	}
	e.logger.Error("%v", cause)
	e.transition(Failed, MsgConnectionFailed, cause)
}

// Disconnect closes the CAN channel and the port. It returns nil when already
// disconnected and ErrBusy while a connection attempt is in progress.
func (e *Engine) Disconnect(ctx context.Context) error {
	switch s := e.State(); s {
	case Connected:
		e.teardown(ctx, nil, false)
		return nil
	case RequestingTransport, Opening, Configuring:
		return ErrBusy
	default:
		e.logger.Info("%s", MsgAlreadyClosed)
		return nil
	}
}

// teardown runs the disconnect sequence once per connection. cause is non-nil when
// the read loop or a write failed. fromLoop is set when called on the read loop goroutine.
func (e *Engine) teardown(ctx context.Context, cause error, fromLoop bool) {
	if _, ok := e.transitionIf(func(s State) bool { return s == Connected }, Disconnecting, MsgDisconnecting, cause); !ok {
		return
	}

	e.mu.Lock()
	e.keepReading = false
	port, writer, reader, done := e.port, e.writer, e.reader, e.loopDone
	e.writer = nil
	e.mu.Unlock()

	if writer != nil {
		e.writeMu.Lock()
		if err := e.write(writer, lawicel.CmdClose); err != nil {
			e.logger.Error("send close channel: %v", err)
		} else {
			_ = sleep(ctx, e.opts.CommandDelay)
		}
		if err := writer.Release(); err != nil {
			e.logger.Error("release writer: %v", err)
		}
		e.writeMu.Unlock()
	}

	if reader != nil {
		if err := reader.Cancel(); err != nil {
			e.logger.Error("cancel read: %v", err)
		}
	}
	if !fromLoop && done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			e.logger.Error("read loop still running: %v", ctx.Err())
		}
	}

	if port != nil {
		if err := port.Close(); err != nil {
			e.logger.Error("close port: %v", err)
		}
	}

	e.mu.Lock()
	e.port, e.opened, e.reader, e.loopDone = nil, false, nil, nil
	e.mu.Unlock()

	msg := MsgDisconnected
	if cause != nil {
		msg = MsgUnexpectedEnd
	}
	e.transition(Disconnected, msg, cause)
}

// Send transmits a validated frame. The sent text is echoed to OnEvent as a Tx event.
// A write failure runs the disconnect sequence.
func (e *Engine) Send(ctx context.Context, cmd lawicel.SendCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := lawicel.Encode(cmd)

	e.writeMu.Lock()
	e.mu.Lock()
	w, state := e.writer, e.state
	e.mu.Unlock()
	if state != Connected || w == nil {
		e.writeMu.Unlock()
		return ErrNotConnected
	}
	err := e.write(w, text)
	e.writeMu.Unlock()

	if err != nil {
		err = fmt.Errorf("send %s: %w", text, err)
		e.logger.Error("%v", err)
		e.teardown(ctx, err, false)
		return err
	}

	ev := e.decoder.Decode(text)
	ev.Direction = lawicel.Tx
	e.emit(ev)
	return nil
}

func (e *Engine) write(w transport.Writer, cmd string) error {
	data := lawicel.Terminate(cmd)
	e.logger.LogTraffic(">>", string(data))
	_, err := w.Write(data)
	return err
}

func (e *Engine) emit(ev lawicel.Event) {
	if e.opts.OnEvent != nil {
		e.opts.OnEvent(ev)
	}
}

// transitionIf moves to `to` when allow(current) holds and notifies the observer.
func (e *Engine) transitionIf(allow func(State) bool, to State, msg string, err error) (State, bool) {
	e.transitionMu.Lock()
	defer e.transitionMu.Unlock()

	e.mu.Lock()
	from := e.state
	if !allow(from) {
		e.mu.Unlock()
		return from, false
	}
	e.state = to
	e.mu.Unlock()

	e.notify(from, to, msg, err)
	return from, true
}

func (e *Engine) transition(to State, msg string, err error) {
	e.transitionIf(func(State) bool { return true }, to, msg, err)
}

func (e *Engine) notify(from, to State, msg string, err error) {
	e.logger.LogState(from.String(), to.String(), err)
	if msg != "" {
		e.logger.Info("%s", msg)
	}
	if e.opts.OnState == nil {
		return
	}
	at := time.Now()
	if e.opts.Clock != nil {
		at = e.opts.Clock()
	}
	e.opts.OnState(StateChange{From: from, To: to, Message: msg, Err: err, At: at})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{})   {}
func (nopLogger) Info(string, ...interface{})    {}
func (nopLogger) Verbose(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{})   {}
func (nopLogger) LogTraffic(string, string)      {}
func (nopLogger) LogState(string, string, error) {}
