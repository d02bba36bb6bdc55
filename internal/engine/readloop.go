package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tturner/canusb/internal/lawicel"
	"github.com/tturner/canusb/internal/transport"
)

// readLoop owns the port's input side for the lifetime of a connection.
// The reader is released on every exit path. An exit while keepReading is still
// set is unexpected and runs the disconnect sequence.
func (e *Engine) readLoop(port transport.Port, done chan struct{}) {
	defer close(done)

	reader, err := port.Reader()
	if err != nil {
		e.loopEnded(fmt.Errorf("acquire reader: %w", err))
		return
	}

	e.mu.Lock()
	if !e.keepReading {
		e.mu.Unlock()
		e.release(reader)
		return
	}
	e.reader = reader
	e.mu.Unlock()

	err = e.pump(reader)

	e.mu.Lock()
	e.reader = nil
	e.mu.Unlock()
	e.release(reader)

	e.loopEnded(err)
}

func (e *Engine) pump(reader transport.Reader) error {
	var framer lawicel.Framer
	buf := make([]byte, readBufferSize)

	for e.reading() {
		n, err := reader.Read(buf)
		if n > 0 {
			for _, line := range framer.Feed(buf[:n]) {
				e.logger.LogTraffic("<<", line)
				e.emit(e.decoder.Decode(line))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
	return nil
}

func (e *Engine) reading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.keepReading
}

func (e *Engine) release(reader transport.Reader) {
	if err := reader.Release(); err != nil {
		e.logger.Error("release reader: %v", err)
	}
}

func (e *Engine) loopEnded(err error) {
	if !e.reading() {
		if err != nil {
			e.logger.Debug("read loop stopped: %v", err)
		}
		return
	}
	if err == nil {
		err = ErrStreamEnded
	}
	e.logger.Error("read loop ended unexpectedly: %v", err)
	e.teardown(context.Background(), err, true)
}
