// Package transport provides the byte-stream collaborator used by the SLCAN engine:
// device acquisition filtered by USB identity, and a port with exclusively
// locked read and write endpoints.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoDevice    = errors.New("no matching device")
	ErrLocked      = errors.New("stream is locked")
	ErrNotLocked   = errors.New("stream is not locked")
	ErrNotOpen     = errors.New("port is not open")
	ErrAlreadyOpen = errors.New("port is already open")
)

// PortInfo describes an enumerated port.
type PortInfo struct {
	Name         string
	USB          bool
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Product      string
}

func (p PortInfo) String() string {
	if !p.USB {
		return p.Name
	}
	return fmt.Sprintf("%s (%04X:%04X)", p.Name, p.VendorID, p.ProductID)
}

// Acquirer hands out ports. It owns device enumeration and selection.
type Acquirer interface {
	// RequestAccess selects a port whose identity matches filter.
	RequestAccess(ctx context.Context, filter Filter) (Port, error)

	// ListAuthorized returns every port the process may open.
	ListAuthorized(ctx context.Context) ([]PortInfo, error)
}

// Port is a bidirectional byte stream with lockable endpoints.
// At most one Writer and one Reader may be held at a time.
type Port interface {
	Info() PortInfo
	Open(baudRate int) error
	Close() error
	Writer() (Writer, error)
	Reader() (Reader, error)
}

// Writer is the locked output side of a port.
type Writer interface {
	Write(p []byte) (int, error)
	Release() error
}

// Reader is the locked input side of a port.
// Read blocks until data arrives; after Cancel it returns io.EOF.
type Reader interface {
	Read(p []byte) (int, error)
	Cancel() error
	Release() error
}

// streamLock models the exclusive lock on one port endpoint.
type streamLock struct {
	mu   sync.Mutex
	held bool
}

func (l *streamLock) acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return ErrLocked
	}
	l.held = true
	return nil
}

func (l *streamLock) release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return ErrNotLocked
	}
	l.held = false
	return nil
}

func (l *streamLock) locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
