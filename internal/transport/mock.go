package transport

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// MockAcquirer is an in-memory Acquirer for tests.
type MockAcquirer struct {
	Port  *MockPort
	Ports []PortInfo
	Err   error

	mu       sync.Mutex
	requests []Filter
}

var _ Acquirer = (*MockAcquirer)(nil)

// NewMockAcquirer returns an acquirer that always hands out port.
func NewMockAcquirer(port *MockPort) *MockAcquirer {
	return &MockAcquirer{Port: port}
}

func (a *MockAcquirer) RequestAccess(ctx context.Context, filter Filter) (Port, error) {
	a.mu.Lock()
	a.requests = append(a.requests, filter)
	a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Err != nil {
		return nil, a.Err
	}
	if a.Port == nil {
		return nil, ErrNoDevice
	}
	return a.Port, nil
}

func (a *MockAcquirer) ListAuthorized(ctx context.Context) ([]PortInfo, error) {
	if a.Ports != nil {
		return a.Ports, nil
	}
	if a.Port != nil {
		return []PortInfo{a.Port.Info()}, nil
	}
	return nil, nil
}

// Requests returns the filters passed to RequestAccess.
func (a *MockAcquirer) Requests() []Filter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Filter(nil), a.requests...)
}

type mockChunk struct {
	data []byte
	err  error
}

// MockPort is an in-memory Port. Incoming data is queued with Feed; outgoing
// writes are recorded and available through Writes and Written.
type MockPort struct {
	PortInfo PortInfo
	OpenErr  error
	CloseErr error
	// WriteErr, when non-nil, is consulted for every write.
	WriteErr func(data []byte) error

	mu                sync.Mutex
	open              bool
	closed            chan struct{}
	baudRate          int
	opens             int
	closes            int
	writes            []string
	writerReleases    int
	readerReleases    int
	closedWhileLocked bool
	incoming          chan mockChunk

	writer streamLock
	reader streamLock
}

var _ Port = (*MockPort)(nil)

// NewMockPort creates a mock port with the given identity.
func NewMockPort(info PortInfo) *MockPort {
	return &MockPort{
		PortInfo: info,
		incoming: make(chan mockChunk, 64),
	}
}

func (m *MockPort) Info() PortInfo {
	return m.PortInfo
}

func (m *MockPort) Open(baudRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return m.OpenErr
	}
	if m.open {
		return ErrAlreadyOpen
	}
	m.open = true
	m.opens++
	m.baudRate = baudRate
	m.closed = make(chan struct{})
	return nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNotOpen
	}
	if m.writer.locked() || m.reader.locked() {
		m.closedWhileLocked = true
	}
	m.open = false
	m.closes++
	close(m.closed)
	return m.CloseErr
}

func (m *MockPort) Writer() (Writer, error) {
	m.mu.Lock()
	open := m.open
	m.mu.Unlock()
	if !open {
		return nil, ErrNotOpen
	}
	if err := m.writer.acquire(); err != nil {
		return nil, err
	}
	return &mockWriter{port: m}, nil
}

func (m *MockPort) Reader() (Reader, error) {
	m.mu.Lock()
	open, closed := m.open, m.closed
	m.mu.Unlock()
	if !open {
		return nil, ErrNotOpen
	}
	if err := m.reader.acquire(); err != nil {
		return nil, err
	}
	return &mockReader{port: m, closed: closed, cancel: make(chan struct{})}, nil
}

// Feed queues data for the reader.
func (m *MockPort) Feed(data string) {
	m.incoming <- mockChunk{data: []byte(data)}
}

// FailRead makes the next read return err.
func (m *MockPort) FailRead(err error) {
	m.incoming <- mockChunk{err: err}
}

// Writes returns every write in order.
func (m *MockPort) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// Written returns all written bytes concatenated.
func (m *MockPort) Written() string {
	return strings.Join(m.Writes(), "")
}

// Stats reports lifecycle counters.
func (m *MockPort) Stats() MockStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MockStats{
		Open:              m.open,
		BaudRate:          m.baudRate,
		Opens:             m.opens,
		Closes:            m.closes,
		WriterReleases:    m.writerReleases,
		ReaderReleases:    m.readerReleases,
		ClosedWhileLocked: m.closedWhileLocked,
		WriterLocked:      m.writer.locked(),
		ReaderLocked:      m.reader.locked(),
	}
}

// MockStats is a snapshot of MockPort counters.
type MockStats struct {
	Open              bool
	BaudRate          int
	Opens             int
	Closes            int
	WriterReleases    int
	ReaderReleases    int
	ClosedWhileLocked bool
	WriterLocked      bool
	ReaderLocked      bool
}

type mockWriter struct {
	port *MockPort
}

func (w *mockWriter) Write(p []byte) (int, error) {
	if w.port.WriteErr != nil {
		if err := w.port.WriteErr(p); err != nil {
			return 0, err
		}
	}
	w.port.mu.Lock()
	w.port.writes = append(w.port.writes, string(p))
	w.port.mu.Unlock()
	return len(p), nil
}

func (w *mockWriter) Release() error {
	if err := w.port.writer.release(); err != nil {
		return err
	}
	w.port.mu.Lock()
	w.port.writerReleases++
	w.port.mu.Unlock()
	return nil
}

var errMockPortClosed = errors.New("mock port closed")

type mockReader struct {
	port       *MockPort
	closed     chan struct{}
	cancel     chan struct{}
	cancelOnce sync.Once
	pending    []byte
}

func (r *mockReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		select {
		case c := <-r.port.incoming:
			if c.err != nil {
				return 0, c.err
			}
			r.pending = c.data
		case <-r.cancel:
			return 0, io.EOF
		case <-r.closed:
			return 0, errMockPortClosed
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *mockReader) Cancel() error {
	r.cancelOnce.Do(func() { close(r.cancel) })
	return nil
}

func (r *mockReader) Release() error {
	if err := r.port.reader.release(); err != nil {
		return err
	}
	r.port.mu.Lock()
	r.port.readerReleases++
	r.port.mu.Unlock()
	return nil
}
