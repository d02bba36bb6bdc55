package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// DefaultReadTimeout bounds each blocking serial read so a cancelled reader is noticed.
const DefaultReadTimeout = 100 * time.Millisecond

// SerialAcquirer selects serial ports through OS enumeration.
type SerialAcquirer struct {
	// Path, when set, is used instead of the first enumerated match.
	Path        string
	ReadTimeout time.Duration

	enumerate func() ([]*enumerator.PortDetails, error)
}

var _ Acquirer = (*SerialAcquirer)(nil)

// NewSerialAcquirer creates an acquirer. path may be empty.
func NewSerialAcquirer(path string) *SerialAcquirer {
	return &SerialAcquirer{
		Path:        path,
		ReadTimeout: DefaultReadTimeout,
		enumerate:   enumerator.GetDetailedPortsList,
	}
}

// ListAuthorized enumerates the serial ports present on the system.
func (a *SerialAcquirer) ListAuthorized(ctx context.Context) ([]PortInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	details, err := a.enumerate()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, portInfoFromDetails(d))
	}
	return ports, nil
}

// RequestAccess returns the port named by Path, or the first enumerated port matching filter.
func (a *SerialAcquirer) RequestAccess(ctx context.Context, filter Filter) (Port, error) {
	ports, err := a.ListAuthorized(ctx)
	if a.Path != "" {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		for _, p := range ports {
			if p.Name == a.Path {
				return newSerialPort(p, a.ReadTimeout), nil
			}
		}
		return newSerialPort(PortInfo{Name: a.Path}, a.ReadTimeout), nil
	}
	if err != nil {
		return nil, err
	}

	matches := FilterPorts(ports, filter)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoDevice, filter)
	}
	return newSerialPort(matches[0], a.ReadTimeout), nil
}

func portInfoFromDetails(d *enumerator.PortDetails) PortInfo {
	info := PortInfo{
		Name:         d.Name,
		USB:          d.IsUSB,
		SerialNumber: d.SerialNumber,
		Product:      d.Product,
	}
	if d.IsUSB {
		if vid, err := parseUSBID(d.VID); err == nil {
			info.VendorID = vid
		}
		if pid, err := parseUSBID(d.PID); err == nil {
			info.ProductID = pid
		}
	}
	return info
}

// SerialPort is a Port backed by go.bug.st/serial.
type SerialPort struct {
	info        PortInfo
	readTimeout time.Duration

	mu     sync.Mutex
	port   serial.Port
	writer streamLock
	reader streamLock
}

var _ Port = (*SerialPort)(nil)

func newSerialPort(info PortInfo, readTimeout time.Duration) *SerialPort {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &SerialPort{info: info, readTimeout: readTimeout}
}

func (s *SerialPort) Info() PortInfo {
	return s.info
}

// Open opens the device at baudRate, 8N1.
func (s *SerialPort) Open(baudRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return ErrAlreadyOpen
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(s.info.Name, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.info.Name, err)
	}
	if err := p.SetReadTimeout(s.readTimeout); err != nil {
		p.Close()
		return fmt.Errorf("set read timeout: %w", err)
	}
	_ = p.ResetInputBuffer()
	_ = p.ResetOutputBuffer()

	s.port = p
	return nil
}

// Close closes the device. A blocked reader returns with an error.
func (s *SerialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ErrNotOpen
	}
	err := s.port.Close()
	s.port = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", s.info.Name, err)
	}
	return nil
}

func (s *SerialPort) current() (serial.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, ErrNotOpen
	}
	return s.port, nil
}

// Writer locks and returns the output side.
func (s *SerialPort) Writer() (Writer, error) {
	p, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := s.writer.acquire(); err != nil {
		return nil, err
	}
	return &serialWriter{port: p, lock: &s.writer}, nil
}

// Reader locks and returns the input side.
func (s *SerialPort) Reader() (Reader, error) {
	p, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := s.reader.acquire(); err != nil {
		return nil, err
	}
	return &serialReader{port: p, lock: &s.reader}, nil
}

type serialWriter struct {
	port serial.Port
	lock *streamLock
}

func (w *serialWriter) Write(p []byte) (int, error) {
	return w.port.Write(p)
}

func (w *serialWriter) Release() error {
	return w.lock.release()
}

type serialReader struct {
	port      serial.Port
	lock      *streamLock
	cancelled atomic.Bool
}

// Read polls the port using its read timeout until data arrives or Cancel is called.
func (r *serialReader) Read(p []byte) (int, error) {
	for {
		if r.cancelled.Load() {
			return 0, io.EOF
		}
		n, err := r.port.Read(p)
		if err != nil {
			if r.cancelled.Load() {
				return 0, io.EOF
			}
			return n, err
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (r *serialReader) Cancel() error {
	r.cancelled.Store(true)
	return nil
}

func (r *serialReader) Release() error {
	return r.lock.release()
}
