package transport

import (
	"context"
	"errors"
	"io"
	"testing"

	"go.bug.st/serial/enumerator"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		input   string
		want    Filter
		wantErr bool
	}{
		{input: "", want: Filter{}},
		{input: "any", want: Filter{}},
		{input: "0483:5740", want: Filter{VendorID: 0x0483, ProductID: 0x5740}},
		{input: "0x0483:0x5740", want: Filter{VendorID: 0x0483, ProductID: 0x5740}},
		{input: "16d0", want: Filter{VendorID: 0x16D0}},
		{input: "zzzz:5740", wantErr: true},
		{input: "0483:", wantErr: true},
		{input: "12345:1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFilter(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFilter(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("ParseFilter(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFilterMatches(t *testing.T) {
	adapter := PortInfo{Name: "/dev/ttyACM0", USB: true, VendorID: 0x0483, ProductID: 0x5740}
	other := PortInfo{Name: "/dev/ttyUSB0", USB: true, VendorID: 0x0403, ProductID: 0x6001}
	builtin := PortInfo{Name: "/dev/ttyS0"}

	f := Filter{VendorID: 0x0483, ProductID: 0x5740}
	if !f.Matches(adapter) {
		t.Error("filter should match adapter")
	}
	if f.Matches(other) || f.Matches(builtin) {
		t.Error("filter should not match other ports")
	}
	if !(Filter{}).Matches(builtin) {
		t.Error("empty filter should match every port")
	}
	if got := FilterPorts([]PortInfo{other, adapter, builtin}, f); len(got) != 1 || got[0].Name != adapter.Name {
		t.Errorf("FilterPorts = %+v", got)
	}
	if f.String() != "0483:5740" {
		t.Errorf("String() = %q", f.String())
	}
}

func TestSerialAcquirerSelection(t *testing.T) {
	details := []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "0483", PID: "5740", SerialNumber: "205E3072", Product: "CANable"},
	}
	a := NewSerialAcquirer("")
	a.enumerate = func() ([]*enumerator.PortDetails, error) { return details, nil }
	ctx := context.Background()

	ports, err := a.ListAuthorized(ctx)
	if err != nil {
		t.Fatalf("ListAuthorized: %v", err)
	}
	if len(ports) != 3 {
		t.Fatalf("ListAuthorized returned %d ports, want 3", len(ports))
	}
	if ports[2].VendorID != 0x0483 || ports[2].ProductID != 0x5740 || ports[2].Product != "CANable" {
		t.Errorf("port details = %+v", ports[2])
	}

	port, err := a.RequestAccess(ctx, Filter{VendorID: 0x0483, ProductID: 0x5740})
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if port.Info().Name != "/dev/ttyACM0" {
		t.Errorf("selected %q, want /dev/ttyACM0", port.Info().Name)
	}

	_, err = a.RequestAccess(ctx, Filter{VendorID: 0x1D50, ProductID: 0x606F})
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("RequestAccess without match: err = %v, want ErrNoDevice", err)
	}

	a.Path = "/dev/ttyCUSTOM"
	port, err = a.RequestAccess(ctx, Filter{VendorID: 0x1D50})
	if err != nil {
		t.Fatalf("RequestAccess with path: %v", err)
	}
	if port.Info().Name != "/dev/ttyCUSTOM" {
		t.Errorf("explicit path ignored: %q", port.Info().Name)
	}
}

func TestSerialAcquirerEnumerationError(t *testing.T) {
	a := NewSerialAcquirer("")
	a.enumerate = func() ([]*enumerator.PortDetails, error) { return nil, errors.New("not supported") }
	if _, err := a.RequestAccess(context.Background(), Filter{}); err == nil {
		t.Fatal("expected enumeration error")
	}

	a.Path = "/dev/ttyACM3"
	if _, err := a.RequestAccess(context.Background(), Filter{}); err != nil {
		t.Fatalf("explicit path should bypass enumeration failure: %v", err)
	}
}

func TestSerialPortNotOpen(t *testing.T) {
	p := newSerialPort(PortInfo{Name: "/dev/null-port"}, 0)
	if _, err := p.Writer(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Writer on closed port: err = %v", err)
	}
	if _, err := p.Reader(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Reader on closed port: err = %v", err)
	}
	if err := p.Close(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Close on closed port: err = %v", err)
	}
}

func TestMockPortLocks(t *testing.T) {
	m := NewMockPort(PortInfo{Name: "mock"})
	if err := m.Open(115200); err != nil {
		t.Fatalf("Open: %v", err)
	}

	w, err := m.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	if _, err := m.Writer(); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Writer: err = %v, want ErrLocked", err)
	}
	if _, err := w.Write([]byte("O\r")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := w.Release(); !errors.Is(err, ErrNotLocked) {
		t.Fatalf("double Release: err = %v, want ErrNotLocked", err)
	}

	r, err := m.Reader()
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	m.Feed("t0010\r")
	buf := make([]byte, 3)
	n, err := r.Read(buf)
	if err != nil || string(buf[:n]) != "t00" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
	n, err = r.Read(buf)
	if err != nil || string(buf[:n]) != "10\r" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
	r.Cancel()
	if _, err := r.Read(buf); err != io.EOF {
		t.Fatalf("Read after Cancel: err = %v, want io.EOF", err)
	}
	r.Release()

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	stats := m.Stats()
	if stats.ClosedWhileLocked || stats.WriterReleases != 1 || stats.ReaderReleases != 1 || stats.BaudRate != 115200 {
		t.Fatalf("stats = %+v", stats)
	}
	if m.Written() != "O\r" {
		t.Fatalf("Written = %q", m.Written())
	}
}
