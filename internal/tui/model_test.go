package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tturner/canusb/internal/engine"
	"github.com/tturner/canusb/internal/lawicel"
	"github.com/tturner/canusb/internal/transport"
)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newAdapterPort() *transport.MockPort {
	return transport.NewMockPort(transport.PortInfo{
		Name:      "/dev/ttyACM0",
		USB:       true,
		VendorID:  0x0483,
		ProductID: 0x5740,
	})
}

func newTestModel(t *testing.T, port *transport.MockPort, opts Options) (*Model, *transport.MockAcquirer) {
	t.Helper()
	bridge := NewBridge()
	t.Cleanup(bridge.Close)

	acq := transport.NewMockAcquirer(port)
	engOpts := engine.DefaultOptions()
	engOpts.SettleDelay = 0
	engOpts.CommandDelay = 0
	engOpts.OnEvent = bridge.OnEvent
	engOpts.OnState = bridge.OnState
	eng := engine.New(acq, engOpts)
	t.Cleanup(func() { _ = eng.Disconnect(context.Background()) })

	if opts.BitrateKbps == 0 {
		opts.BitrateKbps = 500
	}
	return NewModel(context.Background(), eng, bridge, opts), acq
}

// pump feeds bridge messages into the model until cond holds.
func pump(t *testing.T, m *Model, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case msg := <-m.bridge.ch:
			m.Update(msg)
		case <-deadline:
			t.Fatalf("timed out; state=%s status=%q events=%d", m.state, m.status, m.log.Len())
		}
	}
}

// run executes cmd synchronously and applies its message.
func run(t *testing.T, m *Model, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	m.Update(msg)
	return msg
}

func connect(t *testing.T, m *Model) {
	t.Helper()
	_, cmd := m.Update(key('c'))
	run(t, m, cmd)
	pump(t, m, func() bool { return m.state == engine.Connected })
}

func TestConnectUpdatesStatus(t *testing.T) {
	port := newAdapterPort()
	m, _ := newTestModel(t, port, Options{})

	connect(t, m)
	if m.status != "Connected (500 kbit/s)" || m.statusErr {
		t.Fatalf("unexpected status %q (err=%v)", m.status, m.statusErr)
	}
	if got := port.Written(); got != "\rS6\rO\r" {
		t.Fatalf("unexpected configuration writes %q", got)
	}
	if !strings.Contains(m.View(), "connected") {
		t.Fatalf("view missing state:\n%s", m.View())
	}
}

func TestConnectFailureShowsFriendlyError(t *testing.T) {
	m, acq := newTestModel(t, nil, Options{})
	acq.Err = transport.ErrNoDevice

	_, cmd := m.Update(key('c'))
	run(t, m, cmd)
	pump(t, m, func() bool { return m.state == engine.Failed })

	if !m.statusErr || !strings.Contains(m.status, "No CAN adapter available") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestEventsNewestFirst(t *testing.T) {
	port := newAdapterPort()
	m, _ := newTestModel(t, port, Options{})
	connect(t, m)

	port.Feed("t1232AABB\r\a")
	port.Feed("F00\r")
	pump(t, m, func() bool { return m.log.Len() == 3 })

	if len(m.rows) != 3 || len(m.table.Rows()) != 3 {
		t.Fatalf("expected 3 rows, got %d/%d", len(m.rows), len(m.table.Rows()))
	}
	if m.rows[0].Kind != lawicel.KindStatusFlags || m.rows[2].Kind != lawicel.KindStandardFrame {
		t.Fatalf("unexpected order: %s, %s", m.rows[0].Kind, m.rows[2].Kind)
	}
	row := m.table.Rows()[2]
	if row[1] != "CAN_STD" || row[2] != "123" || row[3] != "2" || row[4] != "AA BB" {
		t.Fatalf("unexpected row %v", row)
	}
	if m.rows[1].Kind != lawicel.KindErrorSignal {
		t.Fatalf("expected BELL event, got %s", m.rows[1].Kind)
	}
}

func TestRowCap(t *testing.T) {
	port := newAdapterPort()
	m, _ := newTestModel(t, port, Options{MaxRows: 3})
	connect(t, m)

	for i := 0; i < 5; i++ {
		port.Feed("t1001" + string("0123456789"[i]) + "0\r")
	}
	pump(t, m, func() bool { return m.log.Len() == 5 })

	if len(m.table.Rows()) != 3 {
		t.Fatalf("expected 3 displayed rows, got %d", len(m.table.Rows()))
	}
	if got := m.rows[0].DataString(); got != "40" {
		t.Fatalf("expected newest row first, got %q", got)
	}
}

func TestSendEchoesFrame(t *testing.T) {
	port := newAdapterPort()
	m, _ := newTestModel(t, port, Options{})
	connect(t, m)

	cmd, err := lawicel.NewSendCommand("1a2", 2, "aabb", false)
	if err != nil {
		t.Fatalf("NewSendCommand: %v", err)
	}
	run(t, m, m.sendCmd(cmd))
	if m.status != "Sent t1A22AABB" {
		t.Fatalf("unexpected status %q", m.status)
	}
	pump(t, m, func() bool { return m.log.Len() == 1 })
	if got := m.rows[0].TypeLabel(); got != "SENT_CAN_STD" {
		t.Fatalf("expected echo row, got %s", got)
	}
	if !strings.HasSuffix(port.Written(), "t1A22AABB\r") {
		t.Fatalf("frame not written: %q", port.Written())
	}
}

func TestSendRequiresConnection(t *testing.T) {
	m, _ := newTestModel(t, newAdapterPort(), Options{})

	m.Update(key('s'))
	if m.sendForm != nil {
		t.Fatal("send form opened while disconnected")
	}
	if !m.statusErr || m.status != engine.ErrNotConnected.Error() {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestSendFormCancel(t *testing.T) {
	m, _ := newTestModel(t, newAdapterPort(), Options{})
	connect(t, m)

	m.Update(key('s'))
	if m.sendForm == nil {
		t.Fatal("send form not opened")
	}
	if !strings.Contains(m.View(), "CAN ID") {
		t.Fatalf("form not rendered:\n%s", m.View())
	}

	// keys go to the form, not the monitor
	m.Update(key('l'))
	if m.sendForm == nil {
		t.Fatal("form closed by typing")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.sendForm != nil || m.status != "Send cancelled" {
		t.Fatalf("form not cancelled: status %q", m.status)
	}
}

func TestCopySelectedRow(t *testing.T) {
	var copied string
	port := newAdapterPort()
	m, _ := newTestModel(t, port, Options{Clipboard: func(s string) error {
		copied = s
		return nil
	}})

	_, cmd := m.Update(key('y'))
	if cmd != nil || !m.statusErr {
		t.Fatal("expected error with empty log")
	}

	connect(t, m)
	port.Feed("t7DF0\r")
	pump(t, m, func() bool { return m.log.Len() == 1 })

	_, cmd = m.Update(key('y'))
	run(t, m, cmd)
	if copied != "t7DF0" {
		t.Fatalf("copied %q", copied)
	}
	if !strings.HasPrefix(m.status, "Copied") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestExportAndClear(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 4, 3, 2, 1, 0, time.Local)
	port := newAdapterPort()
	m, _ := newTestModel(t, port, Options{ExportDir: dir, Now: func() time.Time { return now }})

	_, cmd := m.Update(key('e'))
	run(t, m, cmd)
	if !m.statusErr {
		t.Fatalf("expected empty log error, got %q", m.status)
	}

	connect(t, m)
	port.Feed("t1232AABB\r")
	pump(t, m, func() bool { return m.log.Len() == 1 })

	for _, tc := range []struct {
		key  rune
		name string
	}{
		{'e', "can_trace_20260504_030201.csv"},
		{'j', "can_trace_20260504_030201.json"},
		{'p', "can_trace_20260504_030201.pcap"},
	} {
		_, cmd := m.Update(key(tc.key))
		run(t, m, cmd)
		path := filepath.Join(dir, tc.name)
		if m.status != "Exported "+path {
			t.Fatalf("unexpected status %q", m.status)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing export: %v", err)
		}
	}

	m.Update(key('l'))
	if m.log.Len() != 0 || len(m.table.Rows()) != 0 {
		t.Fatal("log not cleared")
	}
}

func TestQuitDisconnects(t *testing.T) {
	port := newAdapterPort()
	m, _ := newTestModel(t, port, Options{})
	connect(t, m)

	_, cmd := m.Update(key('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if got := m.ctrl.State(); got != engine.Disconnected {
		t.Fatalf("state after quit = %s", got)
	}
	if !strings.HasSuffix(port.Written(), "C\r") {
		t.Fatalf("close command not written: %q", port.Written())
	}
	if m.View() != "" {
		t.Fatal("expected empty view after quit")
	}
}
