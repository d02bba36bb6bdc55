package tui

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/canusb/internal/engine"
	"github.com/tturner/canusb/internal/errors"
	"github.com/tturner/canusb/internal/lawicel"
	"github.com/tturner/canusb/internal/tracelog"
)

// Controller is the engine surface the monitor drives.
type Controller interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Send(ctx context.Context, cmd lawicel.SendCommand) error
	State() engine.State
}

// Options configures the monitor model.
type Options struct {
	Title       string // adapter description shown in the header
	BitrateKbps int
	MaxRows     int
	ExportDir   string
	AutoConnect bool

	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
	// Now stamps export filenames; defaults to time.Now.
	Now func() time.Time
}

const (
	defaultWidth  = 100
	defaultHeight = 30
	chromeHeight  = 9 // header, status, detail, footer and borders
)

type connectDoneMsg struct{ err error }

type disconnectDoneMsg struct{ err error }

type sendDoneMsg struct {
	cmd lawicel.SendCommand
	err error
}

type exportDoneMsg struct {
	format string
	path   string
	err    error
}

// Model is the bubbletea model for the live CAN monitor.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	bridge *Bridge
	log    *tracelog.Log
	opts   Options
	styles Styles

	table  table.Model
	rows   []lawicel.Event // newest first, parallel to the table rows
	width  int
	height int

	state     engine.State
	status    string
	statusErr bool

	sendForm *huh.Form
	lastSend SendDefaults
	quitting bool
}

// NewModel creates the monitor. bridge must be the one wired into the engine's callbacks.
func NewModel(ctx context.Context, ctrl Controller, bridge *Bridge, opts Options) *Model {
	if opts.MaxRows <= 0 {
		opts.MaxRows = 200
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	styles := DefaultStyles
	t := table.New(
		table.WithColumns(columns(defaultWidth)),
		table.WithFocused(true),
		table.WithHeight(defaultHeight-chromeHeight),
	)
	ts := table.DefaultStyles()
	ts.Header = styles.TableHeader
	ts.Cell = styles.TableCell
	ts.Selected = styles.TableSelected
	t.SetStyles(ts)

	return &Model{
		ctx:    ctx,
		ctrl:   ctrl,
		bridge: bridge,
		log:    tracelog.NewLog(),
		opts:   opts,
		styles: styles,
		table:  t,
		width:  defaultWidth,
		height: defaultHeight,
		state:  ctrl.State(),
		status: "Press c to connect",
	}
}

func columns(width int) []table.Column {
	fixed := 12 + 16 + 10 + 5
	data := width - fixed - 12
	if data < 24 {
		data = 24
	}
	return []table.Column{
		{Title: "Time", Width: 12},
		{Title: "Type", Width: 16},
		{Title: "ID", Width: 10},
		{Title: "DLC", Width: 5},
		{Title: "Data", Width: data},
	}
}

// Log returns the model's event log.
func (m *Model) Log() *tracelog.Log {
	return m.log
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.bridge.Listen()}
	if m.opts.AutoConnect {
		cmds = append(cmds, m.connectCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(3, msg.Height-chromeHeight))
		return m, nil

	case eventMsg:
		m.record(lawicel.Event(msg))
		return m, m.bridge.Listen()

	case stateMsg:
		m.applyState(engine.StateChange(msg))
		return m, m.bridge.Listen()

	case connectDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, nil

	case disconnectDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, nil

	case sendDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus("Sent " + lawicel.Encode(msg.cmd))
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("export %s: %w", msg.format, msg.err))
		} else {
			m.setStatus("Exported " + msg.path)
		}
		return m, nil

	case clipboardCopyMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("copy failed: %w", msg.err))
		} else {
			m.setStatus("Copied " + strconv.Quote(msg.content))
		}
		return m, nil
	}

	if m.sendForm != nil {
		return m.updateForm(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, m.quitCmd()
	case "c":
		return m, m.connectCmd()
	case "d":
		return m, m.disconnectCmd()
	case "s":
		if m.state != engine.Connected {
			m.setError(engine.ErrNotConnected)
			return m, nil
		}
		m.sendForm = NewSendForm(m.lastSend)
		return m, m.sendForm.Init()
	case "e":
		return m, m.exportCmd("csv")
	case "j":
		return m, m.exportCmd("json")
	case "p":
		return m, m.exportCmd("pcap")
	case "y":
		ev, ok := m.selected()
		if !ok {
			m.setError(fmt.Errorf("nothing selected"))
			return m, nil
		}
		return m, copyToClipboard(m.opts.Clipboard, ev.Raw)
	case "l":
		m.log.Clear()
		m.refreshRows()
		m.setStatus("Log cleared")
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		m.sendForm = nil
		m.setStatus("Send cancelled")
		return m, nil
	}

	formModel, cmd := m.sendForm.Update(msg)
	if f, ok := formModel.(*huh.Form); ok {
		m.sendForm = f
	}

	switch m.sendForm.State {
	case huh.StateCompleted:
		form := m.sendForm
		m.sendForm = nil
		m.lastSend = SendDefaults{
			ID:       form.GetString(fieldID),
			DLC:      form.GetString(fieldDLC),
			Data:     form.GetString(fieldData),
			Extended: form.GetBool(fieldExtended),
			Remote:   form.GetBool(fieldRemote),
		}
		sc, err := ParseSendForm(form)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		return m, m.sendCmd(sc)
	case huh.StateAborted:
		m.sendForm = nil
		m.setStatus("Send cancelled")
		return m, nil
	}
	return m, cmd
}

func (m *Model) record(ev lawicel.Event) {
	m.log.Record(ev)
	m.refreshRows()
}

func (m *Model) refreshRows() {
	m.rows = m.log.Tail(m.opts.MaxRows)
	rows := make([]table.Row, 0, len(m.rows))
	for _, ev := range m.rows {
		rows = append(rows, eventRow(ev))
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
}

func eventRow(ev lawicel.Event) table.Row {
	dlc := ""
	if ev.HasDLC() {
		dlc = strconv.Itoa(ev.DLC)
	}
	return table.Row{
		ev.Timestamp.Format("15:04:05.000"),
		ev.TypeLabel(),
		ev.ID,
		dlc,
		ev.DataString(),
	}
}

func (m *Model) selected() (lawicel.Event, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return lawicel.Event{}, false
	}
	return m.rows[i], true
}

func (m *Model) applyState(c engine.StateChange) {
	m.state = c.To
	switch {
	case c.Err != nil:
		m.setError(c.Err)
		var cerr *engine.ConnectError
		if !stderrors.As(c.Err, &cerr) && c.Message != "" {
			m.status = c.Message + ": " + m.status
		}
	case c.Message != "":
		m.setStatus(c.Message)
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	err = errors.WrapEngineError(err)
	var ufe errors.UserFriendlyError
	if stderrors.As(err, &ufe) {
		m.status = ufe.Message
		if ufe.Reason != "" {
			m.status += ": " + ufe.Reason
		}
	} else {
		m.status = err.Error()
	}
	m.statusErr = true
}

func (m *Model) connectCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return connectDoneMsg{err: ctrl.Connect(ctx)}
	}
}

func (m *Model) disconnectCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return disconnectDoneMsg{err: ctrl.Disconnect(ctx)}
	}
}

func (m *Model) sendCmd(sc lawicel.SendCommand) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return sendDoneMsg{cmd: sc, err: ctrl.Send(ctx, sc)}
	}
}

func (m *Model) quitCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		if ctrl.State() == engine.Connected {
			_ = ctrl.Disconnect(ctx)
		}
		return tea.Quit()
	}
}

func (m *Model) exportCmd(format string) tea.Cmd {
	events := m.log.Events()
	dir, now := m.opts.ExportDir, m.opts.Now()
	return func() tea.Msg {
		if len(events) == 0 {
			return exportDoneMsg{format: format, err: fmt.Errorf("log is empty")}
		}
		path, err := tracelog.ExportFile(dir, format, now, events)
		return exportDoneMsg{format: format, path: path, err: err}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	title := m.styles.Title.Render("canusb")
	adapter := m.styles.Dim.Render(fmt.Sprintf("%s  %d kbit/s", m.opts.Title, m.opts.BitrateKbps))
	state := StateIcon(m.state, m.styles) + " " + m.state.String()
	sum := m.log.Summary()
	counts := m.styles.Dim.Render(fmt.Sprintf("%d events (%d rx, %d tx)", sum.Total, sum.Received, sum.Sent))
	if sum.ErrorSignals > 0 {
		counts += "  " + m.styles.Error.Render(fmt.Sprintf("%d adapter errors", sum.ErrorSignals))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", state, "  ", adapter, "  ", counts)

	statusStyle := m.styles.Dim
	if m.statusErr {
		statusStyle = m.styles.Error
	}
	status := statusStyle.Render(m.status)

	var body string
	if m.sendForm != nil {
		body = m.styles.BoxFocused.Render(m.sendForm.View())
	} else {
		body = m.styles.Box.Render(m.table.View())
	}

	detail := ""
	if ev, ok := m.selected(); ok && m.sendForm == nil {
		line := fmt.Sprintf("raw %q", ev.Raw)
		if ev.Err != "" {
			line += "  " + ev.Err
		}
		detail = KindStyle(ev, m.styles).Render(line)
	}

	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(status + "\n")
	b.WriteString(body + "\n")
	if detail != "" {
		b.WriteString(detail + "\n")
	}
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) footer() string {
	keys := [][2]string{
		{"c", "connect"}, {"d", "disconnect"}, {"s", "send"},
		{"e", "csv"}, {"j", "json"}, {"p", "pcap"},
		{"y", "copy"}, {"l", "clear"}, {"q", "quit"},
	}
	if m.sendForm != nil {
		keys = [][2]string{{"enter", "next"}, {"esc", "cancel"}}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, m.styles.KeyBinding.Render(k[0])+" "+m.styles.KeyHint.Render(k[1]))
	}
	return strings.Join(parts, "  ")
}
