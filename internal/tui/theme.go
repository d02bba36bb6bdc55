package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/canusb/internal/engine"
	"github.com/tturner/canusb/internal/lawicel"
)

// Theme defines the color palette for the monitor.
// Tokyo Night colors.
type Theme struct {
	BgDark   lipgloss.Color
	BgAccent lipgloss.Color

	TextPrimary lipgloss.Color
	TextDim     lipgloss.Color

	Border        lipgloss.Color
	BorderFocused lipgloss.Color

	Accent  lipgloss.Color // blue
	Success lipgloss.Color // green
	Warning lipgloss.Color // amber
	Error   lipgloss.Color // red/pink
	Info    lipgloss.Color // cyan
	Purple  lipgloss.Color
}

// DefaultTheme is the dark Tokyo Night palette.
var DefaultTheme = Theme{
	BgDark:   lipgloss.Color("#1a1b26"),
	BgAccent: lipgloss.Color("#414868"),

	TextPrimary: lipgloss.Color("#c0caf5"),
	TextDim:     lipgloss.Color("#565f89"),

	Border:        lipgloss.Color("#414868"),
	BorderFocused: lipgloss.Color("#7aa2f7"),

	Accent:  lipgloss.Color("#7aa2f7"),
	Success: lipgloss.Color("#9ece6a"),
	Warning: lipgloss.Color("#e0af68"),
	Error:   lipgloss.Color("#f7768e"),
	Info:    lipgloss.Color("#7dcfff"),
	Purple:  lipgloss.Color("#bb9af7"),
}

// Styles provides pre-configured lipgloss styles using the theme.
type Styles struct {
	Title      lipgloss.Style
	Dim        lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	Error      lipgloss.Style
	Info       lipgloss.Style
	Sent       lipgloss.Style
	KeyBinding lipgloss.Style
	KeyHint    lipgloss.Style
	Box        lipgloss.Style
	BoxFocused lipgloss.Style

	TableHeader   lipgloss.Style
	TableCell     lipgloss.Style
	TableSelected lipgloss.Style
}

// NewStyles creates a Styles instance from a Theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true).
			Padding(0, 1),
		Dim:     lipgloss.NewStyle().Foreground(t.TextDim),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Foreground(t.Error),
		Info:    lipgloss.NewStyle().Foreground(t.Info),
		Sent:    lipgloss.NewStyle().Foreground(t.Purple),
		KeyBinding: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true),
		KeyHint: lipgloss.NewStyle().Foreground(t.TextDim),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		BoxFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocused).
			Padding(0, 1),

		TableHeader: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(t.Border).
			BorderBottom(true).
			Padding(0, 1),
		TableCell: lipgloss.NewStyle().
			Foreground(t.TextPrimary).
			Padding(0, 1),
		TableSelected: lipgloss.NewStyle().
			Foreground(t.BgDark).
			Background(t.Accent),
	}
}

// DefaultStyles returns styles using the default theme.
var DefaultStyles = NewStyles(DefaultTheme)

// StateIcon returns a colored indicator for a connection state.
func StateIcon(s engine.State, st Styles) string {
	switch s {
	case engine.Connected:
		return st.Success.Render("●")
	case engine.Failed:
		return st.Error.Render("●")
	case engine.RequestingTransport, engine.Opening, engine.Configuring, engine.Disconnecting:
		return st.Warning.Render("●")
	default:
		return st.Dim.Render("○")
	}
}

// KindStyle picks the row accent for an event.
func KindStyle(ev lawicel.Event, st Styles) lipgloss.Style {
	switch {
	case ev.Direction == lawicel.Tx:
		return st.Sent
	case ev.Kind == lawicel.KindErrorSignal || ev.Kind == lawicel.KindParseError:
		return st.Error
	case ev.Kind.IsRemote():
		return st.Warning
	case ev.Kind.IsFrame():
		return st.Info
	default:
		return st.Dim
	}
}
