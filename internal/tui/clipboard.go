package tui

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// clipboardCopyMsg is sent after a clipboard copy operation.
type clipboardCopyMsg struct {
	content string
	err     error
}

// copyToClipboard returns a tea.Cmd that copies text and reports the outcome.
func copyToClipboard(write func(string) error, text string) tea.Cmd {
	if write == nil {
		write = clipboard.WriteAll
	}
	return func() tea.Msg {
		return clipboardCopyMsg{content: text, err: write(text)}
	}
}
