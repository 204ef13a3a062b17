package view

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/invisifeed/invisifeed/internal/session"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// CommonModel is embedded by all views.
type CommonModel struct {
	Width  int
	Height int
	// Session is the latest snapshot, pushed in by the root model.
	Session session.Snapshot
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// SessionMsg asks the root model to merge updates into the shared snapshot.
type SessionMsg struct {
	Updates []session.Update
}

func updateSession(updates ...session.Update) tea.Cmd {
	return func() tea.Msg {
		return SessionMsg{Updates: updates}
	}
}

// SignedOutMsg is sent when the server no longer accepts the session.
type SignedOutMsg struct{}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pad          = lipgloss.NewStyle().Padding(1)
)
