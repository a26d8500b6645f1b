// Package tui renders debate session snapshots in the terminal: a header
// with topic/phase/round/connection status, a participant panel with turn
// markers, and a scrolling transcript. The model is a pure projection; it
// never mutates session state.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/debate-arena/client-go/pkg/session"
)

// SnapshotMsg delivers a fresh session snapshot to the model. Each message
// carries the full state, so a dropped frame costs nothing.
type SnapshotMsg session.Snapshot

// StopRequestedMsg is emitted (via the returned command) when the user asks
// to stop the debate. The program wiring translates it into a REST stop.
type StopRequestedMsg struct{}

// Model is the bubbletea model for watching a debate session.
type Model struct {
	snapshot session.Snapshot
	width    int
	height   int
	quitting bool
}

// NewModel returns an empty model; the first SnapshotMsg populates it.
func NewModel() Model {
	return Model{width: 80, height: 24}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SnapshotMsg:
		m.snapshot = session.Snapshot(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "s":
			if m.snapshot.Status == session.StatusRunning {
				return m, func() tea.Msg { return StopRequestedMsg{} }
			}
			return m, nil
		}
	}
	return m, nil
}
