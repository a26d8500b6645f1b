package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/debate-arena/client-go/pkg/session"
)

// View implements tea.Model. The whole screen is redrawn from the snapshot.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderParticipants())
	b.WriteString("\n")
	b.WriteString(m.renderTranscript())
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	snap := m.snapshot

	title := "Debate Arena"
	if snap.Topic != "" {
		title = "Debate Arena: " + snap.Topic
	}

	round := ""
	if snap.Round > 0 {
		round = fmt.Sprintf(" round %d/%d", snap.Round, snap.MaxRounds)
	}
	meta := subtitleStyle.Render(fmt.Sprintf("%s · %s%s", snap.Status, snap.Phase, round))

	conn := connDownStyle.Render(string(snap.ConnState))
	if snap.ConnState == session.ConnOpen {
		conn = connOpenStyle.Render(string(snap.ConnState))
	}

	return headerStyle.Width(m.width).Render(title) + "\n" + meta + "  " + conn
}

func (m Model) renderParticipants() string {
	snap := m.snapshot
	if len(snap.Participants) == 0 {
		return subtitleStyle.Render("waiting for session…")
	}

	lines := make([]string, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		marker := "○"
		style := participantStyle
		switch p.TurnStatus {
		case session.TurnSpeaking:
			marker = "▶"
			style = speakerStyle
		case session.TurnFinished:
			marker = "✓"
			style = systemStyle
		}
		line := fmt.Sprintf("%s %s (%s)", marker, p.DisplayName, p.PositionLabel)
		if !p.Voice.IsNone() {
			line += " " + voiceTagStyle.Render("voice:"+p.Voice.Name)
		}
		lines = append(lines, style.Render(line))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderTranscript() string {
	entries := m.snapshot.Transcript
	if len(entries) == 0 {
		return subtitleStyle.Render("no contributions yet") + "\n"
	}

	// Keep the most recent entries that fit; each entry is roughly two rows.
	maxEntries := (m.height - 8 - len(m.snapshot.Participants)) / 2
	if maxEntries < 3 {
		maxEntries = 3
	}
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(m.renderEntry(e))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderEntry(e session.TranscriptEntry) string {
	speaker := e.SpeakerName
	if e.AddressedTo != "" {
		speaker += " → " + e.AddressedTo
	}

	var head string
	switch e.Kind {
	case session.EntryModeration:
		head = moderationStyle.Render(speaker + ":")
	case session.EntryWarning:
		head = warningStyle.Render(speaker + " [warning]:")
	case session.EntrySystem:
		head = systemStyle.Render(speaker + ":")
	default:
		head = speakerStyle.Render(speaker + ":")
	}

	body := lipgloss.NewStyle().Width(m.width - 2).Render(e.Text)
	out := head + " " + body
	for _, point := range e.SupportingPoints {
		out += "\n  • " + point
	}
	return out
}

func (m Model) renderFooter() string {
	snap := m.snapshot
	if snap.Status == session.StatusError && snap.ErrorMessage != "" {
		return errorStyle.Render("error: "+snap.ErrorMessage) + "\n" +
			helpStyle.Render("q quit")
	}
	help := "q quit"
	if snap.Status == session.StatusRunning {
		help = "s stop · q quit"
	}
	return helpStyle.Render(help)
}
