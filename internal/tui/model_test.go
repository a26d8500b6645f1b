package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/debate-arena/client-go/pkg/session"
)

func testSnapshot() session.Snapshot {
	return session.Snapshot{
		SessionID: "sess-1",
		Topic:     "Universal basic income",
		Status:    session.StatusRunning,
		Phase:     session.PhaseDebate,
		Round:     2,
		MaxRounds: 3,
		ConnState: session.ConnOpen,
		Participants: []session.Participant{
			{ID: "p1", DisplayName: "Advocate", PositionLabel: "For", TurnStatus: session.TurnSpeaking},
			{ID: "p2", DisplayName: "Skeptic", PositionLabel: "Against", TurnStatus: session.TurnWaiting},
		},
		Transcript: []session.TranscriptEntry{
			{SequenceNo: 1, SpeakerName: "Advocate", Kind: session.EntryStatement, Text: "UBI simplifies welfare."},
			{SequenceNo: 2, SpeakerName: "Moderator", Kind: session.EntryModeration, Text: "Skeptic, respond.", AddressedTo: "Skeptic"},
		},
	}
}

func updateWith(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

func TestViewRendersSnapshot(t *testing.T) {
	m := updateWith(t, NewModel(), SnapshotMsg(testSnapshot()))
	out := m.View()

	for _, want := range []string{
		"Universal basic income",
		"round 2/3",
		"Advocate",
		"Skeptic",
		"UBI simplifies welfare.",
		"Moderator → Skeptic",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}

func TestViewMarksSpeaker(t *testing.T) {
	m := updateWith(t, NewModel(), SnapshotMsg(testSnapshot()))
	out := m.View()

	advocateLine := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Advocate (For)") {
			advocateLine = line
		}
	}
	if !strings.Contains(advocateLine, "▶") {
		t.Fatalf("speaking participant not marked: %q", advocateLine)
	}
	if strings.Count(out, "▶") != 1 {
		t.Fatalf("expected exactly one speaking marker:\n%s", out)
	}
}

func TestViewShowsErrorState(t *testing.T) {
	snap := testSnapshot()
	snap.Status = session.StatusError
	snap.ErrorMessage = "engine crashed"

	m := updateWith(t, NewModel(), SnapshotMsg(snap))
	if out := m.View(); !strings.Contains(out, "engine crashed") {
		t.Fatalf("error message not rendered:\n%s", out)
	}
}

func TestStopKeyOnlyWhileRunning(t *testing.T) {
	m := updateWith(t, NewModel(), SnapshotMsg(testSnapshot()))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd == nil {
		t.Fatal("stop key ignored while running")
	}
	if _, ok := cmd().(StopRequestedMsg); !ok {
		t.Fatal("stop key did not produce a StopRequestedMsg")
	}

	snap := testSnapshot()
	snap.Status = session.StatusCompleted
	m = updateWith(t, m, SnapshotMsg(snap))
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}}); cmd != nil {
		t.Fatal("stop key produced a command after completion")
	}
}

func TestQuitKey(t *testing.T) {
	m := updateWith(t, NewModel(), SnapshotMsg(testSnapshot()))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("quit key produced no command")
	}
	if view := next.(Model).View(); view != "" {
		t.Fatalf("quitting view not empty: %q", view)
	}
}
