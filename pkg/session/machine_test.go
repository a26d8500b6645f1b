package session

import (
	"testing"
	"time"

	"github.com/debate-arena/client-go/pkg/protocol"
)

func testSessionInfo() SessionInfo {
	return SessionInfo{
		SessionID: "sess-1",
		Topic:     "Renewable energy mandates",
		MaxRounds: 3,
		Language:  "en",
		Participants: []ParticipantInfo{
			{ID: "p-pro", DisplayName: "Proponent", PositionLabel: "For", Stance: "pro"},
			{ID: "p-con", DisplayName: "Opponent", PositionLabel: "Against", Stance: "con"},
		},
	}
}

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine()
	m.now = func() time.Time { return time.Unix(1700000000, 0) }
	m.Reset(testSessionInfo())
	return m
}

func TestMachineReset(t *testing.T) {
	m := newTestMachine(t)
	snap := m.Snapshot()

	if snap.Status != StatusReady {
		t.Fatalf("status = %q, want %q", snap.Status, StatusReady)
	}
	if snap.Phase != PhaseNotStarted {
		t.Fatalf("phase = %q, want %q", snap.Phase, PhaseNotStarted)
	}
	if len(snap.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(snap.Participants))
	}
	for _, p := range snap.Participants {
		if p.TurnStatus != TurnWaiting {
			t.Fatalf("participant %s turn status = %q, want %q", p.ID, p.TurnStatus, TurnWaiting)
		}
	}
	if len(snap.Transcript) != 0 {
		t.Fatalf("transcript not empty after reset: %d entries", len(snap.Transcript))
	}
}

func TestMachineResetDiscardsPreviousSession(t *testing.T) {
	m := newTestMachine(t)
	m.Apply(protocol.StartedEvent{})
	m.Apply(protocol.ModerationEvent{Message: "welcome"})

	info := testSessionInfo()
	info.SessionID = "sess-2"
	m.Reset(info)

	snap := m.Snapshot()
	if snap.SessionID != "sess-2" {
		t.Fatalf("session id = %q, want sess-2", snap.SessionID)
	}
	if snap.Status != StatusReady || len(snap.Transcript) != 0 {
		t.Fatalf("old session state leaked: status=%q transcript=%d", snap.Status, len(snap.Transcript))
	}
}

func TestMachineLifecycleEvents(t *testing.T) {
	m := newTestMachine(t)

	m.Apply(protocol.StartedEvent{})
	if got := m.Snapshot().Status; got != StatusRunning {
		t.Fatalf("after started: status = %q, want %q", got, StatusRunning)
	}

	m.Apply(protocol.PhaseChangedEvent{Phase: "opening", Round: 1})
	snap := m.Snapshot()
	if snap.Phase != PhaseOpening || snap.Round != 1 {
		t.Fatalf("after phase_changed: phase=%q round=%d", snap.Phase, snap.Round)
	}

	m.Apply(protocol.RoundStartedEvent{Round: 2, TotalRounds: 5})
	snap = m.Snapshot()
	if snap.Round != 2 || snap.MaxRounds != 5 {
		t.Fatalf("after round_started: round=%d max=%d", snap.Round, snap.MaxRounds)
	}
}

func TestMachineTurnStarted(t *testing.T) {
	m := newTestMachine(t)
	m.Apply(protocol.StartedEvent{})

	m.Apply(protocol.TurnStartedEvent{ParticipantID: "p-pro"})
	snap := m.Snapshot()
	if snap.Participants[0].TurnStatus != TurnSpeaking {
		t.Fatalf("p-pro turn status = %q, want %q", snap.Participants[0].TurnStatus, TurnSpeaking)
	}
	if snap.Participants[1].TurnStatus != TurnWaiting {
		t.Fatalf("p-con turn status = %q, want %q", snap.Participants[1].TurnStatus, TurnWaiting)
	}

	// The speaking marker moves, never duplicates.
	m.Apply(protocol.TurnStartedEvent{ParticipantID: "p-con"})
	snap = m.Snapshot()
	if snap.Participants[0].TurnStatus != TurnWaiting || snap.Participants[1].TurnStatus != TurnSpeaking {
		t.Fatalf("speaking marker did not move: %q/%q",
			snap.Participants[0].TurnStatus, snap.Participants[1].TurnStatus)
	}
}

func TestMachineTurnStartedUnknownParticipant(t *testing.T) {
	m := newTestMachine(t)
	m.Apply(protocol.TurnStartedEvent{ParticipantID: "p-pro"})
	m.Apply(protocol.TurnStartedEvent{ParticipantID: "nobody"})

	snap := m.Snapshot()
	if snap.Participants[0].TurnStatus != TurnSpeaking {
		t.Fatalf("unknown participant event changed turn state: %q", snap.Participants[0].TurnStatus)
	}
}

func TestMachineTurnCompleted(t *testing.T) {
	m := newTestMachine(t)
	m.Apply(protocol.StartedEvent{})
	m.Apply(protocol.TurnStartedEvent{ParticipantID: "p-pro"})

	effects := m.Apply(protocol.TurnCompletedEvent{
		ParticipantID:    "p-pro",
		Statement:        "Mandates accelerate grid decarbonization.",
		SupportingPoints: []string{"cost curves", "deployment rates"},
	})

	if len(effects.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(effects.Entries))
	}
	entry := effects.Entries[0]
	if entry.Kind != EntryStatement || entry.SpeakerID != "p-pro" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.SpeakerName != "Proponent" {
		t.Fatalf("speaker name = %q, want display name fallback", entry.SpeakerName)
	}
	if len(entry.SupportingPoints) != 2 {
		t.Fatalf("supporting points = %v", entry.SupportingPoints)
	}

	if len(effects.Speech) != 1 {
		t.Fatalf("speech = %d, want 1", len(effects.Speech))
	}
	if effects.Speech[0].Ordinal != 0 {
		t.Fatalf("speech ordinal = %d, want 0", effects.Speech[0].Ordinal)
	}
	if effects.StopPlayback {
		t.Fatal("turn_completed must not stop playback")
	}

	if got := m.Snapshot().Participants[0].TurnStatus; got != TurnWaiting {
		t.Fatalf("speaker turn status after completion = %q, want %q", got, TurnWaiting)
	}
}

func TestMachineTurnCompletedWithAudioSuppressesSpeech(t *testing.T) {
	m := newTestMachine(t)
	effects := m.Apply(protocol.TurnCompletedEvent{
		ParticipantID: "p-con",
		Statement:     "Markets outperform mandates.",
		HasAudio:      true,
	})
	if len(effects.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(effects.Entries))
	}
	if len(effects.Speech) != 0 {
		t.Fatalf("speech = %d, want 0 when audio frame follows", len(effects.Speech))
	}
}

func TestMachineModeration(t *testing.T) {
	m := newTestMachine(t)
	effects := m.Apply(protocol.ModerationEvent{
		Message:     "Please stay on topic.",
		AddressedTo: "p-con",
	})

	if len(effects.Entries) != 1 || effects.Entries[0].Kind != EntryModeration {
		t.Fatalf("effects.Entries = %+v", effects.Entries)
	}
	if effects.Entries[0].AddressedTo != "p-con" {
		t.Fatalf("addressed_to = %q", effects.Entries[0].AddressedTo)
	}
	if len(effects.Speech) != 1 {
		t.Fatalf("speech = %d, want 1", len(effects.Speech))
	}
	sp := effects.Speech[0]
	if sp.SpeakerID != ModeratorID || sp.Ordinal != ModeratorOrdinal {
		t.Fatalf("moderator speech = %+v", sp)
	}
}

func TestMachineOffTopicProducesNoSpeech(t *testing.T) {
	m := newTestMachine(t)
	effects := m.Apply(protocol.OffTopicEvent{
		ParticipantID: "p-pro",
		Redirect:      "return to the economic impact",
	})
	if len(effects.Entries) != 1 || effects.Entries[0].Kind != EntryWarning {
		t.Fatalf("effects.Entries = %+v", effects.Entries)
	}
	if len(effects.Speech) != 0 {
		t.Fatalf("off_topic produced speech: %+v", effects.Speech)
	}
}

func TestMachineEnded(t *testing.T) {
	m := newTestMachine(t)
	m.Apply(protocol.StartedEvent{})
	effects := m.Apply(protocol.EndedEvent{
		TotalTurns:      8,
		RoundsCompleted: 3,
		ClosingRemarks:  "Thank you both for a spirited exchange.",
	})

	snap := m.Snapshot()
	if snap.Status != StatusCompleted || snap.Phase != PhaseFinished {
		t.Fatalf("after ended: status=%q phase=%q", snap.Status, snap.Phase)
	}
	for _, p := range snap.Participants {
		if p.TurnStatus != TurnFinished {
			t.Fatalf("participant %s not finished: %q", p.ID, p.TurnStatus)
		}
	}
	if effects.StopPlayback {
		t.Fatal("ended must let queued speech drain, not cut it")
	}
	if len(effects.Entries) != 1 || effects.Entries[0].Kind != EntrySystem {
		t.Fatalf("closing remarks entry missing: %+v", effects.Entries)
	}
}

func TestMachineStoppedCutsPlayback(t *testing.T) {
	m := newTestMachine(t)
	m.Apply(protocol.StartedEvent{})
	m.MarkStopping()
	if got := m.Snapshot().Status; got != StatusStopping {
		t.Fatalf("after MarkStopping: status = %q", got)
	}

	effects := m.Apply(protocol.StoppedEvent{})
	if !effects.StopPlayback {
		t.Fatal("stopped must request a playback cut")
	}
	if got := m.Snapshot().Status; got != StatusStopped {
		t.Fatalf("after stopped: status = %q", got)
	}
}

func TestMachineError(t *testing.T) {
	m := newTestMachine(t)
	effects := m.Apply(protocol.ErrorEvent{Message: "engine crashed"})

	snap := m.Snapshot()
	if snap.Status != StatusError || snap.ErrorMessage != "engine crashed" {
		t.Fatalf("after error: status=%q msg=%q", snap.Status, snap.ErrorMessage)
	}
	if len(effects.Entries) != 1 || effects.Entries[0].Kind != EntrySystem {
		t.Fatalf("error entry = %+v", effects.Entries)
	}
}

func TestMachineSequenceNumbersStrictlyIncrease(t *testing.T) {
	m := newTestMachine(t)
	m.Apply(protocol.StartedEvent{})
	m.Apply(protocol.TurnCompletedEvent{ParticipantID: "p-pro", Statement: "first"})
	m.Apply(protocol.ModerationEvent{Message: "noted"})
	m.Apply(protocol.OffTopicEvent{ParticipantID: "p-con"})
	m.Apply(protocol.TurnCompletedEvent{ParticipantID: "p-con", Statement: "second"})

	transcript := m.Snapshot().Transcript
	if len(transcript) != 4 {
		t.Fatalf("transcript = %d entries, want 4", len(transcript))
	}
	for i, entry := range transcript {
		if entry.SequenceNo != i+1 {
			t.Fatalf("entry %d sequence = %d, want %d", i, entry.SequenceNo, i+1)
		}
	}
}

func TestMachineSnapshotIsIndependentCopy(t *testing.T) {
	m := newTestMachine(t)
	m.Apply(protocol.TurnCompletedEvent{ParticipantID: "p-pro", Statement: "claim"})

	snap := m.Snapshot()
	snap.Participants[0].TurnStatus = TurnFinished
	snap.Transcript[0].Text = "tampered"

	fresh := m.Snapshot()
	if fresh.Participants[0].TurnStatus == TurnFinished {
		t.Fatal("snapshot shares participant storage with the machine")
	}
	if fresh.Transcript[0].Text == "tampered" {
		t.Fatal("snapshot shares transcript storage with the machine")
	}
}
