// Package session implements the real-time debate session client: a
// reconnecting websocket connection manager, an event-driven state machine
// for phase/round/turn tracking, and the append-only transcript those
// events project into.
package session

import (
	"time"

	"github.com/debate-arena/client-go/pkg/voice"
)

// Status is the lifecycle state of a debate session.
type Status string

const (
	StatusSetup     Status = "setup"
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusStopping  Status = "stopping"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Phase is a named stage of the debate. Transitions are driven exclusively
// by backend events; the client never infers one locally.
type Phase string

const (
	PhaseNotStarted   Phase = "not_started"
	PhaseIntroduction Phase = "introduction"
	PhaseOpening      Phase = "opening"
	PhaseDebate       Phase = "debate"
	PhaseRebuttals    Phase = "rebuttals"
	PhaseClosing      Phase = "closing"
	PhaseConclusion   Phase = "conclusion"
	PhaseFinished     Phase = "finished"
)

// TurnStatus tracks whether a participant is waiting, speaking, or done.
type TurnStatus string

const (
	TurnWaiting  TurnStatus = "waiting"
	TurnSpeaking TurnStatus = "speaking"
	TurnFinished TurnStatus = "finished"
)

// ModeratorID is the reserved speaker id for moderator transcript entries
// and moderator speech.
const ModeratorID = "moderator"

// Participant is one debating entity. The participant set is fixed for the
// session; only TurnStatus mutates mid-session.
type Participant struct {
	ID            string
	DisplayName   string
	PositionLabel string
	Stance        string
	TurnStatus    TurnStatus
	Voice         voice.Handle
}

// EntryKind classifies transcript entries for rendering.
type EntryKind string

const (
	EntryStatement  EntryKind = "statement"
	EntryModeration EntryKind = "moderation"
	EntryWarning    EntryKind = "warning"
	EntrySystem     EntryKind = "system"
)

// TranscriptEntry is append-only and immutable once created. SequenceNo is
// strictly increasing and matches the arrival order of the source event.
type TranscriptEntry struct {
	SequenceNo       int
	SpeakerID        string
	SpeakerName      string
	Phase            Phase
	Kind             EntryKind
	Text             string
	SupportingPoints []string
	AddressedTo      string
	Timestamp        time.Time
}

// SessionInfo is the session-creation response that establishes the
// participant set atomically.
type SessionInfo struct {
	SessionID    string
	Topic        string
	MaxRounds    int
	Language     string
	Participants []ParticipantInfo
}

// ParticipantInfo describes one participant from the creation response.
type ParticipantInfo struct {
	ID            string
	DisplayName   string
	PositionLabel string
	Stance        string
}

// Snapshot is a self-contained copy of the session state plus transcript,
// sufficient to redraw any projection in full at any time.
type Snapshot struct {
	SessionID    string
	Topic        string
	Status       Status
	Phase        Phase
	Round        int
	MaxRounds    int
	ErrorMessage string
	ConnState    ConnState
	Participants []Participant
	Transcript   []TranscriptEntry
}
