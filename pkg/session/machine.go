package session

import (
	"strings"
	"sync"
	"time"

	"github.com/debate-arena/client-go/pkg/protocol"
	"github.com/debate-arena/client-go/pkg/voice"
)

// ModeratorOrdinal is the fixed voice ordinal for moderator speech, kept
// apart from the participant ordinals so the moderator sounds distinct.
const ModeratorOrdinal = 3

// Speech is a playback request produced by applying an event.
type Speech struct {
	SpeakerID   string
	SpeakerName string
	Ordinal     int
	Text        string
	Audio       []byte
}

// Effects is what an applied event asks the caller to do beyond the state
// mutation itself.
type Effects struct {
	Entries      []TranscriptEntry
	Speech       []Speech
	StopPlayback bool
}

// Machine is the debate session state machine. It consumes decoded events
// in arrival order and never infers a transition on its own.
type Machine struct {
	mu sync.Mutex

	sessionID    string
	topic        string
	status       Status
	phase        Phase
	round        int
	maxRounds    int
	errorMessage string

	participants []Participant
	index        map[string]int
	transcript   []TranscriptEntry
	seq          int

	now func() time.Time
}

// NewMachine returns a machine in setup state with no session attached.
func NewMachine() *Machine {
	return &Machine{
		status: StatusSetup,
		phase:  PhaseNotStarted,
		index:  make(map[string]int),
		now:    time.Now,
	}
}

// Reset attaches a freshly created session, establishing the participant
// set atomically and discarding any previous session's state.
func (m *Machine) Reset(info SessionInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionID = info.SessionID
	m.topic = info.Topic
	m.status = StatusReady
	m.phase = PhaseNotStarted
	m.round = 0
	m.maxRounds = info.MaxRounds
	m.errorMessage = ""
	m.transcript = nil
	m.seq = 0

	m.participants = make([]Participant, 0, len(info.Participants))
	m.index = make(map[string]int, len(info.Participants))
	for _, p := range info.Participants {
		m.index[p.ID] = len(m.participants)
		m.participants = append(m.participants, Participant{
			ID:            p.ID,
			DisplayName:   p.DisplayName,
			PositionLabel: p.PositionLabel,
			Stance:        p.Stance,
			TurnStatus:    TurnWaiting,
		})
	}
}

// SessionID returns the attached session id, empty when none.
func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// MarkStopping records a user-initiated stop request awaiting the backend's
// stopped event.
func (m *Machine) MarkStopping() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusRunning || m.status == StatusReady {
		m.status = StatusStopping
	}
}

// Apply processes one decoded event and returns its side effects. Events
// are applied strictly in the order given; control frames (joined, pong)
// and audio frames are not state events and produce no effects here.
func (m *Machine) Apply(msg protocol.Message) Effects {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev := msg.(type) {
	case protocol.StartedEvent:
		m.status = StatusRunning
		return Effects{}

	case protocol.PhaseChangedEvent:
		m.phase = Phase(strings.TrimSpace(ev.Phase))
		if ev.Round > 0 {
			m.round = ev.Round
		}
		return Effects{}

	case protocol.RoundStartedEvent:
		m.round = ev.Round
		if ev.TotalRounds > 0 {
			m.maxRounds = ev.TotalRounds
		}
		return Effects{}

	case protocol.TurnStartedEvent:
		idx, known := m.index[ev.ParticipantID]
		if !known {
			return Effects{}
		}
		for i := range m.participants {
			m.participants[i].TurnStatus = TurnWaiting
		}
		m.participants[idx].TurnStatus = TurnSpeaking
		return Effects{}

	case protocol.TurnCompletedEvent:
		return m.applyTurnCompleted(ev)

	case protocol.ModerationEvent:
		entry := m.appendEntry(TranscriptEntry{
			SpeakerID:   ModeratorID,
			SpeakerName: "Moderator",
			Kind:        EntryModeration,
			Text:        ev.Message,
			AddressedTo: ev.AddressedTo,
		})
		return Effects{
			Entries: []TranscriptEntry{entry},
			Speech: []Speech{{
				SpeakerID:   ModeratorID,
				SpeakerName: "Moderator",
				Ordinal:     ModeratorOrdinal,
				Text:        ev.Message,
			}},
		}

	case protocol.OffTopicEvent:
		text := "Off-topic contribution flagged."
		if redirect := strings.TrimSpace(ev.Redirect); redirect != "" {
			text = "Off topic: " + redirect
		}
		entry := m.appendEntry(TranscriptEntry{
			SpeakerID:   ModeratorID,
			SpeakerName: "Moderator",
			Kind:        EntryWarning,
			Text:        text,
			AddressedTo: ev.ParticipantID,
		})
		return Effects{Entries: []TranscriptEntry{entry}}

	case protocol.EndedEvent:
		m.status = StatusCompleted
		m.phase = PhaseFinished
		for i := range m.participants {
			m.participants[i].TurnStatus = TurnFinished
		}
		effects := Effects{}
		if remarks := strings.TrimSpace(ev.ClosingRemarks); remarks != "" {
			entry := m.appendEntry(TranscriptEntry{
				SpeakerID:   ModeratorID,
				SpeakerName: "Moderator",
				Kind:        EntrySystem,
				Text:        remarks,
			})
			effects.Entries = []TranscriptEntry{entry}
		}
		// Queued speech is allowed to finish on natural completion.
		return effects

	case protocol.StoppedEvent:
		m.status = StatusStopped
		return Effects{StopPlayback: true}

	case protocol.ErrorEvent:
		m.status = StatusError
		m.errorMessage = ev.Message
		entry := m.appendEntry(TranscriptEntry{
			SpeakerID:   ModeratorID,
			SpeakerName: "Moderator",
			Kind:        EntrySystem,
			Text:        "Session error: " + ev.Message,
		})
		return Effects{Entries: []TranscriptEntry{entry}}

	default:
		return Effects{}
	}
}

func (m *Machine) applyTurnCompleted(ev protocol.TurnCompletedEvent) Effects {
	idx, known := m.index[ev.ParticipantID]
	name := strings.TrimSpace(ev.ParticipantName)
	ordinal := 0
	if known {
		if m.participants[idx].TurnStatus == TurnSpeaking {
			m.participants[idx].TurnStatus = TurnWaiting
		}
		if name == "" {
			name = m.participants[idx].DisplayName
		}
		ordinal = idx
	}
	if name == "" {
		name = ev.ParticipantID
	}

	statement, points := ev.StatementText()
	entry := m.appendEntry(TranscriptEntry{
		SpeakerID:        ev.ParticipantID,
		SpeakerName:      name,
		Kind:             EntryStatement,
		Text:             statement,
		SupportingPoints: points,
	})

	effects := Effects{Entries: []TranscriptEntry{entry}}
	// When the backend pre-rendered audio, a separate audio frame carries
	// the speech; synthesizing here would double-speak the turn.
	if !ev.HasAudio && statement != "" {
		effects.Speech = []Speech{{
			SpeakerID:   ev.ParticipantID,
			SpeakerName: name,
			Ordinal:     ordinal,
			Text:        statement,
		}}
	}
	return effects
}

func (m *Machine) appendEntry(entry TranscriptEntry) TranscriptEntry {
	m.seq++
	entry.SequenceNo = m.seq
	entry.Phase = m.phase
	entry.Timestamp = m.now()
	m.transcript = append(m.transcript, entry)
	return entry
}

// ParticipantOrdinal returns the stable order index used for voice
// assignment, or -1 when the id is unknown.
func (m *Machine) ParticipantOrdinal(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.index[id]; ok {
		return idx
	}
	return -1
}

// SetParticipantVoice records the allocated voice handle so projections can
// display it. No-op for unknown ids.
func (m *Machine) SetParticipantVoice(id string, handle voice.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.index[id]; ok {
		m.participants[idx].Voice = handle
	}
}

// Snapshot returns a deep copy of session state plus transcript. ConnState
// is filled in by the owning client.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		SessionID:    m.sessionID,
		Topic:        m.topic,
		Status:       m.status,
		Phase:        m.phase,
		Round:        m.round,
		MaxRounds:    m.maxRounds,
		ErrorMessage: m.errorMessage,
		Participants: append([]Participant(nil), m.participants...),
		Transcript:   append([]TranscriptEntry(nil), m.transcript...),
	}
}
