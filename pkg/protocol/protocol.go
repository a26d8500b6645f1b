// Package protocol defines the wire contract between the debate backend and
// the real-time session client: a JSON envelope with a "type" discriminator
// carrying either connection-control frames or debate session events.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Session event tags carried by Envelope.Event.
const (
	EventStarted       = "started"
	EventPhaseChanged  = "phase_changed"
	EventRoundStarted  = "round_started"
	EventTurnStarted   = "turn_started"
	EventTurnCompleted = "turn_completed"
	EventModeration    = "moderation"
	EventOffTopic      = "off_topic"
	EventEnded         = "ended"
	EventStopped       = "stopped"
	EventError         = "error"
)

// DecodeError reports a malformed or unsupported inbound frame. Callers log
// and drop the frame; a decode failure never closes the connection.
type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badFrame(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_frame", Message: message, Param: param}
}

func unknownFrame(message, param string) *DecodeError {
	return &DecodeError{Code: "unknown_frame", Message: message, Param: param}
}

// ClientJoin attaches this connection to a debate session's event stream.
// Re-sent automatically after every reconnect.
type ClientJoin struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// ClientPing is the periodic liveness probe. The pong ack is consumed and
// otherwise ignored.
type ClientPing struct {
	Type string `json:"type"`
}

// NewJoin builds the join frame for a session.
func NewJoin(sessionID string) ClientJoin {
	return ClientJoin{Type: "join", SessionID: strings.TrimSpace(sessionID)}
}

// NewPing builds the liveness probe frame.
func NewPing() ClientPing {
	return ClientPing{Type: "ping"}
}

// Message is a decoded inbound frame.
type Message interface {
	messageType() string
}

// ServerJoined acknowledges a join frame.
type ServerJoined struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func (ServerJoined) messageType() string { return "joined" }

// ServerPong acknowledges a liveness probe.
type ServerPong struct {
	Type string `json:"type"`
}

func (ServerPong) messageType() string { return "pong" }

// ServerAudio carries pre-rendered speech for a turn as a base64 payload.
type ServerAudio struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	AudioB64  string    `json:"audio_b64"`
	Meta      AudioMeta `json:"meta"`
}

func (ServerAudio) messageType() string { return "audio" }

// AudioMeta identifies the speaker and spoken text of an audio payload.
type AudioMeta struct {
	ParticipantID string `json:"participant_id"`
	Text          string `json:"text"`
}

// DecodeAudio decodes the base64 payload into raw audio bytes.
func (a ServerAudio) DecodeAudio() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(a.AudioB64))
	if err != nil {
		return nil, badFrame("invalid base64 audio payload", "audio_b64")
	}
	return raw, nil
}

// SessionEvent is implemented by all decoded debate event payloads.
type SessionEvent interface {
	Message
	EventTag() string
}

// StartedEvent reports that the backend began running the debate.
type StartedEvent struct {
	SessionID string `json:"session_id"`
}

func (StartedEvent) messageType() string { return "event" }
func (StartedEvent) EventTag() string    { return EventStarted }

// PhaseChangedEvent moves the debate to a new named phase.
type PhaseChangedEvent struct {
	Phase string `json:"phase"`
	Round int    `json:"round,omitempty"`
}

func (PhaseChangedEvent) messageType() string { return "event" }
func (PhaseChangedEvent) EventTag() string    { return EventPhaseChanged }

// RoundStartedEvent updates the round counter.
type RoundStartedEvent struct {
	Round       int `json:"round"`
	TotalRounds int `json:"total_rounds"`
}

func (RoundStartedEvent) messageType() string { return "event" }
func (RoundStartedEvent) EventTag() string    { return EventRoundStarted }

// TurnStartedEvent marks one participant as the active speaker.
type TurnStartedEvent struct {
	ParticipantID   string `json:"participant_id"`
	ParticipantName string `json:"participant_name,omitempty"`
	Phase           string `json:"phase,omitempty"`
	Round           int    `json:"round,omitempty"`
}

func (TurnStartedEvent) messageType() string { return "event" }
func (TurnStartedEvent) EventTag() string    { return EventTurnStarted }

// TurnArgument is the structured statement shape some backends emit in
// place of a plain statement string.
type TurnArgument struct {
	MainClaim        string   `json:"main_claim"`
	SupportingPoints []string `json:"supporting_points,omitempty"`
}

// TurnCompletedEvent delivers a finished contribution. The statement may
// arrive under several equivalent field names; use StatementText.
type TurnCompletedEvent struct {
	ParticipantID    string        `json:"participant_id"`
	ParticipantName  string        `json:"participant_name,omitempty"`
	PositionName     string        `json:"position_name,omitempty"`
	Phase            string        `json:"phase,omitempty"`
	Round            int           `json:"round,omitempty"`
	Statement        string        `json:"statement,omitempty"`
	Argument         *TurnArgument `json:"argument,omitempty"`
	Text             string        `json:"text,omitempty"`
	SupportingPoints []string      `json:"supporting_points,omitempty"`
	HasAudio         bool          `json:"has_audio,omitempty"`
	Timestamp        float64       `json:"timestamp,omitempty"`
}

func (TurnCompletedEvent) messageType() string { return "event" }
func (TurnCompletedEvent) EventTag() string    { return EventTurnCompleted }

// StatementText normalizes the polymorphic statement shapes into a single
// statement plus supporting points, trying known fields in priority order.
func (e TurnCompletedEvent) StatementText() (string, []string) {
	if s := strings.TrimSpace(e.Statement); s != "" {
		return s, e.SupportingPoints
	}
	if e.Argument != nil {
		if s := strings.TrimSpace(e.Argument.MainClaim); s != "" {
			return s, e.Argument.SupportingPoints
		}
	}
	return strings.TrimSpace(e.Text), e.SupportingPoints
}

// ModerationEvent is a moderator intervention spoken in the moderator voice.
type ModerationEvent struct {
	ActionType      string `json:"action_type,omitempty"`
	Message         string `json:"message"`
	AddressedTo     string `json:"addressed_to,omitempty"`
	OffTopicWarning bool   `json:"off_topic_warning,omitempty"`
}

func (ModerationEvent) messageType() string { return "event" }
func (ModerationEvent) EventTag() string    { return EventModeration }

// OffTopicEvent warns that a participant drifted from the topic. It carries
// no speech and changes no turn state.
type OffTopicEvent struct {
	ParticipantID string `json:"participant_id"`
	Redirect      string `json:"redirect,omitempty"`
}

func (OffTopicEvent) messageType() string { return "event" }
func (OffTopicEvent) EventTag() string    { return EventOffTopic }

// EndedEvent reports natural completion of the debate.
type EndedEvent struct {
	TotalTurns      int    `json:"total_turns,omitempty"`
	RoundsCompleted int    `json:"rounds_completed,omitempty"`
	ClosingRemarks  string `json:"closing_remarks,omitempty"`
}

func (EndedEvent) messageType() string { return "event" }
func (EndedEvent) EventTag() string    { return EventEnded }

// StoppedEvent reports that the debate was explicitly stopped.
type StoppedEvent struct{}

func (StoppedEvent) messageType() string { return "event" }
func (StoppedEvent) EventTag() string    { return EventStopped }

// ErrorEvent reports a backend session fault. The session stays in error
// until the user acts; only the connection retries automatically.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) messageType() string { return "event" }
func (ErrorEvent) EventTag() string    { return EventError }

// Decode parses one inbound frame into its typed message. Unknown
// discriminators and unknown event tags return a *DecodeError with code
// "unknown_frame"; malformed JSON returns code "bad_frame".
func Decode(data []byte) (Message, error) {
	var envelope struct {
		Type  string `json:"type"`
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badFrame("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badFrame("missing type", "type")
	}

	switch typ {
	case "joined":
		var msg ServerJoined
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid joined frame", "")
		}
		return msg, nil
	case "pong":
		return ServerPong{Type: "pong"}, nil
	case "audio":
		var msg ServerAudio
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid audio frame", "")
		}
		if strings.TrimSpace(msg.AudioB64) == "" {
			return nil, badFrame("audio.audio_b64 is required", "audio_b64")
		}
		return msg, nil
	case "event":
		return decodeEvent(envelope.Event, data)
	default:
		return nil, unknownFrame("unsupported message type "+typ, "type")
	}
}

func decodeEvent(tag string, data []byte) (Message, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, badFrame("missing event tag", "event")
	}

	switch tag {
	case EventStarted:
		var ev StartedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badFrame("invalid started event", "")
		}
		return ev, nil
	case EventPhaseChanged:
		var ev PhaseChangedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badFrame("invalid phase_changed event", "")
		}
		if strings.TrimSpace(ev.Phase) == "" {
			return nil, badFrame("phase_changed.phase is required", "phase")
		}
		return ev, nil
	case EventRoundStarted:
		var ev RoundStartedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badFrame("invalid round_started event", "")
		}
		if ev.Round <= 0 {
			return nil, badFrame("round_started.round must be > 0", "round")
		}
		return ev, nil
	case EventTurnStarted:
		var ev TurnStartedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badFrame("invalid turn_started event", "")
		}
		if strings.TrimSpace(ev.ParticipantID) == "" {
			return nil, badFrame("turn_started.participant_id is required", "participant_id")
		}
		return ev, nil
	case EventTurnCompleted:
		var ev TurnCompletedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badFrame("invalid turn_completed event", "")
		}
		if strings.TrimSpace(ev.ParticipantID) == "" {
			// Older backends nest the payload under a "turn" object.
			var nested struct {
				Turn *TurnCompletedEvent `json:"turn"`
			}
			if err := json.Unmarshal(data, &nested); err == nil && nested.Turn != nil {
				ev = *nested.Turn
			}
		}
		if strings.TrimSpace(ev.ParticipantID) == "" {
			return nil, badFrame("turn_completed.participant_id is required", "participant_id")
		}
		return ev, nil
	case EventModeration:
		var ev ModerationEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badFrame("invalid moderation event", "")
		}
		if strings.TrimSpace(ev.Message) == "" {
			return nil, badFrame("moderation.message is required", "message")
		}
		return ev, nil
	case EventOffTopic:
		var ev OffTopicEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badFrame("invalid off_topic event", "")
		}
		return ev, nil
	case EventEnded:
		var ev EndedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badFrame("invalid ended event", "")
		}
		return ev, nil
	case EventStopped:
		return StoppedEvent{}, nil
	case EventError:
		var ev ErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badFrame("invalid error event", "")
		}
		return ev, nil
	default:
		return nil, unknownFrame("unsupported event tag "+tag, "event")
	}
}
