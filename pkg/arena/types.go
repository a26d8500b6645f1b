package arena

// TemplateSummary is one entry from the template catalog listing.
type TemplateSummary struct {
	Name        string           `json:"name"`
	Topic       string           `json:"topic"`
	Description string           `json:"description"`
	NumDebaters int              `json:"num_debaters"`
	Debaters    []DebaterSummary `json:"debaters"`
}

// DebaterSummary is the short debater shape used in catalog listings.
type DebaterSummary struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

// Template is a full template configuration.
type Template struct {
	Name        string    `json:"name"`
	Topic       string    `json:"topic"`
	Description string    `json:"description"`
	MaxRounds   int       `json:"max_rounds"`
	Debaters    []Debater `json:"debaters"`
}

// Debater identifies one configured debating participant.
type Debater struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Stance   string `json:"stance,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// CreateRequest creates a debate from a named template.
type CreateRequest struct {
	Template  string `json:"template"`
	MaxRounds int    `json:"max_rounds,omitempty"`
}

// Position is one user-defined side of a custom debate.
type Position struct {
	Name          string   `json:"name"`
	Stance        string   `json:"stance,omitempty"`
	DebaterName   string   `json:"debater_name,omitempty"`
	Personality   string   `json:"personality,omitempty"`
	ArgumentStyle string   `json:"argument_style,omitempty"`
	Avatar        string   `json:"avatar,omitempty"`
	KeyBeliefs    []string `json:"key_beliefs,omitempty"`
}

// CustomCreateRequest creates a debate with user-defined positions.
type CustomCreateRequest struct {
	Topic               string     `json:"topic"`
	Positions           []Position `json:"positions"`
	MaxRounds           int        `json:"max_rounds,omitempty"`
	ModeratorStrictness string     `json:"moderator_strictness,omitempty"`
}

// Debate is the creation response establishing the participant set.
type Debate struct {
	DebateID  string    `json:"debate_id"`
	Topic     string    `json:"topic"`
	Debaters  []Debater `json:"debaters"`
	MaxRounds int       `json:"max_rounds"`
	Status    string    `json:"status"`
}

// DebateStatus is the polled state of an existing debate.
type DebateStatus struct {
	DebateID     string    `json:"debate_id"`
	Topic        string    `json:"topic"`
	Phase        string    `json:"phase"`
	CurrentRound int       `json:"current_round"`
	TotalRounds  int       `json:"total_rounds"`
	IsActive     bool      `json:"is_active"`
	TotalTurns   int       `json:"total_turns"`
	Debaters     []Debater `json:"debaters"`
}

// StartResponse acknowledges a start request; the debate runs asynchronously
// and progress arrives over the event stream.
type StartResponse struct {
	DebateID string `json:"debate_id"`
	Status   string `json:"status"`
}

// Transcript is the backend-formatted transcript plus aggregate statistics.
type Transcript struct {
	DebateID   string           `json:"debate_id"`
	Transcript string           `json:"transcript"`
	Statistics DebateStatistics `json:"statistics"`
}

// DebateStatistics aggregates per-debater turn counts.
type DebateStatistics struct {
	DebateID        string         `json:"debate_id"`
	Topic           string         `json:"topic"`
	NumDebaters     int            `json:"num_debaters"`
	Debaters        []DebaterStats `json:"debaters"`
	TotalTurns      int            `json:"total_turns"`
	RoundsCompleted int            `json:"rounds_completed"`
	Phase           string         `json:"phase"`
}

// DebaterStats is one debater's contribution count.
type DebaterStats struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Turns    int    `json:"turns"`
}

// Health is the backend liveness report.
type Health struct {
	Status             string   `json:"status"`
	Version            string   `json:"version"`
	ActiveDebates      int      `json:"active_debates"`
	AvailableTemplates []string `json:"available_templates"`
}
