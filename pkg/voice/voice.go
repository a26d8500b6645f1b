// Package voice assigns stable synthetic voice identities to debate
// participants. A participant keeps the same voice for the whole session,
// even when the underlying pool is reloaded.
package voice

import (
	"strings"
	"sync"
)

// Voice is one entry in the synthesis pool.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Handle is the opaque voice identity bound to one participant: a base
// voice from the pool plus a pitch multiplier for perceptual variety.
type Handle struct {
	VoiceID string
	Name    string
	Pitch   float64
	Rate    float64
}

// None is the sentinel returned when the pool is empty. Playback degrades
// to log-only mode; it is not an error.
var None = Handle{}

// IsNone reports whether the handle is the empty-pool sentinel.
func (h Handle) IsNone() bool {
	return h.VoiceID == "" && h.Name == ""
}

// Pitch multipliers cycled by ordinal so participants sharing a base voice
// still sound distinct.
var pitchSteps = [3]float64{1.0, 1.12, 0.89}

// Allocator deterministically maps participant ids to voice handles.
type Allocator struct {
	mu       sync.Mutex
	pool     []Voice
	language string
	assigned map[string]Handle
}

// NewAllocator builds an allocator over pool, preferring entries whose
// language matches the session's working language.
func NewAllocator(pool []Voice, language string) *Allocator {
	return &Allocator{
		pool:     append([]Voice(nil), pool...),
		language: normalizeLanguage(language),
		assigned: make(map[string]Handle),
	}
}

// Assign returns the voice handle for a participant. The first call for an
// id selects deterministically by ordinal; later calls return the cached
// handle regardless of ordinal.
func (a *Allocator) Assign(participantID string, ordinal int) Handle {
	if a == nil {
		return None
	}
	participantID = strings.TrimSpace(participantID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if handle, ok := a.assigned[participantID]; ok {
		return handle
	}

	candidates := a.languageMatches()
	if len(candidates) == 0 {
		candidates = a.pool
	}
	if len(candidates) == 0 {
		a.assigned[participantID] = None
		return None
	}

	if ordinal < 0 {
		ordinal = -ordinal
	}
	base := candidates[ordinal%len(candidates)]
	handle := Handle{
		VoiceID: base.ID,
		Name:    base.Name,
		Pitch:   pitchSteps[ordinal%len(pitchSteps)],
		Rate:    1.0,
	}
	a.assigned[participantID] = handle
	return handle
}

// SetPool replaces the pool, for catalog hot reload. Cached assignments
// are kept so mid-session reloads never reshuffle voices.
func (a *Allocator) SetPool(pool []Voice) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pool = append([]Voice(nil), pool...)
}

// SetLanguage switches the preferred working language. Cached assignments
// are kept; only future Assign calls see the new preference.
func (a *Allocator) SetLanguage(lang string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.language = normalizeLanguage(lang)
}

// Reset drops all cached assignments for a new session.
func (a *Allocator) Reset() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.assigned = make(map[string]Handle)
}

// PoolSize returns the current number of pool entries.
func (a *Allocator) PoolSize() int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pool)
}

func (a *Allocator) languageMatches() []Voice {
	if a.language == "" {
		return nil
	}
	matches := make([]Voice, 0, len(a.pool))
	for _, v := range a.pool {
		if normalizeLanguage(v.Language) == a.language {
			matches = append(matches, v)
		}
	}
	return matches
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	// "en-US" and "en" are the same working language for pool selection.
	if idx := strings.IndexAny(lang, "-_"); idx > 0 {
		lang = lang[:idx]
	}
	return lang
}
