// Package playback serializes speech output so that at most one utterance
// renders at a time, in enqueue order, while staying cancellable at any
// point. Rendering itself is delegated to an injected audio backend.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/debate-arena/client-go/pkg/voice"
)

// DefaultGain is the initial output level applied to rendered audio.
const DefaultGain = 0.8

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("playback: pipeline is closed")

// AudioBuffer is decoded, playable audio.
type AudioBuffer []byte

// Backend is the platform speech/audio capability. Implementations decode
// pre-rendered audio, play buffers at a gain level, and synthesize text
// with an assigned voice. All operations must honor context cancellation.
type Backend interface {
	Decode(ctx context.Context, data []byte) (AudioBuffer, error)
	Play(ctx context.Context, buf AudioBuffer, gain float64) error
	Synthesize(ctx context.Context, text string, v voice.Handle, gain float64) error
}

// Item is one utterance awaiting playback. Audio, when present, is the raw
// pre-rendered payload; otherwise Text is synthesized with Voice.
type Item struct {
	SpeakerID  string
	Text       string
	Audio      []byte
	Voice      voice.Handle
	EnqueuedAt time.Time
}

// Pipeline is a FIFO speech queue with a single in-flight renderer.
type Pipeline struct {
	backend Backend
	logger  *slog.Logger

	mu       sync.Mutex
	queue    []Item
	speaking bool
	closed   bool
	gain     float64
	cancel   context.CancelFunc

	// Closed when an active render loop drains and clears speaking; tests
	// and Close use it to observe the idle transition.
	idle chan struct{}
}

// New builds a pipeline over backend. A nil logger uses slog.Default.
func New(backend Backend, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		backend: backend,
		logger:  logger,
		gain:    DefaultGain,
	}
}

// Enqueue appends an item and starts the renderer if it is idle.
func (p *Pipeline) Enqueue(item Item) error {
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.queue = append(p.queue, item)
	if p.speaking {
		p.mu.Unlock()
		return nil
	}
	p.speaking = true
	p.idle = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	idle := p.idle
	p.mu.Unlock()

	go p.renderLoop(ctx, idle)
	return nil
}

// StopAll clears the queue and cancels any in-flight rendering. It is a
// no-op when nothing is playing and leaves the pipeline re-enqueueable.
func (p *Pipeline) StopAll() {
	p.mu.Lock()
	p.queue = nil
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close stops playback permanently. Subsequent Enqueue calls fail with
// ErrClosed; StopAll/Close remain safe to call again.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.queue = nil
	cancel := p.cancel
	idle := p.idle
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if idle != nil {
		<-idle
	}
}

// SetGain adjusts the output level for items that begin rendering after the
// call. Values are clamped to [0, 1]. Already-playing audio is unaffected.
func (p *Pipeline) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}
	p.mu.Lock()
	p.gain = gain
	p.mu.Unlock()
}

// Gain returns the current output level.
func (p *Pipeline) Gain() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gain
}

// QueueLen returns the number of items waiting (excluding the one in
// flight).
func (p *Pipeline) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Speaking reports whether an item is currently rendering.
func (p *Pipeline) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speaking
}

func (p *Pipeline) renderLoop(ctx context.Context, idle chan struct{}) {
	defer close(idle)
	for {
		p.mu.Lock()
		if len(p.queue) == 0 || p.closed {
			p.speaking = false
			p.cancel = nil
			p.idle = nil
			p.mu.Unlock()
			return
		}
		if ctx.Err() != nil {
			// A stop cancelled the old context but new items arrived since;
			// re-arm so they still render.
			var cancel context.CancelFunc
			ctx, cancel = context.WithCancel(context.Background())
			p.cancel = cancel
		}
		item := p.queue[0]
		p.queue = p.queue[1:]
		gain := p.gain
		p.mu.Unlock()

		if err := p.render(ctx, item, gain); err != nil && !errors.Is(err, context.Canceled) {
			// Rendering errors are completion: log, skip, keep going.
			p.logger.Warn("playback render failed, skipping item",
				"speaker", item.SpeakerID, "error", err)
		}
	}
}

func (p *Pipeline) render(ctx context.Context, item Item, gain float64) error {
	if len(item.Audio) > 0 {
		buf, err := p.backend.Decode(ctx, item.Audio)
		if err != nil {
			return err
		}
		return p.backend.Play(ctx, buf, gain)
	}
	if item.Text == "" {
		return nil
	}
	if item.Voice.IsNone() {
		// Empty voice pool: degrade to log-only output.
		p.logger.Info("speech (no voice available)",
			"speaker", item.SpeakerID, "text", item.Text)
		return nil
	}
	return p.backend.Synthesize(ctx, item.Text, item.Voice, gain)
}
