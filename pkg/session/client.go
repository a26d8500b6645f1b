package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/debate-arena/client-go/pkg/playback"
	"github.com/debate-arena/client-go/pkg/protocol"
	"github.com/debate-arena/client-go/pkg/voice"
)

// Config wires a Client. WSURL, Voices and Pipeline are required.
type Config struct {
	WSURL          string
	Voices         *voice.Allocator
	Pipeline       *playback.Pipeline
	Logger         *slog.Logger
	ReconnectDelay time.Duration
	PingInterval   time.Duration

	// OnUpdate receives a fresh snapshot after every applied event and
	// every connection status change. Called from the dispatch goroutine.
	OnUpdate func(Snapshot)
}

// Client is the real-time debate session client. It owns the connection
// manager, the state machine, the voice allocator and the playback
// pipeline, and runs the single dispatch loop that feeds them.
type Client struct {
	id       string
	conn     *Conn
	machine  *Machine
	pipeline *playback.Pipeline
	voices   *voice.Allocator
	logger   *slog.Logger
	onUpdate func(Snapshot)

	mu        sync.Mutex
	connState ConnState

	done      chan struct{}
	closeOnce sync.Once
}

// New builds a client. Call Start to connect, then Attach once a session
// has been created.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		id:        uuid.NewString(),
		machine:   NewMachine(),
		pipeline:  cfg.Pipeline,
		voices:    cfg.Voices,
		logger:    logger,
		onUpdate:  cfg.OnUpdate,
		connState: ConnConnecting,
		done:      make(chan struct{}),
	}
	c.conn = NewConn(ConnOptions{
		URL:            cfg.WSURL,
		ReconnectDelay: cfg.ReconnectDelay,
		PingInterval:   cfg.PingInterval,
		Logger:         logger,
	})
	return c
}

// Start opens the transport and begins dispatching events.
func (c *Client) Start() {
	c.logger.Info("session client starting", "client_id", c.id, "url_set", c.conn.url != "")
	c.conn.Start()
	go c.dispatchLoop()
}

// Attach binds a freshly created session: the state machine is reset with
// the new participant set, cached voices are dropped, and the connection
// (re)joins the session's stream.
func (c *Client) Attach(info SessionInfo) {
	c.voices.Reset()
	c.voices.SetLanguage(info.Language)
	c.machine.Reset(info)
	c.conn.SetSessionID(info.SessionID)
	c.notify()
}

// MarkStopping records a user-initiated stop awaiting backend confirmation.
func (c *Client) MarkStopping() {
	c.machine.MarkStopping()
	c.notify()
}

// SetGain adjusts playback volume for subsequently rendered items.
func (c *Client) SetGain(gain float64) {
	c.pipeline.SetGain(gain)
}

// Snapshot returns the current session state merged with the connection
// status, sufficient to redraw any projection in full.
func (c *Client) Snapshot() Snapshot {
	snap := c.machine.Snapshot()
	c.mu.Lock()
	snap.ConnState = c.connState
	c.mu.Unlock()
	return snap
}

// Close tears the client down: playback is cut immediately and the
// transport is closed. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.pipeline.StopAll()
		c.conn.Close()
	})
	<-c.done
}

func (c *Client) dispatchLoop() {
	defer close(c.done)
	for ev := range c.conn.Events() {
		if ev.Status != "" {
			c.mu.Lock()
			c.connState = ev.Status
			c.mu.Unlock()
			c.notify()
			continue
		}
		c.handleMessage(ev.Msg)
	}
}

func (c *Client) handleMessage(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.ServerJoined:
		c.logger.Info("joined session stream", "session_id", m.SessionID)

	case protocol.ServerAudio:
		c.handleAudio(m)

	case protocol.SessionEvent:
		effects := c.machine.Apply(m)
		for _, speech := range effects.Speech {
			c.enqueueSpeech(speech)
		}
		if effects.StopPlayback {
			c.pipeline.StopAll()
		}
		c.notify()

	default:
		c.logger.Warn("ignoring unexpected message", "type", msg)
	}
}

func (c *Client) handleAudio(m protocol.ServerAudio) {
	raw, err := m.DecodeAudio()
	if err != nil {
		c.logger.Warn("dropping undecodable audio payload",
			"participant", m.Meta.ParticipantID, "error", err)
		return
	}
	item := playback.Item{
		SpeakerID: m.Meta.ParticipantID,
		Text:      m.Meta.Text,
		Audio:     raw,
	}
	if err := c.pipeline.Enqueue(item); err != nil {
		c.logger.Warn("audio enqueue failed", "error", err)
	}
}

func (c *Client) enqueueSpeech(s Speech) {
	handle := c.voices.Assign(s.SpeakerID, s.Ordinal)
	c.machine.SetParticipantVoice(s.SpeakerID, handle)
	item := playback.Item{
		SpeakerID: s.SpeakerID,
		Text:      s.Text,
		Audio:     s.Audio,
		Voice:     handle,
	}
	if err := c.pipeline.Enqueue(item); err != nil {
		c.logger.Warn("speech enqueue failed", "speaker", s.SpeakerID, "error", err)
	}
}

func (c *Client) notify() {
	if c.onUpdate == nil {
		return
	}
	c.onUpdate(c.Snapshot())
}
