package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/debate-arena/client-go/pkg/protocol"
)

// ConnState is the transport lifecycle: connecting → open → (closed →
// connecting)*, reset to connecting on every close regardless of cause.
type ConnState string

const (
	ConnConnecting ConnState = "connecting"
	ConnOpen       ConnState = "open"
	ConnClosed     ConnState = "closed"
)

const (
	defaultReconnectDelay = 3 * time.Second
	defaultPingInterval   = 30 * time.Second
	defaultDialTimeout    = 15 * time.Second
	writeTimeout          = 5 * time.Second
)

// ConnEvent is one item on the conn's single ordered inbound channel:
// either a status transition or a decoded message, never both.
type ConnEvent struct {
	Status ConnState
	Msg    protocol.Message
}

// ConnOptions configures a Conn. URL is required.
type ConnOptions struct {
	URL            string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	Dialer         *websocket.Dialer
	Logger         *slog.Logger
}

// Conn owns the websocket transport. It reconnects indefinitely at a fixed
// interval, re-joins the known session after every open, probes liveness
// periodically, and drops (never queues) outbound messages while closed.
type Conn struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	dialer         *websocket.Dialer
	logger         *slog.Logger

	events chan ConnEvent
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	ws        *websocket.Conn
	state     ConnState
	sessionID string
	started   bool

	closeOnce sync.Once
}

// NewConn builds a connection manager. Call Start to begin connecting.
func NewConn(opts ConnOptions) *Conn {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: defaultDialTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		url:            opts.URL,
		reconnectDelay: opts.ReconnectDelay,
		pingInterval:   opts.PingInterval,
		dialer:         opts.Dialer,
		logger:         opts.Logger,
		events:         make(chan ConnEvent, 256),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
		state:          ConnConnecting,
	}
}

// Events yields status transitions and decoded inbound messages in arrival
// order. The channel closes when the conn shuts down.
func (c *Conn) Events() <-chan ConnEvent {
	return c.events
}

// State returns the current transport state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetSessionID records the session to re-join after every (re)connect. If
// the transport is already open, a join frame is sent immediately.
func (c *Conn) SetSessionID(id string) {
	c.mu.Lock()
	c.sessionID = id
	open := c.state == ConnOpen
	c.mu.Unlock()
	if open && id != "" {
		c.Send(protocol.NewJoin(id))
	}
}

// Send delivers a message when the transport is open and reports whether it
// was written. Messages sent while disconnected are dropped, not queued.
func (c *Conn) Send(v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ConnOpen || c.ws == nil {
		return false
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(v); err != nil {
		c.logger.Warn("websocket write failed", "error", err)
		return false
	}
	return true
}

// Start launches the connect/read/reconnect loop. Calling it twice is a
// no-op.
func (c *Conn) Start() {
	c.mu.Lock()
	if c.started || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()
	go c.run()
}

// Close shuts the conn down permanently and waits for the loop to exit.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.ws != nil {
			_ = c.ws.Close()
		}
		if !c.started {
			// No loop to wind down; close out directly.
			c.state = ConnClosed
			close(c.events)
			close(c.done)
		}
		c.mu.Unlock()
	})
	<-c.done
}

func (c *Conn) run() {
	defer close(c.done)
	defer close(c.events)

	for {
		if c.ctx.Err() != nil {
			return
		}
		c.transition(ConnConnecting)

		ws, err := c.dialUntilConnected()
		if err != nil {
			return
		}

		c.attach(ws)

		pingDone := make(chan struct{})
		go c.pingLoop(pingDone)
		c.readLoop(ws)
		close(pingDone)

		c.detach(ws)
		if c.ctx.Err() != nil {
			return
		}

		// One reconnection attempt per fixed interval, indefinitely; the
		// session is only abandoned by an explicit user stop.
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

// dialUntilConnected retries at the fixed interval with no attempt cap and
// no backoff growth. It only fails when the conn is shut down.
func (c *Conn) dialUntilConnected() (*websocket.Conn, error) {
	var ws *websocket.Conn
	err := retry.Do(c.ctx, retry.NewConstant(c.reconnectDelay), func(ctx context.Context) error {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.logger.Warn("websocket dial failed, will retry",
				"url", c.url, "retry_in", c.reconnectDelay, "error", err)
			return retry.RetryableError(err)
		}
		ws = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *Conn) attach(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.state = ConnOpen
	sessionID := c.sessionID
	c.mu.Unlock()

	c.emit(ConnEvent{Status: ConnOpen})

	// Resubscribe so the backend attaches this connection to the stream.
	if sessionID != "" {
		c.Send(protocol.NewJoin(sessionID))
	}
}

func (c *Conn) detach(ws *websocket.Conn) {
	_ = ws.Close()
	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
	}
	c.state = ConnClosed
	c.mu.Unlock()
	c.emit(ConnEvent{Status: ConnClosed})
}

func (c *Conn) transition(state ConnState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.emit(ConnEvent{Status: state})
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			// Malformed frames are dropped; they never close the connection.
			var decodeErr *protocol.DecodeError
			if errors.As(err, &decodeErr) {
				c.logger.Warn("dropping inbound frame", "code", decodeErr.Code, "error", decodeErr)
			} else {
				c.logger.Warn("dropping inbound frame", "error", err)
			}
			continue
		}

		// The liveness ack is consumed here and otherwise ignored.
		if _, ok := msg.(protocol.ServerPong); ok {
			continue
		}

		c.emit(ConnEvent{Msg: msg})
	}
}

func (c *Conn) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.Send(protocol.NewPing())
		}
	}
}

func (c *Conn) emit(ev ConnEvent) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}
