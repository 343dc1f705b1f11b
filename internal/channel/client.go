// Package channel maintains the persistent websocket connection to the playground backend. It encodes
// outbound events into {event, data} envelopes, decodes inbound envelopes into typed events, and reconnects
// unconditionally whenever the connection drops.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// State is the readiness of the underlying connection.
type State int32

const (
	// StateConnecting means no connection is open and one is being (re)established.
	StateConnecting State = iota
	// StateOpen means a connection is open and Send delivers.
	StateOpen
	// StateClosed means Run has returned.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrNotOpen is returned by Send when there is no open connection. The event is dropped, not queued.
var ErrNotOpen = errors.New("channel is not open")

const (
	outboxSize = 64
	eventsSize = 256

	defaultReconnectInterval = time.Second
	errLoggerKey             = "err"
)

// Client owns one logical connection to the backend event channel for the lifetime of Run.
type Client struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger

	reconnectInterval time.Duration
	onOpen            func()

	state  atomic.Int32
	last   atomic.Pointer[models.Event]
	events chan models.Event

	mu     sync.Mutex
	outbox chan []byte
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithReconnectInterval sets the minimum time between two connection attempts.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectInterval = d
		}
	}
}

// WithOnOpen registers fn to run every time a connection opens, before any inbound event of that connection
// is delivered. The client does not remember subscriptions, so fn is where the consumer re-issues them.
func WithOnOpen(fn func()) Option {
	return func(c *Client) {
		c.onOpen = fn
	}
}

// New creates a Client for the websocket endpoint at url. Nothing is dialed until Run is called.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger:            slog.Default(),
		reconnectInterval: defaultReconnectInterval,
		events:            make(chan models.Event, eventsSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("module", "channel"))
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Events returns the stream of every decoded inbound event, in arrival order. The stream is closed when Run
// returns.
func (c *Client) Events() <-chan models.Event {
	return c.events
}

// LastReceived returns the most recently received event. It is a point sample: callers that do not watch
// continuously can miss intermediate events, use Events for that.
func (c *Client) LastReceived() (models.Event, bool) {
	ev := c.last.Load()
	if ev == nil {
		return nil, false
	}
	return *ev, true
}

// Send encodes ev and enqueues it on the open connection. It never waits on the network. If no connection
// is open it returns ErrNotOpen and the event is dropped.
func (c *Client) Send(ev models.Event) error {
	b, err := models.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.outbox == nil {
		return ErrNotOpen
	}

	select {
	case c.outbox <- b:
		return nil
	default:
		return fmt.Errorf("outbox full, dropping %s", ev.Name())
	}
}

// Run connects to the backend and keeps reconnecting after every disconnect until ctx is done. Attempts are
// paced to one per reconnect interval. It always returns nil once ctx is done.
func (c *Client) Run(ctx context.Context) error {
	defer func() {
		c.state.Store(int32(StateClosed))
		close(c.events)
	}()

	limiter := rate.NewLimiter(rate.Every(c.reconnectInterval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		c.state.Store(int32(StateConnecting))
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("Failed to connect to channel",
				slog.String("url", c.url),
				slog.String(errLoggerKey, err.Error()))
			continue
		}

		c.logger.Info("Channel connected", slog.String("url", c.url))
		err = c.serve(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("Channel disconnected, reconnecting", slog.String(errLoggerKey, fmt.Sprint(err)))
	}
}

// serve pumps one connection until it fails or ctx is done. The writer goroutine and the closer goroutine
// have both exited when serve returns.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	outbox := make(chan []byte, outboxSize)
	c.mu.Lock()
	c.outbox = outbox
	c.mu.Unlock()
	c.state.Store(int32(StateOpen))

	defer func() {
		c.mu.Lock()
		c.outbox = nil
		c.mu.Unlock()
		c.state.Store(int32(StateConnecting))
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(250*time.Millisecond))
		_ = conn.Close()
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-outbox:
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					c.logger.Warn("Failed to write to channel", slog.String(errLoggerKey, err.Error()))
					cancel()
					return
				}
			}
		}
	}()

	if c.onOpen != nil {
		c.onOpen()
	}

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := models.DecodeEvent(b)
		if err != nil {
			c.logger.Warn("Dropping undecodable channel message",
				slog.String("message", string(b)),
				slog.String(errLoggerKey, err.Error()))
			continue
		}
		c.last.Store(&ev)

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
