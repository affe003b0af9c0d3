// Package transport maintains the live connection to the query event
// endpoint: it survives transient disconnects with a fixed-delay
// reconnect, queues outbound messages while disconnected, keeps the
// connection alive with a periodic ping, and republishes every decoded
// inbound frame to the event bus.
//
// Connection errors are never fatal. They surface only through Status()
// and the structured log; the client retries for as long as it is open.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/calclabs/mathstream/pkg/mathstream/event"
	"github.com/calclabs/mathstream/pkg/mathstream/observability"
	"github.com/calclabs/mathstream/pkg/mathstream/wire"
)

// State is the connection state.
type State string

// Connection states.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Default timings, matching the event endpoint's expectations.
const (
	// DefaultPingInterval is the keepalive heartbeat period.
	DefaultPingInterval = 30 * time.Second

	// DefaultReconnectDelay is the fixed delay before a reconnect
	// attempt. There is no backoff and no retry cap.
	DefaultReconnectDelay = 3 * time.Second
)

// Config configures a Client.
type Config struct {
	// URL is the websocket endpoint (ws:// or wss://).
	URL string

	// UserID identifies this client in the user_active announcement.
	// Default: "user-" plus a random suffix.
	UserID string

	// UserName is the display name sent with user_active.
	// Default: "Anonymous User".
	UserName string

	// PingInterval overrides DefaultPingInterval.
	PingInterval time.Duration

	// ReconnectDelay overrides DefaultReconnectDelay.
	ReconnectDelay time.Duration

	// Dialer opens connections. Default: DefaultDialer.
	Dialer Dialer

	// Clock schedules the reconnect and heartbeat timers.
	// Default: SystemClock.
	Clock Clock

	// Logger receives structured connection events. May be nil.
	Logger *slog.Logger

	// Metrics records transport metrics. Default: NoopMetrics.
	Metrics observability.MetricsRecorder
}

// Client owns one connection to the event endpoint plus the outbound
// queue and the reconnect/heartbeat timers. All methods are safe for
// concurrent use.
type Client struct {
	url            string
	userID         string
	userName       string
	pingInterval   time.Duration
	reconnectDelay time.Duration
	dialer         Dialer
	clock          Clock
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	bus            event.Bus

	mu             sync.Mutex
	state          State
	status         string
	conn           Conn
	queue          []wire.OutboundFrame
	reconnectTimer Timer
	pingTimer      Timer
	activeUsers    int
	shouldConnect  bool

	// gen is the connection generation. It increments whenever a
	// connection epoch ends so stale read loops and timer callbacks
	// can detect they have been superseded.
	gen int
}

// NewClient creates a client publishing decoded frames to bus.
// The client does not connect until Connect is called.
func NewClient(cfg Config, bus event.Bus) *Client {
	if cfg.UserID == "" {
		cfg.UserID = "user-" + uuid.New().String()[:9]
	}
	if cfg.UserName == "" {
		cfg.UserName = "Anonymous User"
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = DefaultDialer
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}

	return &Client{
		url:            cfg.URL,
		userID:         cfg.UserID,
		userName:       cfg.UserName,
		pingInterval:   cfg.PingInterval,
		reconnectDelay: cfg.ReconnectDelay,
		dialer:         cfg.Dialer,
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		bus:            bus,
		state:          StateDisconnected,
		status:         "Disconnected",
		shouldConnect:  true,
	}
}

// Connect dials the endpoint. It is idempotent: a no-op while a
// connection attempt is in flight or a connection is live. On success it
// announces the user, flushes the outbound queue in FIFO order, and
// starts the heartbeat.
func (c *Client) Connect() {
	c.mu.Lock()
	if !c.shouldConnect || c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.status = "Connecting..."
	gen := c.gen
	c.mu.Unlock()

	conn, err := c.dialer(context.Background(), c.url)

	c.mu.Lock()
	if c.gen != gen || !c.shouldConnect {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.state = StateDisconnected
		c.status = "Error connecting to server"
		c.mu.Unlock()
		observability.LogConnectError(c.logger, c.url, err)
		c.scheduleReconnect()
		return
	}

	c.conn = conn
	c.state = StateConnected
	c.status = "Connected"

	c.writeLocked(wire.UserActive(c.userID, c.userName))

	queued := c.queue
	c.queue = nil
	for _, msg := range queued {
		c.writeLocked(msg)
	}

	c.schedulePingLocked(gen)
	c.mu.Unlock()

	if len(queued) > 0 {
		observability.LogQueueFlush(c.logger, len(queued))
	}
	observability.LogConnected(c.logger, c.url)

	go c.readLoop(conn, gen)
}

// Send transmits a frame immediately when connected. Otherwise the frame
// joins the unbounded outbound queue, to be flushed in order on the next
// successful connect, and a connection attempt is triggered
// opportunistically. Enqueueing never fails.
func (c *Client) Send(msg wire.OutboundFrame) {
	c.mu.Lock()
	if c.state == StateConnected && c.conn != nil {
		err := c.writeLocked(msg)
		c.mu.Unlock()
		if err != nil && c.logger != nil {
			c.logger.Warn("outbound write failed",
				slog.String("type", msg.Type),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	c.queue = append(c.queue, msg)
	should := c.shouldConnect
	c.mu.Unlock()

	if should {
		go c.Connect()
	}
}

// Reconnect tears down any live connection and any pending reconnect
// timer, then dials immediately without waiting for the delay.
func (c *Client) Reconnect() {
	c.mu.Lock()
	c.cancelReconnectLocked()
	c.stopPingLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.gen++
	c.shouldConnect = true
	c.state = StateDisconnected
	c.status = "Reconnecting..."
	c.mu.Unlock()

	c.metrics.RecordReconnect(context.Background())
	c.Connect()
}

// Close releases every resource the client owns: the heartbeat timer,
// any pending reconnect timer, and the live connection. A closed client
// stops retrying; subsequent Connect calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shouldConnect = false
	c.cancelReconnectLocked()
	c.stopPingLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.gen++
	c.state = StateDisconnected
	c.status = "Disconnected"
	c.activeUsers = 0
	return nil
}

// State returns the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the human-readable connection status.
func (c *Client) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsConnected reports whether a connection is live.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// ActiveUsers returns the server-reported active user count.
func (c *Client) ActiveUsers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeUsers
}

// QueueLen returns the number of queued outbound frames.
func (c *Client) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// readLoop consumes frames until the connection fails, then hands off to
// the close path. Malformed frames are logged and dropped; everything
// that decodes is republished verbatim to the bus.
func (c *Client) readLoop(conn Conn, gen int) {
	ctx := context.Background()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}

		msg, derr := wire.Decode(data)
		if derr != nil {
			observability.LogFrameDropped(c.logger, derr)
			c.metrics.RecordFrameDropped(ctx)
			continue
		}
		c.metrics.RecordFrame(ctx, string(msg.Kind))

		if msg.Kind == wire.KindActiveUsers && msg.ActiveUsers >= 0 {
			c.mu.Lock()
			c.activeUsers = msg.ActiveUsers
			c.mu.Unlock()
			c.metrics.RecordActiveUsers(ctx, int64(msg.ActiveUsers))
		}

		if c.bus != nil {
			if perr := c.bus.Publish(ctx, msg); perr != nil && c.logger != nil {
				c.logger.Debug("bus publish failed",
					slog.String("kind", string(msg.Kind)),
					slog.String("error", perr.Error()),
				)
			}
		}
	}
}

// handleClose runs once per connection epoch when the read loop fails.
func (c *Client) handleClose(gen int, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.stopPingLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	code, reason := closeDetails(err)
	c.state = StateDisconnected
	c.status = fmt.Sprintf("Disconnected (%d)", code)
	should := c.shouldConnect
	c.mu.Unlock()

	observability.LogDisconnected(c.logger, code, reason)
	if should {
		c.scheduleReconnect()
	}
}

// scheduleReconnect arms exactly one reconnect attempt after the fixed
// delay. A second abnormal close while a timer is pending does not stack
// another attempt.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if !c.shouldConnect || c.reconnectTimer != nil {
		c.mu.Unlock()
		return
	}
	delay := c.reconnectDelay
	c.reconnectTimer = c.clock.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		if !c.shouldConnect {
			c.mu.Unlock()
			return
		}
		c.state = StateReconnecting
		c.status = "Reconnecting..."
		c.mu.Unlock()

		c.metrics.RecordReconnect(context.Background())
		c.Connect()
	})
	c.mu.Unlock()

	observability.LogReconnectScheduled(c.logger, delay)
}

func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// schedulePingLocked arms the next heartbeat. The heartbeat reschedules
// itself for as long as the same connection generation stays connected.
func (c *Client) schedulePingLocked(gen int) {
	c.pingTimer = c.clock.AfterFunc(c.pingInterval, func() {
		c.mu.Lock()
		if c.gen != gen || c.state != StateConnected || c.conn == nil {
			c.mu.Unlock()
			return
		}
		c.writeLocked(wire.Ping())
		c.schedulePingLocked(gen)
		c.mu.Unlock()
	})
}

func (c *Client) stopPingLocked() {
	if c.pingTimer != nil {
		c.pingTimer.Stop()
		c.pingTimer = nil
	}
}

// writeLocked marshals and transmits one frame. Caller holds c.mu and
// has checked c.conn.
func (c *Client) writeLocked(msg wire.OutboundFrame) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// closeDetails extracts a close code and reason from a read error.
func closeDetails(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}
