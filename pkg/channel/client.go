package channel

import (
	"context"
	"time"

	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/internal/loop"
	"github.com/grovetools/feed/pkg/message"
	"github.com/grovetools/feed/pkg/notify"
	"github.com/sirupsen/logrus"
)

// Defaults for Config.
const (
	DefaultPingInterval     = 30 * time.Second
	DefaultExhaustedMessage = "Connection lost. Reconnect manually to resume live updates."
)

// ConnHandler receives the events of one transport connection. Calls may
// arrive on any goroutine. OnClose is called exactly once per Open, including
// when the connection never opened.
type ConnHandler interface {
	OnOpen()
	OnMessage(data []byte)
	OnClose(err error)
}

// Conn is one transport connection.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Transport opens connections. Open must not block on the network; progress
// is reported through the handler.
type Transport interface {
	Open(ctx context.Context, url string, h ConnHandler) Conn
}

// Config configures a Client.
type Config struct {
	URL          string
	RetryBase    time.Duration
	MaxAttempts  int
	PingInterval time.Duration

	// ExhaustedMessage is shown once retries run out.
	ExhaustedMessage string
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.ExhaustedMessage == "" {
		c.ExhaustedMessage = DefaultExhaustedMessage
	}
}

// Client is a reconnecting channel client. All methods must be called from
// the scheduler's thread; transport events are posted back onto it.
type Client struct {
	cfg       Config
	sched     loop.Scheduler
	transport Transport
	handler   message.Handler
	notifier  notify.Notifier
	logger    *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	state      State
	backoff    *Backoff
	conn       Conn
	generation uint64
	heartbeat  loop.Timer
	retry      loop.Timer
	exhausted  bool
	closed     bool

	stateListeners []func(old, new State)
	retryListeners []func(attempt int, delay time.Duration)
}

// NewClient creates a disconnected client. Inbound messages are dispatched to
// handler; notifier receives the exhaustion notice.
func NewClient(cfg Config, sched loop.Scheduler, transport Transport, handler message.Handler, notifier notify.Notifier, logger *logrus.Entry) *Client {
	cfg.SetDefaults()
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:       cfg,
		sched:     sched,
		transport: transport,
		handler:   handler,
		notifier:  notifier,
		logger:    logger.WithField("url", cfg.URL),
		ctx:       ctx,
		cancel:    cancel,
		state:     StateDisconnected,
		backoff: NewBackoffWithConfig(BackoffConfig{
			Base:        cfg.RetryBase,
			MaxAttempts: cfg.MaxAttempts,
		}),
	}
}

// OnStateChange registers fn to be called after every state transition.
func (c *Client) OnStateChange(fn func(old, new State)) {
	c.stateListeners = append(c.stateListeners, fn)
}

// OnReconnectScheduled registers fn to be called when a reconnect is armed.
// attempt counts from 1.
func (c *Client) OnReconnectScheduled(fn func(attempt int, delay time.Duration)) {
	c.retryListeners = append(c.retryListeners, fn)
}

// State returns the current state.
func (c *Client) State() State {
	return c.state
}

// RetryCount returns the number of reconnects scheduled since the last
// successful open.
func (c *Client) RetryCount() int {
	return c.backoff.Attempts()
}

// Exhausted reports whether automatic retries have been used up.
func (c *Client) Exhausted() bool {
	return c.exhausted
}

// Connect starts a connection attempt. It does nothing unless the client is
// disconnected. Calling it after retries were exhausted starts a fresh cycle.
func (c *Client) Connect() {
	if c.closed || c.state != StateDisconnected {
		return
	}
	c.stopRetry()
	if c.exhausted {
		c.exhausted = false
		c.backoff.Reset()
	}
	c.open()
}

// Disconnect shuts the connection down without reconnecting.
func (c *Client) Disconnect() {
	c.stopRetry()
	switch c.state {
	case StateConnecting, StateOpen:
		c.stopHeartbeat()
		c.setState(StateClosing)
		conn := c.conn
		if conn == nil {
			c.setState(StateDisconnected)
			return
		}
		if err := conn.Close(); err != nil {
			c.logger.WithError(err).Debug("Error closing connection")
		}
	}
}

// Close disconnects and releases the client. It cannot be reused.
func (c *Client) Close() {
	c.Disconnect()
	c.closed = true
	c.cancel()
}

// Send encodes m and writes it if the connection is open. Frames are never
// queued; false means m was dropped.
func (c *Client) Send(m message.Message) bool {
	if c.state != StateOpen || c.conn == nil {
		c.logger.WithField("type", m.Kind()).Debug("Dropping message, channel not open")
		return false
	}
	data, err := message.Encode(m)
	if err != nil {
		c.logger.WithError(err).WithField("type", m.Kind()).Warn("Failed to encode message")
		return false
	}
	if err := c.conn.Send(data); err != nil {
		c.logger.WithError(err).WithField("type", m.Kind()).Warn("Failed to send message")
		return false
	}
	return true
}

func (c *Client) open() {
	c.generation++
	gen := c.generation
	c.setState(StateConnecting)
	c.logger.WithField("attempt", c.backoff.Attempts()).Debug("Opening channel")
	c.conn = c.transport.Open(c.ctx, c.cfg.URL, &connEvents{client: c, gen: gen})
}

func (c *Client) handleOpen(gen uint64) {
	if gen != c.generation || c.state != StateConnecting {
		return
	}
	c.backoff.Reset()
	c.setState(StateOpen)
	c.logger.Info("Channel open")
	c.heartbeat = c.sched.Every(c.cfg.PingInterval, func() {
		if c.state == StateOpen {
			c.Send(message.Ping{})
		}
	})
}

func (c *Client) handleMessage(gen uint64, data []byte) {
	if gen != c.generation || c.state != StateOpen {
		return
	}
	m, err := message.Decode(data)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeUnknownMessageType {
			c.logger.WithError(err).Debug("Ignoring message of unknown type")
		} else {
			c.logger.WithError(err).Warn("Ignoring malformed message")
		}
		return
	}
	if c.handler != nil {
		message.Dispatch(m, c.handler)
	}
}

func (c *Client) handleClose(gen uint64, cause error) {
	if gen != c.generation {
		return
	}
	c.conn = nil
	switch c.state {
	case StateClosing:
		c.setState(StateDisconnected)
		c.logger.Info("Channel closed")
		return
	case StateConnecting, StateOpen:
	default:
		return
	}

	c.stopHeartbeat()
	c.setState(StateDisconnected)
	if cause != nil {
		c.logger.WithError(errors.Transport(c.cfg.URL, cause)).Warn("Channel lost")
	} else {
		c.logger.Warn("Channel closed by peer")
	}
	if c.closed {
		return
	}
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	delay, ok := c.backoff.Next()
	if !ok {
		c.exhausted = true
		c.logger.WithField("attempts", c.backoff.MaxAttempts()).Error("Giving up on channel after max attempts")
		if c.notifier != nil {
			c.notifier.Show(c.cfg.ExhaustedMessage, notify.SeverityDanger, 0)
		}
		return
	}

	attempt := c.backoff.Attempts()
	c.logger.WithFields(logrus.Fields{
		"attempt": attempt,
		"delay":   delay,
	}).Info("Scheduling reconnect")
	for _, fn := range c.retryListeners {
		fn(attempt, delay)
	}
	c.retry = c.sched.AfterFunc(delay, func() {
		c.retry = nil
		if c.closed || c.state != StateDisconnected {
			return
		}
		c.open()
	})
}

func (c *Client) setState(s State) {
	if s == c.state {
		return
	}
	old := c.state
	c.state = s
	for _, fn := range c.stateListeners {
		fn(old, s)
	}
}

func (c *Client) stopHeartbeat() {
	if c.heartbeat != nil {
		c.heartbeat.Stop()
		c.heartbeat = nil
	}
}

func (c *Client) stopRetry() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

// connEvents marshals transport callbacks onto the scheduler, tagged with the
// generation of the connection that produced them.
type connEvents struct {
	client *Client
	gen    uint64
}

func (e *connEvents) OnOpen() {
	e.client.sched.Post(func() { e.client.handleOpen(e.gen) })
}

func (e *connEvents) OnMessage(data []byte) {
	e.client.sched.Post(func() { e.client.handleMessage(e.gen, data) })
}

func (e *connEvents) OnClose(err error) {
	e.client.sched.Post(func() { e.client.handleClose(e.gen, err) })
}
