// Package mockpeer is a websocket hub that stands in for the feed's live
// backend during demos. It relays frames between connected clients and
// simulates a community of demo users coming and going.
package mockpeer

import (
	"context"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/feed/internal/demo"
	"github.com/grovetools/feed/pkg/message"
	"github.com/grovetools/feed/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPresenceInterval is how often a demo user joins or leaves.
	DefaultPresenceInterval = 8 * time.Second
	// DefaultNotificationInterval is how often a demo notification is pushed.
	DefaultNotificationInterval = 20 * time.Second

	writeWait      = 10 * time.Second
	sendBufferSize = 32
	maxMessageSize = 1 << 20
)

// Config tunes the simulated community.
type Config struct {
	// Users are the demo users. Defaults to demo.Users().
	Users []models.User

	// PresenceInterval and NotificationInterval of zero use the defaults;
	// negative values disable the corresponding simulation.
	PresenceInterval     time.Duration
	NotificationInterval time.Duration

	// Rand overrides the random source, for deterministic runs.
	Rand *rand.Rand
}

// Hub fans frames out to every connected client.
type Hub struct {
	cfg      Config
	logger   *logrus.Entry
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	online  map[string]bool
	rng     *rand.Rand
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewHub creates a hub. Half of the demo users start online.
func NewHub(cfg Config, logger *logrus.Entry) *Hub {
	if len(cfg.Users) == 0 {
		cfg.Users = demo.Users()
	}
	if cfg.PresenceInterval == 0 {
		cfg.PresenceInterval = DefaultPresenceInterval
	}
	if cfg.NotificationInterval == 0 {
		cfg.NotificationInterval = DefaultNotificationInterval
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	h := &Hub{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The mock peer is a local demo backend; any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		online:  make(map[string]bool),
		rng:     rng,
	}
	for i, u := range cfg.Users {
		if i%2 == 0 {
			h.online[u.ID] = true
		}
	}
	return h
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register(c)
	go c.writePump()
	c.readPump()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Online returns the ids of online users, demo and connected, sorted.
func (h *Hub) Online() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.online))
	for id, on := range h.online {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Run drives the presence and notification simulations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	presence := tick(h.cfg.PresenceInterval)
	notifications := tick(h.cfg.NotificationInterval)
	defer presence.Stop()
	defer notifications.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-presence.C:
			h.TogglePresence()
		case <-notifications.C:
			h.PushNotification()
		}
	}
}

// tick returns a ticker; non-positive intervals yield one that never fires.
func tick(d time.Duration) *time.Ticker {
	if d > 0 {
		return time.NewTicker(d)
	}
	t := time.NewTicker(time.Hour)
	t.Stop()
	return t
}

// TogglePresence flips a random demo user online or offline and announces it.
func (h *Hub) TogglePresence() {
	h.mu.Lock()
	u := h.cfg.Users[h.rng.Intn(len(h.cfg.Users))]
	on := !h.online[u.ID]
	h.online[u.ID] = on
	h.mu.Unlock()

	var m message.Message = message.UserOffline{UserID: u.ID}
	if on {
		m = message.UserOnline{UserID: u.ID}
	}
	h.logger.WithFields(logrus.Fields{"user": u.ID, "online": on}).Debug("Presence changed")
	h.broadcast(m, nil)
}

// PushNotification sends a random demo notification to every client.
func (h *Hub) PushNotification() {
	h.mu.Lock()
	n := demo.Notifications[h.rng.Intn(len(demo.Notifications))]
	h.mu.Unlock()
	h.broadcast(message.Notification{Message: n.Message, Severity: n.Severity}, nil)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	var online []string
	for id, on := range h.online {
		if on {
			online = append(online, id)
		}
	}
	h.mu.Unlock()

	sort.Strings(online)
	for _, id := range online {
		c.enqueue(message.UserOnline{UserID: id})
	}
	h.logger.WithField("clients", h.Clients()).Info("Client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	userID := c.userID
	if userID != "" {
		delete(h.online, userID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	c.close()
	if userID != "" {
		h.broadcast(message.UserOffline{UserID: userID}, c)
	}
	h.logger.WithField("clients", h.Clients()).Info("Client disconnected")
}

// broadcast sends m to every client except skip.
func (h *Hub) broadcast(m message.Message, skip *client) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c != skip {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.enqueue(m)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()
	for _, c := range targets {
		c.close()
	}
}

func (c *client) enqueue(m message.Message) {
	data, err := message.Encode(m)
	if err != nil {
		c.hub.logger.WithError(err).Warn("Failed to encode frame")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("Client send buffer full, dropping frame")
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		m, err := message.Decode(data)
		if err != nil {
			c.hub.logger.WithError(err).Debug("Ignoring frame")
			continue
		}
		message.Dispatch(m, &relay{c: c})
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closing"))
}

// relay applies a client's frame to the hub.
type relay struct {
	c *client
}

var _ message.Handler = (*relay)(nil)

func (r *relay) HandleNewPost(m message.NewPost) { r.c.hub.broadcast(m, r.c) }

// HandleUserOnline binds the connection to a user id so it can be announced
// offline when the connection drops.
func (r *relay) HandleUserOnline(m message.UserOnline) {
	h := r.c.hub
	h.mu.Lock()
	r.c.userID = m.UserID
	h.online[m.UserID] = true
	h.mu.Unlock()
	h.broadcast(m, r.c)
}

func (r *relay) HandleUserOffline(m message.UserOffline) {
	h := r.c.hub
	h.mu.Lock()
	delete(h.online, m.UserID)
	h.mu.Unlock()
	h.broadcast(m, r.c)
}

func (r *relay) HandleTypingStart(m message.TypingStart) { r.c.hub.broadcast(m, r.c) }
func (r *relay) HandleTypingStop(m message.TypingStop)   { r.c.hub.broadcast(m, r.c) }
func (r *relay) HandleNotification(m message.Notification) {
	r.c.hub.broadcast(m, r.c)
}
func (r *relay) HandlePing(message.Ping) {}
