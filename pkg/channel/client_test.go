package channel

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/grovetools/feed/internal/loop"
	"github.com/grovetools/feed/pkg/message"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/notify"
	"github.com/grovetools/feed/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	h      ConnHandler
	sent   []string
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.sent = append(c.sent, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	if !c.closed {
		c.closed = true
		c.h.OnClose(nil)
	}
	return nil
}

func (c *fakeConn) open()              { c.h.OnOpen() }
func (c *fakeConn) fail(err error)     { c.h.OnClose(err) }
func (c *fakeConn) deliver(raw string) { c.h.OnMessage([]byte(raw)) }

type fakeTransport struct {
	urls  []string
	conns []*fakeConn
}

func (t *fakeTransport) Open(_ context.Context, url string, h ConnHandler) Conn {
	c := &fakeConn{h: h}
	t.urls = append(t.urls, url)
	t.conns = append(t.conns, c)
	return c
}

func (t *fakeTransport) last() *fakeConn {
	return t.conns[len(t.conns)-1]
}

type clientFixture struct {
	sched     *loop.Manual
	transport *fakeTransport
	queue     *notify.Queue
	client    *Client
	hook      *test.Hook
}

func newClientFixture(handler message.Handler) *clientFixture {
	sched := loop.NewManual()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f := &clientFixture{
		sched:     sched,
		transport: &fakeTransport{},
		queue:     notify.New(sched),
		hook:      hook,
	}
	f.client = NewClient(Config{URL: "ws://feed.test/socket"}, sched, f.transport, handler, f.queue, logrus.NewEntry(logger))
	return f
}

func TestClient_ConnectAndOpen(t *testing.T) {
	f := newClientFixture(nil)
	var transitions []string
	f.client.OnStateChange(func(old, new State) {
		transitions = append(transitions, old.String()+"->"+new.String())
	})

	f.client.Connect()
	assert.Equal(t, StateConnecting, f.client.State())
	require.Len(t, f.transport.conns, 1)
	assert.Equal(t, "ws://feed.test/socket", f.transport.urls[0])

	f.transport.last().open()
	f.sched.RunPending()
	assert.Equal(t, StateOpen, f.client.State())
	assert.Equal(t, []string{"disconnected->connecting", "connecting->open"}, transitions)

	// Connect while open is a no-op.
	f.client.Connect()
	assert.Len(t, f.transport.conns, 1)
}

func TestClient_ReconnectScheduleAndExhaustion(t *testing.T) {
	f := newClientFixture(nil)
	var delays []time.Duration
	var attempts []int
	f.client.OnReconnectScheduled(func(attempt int, delay time.Duration) {
		attempts = append(attempts, attempt)
		delays = append(delays, delay)
	})

	f.client.Connect()
	for i := 0; i < 6; i++ {
		require.Equal(t, StateConnecting, f.client.State(), "attempt %d", i)
		f.transport.last().fail(io.EOF)
		f.sched.RunPending()
		require.Equal(t, StateDisconnected, f.client.State())
		if i < 5 {
			require.Len(t, delays, i+1)
			f.sched.Advance(delays[i])
		}
	}

	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, delays)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, attempts)
	assert.True(t, f.client.Exhausted())
	assert.Len(t, f.transport.conns, 6)

	list := f.queue.List()
	require.Len(t, list, 1)
	assert.Equal(t, notify.SeverityDanger, list[0].Severity)
	assert.True(t, list[0].Persistent())

	// Nothing else is ever attempted on its own.
	f.sched.Advance(24 * time.Hour)
	assert.Len(t, f.transport.conns, 6)
	assert.Equal(t, StateDisconnected, f.client.State())
	assert.Len(t, f.queue.List(), 1)
}

func TestClient_ManualConnectAfterExhaustionResets(t *testing.T) {
	f := newClientFixture(nil)
	f.client.cfg.MaxAttempts = 1
	f.client.backoff = NewBackoffWithConfig(BackoffConfig{Base: time.Second, MaxAttempts: 1})

	f.client.Connect()
	f.transport.last().fail(io.EOF)
	f.sched.Advance(time.Second)
	f.transport.last().fail(io.EOF)
	f.sched.RunPending()
	require.True(t, f.client.Exhausted())

	f.client.Connect()
	assert.False(t, f.client.Exhausted())
	assert.Equal(t, 0, f.client.RetryCount())
	assert.Equal(t, StateConnecting, f.client.State())

	f.transport.last().fail(io.EOF)
	f.sched.RunPending()
	assert.Equal(t, 1, f.client.RetryCount())
	f.sched.Advance(time.Second)
	assert.Len(t, f.transport.conns, 4)
}

func TestClient_OpenResetsRetryCount(t *testing.T) {
	f := newClientFixture(nil)
	f.client.Connect()
	f.transport.last().fail(io.EOF)
	f.sched.Advance(time.Second)
	f.transport.last().fail(io.EOF)
	f.sched.Advance(2 * time.Second)
	require.Equal(t, 2, f.client.RetryCount())

	f.transport.last().open()
	f.sched.RunPending()
	assert.Equal(t, 0, f.client.RetryCount())

	// The next loss starts the schedule over.
	var delay time.Duration
	f.client.OnReconnectScheduled(func(_ int, d time.Duration) { delay = d })
	f.transport.last().fail(io.ErrUnexpectedEOF)
	f.sched.RunPending()
	assert.Equal(t, time.Second, delay)
}

func TestClient_Heartbeat(t *testing.T) {
	f := newClientFixture(nil)
	f.client.Connect()
	conn := f.transport.last()
	conn.open()
	f.sched.RunPending()

	f.sched.Advance(29 * time.Second)
	assert.Empty(t, conn.sent)
	f.sched.Advance(time.Second)
	assert.Equal(t, []string{`{"type":"ping"}`}, conn.sent)
	f.sched.Advance(60 * time.Second)
	assert.Len(t, conn.sent, 3)

	conn.fail(io.EOF)
	f.sched.RunPending()
	f.sched.Advance(5 * time.Minute)
	assert.Len(t, conn.sent, 3, "probe stops once the connection is lost")
}

func TestClient_SendOnlyWhenOpen(t *testing.T) {
	f := newClientFixture(nil)
	assert.False(t, f.client.Send(message.Ping{}))

	f.client.Connect()
	assert.False(t, f.client.Send(message.UserOnline{UserID: "u1"}))

	conn := f.transport.last()
	conn.open()
	f.sched.RunPending()
	assert.True(t, f.client.Send(message.UserOnline{UserID: "u1"}))
	assert.Equal(t, []string{`{"type":"user_online","payload":{"userId":"u1"}}`}, conn.sent)
}

func TestClient_DisconnectDoesNotReconnect(t *testing.T) {
	f := newClientFixture(nil)
	var states []State
	f.client.OnStateChange(func(_, new State) { states = append(states, new) })

	f.client.Connect()
	conn := f.transport.last()
	conn.open()
	f.sched.RunPending()

	f.client.Disconnect()
	assert.True(t, conn.closed)
	assert.Equal(t, StateClosing, f.client.State())
	f.sched.RunPending()
	assert.Equal(t, StateDisconnected, f.client.State())
	assert.Equal(t, []State{StateConnecting, StateOpen, StateClosing, StateDisconnected}, states)

	assert.Equal(t, 0, f.sched.Pending())
	f.sched.Advance(time.Minute)
	assert.Len(t, f.transport.conns, 1)
}

func TestClient_DisconnectCancelsPendingRetry(t *testing.T) {
	f := newClientFixture(nil)
	f.client.Connect()
	f.transport.last().fail(io.EOF)
	f.sched.RunPending()
	require.Equal(t, 1, f.sched.Pending())

	f.client.Disconnect()
	f.sched.Advance(time.Minute)
	assert.Len(t, f.transport.conns, 1)
}

func TestClient_IgnoresStaleConnection(t *testing.T) {
	f := newClientFixture(nil)
	f.client.Connect()
	stale := f.transport.last()
	stale.fail(io.EOF)
	f.sched.Advance(time.Second)
	require.Len(t, f.transport.conns, 2)

	stale.open()
	stale.deliver(`{"type":"ping"}`)
	stale.fail(io.EOF)
	f.sched.RunPending()
	assert.Equal(t, StateConnecting, f.client.State())
	assert.Equal(t, 1, f.client.RetryCount())
}

func TestClient_InboundDispatch(t *testing.T) {
	s := store.New(nil)
	s.Set(store.KeyCurrentUser, models.User{ID: "me", Name: "Me"})
	var received []models.Post

	var f *clientFixture
	d := &StateDispatcher{Store: s, OnNewPost: func(p models.Post) { received = append(received, p) }}
	f = newClientFixture(d)
	d.Notifier = f.queue

	f.client.Connect()
	conn := f.transport.last()

	// Frames before open are dropped.
	conn.deliver(`{"type":"user_online","payload":{"userId":"early"}}`)
	conn.open()
	f.sched.RunPending()

	conn.deliver(`{"type":"user_online","payload":{"userId":"u2"}}`)
	conn.deliver(`{"type":"user_online","payload":{"userId":"u1"}}`)
	conn.deliver(`{"type":"typing_start","payload":{"userId":"u1","targetUserId":"me"}}`)
	conn.deliver(`{"type":"typing_start","payload":{"userId":"u2","targetUserId":"someone"}}`)
	conn.deliver(`{"type":"notification","payload":{"message":"Hello","severity":"warning","ttl":1000}}`)
	conn.deliver(`{"type":"new_post","payload":{"id":"p9","content":"hi","author":{"id":"u1","name":"One"}}}`)
	conn.deliver(`{"type":"hologram","payload":{}}`)
	conn.deliver(`not json`)
	f.sched.RunPending()

	assert.Equal(t, []string{"u1", "u2"}, store.Members(s, store.KeyOnlineUsers))
	assert.Equal(t, []string{"u1"}, store.Members(s, store.KeyTypingUsers))
	require.Len(t, received, 1)
	assert.Equal(t, "p9", received[0].ID)

	list := f.queue.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Hello", list[0].Message)
	assert.Equal(t, notify.SeverityWarning, list[0].Severity)
	assert.Equal(t, time.Second, list[0].TTL)

	var debug, warn int
	for _, e := range f.hook.AllEntries() {
		switch {
		case e.Level == logrus.DebugLevel && e.Message == "Ignoring message of unknown type":
			debug++
		case e.Level == logrus.WarnLevel && e.Message == "Ignoring malformed message":
			warn++
		}
	}
	assert.Equal(t, 1, debug)
	assert.Equal(t, 1, warn)
	assert.Equal(t, StateOpen, f.client.State())
}

func TestClient_CloseStopsEverything(t *testing.T) {
	f := newClientFixture(nil)
	f.client.Connect()
	f.transport.last().open()
	f.sched.RunPending()

	f.client.Close()
	f.sched.RunPending()
	assert.Equal(t, StateDisconnected, f.client.State())

	f.client.Connect()
	assert.Len(t, f.transport.conns, 1, "closed client cannot reconnect")
	assert.Equal(t, 0, f.sched.Pending())
}
