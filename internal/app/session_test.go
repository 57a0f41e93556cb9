package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/feed/config"
	"github.com/grovetools/feed/internal/loop"
	"github.com/grovetools/feed/pkg/channel"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/notify"
	"github.com/grovetools/feed/pkg/optimistic"
	"github.com/grovetools/feed/pkg/remote"
	"github.com/grovetools/feed/pkg/store"
	"github.com/grovetools/feed/render"
	"github.com/grovetools/feed/state"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	h      channel.ConnHandler
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

type fakeTransport struct {
	conns []*fakeConn
}

func (t *fakeTransport) Open(_ context.Context, _ string, h channel.ConnHandler) channel.Conn {
	c := &fakeConn{h: h}
	t.conns = append(t.conns, c)
	return c
}

func (t *fakeTransport) last() *fakeConn {
	return t.conns[len(t.conns)-1]
}

type sessionFixture struct {
	sched     *loop.Manual
	transport *fakeTransport
	remote    *remote.Static
	prefs     *state.File
	out       *bytes.Buffer
	session   *Session
}

func newSessionFixture(t *testing.T, mutate func(*config.Config)) *sessionFixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.Channel.URL = "ws://feed.test/ws"
	seed := false
	cfg.Session.SeedDemo = &seed
	if mutate != nil {
		mutate(cfg)
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	sched := loop.NewManual()
	logger, _ := test.NewNullLogger()
	n := 0
	f := &sessionFixture{
		sched:     sched,
		transport: &fakeTransport{},
		remote:    &remote.Static{Sched: sched, Delay: 500 * time.Millisecond},
		prefs:     state.Open(filepath.Join(t.TempDir(), "state.yml")),
		out:       &bytes.Buffer{},
	}
	s, err := NewSession(Options{
		Config:        cfg,
		Scheduler:     sched,
		Transport:     f.transport,
		Remote:        f.remote,
		Preferences:   f.prefs,
		Output:        f.out,
		RenderOptions: []render.Option{render.WithProfile(termenv.Ascii)},
		NewID:         func() string { n++; return fmt.Sprintf("id-%d", n) },
		Logger:        logrus.NewEntry(logger),
	})
	require.NoError(t, err)
	f.session = s
	t.Cleanup(s.Close)
	return f
}

func (f *sessionFixture) connection() string {
	v, _ := store.Value[string](f.session.Store, store.KeyConnection)
	return v
}

func TestSession_EndToEnd(t *testing.T) {
	f := newSessionFixture(t, nil)
	s := f.session
	require.NoError(t, s.Start())
	f.sched.RunPending()

	t.Run("theme toggle notifies with new and old value", func(t *testing.T) {
		var seen [][2]any
		sub := s.Store.Subscribe(store.KeyTheme, func(n, o any) { seen = append(seen, [2]any{n, o}) })
		defer s.Store.Unsubscribe(sub)

		theme, err := s.Feed.ToggleTheme()
		require.NoError(t, err)
		assert.Equal(t, models.ThemeDark, theme)
		assert.Equal(t, [][2]any{{"dark", "light"}}, seen)

		stored, err := f.prefs.Theme()
		require.NoError(t, err)
		assert.Equal(t, models.ThemeDark, stored)
	})

	t.Run("notification expires after ttl and transition", func(t *testing.T) {
		n := s.Queue.Show("Saved", notify.SeveritySuccess, 5*time.Second)
		assert.True(t, s.Queue.Present(n.ID))
		f.sched.Advance(5 * time.Second)
		assert.True(t, s.Queue.Present(n.ID), "still leaving")
		f.sched.Advance(notify.DefaultTransition)
		assert.False(t, s.Queue.Present(n.ID))
	})

	t.Run("reconnects back off then give up", func(t *testing.T) {
		var delays []time.Duration
		s.Channel.OnReconnectScheduled(func(_ int, d time.Duration) { delays = append(delays, d) })

		require.Len(t, f.transport.conns, 1)
		assert.Equal(t, "connecting", f.connection())
		for i := 0; i < 6; i++ {
			f.transport.last().h.OnClose(errors.New("refused"))
			f.sched.RunPending()
			if d, ok := f.sched.NextDeadline(); ok && len(delays) > i {
				f.sched.Advance(d.Sub(f.sched.Now()))
			}
		}

		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}, delays)
		assert.Len(t, f.transport.conns, 6, "no sixth reconnect")
		assert.True(t, s.Channel.Exhausted())
		assert.Equal(t, "disconnected", f.connection())

		var persistent []notify.Notification
		for _, n := range s.Queue.List() {
			if n.Persistent() {
				persistent = append(persistent, n)
			}
		}
		require.Len(t, persistent, 1)
		assert.Equal(t, notify.SeverityDanger, persistent[0].Severity)
	})

	t.Run("manual connect resumes live updates", func(t *testing.T) {
		s.Connect()
		require.Len(t, f.transport.conns, 7)
		conn := f.transport.last()
		conn.h.OnOpen()
		f.sched.RunPending()
		assert.Equal(t, "open", f.connection())
		assert.Zero(t, s.Channel.RetryCount())
		require.NotEmpty(t, conn.sent)
		assert.Equal(t, `{"type":"user_online","payload":{"userId":"me"}}`, conn.sent[0], "presence is announced on open")

		conn.h.OnMessage([]byte(`{"type":"user_online","payload":{"userId":"ada"}}`))
		f.sched.RunPending()
		assert.Equal(t, []string{"ada"}, store.Members(s.Store, store.KeyOnlineUsers))

		conn.h.OnMessage([]byte(`{"type":"new_post","payload":{"id":"remote-1","author":{"id":"ada","name":"Ada"},"content":"hi"}}`))
		f.sched.RunPending()
		_, ok := s.Feed.Post("remote-1")
		assert.True(t, ok)
	})

	t.Run("published post is broadcast", func(t *testing.T) {
		pending, err := s.Feed.CreatePost("hello", nil)
		require.NoError(t, err)
		f.sched.Advance(500 * time.Millisecond)
		assert.Equal(t, optimistic.StatusCommitted, pending.Status())

		conn := f.transport.last()
		require.NotEmpty(t, conn.sent)
		assert.True(t, strings.HasPrefix(conn.sent[len(conn.sent)-1], `{"type":"new_post"`), conn.sent)
	})

	t.Run("close tears everything down", func(t *testing.T) {
		s.Close()
		f.sched.Advance(time.Minute)
		assert.Equal(t, "disconnected", f.connection())
		assert.Zero(t, s.Queue.Len())
		assert.True(t, f.transport.last().closed)
		assert.Len(t, f.transport.conns, 7)
		assert.Zero(t, f.sched.Pending(), "no timers left armed")
	})
}

func TestSession_StartRestoresThemeAndSeeds(t *testing.T) {
	f := newSessionFixture(t, func(c *config.Config) {
		seed := true
		c.Session.SeedDemo = &seed
		c.User = config.UserConfig{ID: "me", Name: "Me"}
	})
	require.NoError(t, f.prefs.SetTheme(models.ThemeDark))

	s := f.session
	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")

	assert.Equal(t, models.ThemeDark, s.Feed.Theme())
	assert.Equal(t, models.ThemeDark, s.Renderer.Theme())
	assert.Equal(t, "me", s.Feed.CurrentUser().ID)
	assert.Len(t, s.Feed.Posts(), 4)
	assert.Len(t, s.Feed.Stories(), 2)
	assert.Len(t, f.transport.conns, 1)

	out := f.out.String()
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "Connection: connecting")
}

func TestSession_Offline(t *testing.T) {
	f := newSessionFixture(t, func(c *config.Config) { c.Channel.URL = "" })
	s := f.session
	require.Nil(t, s.Channel)
	require.NoError(t, s.Start())

	assert.Equal(t, ConnectionOffline, f.connection())
	assert.Empty(t, s.Feed.Posts())

	pending, err := s.Feed.CreatePost("offline post", nil)
	require.NoError(t, err)
	f.sched.Advance(time.Second)
	assert.Equal(t, optimistic.StatusCommitted, pending.Status())
	assert.Empty(t, f.transport.conns)

	s.Connect()
	assert.Empty(t, f.transport.conns)
}

func TestSession_FailedConfirmationRollsBack(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.remote.Err = remote.ErrNetwork
	s := f.session
	require.NoError(t, s.Start())

	pending, err := s.Feed.CreatePost("doomed", nil)
	require.NoError(t, err)
	assert.Len(t, s.Feed.Posts(), 1)

	f.sched.Advance(500 * time.Millisecond)
	assert.Equal(t, optimistic.StatusRolledBack, pending.Status())
	assert.Empty(t, s.Feed.Posts())
	assert.Contains(t, f.out.String(), "[danger] Failed to publish post. Please try again.")
}

func TestSession_CloseDropsPendingConfirmations(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.remote.Err = remote.ErrNetwork
	s := f.session
	require.NoError(t, s.Start())

	pending, err := s.Feed.CreatePost("in flight", nil)
	require.NoError(t, err)
	s.Close()
	f.out.Reset()

	f.sched.Advance(500 * time.Millisecond)
	assert.Equal(t, optimistic.StatusDropped, pending.Status())
	assert.Zero(t, s.Queue.Len())
	assert.NotContains(t, f.out.String(), "Failed to publish post")
}

func TestSession_WatchesPreferenceFile(t *testing.T) {
	sched := loop.NewManual()
	path := filepath.Join(t.TempDir(), "state.yml")
	prefs := state.Open(path)
	cfg := &config.Config{}
	cfg.SetDefaults()

	s, err := NewSession(Options{
		Config:           cfg,
		Scheduler:        sched,
		Remote:           &remote.Static{Sched: sched},
		Preferences:      prefs,
		WatchPreferences: true,
	})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Start())
	require.Equal(t, models.ThemeLight, s.Feed.Theme())

	require.NoError(t, os.WriteFile(path, []byte("theme: dark\n"), 0644))

	assert.Eventually(t, func() bool {
		sched.RunPending()
		return s.Feed.Theme() == models.ThemeDark
	}, 2*time.Second, 20*time.Millisecond)
}
