// Package app wires the feed components into a runnable session.
package app

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/grovetools/feed/config"
	"github.com/grovetools/feed/internal/demo"
	"github.com/grovetools/feed/internal/loop"
	"github.com/grovetools/feed/pkg/channel"
	"github.com/grovetools/feed/pkg/feed"
	"github.com/grovetools/feed/pkg/message"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/notify"
	"github.com/grovetools/feed/pkg/optimistic"
	"github.com/grovetools/feed/pkg/remote"
	"github.com/grovetools/feed/pkg/store"
	"github.com/grovetools/feed/render"
	"github.com/grovetools/feed/state"
	"github.com/sirupsen/logrus"
)

// ConnectionOffline is stored under store.KeyConnection when no channel URL
// is configured.
const ConnectionOffline = "offline"

// Options configures a Session. Only Scheduler is required.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config

	// Scheduler runs every component. Use a *loop.Loop in production and a
	// *loop.Manual in tests.
	Scheduler loop.Scheduler

	// Transport defaults to the websocket transport.
	Transport channel.Transport

	// Remote defaults to a simulated remote tuned by Config.Remote.
	Remote remote.Client

	// Preferences defaults to Config.Session.StateFile, or the state file
	// under the feed state directory.
	Preferences *state.File

	// WatchPreferences follows external edits of the preference file.
	WatchPreferences bool

	// Output receives rendered lines. Nil disables rendering.
	Output        io.Writer
	RenderOptions []render.Option

	// NewID generates record and notification ids.
	NewID func() string

	Logger *logrus.Entry
}

// Session owns one set of feed components. Construction and teardown are
// explicit; nothing is global. Start, Close, and every component method must
// be called from the scheduler's thread.
type Session struct {
	cfg    *config.Config
	sched  loop.Scheduler
	logger *logrus.Entry

	Store       *store.Store
	Queue       *notify.Queue
	Channel     *channel.Client
	Remote      remote.Client
	Pipeline    *optimistic.Pipeline
	Feed        *feed.Service
	Preferences *state.File
	Renderer    *render.Renderer

	watchPrefs bool
	watcher    *state.Watcher
	detach     func()
	newID      func() string

	ctx    context.Context
	cancel context.CancelFunc

	started bool
	closed  bool
}

// NewSession builds a session without starting it.
func NewSession(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Default(); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	module := func(name string) *logrus.Entry { return logger.WithField("module", name) }

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:        cfg,
		sched:      opts.Scheduler,
		logger:     module("session"),
		watchPrefs: opts.WatchPreferences,
		newID:      newID,
		ctx:        ctx,
		cancel:     cancel,
	}

	s.Store = store.New(module("store"))
	s.Queue = notify.New(s.sched,
		notify.WithTransition(cfg.Notifications.Transition.Std()),
		notify.WithIDFunc(newID),
		notify.WithLogger(module("notify")),
	)

	s.Remote = opts.Remote
	if s.Remote == nil {
		s.Remote = remote.NewSimulated(s.sched, remote.SimulatedConfig{
			Latency:     cfg.Remote.Latency.Std(),
			Jitter:      cfg.Remote.Jitter.Std(),
			SuccessRate: successRate(cfg),
		}, module("remote"))
	}
	s.Pipeline = optimistic.New(ctx, s.sched, s.Remote, s.Queue, module("optimistic"))

	s.Preferences = opts.Preferences
	if s.Preferences == nil {
		if cfg.Session.StateFile != "" {
			s.Preferences = state.Open(cfg.Session.StateFile)
		} else {
			s.Preferences = state.Default()
		}
	}

	// The channel is only built when there is somewhere to connect; the feed
	// then runs offline and frames it would send are dropped.
	var sender feed.Sender
	if cfg.Channel.URL != "" {
		transport := opts.Transport
		if transport == nil {
			transport = channel.NewWebsocketTransport(module("websocket"))
		}
		dispatcher := &channel.StateDispatcher{
			Store:           s.Store,
			Notifier:        s.Queue,
			OnNewPost:       func(p models.Post) { s.Feed.ReceivePost(p) },
			NotificationTTL: cfg.Notifications.TTL.Std(),
			Logger:          module("dispatch"),
		}
		s.Channel = channel.NewClient(channel.Config{
			URL:          cfg.Channel.URL,
			RetryBase:    cfg.Channel.RetryBase.Std(),
			MaxAttempts:  cfg.Channel.MaxAttempts,
			PingInterval: cfg.Channel.PingInterval.Std(),
		}, s.sched, transport, dispatcher, s.Queue, module("channel"))
		s.Channel.OnStateChange(func(_, next channel.State) {
			s.Store.Set(store.KeyConnection, next.String())
			if next == channel.StateOpen {
				s.Channel.Send(message.UserOnline{UserID: cfg.User.ID})
			}
		})
		sender = s.Channel
	}

	s.Feed = feed.New(feed.Options{
		Scheduler:   s.sched,
		Store:       s.Store,
		Pipeline:    s.Pipeline,
		Notifier:    s.Queue,
		Channel:     sender,
		Preferences: s.Preferences,
		Limits: feed.Limits{
			MaxMediaSize:     cfg.Media.MaxSize,
			AllowedTypes:     cfg.Media.AllowedTypes,
			MaxPostLength:    cfg.Media.MaxPostLength,
			MaxCommentLength: cfg.Media.MaxCommentLength,
		},
		TypingIdle:      cfg.Session.TypingIdle.Std(),
		NotificationTTL: cfg.Notifications.TTL.Std(),
		NewID:           newID,
		Logger:          module("feed"),
	})

	if opts.Output != nil {
		s.Renderer = render.New(opts.Output, append(opts.RenderOptions, render.WithLogger(module("render")))...)
	}

	return s, nil
}

func successRate(cfg *config.Config) float64 {
	if cfg.Remote.SuccessRate == nil {
		return remote.DefaultSuccessRate
	}
	return *cfg.Remote.SuccessRate
}

// Config returns the configuration the session was built with.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Start restores the theme, seeds the initial state, and connects the
// channel. Calling Start again is a no-op.
func (s *Session) Start() error {
	if s.started || s.closed {
		return nil
	}
	s.started = true

	if s.Renderer != nil {
		s.detach = s.Renderer.Attach(s.Store, s.Queue)
	}

	theme, err := s.Preferences.Theme()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to restore theme, using light")
	}
	s.Store.Set(store.KeyTheme, theme)

	s.Feed.SetCurrentUser(models.User{
		ID:     s.cfg.User.ID,
		Name:   s.cfg.User.Name,
		Handle: s.cfg.User.Handle,
	})
	s.seed()

	if s.watchPrefs {
		if err := s.watchPreferences(); err != nil {
			s.logger.WithError(err).Warn("Preference watcher unavailable")
		}
	}

	if s.Channel == nil {
		s.Store.Set(store.KeyConnection, ConnectionOffline)
		s.logger.Info("No channel URL configured, running offline")
		return nil
	}
	s.Store.Set(store.KeyConnection, s.Channel.State().String())
	s.Channel.Connect()
	return nil
}

func (s *Session) seed() {
	now := s.sched.Now()
	var (
		posts   []models.Post
		stories []models.Story
	)
	if s.cfg.Session.SeedDemo == nil || *s.cfg.Session.SeedDemo {
		posts = demo.Posts(now, s.newID)
		stories = demo.Stories(now, s.newID)
	}
	s.Store.Set(store.KeyStories, stories)
	s.Store.Set(store.KeySaved, []string{})
	s.Store.Set(store.KeyComments, []models.Comment{})
	s.Store.Set(store.KeyOnlineUsers, []string{})
	s.Store.Set(store.KeyTypingUsers, []string{})
	s.Store.Set(store.KeyPosts, posts)
}

// watchPreferences pushes themes written to the preference file by other
// processes into the store.
func (s *Session) watchPreferences() error {
	w, err := state.NewWatcher(s.Preferences, 0, func(theme string) {
		s.sched.Post(func() {
			if s.closed || s.Feed.Theme() == theme {
				return
			}
			s.Store.Set(store.KeyTheme, theme)
		})
	}, s.logger.WithField("module", "watcher"))
	if err != nil {
		return err
	}
	s.watcher = w
	go w.Start(s.ctx)
	return nil
}

// Connect reconnects the channel, resetting an exhausted retry budget.
func (s *Session) Connect() {
	if s.Channel != nil {
		s.Channel.Connect()
	}
}

// Close disconnects the channel, clears notifications, and stops watchers.
// The session cannot be restarted.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.Channel != nil {
		s.Channel.Close()
	}
	s.Feed.Close()
	s.Queue.Clear()
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.WithError(err).Debug("Failed to close preference watcher")
		}
	}
	if s.detach != nil {
		s.detach()
	}
	s.cancel()
	s.logger.Debug("Session closed")
}
