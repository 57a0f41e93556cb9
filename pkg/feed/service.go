package feed

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/internal/loop"
	"github.com/grovetools/feed/pkg/message"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/notify"
	"github.com/grovetools/feed/pkg/optimistic"
	"github.com/grovetools/feed/pkg/remote"
	"github.com/grovetools/feed/pkg/store"
	"github.com/sirupsen/logrus"
)

// DefaultTypingIdle is how long after the last keystroke typing_stop is sent.
const DefaultTypingIdle = 3 * time.Second

// Sender delivers frames to peers. It reports false when the frame was
// dropped.
type Sender interface {
	Send(m message.Message) bool
}

// ThemeSaver persists the theme preference.
type ThemeSaver interface {
	SetTheme(theme string) error
}

// Options configures a Service.
type Options struct {
	Scheduler   loop.Scheduler
	Store       *store.Store
	Pipeline    *optimistic.Pipeline
	Notifier    notify.Notifier
	Channel     Sender
	Preferences ThemeSaver

	Limits          Limits
	TypingIdle      time.Duration
	NotificationTTL time.Duration

	// NewID generates record ids. Defaults to uuid.NewString.
	NewID  func() string
	Logger *logrus.Entry
}

// Service runs feed operations.
type Service struct {
	sched    loop.Scheduler
	store    *store.Store
	pipeline *optimistic.Pipeline
	notifier notify.Notifier
	channel  Sender
	prefs    ThemeSaver
	limits   Limits
	idle     time.Duration
	ttl      time.Duration
	newID    func() string
	logger   *logrus.Entry

	typing map[string]loop.Timer
	likes  *toggleLedger
	saves  *toggleLedger
}

// New creates a Service.
func New(opts Options) *Service {
	opts.Limits.SetDefaults()
	if opts.TypingIdle <= 0 {
		opts.TypingIdle = DefaultTypingIdle
	}
	if opts.NotificationTTL <= 0 {
		opts.NotificationTTL = notify.DefaultTTL
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		sched:    opts.Scheduler,
		store:    opts.Store,
		pipeline: opts.Pipeline,
		notifier: opts.Notifier,
		channel:  opts.Channel,
		prefs:    opts.Preferences,
		limits:   opts.Limits,
		idle:     opts.TypingIdle,
		ttl:      opts.NotificationTTL,
		newID:    opts.NewID,
		logger:   opts.Logger,
		typing:   make(map[string]loop.Timer),
		likes:    newToggleLedger(),
		saves:    newToggleLedger(),
	}
}

// Limits returns the validation limits in effect.
func (s *Service) Limits() Limits {
	return s.limits
}

// CurrentUser returns the signed-in user.
func (s *Service) CurrentUser() models.User {
	u, _ := store.Value[models.User](s.store, store.KeyCurrentUser)
	return u
}

// SetCurrentUser replaces the signed-in user.
func (s *Service) SetCurrentUser(u models.User) {
	s.store.Set(store.KeyCurrentUser, u)
}

// Posts returns the feed, newest first.
func (s *Service) Posts() []models.Post {
	posts, _ := store.Value[[]models.Post](s.store, store.KeyPosts)
	return posts
}

// Post returns the post with id.
func (s *Service) Post(id string) (models.Post, bool) {
	posts := s.Posts()
	if i := models.FindPost(posts, id); i >= 0 {
		return posts[i], true
	}
	return models.Post{}, false
}

// Stories returns the stories, newest first.
func (s *Service) Stories() []models.Story {
	stories, _ := store.Value[[]models.Story](s.store, store.KeyStories)
	return stories
}

// Comments returns the comments on postID in the order they were added.
func (s *Service) Comments(postID string) []models.Comment {
	all, _ := store.Value[[]models.Comment](s.store, store.KeyComments)
	var out []models.Comment
	for _, c := range all {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out
}

// Saved returns the ids of saved posts.
func (s *Service) Saved() []string {
	return store.Members(s.store, store.KeySaved)
}

// IsSaved reports whether postID is saved.
func (s *Service) IsSaved(postID string) bool {
	return store.HasMember(s.store, store.KeySaved, postID)
}

// CreatePost publishes a post. The post appears at the top of the feed
// immediately and is announced to peers once the remote confirms it.
func (s *Service) CreatePost(content string, media []models.Media) (*optimistic.Pending, error) {
	if err := s.limits.ValidatePost(content, media); err != nil {
		s.reject(err)
		return nil, err
	}

	post := models.Post{
		ID:        s.newID(),
		Author:    s.CurrentUser(),
		Content:   strings.TrimSpace(content),
		Media:     append([]models.Media(nil), media...),
		CreatedAt: s.sched.Now(),
		Pending:   true,
	}
	log := s.logger.WithField("post", post.ID)

	return s.pipeline.Run(optimistic.Mutation{
		Request: remote.Request{
			Endpoint: remote.EndpointCreatePost,
			RecordID: post.ID,
			Payload:  post,
		},
		Apply: func() func() {
			s.setPosts(append([]models.Post{post}, s.Posts()...))
			return func() { s.removePost(post.ID) }
		},
		FailureMessage: "Failed to publish post. Please try again.",
		OnCommit: func(remote.Ack) {
			published, ok := s.updatePost(post.ID, func(p *models.Post) { p.Pending = false })
			if !ok {
				log.Debug("Post deleted before confirmation, not announcing")
				return
			}
			s.send(message.NewPost{Post: published})
			s.show("Post published", notify.SeveritySuccess)
		},
	}), nil
}

// DeletePost removes a post locally.
func (s *Service) DeletePost(id string) error {
	if !s.removePost(id) {
		return errors.RecordNotFound("post", id)
	}
	s.logger.WithField("post", id).Debug("Post deleted")
	return nil
}

// React toggles the current user's like on a post. Overlapping reactions to
// the same post settle on the last one the remote accepted.
func (s *Service) React(postID string) (*optimistic.Pending, error) {
	post, ok := s.Post(postID)
	if !ok {
		return nil, errors.RecordNotFound("post", postID)
	}
	target := !post.Liked
	var seq uint64
	return s.pipeline.Run(optimistic.Mutation{
		Request: remote.Request{
			Endpoint: remote.EndpointReactToPost,
			RecordID: postID,
			Payload:  map[string]any{"liked": target},
		},
		Apply: func() func() {
			seq = s.likes.begin(postID, post.Liked, target)
			s.updatePost(postID, func(p *models.Post) { setLiked(p, target) })
			return func() {
				if liked, ok := s.likes.rollback(postID, seq); ok {
					s.updatePost(postID, func(p *models.Post) { setLiked(p, liked) })
				}
			}
		},
		FailureMessage: "Failed to update reaction.",
		OnCommit:       func(remote.Ack) { s.likes.commit(postID, seq) },
	}), nil
}

func setLiked(p *models.Post, liked bool) {
	if p.Liked == liked {
		return
	}
	p.Liked = liked
	if liked {
		p.Likes++
	} else if p.Likes > 0 {
		p.Likes--
	}
}

// ToggleSave adds or removes a post from the saved set. Overlapping toggles
// of the same post settle on the last one the remote accepted.
func (s *Service) ToggleSave(postID string) (*optimistic.Pending, error) {
	if _, ok := s.Post(postID); !ok {
		return nil, errors.RecordNotFound("post", postID)
	}
	wasSaved := s.IsSaved(postID)
	confirmation := "Post saved"
	if wasSaved {
		confirmation = "Removed from saved"
	}

	var seq uint64
	return s.pipeline.Run(optimistic.Mutation{
		Request: remote.Request{
			Endpoint: remote.EndpointSavePost,
			RecordID: postID,
			Payload:  map[string]any{"saved": !wasSaved},
		},
		Apply: func() func() {
			seq = s.saves.begin(postID, wasSaved, !wasSaved)
			s.setSaved(postID, !wasSaved)
			return func() {
				if saved, ok := s.saves.rollback(postID, seq); ok {
					s.setSaved(postID, saved)
				}
			}
		},
		FailureMessage: "Failed to update saved posts.",
		OnCommit: func(remote.Ack) {
			s.saves.commit(postID, seq)
			s.show(confirmation, notify.SeveritySuccess)
		},
	}), nil
}

func (s *Service) setSaved(postID string, saved bool) {
	if saved {
		store.AddMember(s.store, store.KeySaved, postID)
	} else {
		store.RemoveMember(s.store, store.KeySaved, postID)
	}
}

// AddComment attaches a comment to a post. Comments are local only.
func (s *Service) AddComment(postID, text string) (models.Comment, error) {
	if err := s.limits.ValidateComment(text); err != nil {
		s.reject(err)
		return models.Comment{}, err
	}
	if _, ok := s.Post(postID); !ok {
		return models.Comment{}, errors.RecordNotFound("post", postID)
	}

	c := models.Comment{
		ID:        s.newID(),
		PostID:    postID,
		Author:    s.CurrentUser(),
		Text:      strings.TrimSpace(text),
		CreatedAt: s.sched.Now(),
	}
	all, _ := store.Value[[]models.Comment](s.store, store.KeyComments)
	next := make([]models.Comment, 0, len(all)+1)
	next = append(next, all...)
	s.store.Set(store.KeyComments, append(next, c))
	s.updatePost(postID, func(p *models.Post) { p.Comments++ })
	return c, nil
}

// CreateStory publishes a story.
func (s *Service) CreateStory(media models.Media) (*optimistic.Pending, error) {
	if err := s.limits.ValidateMedia(media); err != nil {
		s.reject(err)
		return nil, err
	}

	story := models.Story{
		ID:        s.newID(),
		Author:    s.CurrentUser(),
		Media:     media,
		CreatedAt: s.sched.Now(),
		Pending:   true,
	}
	return s.pipeline.Run(optimistic.Mutation{
		Request: remote.Request{
			Endpoint: remote.EndpointCreateStory,
			RecordID: story.ID,
			Payload:  story,
		},
		Apply: func() func() {
			s.setStories(append([]models.Story{story}, s.Stories()...))
			return func() { s.removeStory(story.ID) }
		},
		FailureMessage: "Failed to add story.",
		OnCommit: func(remote.Ack) {
			if s.updateStory(story.ID, func(st *models.Story) { st.Pending = false }) {
				s.show("Story added", notify.SeveritySuccess)
			}
		},
	}), nil
}

// ViewStory marks a story as seen.
func (s *Service) ViewStory(id string) error {
	if !s.updateStory(id, func(st *models.Story) { st.Viewed = true }) {
		return errors.RecordNotFound("story", id)
	}
	return nil
}

// ReceivePost inserts a post announced by a peer. Posts already in the feed
// and posts by the current user are ignored.
func (s *Service) ReceivePost(post models.Post) bool {
	log := s.logger.WithField("post", post.ID)
	if post.ID == "" {
		return false
	}
	if _, exists := s.Post(post.ID); exists {
		log.Debug("Ignoring duplicate post")
		return false
	}
	if me := s.CurrentUser(); me.ID != "" && post.Author.ID == me.ID {
		log.Debug("Ignoring echo of own post")
		return false
	}
	post.Pending = false
	s.setPosts(append([]models.Post{post}, s.Posts()...))
	log.Debug("Received post")
	return true
}

// StartTyping records a keystroke toward target. The first keystroke sends
// typing_start; typing_stop follows once no keystroke arrives for the idle
// window.
func (s *Service) StartTyping(target string) {
	if target == "" {
		return
	}
	if t, ok := s.typing[target]; ok {
		t.Stop()
	} else {
		s.send(message.TypingStart{UserID: s.CurrentUser().ID, TargetUserID: target})
	}
	s.typing[target] = s.sched.AfterFunc(s.idle, func() { s.StopTyping(target) })
}

// StopTyping sends typing_stop to target if typing was in progress.
func (s *Service) StopTyping(target string) {
	t, ok := s.typing[target]
	if !ok {
		return
	}
	t.Stop()
	delete(s.typing, target)
	s.send(message.TypingStop{UserID: s.CurrentUser().ID, TargetUserID: target})
}

// Theme returns the active theme.
func (s *Service) Theme() string {
	theme, _ := store.Value[string](s.store, store.KeyTheme)
	return models.NormalizeTheme(theme)
}

// SetTheme applies and persists a theme. The store is updated even when
// persisting fails.
func (s *Service) SetTheme(theme string) error {
	theme = models.NormalizeTheme(theme)
	s.store.Set(store.KeyTheme, theme)
	if s.prefs == nil {
		return nil
	}
	if err := s.prefs.SetTheme(theme); err != nil {
		s.logger.WithError(err).Warn("Failed to persist theme")
		return errors.Wrap(err, errors.ErrCodeStateUnavailable, "failed to persist theme")
	}
	return nil
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *Service) ToggleTheme() (string, error) {
	next := models.ThemeDark
	if s.Theme() == models.ThemeDark {
		next = models.ThemeLight
	}
	return next, s.SetTheme(next)
}

// Share records a share of postID. A share the user canceled is ignored.
func (s *Service) Share(postID string, canceled bool) error {
	if canceled {
		s.logger.WithField("post", postID).Debug("Share canceled")
		return nil
	}
	if _, ok := s.updatePost(postID, func(p *models.Post) { p.Shares++ }); !ok {
		return errors.RecordNotFound("post", postID)
	}
	s.show("Post shared", notify.SeverityInfo)
	return nil
}

// Close stops pending typing timers without notifying peers.
func (s *Service) Close() {
	for target, t := range s.typing {
		t.Stop()
		delete(s.typing, target)
	}
}

func (s *Service) reject(err error) {
	msg := err.Error()
	if fe, ok := errors.As(err); ok {
		msg = fe.Message
	}
	s.logger.WithError(err).Debug("Rejected input")
	if s.notifier != nil {
		s.notifier.Show(msg, notify.SeverityDanger, s.ttl)
	}
}

func (s *Service) show(msg string, sev notify.Severity) {
	if s.notifier != nil {
		s.notifier.Show(msg, sev, s.ttl)
	}
}

func (s *Service) send(m message.Message) {
	if s.channel == nil {
		return
	}
	if !s.channel.Send(m) {
		s.logger.WithField("type", m.Kind()).Debug("Channel not open, frame dropped")
	}
}
