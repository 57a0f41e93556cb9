// Package render writes the feed state to a terminal.
//
// The Renderer is a pure consumer: it observes the store and the notification
// queue and never mutates either. Colors follow the theme key, switching
// between the light and dark palettes as the theme changes.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/notify"
	"github.com/grovetools/feed/pkg/store"
	"github.com/grovetools/feed/util/sanitize"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
)

// DefaultMaxPosts bounds how many posts a feed redraw prints.
const DefaultMaxPosts = 10

// Renderer writes styled lines for store changes and notifications.
//
// Like the components it observes, a Renderer is driven from the scheduler's
// thread and is not safe for concurrent use.
type Renderer struct {
	out      io.Writer
	lg       *lipgloss.Renderer
	theme    string
	styles   Styles
	maxPosts int
	logger   *logrus.Entry

	store    *store.Store
	detached bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithProfile forces a color profile instead of detecting one from the writer.
func WithProfile(p termenv.Profile) Option {
	return func(r *Renderer) { r.lg.SetColorProfile(p) }
}

// WithMaxPosts sets how many posts a feed redraw prints.
func WithMaxPosts(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxPosts = n
		}
	}
}

// WithLogger sets the renderer logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Renderer writing to w in the light theme.
func New(w io.Writer, opts ...Option) *Renderer {
	lg := lipgloss.NewRenderer(w)
	lg.SetColorProfile(detectProfile(w))

	r := &Renderer{
		out:      w,
		lg:       lg,
		maxPosts: DefaultMaxPosts,
		logger:   logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.SetTheme(models.ThemeLight)
	return r
}

// detectProfile honors CLICOLOR_FORCE and COLORTERM=truecolor, then falls
// back to plain text unless w is a terminal.
func detectProfile(w io.Writer) termenv.Profile {
	if os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor" {
		return termenv.TrueColor
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return termenv.NewOutput(f).EnvColorProfile()
	}
	return termenv.Ascii
}

// Theme returns the active theme name.
func (r *Renderer) Theme() string {
	return r.theme
}

// SetTheme switches the palette.
func (r *Renderer) SetTheme(theme string) {
	theme = models.NormalizeTheme(theme)
	r.theme = theme
	r.styles = newStyles(r.lg, ColorsFor(theme))
	r.lg.SetHasDarkBackground(theme == models.ThemeDark)
}

// Attach starts rendering changes from s and events from q. The returned
// function stops both.
func (r *Renderer) Attach(s *store.Store, q *notify.Queue) (detach func()) {
	r.store = s
	r.detached = false
	if theme, ok := store.Value[string](s, store.KeyTheme); ok {
		r.SetTheme(theme)
	}

	cancel := s.Watch(r.handleChange)
	if q != nil {
		q.OnEvent(func(e notify.Event) {
			if !r.detached {
				r.handleEvent(e)
			}
		})
	}
	return func() {
		cancel()
		r.detached = true
	}
}

func (r *Renderer) handleChange(key string, newValue, _ any) {
	switch key {
	case store.KeyTheme:
		theme, _ := newValue.(string)
		r.SetTheme(theme)
		r.println(r.styles.Muted.Render("Theme: " + r.theme))
	case store.KeyPosts:
		posts, _ := newValue.([]models.Post)
		r.Feed(posts)
	case store.KeySaved:
		saved, _ := newValue.([]string)
		r.println(r.styles.Muted.Render(fmt.Sprintf("Saved posts: %d", len(saved))))
	case store.KeyStories:
		stories, _ := newValue.([]models.Story)
		r.println(r.Stories(stories))
	case store.KeyOnlineUsers:
		users, _ := newValue.([]string)
		r.println(r.Presence(users))
	case store.KeyTypingUsers:
		users, _ := newValue.([]string)
		if line := r.Typing(users); line != "" {
			r.println(line)
		}
	case store.KeyConnection:
		r.println(r.styles.Muted.Render(fmt.Sprintf("Connection: %v", newValue)))
	default:
		r.logger.WithField("key", key).Debug("No renderer for key")
	}
}

func (r *Renderer) handleEvent(e notify.Event) {
	if e.Kind != notify.EventShown {
		return
	}
	r.println(r.Notification(e.Notification))
}

// Feed prints the newest posts, numbered from 1.
func (r *Renderer) Feed(posts []models.Post) {
	if len(posts) == 0 {
		r.println(r.styles.Muted.Render("No posts yet."))
		return
	}
	for i, p := range posts {
		if i >= r.maxPosts {
			r.println(r.styles.Muted.Render(fmt.Sprintf("… %d more", len(posts)-i)))
			break
		}
		r.println(r.Post(i+1, p, r.isSaved(p.ID)))
	}
}

// Post formats one post as a numbered two-line block.
func (r *Renderer) Post(n int, p models.Post, saved bool) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%2d. %s", n, r.styles.Author.Render(authorName(p.Author))))
	if p.Author.Handle != "" {
		b.WriteString(" " + r.styles.Muted.Render("@"+sanitize.ForTerminal(p.Author.Handle)))
	}
	if p.Pending {
		b.WriteString(" " + r.styles.Pending.Render("(sending)"))
	}
	b.WriteString("\n    ")
	if p.Content != "" {
		b.WriteString(r.styles.Text.Render(sanitize.ForTerminal(p.Content)))
	}
	for _, m := range p.Media {
		kind := "image"
		if m.IsVideo() {
			kind = "video"
		}
		b.WriteString(" " + r.styles.Muted.Render(fmt.Sprintf("[%s %s]", kind, sanitize.ForTerminal(m.Name))))
	}

	heart := "♡"
	if p.Liked {
		heart = "♥"
	}
	stats := []string{
		r.styles.Like.Render(fmt.Sprintf("%s %d", heart, p.Likes)),
		r.styles.Muted.Render(fmt.Sprintf("%d comments", p.Comments)),
	}
	if p.Shares > 0 {
		stats = append(stats, r.styles.Muted.Render(fmt.Sprintf("%d shares", p.Shares)))
	}
	if saved {
		stats = append(stats, r.styles.Muted.Render("saved"))
	}
	b.WriteString("\n    " + strings.Join(stats, " · "))
	return b.String()
}

// Notification formats a notification line.
func (r *Renderer) Notification(n notify.Notification) string {
	style, ok := r.styles.Severity[n.Severity]
	if !ok {
		style = r.styles.Severity[notify.SeverityInfo]
	}
	return style.Render(fmt.Sprintf("[%s] %s", n.Severity, sanitize.ForTerminal(n.Message)))
}

// Presence formats the online user list.
func (r *Renderer) Presence(users []string) string {
	users = cleanNames(users)
	if len(users) == 0 {
		return r.styles.Muted.Render("Nobody else is online.")
	}
	return r.styles.Muted.Render("Online: " + strings.Join(users, ", "))
}

// Typing formats the typing indicator. It is empty when nobody is typing.
func (r *Renderer) Typing(users []string) string {
	users = cleanNames(users)
	switch len(users) {
	case 0:
		return ""
	case 1:
		return r.styles.Pending.Render(users[0] + " is typing…")
	default:
		return r.styles.Pending.Render(strings.Join(users, ", ") + " are typing…")
	}
}

// Stories formats the story strip summary.
func (r *Renderer) Stories(stories []models.Story) string {
	unviewed := 0
	for _, s := range stories {
		if !s.Viewed {
			unviewed++
		}
	}
	return r.styles.Muted.Render(fmt.Sprintf("Stories: %d (%d new)", len(stories), unviewed))
}

func (r *Renderer) isSaved(id string) bool {
	if r.store == nil {
		return false
	}
	return store.HasMember(r.store, store.KeySaved, id)
}

// Println writes a plain line.
func (r *Renderer) Println(line string) {
	r.println(line)
}

func (r *Renderer) println(line string) {
	if _, err := fmt.Fprintln(r.out, line); err != nil {
		r.logger.WithError(err).Debug("Render write failed")
	}
}

func authorName(u models.User) string {
	if name := sanitize.ForTerminal(u.Name); name != "" {
		return name
	}
	return sanitize.ForTerminal(u.ID)
}

// cleanNames sanitizes user ids for display and drops ones left empty.
func cleanNames(users []string) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		if u = sanitize.ForTerminal(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
