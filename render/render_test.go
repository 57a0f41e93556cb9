package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/grovetools/feed/internal/loop"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/notify"
	"github.com/grovetools/feed/pkg/store"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(opts ...Option) (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	opts = append([]Option{WithProfile(termenv.Ascii)}, opts...)
	return New(&buf, opts...), &buf
}

func TestRenderer_Post(t *testing.T) {
	r, _ := newTestRenderer()
	p := models.Post{
		ID:       "p1",
		Author:   models.User{ID: "u1", Name: "Ada", Handle: "ada"},
		Content:  "hello world",
		Media:    []models.Media{{Name: "clip.mp4", ContentType: "video/mp4"}},
		Likes:    3,
		Liked:    true,
		Comments: 2,
		Pending:  true,
	}

	got := r.Post(1, p, true)
	assert.Equal(t, " 1. Ada @ada (sending)\n    hello world [video clip.mp4]\n    ♥ 3 · 2 comments · saved", got)

	p.Liked, p.Pending, p.Media = false, false, nil
	p.Author = models.User{ID: "u2"}
	got = r.Post(12, p, false)
	assert.Equal(t, "12. u2\n    hello world\n    ♡ 3 · 2 comments", got)
}

func TestRenderer_StripsEscapes(t *testing.T) {
	r, _ := newTestRenderer()
	p := models.Post{
		ID:      "p1",
		Author:  models.User{ID: "u1", Name: "\x1b[2JMallory"},
		Content: "\x1b[31mred\x1b[0m\nsecond line",
	}
	assert.Equal(t, " 1. Mallory\n    red second line\n    ♡ 0 · 0 comments", r.Post(1, p, false))
	assert.Equal(t, "Online: ada", r.Presence([]string{"\x1b[1mada", "\x07"}))
}

func TestRenderer_Lines(t *testing.T) {
	r, _ := newTestRenderer()

	assert.Equal(t, "[danger] Connection lost", r.Notification(notify.Notification{Message: "Connection lost", Severity: notify.SeverityDanger}))
	assert.Equal(t, "Nobody else is online.", r.Presence(nil))
	assert.Equal(t, "Online: ada, bob", r.Presence([]string{"ada", "bob"}))
	assert.Empty(t, r.Typing(nil))
	assert.Equal(t, "ada is typing…", r.Typing([]string{"ada"}))
	assert.Equal(t, "ada, bob are typing…", r.Typing([]string{"ada", "bob"}))
	assert.Equal(t, "Stories: 2 (1 new)", r.Stories([]models.Story{{ID: "s1"}, {ID: "s2", Viewed: true}}))
}

func TestRenderer_Feed(t *testing.T) {
	r, buf := newTestRenderer(WithMaxPosts(2))
	r.Feed(nil)
	assert.Equal(t, "No posts yet.\n", buf.String())

	buf.Reset()
	r.Feed([]models.Post{{ID: "a", Content: "first"}, {ID: "b", Content: "second"}, {ID: "c"}})
	out := buf.String()
	assert.Contains(t, out, " 1. ")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "… 1 more")
	assert.NotContains(t, out, " 3. ")
}

func TestRenderer_Attach(t *testing.T) {
	sched := loop.NewManual()
	s := store.New(nil)
	q := notify.New(sched)
	s.Set(store.KeyTheme, models.ThemeDark)

	r, buf := newTestRenderer()
	detach := r.Attach(s, q)
	assert.Equal(t, models.ThemeDark, r.Theme(), "initial theme is read on attach")

	s.Set(store.KeyTheme, models.ThemeLight)
	s.Set(store.KeyOnlineUsers, []string{"ada"})
	s.Set(store.KeyTypingUsers, []string{})
	s.Set(store.KeySaved, []string{"p1"})
	s.Set(store.KeyPosts, []models.Post{{ID: "p1", Content: "saved one"}})
	s.Set(store.KeyConnection, "open")
	q.Show("Post published", notify.SeveritySuccess, 5*time.Second)
	sched.Advance(6 * time.Second)

	out := buf.String()
	assert.Equal(t, models.ThemeLight, r.Theme())
	assert.Contains(t, out, "Theme: light\n")
	assert.Contains(t, out, "Online: ada\n")
	assert.NotContains(t, out, "typing")
	assert.Contains(t, out, "Saved posts: 1\n")
	assert.Contains(t, out, "comments · saved\n")
	assert.Contains(t, out, "Connection: open\n")
	assert.Contains(t, out, "[success] Post published\n")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Post published")), "only the shown event is rendered")

	detach()
	buf.Reset()
	s.Set(store.KeyTheme, models.ThemeDark)
	q.Show("ignored", notify.SeverityInfo, 0)
	assert.Empty(t, buf.String())
	assert.Equal(t, models.ThemeLight, r.Theme())
}

func TestRenderer_NeverMutatesStore(t *testing.T) {
	s := store.New(nil)
	r, _ := newTestRenderer()
	r.Attach(s, nil)

	s.Set(store.KeyPosts, []models.Post{{ID: "p1"}})
	assert.ElementsMatch(t, []string{store.KeyPosts}, s.Keys())
}

func TestColorsFor(t *testing.T) {
	assert.Equal(t, DarkColors(), ColorsFor(models.ThemeDark))
	assert.Equal(t, LightColors(), ColorsFor(models.ThemeLight))
	assert.Equal(t, LightColors(), ColorsFor("solarized"))
	require.NotEqual(t, DarkColors(), LightColors())
}
