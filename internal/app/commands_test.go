package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/feed/config"
	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Exec(t *testing.T) {
	f := newSessionFixture(t, func(c *config.Config) {
		seed := true
		c.Session.SeedDemo = &seed
	})
	s := f.session
	require.NoError(t, s.Start())
	first := s.Feed.Posts()[0]

	run := func(line string) error {
		t.Helper()
		quit, err := s.Exec(line)
		assert.False(t, quit)
		f.sched.Advance(time.Second)
		return err
	}

	require.NoError(t, run("   "))
	assert.Len(t, s.Feed.Posts(), 4)

	require.NoError(t, run("hello from the terminal"))
	posts := s.Feed.Posts()
	require.Len(t, posts, 5)
	assert.Equal(t, "hello from the terminal", posts[0].Content)
	assert.False(t, posts[0].Pending)

	require.NoError(t, run("/like 2"))
	liked, _ := s.Feed.Post(first.ID)
	assert.True(t, liked.Liked)
	assert.Equal(t, first.Likes+1, liked.Likes)

	require.NoError(t, run("/save 2"))
	assert.True(t, s.Feed.IsSaved(first.ID))

	require.NoError(t, run("/comment 2 nice one"))
	comments := s.Feed.Comments(first.ID)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice one", comments[0].Text)

	require.NoError(t, run("/share 2"))
	shared, _ := s.Feed.Post(first.ID)
	assert.Equal(t, 1, shared.Shares)

	story := filepath.Join(t.TempDir(), "sunset.png")
	require.NoError(t, os.WriteFile(story, []byte("\x89PNG"), 0o644))
	require.NoError(t, run("/story "+story))
	stories := s.Feed.Stories()
	require.Len(t, stories, 3)
	assert.Equal(t, "image/png", stories[0].Media.ContentType)
	assert.Equal(t, "sunset.png", stories[0].Media.Name)
	assert.Equal(t, int64(4), stories[0].Media.Size)

	require.NoError(t, run("/theme dark"))
	assert.Equal(t, models.ThemeDark, s.Feed.Theme())
	require.NoError(t, run("/theme"))
	assert.Equal(t, models.ThemeLight, s.Feed.Theme())

	require.NoError(t, run("/delete 1"))
	assert.Len(t, s.Feed.Posts(), 4)

	require.NoError(t, run("/typing ada"))
	require.NoError(t, run("/connect"))
	require.NoError(t, run("/help"))
	assert.Contains(t, f.out.String(), "/quit")

	quit, err := s.Exec("/quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestSession_ExecErrors(t *testing.T) {
	f := newSessionFixture(t, func(c *config.Config) { c.Channel.URL = "" })
	s := f.session
	require.NoError(t, s.Start())

	tests := []struct {
		line string
		code errors.ErrorCode
	}{
		{"/like", errors.ErrCodeInvalidInput},
		{"/like x", errors.ErrCodeInvalidInput},
		{"/save 3", errors.ErrCodeRecordNotFound},
		{"/story", errors.ErrCodeInvalidInput},
		{"/story notes.txt", errors.ErrCodeValidationFailed},
		{"/story missing.png", errors.ErrCodeValidationFailed},
		{"/typing", errors.ErrCodeInvalidInput},
		{"/theme blue", errors.ErrCodeInvalidInput},
		{"/connect", errors.ErrCodeNotConnected},
		{"/dance", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := s.Exec(tt.line)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}
