package app

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/store"
)

// Help lists the interactive commands understood by Exec.
const Help = `Type a line to publish it as a post, or use a command:
  /like N               toggle the like on post N
  /save N               save or unsave post N
  /comment N TEXT       comment on post N
  /share N              share post N
  /delete N             delete post N
  /story FILE           add a story (image or video file name)
  /typing USER          tell USER you are typing
  /theme [light|dark]   set or toggle the theme
  /connect              reconnect the live channel
  /feed                 redraw the feed
  /help                 show this help
  /quit                 leave`

// Exec runs one line of interactive input. Post numbers are 1-based
// positions in the rendered feed. It reports whether the session should end.
func (s *Session) Exec(line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		_, err := s.Feed.CreatePost(line, nil)
		return false, err
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		s.print(Help)
	case "like":
		id, err := s.postAt(rest)
		if err != nil {
			return false, err
		}
		_, err = s.Feed.React(id)
		return false, err
	case "save":
		id, err := s.postAt(rest)
		if err != nil {
			return false, err
		}
		_, err = s.Feed.ToggleSave(id)
		return false, err
	case "comment":
		index, text, _ := strings.Cut(rest, " ")
		id, err := s.postAt(index)
		if err != nil {
			return false, err
		}
		_, err = s.Feed.AddComment(id, text)
		return false, err
	case "share":
		id, err := s.postAt(rest)
		if err != nil {
			return false, err
		}
		return false, s.Feed.Share(id, false)
	case "delete":
		id, err := s.postAt(rest)
		if err != nil {
			return false, err
		}
		return false, s.Feed.DeletePost(id)
	case "story":
		if rest == "" {
			return false, errors.New(errors.ErrCodeInvalidInput, "usage: /story FILE")
		}
		_, err := s.Feed.CreateStory(mediaFor(rest))
		return false, err
	case "typing":
		if rest == "" {
			return false, errors.New(errors.ErrCodeInvalidInput, "usage: /typing USER")
		}
		s.Feed.StartTyping(rest)
	case "theme":
		switch rest {
		case "":
			_, err := s.Feed.ToggleTheme()
			return false, err
		case models.ThemeLight, models.ThemeDark:
			return false, s.Feed.SetTheme(rest)
		default:
			return false, errors.New(errors.ErrCodeInvalidInput, "theme must be light or dark").
				WithDetail("theme", rest)
		}
	case "connect":
		if s.Channel == nil {
			return false, errors.New(errors.ErrCodeNotConnected, "no channel URL configured")
		}
		s.Connect()
	case "feed":
		if s.Renderer != nil {
			s.Renderer.Feed(s.Feed.Posts())
		}
	default:
		return false, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown command /%s", name)).
			WithDetail("command", name)
	}
	return false, nil
}

// postAt resolves a 1-based feed position to a post id.
func (s *Session) postAt(arg string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "expected a post number").
			WithDetail("input", arg)
	}
	posts, _ := store.Value[[]models.Post](s.Store, store.KeyPosts)
	if n < 1 || n > len(posts) {
		return "", errors.RecordNotFound("post", arg)
	}
	return posts[n-1].ID, nil
}

// videoTypes covers extensions missing from minimal system mime tables.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// mediaFor describes a local file. Only metadata is tracked: unknown
// extensions get an empty type and unreadable files a zero size, and both
// fail validation.
func mediaFor(name string) models.Media {
	ext := strings.ToLower(filepath.Ext(name))
	contentType, _, _ := strings.Cut(mime.TypeByExtension(ext), ";")
	if contentType == "" {
		contentType = videoTypes[ext]
	}
	m := models.Media{Name: filepath.Base(name), ContentType: contentType}
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		m.Size = info.Size()
	}
	return m
}

func (s *Session) print(text string) {
	if s.Renderer != nil {
		s.Renderer.Println(text)
	}
}
