// Package models defines the records shared by the feed, the channel
// protocol, and the rendering adapter.
package models

import "time"

// User is a member of the network.
type User struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Handle string `json:"handle,omitempty" yaml:"handle,omitempty"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

// Media is an attachment on a post or story. Only metadata is tracked.
type Media struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// IsVideo reports whether the media is a video.
func (m Media) IsVideo() bool {
	return len(m.ContentType) > 6 && m.ContentType[:6] == "video/"
}

// Post is a feed entry.
type Post struct {
	ID        string    `json:"id"`
	Author    User      `json:"author"`
	Content   string    `json:"content"`
	Media     []Media   `json:"media,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Liked     bool      `json:"liked"`
	Comments  int       `json:"comments"`
	Shares    int       `json:"shares"`
	// Pending is true while a local post awaits remote confirmation.
	Pending bool `json:"pending,omitempty"`
}

// Comment belongs to a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    User      `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Story is an ephemeral media item shown above the feed.
type Story struct {
	ID        string    `json:"id"`
	Author    User      `json:"author"`
	Media     Media     `json:"media"`
	CreatedAt time.Time `json:"created_at"`
	Viewed    bool      `json:"viewed"`
	Pending   bool      `json:"pending,omitempty"`
}

// FindPost returns the index of the post with id, or -1.
func FindPost(posts []Post, id string) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}

// FindStory returns the index of the story with id, or -1.
func FindStory(stories []Story, id string) int {
	for i := range stories {
		if stories[i].ID == id {
			return i
		}
	}
	return -1
}

// Theme names the UI color scheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// NormalizeTheme maps anything other than dark to light.
func NormalizeTheme(theme string) string {
	if theme == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}
