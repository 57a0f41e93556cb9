// Package demo holds the sample users and content used by the interactive
// session and the mock peer.
package demo

import (
	"time"

	"github.com/grovetools/feed/pkg/models"
)

// Users returns the demo community.
func Users() []models.User {
	return []models.User{
		{ID: "ada", Name: "Ada Lovelace", Handle: "ada"},
		{ID: "grace", Name: "Grace Hopper", Handle: "grace"},
		{ID: "linus", Name: "Linus Torvalds", Handle: "linus"},
		{ID: "margaret", Name: "Margaret Hamilton", Handle: "margaret"},
	}
}

// User returns the demo user with id.
func User(id string) (models.User, bool) {
	for _, u := range Users() {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

var postContent = []struct {
	author   string
	content  string
	media    []models.Media
	likes    int
	comments int
}{
	{"ada", "The engine might compose elaborate pieces of music.", nil, 12, 3},
	{"grace", "It's easier to ask forgiveness than it is to get permission.", nil, 31, 7},
	{"margaret", "Launch day photos from the lab.", []models.Media{{Name: "lab.jpg", ContentType: "image/jpeg", Size: 245_000}}, 18, 2},
	{"linus", "Talk is cheap. Show me the code.", nil, 44, 15},
}

// Posts returns demo posts, newest first, stamped relative to now.
func Posts(now time.Time, newID func() string) []models.Post {
	posts := make([]models.Post, 0, len(postContent))
	for i, c := range postContent {
		author, _ := User(c.author)
		posts = append(posts, models.Post{
			ID:        newID(),
			Author:    author,
			Content:   c.content,
			Media:     c.media,
			CreatedAt: now.Add(-time.Duration(i+1) * 17 * time.Minute),
			Likes:     c.likes,
			Comments:  c.comments,
		})
	}
	return posts
}

// Stories returns demo stories, newest first.
func Stories(now time.Time, newID func() string) []models.Story {
	stories := make([]models.Story, 0, 2)
	for i, id := range []string{"grace", "ada"} {
		author, _ := User(id)
		stories = append(stories, models.Story{
			ID:        newID(),
			Author:    author,
			Media:     models.Media{Name: id + "-story.png", ContentType: "image/png", Size: 120_000},
			CreatedAt: now.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return stories
}

// Notifications are the messages the mock peer pushes at random.
var Notifications = []struct {
	Message  string
	Severity string
}{
	{"Ada liked your post", "info"},
	{"Grace started following you", "success"},
	{"Scheduled maintenance in 10 minutes", "warning"},
	{"Linus mentioned you in a comment", "info"},
}
