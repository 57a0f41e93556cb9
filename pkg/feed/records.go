package feed

import (
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/store"
)

// Stored slices are never modified in place; listeners may hold the old value.

func (s *Service) setPosts(posts []models.Post) {
	s.store.Set(store.KeyPosts, posts)
}

func (s *Service) updatePost(id string, fn func(*models.Post)) (models.Post, bool) {
	posts := s.Posts()
	i := models.FindPost(posts, id)
	if i < 0 {
		return models.Post{}, false
	}
	next := append([]models.Post(nil), posts...)
	fn(&next[i])
	s.setPosts(next)
	return next[i], true
}

func (s *Service) removePost(id string) bool {
	posts := s.Posts()
	i := models.FindPost(posts, id)
	if i < 0 {
		return false
	}
	next := make([]models.Post, 0, len(posts)-1)
	next = append(next, posts[:i]...)
	next = append(next, posts[i+1:]...)
	s.setPosts(next)
	return true
}

func (s *Service) setStories(stories []models.Story) {
	s.store.Set(store.KeyStories, stories)
}

func (s *Service) updateStory(id string, fn func(*models.Story)) bool {
	stories := s.Stories()
	i := models.FindStory(stories, id)
	if i < 0 {
		return false
	}
	next := append([]models.Story(nil), stories...)
	fn(&next[i])
	s.setStories(next)
	return true
}

func (s *Service) removeStory(id string) bool {
	stories := s.Stories()
	i := models.FindStory(stories, id)
	if i < 0 {
		return false
	}
	next := make([]models.Story, 0, len(stories)-1)
	next = append(next, stories[:i]...)
	next = append(next, stories[i+1:]...)
	s.setStories(next)
	return true
}
