package feed

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/pkg/models"
)

// Validation limits.
const (
	DefaultMaxMediaSize     int64 = 10 << 20
	DefaultMaxPostLength          = 2000
	DefaultMaxCommentLength       = 500
	DefaultMaxAttachments         = 4
)

// DefaultAllowedTypes lists the media types accepted for posts and stories.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/webm",
}

// Limits bounds user input.
type Limits struct {
	MaxMediaSize     int64
	AllowedTypes     []string
	MaxPostLength    int
	MaxCommentLength int
	MaxAttachments   int
}

// SetDefaults fills zero fields.
func (l *Limits) SetDefaults() {
	if l.MaxMediaSize <= 0 {
		l.MaxMediaSize = DefaultMaxMediaSize
	}
	if len(l.AllowedTypes) == 0 {
		l.AllowedTypes = DefaultAllowedTypes
	}
	if l.MaxPostLength <= 0 {
		l.MaxPostLength = DefaultMaxPostLength
	}
	if l.MaxCommentLength <= 0 {
		l.MaxCommentLength = DefaultMaxCommentLength
	}
	if l.MaxAttachments <= 0 {
		l.MaxAttachments = DefaultMaxAttachments
	}
}

// ValidateMedia checks one attachment against the limits.
func (l Limits) ValidateMedia(m models.Media) error {
	if m.ContentType == "" {
		return errors.Validation("media", "missing content type").
			WithDetail("name", m.Name)
	}
	if !l.allowed(m.ContentType) {
		return errors.Validation("media", fmt.Sprintf("unsupported type %s", m.ContentType)).
			WithDetail("name", m.Name).
			WithDetail("content_type", m.ContentType)
	}
	if m.Size <= 0 {
		return errors.Validation("media", "empty file").
			WithDetail("name", m.Name)
	}
	if m.Size > l.MaxMediaSize {
		return errors.Validation("media", fmt.Sprintf("file exceeds %d MiB", l.MaxMediaSize>>20)).
			WithDetail("name", m.Name).
			WithDetail("size", m.Size).
			WithDetail("limit", l.MaxMediaSize)
	}
	return nil
}

// ValidatePost checks a post draft.
func (l Limits) ValidatePost(content string, media []models.Media) error {
	text := strings.TrimSpace(content)
	if text == "" && len(media) == 0 {
		return errors.Validation("content", "write something or attach media")
	}
	if n := utf8.RuneCountInString(text); n > l.MaxPostLength {
		return errors.Validation("content", fmt.Sprintf("too long (%d/%d characters)", n, l.MaxPostLength)).
			WithDetail("length", n)
	}
	if len(media) > l.MaxAttachments {
		return errors.Validation("media", fmt.Sprintf("at most %d attachments", l.MaxAttachments)).
			WithDetail("count", len(media))
	}
	for _, m := range media {
		if err := l.ValidateMedia(m); err != nil {
			return err
		}
	}
	return nil
}

// ValidateComment checks comment text.
func (l Limits) ValidateComment(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.Validation("comment", "empty comment")
	}
	if n := utf8.RuneCountInString(text); n > l.MaxCommentLength {
		return errors.Validation("comment", fmt.Sprintf("too long (%d/%d characters)", n, l.MaxCommentLength)).
			WithDetail("length", n)
	}
	return nil
}

func (l Limits) allowed(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, t := range l.AllowedTypes {
		if t == ct {
			return true
		}
	}
	return false
}
