package feed

import (
	"testing"

	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestLimits_ValidateMedia(t *testing.T) {
	var l Limits
	l.SetDefaults()

	tests := []struct {
		name    string
		media   models.Media
		wantErr bool
	}{
		{"jpeg", models.Media{Name: "a.jpg", ContentType: "image/jpeg", Size: 100}, false},
		{"webp", models.Media{Name: "a.webp", ContentType: "image/webp", Size: 100}, false},
		{"mp4 at the limit", models.Media{Name: "a.mp4", ContentType: "video/mp4", Size: DefaultMaxMediaSize}, false},
		{"content type parameters", models.Media{Name: "a.png", ContentType: "IMAGE/PNG; charset=binary", Size: 1}, false},
		{"over the limit", models.Media{Name: "a.mp4", ContentType: "video/mp4", Size: DefaultMaxMediaSize + 1}, true},
		{"empty file", models.Media{Name: "a.gif", ContentType: "image/gif"}, true},
		{"missing type", models.Media{Name: "a", Size: 1}, true},
		{"unsupported", models.Media{Name: "a.mov", ContentType: "video/quicktime", Size: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.ValidateMedia(tt.media)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, errors.ErrCodeValidationFailed))
		})
	}
}

func TestLimits_ValidatePost(t *testing.T) {
	l := Limits{MaxPostLength: 5, MaxAttachments: 1}
	l.SetDefaults()
	img := models.Media{Name: "a.png", ContentType: "image/png", Size: 1}

	assert.NoError(t, l.ValidatePost("hello", nil))
	assert.NoError(t, l.ValidatePost("héllo", nil), "length counts runes")
	assert.NoError(t, l.ValidatePost("", []models.Media{img}))
	assert.Error(t, l.ValidatePost("hello!", nil))
	assert.Error(t, l.ValidatePost("", nil))
	assert.Error(t, l.ValidatePost("hi", []models.Media{img, img}))
}

func TestLimits_Defaults(t *testing.T) {
	var l Limits
	l.SetDefaults()
	assert.Equal(t, int64(10<<20), l.MaxMediaSize)
	assert.Equal(t, DefaultAllowedTypes, l.AllowedTypes)
	assert.Equal(t, DefaultMaxCommentLength, l.MaxCommentLength)
}
