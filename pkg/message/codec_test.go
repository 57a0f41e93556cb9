package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	kinds []Kind
	last  Message
}

func (r *recorder) record(m Message) {
	r.kinds = append(r.kinds, m.Kind())
	r.last = m
}

func (r *recorder) HandleNewPost(m NewPost)           { r.record(m) }
func (r *recorder) HandleUserOnline(m UserOnline)     { r.record(m) }
func (r *recorder) HandleUserOffline(m UserOffline)   { r.record(m) }
func (r *recorder) HandleTypingStart(m TypingStart)   { r.record(m) }
func (r *recorder) HandleTypingStop(m TypingStop)     { r.record(m) }
func (r *recorder) HandleNotification(m Notification) { r.record(m) }
func (r *recorder) HandlePing(m Ping)                 { r.record(m) }

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Message
	}{
		{
			name:  "user online",
			frame: `{"type":"user_online","payload":{"userId":"u2"}}`,
			want:  UserOnline{UserID: "u2"},
		},
		{
			name:  "user offline",
			frame: `{"type":"user_offline","payload":{"userId":"u2"}}`,
			want:  UserOffline{UserID: "u2"},
		},
		{
			name:  "typing start",
			frame: `{"type":"typing_start","payload":{"userId":"u2","targetUserId":"u1"}}`,
			want:  TypingStart{UserID: "u2", TargetUserID: "u1"},
		},
		{
			name:  "typing stop",
			frame: `{"type":"typing_stop","payload":{"userId":"u2","targetUserId":"u1"}}`,
			want:  TypingStop{UserID: "u2", TargetUserID: "u1"},
		},
		{
			name:  "notification",
			frame: `{"type":"notification","payload":{"message":"Sarah liked your post","severity":"info","ttl":3000}}`,
			want:  Notification{Message: "Sarah liked your post", Severity: "info", TTLMillis: 3000},
		},
		{
			name:  "ping without payload",
			frame: `{"type":"ping"}`,
			want:  Ping{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_NewPost(t *testing.T) {
	frame := `{"type":"new_post","payload":{"id":"p9","author":{"id":"u2","name":"Sarah"},"content":"hi","likes":3,"created_at":"2024-01-01T00:00:00Z"}}`

	got, err := Decode([]byte(frame))
	require.NoError(t, err)

	post, ok := got.(NewPost)
	require.True(t, ok)
	assert.Equal(t, "p9", post.Post.ID)
	assert.Equal(t, "Sarah", post.Post.Author.Name)
	assert.Equal(t, 3, post.Post.Likes)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		code  errors.ErrorCode
	}{
		{"unknown type", `{"type":"presence_sync","payload":{}}`, errors.ErrCodeUnknownMessageType},
		{"not json", `not json`, errors.ErrCodeMalformedMessage},
		{"missing type", `{"payload":{}}`, errors.ErrCodeMalformedMessage},
		{"missing payload", `{"type":"user_online"}`, errors.ErrCodeMalformedMessage},
		{"null payload", `{"type":"user_online","payload":null}`, errors.ErrCodeMalformedMessage},
		{"missing user", `{"type":"typing_start","payload":{"targetUserId":"u1"}}`, errors.ErrCodeMalformedMessage},
		{"wrong payload shape", `{"type":"user_offline","payload":"u2"}`, errors.ErrCodeMalformedMessage},
		{"post without id", `{"type":"new_post","payload":{"content":"x"}}`, errors.ErrCodeMalformedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			assert.Nil(t, got)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Run("ping has no payload", func(t *testing.T) {
		data, err := Encode(Ping{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"ping"}`, string(data))
	})

	t.Run("typing", func(t *testing.T) {
		data, err := Encode(TypingStart{UserID: "u1", TargetUserID: "u2"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"typing_start","payload":{"userId":"u1","targetUserId":"u2"}}`, string(data))
	})

	t.Run("new post carries the full record", func(t *testing.T) {
		post := models.Post{
			ID:        "p1",
			Author:    models.User{ID: "u1", Name: "Alex"},
			Content:   "hello",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		data, err := Encode(NewPost{Post: post})
		require.NoError(t, err)

		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		assert.Equal(t, KindNewPost, env.Type)

		decoded, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, NewPost{Post: post}, decoded)
	})
}

func TestDispatch(t *testing.T) {
	msgs := []Message{
		NewPost{Post: models.Post{ID: "p"}},
		UserOnline{UserID: "a"},
		UserOffline{UserID: "a"},
		TypingStart{UserID: "a"},
		TypingStop{UserID: "a"},
		Notification{Message: "m"},
		Ping{},
	}

	r := &recorder{}
	for _, m := range msgs {
		Dispatch(m, r)
	}
	assert.Equal(t, Kinds, r.kinds)
	assert.Equal(t, Ping{}, r.last)
}
