// Package message defines the channel protocol as a closed set of typed
// messages carried in a {type, payload} JSON envelope.
//
// Every message kind is a distinct Go type. Dispatch routes a decoded message
// to the matching Handler method; because each kind implements its own
// accept method against the full Handler interface, adding a kind without
// teaching every handler about it fails to compile.
package message

import (
	"github.com/grovetools/feed/pkg/models"
)

// Kind is the envelope type tag.
type Kind string

const (
	KindNewPost      Kind = "new_post"
	KindUserOnline   Kind = "user_online"
	KindUserOffline  Kind = "user_offline"
	KindTypingStart  Kind = "typing_start"
	KindTypingStop   Kind = "typing_stop"
	KindNotification Kind = "notification"
	KindPing         Kind = "ping"
)

// Kinds lists every known kind.
var Kinds = []Kind{
	KindNewPost,
	KindUserOnline,
	KindUserOffline,
	KindTypingStart,
	KindTypingStop,
	KindNotification,
	KindPing,
}

// Message is one of the concrete message types in this package.
type Message interface {
	Kind() Kind
	accept(h Handler)
}

// Handler handles every message kind.
type Handler interface {
	HandleNewPost(NewPost)
	HandleUserOnline(UserOnline)
	HandleUserOffline(UserOffline)
	HandleTypingStart(TypingStart)
	HandleTypingStop(TypingStop)
	HandleNotification(Notification)
	HandlePing(Ping)
}

// Dispatch calls the Handler method matching m.
func Dispatch(m Message, h Handler) {
	m.accept(h)
}

// NewPost announces a published post. Its payload is the full post record.
type NewPost struct {
	Post models.Post
}

// UserOnline announces a user joining.
type UserOnline struct {
	UserID string `json:"userId"`
}

// UserOffline announces a user leaving.
type UserOffline struct {
	UserID string `json:"userId"`
}

// TypingStart reports that UserID started typing to TargetUserID.
type TypingStart struct {
	UserID       string `json:"userId"`
	TargetUserID string `json:"targetUserId"`
}

// TypingStop reports that UserID stopped typing to TargetUserID.
type TypingStop struct {
	UserID       string `json:"userId"`
	TargetUserID string `json:"targetUserId"`
}

// Notification asks the client to surface a message to the user.
type Notification struct {
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
	// TTLMillis is the display lifetime; zero means the client default.
	TTLMillis int64 `json:"ttl,omitempty"`
}

// Ping is the liveness probe. It carries no payload.
type Ping struct{}

func (NewPost) Kind() Kind      { return KindNewPost }
func (UserOnline) Kind() Kind   { return KindUserOnline }
func (UserOffline) Kind() Kind  { return KindUserOffline }
func (TypingStart) Kind() Kind  { return KindTypingStart }
func (TypingStop) Kind() Kind   { return KindTypingStop }
func (Notification) Kind() Kind { return KindNotification }
func (Ping) Kind() Kind         { return KindPing }

func (m NewPost) accept(h Handler)      { h.HandleNewPost(m) }
func (m UserOnline) accept(h Handler)   { h.HandleUserOnline(m) }
func (m UserOffline) accept(h Handler)  { h.HandleUserOffline(m) }
func (m TypingStart) accept(h Handler)  { h.HandleTypingStart(m) }
func (m TypingStop) accept(h Handler)   { h.HandleTypingStop(m) }
func (m Notification) accept(h Handler) { h.HandleNotification(m) }
func (m Ping) accept(h Handler)         { h.HandlePing(m) }
