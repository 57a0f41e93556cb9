package channel

import (
	"time"

	"github.com/grovetools/feed/pkg/message"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/notify"
	"github.com/grovetools/feed/pkg/store"
	"github.com/sirupsen/logrus"
)

// StateDispatcher applies inbound channel messages to the store.
//
// Presence is kept under store.KeyOnlineUsers and typing indicators under
// store.KeyTypingUsers, both as sorted []string of user ids. Typing events
// only count when they target the user under store.KeyCurrentUser.
type StateDispatcher struct {
	Store    *store.Store
	Notifier notify.Notifier

	// OnNewPost receives posts announced by peers.
	OnNewPost func(models.Post)

	// NotificationTTL applies to notification messages without a ttl.
	NotificationTTL time.Duration

	Logger *logrus.Entry
}

var _ message.Handler = (*StateDispatcher)(nil)

func (d *StateDispatcher) HandleNewPost(m message.NewPost) {
	if d.OnNewPost != nil {
		d.OnNewPost(m.Post)
	}
}

func (d *StateDispatcher) HandleUserOnline(m message.UserOnline) {
	d.log().WithField("user", m.UserID).Debug("User online")
	store.AddMember(d.Store, store.KeyOnlineUsers, m.UserID)
}

// HandleUserOffline also clears the user's typing indicator.
func (d *StateDispatcher) HandleUserOffline(m message.UserOffline) {
	d.log().WithField("user", m.UserID).Debug("User offline")
	store.RemoveMember(d.Store, store.KeyOnlineUsers, m.UserID)
	store.RemoveMember(d.Store, store.KeyTypingUsers, m.UserID)
}

func (d *StateDispatcher) HandleTypingStart(m message.TypingStart) {
	if !d.targetsCurrentUser(m.TargetUserID) {
		return
	}
	store.AddMember(d.Store, store.KeyTypingUsers, m.UserID)
}

func (d *StateDispatcher) HandleTypingStop(m message.TypingStop) {
	if !d.targetsCurrentUser(m.TargetUserID) {
		return
	}
	store.RemoveMember(d.Store, store.KeyTypingUsers, m.UserID)
}

// HandleNotification shows the message. A negative ttl makes it persistent.
func (d *StateDispatcher) HandleNotification(m message.Notification) {
	if d.Notifier == nil || m.Message == "" {
		return
	}
	ttl := time.Duration(m.TTLMillis) * time.Millisecond
	switch {
	case m.TTLMillis < 0:
		ttl = 0
	case m.TTLMillis == 0:
		ttl = d.NotificationTTL
		if ttl <= 0 {
			ttl = notify.DefaultTTL
		}
	}
	d.Notifier.Show(m.Message, notify.ParseSeverity(m.Severity), ttl)
}

func (d *StateDispatcher) HandlePing(message.Ping) {}

func (d *StateDispatcher) targetsCurrentUser(target string) bool {
	me, ok := store.Value[models.User](d.Store, store.KeyCurrentUser)
	if !ok {
		return false
	}
	return target == me.ID
}

func (d *StateDispatcher) log() *logrus.Entry {
	if d.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return d.Logger
}
