// Package store provides the observable state store for the feed.
package store

// Well-known state keys shared by the feed components.
const (
	KeyTheme       = "theme"
	KeyPosts       = "posts"
	KeyStories     = "stories"
	KeyComments    = "comments"
	KeySaved       = "saved"
	KeyOnlineUsers = "onlineUsers"
	KeyTypingUsers = "typingUsers"
	KeyConnection  = "connection"
	KeyCurrentUser = "currentUser"
)

type unset struct{}

func (unset) String() string { return "<unset>" }

// Unset is returned by Get for keys that were never set, and is passed as the
// old value on the first Set of a key.
var Unset any = unset{}

// Listener receives the new and previous value of a key.
type Listener func(newValue, oldValue any)

// WatchFunc receives every change in the store.
type WatchFunc func(key string, newValue, oldValue any)

// Subscription identifies a registered listener.
type Subscription struct {
	key string
	id  uint64
}

// Key returns the key the subscription listens to.
func (s Subscription) Key() string {
	return s.key
}
