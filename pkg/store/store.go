package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

type subscriber struct {
	id     uint64
	fn     Listener
	active bool
}

type watcher struct {
	id     uint64
	fn     WatchFunc
	active bool
}

// Store is a keyed value store with per-key listeners.
//
// Set applies the value and then notifies listeners in subscription order
// before returning. Listeners run on the caller's thread with the store
// unlocked, so a listener may read or write the store. A listener that panics
// is logged and skipped; the remaining listeners still run.
type Store struct {
	mu       sync.Mutex
	values   map[string]any
	subs     map[string][]*subscriber
	watchers []*watcher
	nextID   uint64
	logger   *logrus.Entry
}

// New creates an empty Store.
func New(logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{
		values: make(map[string]any),
		subs:   make(map[string][]*subscriber),
		logger: logger,
	}
}

// Get returns the current value for key, or Unset.
func (s *Store) Get(key string) any {
	v, ok := s.Lookup(key)
	if !ok {
		return Unset
	}
	return v
}

// Lookup returns the current value for key and whether it was set.
func (s *Store) Lookup(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Value returns the value for key as T. It returns the zero value and false
// when the key is unset or holds a different type.
func Value[T any](s *Store, key string) (T, bool) {
	var zero T
	v, ok := s.Lookup(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Set replaces the value for key and notifies its listeners with
// (value, previous). Store-wide watchers run after the key's listeners.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	old, ok := s.values[key]
	if !ok {
		old = Unset
	}
	s.values[key] = value
	subs := append([]*subscriber(nil), s.subs[key]...)
	watchers := append([]*watcher(nil), s.watchers...)
	s.mu.Unlock()

	for _, sub := range subs {
		if !s.isActive(sub) {
			continue
		}
		s.invoke(key, func() { sub.fn(value, old) })
	}
	for _, w := range watchers {
		if !s.isWatching(w) {
			continue
		}
		s.invoke(key, func() { w.fn(key, value, old) })
	}
}

// Update applies fn to the current value of key and stores the result.
// fn receives Unset for a key that was never set.
func (s *Store) Update(key string, fn func(current any) any) {
	s.Set(key, fn(s.Get(key)))
}

// Delete removes key. Listeners are notified with (Unset, previous) when the
// key existed.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	_, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return
	}

	s.Set(key, Unset)

	s.mu.Lock()
	if v, ok := s.values[key]; ok && v == Unset {
		delete(s.values, key)
	}
	s.mu.Unlock()
}

// Keys returns the set keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Subscribe registers fn for changes to key.
func (s *Store) Subscribe(key string, fn Listener) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := &subscriber{id: s.nextID, fn: fn, active: true}
	s.subs[key] = append(s.subs[key], sub)
	return Subscription{key: key, id: sub.id}
}

// Unsubscribe removes a listener. Unknown or already removed subscriptions
// are ignored. A removed listener is not called again, even by a Set that is
// already notifying.
func (s *Store) Unsubscribe(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subs[sub.key]
	for i, existing := range subs {
		if existing.id != sub.id {
			continue
		}
		existing.active = false
		s.subs[sub.key] = append(subs[:i:i], subs[i+1:]...)
		if len(s.subs[sub.key]) == 0 {
			delete(s.subs, sub.key)
		}
		return
	}
}

// Watch registers a store-wide listener. The returned function removes it.
func (s *Store) Watch(fn WatchFunc) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	w := &watcher{id: s.nextID, fn: fn, active: true}
	s.watchers = append(s.watchers, w)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.watchers {
			if existing == w {
				w.active = false
				s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount returns the number of listeners registered for key.
func (s *Store) ListenerCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[key])
}

func (s *Store) isActive(sub *subscriber) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sub.active
}

func (s *Store) isWatching(w *watcher) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return w.active
}

func (s *Store) invoke(key string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("key", key).
				WithField("panic", fmt.Sprint(r)).
				Error("State listener panicked")
		}
	}()
	fn()
}
