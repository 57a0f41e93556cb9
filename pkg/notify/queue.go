package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/feed/internal/loop"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTransition is the entry and exit animation window.
	DefaultTransition = 300 * time.Millisecond

	// DefaultTTL is the lifetime used by callers that do not choose one.
	DefaultTTL = 5 * time.Second
)

type entry struct {
	n          Notification
	ttlTimer   loop.Timer
	phaseTimer loop.Timer
}

// Queue tracks visible notifications and expires them on the scheduler.
//
// Queue is not safe for concurrent use; call it from the scheduler's thread.
type Queue struct {
	sched      loop.Scheduler
	transition time.Duration
	newID      func() string
	logger     *logrus.Entry

	order   []string
	entries map[string]*entry
	onEvent []func(Event)
}

// Option configures a Queue.
type Option func(*Queue)

// WithTransition sets the entry/exit transition delay.
func WithTransition(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.transition = d
		}
	}
}

// WithIDFunc overrides id generation.
func WithIDFunc(fn func() string) Option {
	return func(q *Queue) {
		if fn != nil {
			q.newID = fn
		}
	}
}

// WithLogger sets the queue logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// New creates a Queue bound to sched.
func New(sched loop.Scheduler, opts ...Option) *Queue {
	q := &Queue{
		sched:      sched,
		transition: DefaultTransition,
		newID:      uuid.NewString,
		logger:     logrus.NewEntry(logrus.StandardLogger()),
		entries:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// OnEvent registers a lifecycle event callback.
func (q *Queue) OnEvent(fn func(Event)) {
	q.onEvent = append(q.onEvent, fn)
}

// Show creates and displays a notification. A ttl of zero or less never
// expires; it stays until Remove or Clear.
func (q *Queue) Show(message string, severity Severity, ttl time.Duration) Notification {
	if !severity.Valid() {
		severity = SeverityInfo
	}
	if ttl < 0 {
		ttl = 0
	}

	e := &entry{n: Notification{
		ID:        q.newID(),
		Message:   message,
		Severity:  severity,
		CreatedAt: q.sched.Now(),
		TTL:       ttl,
		Phase:     PhaseEntering,
	}}
	id := e.n.ID
	q.entries[id] = e
	q.order = append(q.order, id)

	e.phaseTimer = q.sched.AfterFunc(q.transition, func() { q.displayed(id) })
	if ttl > 0 {
		e.ttlTimer = q.sched.AfterFunc(ttl, func() { q.Remove(id) })
	}

	q.logger.WithFields(logrus.Fields{
		"id":       id,
		"severity": severity,
		"ttl":      ttl,
	}).Debug("Notification shown")
	q.emit(EventShown, e.n)
	return e.n
}

func (q *Queue) displayed(id string) {
	e, ok := q.entries[id]
	if !ok || e.n.Phase != PhaseEntering {
		return
	}
	e.n.Phase = PhaseDisplayed
	e.phaseTimer = nil
	q.emit(EventDisplayed, e.n)
}

// Remove starts the exit transition for id. Unknown ids and notifications
// already leaving are ignored, so Remove may be called any number of times.
func (q *Queue) Remove(id string) {
	e, ok := q.entries[id]
	if !ok || e.n.Phase >= PhaseLeaving {
		return
	}

	if e.ttlTimer != nil {
		e.ttlTimer.Stop()
		e.ttlTimer = nil
	}
	if e.phaseTimer != nil {
		e.phaseTimer.Stop()
	}

	e.n.Phase = PhaseLeaving
	q.emit(EventLeaving, e.n)
	e.phaseTimer = q.sched.AfterFunc(q.transition, func() { q.finalize(id) })
}

func (q *Queue) finalize(id string) {
	e, ok := q.entries[id]
	if !ok {
		return
	}
	delete(q.entries, id)
	for i, existing := range q.order {
		if existing == id {
			q.order = append(q.order[:i:i], q.order[i+1:]...)
			break
		}
	}

	e.n.Phase = PhaseRemoved
	q.logger.WithField("id", id).Debug("Notification removed")
	q.emit(EventRemoved, e.n)
}

// Clear removes every tracked notification.
func (q *Queue) Clear() {
	for _, id := range append([]string(nil), q.order...) {
		q.Remove(id)
	}
}

// Get returns the tracked notification for id.
func (q *Queue) Get(id string) (Notification, bool) {
	e, ok := q.entries[id]
	if !ok {
		return Notification{}, false
	}
	return e.n, true
}

// Present reports whether id has not yet been fully removed.
func (q *Queue) Present(id string) bool {
	_, ok := q.entries[id]
	return ok
}

// List returns tracked notifications in creation order, including ones in
// their exit transition.
func (q *Queue) List() []Notification {
	out := make([]Notification, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.entries[id].n)
	}
	return out
}

// Len returns the number of tracked notifications.
func (q *Queue) Len() int {
	return len(q.order)
}

func (q *Queue) emit(kind EventKind, n Notification) {
	for _, fn := range q.onEvent {
		fn(Event{Kind: kind, Notification: n})
	}
}

var _ Notifier = (*Queue)(nil)
