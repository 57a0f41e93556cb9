// Package loop runs feed work on a single logical thread of execution.
//
// Every component in the feed receives a Scheduler and performs all of its
// state mutation from tasks and timer callbacks that the scheduler runs one at
// a time. Goroutines owned by transports or remotes never touch shared state
// directly; they hand results back with Post.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Timer is a cancelable pending callback.
type Timer interface {
	// Stop cancels the timer. It returns false if the timer already fired
	// (one-shot) or was already stopped. Calling Stop more than once is safe.
	Stop() bool
}

// Scheduler serializes tasks and timer callbacks onto one logical thread.
type Scheduler interface {
	// Post queues fn to run after the currently running task.
	Post(fn func())

	// AfterFunc runs fn once after d elapses.
	AfterFunc(d time.Duration, fn func()) Timer

	// Every runs fn every d until the returned timer is stopped.
	Every(d time.Duration, fn func()) Timer

	// Now returns the scheduler's notion of the current time.
	Now() time.Time
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

// Loop is a real-time Scheduler backed by a single goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	logger *logrus.Entry
}

// New creates a Loop. Tasks are accepted immediately but only run once Run
// is called.
func New(logger *logrus.Entry) *Loop {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Post queues fn. Posting to a loop whose Run has returned drops the task.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued tasks until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return
			}
			l.run(fn)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.WithField("panic", r).Error("Task panicked")
		}
	}()
	fn()
}

// Now returns the wall clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

type realTimer struct {
	state atomic.Int32
	t     *time.Timer
}

func (t *realTimer) Stop() bool {
	if !t.state.CompareAndSwap(timerPending, timerStopped) {
		return false
	}
	t.t.Stop()
	return true
}

// AfterFunc schedules fn onto the loop after d. A timer stopped after its
// deadline passed but before the loop ran it never runs.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	rt := &realTimer{}
	rt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if rt.state.CompareAndSwap(timerPending, timerFired) {
				fn()
			}
		})
	})
	return rt
}

type periodicTimer struct {
	mu      sync.Mutex
	stopped bool
	t       *time.Timer
}

func (p *periodicTimer) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.stopped = true
	if p.t != nil {
		p.t.Stop()
	}
	return true
}

func (p *periodicTimer) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Every schedules fn onto the loop every d. The next tick is armed after fn
// returns, so slow callbacks delay rather than pile up.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		d = time.Millisecond
	}
	p := &periodicTimer{}
	var arm func()
	arm = func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stopped {
			return
		}
		p.t = time.AfterFunc(d, func() {
			l.Post(func() {
				if p.isStopped() {
					return
				}
				fn()
				arm()
			})
		})
	}
	arm()
	return p
}

var _ Scheduler = (*Loop)(nil)
