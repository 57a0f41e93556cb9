package loop

import (
	"container/heap"
	"sync"
	"time"
)

// Epoch is the default start time of a Manual scheduler.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Manual is a deterministic Scheduler driven by virtual time. Nothing runs
// until RunPending or Advance is called; timers fire in deadline order and
// ties break by creation order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	queue  []func()
	timers timerHeap
}

// NewManual creates a Manual scheduler starting at Epoch.
func NewManual() *Manual {
	return &Manual{now: Epoch}
}

// Post queues fn for the next RunPending or Advance.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Elapsed returns the virtual time passed since Epoch.
func (m *Manual) Elapsed() time.Duration {
	return m.Now().Sub(Epoch)
}

// AfterFunc schedules fn at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.schedule(d, 0, fn)
}

// Every schedules fn at every multiple of d from Now().
func (m *Manual) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		d = time.Millisecond
	}
	return m.schedule(d, d, fn)
}

func (m *Manual) schedule(d, period time.Duration, fn func()) *manualTimer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{
		m:      m,
		when:   m.now.Add(d),
		period: period,
		seq:    m.seq,
		fn:     fn,
	}
	heap.Push(&m.timers, t)
	return t
}

// Pending returns the number of armed timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// NextDeadline returns the deadline of the earliest armed timer.
func (m *Manual) NextDeadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return time.Time{}, false
	}
	return m.timers[0].when, true
}

// RunPending runs posted tasks, including ones posted while running, until
// the queue is empty. Timers are not advanced.
func (m *Manual) RunPending() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
	}
}

// Advance moves virtual time forward by d, firing every timer that comes due
// and draining posted tasks after each callback.
func (m *Manual) Advance(d time.Duration) {
	m.RunPending()

	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.timers) == 0 || m.timers[0].when.After(target) {
			m.now = target
			m.mu.Unlock()
			break
		}
		t := heap.Pop(&m.timers).(*manualTimer)
		m.now = t.when
		if t.period > 0 {
			m.seq++
			t.when = t.when.Add(t.period)
			t.seq = m.seq
			heap.Push(&m.timers, t)
		} else {
			t.done = true
		}
		fn := t.fn
		m.mu.Unlock()

		fn()
		m.RunPending()
	}

	m.RunPending()
}

type manualTimer struct {
	m      *Manual
	when   time.Time
	period time.Duration
	seq    uint64
	fn     func()
	index  int
	done   bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	if t.index >= 0 && t.index < len(t.m.timers) && t.m.timers[t.index] == t {
		heap.Remove(&t.m.timers, t.index)
	}
	return true
}

type timerHeap []*manualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

var _ Scheduler = (*Manual)(nil)
