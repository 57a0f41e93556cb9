package channel

import (
	"math"
	"time"
)

// Backoff constants for the feed channel.
const (
	// DefaultRetryBase is the delay before the first reconnect.
	DefaultRetryBase = 1 * time.Second

	// DefaultMaxAttempts is the number of reconnects before giving up.
	DefaultMaxAttempts = 5

	// BackoffMultiplier is the factor by which the delay grows.
	BackoffMultiplier = 2

	// MaxDelay is the longest delay handed out when no Max is configured.
	MaxDelay = time.Duration(math.MaxInt64)
)

// BackoffConfig allows customizing backoff parameters.
type BackoffConfig struct {
	Base        time.Duration
	Max         time.Duration // zero means uncapped
	MaxAttempts int
}

// Backoff calculates a bounded exponential reconnect schedule. It is not safe
// for concurrent use; the client drives it from its scheduler.
type Backoff struct {
	base        time.Duration
	max         time.Duration
	maxAttempts int
	attempts    int
}

// NewBackoff creates a backoff calculator with default settings.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{})
}

// NewBackoffWithConfig creates a backoff calculator with custom settings.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Base <= 0 {
		cfg.Base = DefaultRetryBase
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Max < 0 {
		cfg.Max = 0
	}
	return &Backoff{
		base:        cfg.Base,
		max:         cfg.Max,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Next returns the delay for the next attempt and advances the counter.
// It returns false once MaxAttempts delays have been handed out.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.attempts >= b.maxAttempts {
		return 0, false
	}
	delay := b.delay(b.attempts)
	b.attempts++
	return delay, true
}

// Peek returns the delay Next would return without advancing.
func (b *Backoff) Peek() (time.Duration, bool) {
	if b.attempts >= b.maxAttempts {
		return 0, false
	}
	return b.delay(b.attempts), true
}

// Reset returns the backoff to its initial state.
// Call this after a successful connection.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Exhausted reports whether no attempts remain.
func (b *Backoff) Exhausted() bool {
	return b.attempts >= b.maxAttempts
}

// MaxAttempts returns the configured attempt limit.
func (b *Backoff) MaxAttempts() int {
	return b.maxAttempts
}

// Sequence returns every delay the backoff would hand out from reset.
func (b *Backoff) Sequence() []time.Duration {
	out := make([]time.Duration, b.maxAttempts)
	for i := range out {
		out[i] = b.delay(i)
	}
	return out
}

func (b *Backoff) delay(retry int) time.Duration {
	d := b.base
	for i := 0; i < retry; i++ {
		if d > MaxDelay/BackoffMultiplier {
			d = MaxDelay
			break
		}
		d *= BackoffMultiplier
		if b.max > 0 && d >= b.max {
			return b.max
		}
	}
	if b.max > 0 && d > b.max {
		return b.max
	}
	return d
}
