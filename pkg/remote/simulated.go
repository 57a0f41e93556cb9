package remote

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/grovetools/feed/internal/loop"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLatency is the mean simulated round trip.
	DefaultLatency = 500 * time.Millisecond

	// DefaultSuccessRate mirrors the demo backend.
	DefaultSuccessRate = 0.9
)

// SimulatedConfig tunes a Simulated remote.
type SimulatedConfig struct {
	// Latency is the base delay before completion.
	Latency time.Duration
	// Jitter adds up to this much random extra delay.
	Jitter time.Duration
	// SuccessRate is the probability in [0,1] that a request succeeds.
	SuccessRate float64
	// Rand overrides the random source, for deterministic runs.
	Rand *rand.Rand
}

// Simulated completes requests on a scheduler after a delay, failing a
// fraction of them with ErrNetwork.
type Simulated struct {
	sched  loop.Scheduler
	cfg    SimulatedConfig
	logger *logrus.Entry

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated creates a Simulated remote. SuccessRate outside [0,1] falls
// back to DefaultSuccessRate; a zero Latency means DefaultLatency.
func NewSimulated(sched loop.Scheduler, cfg SimulatedConfig, logger *logrus.Entry) *Simulated {
	if cfg.Latency <= 0 {
		cfg.Latency = DefaultLatency
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.SuccessRate < 0 || cfg.SuccessRate > 1 {
		cfg.SuccessRate = DefaultSuccessRate
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Simulated{sched: sched, cfg: cfg, rng: rng, logger: logger}
}

// Do implements Client. Cancellation of ctx before the delay elapses
// completes the request with the context error.
func (s *Simulated) Do(ctx context.Context, req Request, done func(Ack, error)) {
	delay, ok := s.roll()

	s.sched.AfterFunc(delay, func() {
		if err := ctx.Err(); err != nil {
			done(Ack{}, err)
			return
		}
		if !ok {
			s.logger.WithFields(logrus.Fields{
				"endpoint": req.Endpoint,
				"record":   req.RecordID,
			}).Debug("Simulated request failed")
			done(Ack{}, ErrNetwork)
			return
		}
		done(Ack{Endpoint: req.Endpoint, RecordID: req.RecordID, At: s.sched.Now()}, nil)
	})
}

func (s *Simulated) roll() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delay := s.cfg.Latency
	if s.cfg.Jitter > 0 {
		delay += time.Duration(s.rng.Int63n(int64(s.cfg.Jitter)))
	}
	return delay, s.rng.Float64() < s.cfg.SuccessRate
}

// Static is a Client that answers every request the same way, after a delay
// on the scheduler. Useful for tests and offline demos.
type Static struct {
	Sched loop.Scheduler
	Delay time.Duration
	Err   error
	// Outcomes scripts the results of successive requests. Requests beyond
	// the script get Err.
	Outcomes []error

	mu       sync.Mutex
	requests []Request
}

// Do implements Client.
func (s *Static) Do(ctx context.Context, req Request, done func(Ack, error)) {
	s.mu.Lock()
	err := s.Err
	if n := len(s.requests); n < len(s.Outcomes) {
		err = s.Outcomes[n]
	}
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	s.Sched.AfterFunc(s.Delay, func() {
		if err != nil {
			done(Ack{}, err)
			return
		}
		done(Ack{Endpoint: req.Endpoint, RecordID: req.RecordID, At: s.Sched.Now()}, nil)
	})
}

// Requests returns every request seen so far.
func (s *Static) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
