// Package optimistic applies local changes ahead of remote confirmation and
// rolls them back when confirmation fails.
package optimistic

import (
	"context"
	"time"

	"github.com/grovetools/feed/errors"
	"github.com/grovetools/feed/internal/loop"
	"github.com/grovetools/feed/pkg/notify"
	"github.com/grovetools/feed/pkg/remote"
	"github.com/sirupsen/logrus"
)

// DefaultFailureTTL is how long rollback notifications stay visible.
const DefaultFailureTTL = 5 * time.Second

// Status is the lifecycle of a mutation.
type Status uint8

const (
	StatusPending Status = iota
	StatusCommitted
	StatusRolledBack
	// StatusDropped means the pipeline was shut down before confirmation. The
	// local change is left as is and nothing is reported.
	StatusDropped
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolled_back"
	case StatusDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Mutation describes one optimistic change.
type Mutation struct {
	// Request is sent to the remote after Apply.
	Request remote.Request

	// Apply performs the local change and returns the closure that undoes it.
	// The closure must locate its record by identity and tolerate the record
	// being gone.
	Apply func() (revert func())

	// FailureMessage is shown when confirmation fails. Empty suppresses the
	// notification.
	FailureMessage string

	// OnCommit runs after a successful confirmation.
	OnCommit func(remote.Ack)

	// OnRollback runs after the local change was reverted.
	OnRollback func(error)
}

// Pending tracks a submitted mutation.
type Pending struct {
	mutation Mutation
	revert   func()
	status   Status
	err      error
	ack      remote.Ack
}

// Status returns the current status.
func (p *Pending) Status() Status { return p.status }

// Err returns the confirmation error after a rollback.
func (p *Pending) Err() error { return p.err }

// Ack returns the confirmation after a commit.
func (p *Pending) Ack() remote.Ack { return p.ack }

// RecordID returns the identity the mutation targets.
func (p *Pending) RecordID() string { return p.mutation.Request.RecordID }

// Pipeline runs mutations against a remote client.
//
// Pipeline methods and every callback it invokes run on the scheduler's
// thread; remote completions are posted back to it.
type Pipeline struct {
	sched    loop.Scheduler
	client   remote.Client
	notifier notify.Notifier
	logger   *logrus.Entry
	ctx      context.Context

	inflight map[*Pending]struct{}
}

// New creates a Pipeline.
func New(ctx context.Context, sched loop.Scheduler, client remote.Client, notifier notify.Notifier, logger *logrus.Entry) *Pipeline {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Pipeline{
		sched:    sched,
		client:   client,
		notifier: notifier,
		logger:   logger,
		ctx:      ctx,
		inflight: make(map[*Pending]struct{}),
	}
}

// Run applies m locally and issues its confirmation request.
func (p *Pipeline) Run(m Mutation) *Pending {
	pending := &Pending{mutation: m, status: StatusPending}
	if m.Apply != nil {
		pending.revert = m.Apply()
	}
	p.inflight[pending] = struct{}{}

	log := p.logger.WithFields(logrus.Fields{
		"endpoint": m.Request.Endpoint,
		"record":   m.Request.RecordID,
	})
	log.Debug("Optimistic change applied")

	p.client.Do(p.ctx, m.Request, func(ack remote.Ack, err error) {
		p.sched.Post(func() { p.complete(pending, ack, err, log) })
	})
	return pending
}

// Inflight returns the number of mutations awaiting confirmation.
func (p *Pipeline) Inflight() int {
	return len(p.inflight)
}

func (p *Pipeline) complete(pending *Pending, ack remote.Ack, err error, log *logrus.Entry) {
	if pending.status != StatusPending {
		log.Warn("Ignoring duplicate confirmation")
		return
	}
	delete(p.inflight, pending)
	m := pending.mutation

	if p.ctx.Err() != nil {
		pending.status = StatusDropped
		log.Debug("Pipeline closed, dropping confirmation")
		return
	}

	if err == nil {
		pending.status = StatusCommitted
		pending.ack = ack
		log.Debug("Optimistic change committed")
		if m.OnCommit != nil {
			m.OnCommit(ack)
		}
		return
	}

	pending.status = StatusRolledBack
	pending.err = errors.Confirmation(string(m.Request.Endpoint), m.Request.RecordID, err)
	if pending.revert != nil {
		pending.revert()
	}
	log.WithError(err).Info("Optimistic change rolled back")

	if m.FailureMessage != "" && p.notifier != nil {
		p.notifier.Show(m.FailureMessage, notify.SeverityDanger, DefaultFailureTTL)
	}
	if m.OnRollback != nil {
		m.OnRollback(pending.err)
	}
}
