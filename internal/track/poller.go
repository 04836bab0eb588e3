package track

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Thekirgo/calcwatch/internal/api"
	"github.com/Thekirgo/calcwatch/internal/domain"
	apperrors "github.com/Thekirgo/calcwatch/internal/errors"
)

// StatusFetcher is the slice of the API client the poller needs.
type StatusFetcher interface {
	GetExpression(ctx context.Context, id string) (*api.JobStatus, error)
}

// PollState is the terminal state of one tracking sequence.
type PollState int

const (
	PollSucceeded PollState = iota
	PollFailed
	PollTimedOut
	PollAborted
)

func (s PollState) String() string {
	switch s {
	case PollSucceeded:
		return "succeeded"
	case PollFailed:
		return "failed"
	case PollTimedOut:
		return "timed_out"
	case PollAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the single terminal result of one Track call. Result is only
// meaningful when State is PollSucceeded and HasResult is set; a completed
// job without a result is accepted and presents as empty.
type Outcome struct {
	State     PollState
	Result    any
	HasResult bool
	Err       *apperrors.Error
}

// PollPolicy carries the attempt budget. These are engine policy knobs, not
// per-call tunables.
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPollPolicy matches the service's expected completion window:
// 20 attempts one second apart.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{MaxAttempts: 20, Interval: time.Second}
}

// Poller follows a submitted job until a terminal state or the attempt
// budget runs out. Attempts within one sequence are strictly sequential;
// there are never two outstanding status queries for the same job.
type Poller struct {
	api     StatusFetcher
	clock   clockwork.Clock
	policy  PollPolicy
	refresh func(ctx context.Context)
}

// NewPoller creates a Poller. refresh, if non-nil, is invoked once after a
// successful completion so the history view catches up without waiting for
// the next scheduled cycle.
func NewPoller(api StatusFetcher, clock clockwork.Clock, policy PollPolicy, refresh func(ctx context.Context)) *Poller {
	if policy.MaxAttempts < 1 {
		policy = DefaultPollPolicy()
	}
	return &Poller{api: api, clock: clock, policy: policy, refresh: refresh}
}

// pollAttempt is the bookkeeping for one Track invocation. It is owned by
// that invocation alone, never shared or persisted.
type pollAttempt struct {
	jobID       string
	used        int
	maxAttempts int
	interval    time.Duration
}

// Track runs the polling state machine for one job and reports exactly one
// terminal outcome. A transport or parse failure during any poll aborts the
// whole sequence immediately rather than burning further attempts.
func (p *Poller) Track(ctx context.Context, jobID string) Outcome {
	attempt := pollAttempt{
		jobID:       jobID,
		maxAttempts: p.policy.MaxAttempts,
		interval:    p.policy.Interval,
	}
	log := slog.With("job_id", jobID)

	for attempt.used < attempt.maxAttempts {
		status, err := p.api.GetExpression(ctx, jobID)
		if err != nil {
			log.WarnContext(ctx, "Poll aborted", "attempts_used", attempt.used+1, "error", err)
			return Outcome{State: PollAborted, Err: apperrors.AsClassified(err)}
		}

		switch domain.CanonicalStatus(status.Status) {
		case domain.StatusCompleted:
			log.InfoContext(ctx, "Job completed", "attempts_used", attempt.used+1)
			if p.refresh != nil {
				p.refresh(ctx)
			}
			return Outcome{State: PollSucceeded, Result: status.Result, HasResult: status.HasResult}
		case domain.StatusError:
			log.InfoContext(ctx, "Job failed", "attempts_used", attempt.used+1)
			return Outcome{State: PollFailed, Err: apperrors.New(apperrors.KindEvaluation, "expression evaluation failed")}
		}

		attempt.used++
		if attempt.used == attempt.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return Outcome{State: PollAborted, Err: apperrors.Unavailable(ctx.Err())}
		case <-p.clock.After(attempt.interval):
		}
	}

	log.WarnContext(ctx, "Poll attempt budget exhausted", "attempts_used", attempt.used)
	return Outcome{State: PollTimedOut, Err: apperrors.New(apperrors.KindTimeout, "timed out waiting for the result")}
}
