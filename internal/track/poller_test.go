package track

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thekirgo/calcwatch/internal/api"
	apperrors "github.com/Thekirgo/calcwatch/internal/errors"
)

// scriptedStatusAPI replays a fixed sequence of status responses; the last
// entry repeats if the poller asks again.
type scriptedStatusAPI struct {
	queries   int
	responses []scriptedResponse
}

type scriptedResponse struct {
	status *api.JobStatus
	err    error
}

func (s *scriptedStatusAPI) GetExpression(_ context.Context, _ string) (*api.JobStatus, error) {
	idx := s.queries
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.queries++
	r := s.responses[idx]
	return r.status, r.err
}

func processingTimes(k int) []scriptedResponse {
	out := make([]scriptedResponse, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, scriptedResponse{status: &api.JobStatus{Status: "PROCESSING"}})
	}
	return out
}

var fastPolicy = PollPolicy{MaxAttempts: 5, Interval: time.Millisecond}

func newTestPoller(statusAPI StatusFetcher, refresh func(ctx context.Context)) *Poller {
	return NewPoller(statusAPI, clockwork.NewRealClock(), fastPolicy, refresh)
}

func TestTrack_SucceedsAfterProcessing(t *testing.T) {
	statusAPI := &scriptedStatusAPI{
		responses: append(processingTimes(3),
			scriptedResponse{status: &api.JobStatus{Status: "COMPLETED", Result: float64(4), HasResult: true}}),
	}
	p := newTestPoller(statusAPI, nil)

	outcome := p.Track(context.Background(), "job-1")

	assert.Equal(t, PollSucceeded, outcome.State)
	assert.True(t, outcome.HasResult)
	assert.Equal(t, float64(4), outcome.Result)
	assert.Equal(t, 4, statusAPI.queries, "k processing responses then completed takes k+1 queries")
	assert.Nil(t, outcome.Err)
}

func TestTrack_CompletedWithoutResultIsAccepted(t *testing.T) {
	statusAPI := &scriptedStatusAPI{
		responses: []scriptedResponse{{status: &api.JobStatus{Status: "completed"}}},
	}
	p := newTestPoller(statusAPI, nil)

	outcome := p.Track(context.Background(), "job-1")
	assert.Equal(t, PollSucceeded, outcome.State)
	assert.False(t, outcome.HasResult)
}

func TestTrack_TimesOutAfterBudget(t *testing.T) {
	statusAPI := &scriptedStatusAPI{responses: processingTimes(1)}
	p := newTestPoller(statusAPI, nil)

	outcome := p.Track(context.Background(), "job-1")

	assert.Equal(t, PollTimedOut, outcome.State)
	assert.Equal(t, apperrors.KindTimeout, outcome.Err.Kind)
	assert.Equal(t, fastPolicy.MaxAttempts, statusAPI.queries, "no queries past the budget")
}

func TestTrack_FailsImmediatelyOnError(t *testing.T) {
	statusAPI := &scriptedStatusAPI{
		responses: []scriptedResponse{{status: &api.JobStatus{Status: "ERROR"}}},
	}
	p := newTestPoller(statusAPI, nil)

	outcome := p.Track(context.Background(), "job-1")

	assert.Equal(t, PollFailed, outcome.State)
	assert.Equal(t, apperrors.KindEvaluation, outcome.Err.Kind)
	assert.Equal(t, 1, statusAPI.queries)
}

func TestTrack_AbortsOnTransportFailure(t *testing.T) {
	statusAPI := &scriptedStatusAPI{
		responses: append(processingTimes(1),
			scriptedResponse{err: apperrors.Unavailable(context.DeadlineExceeded)}),
	}
	p := newTestPoller(statusAPI, nil)

	outcome := p.Track(context.Background(), "job-1")

	assert.Equal(t, PollAborted, outcome.State)
	assert.True(t, outcome.Err.Transport())
	assert.Equal(t, 2, statusAPI.queries, "one failed attempt ends polling")
}

func TestTrack_TriggersRefreshOnceOnSuccess(t *testing.T) {
	statusAPI := &scriptedStatusAPI{
		responses: append(processingTimes(2),
			scriptedResponse{status: &api.JobStatus{Status: "COMPLETED", Result: float64(9), HasResult: true}}),
	}
	refreshes := 0
	p := newTestPoller(statusAPI, func(context.Context) { refreshes++ })

	outcome := p.Track(context.Background(), "job-1")
	require.Equal(t, PollSucceeded, outcome.State)
	assert.Equal(t, 1, refreshes)
}

func TestTrack_NoRefreshOnFailure(t *testing.T) {
	statusAPI := &scriptedStatusAPI{
		responses: []scriptedResponse{{status: &api.JobStatus{Status: "ERROR"}}},
	}
	refreshes := 0
	p := newTestPoller(statusAPI, func(context.Context) { refreshes++ })

	p.Track(context.Background(), "job-1")
	assert.Zero(t, refreshes)
}

func TestTrack_ContextCancellationAborts(t *testing.T) {
	statusAPI := &scriptedStatusAPI{responses: processingTimes(1)}
	p := NewPoller(statusAPI, clockwork.NewRealClock(), PollPolicy{MaxAttempts: 10, Interval: 10 * time.Second}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := p.Track(ctx, "job-1")
	assert.Equal(t, PollAborted, outcome.State)
	assert.Equal(t, 1, statusAPI.queries, "cancellation during the wait stops further queries")
}
