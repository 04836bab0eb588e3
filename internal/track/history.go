package track

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/Thekirgo/calcwatch/internal/correlation"
	"github.com/Thekirgo/calcwatch/internal/domain"
	apperrors "github.com/Thekirgo/calcwatch/internal/errors"
)

// HistoryFetcher is the slice of the API client the synchronizer needs.
type HistoryFetcher interface {
	GetHistory(ctx context.Context) (json.RawMessage, error)
}

// Synchronizer keeps the local history view in sync with the server. Each
// successful refresh produces an independent snapshot which is published to
// subscribers; the latest-completing refresh wins. A failed refresh never
// clears the previously published view.
type Synchronizer struct {
	api      HistoryFetcher
	clock    clockwork.Clock
	interval time.Duration
	breaker  *gobreaker.CircuitBreaker
	group    singleflight.Group
	onError  func(err *apperrors.Error)

	mu          sync.Mutex
	subscribers []func(domain.HistorySnapshot)
	last        domain.HistorySnapshot
	hasLast     bool
	running     bool
	stopCh      chan struct{}
}

// NewSynchronizer creates a Synchronizer refreshing every interval while
// started. onError, if non-nil, receives failures of scheduled refreshes so
// they can surface as a transient notice.
func NewSynchronizer(api HistoryFetcher, clock clockwork.Clock, interval time.Duration, onError func(err *apperrors.Error)) *Synchronizer {
	s := &Synchronizer{
		api:      api,
		clock:    clock,
		interval: interval,
		onError:  onError,
	}
	// The breaker keeps a dead server from being hammered every cycle. While
	// open, refreshes fail fast as unavailable and the stale snapshot stays.
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "history-fetch",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("History fetch circuit state changed", "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// only transport-level failures count towards tripping
			return err == nil || !apperrors.AsClassified(err).Transport()
		},
	})
	return s
}

// Subscribe registers a consumer of published snapshots.
func (s *Synchronizer) Subscribe(fn func(domain.HistorySnapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Last returns the most recently published snapshot, if any. It stays
// available across failed refreshes (stale-but-present).
func (s *Synchronizer) Last() (domain.HistorySnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// Refresh fetches, normalizes and publishes a fresh snapshot. Concurrent
// calls are coalesced into a single fetch; every caller gets the resulting
// snapshot.
func (s *Synchronizer) Refresh(ctx context.Context) (domain.HistorySnapshot, error) {
	v, err, _ := s.group.Do("history", func() (any, error) {
		return s.refreshOnce(ctx)
	})
	if err != nil {
		return domain.HistorySnapshot{}, err
	}
	return v.(domain.HistorySnapshot), nil
}

func (s *Synchronizer) refreshOnce(ctx context.Context) (domain.HistorySnapshot, error) {
	payload, err := s.breaker.Execute(func() (any, error) {
		return s.api.GetHistory(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return domain.HistorySnapshot{}, apperrors.Unavailable(err)
	}
	if err != nil {
		return domain.HistorySnapshot{}, err
	}

	records, err := Normalize(payload.(json.RawMessage))
	if err != nil {
		return domain.HistorySnapshot{}, err
	}
	snapshot := Partition(records)

	s.mu.Lock()
	s.last = snapshot
	s.hasLast = true
	subscribers := append(([]func(domain.HistorySnapshot))(nil), s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}

	slog.DebugContext(ctx, "History refreshed",
		"processing", len(snapshot.Processing),
		"settled", len(snapshot.Settled),
	)
	return snapshot, nil
}

// Start begins the fixed-period refresh loop. It is a no-op while already
// running. The loop ends when Stop is called or ctx is cancelled.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	stop := make(chan struct{})
	s.stopCh = stop
	s.mu.Unlock()

	go s.run(ctx, stop)
}

// Stop disables the refresh loop entirely. No scheduled fetch fires after
// Stop returns, so no authorized call can leave the process while logged out.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

func (s *Synchronizer) run(ctx context.Context, stop <-chan struct{}) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			slog.Info("History refresh loop stopped")
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			refreshCtx := correlation.WithID(ctx, correlation.NewID())
			if _, err := s.Refresh(refreshCtx); err != nil {
				classified := apperrors.AsClassified(err)
				slog.WarnContext(refreshCtx, "Scheduled history refresh failed, keeping previous view", "error", classified)
				if s.onError != nil {
					s.onError(classified)
				}
			}
		}
	}
}
