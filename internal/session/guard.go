package session

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Thekirgo/calcwatch/internal/domain"
)

const guardTickInterval = 1 * time.Second

// Guard derives session validity and remaining token lifetime from the
// session context. Tick is a pure local computation: it never blocks and
// never fails. An absent token yields an invalid state, not an error.
type Guard struct {
	sessions *Context
	clock    clockwork.Clock
	onTick   func(domain.SessionState)
}

// NewGuard creates a Guard reporting each tick through onTick.
func NewGuard(sessions *Context, clock clockwork.Clock, onTick func(domain.SessionState)) *Guard {
	return &Guard{sessions: sessions, clock: clock, onTick: onTick}
}

// Tick computes the current session state.
func (g *Guard) Tick() domain.SessionState {
	creds, active := g.sessions.Current()
	if !active {
		return domain.SessionState{}
	}

	remaining := creds.IssuedAt.Add(domain.TokenLifetime).Sub(g.clock.Now())
	minutes := int(remaining / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	return domain.SessionState{
		Valid:            true,
		Username:         creds.Username,
		MinutesRemaining: minutes,
	}
}

// Run recomputes the state once per second for the lifetime of the process,
// independent of network activity or session transitions. It blocks until
// ctx is cancelled.
func (g *Guard) Run(ctx context.Context) {
	ticker := g.clock.NewTicker(guardTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			g.onTick(g.Tick())
		}
	}
}
