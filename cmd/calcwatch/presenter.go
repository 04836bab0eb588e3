package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/Thekirgo/calcwatch/internal/domain"
)

// terminalPresenter is the thin rendering surface for the command loop. It
// keeps the latest history snapshot and session state so the user can ask
// for them; the engine just pushes values in.
type terminalPresenter struct {
	out io.Writer

	mu       sync.Mutex
	snapshot domain.HistorySnapshot
	hasSnap  bool
	session  domain.SessionState
}

func newTerminalPresenter(out io.Writer) *terminalPresenter {
	return &terminalPresenter{out: out}
}

func (p *terminalPresenter) ShowHistory(snapshot domain.HistorySnapshot) {
	p.mu.Lock()
	p.snapshot = snapshot
	p.hasSnap = true
	p.mu.Unlock()
}

func (p *terminalPresenter) ShowResult(result any) {
	if result == nil {
		return
	}
	fmt.Fprintf(p.out, "result: %v\n", result)
}

func (p *terminalPresenter) ShowSession(state domain.SessionState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// only speak up on transitions, once per minute boundary
	if state.Valid != p.session.Valid || (state.Valid && state.MinutesRemaining != p.session.MinutesRemaining) {
		if state.Valid {
			fmt.Fprintf(p.out, "session: %s, token valid for %d min\n", state.Username, state.MinutesRemaining)
		}
	}
	p.session = state
}

func (p *terminalPresenter) Notify(level domain.NoticeLevel, message string) {
	prefix := "ok"
	if level == domain.NoticeError {
		prefix = "error"
	}
	fmt.Fprintf(p.out, "%s: %s\n", prefix, message)
}

func (p *terminalPresenter) ClearNotice() {}

// PrintHistory renders the latest snapshot on demand.
func (p *terminalPresenter) PrintHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasSnap {
		fmt.Fprintln(p.out, "no history yet")
		return
	}

	if len(p.snapshot.Processing) > 0 {
		fmt.Fprintln(p.out, "in flight:")
		for _, rec := range p.snapshot.Processing {
			fmt.Fprintf(p.out, "  %-24s %-12s %s\n", rec.Text, rec.Status, rec.CreatedAt)
		}
	}

	if len(p.snapshot.Settled) == 0 && len(p.snapshot.Processing) == 0 {
		fmt.Fprintln(p.out, "history is empty")
		return
	}

	for _, rec := range p.snapshot.Settled {
		result := "-"
		if rec.Status == domain.StatusCompleted && rec.Result != nil {
			result = fmt.Sprintf("%v", rec.Result)
		}
		fmt.Fprintf(p.out, "  %-24s = %-12s %-10s %s\n", rec.Text, result, rec.Status, rec.CreatedAt)
	}
}
