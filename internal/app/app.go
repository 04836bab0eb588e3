// Package app wires the tracking engine together: user actions flow through
// submission and polling into history refreshes, session transitions start
// and stop the background loops.
package app

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/Thekirgo/calcwatch/internal/correlation"
	"github.com/Thekirgo/calcwatch/internal/domain"
	apperrors "github.com/Thekirgo/calcwatch/internal/errors"
	"github.com/Thekirgo/calcwatch/internal/session"
	"github.com/Thekirgo/calcwatch/internal/track"
)

// AuthAPI is the slice of the API client the app needs for account actions.
type AuthAPI interface {
	Login(ctx context.Context, login, password string) (string, error)
	Register(ctx context.Context, login, password string) error
}

// App coordinates the engine components and owns the notification slot: every
// user-visible success or failure goes through exactly one Presenter.Notify
// call, replacing whatever was shown before.
type App struct {
	auth      AuthAPI
	sessions  *session.Context
	submitter *track.Submitter
	poller    *track.Poller
	history   *track.Synchronizer
	presenter domain.Presenter
	clock     clockwork.Clock

	rootCtx context.Context

	// generation guards against a stale poll acting on the UI after a newer
	// submission superseded it. The stale poll still runs to its terminal
	// outcome; its effects are simply dropped.
	generation atomic.Uint64
}

func New(
	auth AuthAPI,
	sessions *session.Context,
	submitter *track.Submitter,
	poller *track.Poller,
	history *track.Synchronizer,
	presenter domain.Presenter,
	clock clockwork.Clock,
) *App {
	return &App{
		auth:      auth,
		sessions:  sessions,
		submitter: submitter,
		poller:    poller,
		history:   history,
		presenter: presenter,
		clock:     clock,
	}
}

// Start hooks the app into session transitions and, when a persisted session
// already exists, brings the history view up immediately.
func (a *App) Start(ctx context.Context) {
	a.rootCtx = ctx
	a.history.Subscribe(a.presenter.ShowHistory)
	a.sessions.Subscribe(a)

	if a.sessions.Active() {
		a.history.Start(a.rootCtx)
		a.refreshHistory()
	}
}

// OnLogin implements domain.SessionListener.
func (a *App) OnLogin(domain.Credentials) {
	a.history.Start(a.rootCtx)
	a.refreshHistory()
}

// OnLogout implements domain.SessionListener.
func (a *App) OnLogout() {
	a.history.Stop()
}

// Login exchanges credentials for a token and establishes the session. The
// issuance instant is the wall-clock time the login response was received.
func (a *App) Login(ctx context.Context, login, password string) error {
	if strings.TrimSpace(login) == "" || strings.TrimSpace(password) == "" {
		err := apperrors.New(apperrors.KindValidation, "enter a login and password")
		a.presenter.Notify(domain.NoticeError, err.UserMessage())
		return err
	}

	token, err := a.auth.Login(ctx, login, password)
	if err != nil {
		classified := apperrors.AsClassified(err)
		a.presenter.Notify(domain.NoticeError, classified.UserMessage())
		return classified
	}

	creds := domain.Credentials{
		Token:    token,
		IssuedAt: a.clock.Now(),
		Username: login,
	}

	// Success is shown first; the listener chain then runs the immediate
	// history refresh, and a refresh failure replaces the notice.
	a.presenter.Notify(domain.NoticeSuccess, "You are now logged in")
	if err := a.sessions.Login(creds); err != nil {
		classified := apperrors.AsClassified(err)
		a.presenter.Notify(domain.NoticeError, classified.UserMessage())
		return classified
	}
	return nil
}

// Register creates an account. It does not log in.
func (a *App) Register(ctx context.Context, login, password string) error {
	if strings.TrimSpace(login) == "" || strings.TrimSpace(password) == "" {
		err := apperrors.New(apperrors.KindValidation, "enter a login and password")
		a.presenter.Notify(domain.NoticeError, err.UserMessage())
		return err
	}

	if err := a.auth.Register(ctx, login, password); err != nil {
		classified := apperrors.AsClassified(err)
		a.presenter.Notify(domain.NoticeError, classified.UserMessage())
		return classified
	}

	a.presenter.Notify(domain.NoticeSuccess, "Registration complete, you can now log in")
	return nil
}

// Logout tears the session down; the session listener chain stops the
// background refresh loop before this returns.
func (a *App) Logout() error {
	if err := a.sessions.Logout(); err != nil {
		classified := apperrors.AsClassified(err)
		a.presenter.Notify(domain.NoticeError, classified.UserMessage())
		return classified
	}

	a.presenter.ClearNotice()
	a.presenter.ShowSession(domain.SessionState{})
	return nil
}

// Evaluate submits one expression and follows it to a terminal outcome. A
// newer submission supersedes the UI effects of a still-running one.
func (a *App) Evaluate(ctx context.Context, text string) error {
	ctx = correlation.WithID(ctx, correlation.NewID())

	id, err := a.submitter.Submit(ctx, text)
	if err != nil {
		classified := apperrors.AsClassified(err)
		a.presenter.Notify(domain.NoticeError, classified.UserMessage())
		return classified
	}

	gen := a.generation.Add(1)
	outcome := a.poller.Track(ctx, id)

	if a.generation.Load() != gen {
		slog.InfoContext(ctx, "Poll outcome superseded by newer submission", "job_id", id, "state", outcome.State.String())
		return nil
	}

	switch outcome.State {
	case track.PollSucceeded:
		a.presenter.ClearNotice()
		if outcome.HasResult {
			a.presenter.ShowResult(outcome.Result)
		} else {
			a.presenter.ShowResult(nil)
		}
		return nil
	default:
		a.presenter.Notify(domain.NoticeError, outcome.Err.UserMessage())
		return outcome.Err
	}
}

func (a *App) refreshHistory() {
	ctx := correlation.WithID(a.rootCtx, correlation.NewID())
	if _, err := a.history.Refresh(ctx); err != nil {
		classified := apperrors.AsClassified(err)
		slog.WarnContext(ctx, "History refresh failed", "error", classified)
		a.presenter.Notify(domain.NoticeError, classified.UserMessage())
	}
}
