package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/Thekirgo/calcwatch/internal/api"
	"github.com/Thekirgo/calcwatch/internal/app"
	"github.com/Thekirgo/calcwatch/internal/config"
	"github.com/Thekirgo/calcwatch/internal/domain"
	apperrors "github.com/Thekirgo/calcwatch/internal/errors"
	"github.com/Thekirgo/calcwatch/internal/logging"
	"github.com/Thekirgo/calcwatch/internal/session"
	"github.com/Thekirgo/calcwatch/internal/track"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStore(cfg *config.Config) *session.Store {
	store, err := session.NewStore(cfg.StatePath)
	if err != nil {
		slog.Error("Failed to open session store", "path", cfg.StatePath, "error", err)
		os.Exit(1)
	}
	return store
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("calcwatch starting", "server", cfg.ServerURL)

	store := setupStore(cfg)
	defer func() { _ = store.Close() }()

	sessions, err := session.NewContext(store)
	if err != nil {
		slog.Error("Failed to load session state", "error", err)
		os.Exit(1)
	}

	presenter := newTerminalPresenter(os.Stdout)
	client := api.NewClient(cfg.ServerURL, cfg.RequestTimeout, sessions)

	history := track.NewSynchronizer(client, clock, cfg.HistoryInterval, func(err *apperrors.Error) {
		presenter.Notify(domain.NoticeError, err.UserMessage())
	})
	poller := track.NewPoller(client, clock, track.PollPolicy{
		MaxAttempts: cfg.PollMaxAttempts,
		Interval:    cfg.PollInterval,
	}, func(ctx context.Context) {
		_, _ = history.Refresh(ctx)
	})
	submitter := track.NewSubmitter(client)
	guard := session.NewGuard(sessions, clock, presenter.ShowSession)

	application := app.New(client, sessions, submitter, poller, history, presenter, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Shutdown signal received")
		cancel()
	}()

	application.Start(ctx)
	go guard.Run(ctx)

	runCommandLoop(ctx, application, presenter, sessions)

	history.Stop()
	slog.Info("calcwatch stopped")
}

func runCommandLoop(ctx context.Context, application *app.App, presenter *terminalPresenter, sessions *session.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println("calcwatch: type an expression, or: login <user> <password>, register <user> <password>, logout, history, quit")

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := dispatch(ctx, application, presenter, sessions, line); quit {
				return
			}
		}
	}
}

func dispatch(ctx context.Context, application *app.App, presenter *terminalPresenter, sessions *session.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit":
		return true
	case "login":
		if len(fields) != 3 {
			fmt.Println("usage: login <user> <password>")
			return false
		}
		_ = application.Login(ctx, fields[1], fields[2])
	case "register":
		if len(fields) != 3 {
			fmt.Println("usage: register <user> <password>")
			return false
		}
		_ = application.Register(ctx, fields[1], fields[2])
	case "logout":
		_ = application.Logout()
	case "history":
		presenter.PrintHistory()
	default:
		if !sessions.Active() {
			fmt.Println("log in first")
			return false
		}
		_ = application.Evaluate(ctx, line)
	}
	return false
}
