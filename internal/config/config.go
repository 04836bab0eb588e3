package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	ServerURL string `env:"CALC_SERVER_URL" default:"http://localhost:8080"`
	StatePath string `env:"CALC_STATE_PATH" default:"calcwatch.db"`

	PollMaxAttempts int           `env:"POLL_MAX_ATTEMPTS" default:"20"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" default:"1s"`
	HistoryInterval time.Duration `env:"HISTORY_INTERVAL" default:"3s"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" default:"10s"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CALC_SERVER_URL must be an absolute URL, got %q", cfg.ServerURL)
	}

	if cfg.PollMaxAttempts < 1 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be at least 1, got %d", cfg.PollMaxAttempts)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %v", cfg.PollInterval)
	}
	if cfg.HistoryInterval <= 0 {
		return fmt.Errorf("HISTORY_INTERVAL must be positive, got %v", cfg.HistoryInterval)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %v", cfg.RequestTimeout)
	}

	return nil
}
