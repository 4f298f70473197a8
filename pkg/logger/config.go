package logger

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidConfig is returned by NewFromConfig for unknown levels or formats.
var ErrInvalidConfig = errors.New("logger: invalid config")

// Config is loaded with config.Load. Level and Format override the
// environment defaults when set.
type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"SERVICE_NAME" envDefault:"propnotify"`
	Level   string `env:"LOG_LEVEL"`
	Format  string `env:"LOG_FORMAT"`
	Source  bool   `env:"LOG_SOURCE" envDefault:"false"`
}

// NewFromConfig builds a logger from cfg; opts are applied last.
func NewFromConfig(cfg Config, opts ...Option) (*slog.Logger, error) {
	base := []Option{WithEnvironment(cfg.Env, cfg.Service)}

	if cfg.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		base = append(base, WithLevel(level))
	}
	if cfg.Format != "" {
		f := Format(strings.ToLower(cfg.Format))
		if f != FormatJSON && f != FormatText {
			return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("unknown log format %q", cfg.Format))
		}
		base = append(base, WithFormat(f))
	}
	if cfg.Source {
		base = append(base, WithSource())
	}
	return New(append(base, opts...)...), nil
}
