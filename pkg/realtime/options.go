package realtime

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/backoff"
)

// DefaultResources is the watch list used when none is configured.
var DefaultResources = []string{
	"maintenance_request",
	"voucher",
	"property_reservation",
	"contract",
	"issue",
}

const DefaultMaxAttempts = 5

// Config is the env-driven manager configuration.
type Config struct {
	Resources      []string      `env:"REALTIME_RESOURCES" envDefault:"maintenance_request,voucher,property_reservation,contract,issue" envSeparator:","`
	MaxAttempts    int           `env:"REALTIME_MAX_ATTEMPTS" envDefault:"5"`
	InitialBackoff time.Duration `env:"REALTIME_INITIAL_BACKOFF" envDefault:"1s"`
	MaxBackoff     time.Duration `env:"REALTIME_MAX_BACKOFF" envDefault:"30s"`
}

// Options converts the config into manager options.
func (c Config) Options() []Option {
	return []Option{
		WithResources(c.Resources...),
		WithMaxAttempts(c.MaxAttempts),
		WithBackoff(backoff.Exponential{Initial: c.InitialBackoff, Max: c.MaxBackoff, Multiplier: 2}),
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithResources replaces the watch list.
func WithResources(resources ...string) Option {
	return func(m *Manager) {
		if len(resources) > 0 {
			m.watch = dedupe(resources)
		}
	}
}

func WithAuthenticator(a Authenticator) Option {
	return func(m *Manager) {
		m.auth = a
	}
}

// WithBackoff replaces the reconnect delay strategy.
func WithBackoff(s backoff.Strategy) Option {
	return func(m *Manager) {
		if s != nil {
			m.strategy = s
		}
	}
}

// WithMaxAttempts sets how many consecutive failures end the retry loop.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithScheduler replaces time.AfterFunc.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) {
		if s != nil {
			m.scheduler = s
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
