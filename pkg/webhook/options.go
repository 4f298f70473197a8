package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/backoff"
)

// Attempt describes a single delivery attempt.
type Attempt struct {
	Number     int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout bounds each attempt. Default is 10s.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSecret enables request signing.
func WithSecret(secret string) Option {
	return func(s *Sender) {
		s.secret = secret
	}
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(s *Sender) {
		if key != "" && value != "" {
			s.headers.Set(key, value)
		}
	}
}

// WithMaxRetries sets how many retries follow the first attempt. Default is 3.
func WithMaxRetries(n int) Option {
	return func(s *Sender) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoff sets the delay strategy between attempts.
func WithBackoff(strategy backoff.Strategy) Option {
	return func(s *Sender) {
		if strategy != nil {
			s.backoff = strategy
		}
	}
}

// WithCircuitBreaker guards the sender with cb. Pass nil to disable.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(s *Sender) {
		s.circuit = cb
	}
}

// WithOnAttempt registers a hook called after every attempt.
func WithOnAttempt(fn func(Attempt)) Option {
	return func(s *Sender) {
		s.onAttempt = fn
	}
}

// WithLogger sets the logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSleep overrides the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Sender) {
		if fn != nil {
			s.sleep = fn
		}
	}
}
