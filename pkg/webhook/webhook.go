package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/backoff"
	"github.com/dmitrymomot/propnotify/pkg/logger"
)

// Sender posts JSON payloads to webhook endpoints.
type Sender struct {
	client     *http.Client
	timeout    time.Duration
	secret     string
	headers    http.Header
	maxRetries int
	backoff    backoff.Strategy
	circuit    *CircuitBreaker
	onAttempt  func(Attempt)
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// NewSender creates a Sender. Without options it retries 3 times with
// jittered exponential backoff and does not sign requests.
func NewSender(opts ...Option) *Sender {
	s := &Sender{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:    10 * time.Second,
		headers:    make(http.Header),
		maxRetries: 3,
		backoff:    backoff.Exponential{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2, Jitter: 0.1},
		logger:     slog.Default(),
		sleep:      sleepContext,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send marshals data to JSON and delivers it to endpoint.
func (s *Sender) Send(ctx context.Context, endpoint string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}
	return s.SendRaw(ctx, endpoint, payload)
}

// SendRaw delivers an already encoded JSON payload.
func (s *Sender) SendRaw(ctx context.Context, endpoint string, payload []byte) error {
	if err := validateEndpoint(endpoint); err != nil {
		return err
	}
	if len(payload) == 0 {
		return ErrInvalidPayload
	}
	if s.circuit != nil && !s.circuit.Allow() {
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries+1; attempt++ {
		if attempt > 1 {
			delay := s.backoff.NextInterval(attempt - 1)
			s.logger.LogAttrs(ctx, slog.LevelDebug, "retrying webhook delivery",
				logger.Attempt(attempt),
				logger.Duration(delay),
				logger.Error(lastErr),
			)
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
		}

		status, dur, err := s.deliver(ctx, endpoint, payload)
		if s.onAttempt != nil {
			s.onAttempt(Attempt{Number: attempt, StatusCode: status, Duration: dur, Err: err})
		}
		if s.circuit != nil {
			if err == nil {
				s.circuit.RecordSuccess()
			} else {
				s.circuit.RecordFailure()
			}
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if isPermanent(status) {
			return errors.Join(ErrPermanentFailure, err)
		}
	}

	return errors.Join(ErrDeliveryFailed, fmt.Errorf("after %d attempts", s.maxRetries+1), lastErr)
}

func (s *Sender) deliver(ctx context.Context, endpoint string, payload []byte) (int, time.Duration, error) {
	start := s.now()
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "propnotify-webhook/1.0")
	for k, v := range s.headers {
		req.Header[k] = v
	}
	if s.secret != "" {
		sig, err := Sign(s.secret, payload, start)
		if err != nil {
			return 0, 0, err
		}
		sig.Apply(req.Header)
	}

	resp, err := s.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return 0, elapsed, errors.Join(ErrTimeout, err)
		}
		return 0, elapsed, errors.Join(ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, elapsed, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.ReplaceAll(string(body), "\n", " ")
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return resp.StatusCode, elapsed, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, msg)
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.Join(ErrInvalidURL, errors.New("URL is required"))
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.Join(ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Join(ErrInvalidURL, errors.New("only http and https are supported"))
	}
	if u.Host == "" {
		return errors.Join(ErrInvalidURL, errors.New("host is required"))
	}
	return nil
}

// isPermanent reports whether a status code will not change on retry.
func isPermanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
