package webhook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/propnotify/pkg/backoff"
	"github.com/dmitrymomot/propnotify/pkg/webhook"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestSender_Send(t *testing.T) {
	t.Parallel()

	t.Run("delivers signed payload", func(t *testing.T) {
		t.Parallel()

		var gotErr error
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			gotErr = webhook.VerifyRequest("s3cret", r.Header, body, time.Minute)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "tenant-1", r.Header.Get("X-Tenant"))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		s := webhook.NewSender(webhook.WithSecret("s3cret"), webhook.WithHeader("X-Tenant", "tenant-1"))
		err := s.Send(context.Background(), srv.URL, map[string]string{"title": "Leak"})
		require.NoError(t, err)
		assert.NoError(t, gotErr)
	})

	t.Run("retries temporary failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		var attempts []int
		s := webhook.NewSender(
			webhook.WithMaxRetries(3),
			webhook.WithBackoff(backoff.Fixed{Interval: time.Millisecond}),
			webhook.WithSleep(noSleep),
			webhook.WithOnAttempt(func(a webhook.Attempt) { attempts = append(attempts, a.Number) }),
		)
		require.NoError(t, s.Send(context.Background(), srv.URL, map[string]int{"n": 1}))
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, []int{1, 2, 3}, attempts)
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "bad request", http.StatusBadRequest)
		}))
		defer srv.Close()

		s := webhook.NewSender(webhook.WithSleep(noSleep))
		err := s.Send(context.Background(), srv.URL, map[string]int{"n": 1})
		require.ErrorIs(t, err, webhook.ErrPermanentFailure)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("exhausted retries", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		s := webhook.NewSender(webhook.WithMaxRetries(2), webhook.WithSleep(noSleep))
		err := s.Send(context.Background(), srv.URL, map[string]int{"n": 1})
		require.ErrorIs(t, err, webhook.ErrDeliveryFailed)
	})

	t.Run("open circuit short-circuits", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		cb := webhook.NewCircuitBreaker(2, time.Hour, 1)
		s := webhook.NewSender(webhook.WithMaxRetries(1), webhook.WithSleep(noSleep), webhook.WithCircuitBreaker(cb))
		require.ErrorIs(t, s.Send(context.Background(), srv.URL, 1), webhook.ErrDeliveryFailed)
		assert.Equal(t, webhook.CircuitOpen, cb.State())
		require.ErrorIs(t, s.Send(context.Background(), srv.URL, 1), webhook.ErrCircuitOpen)
	})

	t.Run("invalid endpoints", func(t *testing.T) {
		t.Parallel()

		s := webhook.NewSender()
		for _, endpoint := range []string{"", "ftp://example.com", "http://"} {
			err := s.Send(context.Background(), endpoint, 1)
			assert.ErrorIs(t, err, webhook.ErrInvalidURL, endpoint)
		}
	})
}
