package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/async"
)

// Store is a key to blob mapping.
type Store interface {
	// Get returns the value stored under key, or nil when nothing is stored.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// DefaultTimeout bounds backing store calls made through WithTimeout.
const DefaultTimeout = 5 * time.Second

type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout bounds every call to next by timeout. A non-positive timeout
// uses DefaultTimeout. Timed out calls return an error wrapping ErrTimeout.
func WithTimeout(next Store, timeout time.Duration) Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutStore{next: next, timeout: timeout}
}

func (s *timeoutStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := async.WithTimeout(ctx, s.timeout, func(ctx context.Context) ([]byte, error) {
		return s.next.Get(ctx, key)
	})
	return v, wrapTimeout(err)
}

func (s *timeoutStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := async.WithTimeout(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.Set(ctx, key, value)
	})
	return wrapTimeout(err)
}

func wrapTimeout(err error) error {
	if err != nil && errors.Is(err, async.ErrTimeout) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}

type prefixStore struct {
	next   Store
	prefix string
}

// WithPrefix namespaces every key as prefix + ":" + key.
func WithPrefix(next Store, prefix string) Store {
	if prefix == "" {
		return next
	}
	return &prefixStore{next: next, prefix: prefix + ":"}
}

func (s *prefixStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.next.Get(ctx, s.prefix+key)
}

func (s *prefixStore) Set(ctx context.Context, key string, value []byte) error {
	return s.next.Set(ctx, s.prefix+key, value)
}
