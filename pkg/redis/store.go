package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Store keeps blobs in plain Redis string keys. Keys never expire.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// NewStore wraps client. A non-empty prefix namespaces every key as
// prefix + ":" + key.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if client == nil {
		panic("redis: nil client")
	}
	if prefix != "" {
		prefix += ":"
	}
	return &Store{client: client, prefix: prefix}
}

// Get returns nil, nil when key does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
