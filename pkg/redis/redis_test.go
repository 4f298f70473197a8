package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/propnotify/pkg/events"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/redis"
)

// testClient connects to REDIS_TEST_URL or skips the test.
func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		RetryInterval:  time.Millisecond,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("empty url", func(t *testing.T) {
		t.Parallel()
		_, err := redis.Connect(context.Background(), redis.Config{})
		assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()
		_, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: "http://localhost"})
		assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := redis.Connect(ctx, redis.Config{
			ConnectionURL: "redis://127.0.0.1:1/0",
			RetryAttempts: 3,
			RetryInterval: time.Second,
		})
		assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	})
}

func TestFeedChannel(t *testing.T) {
	t.Parallel()

	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "changes:voucher", redis.NewFeed(client).Channel("voucher"))
	assert.Equal(t, "db:issue", redis.NewFeed(client, redis.WithChannelPrefix("db")).Channel("issue"))
	assert.Equal(t, "issue", redis.NewFeed(client, redis.WithChannelPrefix("")).Channel("issue"))
}

func TestFeedUnsubscribeForeignHandle(t *testing.T) {
	t.Parallel()

	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	err := redis.NewFeed(client).Unsubscribe(context.Background(), "not-a-handle")
	assert.ErrorIs(t, err, redis.ErrInvalidHandle)
}

func TestStore(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	store := redis.NewStore(client, "propnotify-test")

	key := "store-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Set(ctx, key, []byte(`{"a":1}`)))
	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	raw, err := client.Get(ctx, "propnotify-test:"+key).Result()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, raw)
}

func TestFeedDeliversChanges(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	feed := redis.NewFeed(client, redis.WithChannelPrefix("propnotify-test"), redis.WithFeedLogger(logger.Discard()))

	received := make(chan events.Change, 4)
	h, err := feed.Subscribe(ctx, "voucher", func(c events.Change) { received <- c })
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, feed.Channel("voucher"), "not json").Err())
	require.NoError(t, feed.Publish(ctx, "voucher", events.Change{
		Action: "INSERT",
		New:    map[string]any{"id": "v-1", "number": "V-100"},
	}))

	select {
	case c := <-received:
		assert.Equal(t, "INSERT", c.Action)
		assert.Equal(t, "V-100", c.New["number"])
	case <-time.After(5 * time.Second):
		t.Fatal("change not delivered")
	}

	require.NoError(t, feed.Unsubscribe(ctx, h))
	require.NoError(t, feed.Unsubscribe(ctx, h))
	assert.Empty(t, received)
}
