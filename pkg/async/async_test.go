package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/propnotify/pkg/async"
)

func TestAsync_Await(t *testing.T) {
	t.Parallel()

	f := async.Async(context.Background(), 21, func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})

	res, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.True(t, f.IsComplete())
}

func TestAsync_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	f := async.Async(ctx, 1, func(_ context.Context, n int) (int, error) {
		called = true
		return n, nil
	})

	_, err := f.Await()
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestFuture_AwaitWithTimeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)

	f := async.Async(context.Background(), 0, func(_ context.Context, _ int) (string, error) {
		<-block
		return "late", nil
	})

	res, err := f.AwaitWithTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, async.ErrTimeout)
	assert.Empty(t, res)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	t.Run("returns result before deadline", func(t *testing.T) {
		res, err := async.WithTimeout(context.Background(), time.Second, func(context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", res)
	})

	t.Run("propagates function error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := async.WithTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("times out stuck call", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		_, err := async.WithTimeout(context.Background(), 20*time.Millisecond, func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
		assert.ErrorIs(t, err, async.ErrTimeout)
	})

	t.Run("zero timeout calls directly", func(t *testing.T) {
		res, err := async.WithTimeout(context.Background(), 0, func(context.Context) (int, error) {
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, res)
	})
}

func TestWaitAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	double := func(_ context.Context, n int) (int, error) { return n * 2, nil }

	results, err := async.WaitAll(
		async.Async(ctx, 1, double),
		async.Async(ctx, 2, double),
		async.Async(ctx, 3, double),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, results)
}
