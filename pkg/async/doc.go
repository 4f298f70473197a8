// Package async provides a small generic Future type for running blocking
// calls in the background and waiting on them with a deadline.
//
// The notification service uses it to bound backing-store I/O: a stuck
// Redis or Postgres call surfaces as ErrTimeout instead of hanging the
// pipeline.
//
//	blob, err := async.WithTimeout(ctx, 5*time.Second, func(ctx context.Context) ([]byte, error) {
//	    return store.Get(ctx, key)
//	})
//	if errors.Is(err, async.ErrTimeout) {
//	    // log and serve cached data
//	}
package async
