// Package redis connects to Redis and adapts it to the notification pipeline.
//
// The package wraps the go-redis client and adds:
//
//   - Connect, which retries the connection using the supplied configuration.
//   - Store, a kvstore.Store backed by plain string keys.
//   - Feed, a realtime.ChangeFeed over pub/sub channels named
//     <prefix>:<resource>. It pings the server while subscribed and reports
//     outages through NotifyConnectionLost.
//   - Healthcheck, a probe for liveness or readiness endpoints.
//
// # Usage
//
//	cfg, err := config.Load[redis.Config]()
//	if err != nil {
//	    return err
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	store := redis.NewStore(client, cfg.KeyPrefix)
//	feed := redis.NewFeedFromConfig(client, cfg)
//
// A producer publishes row changes as JSON:
//
//	_ = feed.Publish(ctx, "voucher", events.Change{
//	    Action: "INSERT",
//	    New:    map[string]any{"id": "v-1", "number": "V-100"},
//	})
//
// # Errors
//
// Sentinel errors (ErrRedisNotReady, ErrSubscribeFailed, ...) wrap the
// underlying go-redis errors using errors.Join.
package redis
