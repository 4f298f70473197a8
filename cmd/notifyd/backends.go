package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/propnotify/pkg/config"
	"github.com/dmitrymomot/propnotify/pkg/httpserver"
	"github.com/dmitrymomot/propnotify/pkg/kvstore"
	"github.com/dmitrymomot/propnotify/pkg/mongo"
	"github.com/dmitrymomot/propnotify/pkg/pg"
	"github.com/dmitrymomot/propnotify/pkg/redis"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverNone     = "none"
)

var ErrUnknownDriver = errors.New("unknown driver")

// backends holds the connections opened for the selected drivers.
type backends struct {
	kv     kvstore.Store
	redis  *goredis.Client
	checks []httpserver.Check
	close  []func()
}

func (b *backends) Close() {
	for i := len(b.close) - 1; i >= 0; i-- {
		b.close[i]()
	}
	b.close = nil
}

// redisClient connects once and is shared by the store and the feed.
func (b *backends) redisClient(ctx context.Context) (*goredis.Client, redis.Config, error) {
	cfg, err := config.Load[redis.Config]()
	if err != nil {
		return nil, cfg, err
	}
	if b.redis != nil {
		return b.redis, cfg, nil
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	b.redis = client
	b.checks = append(b.checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
	b.close = append(b.close, func() { _ = client.Close() })
	return client, cfg, nil
}

// openStore opens the backing store named by driver.
func (b *backends) openStore(ctx context.Context, driver string, log *slog.Logger) error {
	switch driver {
	case DriverMemory, "":
		b.kv = kvstore.NewMemory()

	case DriverRedis:
		client, cfg, err := b.redisClient(ctx)
		if err != nil {
			return err
		}
		b.kv = redis.NewStore(client, cfg.KeyPrefix)

	case DriverPostgres:
		cfg, err := config.Load[pg.Config]()
		if err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		b.close = append(b.close, pool.Close)
		if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
			return err
		}
		b.kv = pg.NewStore(pool)
		b.checks = append(b.checks, httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)})

	case DriverMongo:
		cfg, err := config.Load[mongo.Config]()
		if err != nil {
			return err
		}
		client, err := mongo.New(ctx, cfg)
		if err != nil {
			return err
		}
		b.close = append(b.close, func() { _ = client.Disconnect(context.Background()) })
		b.kv = mongo.NewStoreFromConfig(client, cfg)
		b.checks = append(b.checks, httpserver.Check{Name: "mongo", Probe: mongo.Healthcheck(client)})

	default:
		return fmt.Errorf("%w: storage %q", ErrUnknownDriver, driver)
	}
	return nil
}

// openFeed returns the change feed named by driver, or nil for "none".
func (b *backends) openFeed(ctx context.Context, driver string, log *slog.Logger) (*redis.Feed, error) {
	switch driver {
	case DriverNone, "":
		return nil, nil
	case DriverRedis:
		client, cfg, err := b.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return redis.NewFeedFromConfig(client, cfg, redis.WithFeedLogger(log)), nil
	default:
		return nil, fmt.Errorf("%w: feed %q", ErrUnknownDriver, driver)
	}
}
