package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/propnotify/pkg/events"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/realtime"
)

// DefaultPingInterval is used when the feed is built without WithPingInterval.
const DefaultPingInterval = 15 * time.Second

// Feed delivers row changes published on Redis pub/sub channels named
// <prefix>:<resource>. Payloads are JSON objects {"action","new","old"}.
type Feed struct {
	client       redis.UniversalClient
	prefix       string
	pingInterval time.Duration
	logger       *slog.Logger

	mu          sync.Mutex
	subs        map[*feedSub]struct{}
	stopMonitor context.CancelFunc
	onLost      func(error)
}

type feedSub struct {
	resource string
	ps       *redis.PubSub
	done     chan struct{}
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithChannelPrefix sets the channel namespace. Empty means bare resource names.
func WithChannelPrefix(prefix string) FeedOption {
	return func(f *Feed) {
		f.prefix = prefix
	}
}

// WithPingInterval sets how often the connection is probed while at least
// one subscription is active.
func WithPingInterval(d time.Duration) FeedOption {
	return func(f *Feed) {
		if d > 0 {
			f.pingInterval = d
		}
	}
}

func WithFeedLogger(l *slog.Logger) FeedOption {
	return func(f *Feed) {
		if l != nil {
			f.logger = l
		}
	}
}

var (
	_ realtime.ChangeFeed         = (*Feed)(nil)
	_ realtime.ConnectionNotifier = (*Feed)(nil)
)

func NewFeed(client redis.UniversalClient, opts ...FeedOption) *Feed {
	if client == nil {
		panic("redis: nil client")
	}
	f := &Feed{
		client:       client,
		prefix:       "changes",
		pingInterval: DefaultPingInterval,
		logger:       slog.Default(),
		subs:         make(map[*feedSub]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFeedFromConfig builds a feed using the channel prefix and ping
// interval from cfg.
func NewFeedFromConfig(client redis.UniversalClient, cfg Config, opts ...FeedOption) *Feed {
	return NewFeed(client, append([]FeedOption{
		WithChannelPrefix(cfg.ChannelPrefix),
		WithPingInterval(cfg.PingInterval),
	}, opts...)...)
}

// Channel returns the pub/sub channel carrying changes for resource.
func (f *Feed) Channel(resource string) string {
	if f.prefix == "" {
		return resource
	}
	return f.prefix + ":" + resource
}

// NotifyConnectionLost registers fn to be called when a probe fails while
// subscriptions are active. Only the latest fn is kept.
func (f *Feed) NotifyConnectionLost(fn func(err error)) {
	f.mu.Lock()
	f.onLost = fn
	f.mu.Unlock()
}

// Subscribe listens on the resource channel. It returns once the server has
// confirmed the subscription.
func (f *Feed) Subscribe(ctx context.Context, resource string, onChange func(events.Change)) (realtime.Handle, error) {
	ps := f.client.Subscribe(ctx, f.Channel(resource))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Join(ErrSubscribeFailed, err)
	}

	sub := &feedSub{resource: resource, ps: ps, done: make(chan struct{})}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	if f.stopMonitor == nil {
		mctx, cancel := context.WithCancel(context.Background())
		f.stopMonitor = cancel
		go f.monitor(mctx)
	}
	f.mu.Unlock()

	go f.consume(sub, onChange)
	return sub, nil
}

// Unsubscribe closes the subscription behind h. Unknown handles yield
// ErrInvalidHandle; a handle closed twice is a no-op.
func (f *Feed) Unsubscribe(_ context.Context, h realtime.Handle) error {
	sub, ok := h.(*feedSub)
	if !ok {
		return ErrInvalidHandle
	}

	f.mu.Lock()
	if _, active := f.subs[sub]; !active {
		f.mu.Unlock()
		return nil
	}
	delete(f.subs, sub)
	if len(f.subs) == 0 && f.stopMonitor != nil {
		f.stopMonitor()
		f.stopMonitor = nil
	}
	f.mu.Unlock()

	err := sub.ps.Close()
	<-sub.done
	return err
}

// Publish sends c on the resource channel.
func (f *Feed) Publish(ctx context.Context, resource string, c events.Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	if err := f.client.Publish(ctx, f.Channel(resource), payload).Err(); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

func (f *Feed) consume(sub *feedSub, onChange func(events.Change)) {
	defer close(sub.done)
	for msg := range sub.ps.Channel() {
		var c events.Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			f.logger.LogAttrs(context.Background(), slog.LevelWarn, "dropping malformed change",
				logger.Component("redis_feed"),
				logger.Resource(sub.resource),
				logger.Error(err),
			)
			continue
		}
		onChange(c)
	}
}

// monitor pings the server and reports the first failure of each outage.
func (f *Feed) monitor(ctx context.Context) {
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := f.client.Ping(ctx).Err()
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			healthy = true
			continue
		}
		if !healthy {
			continue
		}
		healthy = false

		f.logger.LogAttrs(ctx, slog.LevelWarn, "redis connection lost",
			logger.Component("redis_feed"),
			logger.Error(err),
		)
		f.mu.Lock()
		fn := f.onLost
		f.mu.Unlock()
		if fn != nil {
			fn(err)
		}
	}
}
