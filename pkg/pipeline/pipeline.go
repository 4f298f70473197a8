package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/propnotify/pkg/badge"
	"github.com/dmitrymomot/propnotify/pkg/broadcast"
	"github.com/dmitrymomot/propnotify/pkg/cache"
	"github.com/dmitrymomot/propnotify/pkg/events"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
	"github.com/dmitrymomot/propnotify/pkg/push"
	"github.com/dmitrymomot/propnotify/pkg/realtime"
	"github.com/dmitrymomot/propnotify/pkg/search"
)

// Pipeline turns change events into stored, pushed and broadcast
// notifications.
type Pipeline struct {
	store       *notifications.Store
	transformer *events.Transformer
	realtime    *realtime.Manager
	badges      *badge.Aggregator
	search      *search.Engine
	gateway     push.Gateway
	skipDeletes bool
	dedupSize   int
	topicBuffer int
	logger      *slog.Logger

	topic atomic.Pointer[broadcast.Topic[notifications.Notification]]
	seen  *cache.LRU[string, struct{}]

	pmu   sync.RWMutex
	prefs push.Preferences

	mu      sync.Mutex
	started bool
	detach  []func()
}

// New creates a pipeline over store. It panics when store is nil.
func New(store *notifications.Store, opts ...Option) *Pipeline {
	if store == nil {
		panic("pipeline: nil notification store")
	}
	p := &Pipeline{
		store:       store,
		transformer: events.NewTransformer(),
		gateway:     push.NoOpGateway{},
		prefs:       push.DefaultPreferences(),
		dedupSize:   DefaultDedupSize,
		topicBuffer: DefaultTopicBuffer,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.topic.Store(broadcast.NewTopic[notifications.Notification](p.topicBuffer))
	p.seen = cache.NewLRU[string, struct{}](p.dedupSize)
	return p
}

// Store returns the notification store.
func (p *Pipeline) Store() *notifications.Store { return p.store }

// Preferences returns the current push preferences.
func (p *Pipeline) Preferences() push.Preferences {
	p.pmu.RLock()
	defer p.pmu.RUnlock()
	return p.prefs
}

// SetPreferences replaces the push preferences.
func (p *Pipeline) SetPreferences(prefs push.Preferences) {
	p.pmu.Lock()
	p.prefs = prefs
	p.pmu.Unlock()
}

// Subscribe streams every notification created by HandleEvent until ctx is
// done or the subscription is closed.
func (p *Pipeline) Subscribe(ctx context.Context) *broadcast.Subscription[notifications.Notification] {
	return p.topic.Load().Subscribe(ctx)
}

// HandleEvent transforms ev, stores the result, pushes it when preferences
// allow and broadcasts it. It returns nil without error for events that are
// duplicates, skipped deletes or ignored by the transformer. Push failures
// are logged and never fail the call.
func (p *Pipeline) HandleEvent(ctx context.Context, ev events.Event) (*notifications.Notification, error) {
	log := p.logger.With(logger.EventID(ev.ID), logger.EventType(ev.Type))

	if ev.ID != "" && p.seen.Contains(ev.ID) {
		log.LogAttrs(ctx, slog.LevelDebug, "duplicate event dropped")
		return nil, nil
	}
	if p.skipDeletes && ev.Action == events.ActionDelete {
		return nil, nil
	}

	draft, ok := p.transformer.Transform(ev)
	if !ok {
		log.LogAttrs(ctx, slog.LevelDebug, "event ignored by transformer")
		return nil, nil
	}

	n, err := p.store.Add(ctx, draft)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelError, "failed to store notification", logger.Error(err))
		return nil, err
	}
	if ev.ID != "" {
		p.seen.Add(ev.ID, struct{}{})
	}

	p.push(ctx, n)
	p.topic.Load().Publish(ctx, n)
	return &n, nil
}

func (p *Pipeline) push(ctx context.Context, n notifications.Notification) {
	if !p.Preferences().Allows(n) {
		return
	}
	if err := p.gateway.Send(ctx, push.MessageFrom(n)); err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "push delivery failed",
			logger.NotificationID(n.ID),
			logger.Category(n.Category),
			logger.Error(err),
		)
	}
}

// Start loads the store, hooks badges and search into store changes and
// starts consuming realtime events. A failed realtime connect is logged;
// the manager keeps retrying on its own.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}

	if err := p.store.Load(ctx); err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "notification store not loaded, serving empty cache", logger.Error(err))
	}

	if p.search != nil {
		p.detach = append(p.detach, p.store.OnChange(func(notifications.ChangeEvent) { p.reindex() }))
		p.reindex()
	}

	if p.badges != nil {
		p.detach = append(p.detach, p.store.OnChange(p.badges.Notify))
		if err := p.badges.Start(ctx); err != nil {
			p.logger.LogAttrs(ctx, slog.LevelWarn, "initial badge refresh failed", logger.Error(err))
		}
		p.detach = append(p.detach, p.badges.Stop)
	}

	if p.realtime != nil {
		p.detach = append(p.detach, p.realtime.OnEvent(p.onRealtimeEvent))
		if err := p.realtime.Initialize(ctx); err != nil {
			p.logger.LogAttrs(ctx, slog.LevelWarn, "realtime connect failed, retrying in background", logger.Error(err))
		}
	}

	p.started = true
	return nil
}

// Stop disconnects everything Start connected, in reverse order, and closes
// every open new-notification subscription. Safe to call more than once.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}

	var err error
	if p.realtime != nil {
		err = p.realtime.Cleanup(ctx)
	}
	for i := len(p.detach) - 1; i >= 0; i-- {
		p.detach[i]()
	}
	p.detach = nil
	old := p.topic.Swap(broadcast.NewTopic[notifications.Notification](p.topicBuffer))
	old.Close()
	p.started = false
	return err
}

func (p *Pipeline) onRealtimeEvent(ev events.Event) {
	ctx := context.Background()
	if _, err := p.HandleEvent(ctx, ev); err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "realtime event not stored",
			logger.EventID(ev.ID),
			logger.Error(err),
		)
	}
}

func (p *Pipeline) reindex() {
	items, err := p.store.All(context.Background())
	if err != nil {
		p.logger.LogAttrs(context.Background(), slog.LevelWarn, "search reindex skipped", logger.Error(err))
		return
	}
	p.search.Index(items)
}
