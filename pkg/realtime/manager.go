package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/backoff"
	"github.com/dmitrymomot/propnotify/pkg/events"
	"github.com/dmitrymomot/propnotify/pkg/logger"
)

// Manager owns one subscription per watched resource. Safe for concurrent use.
type Manager struct {
	feed        ChangeFeed
	auth        Authenticator
	strategy    backoff.Strategy
	maxAttempts int
	scheduler   Scheduler
	logger      *slog.Logger
	now         func() time.Time

	// op serializes operations that talk to the feed.
	op sync.Mutex

	mu       sync.Mutex
	watch    []string
	subs     map[string]*subscription
	status   Status
	attempts int
	timer    Timer
	gen      uint64

	lmu             sync.RWMutex
	nextListener    uint64
	statusListeners map[uint64]func(Status)
	eventListeners  map[uint64]func(events.Event)
}

// New creates a manager over feed. It panics when feed is nil.
func New(feed ChangeFeed, opts ...Option) *Manager {
	if feed == nil {
		panic("realtime: nil change feed")
	}
	m := &Manager{
		feed:            feed,
		strategy:        backoff.Default(),
		maxAttempts:     DefaultMaxAttempts,
		scheduler:       timeScheduler{},
		logger:          slog.Default(),
		now:             time.Now,
		watch:           slices.Clone(DefaultResources),
		subs:            make(map[string]*subscription),
		statusListeners: make(map[uint64]func(Status)),
		eventListeners:  make(map[uint64]func(events.Event)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.status = Status{State: StateDisconnected, UpdatedAt: m.now()}

	if n, ok := feed.(ConnectionNotifier); ok {
		n.NotifyConnectionLost(m.connectionLost)
	}
	return m
}

// NewFromConfig creates a manager from env config. Explicit opts win.
func NewFromConfig(feed ChangeFeed, cfg Config, opts ...Option) *Manager {
	return New(feed, append(cfg.Options(), opts...)...)
}

// Initialize authenticates and subscribes to every watched resource. On
// failure the status becomes StateError, a retry is scheduled and the error
// is returned.
func (m *Manager) Initialize(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	m.cancelRetryLocked()
	m.attempts = 0
	m.mu.Unlock()

	return m.connect(ctx)
}

// Reconnect cancels any pending retry, resets the failure counter and
// connects immediately.
func (m *Manager) Reconnect(ctx context.Context) error {
	return m.Initialize(ctx)
}

// Subscribe (re)subscribes resource and adds it to the watch list. An
// active subscription is torn down first.
func (m *Manager) Subscribe(ctx context.Context, resource string) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	if !slices.Contains(m.watch, resource) {
		m.watch = append(m.watch, resource)
	}
	m.mu.Unlock()

	return m.subscribe(ctx, resource)
}

// Unsubscribe tears down resource and removes it from the watch list.
// Unknown or inactive resources are a no-op.
func (m *Manager) Unsubscribe(ctx context.Context, resource string) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	m.watch = slices.DeleteFunc(m.watch, func(r string) bool { return r == resource })
	sub := m.subs[resource]
	delete(m.subs, resource)
	m.mu.Unlock()

	if sub == nil {
		return nil
	}
	return m.teardown(ctx, sub)
}

// Cleanup cancels any pending retry, unsubscribes every resource and resets
// the status to disconnected. Safe to call repeatedly and from any state.
// The watch list is kept so Initialize can be called again.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	m.cancelRetryLocked()
	m.attempts = 0
	subs := make([]*subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	clear(m.subs)
	m.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := m.teardown(ctx, sub); err != nil {
			errs = append(errs, err)
		}
	}
	m.setStatus(ctx, Status{State: StateDisconnected})
	return errors.Join(errs...)
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Resources returns the watch list.
func (m *Manager) Resources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.watch)
}

// Subscriptions returns a snapshot of every tracked resource sorted by name.
func (m *Manager) Subscriptions() []Subscription {
	m.mu.Lock()
	out := make([]Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, Subscription{
			Resource: sub.resource,
			Handle:   sub.handle,
			IsActive: sub.handle != nil,
			State:    sub.machine.Current(),
		})
	}
	m.mu.Unlock()

	slices.SortFunc(out, func(a, b Subscription) int { return strings.Compare(a.Resource, b.Resource) })
	return out
}

// connect runs one connection attempt. Caller holds m.op.
func (m *Manager) connect(ctx context.Context) error {
	m.setStatus(ctx, Status{State: StateConnecting, Attempt: m.currentAttempt()})

	if m.auth != nil {
		if err := m.auth.Authenticate(ctx); err != nil {
			err = errors.Join(ErrAuthFailed, err)
			m.fail(ctx, err)
			return err
		}
	}

	for _, resource := range m.Resources() {
		if err := m.subscribe(ctx, resource); err != nil {
			m.fail(ctx, err)
			return err
		}
	}

	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()
	m.setStatus(ctx, Status{State: StateConnected})
	return nil
}

func (m *Manager) currentAttempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// fail records a failed attempt and either schedules the next one or gives up.
func (m *Manager) fail(ctx context.Context, cause error) {
	m.mu.Lock()
	m.attempts++
	attempt := m.attempts

	if attempt >= m.maxAttempts {
		m.mu.Unlock()
		m.logger.LogAttrs(ctx, slog.LevelError, "realtime reconnect abandoned",
			logger.Attempt(attempt),
			logger.Error(cause),
		)
		m.setStatus(ctx, Status{
			State:   StateError,
			Message: errors.Join(ErrGaveUp, fmt.Errorf("after %d attempts", attempt), cause).Error(),
			Attempt: attempt,
		})
		return
	}

	delay := m.strategy.NextInterval(attempt)
	m.cancelRetryLocked()
	gen := m.gen
	m.timer = m.scheduler.AfterFunc(delay, func() { m.retry(gen) })
	m.mu.Unlock()

	m.logger.LogAttrs(ctx, slog.LevelWarn, "realtime connection failed, retry scheduled",
		logger.Attempt(attempt),
		logger.Duration(delay),
		logger.Error(cause),
	)
	m.setStatus(ctx, Status{
		State:     StateError,
		Message:   cause.Error(),
		Attempt:   attempt,
		NextRetry: delay,
	})
}

func (m *Manager) retry(gen uint64) {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	_ = m.connect(context.Background())
}

// cancelRetryLocked stops a pending retry and invalidates callbacks that
// already fired. Caller holds m.mu.
func (m *Manager) cancelRetryLocked() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// subscribe (re)subscribes one resource. Caller holds m.op.
func (m *Manager) subscribe(ctx context.Context, resource string) error {
	m.mu.Lock()
	sub := m.subs[resource]
	if sub == nil {
		sub = newSubscription(resource)
		m.subs[resource] = sub
	}
	m.mu.Unlock()

	if err := m.teardown(ctx, sub); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to tear down previous subscription",
			logger.Resource(resource),
			logger.Error(err),
		)
	}

	sub.fire(ctx, evSubscribe)
	m.mu.Lock()
	sub.token++
	token := sub.token
	m.mu.Unlock()

	h, err := m.feed.Subscribe(ctx, resource, m.forward(sub, token))
	if err != nil {
		sub.fire(ctx, evFail)
		return errors.Join(ErrSubscribeFailed, fmt.Errorf("resource %q: %w", resource, err))
	}

	m.mu.Lock()
	sub.handle = h
	m.mu.Unlock()
	sub.fire(ctx, evAck)

	m.logger.LogAttrs(ctx, slog.LevelDebug, "subscribed to resource", logger.Resource(resource))
	return nil
}

// teardown unsubscribes sub from the feed if it holds a handle.
func (m *Manager) teardown(ctx context.Context, sub *subscription) error {
	m.mu.Lock()
	h := sub.handle
	sub.handle = nil
	sub.token++
	m.mu.Unlock()

	sub.fire(ctx, evUnsubscribe)
	if h == nil {
		return nil
	}
	return m.feed.Unsubscribe(ctx, h)
}

// forward returns the feed callback for one subscription generation.
func (m *Manager) forward(sub *subscription, token uint64) func(events.Change) {
	return func(c events.Change) {
		m.mu.Lock()
		current := sub.token == token
		m.mu.Unlock()
		if !current {
			return
		}
		m.emitEvent(events.FromChange(sub.resource, c))
	}
}

func (m *Manager) connectionLost(err error) {
	m.op.Lock()
	defer m.op.Unlock()

	if m.Status().State != StateConnected {
		return
	}

	ctx := context.Background()
	m.mu.Lock()
	subs := make([]*subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()
	for _, sub := range subs {
		sub.fire(ctx, evFail)
	}

	m.fail(ctx, errors.Join(ErrConnectionLost, err))
}

func (m *Manager) setStatus(ctx context.Context, s Status) {
	m.mu.Lock()
	prev := m.status
	if prev.State == s.State && prev.Message == s.Message && prev.Attempt == s.Attempt {
		m.mu.Unlock()
		return
	}
	s.UpdatedAt = m.now()
	m.status = s
	m.mu.Unlock()

	m.logger.LogAttrs(ctx, slog.LevelInfo, "realtime status changed",
		logger.Status(string(s.State)),
		slog.String("previous", string(prev.State)),
	)
	m.emitStatus(s)
}
