package badge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

// DefaultInterval is the periodic recompute interval.
const DefaultInterval = 30 * time.Second

// Source is the subset of the notification store the aggregator needs.
type Source interface {
	UnreadCounts(ctx context.Context) (map[string]int, error)
	MarkRead(ctx context.Context, id string) (bool, error)
	MarkCategoryRead(ctx context.Context, category string) (int, error)
}

// Counts is a snapshot of unread counts.
type Counts struct {
	Total       int            `json:"total"`
	PerCategory map[string]int `json:"per_category"`
}

// Equal reports whether both snapshots hold the same numbers.
func (c Counts) Equal(o Counts) bool {
	return c.Total == o.Total && maps.Equal(c.PerCategory, o.PerCategory)
}

func (c Counts) clone() Counts {
	return Counts{Total: c.Total, PerCategory: maps.Clone(c.PerCategory)}
}

// FormatCount renders a badge label: empty for n <= 0, the number up to 99,
// "99+" above.
func FormatCount(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}

// Config is the env-driven aggregator configuration.
type Config struct {
	RefreshInterval time.Duration `env:"BADGE_REFRESH_INTERVAL" envDefault:"30s"`
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithInterval sets the periodic recompute interval.
func WithInterval(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Aggregator caches unread counts. Safe for concurrent use.
type Aggregator struct {
	src      Source
	interval time.Duration
	logger   *slog.Logger

	// refresh serializes recomputes so snapshots are applied in order.
	// Listeners run after it is released.
	refresh sync.Mutex

	mu      sync.RWMutex
	counts  Counts
	started bool
	stop    chan struct{}
	wg      sync.WaitGroup

	lmu          sync.RWMutex
	nextListener uint64
	listeners    map[uint64]func(Counts)
}

// New creates an aggregator over src. It panics when src is nil.
func New(src Source, opts ...Option) *Aggregator {
	if src == nil {
		panic("badge: nil source")
	}
	a := &Aggregator{
		src:       src,
		interval:  DefaultInterval,
		logger:    slog.Default(),
		counts:    Counts{PerCategory: map[string]int{}},
		listeners: make(map[uint64]func(Counts)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig creates an aggregator from env config.
func NewFromConfig(src Source, cfg Config, opts ...Option) *Aggregator {
	return New(src, append([]Option{WithInterval(cfg.RefreshInterval)}, opts...)...)
}

// Start recomputes the counts once and then on every interval until Stop or
// ctx cancellation. A failed initial recompute is returned but the ticker
// still runs.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.stop = make(chan struct{})
	stop := a.stop
	a.wg.Add(1)
	a.mu.Unlock()

	_, err := a.Refresh(ctx)

	go a.loop(ctx, stop)
	return err
}

func (a *Aggregator) loop(ctx context.Context, stop <-chan struct{}) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := a.Refresh(ctx); err != nil {
				a.logger.LogAttrs(ctx, slog.LevelWarn, "periodic badge refresh failed", logger.Error(err))
			}
		}
	}
}

// Stop halts the ticker and waits for it to exit. Safe to call repeatedly.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	close(a.stop)
	a.mu.Unlock()

	a.wg.Wait()
}

// Refresh recomputes the counts from the source and notifies listeners when
// they changed. On failure the cached counts are kept.
func (a *Aggregator) Refresh(ctx context.Context) (Counts, error) {
	a.refresh.Lock()
	per, err := a.src.UnreadCounts(ctx)
	if err != nil {
		a.refresh.Unlock()
		return a.Counts(), errors.Join(ErrRefreshFailed, err)
	}

	next := Counts{PerCategory: make(map[string]int, len(per))}
	for category, n := range per {
		if n > 0 {
			next.PerCategory[category] = n
			next.Total += n
		}
	}

	a.mu.Lock()
	changed := !a.counts.Equal(next)
	a.counts = next
	a.mu.Unlock()
	a.refresh.Unlock()

	if changed {
		a.logger.LogAttrs(ctx, slog.LevelDebug, "badge counts changed", logger.Count(next.Total))
		a.emit(ctx, next)
	}
	return next.clone(), nil
}

// Counts returns the cached snapshot.
func (a *Aggregator) Counts() Counts {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counts.clone()
}

// Total returns the cached overall unread count.
func (a *Aggregator) Total() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counts.Total
}

// ForCategory returns the cached unread count of one category.
func (a *Aggregator) ForCategory(category string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counts.PerCategory[category]
}

// MarkRead marks one notification read in the source and recomputes.
func (a *Aggregator) MarkRead(ctx context.Context, id string) (bool, error) {
	ok, err := a.src.MarkRead(ctx, id)
	if err != nil {
		return false, err
	}
	if _, err := a.Refresh(ctx); err != nil {
		return ok, err
	}
	return ok, nil
}

// ClearForCategory marks every unread notification of category read and
// recomputes. It returns how many were changed.
func (a *Aggregator) ClearForCategory(ctx context.Context, category string) (int, error) {
	n, err := a.src.MarkCategoryRead(ctx, category)
	if err != nil {
		return 0, err
	}
	if _, err := a.Refresh(ctx); err != nil {
		return n, err
	}
	return n, nil
}

// Notify is a store change hook; pass it to notifications.Store.OnChange.
func (a *Aggregator) Notify(ev notifications.ChangeEvent) {
	ctx := context.Background()
	if _, err := a.Refresh(ctx); err != nil {
		a.logger.LogAttrs(ctx, slog.LevelWarn, "badge refresh after store change failed",
			slog.String("change", string(ev.Type)),
			logger.Error(err),
		)
	}
}

// Subscribe registers fn for count changes. The returned func removes it.
func (a *Aggregator) Subscribe(fn func(Counts)) (unsubscribe func()) {
	a.lmu.Lock()
	defer a.lmu.Unlock()
	a.nextListener++
	id := a.nextListener
	a.listeners[id] = fn
	return func() {
		a.lmu.Lock()
		delete(a.listeners, id)
		a.lmu.Unlock()
	}
}

func (a *Aggregator) emit(ctx context.Context, c Counts) {
	a.lmu.RLock()
	fns := make([]func(Counts), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.lmu.RUnlock()

	for _, fn := range fns {
		a.dispatch(ctx, fn, c.clone())
	}
}

func (a *Aggregator) dispatch(ctx context.Context, fn func(Counts), c Counts) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.LogAttrs(ctx, slog.LevelError, "badge listener panicked",
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	fn(c)
}
