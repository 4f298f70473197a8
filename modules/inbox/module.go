package inbox

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/propnotify/pkg/badge"
	"github.com/dmitrymomot/propnotify/pkg/filter"
	"github.com/dmitrymomot/propnotify/pkg/kvstore"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
	"github.com/dmitrymomot/propnotify/pkg/pipeline"
	"github.com/dmitrymomot/propnotify/pkg/realtime"
	"github.com/dmitrymomot/propnotify/pkg/search"
)

// DefaultHeartbeat is the interval of SSE keep-alive comments.
const DefaultHeartbeat = 25 * time.Second

// Module serves the HTTP API. Safe for concurrent use.
type Module struct {
	pipeline  *pipeline.Pipeline
	store     *notifications.Store
	filters   *filter.Engine
	search    *search.Engine
	badges    *badge.Aggregator
	realtime  *realtime.Manager
	filterKV  kvstore.Store
	heartbeat time.Duration
	logger    *slog.Logger
}

// Option configures a Module.
type Option func(*Module)

func WithFilters(e *filter.Engine) Option {
	return func(m *Module) { m.filters = e }
}

func WithSearch(e *search.Engine) Option {
	return func(m *Module) { m.search = e }
}

func WithBadges(a *badge.Aggregator) Option {
	return func(m *Module) { m.badges = a }
}

func WithRealtime(r *realtime.Manager) Option {
	return func(m *Module) { m.realtime = r }
}

// WithFilterStore persists filter state to kv after every change.
func WithFilterStore(kv kvstore.Store) Option {
	return func(m *Module) { m.filterKV = kv }
}

func WithHeartbeat(d time.Duration) Option {
	return func(m *Module) {
		if d > 0 {
			m.heartbeat = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.logger = l
		}
	}
}

// New builds a module over p. It panics when p is nil.
func New(p *pipeline.Pipeline, opts ...Option) *Module {
	if p == nil {
		panic("inbox: nil pipeline")
	}
	m := &Module{
		pipeline:  p,
		store:     p.Store(),
		heartbeat: DefaultHeartbeat,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Router returns the API routes.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		m.fail(context.Background(), w, ErrNotFound)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", m.listNotifications)
		r.Post("/read-all", m.markAllRead)
		r.Get("/{id}", m.getNotification)
		r.Post("/{id}/read", m.markRead)
		r.Post("/{id}/unread", m.markUnread)
		r.Delete("/{id}", m.deleteNotification)
	})

	if m.search != nil {
		r.Get("/search", m.searchNotifications)
		r.Get("/search/suggest", m.suggest)
	}

	if m.filters != nil {
		r.Route("/filter", func(r chi.Router) {
			r.Get("/", m.filterState)
			r.Post("/", m.applyFilter)
			r.Delete("/", m.resetFilter)
			r.Get("/presets", m.listPresets)
			r.Post("/presets", m.addPreset)
			r.Delete("/presets/{id}", m.removePreset)
		})
	}

	if m.badges != nil {
		r.Get("/badges", m.getBadges)
	}

	r.Get("/stream", m.stream)

	if m.realtime != nil {
		r.Get("/status", m.status)
		r.Post("/status/reconnect", m.reconnect)
	}

	return r
}

func (m *Module) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	m.logger.LogAttrs(ctx, level, "request failed",
		logger.Component("inbox"),
		slog.Int("status", status),
		logger.Error(err),
	)
	writeJSON(w, status, body)
}
