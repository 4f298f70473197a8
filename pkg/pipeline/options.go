package pipeline

import (
	"log/slog"

	"github.com/dmitrymomot/propnotify/pkg/badge"
	"github.com/dmitrymomot/propnotify/pkg/events"
	"github.com/dmitrymomot/propnotify/pkg/push"
	"github.com/dmitrymomot/propnotify/pkg/realtime"
	"github.com/dmitrymomot/propnotify/pkg/search"
)

const (
	DefaultDedupSize   = 1000
	DefaultTopicBuffer = 64
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTransformer replaces the default transformer.
func WithTransformer(t *events.Transformer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.transformer = t
		}
	}
}

// WithRealtime makes Start consume events from m.
func WithRealtime(m *realtime.Manager) Option {
	return func(p *Pipeline) {
		p.realtime = m
	}
}

// WithBadges keeps a recompute hook and ticker running between Start and Stop.
func WithBadges(a *badge.Aggregator) Option {
	return func(p *Pipeline) {
		p.badges = a
	}
}

// WithSearch keeps e indexed with the visible notifications.
func WithSearch(e *search.Engine) Option {
	return func(p *Pipeline) {
		p.search = e
	}
}

// WithGateway sets where new notifications are pushed.
func WithGateway(g push.Gateway) Option {
	return func(p *Pipeline) {
		if g != nil {
			p.gateway = g
		}
	}
}

// WithPreferences sets the initial push preferences.
func WithPreferences(prefs push.Preferences) Option {
	return func(p *Pipeline) {
		p.prefs = prefs
	}
}

// WithSkipDeletes drops DELETE events instead of turning them into
// notifications.
func WithSkipDeletes() Option {
	return func(p *Pipeline) {
		p.skipDeletes = true
	}
}

// WithDedupSize sets how many recent event IDs are remembered.
func WithDedupSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.dedupSize = n
		}
	}
}

// WithTopicBuffer sets the per-subscriber buffer of the new-notification stream.
func WithTopicBuffer(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.topicBuffer = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}
