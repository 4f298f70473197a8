package push

import (
	"maps"

	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

// Preferences decide which notifications are pushed.
type Preferences struct {
	Enabled bool `json:"enabled"`
	// Categories overrides the per-category default of enabled. Only false
	// entries have an effect.
	Categories  map[string]bool        `json:"categories,omitempty"`
	MinPriority notifications.Priority `json:"min_priority,omitempty"`
}

// DefaultPreferences pushes everything.
func DefaultPreferences() Preferences {
	return Preferences{Enabled: true, MinPriority: notifications.PriorityLow}
}

// CategoryEnabled reports whether category is pushed when the global switch
// is on.
func (p Preferences) CategoryEnabled(category string) bool {
	enabled, ok := p.Categories[category]
	return !ok || enabled
}

// Allows reports whether n should be pushed.
func (p Preferences) Allows(n notifications.Notification) bool {
	if !p.Enabled || !p.CategoryEnabled(n.Category) {
		return false
	}
	if p.MinPriority.Valid() && n.Priority.Weight() < p.MinPriority.Weight() {
		return false
	}
	return true
}

// WithCategory returns a copy with category switched on or off.
func (p Preferences) WithCategory(category string, enabled bool) Preferences {
	p.Categories = maps.Clone(p.Categories)
	if p.Categories == nil {
		p.Categories = make(map[string]bool)
	}
	p.Categories[category] = enabled
	return p
}
