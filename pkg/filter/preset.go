package filter

import (
	"strings"
	"time"
	"unicode"

	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

// Preset is a named, reusable filter configuration.
type Preset struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Criteria   Criteria  `json:"criteria" yaml:",inline"`
	Sort       *Sort     `json:"sort,omitempty" yaml:"sort,omitempty"`
	Default    bool      `json:"default,omitempty" yaml:"-"`
	UsageCount int       `json:"usage_count" yaml:"-"`
	LastUsed   time.Time `json:"last_used,omitzero" yaml:"-"`
}

func (p Preset) clone() Preset {
	p.Criteria = p.Criteria.clone()
	if p.Sort != nil {
		s := *p.Sort
		p.Sort = &s
	}
	return p
}

// Default preset IDs.
const (
	PresetAll         = "all"
	PresetUnread      = "unread"
	PresetUrgent      = "urgent"
	PresetToday       = "today"
	PresetMaintenance = "maintenance"
	PresetFinance     = "finance"
)

// DefaultPresets returns the built-in presets in display order.
func DefaultPresets() []Preset {
	return []Preset{
		{ID: PresetAll, Name: "All", Default: true},
		{ID: PresetUnread, Name: "Unread", Default: true, Criteria: Criteria{ReadState: ReadStateUnread}},
		{ID: PresetUrgent, Name: "Urgent", Default: true, Criteria: Criteria{
			Priorities: []notifications.Priority{notifications.PriorityUrgent},
		}},
		{ID: PresetToday, Name: "Today", Default: true, Criteria: Criteria{Period: PeriodToday}},
		{ID: PresetMaintenance, Name: "Maintenance", Default: true, Criteria: Criteria{
			Categories: []string{notifications.CategoryMaintenance},
		}},
		{ID: PresetFinance, Name: "Finance", Default: true, Criteria: Criteria{
			Categories: []string{notifications.CategoryFinance},
		}},
	}
}

func isDefaultPreset(id string) bool {
	switch id {
	case PresetAll, PresetUnread, PresetUrgent, PresetToday, PresetMaintenance, PresetFinance:
		return true
	}
	return false
}

// presetID derives a lower-case dashed identifier from a display name.
func presetID(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
