package filter

import (
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

// ReadState restricts results by read flag.
type ReadState string

const (
	ReadStateAny    ReadState = ""
	ReadStateRead   ReadState = "read"
	ReadStateUnread ReadState = "unread"
)

// Period is a date range relative to the moment the filter is applied.
type Period string

const (
	PeriodAny   Period = ""
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Criteria is one filter configuration. Empty fields match everything.
type Criteria struct {
	Categories []string                 `json:"categories,omitempty" yaml:"categories,omitempty"`
	Priorities []notifications.Priority `json:"priorities,omitempty" yaml:"priorities,omitempty"`
	ReadState  ReadState                `json:"read_state,omitempty" yaml:"read_state,omitempty"`
	// From is inclusive, To exclusive.
	From   time.Time `json:"from,omitzero" yaml:"from,omitempty"`
	To     time.Time `json:"to,omitzero" yaml:"to,omitempty"`
	Period Period    `json:"period,omitempty" yaml:"period,omitempty"`
	Query  string    `json:"query,omitempty" yaml:"query,omitempty"`
}

// IsZero reports whether c matches everything.
func (c Criteria) IsZero() bool {
	return len(c.Categories) == 0 && len(c.Priorities) == 0 &&
		c.ReadState == ReadStateAny && c.From.IsZero() && c.To.IsZero() &&
		c.Period == PeriodAny && strings.TrimSpace(c.Query) == ""
}

func (c Criteria) clone() Criteria {
	c.Categories = slices.Clone(c.Categories)
	c.Priorities = slices.Clone(c.Priorities)
	return c
}

// window resolves From/To and Period against now. The narrower bound wins.
func (c Criteria) window(now time.Time) (from, to time.Time) {
	from, to = c.From, c.To
	var since time.Time
	switch c.Period {
	case PeriodToday:
		y, m, d := now.Date()
		since = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		since = now.AddDate(0, 0, -7)
	case PeriodMonth:
		since = now.AddDate(0, -1, 0)
	}
	if since.After(from) {
		from = since
	}
	return from, to
}

// matcher is Criteria resolved for one Apply call.
type matcher struct {
	categories map[string]bool
	priorities map[notifications.Priority]bool
	read       ReadState
	from, to   time.Time
	query      string
}

func (c Criteria) matcher(now time.Time) matcher {
	m := matcher{read: c.ReadState, query: strings.ToLower(strings.TrimSpace(c.Query))}
	if len(c.Categories) > 0 {
		m.categories = make(map[string]bool, len(c.Categories))
		for _, cat := range c.Categories {
			m.categories[cat] = true
		}
	}
	if len(c.Priorities) > 0 {
		m.priorities = make(map[notifications.Priority]bool, len(c.Priorities))
		for _, p := range c.Priorities {
			m.priorities[p] = true
		}
	}
	m.from, m.to = c.window(now)
	return m
}

func (m matcher) match(n notifications.Notification) bool {
	if m.categories != nil && !m.categories[n.Category] {
		return false
	}
	if m.priorities != nil && !m.priorities[n.Priority] {
		return false
	}
	switch m.read {
	case ReadStateRead:
		if !n.IsRead {
			return false
		}
	case ReadStateUnread:
		if n.IsRead {
			return false
		}
	}
	if !m.from.IsZero() && n.CreatedAt.Before(m.from) {
		return false
	}
	if !m.to.IsZero() && !n.CreatedAt.Before(m.to) {
		return false
	}
	if m.query != "" {
		return strings.Contains(strings.ToLower(n.Title), m.query) ||
			strings.Contains(strings.ToLower(n.Body), m.query) ||
			strings.Contains(strings.ToLower(string(n.SourceType)), m.query)
	}
	return true
}
