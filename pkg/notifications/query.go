package notifications

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"
)

// SortField selects the ordering key of a query.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByPriority  SortField = "priority"
	SortByTitle     SortField = "title"
	SortByCategory  SortField = "category"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Filter restricts a query. Zero fields match everything.
type Filter struct {
	SourceType    SourceType
	IsRead        *bool
	PropertyID    string
	TenantID      string
	Priority      Priority
	Category      string
	CreatedAfter  time.Time // inclusive
	CreatedBefore time.Time // exclusive
	// Text matches title or body, case-insensitively.
	Text string
}

// Match reports whether n satisfies every set predicate.
func (f Filter) Match(n Notification) bool {
	switch {
	case f.SourceType != "" && n.SourceType != f.SourceType:
		return false
	case f.IsRead != nil && n.IsRead != *f.IsRead:
		return false
	case f.PropertyID != "" && n.PropertyID != f.PropertyID:
		return false
	case f.TenantID != "" && n.TenantID != f.TenantID:
		return false
	case f.Priority != "" && n.Priority != f.Priority:
		return false
	case f.Category != "" && n.Category != f.Category:
		return false
	case !f.CreatedAfter.IsZero() && n.CreatedAt.Before(f.CreatedAfter):
		return false
	case !f.CreatedBefore.IsZero() && !n.CreatedAt.Before(f.CreatedBefore):
		return false
	}
	if f.Text != "" {
		q := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(n.Title), q) && !strings.Contains(strings.ToLower(n.Body), q) {
			return false
		}
	}
	return true
}

// QueryOptions controls Query. The zero value returns every visible
// notification newest first.
type QueryOptions struct {
	Filter Filter
	SortBy SortField
	Order  SortOrder
	Limit  int
	Offset int
}

// Query returns the visible notifications matching opts. Sorting is stable;
// ties keep insertion order. Load failures are logged and the cached state
// is served.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	_ = s.ensureLoaded(ctx)
	now := s.now()
	out := make([]Notification, 0, len(s.items))
	for _, n := range s.items {
		if !n.ExpiredAt(now) && opts.Filter.Match(n) {
			out = append(out, n.clone())
		}
	}
	s.mu.Unlock()

	SortNotifications(out, opts.SortBy, opts.Order)

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Notification{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// All returns every visible notification newest first.
func (s *Store) All(ctx context.Context) ([]Notification, error) {
	return s.Query(ctx, QueryOptions{})
}

// SortNotifications stable-sorts items in place. Empty field and order
// default to created_at descending.
func SortNotifications(items []Notification, field SortField, order SortOrder) {
	if order == "" {
		order = Desc
	}
	compare := func(a, b Notification) int {
		switch field {
		case SortByPriority:
			return cmp.Compare(a.Priority.Weight(), b.Priority.Weight())
		case SortByTitle:
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortByCategory:
			return cmp.Compare(a.Category, b.Category)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	slices.SortStableFunc(items, func(a, b Notification) int {
		if order == Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

// UnreadCount returns the number of visible unread notifications.
func (s *Store) UnreadCount(ctx context.Context) (int, error) {
	counts, err := s.UnreadCounts(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	return total, nil
}

// UnreadCountByCategory returns the unread count of one category.
func (s *Store) UnreadCountByCategory(ctx context.Context, category string) (int, error) {
	counts, err := s.UnreadCounts(ctx)
	if err != nil {
		return 0, err
	}
	return counts[category], nil
}

// UnreadCounts returns unread counts keyed by category. Categories without
// unread notifications are absent.
func (s *Store) UnreadCounts(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ensureLoaded(ctx)

	now := s.now()
	counts := make(map[string]int)
	for _, n := range s.items {
		if !n.IsRead && !n.ExpiredAt(now) {
			counts[n.Category]++
		}
	}
	return counts, nil
}
