package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

// SortField is a notification attribute results can be ordered by.
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByPriority  SortField = "priority"
	SortByCategory  SortField = "category"
	SortByTitle     SortField = "title"
	SortByRead      SortField = "read"
)

// SortOrder is the sort direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort is a field plus direction. The zero value sorts newest first.
type Sort struct {
	Field SortField `json:"field,omitempty" yaml:"field,omitempty"`
	Order SortOrder `json:"order,omitempty" yaml:"order,omitempty"`
}

func (s Sort) normalized() Sort {
	switch s.Field {
	case SortByTimestamp, SortByPriority, SortByCategory, SortByTitle, SortByRead:
	default:
		s.Field = SortByTimestamp
	}
	if s.Order != Asc {
		s.Order = Desc
	}
	return s
}

// sortItems orders items in place. Equal elements keep their input order.
// For SortByRead ascending puts unread first.
func sortItems(items []notifications.Notification, s Sort) {
	s = s.normalized()
	compare := func(a, b notifications.Notification) int {
		switch s.Field {
		case SortByPriority:
			return cmp.Compare(a.Priority.Weight(), b.Priority.Weight())
		case SortByCategory:
			return strings.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category))
		case SortByTitle:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortByRead:
			return cmp.Compare(boolInt(a.IsRead), boolInt(b.IsRead))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	slices.SortStableFunc(items, func(a, b notifications.Notification) int {
		if s.Order == Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
