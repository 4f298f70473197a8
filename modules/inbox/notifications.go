package inbox

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

// MaxPageSize caps the limit query parameter.
const MaxPageSize = 100

// listNotifications supports the query parameters source_type, category,
// priority, property_id, tenant_id, read, q, after, before (RFC 3339),
// sort, order, limit and offset.
func (m *Module) listNotifications(w http.ResponseWriter, r *http.Request) {
	opts, err := parseQueryOptions(r)
	if err != nil {
		m.fail(r.Context(), w, err)
		return
	}

	items, err := m.store.Query(r.Context(), opts)
	if err != nil {
		m.fail(r.Context(), w, err)
		return
	}
	unread, err := m.store.UnreadCount(r.Context())
	if err != nil {
		m.fail(r.Context(), w, err)
		return
	}

	respond(w, items, map[string]any{
		"count":  len(items),
		"unread": unread,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

func parseQueryOptions(r *http.Request) (notifications.QueryOptions, error) {
	q := r.URL.Query()
	opts := notifications.QueryOptions{
		Filter: notifications.Filter{
			SourceType: notifications.SourceType(q.Get("source_type")),
			Category:   q.Get("category"),
			Priority:   notifications.Priority(strings.ToLower(q.Get("priority"))),
			PropertyID: q.Get("property_id"),
			TenantID:   q.Get("tenant_id"),
			Text:       q.Get("q"),
		},
		SortBy: notifications.SortField(q.Get("sort")),
		Order:  notifications.SortOrder(strings.ToLower(q.Get("order"))),
		Limit:  MaxPageSize,
	}

	if v := q.Get("read"); v != "" {
		read, err := strconv.ParseBool(v)
		if err != nil {
			return opts, ErrBadRequest
		}
		opts.Filter.IsRead = &read
	}
	for param, dst := range map[string]*time.Time{
		"after":  &opts.Filter.CreatedAfter,
		"before": &opts.Filter.CreatedBefore,
	} {
		if v := q.Get(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return opts, ErrBadRequest
			}
			*dst = t
		}
	}

	var err error
	if opts.Limit, err = intParam(q.Get("limit"), MaxPageSize); err != nil {
		return opts, err
	}
	opts.Limit = min(opts.Limit, MaxPageSize)
	if opts.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		return opts, err
	}
	return opts, nil
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, ErrBadRequest
	}
	return n, nil
}

func (m *Module) getNotification(w http.ResponseWriter, r *http.Request) {
	n, err := m.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		m.fail(r.Context(), w, err)
		return
	}
	if n == nil {
		m.fail(r.Context(), w, ErrNotFound)
		return
	}
	respond(w, n, nil)
}

func (m *Module) markRead(w http.ResponseWriter, r *http.Request) {
	m.setRead(w, r, true)
}

func (m *Module) markUnread(w http.ResponseWriter, r *http.Request) {
	m.setRead(w, r, false)
}

func (m *Module) setRead(w http.ResponseWriter, r *http.Request, read bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	n, err := m.store.Get(ctx, id)
	if err != nil {
		m.fail(ctx, w, err)
		return
	}
	if n == nil {
		m.fail(ctx, w, ErrNotFound)
		return
	}

	var changed bool
	switch {
	case read && m.badges != nil:
		changed, err = m.badges.MarkRead(ctx, id)
	case read:
		changed, err = m.store.MarkRead(ctx, id)
	default:
		changed, err = m.store.MarkUnread(ctx, id)
	}
	if err != nil {
		m.fail(ctx, w, err)
		return
	}
	respond(w, map[string]any{"id": id, "is_read": read, "changed": changed}, nil)
}

// markAllRead marks everything read, or only ?category= when given.
func (m *Module) markAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := r.URL.Query().Get("category")

	var (
		count int
		err   error
	)
	switch {
	case category != "" && m.badges != nil:
		count, err = m.badges.ClearForCategory(ctx, category)
	case category != "":
		count, err = m.store.MarkCategoryRead(ctx, category)
	default:
		count, err = m.store.MarkAllRead(ctx)
	}
	if err != nil {
		m.fail(ctx, w, err)
		return
	}
	respond(w, map[string]any{"count": count}, nil)
}

func (m *Module) deleteNotification(w http.ResponseWriter, r *http.Request) {
	deleted, err := m.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		m.fail(r.Context(), w, err)
		return
	}
	if !deleted {
		m.fail(r.Context(), w, ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
