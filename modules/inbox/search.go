package inbox

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/search"
)

// searchNotifications accepts q, category (repeatable), from, to (RFC 3339)
// and limit.
func (m *Module) searchNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))

	opts := search.Options{Categories: q["category"]}
	var err error
	if opts.Limit, err = intParam(q.Get("limit"), MaxPageSize); err != nil {
		m.fail(r.Context(), w, err)
		return
	}
	for param, dst := range map[string]*time.Time{"from": &opts.From, "to": &opts.To} {
		if v := q.Get(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				m.fail(r.Context(), w, ErrBadRequest)
				return
			}
			*dst = t
		}
	}

	results := m.search.Search(query, opts)
	respond(w, results, map[string]any{
		"query": query,
		"count": len(results),
	})
}

func (m *Module) suggest(w http.ResponseWriter, r *http.Request) {
	suggestions := m.search.Suggest(r.URL.Query().Get("q"))
	respond(w, suggestions, map[string]any{"count": len(suggestions)})
}
