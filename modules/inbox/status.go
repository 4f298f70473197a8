package inbox

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/propnotify/pkg/badge"
)

// BadgeResponse is the body of GET /badges.
type BadgeResponse struct {
	badge.Counts
	Label string `json:"label"`
}

// getBadges returns cached counts, or recomputed ones with ?refresh=true.
func (m *Module) getBadges(w http.ResponseWriter, r *http.Request) {
	counts := m.badges.Counts()
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		var err error
		if counts, err = m.badges.Refresh(r.Context()); err != nil {
			m.fail(r.Context(), w, errors.Join(ErrServiceUnavailable, err))
			return
		}
	}
	respond(w, BadgeResponse{Counts: counts, Label: badge.FormatCount(counts.Total)}, nil)
}

func (m *Module) status(w http.ResponseWriter, _ *http.Request) {
	respond(w, m.realtime.Status(), map[string]any{
		"subscriptions": m.realtime.Subscriptions(),
	})
}

// reconnect resets the retry budget and reconnects. A failed attempt is
// reported as 503 together with the resulting status.
func (m *Module) reconnect(w http.ResponseWriter, r *http.Request) {
	if err := m.realtime.Reconnect(r.Context()); err != nil {
		status, body := errorResponse(errors.Join(ErrServiceUnavailable, err))
		body.Data = m.realtime.Status()
		writeJSON(w, status, body)
		return
	}
	respond(w, m.realtime.Status(), map[string]any{
		"subscriptions": m.realtime.Subscriptions(),
	})
}
