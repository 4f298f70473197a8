package inbox

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/badge"
	"github.com/dmitrymomot/propnotify/pkg/logger"
)

// SSE event names.
const (
	EventNotification = "notification"
	EventBadges       = "badges"
)

// stream pushes new notifications (and badge counts when configured) as
// server-sent events until the client goes away or the pipeline stops.
func (m *Module) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		m.fail(ctx, w, ErrStreamUnsupported)
		return
	}
	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sub := m.pipeline.Subscribe(ctx)
	defer sub.Close()

	var counts chan badge.Counts
	if m.badges != nil {
		counts = make(chan badge.Counts, 1)
		unsubscribe := m.badges.Subscribe(func(c badge.Counts) {
			select {
			case counts <- c:
			default:
			}
		})
		defer unsubscribe()
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(m.heartbeat)
	defer heartbeat.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case n, open := <-sub.C():
			if !open {
				return
			}
			err = writeEvent(w, EventNotification, n.ID, n)
		case c := <-counts:
			err = writeEvent(w, EventBadges, "", c)
		case <-heartbeat.C:
			_, err = io.WriteString(w, ": ping\n\n")
		}
		if err != nil {
			m.logger.LogAttrs(ctx, slog.LevelDebug, "event stream closed",
				logger.Component("inbox"),
				logger.Error(err),
			)
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w io.Writer, event, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
