package inbox_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/propnotify/modules/inbox"
	"github.com/dmitrymomot/propnotify/pkg/badge"
	"github.com/dmitrymomot/propnotify/pkg/events"
	"github.com/dmitrymomot/propnotify/pkg/filter"
	"github.com/dmitrymomot/propnotify/pkg/kvstore"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
	"github.com/dmitrymomot/propnotify/pkg/pipeline"
	"github.com/dmitrymomot/propnotify/pkg/realtime"
	"github.com/dmitrymomot/propnotify/pkg/search"
)

type envelope struct {
	Data  json.RawMessage    `json:"data"`
	Meta  map[string]any     `json:"meta"`
	Error *inbox.ErrorDetail `json:"error"`
}

type feed struct {
	mu   sync.Mutex
	next int
}

func (f *feed) Subscribe(context.Context, string, func(events.Change)) (realtime.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next, nil
}

func (f *feed) Unsubscribe(context.Context, realtime.Handle) error { return nil }

type fixture struct {
	srv      *httptest.Server
	pipeline *pipeline.Pipeline
	store    *notifications.Store
	kv       *kvstore.Memory
}

func setup(t *testing.T, full bool) *fixture {
	t.Helper()
	ctx := context.Background()
	discard := logger.Discard()

	var (
		mu  sync.Mutex
		now = time.Now()
	)
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	store := notifications.NewStore(nil, notifications.WithLogger(discard), notifications.WithClock(tick))
	popts := []pipeline.Option{pipeline.WithLogger(discard)}
	mopts := []inbox.Option{inbox.WithLogger(discard), inbox.WithHeartbeat(time.Hour)}
	kv := kvstore.NewMemory()

	if full {
		badges := badge.New(store, badge.WithLogger(discard), badge.WithInterval(time.Hour))
		engine := search.New(search.WithLogger(discard))
		rt := realtime.New(&feed{}, realtime.WithResources("voucher"), realtime.WithLogger(discard))
		popts = append(popts, pipeline.WithBadges(badges), pipeline.WithSearch(engine), pipeline.WithRealtime(rt))
		mopts = append(mopts,
			inbox.WithBadges(badges),
			inbox.WithSearch(engine),
			inbox.WithRealtime(rt),
			inbox.WithFilters(filter.New(filter.WithLogger(discard))),
			inbox.WithFilterStore(kv),
		)
	}

	p := pipeline.New(store, popts...)
	require.NoError(t, p.Start(ctx))
	t.Cleanup(func() { _ = p.Stop(ctx) })

	srv := httptest.NewServer(inbox.New(p, mopts...).Router())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, pipeline: p, store: store, kv: kv}
}

func (f *fixture) emit(t *testing.T, id, typ string, data map[string]any) notifications.Notification {
	t.Helper()
	n, err := f.pipeline.HandleEvent(context.Background(), events.Event{
		ID:     id,
		Type:   typ,
		Action: events.ActionInsert,
		Data:   data,
	})
	require.NoError(t, err)
	require.NotNil(t, n)
	return *n
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func TestInbox_NotificationLifecycle(t *testing.T) {
	t.Parallel()
	f := setup(t, false)

	leak := f.emit(t, "e1", "maintenance_request", map[string]any{"title": "Leak", "priority": "urgent"})
	voucher := f.emit(t, "e2", "voucher", map[string]any{"number": "V-100", "amount": "250 EUR"})

	code, env := f.do(t, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, code)
	var items []notifications.Notification
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, voucher.ID, items[0].ID, "newest first")
	assert.EqualValues(t, 2, env.Meta["unread"])

	code, env = f.do(t, http.MethodGet, "/notifications?category=Finance", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, voucher.ID, items[0].ID)

	code, env = f.do(t, http.MethodGet, "/notifications/"+leak.ID, nil)
	require.Equal(t, http.StatusOK, code)
	var got notifications.Notification
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Leak reported at N/A", got.Body)

	code, _ = f.do(t, http.MethodPost, "/notifications/"+leak.ID+"/read", nil)
	require.Equal(t, http.StatusOK, code)
	code, env = f.do(t, http.MethodGet, "/notifications?read=false", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, voucher.ID, items[0].ID)

	code, _ = f.do(t, http.MethodPost, "/notifications/"+leak.ID+"/unread", nil)
	require.Equal(t, http.StatusOK, code)
	count, err := f.store.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	code, env = f.do(t, http.MethodPost, "/notifications/read-all?category=Maintenance", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))

	code, _ = f.do(t, http.MethodDelete, "/notifications/"+voucher.ID, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, env = f.do(t, http.MethodDelete, "/notifications/"+voucher.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)

	code, _ = f.do(t, http.MethodPost, "/notifications/missing/read", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInbox_BadQueryParameters(t *testing.T) {
	t.Parallel()
	f := setup(t, false)

	for _, q := range []string{"read=maybe", "limit=-1", "offset=x", "after=yesterday"} {
		code, env := f.do(t, http.MethodGet, "/notifications?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, code, q)
		require.NotNil(t, env.Error, q)
		assert.Equal(t, "bad_request", env.Error.Code, q)
	}
}

func TestInbox_OptionalComponentsNotMounted(t *testing.T) {
	t.Parallel()
	f := setup(t, false)

	for _, path := range []string{"/search?q=x", "/filter", "/badges", "/status"} {
		code, env := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, code, path)
		require.NotNil(t, env.Error, path)
	}
}

func TestInbox_SearchAndSuggest(t *testing.T) {
	t.Parallel()
	f := setup(t, true)

	f.emit(t, "e1", "maintenance_request", map[string]any{"title": "Leak in kitchen"})
	voucher := f.emit(t, "e2", "voucher", map[string]any{"number": "V-100", "amount": "250 EUR"})

	code, env := f.do(t, http.MethodGet, "/search?q=voucher", nil)
	require.Equal(t, http.StatusOK, code)
	var results []search.Result
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.NotEmpty(t, results)
	assert.Equal(t, voucher.ID, results[0].Notification.ID)

	code, env = f.do(t, http.MethodGet, "/search?q=voucher&category=Maintenance", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &results))
	assert.Empty(t, results)

	code, env = f.do(t, http.MethodGet, "/search/suggest?q=vou", nil)
	require.Equal(t, http.StatusOK, code)
	var suggestions []string
	require.NoError(t, json.Unmarshal(env.Data, &suggestions))
	assert.Contains(t, suggestions, "voucher")

	code, env = f.do(t, http.MethodGet, "/search/suggest?q=main", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &suggestions))
	assert.Equal(t, []string{notifications.CategoryMaintenance}, suggestions)
}

func TestInbox_Filter(t *testing.T) {
	t.Parallel()
	f := setup(t, true)

	f.emit(t, "e1", "maintenance_request", map[string]any{"title": "Leak", "priority": "urgent"})
	f.emit(t, "e2", "voucher", map[string]any{"number": "V-100"})

	code, env := f.do(t, http.MethodPost, "/filter", inbox.FilterRequest{Preset: filter.PresetUrgent})
	require.Equal(t, http.StatusOK, code)
	var res filter.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 1, res.FilteredCount)
	assert.Equal(t, filter.PresetUrgent, env.Meta["active_preset"])

	stored, err := f.kv.Get(context.Background(), filter.StorageKey)
	require.NoError(t, err)
	assert.NotEmpty(t, stored)

	code, env = f.do(t, http.MethodPost, "/filter", inbox.FilterRequest{
		Criteria: &filter.Criteria{ReadState: "sometimes"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "read_state")

	code, _ = f.do(t, http.MethodPost, "/filter", inbox.FilterRequest{Preset: "nope"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = f.do(t, http.MethodDelete, "/filter", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.FilteredCount)
}

func TestInbox_Presets(t *testing.T) {
	t.Parallel()
	f := setup(t, true)

	req := inbox.PresetRequest{
		Name:     "Finance unread",
		Criteria: filter.Criteria{Categories: []string{notifications.CategoryFinance}, ReadState: filter.ReadStateUnread},
	}
	code, env := f.do(t, http.MethodPost, "/filter/presets", req)
	require.Equal(t, http.StatusCreated, code)
	var p filter.Preset
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "finance-unread", p.ID)

	code, _ = f.do(t, http.MethodPost, "/filter/presets", req)
	assert.Equal(t, http.StatusConflict, code)

	code, env = f.do(t, http.MethodPost, "/filter/presets", inbox.PresetRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "name")

	code, env = f.do(t, http.MethodGet, "/filter/presets", nil)
	require.Equal(t, http.StatusOK, code)
	var presets []filter.Preset
	require.NoError(t, json.Unmarshal(env.Data, &presets))
	assert.Len(t, presets, len(filter.DefaultPresets())+1)

	code, _ = f.do(t, http.MethodDelete, "/filter/presets/"+filter.PresetAll, nil)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = f.do(t, http.MethodDelete, "/filter/presets/finance-unread", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = f.do(t, http.MethodDelete, "/filter/presets/finance-unread", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInbox_Badges(t *testing.T) {
	t.Parallel()
	f := setup(t, true)

	f.emit(t, "e1", "maintenance_request", map[string]any{"title": "Leak"})
	f.emit(t, "e2", "issue", map[string]any{"title": "Broken door"})

	code, env := f.do(t, http.MethodGet, "/badges?refresh=true", nil)
	require.Equal(t, http.StatusOK, code)
	var b inbox.BadgeResponse
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, 2, b.Total)
	assert.Equal(t, "2", b.Label)
	assert.Equal(t, 1, b.PerCategory[notifications.CategoryIssue])
}

func TestInbox_Status(t *testing.T) {
	t.Parallel()
	f := setup(t, true)

	code, env := f.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, code)
	var st realtime.Status
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, realtime.StateConnected, st.State)
	assert.Len(t, env.Meta["subscriptions"], 1)

	code, env = f.do(t, http.MethodPost, "/status/reconnect", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, realtime.StateConnected, st.State)
}

func TestInbox_Stream(t *testing.T) {
	t.Parallel()
	f := setup(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, ": connected", lines.Text())

	n := f.emit(t, "e1", "voucher", map[string]any{"number": "V-100"})

	var event, data string
	for lines.Scan() {
		line := lines.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == inbox.EventNotification:
			data = strings.TrimPrefix(line, "data: ")
		}
		if data != "" {
			break
		}
	}
	require.NotEmpty(t, data, "notification event not received")

	var got notifications.Notification
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, notifications.CategoryFinance, got.Category)
}
