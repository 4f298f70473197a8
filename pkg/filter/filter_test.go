package filter_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/propnotify/pkg/filter"
	"github.com/dmitrymomot/propnotify/pkg/kvstore"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

var now = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func newEngine() *filter.Engine {
	return filter.New(filter.WithClock(func() time.Time { return now }), filter.WithLogger(logger.Discard()))
}

func fixture() []notifications.Notification {
	return []notifications.Notification{
		{ID: "1", Title: "Leaking faucet", SourceType: notifications.SourceMaintenanceRequest,
			Category: notifications.CategoryMaintenance, Priority: notifications.PriorityUrgent, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "2", Title: "Rent voucher", Body: "March rent", SourceType: notifications.SourceVoucher,
			Category: notifications.CategoryFinance, Priority: notifications.PriorityMedium, IsRead: true, CreatedAt: now.Add(-30 * time.Hour)},
		{ID: "3", Title: "Broken door", SourceType: notifications.SourceIssue,
			Category: notifications.CategoryIssue, Priority: notifications.PriorityHigh, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "4", Title: "Contract renewal", SourceType: notifications.SourceContract,
			Category: notifications.CategoryContract, Priority: notifications.PriorityLow, IsRead: true, CreatedAt: now.Add(-40 * 24 * time.Hour)},
		{ID: "5", Title: "Boiler service", Body: "annual rent-free check", SourceType: notifications.SourceMaintenanceRequest,
			Category: notifications.CategoryMaintenance, Priority: notifications.PriorityMedium, CreatedAt: now.Add(-time.Hour)},
	}
}

func ids(items []notifications.Notification) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func TestEngine_Apply(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		setup func(e *filter.Engine)
		want  []string
	}{
		{"default newest first", func(*filter.Engine) {}, []string{"5", "1", "2", "3", "4"}},
		{"category", func(e *filter.Engine) { e.SetCategories(notifications.CategoryMaintenance) }, []string{"5", "1"}},
		{"priority set", func(e *filter.Engine) {
			e.SetPriorities(notifications.PriorityUrgent, notifications.PriorityHigh)
		}, []string{"1", "3"}},
		{"unread", func(e *filter.Engine) { e.SetReadState(filter.ReadStateUnread) }, []string{"5", "1", "3"}},
		{"read", func(e *filter.Engine) { e.SetReadState(filter.ReadStateRead) }, []string{"2", "4"}},
		{"date range", func(e *filter.Engine) {
			e.SetDateRange(now.Add(-48*time.Hour), now.Add(-90*time.Minute))
		}, []string{"1", "2"}},
		{"period week", func(e *filter.Engine) { e.SetPeriod(filter.PeriodWeek) }, []string{"5", "1", "2"}},
		{"query matches title and body", func(e *filter.Engine) { e.SetQuery("RENT") }, []string{"5", "2"}},
		{"query matches type", func(e *filter.Engine) { e.SetQuery("contract") }, []string{"4"}},
		{"sort priority desc", func(e *filter.Engine) { e.SetSort(filter.SortByPriority, filter.Desc) }, []string{"1", "3", "2", "5", "4"}},
		{"sort title asc", func(e *filter.Engine) { e.SetSort(filter.SortByTitle, filter.Asc) }, []string{"5", "3", "4", "1", "2"}},
		{"sort read asc keeps order", func(e *filter.Engine) { e.SetSort(filter.SortByRead, filter.Asc) }, []string{"1", "3", "5", "2", "4"}},
		{"sort category asc", func(e *filter.Engine) { e.SetSort(filter.SortByCategory, filter.Asc) }, []string{"4", "2", "3", "1", "5"}},
		{"combined", func(e *filter.Engine) {
			e.SetCategories(notifications.CategoryMaintenance, notifications.CategoryIssue)
			e.SetReadState(filter.ReadStateUnread)
			e.SetPriorities(notifications.PriorityHigh, notifications.PriorityUrgent)
		}, []string{"1", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEngine()
			tt.setup(e)
			res := e.Apply(fixture())
			assert.Equal(t, tt.want, ids(res.Items))
			assert.Equal(t, 5, res.TotalCount)
			assert.Equal(t, len(res.Items), res.FilteredCount)
		})
	}
}

func TestEngine_ApplyMatchesEveryPredicate(t *testing.T) {
	t.Parallel()
	e := newEngine()
	e.SetCategories(notifications.CategoryMaintenance, notifications.CategoryFinance)
	e.SetReadState(filter.ReadStateUnread)
	input := fixture()
	res := e.Apply(input)

	inResult := make(map[string]bool)
	for _, n := range res.Items {
		inResult[n.ID] = true
	}
	for _, n := range input {
		want := !n.IsRead && (n.Category == notifications.CategoryMaintenance || n.Category == notifications.CategoryFinance)
		assert.Equal(t, want, inResult[n.ID], "notification %s", n.ID)
	}
}

func TestEngine_Stats(t *testing.T) {
	t.Parallel()
	e := newEngine()
	e.SetPeriod(filter.PeriodWeek)
	res := e.Apply(fixture())

	st := res.Stats
	assert.Equal(t, map[string]int{
		notifications.CategoryMaintenance: 2,
		notifications.CategoryFinance:     1,
	}, st.ByCategory)
	assert.Equal(t, 1, st.ByPriority[notifications.PriorityUrgent])
	assert.Equal(t, 2, st.ByPriority[notifications.PriorityMedium])
	assert.Equal(t, 1, st.Read)
	assert.Equal(t, 2, st.Unread)
	assert.Equal(t, 2, st.Last24h)
}

func TestEngine_Presets(t *testing.T) {
	t.Parallel()
	e := newEngine()

	p, err := e.ApplyPreset(filter.PresetUnread)
	require.NoError(t, err)
	assert.Equal(t, 1, p.UsageCount)
	assert.Equal(t, now, p.LastUsed)
	assert.Equal(t, []string{"5", "1", "3"}, ids(e.Apply(fixture()).Items))
	assert.Equal(t, filter.PresetUnread, e.State().ActivePreset)

	_, err = e.ApplyPreset(filter.PresetToday)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "1"}, ids(e.Apply(fixture()).Items), "preset replaces the filter wholesale")

	e.SetQuery("boiler")
	assert.Empty(t, e.State().ActivePreset)

	_, err = e.ApplyPreset("missing")
	assert.ErrorIs(t, err, filter.ErrPresetNotFound)

	for _, id := range []string{filter.PresetAll, filter.PresetUnread, filter.PresetUrgent, filter.PresetToday, filter.PresetMaintenance, filter.PresetFinance} {
		assert.ErrorIs(t, e.RemovePreset(id), filter.ErrDefaultPreset)
	}
	assert.Len(t, e.Presets(), 6)
}

func TestEngine_CustomPresets(t *testing.T) {
	t.Parallel()
	e := newEngine()

	p, err := e.AddPreset(filter.Preset{
		Name:     "Urgent Maintenance!",
		Criteria: filter.Criteria{Categories: []string{notifications.CategoryMaintenance}, Priorities: []notifications.Priority{notifications.PriorityUrgent}},
	})
	require.NoError(t, err)
	assert.Equal(t, "urgent-maintenance", p.ID)

	_, err = e.AddPreset(filter.Preset{Name: "urgent maintenance"})
	assert.ErrorIs(t, err, filter.ErrPresetExists)

	_, err = e.AddPreset(filter.Preset{Name: "bad", Criteria: filter.Criteria{Priorities: []notifications.Priority{"critical"}}})
	assert.ErrorIs(t, err, filter.ErrInvalidPreset)

	_, err = e.ApplyPreset(p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(e.Apply(fixture()).Items))

	e.SetSort(filter.SortByTitle, filter.Asc)
	saved, err := e.SaveCurrentAsPreset("Mine")
	require.NoError(t, err)
	require.NotNil(t, saved.Sort)
	assert.Equal(t, filter.SortByTitle, saved.Sort.Field)

	require.NoError(t, e.RemovePreset(p.ID))
	assert.Empty(t, e.State().ActivePreset)
	assert.ErrorIs(t, e.RemovePreset(p.ID), filter.ErrPresetNotFound)
}

func TestEngine_MarshalRoundTrip(t *testing.T) {
	t.Parallel()
	e := newEngine()
	_, err := e.AddPreset(filter.Preset{Name: "Rent", Criteria: filter.Criteria{Query: "rent"}})
	require.NoError(t, err)
	_, err = e.ApplyPreset("rent")
	require.NoError(t, err)
	e.SetSort(filter.SortByPriority, filter.Asc)

	data, err := e.Marshal()
	require.NoError(t, err)

	restored := newEngine()
	require.NoError(t, restored.Unmarshal(data))
	assert.Equal(t, e.State(), restored.State())
}

func TestEngine_UnmarshalFailureResets(t *testing.T) {
	t.Parallel()
	e := newEngine()
	_, err := e.AddPreset(filter.Preset{Name: "Custom"})
	require.NoError(t, err)
	e.SetQuery("x")

	err = e.Unmarshal([]byte("{not json"))
	require.ErrorIs(t, err, filter.ErrInvalidState)
	assert.Len(t, e.Presets(), 6)
	assert.True(t, e.Criteria().IsZero())
	assert.Equal(t, filter.PresetAll, e.State().ActivePreset)
}

func TestEngine_UnmarshalRestoresDefaults(t *testing.T) {
	t.Parallel()
	e := newEngine()
	require.NoError(t, e.Unmarshal([]byte(`{"presets":[{"id":"unread","name":"Unread","usage_count":7}]}`)))
	presets := e.Presets()
	require.Len(t, presets, 6)
	assert.Equal(t, 7, presets[1].UsageCount)
	assert.True(t, presets[1].Default)
}

func TestEngine_SaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := kvstore.NewMemory()

	e := newEngine()
	require.NoError(t, e.Load(ctx, kv), "missing key is not an error")
	e.SetCategories(notifications.CategoryFinance)
	require.NoError(t, e.Save(ctx, kv))

	restored := newEngine()
	require.NoError(t, restored.Load(ctx, kv))
	assert.Equal(t, []string{notifications.CategoryFinance}, restored.Criteria().Categories)

	require.NoError(t, kv.Set(ctx, filter.StorageKey, []byte("garbage")))
	assert.ErrorIs(t, restored.Load(ctx, kv), filter.ErrInvalidState)
	assert.True(t, restored.Criteria().IsZero())
}

func TestEngine_LoadPresetsYAML(t *testing.T) {
	t.Parallel()
	e := newEngine()
	doc := `
presets:
  - name: Late rent
    categories: [Finance]
    priorities: [high, urgent]
    read_state: unread
    query: rent
    sort: {field: priority, order: desc}
  - id: fresh
    name: Fresh issues
    categories: [Issue]
    period: today
`
	n, err := e.LoadPresetsYAML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	presets := e.Presets()
	require.Len(t, presets, 8)
	late := presets[6]
	assert.Equal(t, "late-rent", late.ID)
	assert.Equal(t, []string{notifications.CategoryFinance}, late.Criteria.Categories)
	assert.Equal(t, filter.ReadStateUnread, late.Criteria.ReadState)
	require.NotNil(t, late.Sort)
	assert.Equal(t, filter.SortByPriority, late.Sort.Field)
	assert.Equal(t, filter.PeriodToday, presets[7].Criteria.Period)

	n, err = e.LoadPresetsYAML(strings.NewReader("presets:\n  - id: unread\n    name: Mine\n"))
	assert.ErrorIs(t, err, filter.ErrDefaultPreset)
	assert.Zero(t, n)

	_, err = e.LoadPresetsYAML(strings.NewReader("presets: [\n"))
	assert.ErrorIs(t, err, filter.ErrInvalidPresetDoc)
}
