package filter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/kvstore"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
	"github.com/dmitrymomot/propnotify/pkg/validator"
)

// StorageKey is the kvstore key used by Save and Load.
const StorageKey = "notification_filters:v1"

// State is the full serializable engine state.
type State struct {
	Criteria     Criteria `json:"criteria"`
	Sort         Sort     `json:"sort"`
	ActivePreset string   `json:"active_preset,omitempty"`
	Presets      []Preset `json:"presets"`
}

func (s State) clone() State {
	s.Criteria = s.Criteria.clone()
	presets := make([]Preset, len(s.Presets))
	for i, p := range s.Presets {
		presets[i] = p.clone()
	}
	s.Presets = presets
	return s
}

func defaultState() State {
	return State{
		Sort:         Sort{Field: SortByTimestamp, Order: Desc},
		ActivePreset: PresetAll,
		Presets:      DefaultPresets(),
	}
}

// Stats are counts over the filtered items.
type Stats struct {
	ByCategory map[string]int                 `json:"by_category"`
	ByPriority map[notifications.Priority]int `json:"by_priority"`
	Read       int                            `json:"read"`
	Unread     int                            `json:"unread"`
	Last24h    int                            `json:"last_24h"`
}

// Result is the outcome of Apply.
type Result struct {
	Items         []notifications.Notification `json:"items"`
	TotalCount    int                          `json:"total_count"`
	FilteredCount int                          `json:"filtered_count"`
	Stats         Stats                        `json:"stats"`
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine holds the active filter and presets. Safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	state  State
	now    func() time.Time
	logger *slog.Logger
}

// New creates an engine in the default state.
func New(opts ...Option) *Engine {
	e := &Engine{
		state:  defaultState(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.clone()
}

// Criteria returns a copy of the active criteria.
func (e *Engine) Criteria() Criteria {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Criteria.clone()
}

// Apply filters, sorts and counts items without modifying the input.
func (e *Engine) Apply(items []notifications.Notification) Result {
	e.mu.RLock()
	crit := e.state.Criteria.clone()
	sortBy := e.state.Sort
	e.mu.RUnlock()

	now := e.now()
	m := crit.matcher(now)

	out := make([]notifications.Notification, 0, len(items))
	for _, n := range items {
		if m.match(n) {
			out = append(out, n)
		}
	}
	sortItems(out, sortBy)

	return Result{
		Items:         out,
		TotalCount:    len(items),
		FilteredCount: len(out),
		Stats:         computeStats(out, now),
	}
}

func computeStats(items []notifications.Notification, now time.Time) Stats {
	st := Stats{
		ByCategory: make(map[string]int),
		ByPriority: make(map[notifications.Priority]int),
	}
	dayAgo := now.Add(-24 * time.Hour)
	for _, n := range items {
		st.ByCategory[n.Category]++
		st.ByPriority[n.Priority]++
		if n.IsRead {
			st.Read++
		} else {
			st.Unread++
		}
		if !n.CreatedAt.Before(dayAgo) {
			st.Last24h++
		}
	}
	return st
}

// update mutates the active criteria. Any manual change detaches the
// active preset.
func (e *Engine) update(fn func(c *Criteria)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state.Criteria)
	e.state.ActivePreset = ""
}

func (e *Engine) SetCategories(categories ...string) {
	e.update(func(c *Criteria) { c.Categories = slices.Clone(categories) })
}

func (e *Engine) SetPriorities(priorities ...notifications.Priority) {
	e.update(func(c *Criteria) { c.Priorities = slices.Clone(priorities) })
}

func (e *Engine) SetReadState(rs ReadState) {
	e.update(func(c *Criteria) { c.ReadState = rs })
}

// SetDateRange sets an absolute window; zero bounds are open.
func (e *Engine) SetDateRange(from, to time.Time) {
	e.update(func(c *Criteria) { c.From, c.To = from, to })
}

func (e *Engine) SetPeriod(p Period) {
	e.update(func(c *Criteria) { c.Period = p })
}

func (e *Engine) SetQuery(q string) {
	e.update(func(c *Criteria) { c.Query = q })
}

// SetCriteria replaces the whole active filter.
func (e *Engine) SetCriteria(crit Criteria) {
	e.update(func(c *Criteria) { *c = crit.clone() })
}

// SetSort changes the sort order. It does not detach the active preset.
func (e *Engine) SetSort(field SortField, order SortOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Sort = Sort{Field: field, Order: order}.normalized()
}

// ClearFilters resets the active filter and sort, keeping presets.
func (e *Engine) ClearFilters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := defaultState()
	e.state.Criteria = d.Criteria
	e.state.Sort = d.Sort
	e.state.ActivePreset = d.ActivePreset
}

// Reset restores the default state, dropping custom presets and usage.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = defaultState()
}

// Presets returns every preset, defaults first.
func (e *Engine) Presets() []Preset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Preset, len(e.state.Presets))
	for i, p := range e.state.Presets {
		out[i] = p.clone()
	}
	return out
}

func (e *Engine) presetIndex(id string) int {
	return slices.IndexFunc(e.state.Presets, func(p Preset) bool { return p.ID == id })
}

// ApplyPreset replaces the active filter with the preset's criteria (and
// sort, when the preset has one) and records the use.
func (e *Engine) ApplyPreset(id string) (Preset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.presetIndex(id)
	if i < 0 {
		return Preset{}, ErrPresetNotFound
	}
	p := &e.state.Presets[i]
	p.UsageCount++
	p.LastUsed = e.now()

	e.state.Criteria = p.Criteria.clone()
	if p.Sort != nil {
		e.state.Sort = p.Sort.normalized()
	}
	e.state.ActivePreset = p.ID
	return p.clone(), nil
}

// AddPreset registers a custom preset. An empty ID is derived from the name.
func (e *Engine) AddPreset(p Preset) (Preset, error) {
	if p.ID == "" {
		p.ID = presetID(p.Name)
	}
	if err := validatePreset(p); err != nil {
		return Preset{}, err
	}
	p = p.clone()
	p.Default = false
	p.UsageCount = 0
	p.LastUsed = time.Time{}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.presetIndex(p.ID) >= 0 {
		return Preset{}, ErrPresetExists
	}
	e.state.Presets = append(e.state.Presets, p)
	return p.clone(), nil
}

// SaveCurrentAsPreset stores the active criteria and sort under name.
func (e *Engine) SaveCurrentAsPreset(name string) (Preset, error) {
	e.mu.RLock()
	sortBy := e.state.Sort
	p := Preset{Name: name, Criteria: e.state.Criteria.clone(), Sort: &sortBy}
	e.mu.RUnlock()
	return e.AddPreset(p)
}

// RemovePreset deletes a custom preset. Removing the active preset detaches it.
func (e *Engine) RemovePreset(id string) error {
	if isDefaultPreset(id) {
		return ErrDefaultPreset
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.presetIndex(id)
	if i < 0 {
		return ErrPresetNotFound
	}
	e.state.Presets = slices.Delete(e.state.Presets, i, i+1)
	if e.state.ActivePreset == id {
		e.state.ActivePreset = ""
	}
	return nil
}

func validatePreset(p Preset) error {
	rules := []validator.Rule{
		validator.RequiredString("id", p.ID),
		validator.MaxLenString("id", p.ID, 64),
		validator.RequiredString("name", p.Name),
		validator.MaxLenString("name", p.Name, 100),
		validator.OptionalInList("read_state", p.Criteria.ReadState, []ReadState{ReadStateRead, ReadStateUnread}),
		validator.OptionalInList("period", p.Criteria.Period, []Period{PeriodToday, PeriodWeek, PeriodMonth}),
		validator.Custom("to", "must be after from", func() bool {
			return p.Criteria.From.IsZero() || p.Criteria.To.IsZero() || p.Criteria.To.After(p.Criteria.From)
		}),
	}
	for _, pr := range p.Criteria.Priorities {
		rules = append(rules, validator.InList("priorities", pr, notifications.Priorities))
	}
	if err := validator.Apply(rules...); err != nil {
		return errors.Join(ErrInvalidPreset, err)
	}
	return nil
}

// Marshal serializes the full state to JSON.
func (e *Engine) Marshal() ([]byte, error) {
	return json.Marshal(e.State())
}

// Unmarshal replaces the state with data. On failure the engine falls back
// to the default state and the error is returned. Default presets missing
// from data are restored.
func (e *Engine) Unmarshal(data []byte) error {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		e.Reset()
		return errors.Join(ErrInvalidState, err)
	}

	presets := make([]Preset, 0, len(st.Presets)+len(DefaultPresets()))
	seen := make(map[string]bool)
	stored := make(map[string]Preset, len(st.Presets))
	for _, p := range st.Presets {
		stored[p.ID] = p
	}
	for _, d := range DefaultPresets() {
		if p, ok := stored[d.ID]; ok {
			d.UsageCount, d.LastUsed = p.UsageCount, p.LastUsed
		}
		presets = append(presets, d)
		seen[d.ID] = true
	}
	for _, p := range st.Presets {
		if seen[p.ID] {
			continue
		}
		if err := validatePreset(p); err != nil {
			e.Reset()
			return errors.Join(ErrInvalidState, err)
		}
		p.Default = false
		presets = append(presets, p)
		seen[p.ID] = true
	}

	st.Presets = presets
	st.Sort = st.Sort.normalized()
	if st.ActivePreset != "" && !seen[st.ActivePreset] {
		st.ActivePreset = ""
	}

	e.mu.Lock()
	e.state = st
	e.mu.Unlock()
	return nil
}

// Save writes the serialized state to kv under StorageKey.
func (e *Engine) Save(ctx context.Context, kv kvstore.Store) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}
	return kv.Set(ctx, StorageKey, data)
}

// Load restores state from kv. A missing key keeps the current state; a
// corrupt value resets to defaults and is reported.
func (e *Engine) Load(ctx context.Context, kv kvstore.Store) error {
	data, err := kv.Get(ctx, StorageKey)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	if err := e.Unmarshal(data); err != nil {
		e.logger.LogAttrs(ctx, slog.LevelWarn, "discarding corrupt filter state",
			logger.Key(StorageKey),
			logger.Error(err),
		)
		return err
	}
	return nil
}
