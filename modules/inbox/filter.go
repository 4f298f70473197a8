package inbox

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/propnotify/pkg/filter"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
	"github.com/dmitrymomot/propnotify/pkg/validator"
)

// FilterRequest selects a preset, replaces the criteria, changes the sort,
// or any combination. The preset is applied first.
type FilterRequest struct {
	Preset   string           `json:"preset,omitempty"`
	Criteria *filter.Criteria `json:"criteria,omitempty"`
	Sort     *filter.Sort     `json:"sort,omitempty"`
}

// PresetRequest adds a preset. With SaveCurrent the active criteria and
// sort are stored under Name and the other fields are ignored.
type PresetRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Criteria    filter.Criteria `json:"criteria"`
	Sort        *filter.Sort    `json:"sort,omitempty"`
	SaveCurrent bool            `json:"save_current,omitempty"`
}

func (m *Module) filterState(w http.ResponseWriter, r *http.Request) {
	m.respondFiltered(w, r)
}

func (m *Module) applyFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := decodeJSON(r, &req); err != nil {
		m.fail(r.Context(), w, err)
		return
	}
	if req.Criteria != nil {
		if err := validateCriteria(*req.Criteria); err != nil {
			m.fail(r.Context(), w, err)
			return
		}
	}

	if req.Preset != "" {
		if _, err := m.filters.ApplyPreset(req.Preset); err != nil {
			m.fail(r.Context(), w, filterError(err))
			return
		}
	}
	if req.Criteria != nil {
		m.filters.SetCriteria(*req.Criteria)
	}
	if req.Sort != nil {
		m.filters.SetSort(req.Sort.Field, req.Sort.Order)
	}

	m.persistFilters(r.Context())
	m.respondFiltered(w, r)
}

func (m *Module) resetFilter(w http.ResponseWriter, r *http.Request) {
	m.filters.ClearFilters()
	m.persistFilters(r.Context())
	m.respondFiltered(w, r)
}

func (m *Module) respondFiltered(w http.ResponseWriter, r *http.Request) {
	items, err := m.store.All(r.Context())
	if err != nil {
		m.fail(r.Context(), w, err)
		return
	}
	state := m.filters.State()
	respond(w, m.filters.Apply(items), map[string]any{
		"criteria":      state.Criteria,
		"sort":          state.Sort,
		"active_preset": state.ActivePreset,
	})
}

func (m *Module) listPresets(w http.ResponseWriter, _ *http.Request) {
	presets := m.filters.Presets()
	respond(w, presets, map[string]any{"count": len(presets)})
}

func (m *Module) addPreset(w http.ResponseWriter, r *http.Request) {
	var req PresetRequest
	if err := decodeJSON(r, &req); err != nil {
		m.fail(r.Context(), w, err)
		return
	}

	var (
		p   filter.Preset
		err error
	)
	if req.SaveCurrent {
		p, err = m.filters.SaveCurrentAsPreset(req.Name)
	} else {
		p, err = m.filters.AddPreset(filter.Preset{
			ID:       req.ID,
			Name:     req.Name,
			Criteria: req.Criteria,
			Sort:     req.Sort,
		})
	}
	if err != nil {
		m.fail(r.Context(), w, filterError(err))
		return
	}

	m.persistFilters(r.Context())
	writeJSON(w, http.StatusCreated, Envelope{Data: p})
}

func (m *Module) removePreset(w http.ResponseWriter, r *http.Request) {
	if err := m.filters.RemovePreset(chi.URLParam(r, "id")); err != nil {
		m.fail(r.Context(), w, filterError(err))
		return
	}
	m.persistFilters(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// persistFilters saves the filter state when a store is configured. Failures
// are logged; the in-memory state stays authoritative.
func (m *Module) persistFilters(ctx context.Context) {
	if m.filterKV == nil {
		return
	}
	if err := m.filters.Save(ctx, m.filterKV); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to persist filter state",
			logger.Component("inbox"),
			logger.Key(filter.StorageKey),
			logger.Error(err),
		)
	}
}

func validateCriteria(c filter.Criteria) error {
	rules := []validator.Rule{
		validator.OptionalInList("read_state", c.ReadState, []filter.ReadState{filter.ReadStateRead, filter.ReadStateUnread}),
		validator.OptionalInList("period", c.Period, []filter.Period{filter.PeriodToday, filter.PeriodWeek, filter.PeriodMonth}),
		validator.Custom("to", "must be after from", func() bool {
			return c.From.IsZero() || c.To.IsZero() || c.To.After(c.From)
		}),
	}
	for _, p := range c.Priorities {
		rules = append(rules, validator.InList("priorities", p, notifications.Priorities))
	}
	return validator.Apply(rules...)
}

func filterError(err error) error {
	switch {
	case errors.Is(err, filter.ErrPresetNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, filter.ErrPresetExists), errors.Is(err, filter.ErrDefaultPreset):
		return errors.Join(ErrConflict, err)
	}
	return err
}
