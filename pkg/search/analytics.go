package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/dmitrymomot/propnotify/pkg/cache"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

// QueryCount is a query with the number of times it was searched.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// record puts raw at the front of the history and bumps the popularity of
// its normalized form.
func (e *Engine) record(raw, normalized string) {
	e.amu.Lock()
	defer e.amu.Unlock()

	e.history = slices.DeleteFunc(e.history, func(h string) bool { return normalize(h) == normalized })
	e.history = slices.Insert(e.history, 0, raw)
	if len(e.history) > e.historySize {
		e.history = e.history[:e.historySize]
	}
	e.popularity[normalized]++
}

// History returns past queries, most recent first.
func (e *Engine) History() []string {
	e.amu.Lock()
	defer e.amu.Unlock()
	return slices.Clone(e.history)
}

// PopularQueries returns up to n queries ordered by search count. n <= 0
// returns all of them.
func (e *Engine) PopularQueries(n int) []QueryCount {
	e.amu.Lock()
	out := make([]QueryCount, 0, len(e.popularity))
	for q, c := range e.popularity {
		out = append(out, QueryCount{Query: q, Count: c})
	}
	e.amu.Unlock()

	slices.SortFunc(out, func(a, b QueryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Query, b.Query)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ClearHistory forgets past queries. Popularity counts are kept.
func (e *Engine) ClearHistory() {
	e.amu.Lock()
	defer e.amu.Unlock()
	e.history = nil
}

// ClearAnalytics resets popularity counts and cached results.
func (e *Engine) ClearAnalytics() {
	e.amu.Lock()
	clear(e.popularity)
	e.amu.Unlock()
	e.results.Purge()
}

// CacheStats reports result cache effectiveness.
func (e *Engine) CacheStats() cache.Stats {
	return e.results.Stats()
}

// Suggest returns up to MaxSuggestions completions for partial: matching
// category names first, then history, then popular queries. Matching is a
// case and diacritic insensitive substring test.
func (e *Engine) Suggest(partial string) []string {
	p := normalize(partial)
	if p == "" {
		return nil
	}

	out := make([]string, 0, MaxSuggestions)
	seen := make(map[string]bool)
	add := func(s string) bool {
		key := normalize(s)
		if key == "" || seen[key] || !strings.Contains(key, p) {
			return len(out) < MaxSuggestions
		}
		seen[key] = true
		out = append(out, s)
		return len(out) < MaxSuggestions
	}

	e.mu.RLock()
	categories := slices.Clone(e.categories)
	e.mu.RUnlock()
	for _, c := range notifications.Categories {
		if !slices.Contains(categories, c) {
			categories = append(categories, c)
		}
	}

	for _, c := range categories {
		if !add(c) {
			return out
		}
	}
	for _, h := range e.History() {
		if !add(h) {
			return out
		}
	}
	for _, qc := range e.PopularQueries(0) {
		if !add(qc.Query) {
			return out
		}
	}
	return out
}
