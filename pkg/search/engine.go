package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/cache"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

// Field weights.
const (
	weightTitle    = 1.0
	weightBody     = 0.6
	weightType     = 0.3
	weightCategory = 0.2
)

// Boosts added on top of the field score.
const (
	boostExactTitle  = 2.0
	boostContainment = 0.5
	boostDay         = 0.3
	boostWeek        = 0.2
	boostMonth       = 0.1
	boostPerPriority = 0.1 // multiplied by Priority.Weight
)

const (
	DefaultHistorySize = 50
	DefaultCacheSize   = 100
	MaxSuggestions     = 10
)

// Options narrows a search. Filters apply before scoring.
type Options struct {
	Categories []string
	// From is inclusive, To exclusive.
	From  time.Time
	To    time.Time
	Limit int
}

func (o Options) key(query string) string {
	cats := slices.Clone(o.Categories)
	slices.Sort(cats)
	return fmt.Sprintf("%s|%s|%d|%d|%d", query, strings.Join(cats, ","), o.From.UnixNano(), o.To.UnixNano(), o.Limit)
}

// cachedResults are valid until the first hit changes its age tier.
// A zero expires never goes stale.
type cachedResults struct {
	results []Result
	expires time.Time
}

func (c cachedResults) fresh(now time.Time) bool {
	return c.expires.IsZero() || now.Before(c.expires)
}

// ageTiers are the boundaries of the recency boosts.
var ageTiers = []time.Duration{24 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour}

// nextTierChange returns when a notification created at created moves to a
// lower recency boost after now, or zero when it already has none.
func nextTierChange(created, now time.Time) time.Time {
	for _, tier := range ageTiers {
		if at := created.Add(tier); at.After(now) {
			return at
		}
	}
	return time.Time{}
}

// Result is one ranked hit.
type Result struct {
	Notification notifications.Notification `json:"notification"`
	Score        float64                    `json:"score"`
}

type document struct {
	n        notifications.Notification
	title    string
	body     string
	kind     string
	category string
	tokens   map[string][]string // field -> tokens
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

// WithHistorySize bounds the query history.
func WithHistorySize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historySize = n
		}
	}
}

// WithCacheSize sets the result cache capacity.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cacheSize = n
		}
	}
}

// Engine is an in-memory search index. Safe for concurrent use.
type Engine struct {
	mu         sync.RWMutex
	docs       map[string]*document
	postings   map[string]map[string]struct{}
	categories []string

	results   *cache.LRU[string, cachedResults]
	cacheSize int

	amu         sync.Mutex
	history     []string
	popularity  map[string]int
	historySize int

	now    func() time.Time
	logger *slog.Logger
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		docs:        make(map[string]*document),
		postings:    make(map[string]map[string]struct{}),
		popularity:  make(map[string]int),
		historySize: DefaultHistorySize,
		cacheSize:   DefaultCacheSize,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.results = cache.NewLRU[string, cachedResults](e.cacheSize)
	return e
}

// Index replaces the whole index with items and drops cached results.
func (e *Engine) Index(items []notifications.Notification) {
	docs := make(map[string]*document, len(items))
	postings := make(map[string]map[string]struct{})
	seenCat := make(map[string]bool)
	var categories []string

	for _, n := range items {
		d := &document{
			n:        n,
			title:    normalize(n.Title),
			body:     normalize(n.Body),
			kind:     normalize(string(n.SourceType)),
			category: normalize(n.Category),
			tokens: map[string][]string{
				"title":    tokenize(n.Title),
				"body":     tokenize(n.Body),
				"type":     tokenize(string(n.SourceType)),
				"category": tokenize(n.Category),
			},
		}
		docs[n.ID] = d
		for _, toks := range d.tokens {
			for _, tok := range toks {
				ids := postings[tok]
				if ids == nil {
					ids = make(map[string]struct{})
					postings[tok] = ids
				}
				ids[n.ID] = struct{}{}
			}
		}
		if n.Category != "" && !seenCat[n.Category] {
			seenCat[n.Category] = true
			categories = append(categories, n.Category)
		}
	}

	e.mu.Lock()
	e.docs = docs
	e.postings = postings
	e.categories = categories
	e.mu.Unlock()
	e.results.Purge()

	e.logger.LogAttrs(context.Background(), slog.LevelDebug, "search index rebuilt",
		logger.Count(len(docs)),
		slog.Int("tokens", len(postings)),
	)
}

// Len returns the number of indexed notifications.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Search returns hits for query ordered by descending score. An empty query
// returns nothing and is not recorded.
func (e *Engine) Search(query string, opts Options) []Result {
	q := normalize(query)
	qtokens := tokenize(query)
	if q == "" || len(qtokens) == 0 {
		return nil
	}
	e.record(strings.TrimSpace(query), q)

	now := e.now()
	key := opts.key(q)
	if cached, ok := e.results.Get(key); ok && cached.fresh(now) {
		return slices.Clone(cached.results)
	}

	e.mu.RLock()
	candidates := e.candidates(qtokens)
	results := make([]Result, 0, len(candidates))
	var expires time.Time
	for id := range candidates {
		d := e.docs[id]
		if !opts.allows(d.n) {
			continue
		}
		if score := d.score(q, qtokens, now); score > 0 {
			results = append(results, Result{Notification: d.n, Score: score})
			if at := nextTierChange(d.n.CreatedAt, now); !at.IsZero() && (expires.IsZero() || at.Before(expires)) {
				expires = at
			}
		}
	}
	e.mu.RUnlock()

	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := b.Notification.CreatedAt.Compare(a.Notification.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Notification.ID, b.Notification.ID)
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	e.results.Add(key, cachedResults{results: results, expires: expires})
	return slices.Clone(results)
}

func (o Options) allows(n notifications.Notification) bool {
	if len(o.Categories) > 0 && !slices.Contains(o.Categories, n.Category) {
		return false
	}
	if !o.From.IsZero() && n.CreatedAt.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && !n.CreatedAt.Before(o.To) {
		return false
	}
	return true
}

// candidates returns the AND intersection of exact postings unioned with
// every document containing a token within fuzzy distance of a query token.
// Caller holds e.mu.
func (e *Engine) candidates(qtokens []string) map[string]struct{} {
	out := make(map[string]struct{})

	var and map[string]struct{}
	for i, tok := range qtokens {
		ids := e.postings[tok]
		if i == 0 {
			and = make(map[string]struct{}, len(ids))
			for id := range ids {
				and[id] = struct{}{}
			}
			continue
		}
		for id := range and {
			if _, ok := ids[id]; !ok {
				delete(and, id)
			}
		}
	}
	for id := range and {
		out[id] = struct{}{}
	}

	for _, qt := range qtokens {
		limit := fuzzyThreshold(qt)
		if limit == 0 {
			continue
		}
		for tok, ids := range e.postings {
			if tok == qt || !withinDistance(qt, tok, limit) {
				continue
			}
			for id := range ids {
				out[id] = struct{}{}
			}
		}
	}
	return out
}

func (d *document) score(q string, qtokens []string, now time.Time) float64 {
	s := weightTitle*fieldScore(d.title, d.tokens["title"], q, qtokens) +
		weightBody*fieldScore(d.body, d.tokens["body"], q, qtokens) +
		weightType*fieldScore(d.kind, d.tokens["type"], q, qtokens) +
		weightCategory*fieldScore(d.category, d.tokens["category"], q, qtokens)
	if s == 0 {
		return 0
	}

	if d.title == q {
		s += boostExactTitle
	}
	if strings.Contains(d.body, q) {
		s += boostContainment
	}

	switch age := now.Sub(d.n.CreatedAt); {
	case age < ageTiers[0]:
		s += boostDay
	case age < ageTiers[1]:
		s += boostWeek
	case age < ageTiers[2]:
		s += boostMonth
	}

	s += boostPerPriority * float64(d.n.Priority.Weight())
	return s
}

// fieldScore rates how well one field matches: 1 for an exact match, 0.8
// when the field contains the whole query, otherwise the share of query
// tokens found in the field (exact 1, prefix 0.75, fuzzy 0.5) scaled by 0.6.
func fieldScore(text string, tokens []string, q string, qtokens []string) float64 {
	if text == "" {
		return 0
	}
	if text == q {
		return 1
	}
	if strings.Contains(text, q) {
		return 0.8
	}

	var covered float64
	for _, qt := range qtokens {
		covered += tokenMatch(qt, tokens)
	}
	return 0.6 * covered / float64(len(qtokens))
}

func tokenMatch(qt string, tokens []string) float64 {
	best := 0.0
	limit := fuzzyThreshold(qt)
	for _, tok := range tokens {
		switch {
		case tok == qt:
			return 1
		case strings.HasPrefix(tok, qt):
			best = max(best, 0.75)
		case limit > 0 && withinDistance(qt, tok, limit):
			best = max(best, 0.5)
		}
	}
	return best
}
