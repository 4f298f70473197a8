package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/kvstore"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/validator"
)

// Store is the single owner of notification records. It keeps the full set
// in memory, hydrated once from a kvstore.Store, and writes the complete
// snapshot back on every mutation.
type Store struct {
	mu     sync.Mutex
	kv     kvstore.Store
	loaded bool
	items  []Notification // insertion order

	key        string
	maxRecords int
	retention  time.Duration
	durability DurabilityMode
	now        func() time.Time
	newID      func() string
	logger     *slog.Logger

	lmu          sync.RWMutex
	listeners    map[uint64]func(ChangeEvent)
	nextListener uint64
}

// NewStore creates a store persisting through kv. A nil kv keeps records in
// process memory only.
func NewStore(kv kvstore.Store, opts ...Option) *Store {
	if kv == nil {
		kv = kvstore.NewMemory()
	}
	s := &Store{
		kv:         kv,
		key:        DefaultStorageKey,
		maxRecords: DefaultMaxRecords,
		retention:  DefaultRetention,
		now:        time.Now,
		newID:      defaultID,
		logger:     slog.Default(),
		listeners:  make(map[uint64]func(ChangeEvent)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreFromConfig creates a store from env configuration.
func NewStoreFromConfig(kv kvstore.Store, cfg Config, opts ...Option) *Store {
	return NewStore(kv, append(cfg.Options(), opts...)...)
}

// Loaded reports whether the snapshot has been hydrated.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Load hydrates the store if it has not been loaded yet.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoaded(ctx)
}

// ensureLoaded must be called with s.mu held. A read error leaves the store
// unloaded so the next call retries; a corrupt blob loads as empty.
func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to load notifications",
			logger.Key(s.key),
			logger.Error(err),
		)
		return errors.Join(ErrLoadFailed, err)
	}

	var items []Notification
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "corrupt notification snapshot, starting empty",
				logger.Key(s.key),
				logger.Error(err),
			)
			items = nil
		}
	}

	s.items = items
	s.loaded = true

	if removed := s.prune(); removed > 0 {
		if err := s.write(ctx); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to persist purged notifications",
				logger.Count(removed),
				logger.Error(err),
			)
		}
	}
	return nil
}

// prune drops expired records, then the oldest records above the cap.
// Returns the number removed. Caller holds s.mu.
func (s *Store) prune() int {
	before := len(s.items)
	now := s.now()
	s.items = slices.DeleteFunc(s.items, func(n Notification) bool {
		return n.ExpiredAt(now)
	})

	if over := len(s.items) - s.maxRecords; over > 0 {
		order := make([]int, len(s.items))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			return s.items[a].CreatedAt.Compare(s.items[b].CreatedAt)
		})
		evict := make(map[int]bool, over)
		for _, idx := range order[:over] {
			evict[idx] = true
		}
		kept := s.items[:0]
		for i, n := range s.items {
			if !evict[i] {
				kept = append(kept, n)
			}
		}
		s.items = kept
	}
	return before - len(s.items)
}

func (s *Store) write(ctx context.Context) error {
	if s.items == nil {
		s.items = []Notification{}
	}
	raw, err := json.Marshal(s.items)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, raw)
}

// commit prunes and persists the current state. On write failure strict
// mode restores prev and returns ErrPersistFailed; best effort mode logs.
// Caller holds s.mu.
func (s *Store) commit(ctx context.Context, prev []Notification, op string) error {
	s.prune()
	err := s.write(ctx)
	if err == nil {
		return nil
	}
	if s.durability == DurabilityStrict {
		s.items = prev
		return errors.Join(ErrPersistFailed, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "notification change kept in memory only",
		slog.String("op", op),
		logger.Key(s.key),
		logger.Error(err),
	)
	return nil
}

func (s *Store) snapshot() []Notification {
	return slices.Clone(s.items)
}

func (s *Store) validate(d Draft, now time.Time) error {
	return validator.Apply(
		validator.RequiredString("title", d.Title),
		validator.MaxLenString("title", d.Title, MaxTitleLength),
		validator.MaxLenString("body", d.Body, MaxBodyLength),
		validator.OptionalInList("source_type", d.SourceType, SourceTypes),
		validator.OptionalInList("priority", d.Priority, Priorities),
		validator.OptionalInList("source", d.Source, Sources),
		validator.MaxLenString("category", d.Category, 64),
		validator.NotBefore("expires_at", d.ExpiresAt, now),
	)
}

// Add validates d, materializes it into a Notification and persists the
// store. Invalid drafts return an error wrapping ErrInvalidDraft and the
// validator.ValidationErrors.
func (s *Store) Add(ctx context.Context, d Draft) (Notification, error) {
	s.mu.Lock()

	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return Notification{}, err
	}

	now := s.now()
	if err := s.validate(d, now); err != nil {
		s.mu.Unlock()
		return Notification{}, errors.Join(ErrInvalidDraft, err)
	}

	n := Notification{
		ID:         s.newID(),
		SourceType: d.SourceType,
		Title:      d.Title,
		Body:       d.Body,
		Payload:    maps.Clone(d.Payload),
		CreatedAt:  now,
		Priority:   d.Priority,
		Category:   d.Category,
		Source:     d.Source,
		ExpiresAt:  d.ExpiresAt,
		PropertyID: d.PropertyID,
		TenantID:   d.TenantID,
		UserID:     d.UserID,
		Action:     d.Action,
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if n.Category == "" {
		n.Category = CategoryFor(n.SourceType)
	}
	if n.Source == "" {
		n.Source = SourceLocal
	}
	if n.ExpiresAt.IsZero() {
		n.ExpiresAt = now.Add(s.retention)
	}

	prev := s.snapshot()
	s.items = append(s.items, n)
	if err := s.commit(ctx, prev, "add"); err != nil {
		s.mu.Unlock()
		return Notification{}, err
	}
	s.mu.Unlock()

	out := n.clone()
	s.emit(ctx, ChangeEvent{Type: ChangeAdded, IDs: []string{n.ID}, Notification: &out})
	return n.clone(), nil
}

// Get returns a copy of the notification or ErrNotificationNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ensureLoaded(ctx)

	if i := s.indexOf(id); i >= 0 {
		n := s.items[i].clone()
		return &n, nil
	}
	return nil, ErrNotificationNotFound
}

// indexOf returns the position of a visible record. Caller holds s.mu.
func (s *Store) indexOf(id string) int {
	now := s.now()
	for i := range s.items {
		if s.items[i].ID == id && !s.items[i].ExpiredAt(now) {
			return i
		}
	}
	return -1
}

// MarkRead marks id as read. It returns false when id is unknown.
// Marking an already read notification is a no-op that still returns true.
func (s *Store) MarkRead(ctx context.Context, id string) (bool, error) {
	return s.setRead(ctx, id, true)
}

// MarkUnread is the inverse of MarkRead.
func (s *Store) MarkUnread(ctx context.Context, id string) (bool, error) {
	return s.setRead(ctx, id, false)
}

func (s *Store) setRead(ctx context.Context, id string, read bool) (bool, error) {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return false, err
	}

	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	if s.items[i].IsRead == read {
		s.mu.Unlock()
		return true, nil
	}

	prev := s.snapshot()
	s.applyRead(i, read)
	if err := s.commit(ctx, prev, "set_read"); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()

	change := ChangeRead
	if !read {
		change = ChangeUnread
	}
	s.emit(ctx, ChangeEvent{Type: change, IDs: []string{id}})
	return true, nil
}

// applyRead replaces the record at i with its read flag flipped, leaving
// prev snapshots untouched. Caller holds s.mu.
func (s *Store) applyRead(i int, read bool) {
	n := s.items[i]
	n.IsRead = read
	n.ReadAt = nil
	if read {
		at := s.now()
		n.ReadAt = &at
	}
	s.items[i] = n
}

// MarkManyRead marks every listed notification read and returns how many
// actually changed. Unknown ids are skipped.
func (s *Store) MarkManyRead(ctx context.Context, ids ...string) (int, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return s.markReadWhere(ctx, func(n Notification) bool { return want[n.ID] })
}

// MarkAllRead marks every visible notification read.
func (s *Store) MarkAllRead(ctx context.Context) (int, error) {
	return s.markReadWhere(ctx, func(Notification) bool { return true })
}

// MarkCategoryRead marks every visible notification of category read.
func (s *Store) MarkCategoryRead(ctx context.Context, category string) (int, error) {
	return s.markReadWhere(ctx, func(n Notification) bool { return n.Category == category })
}

func (s *Store) markReadWhere(ctx context.Context, match func(Notification) bool) (int, error) {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return 0, err
	}

	prev := s.snapshot()
	now := s.now()
	var changed []string
	for i, n := range s.items {
		if n.IsRead || n.ExpiredAt(now) || !match(n) {
			continue
		}
		s.applyRead(i, true)
		changed = append(changed, n.ID)
	}
	if len(changed) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	if err := s.commit(ctx, prev, "mark_read"); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.mu.Unlock()

	s.emit(ctx, ChangeEvent{Type: ChangeRead, IDs: changed})
	return len(changed), nil
}

// Delete removes id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.DeleteMany(ctx, id)
	return n > 0, err
}

// DeleteMany removes the listed notifications and returns how many existed.
func (s *Store) DeleteMany(ctx context.Context, ids ...string) (int, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return s.deleteWhere(ctx, ChangeDeleted, func(n Notification) bool { return want[n.ID] })
}

// ClearAll removes every notification and returns how many were visible.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	return s.deleteWhere(ctx, ChangeCleared, func(Notification) bool { return true })
}

func (s *Store) deleteWhere(ctx context.Context, change ChangeType, match func(Notification) bool) (int, error) {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return 0, err
	}

	prev := s.snapshot()
	now := s.now()
	var removed []string
	kept := make([]Notification, 0, len(s.items))
	for _, n := range s.items {
		if match(n) {
			if !n.ExpiredAt(now) {
				removed = append(removed, n.ID)
			}
			continue
		}
		kept = append(kept, n)
	}
	if len(kept) == len(s.items) {
		s.mu.Unlock()
		return 0, nil
	}
	s.items = kept
	if err := s.commit(ctx, prev, string(change)); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.mu.Unlock()

	if len(removed) > 0 {
		s.emit(ctx, ChangeEvent{Type: change, IDs: removed})
	}
	return len(removed), nil
}

// Purge removes expired records and records above the cap, persisting when
// anything was removed. Returns the number removed.
func (s *Store) Purge(ctx context.Context) (int, error) {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return 0, err
	}

	prev := s.snapshot()
	before := make(map[string]bool, len(prev))
	for _, n := range prev {
		before[n.ID] = true
	}
	removed := s.prune()
	if removed == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	for _, n := range s.items {
		delete(before, n.ID)
	}
	if err := s.commit(ctx, prev, "purge"); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.mu.Unlock()

	s.emit(ctx, ChangeEvent{Type: ChangePurged, IDs: slices.Sorted(maps.Keys(before))})
	return removed, nil
}
