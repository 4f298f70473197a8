package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/propnotify/pkg/logger"
)

// ChangeType names a store mutation.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRead    ChangeType = "read"
	ChangeUnread  ChangeType = "unread"
	ChangeDeleted ChangeType = "deleted"
	ChangeCleared ChangeType = "cleared"
	ChangePurged  ChangeType = "purged"
)

// ChangeEvent describes a committed mutation.
type ChangeEvent struct {
	Type ChangeType
	IDs  []string
	// Notification is set for ChangeAdded.
	Notification *Notification
}

// OnChange registers fn for every committed mutation and returns a function
// that unregisters it. Listeners run synchronously after the store lock is
// released; a panicking listener is logged and does not affect the others.
func (s *Store) OnChange(fn func(ChangeEvent)) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) emit(ctx context.Context, ev ChangeEvent) {
	s.lmu.RLock()
	fns := make([]func(ChangeEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.RUnlock()

	for _, fn := range fns {
		s.dispatch(ctx, fn, ev)
	}
}

func (s *Store) dispatch(ctx context.Context, fn func(ChangeEvent), ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "notification change listener panicked",
				logger.Error(fmt.Errorf("panic: %v", r)),
				slog.String("change", string(ev.Type)),
			)
		}
	}()
	fn(ev)
}
