package statemachine

import (
	"context"
	"errors"
	"sync"
)

// Guard decides at fire time whether a transition may proceed.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Action runs before the state changes; an error aborts the transition.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E, data any) error

// Transition is one edge of the machine.
type Transition[S, E comparable] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]
	Actions []Action[S, E]
}

type edgeKey[S, E comparable] struct {
	from  S
	event E
}

// Machine is a thread-safe finite state machine over comparable state and
// event types.
type Machine[S, E comparable] struct {
	mu          sync.RWMutex
	initial     S
	current     S
	transitions map[edgeKey[S, E]][]Transition[S, E]
	observers   []func(from, to S, event E)
}

// AddTransition registers an edge. Several edges may share from and event;
// the first one whose guards pass wins.
func (m *Machine[S, E]) AddTransition(t Transition[S, E]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := edgeKey[S, E]{t.From, t.Event}
	m.transitions[k] = append(m.transitions[k], t)
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is in state s.
func (m *Machine[S, E]) Is(s S) bool {
	return m.Current() == s
}

// Fire applies event. It returns ErrNoTransition when no edge matches the
// current state and ErrTransitionRejected when every matching edge's guards
// refused. Observers run after the lock is released.
func (m *Machine[S, E]) Fire(ctx context.Context, event E, data any) error {
	m.mu.Lock()
	from := m.current
	candidates := m.transitions[edgeKey[S, E]{from, event}]
	if len(candidates) == 0 {
		m.mu.Unlock()
		return &TransitionError[S, E]{From: from, Event: event, Err: ErrNoTransition}
	}

	t, ok := firstAllowed(ctx, candidates, from, event, data)
	if !ok {
		m.mu.Unlock()
		return &TransitionError[S, E]{From: from, Event: event, Err: ErrTransitionRejected}
	}

	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event, data); err != nil {
			m.mu.Unlock()
			return &TransitionError[S, E]{From: from, Event: event, Err: errors.Join(ErrActionFailed, err)}
		}
	}

	m.current = t.To
	observers := m.observers
	m.mu.Unlock()

	for _, fn := range observers {
		fn(from, t.To, event)
	}
	return nil
}

// CanFire reports whether Fire(event) would find an allowed transition.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := firstAllowed(ctx, m.transitions[edgeKey[S, E]{m.current, event}], m.current, event, data)
	return ok
}

// Reset returns to the initial state without running actions or observers.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

func firstAllowed[S, E comparable](ctx context.Context, ts []Transition[S, E], from S, event E, data any) (Transition[S, E], bool) {
	for _, t := range ts {
		allowed := true
		for _, g := range t.Guards {
			if !g(ctx, from, event, data) {
				allowed = false
				break
			}
		}
		if allowed {
			return t, true
		}
	}
	return Transition[S, E]{}, false
}
