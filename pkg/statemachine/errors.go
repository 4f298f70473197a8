package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrNoTransition       = errors.New("no transition available")
	ErrTransitionRejected = errors.New("transition rejected by guards")
	ErrActionFailed       = errors.New("transition action failed")
)

// TransitionError reports the state and event of a failed Fire.
type TransitionError[S, E comparable] struct {
	From  S
	Event E
	Err   error
}

func (e *TransitionError[S, E]) Error() string {
	return fmt.Sprintf("statemachine: %v on %v: %v", e.From, e.Event, e.Err)
}

func (e *TransitionError[S, E]) Unwrap() error { return e.Err }
