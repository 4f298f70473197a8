// Package statemachine implements a small generic finite state machine with
// guards, actions and transition observers.
//
//	type state string
//	type event string
//
//	m := statemachine.New[state, event]("unsubscribed",
//		statemachine.WithTransition[state, event]("unsubscribed", "subscribing", "subscribe"),
//		statemachine.WithTransition[state, event]("subscribing", "subscribed", "ack"),
//	)
//	if err := m.Fire(ctx, "subscribe", nil); errors.Is(err, statemachine.ErrNoTransition) {
//		...
//	}
//
// The realtime package drives one machine per watched resource.
package statemachine
