package realtime

import (
	"context"

	"github.com/dmitrymomot/propnotify/pkg/statemachine"
)

type subEvent string

const (
	evSubscribe   subEvent = "subscribe"
	evAck         subEvent = "ack"
	evFail        subEvent = "fail"
	evUnsubscribe subEvent = "unsubscribe"
)

type subscription struct {
	resource string
	handle   Handle
	token    uint64 // bumped on every (re)subscribe; stale callbacks compare against it
	machine  *statemachine.Machine[SubscriptionState, subEvent]
}

func newSubscription(resource string) *subscription {
	type option = statemachine.Option[SubscriptionState, subEvent]
	opts := []option{
		statemachine.WithTransitionFromAny([]SubscriptionState{SubUnsubscribed, SubError}, SubSubscribing, evSubscribe),
		statemachine.WithTransition[SubscriptionState, subEvent](SubSubscribing, SubSubscribed, evAck),
		statemachine.WithTransitionFromAny([]SubscriptionState{SubSubscribing, SubSubscribed}, SubError, evFail),
		statemachine.WithTransitionFromAny([]SubscriptionState{SubSubscribing, SubSubscribed, SubError}, SubUnsubscribed, evUnsubscribe),
	}
	return &subscription{
		resource: resource,
		machine:  statemachine.New(SubUnsubscribed, opts...),
	}
}

// fire applies ev when the machine allows it and ignores it otherwise.
func (s *subscription) fire(ctx context.Context, ev subEvent) {
	if s.machine.CanFire(ctx, ev, nil) {
		_ = s.machine.Fire(ctx, ev, nil)
	}
}
