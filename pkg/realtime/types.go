package realtime

import (
	"context"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/events"
)

// Handle identifies a feed subscription. Its concrete type belongs to the feed.
type Handle any

// ChangeFeed is the remote change-feed transport.
type ChangeFeed interface {
	Subscribe(ctx context.Context, resource string, onChange func(events.Change)) (Handle, error)
	Unsubscribe(ctx context.Context, h Handle) error
}

// ConnectionNotifier is implemented by feeds that can report a dropped
// connection after subscribing succeeded.
type ConnectionNotifier interface {
	NotifyConnectionLost(fn func(err error))
}

// Authenticator is consulted by Initialize and every reconnect attempt.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context) error

func (f AuthenticatorFunc) Authenticate(ctx context.Context) error { return f(ctx) }

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// State is the overall connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Status is a snapshot of the connection.
type Status struct {
	State     State         `json:"state"`
	Message   string        `json:"message,omitempty"`
	Attempt   int           `json:"attempt,omitempty"`
	NextRetry time.Duration `json:"next_retry,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SubscriptionState is the state of one watched resource.
type SubscriptionState string

const (
	SubUnsubscribed SubscriptionState = "unsubscribed"
	SubSubscribing  SubscriptionState = "subscribing"
	SubSubscribed   SubscriptionState = "subscribed"
	SubError        SubscriptionState = "error"
)

// Subscription is a snapshot of one watched resource.
type Subscription struct {
	Resource string            `json:"resource"`
	Handle   Handle            `json:"-"`
	IsActive bool              `json:"is_active"`
	State    SubscriptionState `json:"state"`
}
