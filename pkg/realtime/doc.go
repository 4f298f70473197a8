// Package realtime owns the subscriptions to the remote change feed.
//
// A Manager keeps one subscription per watched resource, forwards every
// change record as an events.Event to registered handlers and reconnects
// with exponential backoff (1s, 2s, 4s ... capped at 30s) when connecting
// fails. After five consecutive failures it stops and reports StateError
// until Reconnect is called.
//
// Connection status moves through
//
//	disconnected -> connecting -> connected
//	                connecting -> error -> connecting (retry)
//	any          -> disconnected (Cleanup)
//
// and each resource through its own state machine
//
//	unsubscribed -> subscribing -> subscribed -> unsubscribed | error
//
// Usage:
//
//	m := realtime.New(feed,
//		realtime.WithResources("maintenance_request", "voucher"),
//		realtime.WithAuthenticator(auth),
//	)
//	m.OnEvent(func(ev events.Event) { ... })
//	m.OnStatus(func(s realtime.Status) { ... })
//	if err := m.Initialize(ctx); err != nil {
//		// a retry is already scheduled
//	}
//	defer m.Cleanup(context.Background())
package realtime
