// Package broadcast fans values out to in-process subscribers.
//
// A Topic never blocks the publisher: each subscription has a bounded
// buffer and values that do not fit are dropped for that subscriber and
// counted. Subscriptions end when their context is cancelled, when Close is
// called on them, or when the topic closes.
//
//	topic := broadcast.NewTopic[notifications.Notification](16)
//	sub := topic.Subscribe(ctx)
//	defer sub.Close()
//	for n := range sub.C() {
//		...
//	}
//
// The pipeline publishes newly stored notifications on a Topic and the SSE
// endpoint of modules/inbox consumes it.
package broadcast
