// Package pipeline wires the notification data flow:
//
//	realtime change -> events.Transformer -> notifications.Store
//	    -> badge.Aggregator (through Store.OnChange)
//	    -> search.Engine reindex (through Store.OnChange)
//	    -> push.Gateway when preferences allow
//	    -> new-notification broadcast
//
// A Pipeline does not own the components it is given; it only connects them
// in Start and disconnects them in Stop. HandleEvent can be called directly
// for events that do not come from the realtime manager.
package pipeline
