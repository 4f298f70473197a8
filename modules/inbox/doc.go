// Package inbox exposes the notification pipeline over HTTP.
//
// Router mounts JSON endpoints for listing, reading and deleting
// notifications, searching, filtering with presets, badge counts, realtime
// status and a server-sent event stream of new notifications. Components are
// optional: endpoints for a component that was not supplied answer 404.
//
//	m := inbox.New(p,
//	    inbox.WithFilters(filters),
//	    inbox.WithSearch(searchEngine),
//	    inbox.WithBadges(badges),
//	    inbox.WithRealtime(rt),
//	)
//	router.Mount("/api", m.Router())
//
// Every JSON response uses the Envelope shape: data on success, error with a
// code (and per-field details for validation failures) otherwise.
package inbox
