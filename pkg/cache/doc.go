// Package cache provides a generic, concurrency-safe LRU cache.
//
// The search engine caches ranked results per normalized query and purges the
// cache whenever the index is rebuilt; the pipeline keeps a bounded window of
// recently processed change-event ids to drop redelivered events.
//
//	seen := cache.NewLRU[string, struct{}](1024)
//	if seen.Contains(evt.ID) {
//	    return // duplicate delivery
//	}
//	seen.Add(evt.ID, struct{}{})
//
// All operations are O(1). OnEvict callbacks run under the cache lock.
package cache
