// Package kvstore defines the opaque blob store the notification store and
// the filter engine persist through, plus an in-memory implementation and
// decorators.
//
// Implementations backed by real databases live in pkg/redis, pkg/pg and
// pkg/mongo. Every implementation follows the same contract: Get returns
// (nil, nil) for a missing key, Set overwrites unconditionally.
//
// Backing stores should be wrapped with WithTimeout so a stuck write cannot
// hang the pipeline:
//
//	store := kvstore.WithTimeout(redis.NewStore(client), 5*time.Second)
package kvstore
