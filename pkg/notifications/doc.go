// Package notifications is the local notification store: the single owner of
// notification records, their retention and their persistence.
//
// # Model
//
// A Draft is what callers hand in; Store.Add validates it and materializes a
// Notification with a UUIDv4 ID, CreatedAt, IsRead=false, a default priority
// (medium), a category derived from SourceType and an ExpiresAt of now plus
// the retention window (30 days by default).
//
// # Persistence
//
// The store keeps every record in memory and mirrors the full set to a
// kvstore.Store as one JSON array under a single key ("notifications:v1").
// The snapshot is loaded lazily on first use. A corrupt snapshot loads as an
// empty store. Each mutation prunes expired records, enforces the record cap
// (100 by default, oldest by CreatedAt evicted first) and writes the whole
// snapshot back.
//
// What happens when that write fails is governed by DurabilityMode.
// DurabilityBestEffort (the default) logs the failure and keeps the change
// in memory. DurabilityStrict rolls the change back and returns
// ErrPersistFailed.
//
// # Usage
//
//	store := notifications.NewStore(kv,
//		notifications.WithMaxRecords(100),
//		notifications.WithLogger(log),
//	)
//	n, err := store.Add(ctx, notifications.Draft{
//		SourceType: notifications.SourceMaintenanceRequest,
//		Title:      "Maintenance request created",
//		Body:       "Leaking faucet in unit 4B",
//	})
//	unread, _ := store.UnreadCount(ctx)
//	list, _ := store.Query(ctx, notifications.QueryOptions{
//		Filter: notifications.Filter{Category: notifications.CategoryMaintenance},
//		SortBy: notifications.SortByPriority,
//	})
//
// Mutations are announced to OnChange listeners after they are committed.
package notifications
