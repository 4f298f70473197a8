// Package filter holds the active notification filter, sort order and named
// presets, and applies them to a notification list.
//
// An Engine owns one State. Apply is a pure function of that state and its
// input: it never touches a store. Default presets (all, unread, urgent,
// today, maintenance, finance) always exist and cannot be removed; custom
// presets can be added at runtime or loaded from a YAML file.
//
//	eng := filter.New()
//	eng.SetCategories(notifications.CategoryMaintenance)
//	eng.SetReadState(filter.ReadStateUnread)
//	res := eng.Apply(items)
//	fmt.Println(res.FilteredCount, res.Stats.Unread)
//
// State round-trips through Marshal/Unmarshal and can be persisted with
// Save/Load against any kvstore.Store under StorageKey.
package filter
