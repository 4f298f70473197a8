// Package events turns change records from the realtime feed into
// notification drafts.
//
// FromChange normalizes a raw change record ({action, new, old}) for a
// resource into an Event. Transformer.Transform maps an Event to a
// notifications.Draft using static tables:
//
//	type                  category     default priority
//	maintenance_request   Maintenance  high
//	voucher               Finance      medium
//	property_reservation  Property     medium
//	contract              Contract     medium
//	issue                 Issue        high
//	(anything else)       General      medium
//
// A valid "priority" field in the event data overrides the default. Titles
// and bodies come from per type and action templates; missing fields are
// rendered as "N/A". Unknown types produce a generic General notification
// unless the transformer was built WithIgnoreUnknown.
package events
