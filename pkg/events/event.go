package events

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of row change.
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Valid reports whether a is one of INSERT, UPDATE, DELETE.
func (a Action) Valid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ParseAction normalizes case. Unknown values are returned as is and fail Valid.
func ParseAction(s string) Action {
	return Action(strings.ToUpper(strings.TrimSpace(s)))
}

// Event is a normalized change on a watched resource. It is never persisted.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Action     Action         `json:"action"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	UserID     string         `json:"user_id,omitempty"`
	PropertyID string         `json:"property_id,omitempty"`
	TenantID   string         `json:"tenant_id,omitempty"`
}

// Change is the raw record delivered by a change feed.
type Change struct {
	Action string         `json:"action"`
	New    map[string]any `json:"new,omitempty"`
	Old    map[string]any `json:"old,omitempty"`
}

var eventNamespace = uuid.MustParse("6f0c8a52-3d4b-4e8e-9a71-2b5d0c9e4f13")

// FromChange converts a change on resource into an Event. The row is the
// new image, or the old image for deletes. Rows carrying both id and
// updated_at get a deterministic event ID so redelivered changes can be
// deduplicated; any other change gets a random one.
func FromChange(resource string, c Change) Event {
	action := ParseAction(c.Action)
	row := c.New
	if action == ActionDelete || len(row) == 0 {
		row = c.Old
	}
	data := maps.Clone(row)
	if data == nil {
		data = map[string]any{}
	}

	ev := Event{
		Type:       resource,
		Action:     action,
		Data:       data,
		Timestamp:  rowTime(row),
		PropertyID: field(row, "property_id"),
		TenantID:   field(row, "tenant_id"),
		UserID:     field(row, "user_id"),
	}
	if ev.UserID == "" {
		ev.UserID = field(row, "created_by")
	}

	id, version := field(row, "id"), field(row, "updated_at")
	if id != "" && version != "" {
		ev.ID = uuid.NewSHA1(eventNamespace, []byte(strings.Join([]string{resource, string(action), id, version}, "|"))).String()
	} else {
		ev.ID = uuid.NewString()
	}
	return ev
}

func field(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
	}
	return fmt.Sprint(v)
}

func rowTime(row map[string]any) time.Time {
	for _, key := range []string{"updated_at", "created_at"} {
		if s := field(row, key); s != "" {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t
			}
		}
	}
	return time.Now()
}
