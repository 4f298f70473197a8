package events

import (
	"fmt"
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/propnotify/pkg/notifications"
)

// FallbackValue replaces template fields missing from the event data.
const FallbackValue = "N/A"

// ellipsis marks text cut to fit the draft limits.
const ellipsis = "…"

type template struct {
	title string
	body  string
}

var templates = map[notifications.SourceType]map[Action]template{
	notifications.SourceMaintenanceRequest: {
		ActionInsert: {"New maintenance request", "{title} reported at {property_name}"},
		ActionUpdate: {"Maintenance request updated", "{title} is now {status}"},
		ActionDelete: {"Maintenance request removed", "{title} was removed"},
	},
	notifications.SourceVoucher: {
		ActionInsert: {"New voucher", "Voucher {number} over {amount} was created"},
		ActionUpdate: {"Voucher updated", "Voucher {number} is now {status}"},
		ActionDelete: {"Voucher removed", "Voucher {number} was deleted"},
	},
	notifications.SourcePropertyReservation: {
		ActionInsert: {"New reservation", "{tenant_name} reserved {property_name} from {start_date} to {end_date}"},
		ActionUpdate: {"Reservation updated", "Reservation for {property_name} is now {status}"},
		ActionDelete: {"Reservation cancelled", "Reservation for {property_name} was cancelled"},
	},
	notifications.SourceContract: {
		ActionInsert: {"New contract", "Contract with {tenant_name} for {property_name} was created"},
		ActionUpdate: {"Contract updated", "Contract with {tenant_name} is now {status}"},
		ActionDelete: {"Contract removed", "Contract with {tenant_name} was removed"},
	},
	notifications.SourceIssue: {
		ActionInsert: {"New issue reported", "{title}: {description}"},
		ActionUpdate: {"Issue updated", "{title} is now {status}"},
		ActionDelete: {"Issue removed", "{title} was removed"},
	},
}

var defaultPriority = map[notifications.SourceType]notifications.Priority{
	notifications.SourceMaintenanceRequest:  notifications.PriorityHigh,
	notifications.SourceIssue:               notifications.PriorityHigh,
	notifications.SourceVoucher:             notifications.PriorityMedium,
	notifications.SourcePropertyReservation: notifications.PriorityMedium,
	notifications.SourceContract:            notifications.PriorityMedium,
}

var pastTense = map[Action]string{
	ActionInsert: "created",
	ActionUpdate: "updated",
	ActionDelete: "deleted",
}

// Transformer maps events to notification drafts. It holds no mutable
// state and is safe for concurrent use.
type Transformer struct {
	ignoreUnknown bool
	title         cases.Caser
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithIgnoreUnknown drops events whose type has no template instead of
// producing a General notification.
func WithIgnoreUnknown() Option {
	return func(t *Transformer) {
		t.ignoreUnknown = true
	}
}

func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{
		title: cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform builds a draft from ev. The second result is false only when
// ev has an unknown type and the transformer ignores unknown types.
// ev is not modified.
func (t *Transformer) Transform(ev Event) (notifications.Draft, bool) {
	st := notifications.SourceType(ev.Type)
	byAction, known := templates[st]
	if !known && t.ignoreUnknown {
		return notifications.Draft{}, false
	}

	var title, body string
	if tmpl, ok := byAction[ev.Action]; known && ok {
		title = fill(tmpl.title, ev.Data)
		body = fill(tmpl.body, ev.Data)
	} else {
		title, body = t.generic(ev)
	}

	d := notifications.Draft{
		Title:      truncate(title, notifications.MaxTitleLength),
		Body:       truncate(body, notifications.MaxBodyLength),
		Payload:    payload(ev),
		Priority:   priorityOf(st, ev.Data),
		Category:   notifications.CategoryFor(st),
		Source:     notifications.SourceRealtime,
		PropertyID: ev.PropertyID,
		TenantID:   ev.TenantID,
		UserID:     ev.UserID,
		Action:     "view",
	}
	if known {
		d.SourceType = st
	}
	if ev.Action == ActionDelete {
		d.Action = "dismiss"
	}
	return d, true
}

func (t *Transformer) generic(ev Event) (string, string) {
	name := FallbackValue
	if ev.Type != "" {
		name = t.title.String(strings.ReplaceAll(ev.Type, "_", " "))
	}
	verb, ok := pastTense[ev.Action]
	if !ok {
		verb = "changed"
	}
	return fmt.Sprintf("%s %s", name, verb),
		fmt.Sprintf("A %s record was %s", strings.ToLower(name), verb)
}

func priorityOf(st notifications.SourceType, data map[string]any) notifications.Priority {
	if raw, ok := data["priority"].(string); ok {
		if p := notifications.Priority(strings.ToLower(raw)); p.Valid() {
			return p
		}
	}
	if p, ok := defaultPriority[st]; ok {
		return p
	}
	return notifications.PriorityMedium
}

func payload(ev Event) map[string]any {
	return map[string]any{
		"event_id": ev.ID,
		"type":     ev.Type,
		"action":   string(ev.Action),
		"data":     maps.Clone(ev.Data),
	}
}

// fill replaces {field} placeholders with values from data.
func fill(tmpl string, data map[string]any) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(tmpl, '{')
		if start < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end := strings.IndexByte(tmpl[start:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		b.WriteString(tmpl[:start])
		b.WriteString(value(data, tmpl[start+1:start+end]))
		tmpl = tmpl[start+end+1:]
	}
}

func value(data map[string]any, key string) string {
	s := strings.TrimSpace(field(data, key))
	if s == "" {
		return FallbackValue
	}
	return s
}

// truncate cuts s to at most limit runes, ending with an ellipsis when cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:limit-1]), unicode.IsSpace) + ellipsis
}
