package notifications

import (
	"maps"
	"time"
)

// Draft text limits enforced by Store.Add, in runes.
const (
	MaxTitleLength = 200
	MaxBodyLength  = 2000
)

// SourceType is the kind of watched resource a notification originates from.
type SourceType string

const (
	SourceMaintenanceRequest  SourceType = "maintenance_request"
	SourceVoucher             SourceType = "voucher"
	SourcePropertyReservation SourceType = "property_reservation"
	SourceContract            SourceType = "contract"
	SourceIssue               SourceType = "issue"
)

// SourceTypes lists every known source type in display order.
var SourceTypes = []SourceType{
	SourceMaintenanceRequest,
	SourceVoucher,
	SourcePropertyReservation,
	SourceContract,
	SourceIssue,
}

// Priority is the urgency of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Weight orders priorities: low=1 .. urgent=4. Unknown priorities weigh 0.
func (p Priority) Weight() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 0
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool { return p.Weight() > 0 }

// Source records how a notification reached the store.
type Source string

const (
	SourceRealtime Source = "realtime"
	SourcePush     Source = "push"
	SourceLocal    Source = "local"
)

var Sources = []Source{SourceRealtime, SourcePush, SourceLocal}

// Category labels used for badges and filters.
const (
	CategoryMaintenance = "Maintenance"
	CategoryFinance     = "Finance"
	CategoryProperty    = "Property"
	CategoryContract    = "Contract"
	CategoryIssue       = "Issue"
	CategoryGeneral     = "General"
)

// Categories lists every category the category table can produce.
var Categories = []string{
	CategoryMaintenance,
	CategoryFinance,
	CategoryProperty,
	CategoryContract,
	CategoryIssue,
	CategoryGeneral,
}

var categoryBySource = map[SourceType]string{
	SourceMaintenanceRequest:  CategoryMaintenance,
	SourceVoucher:             CategoryFinance,
	SourcePropertyReservation: CategoryProperty,
	SourceContract:            CategoryContract,
	SourceIssue:               CategoryIssue,
}

// CategoryFor maps a source type to its category, General when unknown.
func CategoryFor(t SourceType) string {
	if c, ok := categoryBySource[t]; ok {
		return c
	}
	return CategoryGeneral
}

// Notification is a stored notification record.
type Notification struct {
	ID         string         `json:"id"`
	SourceType SourceType     `json:"source_type,omitempty"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	IsRead     bool           `json:"is_read"`
	ReadAt     *time.Time     `json:"read_at,omitempty"`
	Priority   Priority       `json:"priority"`
	Category   string         `json:"category"`
	Source     Source         `json:"source"`
	ExpiresAt  time.Time      `json:"expires_at"`
	PropertyID string         `json:"property_id,omitempty"`
	TenantID   string         `json:"tenant_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Action     string         `json:"action,omitempty"`
}

// ExpiredAt reports whether the notification is past its expiry at t.
func (n Notification) ExpiredAt(t time.Time) bool {
	return !n.ExpiresAt.IsZero() && !t.Before(n.ExpiresAt)
}

func (n Notification) clone() Notification {
	n.Payload = maps.Clone(n.Payload)
	if n.ReadAt != nil {
		at := *n.ReadAt
		n.ReadAt = &at
	}
	return n
}

// Draft is the caller-supplied part of a notification. The store assigns
// ID, CreatedAt and read state.
type Draft struct {
	SourceType SourceType     `json:"source_type,omitempty"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Payload    map[string]any `json:"payload,omitempty"`
	Priority   Priority       `json:"priority,omitempty"`
	Category   string         `json:"category,omitempty"`
	Source     Source         `json:"source,omitempty"`
	ExpiresAt  time.Time      `json:"expires_at,omitzero"`
	PropertyID string         `json:"property_id,omitempty"`
	TenantID   string         `json:"tenant_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Action     string         `json:"action,omitempty"`
}
