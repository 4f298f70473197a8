package push

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/dmitrymomot/propnotify/pkg/notifications"
	"github.com/dmitrymomot/propnotify/pkg/validator"
)

// Message is the push payload derived from a stored notification.
type Message struct {
	NotificationID string                   `json:"notification_id"`
	SourceType     notifications.SourceType `json:"source_type,omitempty"`
	Title          string                   `json:"title"`
	Body           string                   `json:"body"`
	Category       string                   `json:"category"`
	Priority       notifications.Priority   `json:"priority"`
	Action         string                   `json:"action,omitempty"`
	PropertyID     string                   `json:"property_id,omitempty"`
	TenantID       string                   `json:"tenant_id,omitempty"`
	UserID         string                   `json:"user_id,omitempty"`
	Payload        map[string]any           `json:"payload,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// MessageFrom builds a Message from n.
func MessageFrom(n notifications.Notification) Message {
	return Message{
		NotificationID: n.ID,
		SourceType:     n.SourceType,
		Title:          n.Title,
		Body:           n.Body,
		Category:       n.Category,
		Priority:       n.Priority,
		Action:         n.Action,
		PropertyID:     n.PropertyID,
		TenantID:       n.TenantID,
		UserID:         n.UserID,
		Payload:        maps.Clone(n.Payload),
		CreatedAt:      n.CreatedAt,
	}
}

// Validate checks the fields every gateway relies on.
func (m Message) Validate() error {
	if err := validator.Apply(
		validator.RequiredString("notification_id", m.NotificationID),
		validator.RequiredString("title", m.Title),
	); err != nil {
		return errors.Join(ErrInvalidMessage, err)
	}
	return nil
}

// Gateway delivers messages.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, msg Message) error

func (f GatewayFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// NoOpGateway discards every message.
type NoOpGateway struct{}

func (NoOpGateway) Send(context.Context, Message) error { return nil }
