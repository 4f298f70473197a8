package push

import (
	"context"
	"errors"

	"github.com/dmitrymomot/propnotify/pkg/validator"
	"github.com/dmitrymomot/propnotify/pkg/webhook"
)

// WebhookGateway posts messages as signed JSON to one endpoint.
type WebhookGateway struct {
	url    string
	sender *webhook.Sender
}

// NewWebhookGateway creates a gateway for url. A nil sender gets the
// webhook package defaults.
func NewWebhookGateway(url string, sender *webhook.Sender) (*WebhookGateway, error) {
	if err := validator.Apply(validator.ValidURL("webhook_url", url)); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if sender == nil {
		sender = webhook.NewSender()
	}
	return &WebhookGateway{url: url, sender: sender}, nil
}

func (g *WebhookGateway) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := g.sender.Send(ctx, g.url, msg); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}
