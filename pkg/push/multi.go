package push

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/propnotify/pkg/logger"
)

// MultiGateway sends every message through each gateway in order. One
// failing gateway does not stop the others; all failures are joined.
type MultiGateway struct {
	gateways []Gateway
	logger   *slog.Logger
}

// NewMultiGateway combines gateways. Nil entries are skipped.
func NewMultiGateway(log *slog.Logger, gateways ...Gateway) *MultiGateway {
	if log == nil {
		log = slog.Default()
	}
	m := &MultiGateway{logger: log}
	for _, g := range gateways {
		if g != nil {
			m.gateways = append(m.gateways, g)
		}
	}
	return m
}

// Len returns the number of wrapped gateways.
func (m *MultiGateway) Len() int { return len(m.gateways) }

func (m *MultiGateway) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, g := range m.gateways {
		if err := g.Send(ctx, msg); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelWarn, "push gateway failed",
				logger.NotificationID(msg.NotificationID),
				slog.String("gateway", gatewayName(g)),
				logger.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func gatewayName(g Gateway) string {
	switch g.(type) {
	case *WebhookGateway:
		return "webhook"
	case *PostmarkGateway:
		return "postmark"
	case *DirGateway:
		return "dir"
	case NoOpGateway:
		return "noop"
	default:
		return "custom"
	}
}
