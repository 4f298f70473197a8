package push

import (
	"log/slog"

	"github.com/dmitrymomot/propnotify/pkg/notifications"
	"github.com/dmitrymomot/propnotify/pkg/webhook"
)

// Config is the env-driven push configuration.
type Config struct {
	Enabled            bool     `env:"PUSH_ENABLED" envDefault:"true"`
	DisabledCategories []string `env:"PUSH_DISABLED_CATEGORIES" envSeparator:","`
	MinPriority        string   `env:"PUSH_MIN_PRIORITY" envDefault:"low"`

	WebhookURL        string `env:"PUSH_WEBHOOK_URL"`
	WebhookSecret     string `env:"PUSH_WEBHOOK_SECRET"`
	WebhookMaxRetries int    `env:"PUSH_WEBHOOK_MAX_RETRIES" envDefault:"3"`

	Dir string `env:"PUSH_DIR"`

	Postmark PostmarkConfig
}

// Preferences builds delivery preferences from the config.
func (c Config) Preferences() Preferences {
	p := Preferences{Enabled: c.Enabled, MinPriority: notifications.Priority(c.MinPriority)}
	for _, cat := range c.DisabledCategories {
		p = p.WithCategory(cat, false)
	}
	return p
}

// NewFromConfig builds a gateway for every configured destination. With
// none configured it returns NoOpGateway.
func NewFromConfig(cfg Config, log *slog.Logger) (Gateway, error) {
	if log == nil {
		log = slog.Default()
	}
	var gateways []Gateway

	if cfg.WebhookURL != "" {
		opts := []webhook.Option{webhook.WithLogger(log), webhook.WithMaxRetries(cfg.WebhookMaxRetries)}
		if cfg.WebhookSecret != "" {
			opts = append(opts, webhook.WithSecret(cfg.WebhookSecret))
		}
		g, err := NewWebhookGateway(cfg.WebhookURL, webhook.NewSender(opts...))
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, g)
	}

	if cfg.Postmark.Enabled() {
		g, err := NewPostmarkGateway(cfg.Postmark, nil)
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, g)
	}

	if cfg.Dir != "" {
		gateways = append(gateways, NewDirGateway(cfg.Dir))
	}

	switch len(gateways) {
	case 0:
		return NoOpGateway{}, nil
	case 1:
		return gateways[0], nil
	default:
		return NewMultiGateway(log, gateways...), nil
	}
}
