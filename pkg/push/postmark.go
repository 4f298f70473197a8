package push

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/propnotify/pkg/validator"
)

// PostmarkConfig configures email delivery. Tokens are optional so that
// environments without email can leave them empty; NewFromConfig skips the
// gateway then.
type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"PUSH_SENDER_EMAIL"`
	SupportEmail string `env:"PUSH_SUPPORT_EMAIL"`
	Recipient    string `env:"PUSH_EMAIL_TO"`
	// BaseURL overrides the Postmark API endpoint.
	BaseURL string `env:"POSTMARK_BASE_URL"`
}

// Enabled reports whether a server token is configured.
func (c PostmarkConfig) Enabled() bool { return c.ServerToken != "" }

func (c PostmarkConfig) validate() error {
	rules := []validator.Rule{
		validator.RequiredString("server_token", c.ServerToken),
		validator.ValidEmail("sender_email", c.SenderEmail),
		validator.ValidEmail("recipient", c.Recipient),
	}
	if c.SupportEmail != "" {
		rules = append(rules, validator.ValidEmail("support_email", c.SupportEmail))
	}
	if c.BaseURL != "" {
		rules = append(rules, validator.ValidURL("base_url", c.BaseURL))
	}
	return validator.Apply(rules...)
}

// PostmarkGateway emails each message to a fixed recipient.
type PostmarkGateway struct {
	client *postmark.Client
	config PostmarkConfig
}

// NewPostmarkGateway validates cfg and creates the gateway. httpClient may
// be nil.
func NewPostmarkGateway(cfg PostmarkConfig, httpClient *http.Client) (*PostmarkGateway, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	client := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &PostmarkGateway{client: client, config: cfg}, nil
}

// Send emails msg. Opens and HTML links are tracked; replies go to the
// support address when one is configured.
func (g *PostmarkGateway) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	html, err := renderEmail(msg)
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}

	resp, err := g.client.SendEmail(ctx, postmark.Email{
		From:       g.config.SenderEmail,
		ReplyTo:    g.config.SupportEmail,
		To:         g.config.Recipient,
		Subject:    emailSubject(msg),
		Tag:        strings.ToLower(msg.Category),
		HTMLBody:   html,
		TextBody:   msg.Title + "\n\n" + msg.Body,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

func emailSubject(msg Message) string {
	if msg.Category == "" {
		return msg.Title
	}
	return "[" + msg.Category + "] " + msg.Title
}

var emailTemplate = template.Must(template.New("notification").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>{{.Title}}</h2>
{{if .Body}}<p>{{.Body}}</p>{{end}}
<p style="color:#666">{{.Category}} &middot; {{.Priority}}{{if .PropertyID}} &middot; property {{.PropertyID}}{{end}}</p>
</body></html>`))

func renderEmail(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, msg); err != nil {
		return "", err
	}
	return buf.String(), nil
}
