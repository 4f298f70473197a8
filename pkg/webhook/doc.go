// Package webhook delivers JSON payloads to HTTP endpoints with retries,
// HMAC-SHA256 signing and a per-sender circuit breaker.
//
// It is the transport behind push.WebhookGateway:
//
//	sender := webhook.NewSender(
//		webhook.WithSecret(cfg.Secret),
//		webhook.WithMaxRetries(3),
//		webhook.WithBackoff(backoff.Exponential{Initial: time.Second, Max: 10 * time.Second, Jitter: 0.1}),
//	)
//	err := sender.Send(ctx, cfg.URL, payload)
//
// Signed requests carry three headers:
//
//	X-Notify-Signature  hex(HMAC-SHA256(secret, "<timestamp>.<body>"))
//	X-Notify-Timestamp  unix seconds
//	X-Notify-Delivery   unique delivery id (uuid)
//
// Receivers verify with VerifyRequest. 4xx responses other than 408, 425
// and 429 are permanent and are not retried.
package webhook
