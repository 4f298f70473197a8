// Package push delivers new notifications outside the process.
//
// A Gateway sends one Message. Implementations:
//   - WebhookGateway posts the message as signed JSON through pkg/webhook
//   - PostmarkGateway emails it through Postmark
//   - DirGateway writes it to a directory, for local development
//   - MultiGateway fans out to several gateways
//   - NoOpGateway discards it
//
// Preferences decide whether a notification is pushed at all: a global
// switch, per-category toggles and a minimum priority.
//
//	gw, err := push.NewFromConfig(cfg, push.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	if cfg.Preferences().Allows(n) {
//		_ = gw.Send(ctx, push.MessageFrom(n))
//	}
package push
