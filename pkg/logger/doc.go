// Package logger builds *slog.Logger instances for the notification service
// and provides attribute helpers so every component names its log keys the
// same way.
//
// New assembles a text or JSON handler from functional options. Context
// extractors registered with WithContextExtractors or WithContextValue add
// attributes taken from context.Context to every record (for example the id
// of the API request being served). NewFromConfig does the same from the
// LOG_* and APP_ENV variables.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "notifyd"),
//	    logger.WithContextValue("event_id", eventIDKey{}),
//	)
//	log.LogAttrs(ctx, slog.LevelWarn, "push delivery failed",
//	    logger.NotificationID(n.ID),
//	    logger.Error(err),
//	)
//
// Error and Errors return an empty attribute for nil errors, so callers can
// pass them unconditionally.
package logger
