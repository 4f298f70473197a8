// Package httpserver runs an http.Server with graceful shutdown, configurable
// timeouts and a readiness handler.
//
// Run blocks until its context is cancelled (callers typically pass a
// signal.NotifyContext) and then drains connections within the shutdown
// timeout. Request contexts derive from the Run context, so streaming
// handlers such as server-sent events end when the server stops.
//
// # Usage
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	router := chi.NewRouter()
//	router.Get("/health/ready", httpserver.HealthCheckHandler(log,
//	    httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)},
//	))
//	if err := srv.Run(ctx, router); err != nil {
//	    return err
//	}
//
// Errors from Run and Shutdown wrap ErrStart and ErrShutdown.
package httpserver
