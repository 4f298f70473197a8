// Package requestid tags every API request with a correlation ID.
//
// Middleware takes the ID from the X-Request-ID header when it is well formed
// and generates a UUID otherwise. The ID is echoed in the response and stored
// in the request context, where LoggerExtractor picks it up so every record
// logged while serving the request carries request_id.
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	router.Use(requestid.Middleware)
package requestid
