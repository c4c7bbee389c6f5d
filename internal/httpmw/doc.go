// Package httpmw provides HTTP middleware for the public-facing server.
//
// Middleware is composed in a fixed order in httpserver.NewHandler:
// security headers, panic recovery, request ID, client IP extraction, rate
// limiting, OTEL tracing, content version headers, metrics, structured
// logging, and the chi router.
//
// User-supplied data (query params, user-agent, request bodies) is kept out
// of logs. Edit passwords and uploaded images only ever appear in request
// bodies.
package httpmw
