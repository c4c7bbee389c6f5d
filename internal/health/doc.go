// Package health provides health checks and the liveness/readiness handlers that
// serve them. Readiness on both listeners is the shutdown gate AND "a
// document has been published".
package health
