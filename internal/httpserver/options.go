package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammadalshikh/orbit/internal/health"
	"github.com/mohammadalshikh/orbit/internal/httpmw"
	"github.com/mohammadalshikh/orbit/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	// OnPanic runs once per recovered handler panic.
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	// ContentInfo feeds the X-Content-Version and X-Content-Hash headers.
	ContentInfo httpmw.ContentInfo
	Health      health.Checker
	Readiness   health.Checker
	// APIRoutes registers the JSON API on the router.
	APIRoutes func(chi.Router)
	// SiteHandler answers everything no route matched.
	SiteHandler http.Handler
}
