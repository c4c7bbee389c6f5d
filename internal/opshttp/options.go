package opshttp

import (
	"net/http"
	"time"

	"github.com/mohammadalshikh/orbit/internal/content"
	"github.com/mohammadalshikh/orbit/internal/health"
	"github.com/mohammadalshikh/orbit/internal/version"
)

// Options configures the operator listener. It is meant for a private port:
// nothing here is rate limited or authenticated.
type Options struct {
	// Host defaults to all interfaces; set 127.0.0.1 when a local agent scrapes.
	Host        string
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Checker
	Readiness   health.Checker
	// Build and Content feed /-/status. Either may be nil.
	Build   *version.Info
	Content ContentStatus
	// OnPanic runs for every recovered handler panic.
	OnPanic func()
}

// ContentStatus is the part of content.Manager that /-/status reports.
type ContentStatus interface {
	ContentVersion() string
	ContentHash() string
	Source() content.Source
	LoadedAt() time.Time
}
