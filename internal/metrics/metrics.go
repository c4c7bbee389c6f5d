// Package metrics owns the Prometheus registry: HTTP RED metrics, build
// info, rate limiting, and the portfolio's own counters for remote store
// calls, edit sessions and published content.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammadalshikh/orbit/internal/version"
)

type ServerMetrics struct {
	reg                    *prometheus.Registry
	handler                http.Handler
	inflight               prometheus.Gauge
	reqTotal               *prometheus.CounterVec
	reqDur                 *prometheus.HistogramVec
	respBytes              *prometheus.HistogramVec
	httpPanicTotal         prometheus.Counter
	buildInfo              *prometheus.GaugeVec
	ratelimitDeniedTotal   prometheus.Counter
	contentSource          *prometheus.GaugeVec
	contentLoadedTimestamp prometheus.Gauge
	contentInfo            *prometheus.GaugeVec

	errorsTotal *prometheus.CounterVec

	profilingActive prometheus.Gauge

	// domain
	storeOpsTotal    *prometheus.CounterVec
	storeOpDur       *prometheus.HistogramVec
	sessionsActive   prometheus.Gauge
	authAttempts     *prometheus.CounterVec
	siteLogsTotal    prometheus.Counter
	remoteConfigured prometheus.Gauge
}

// New returns a fresh registry + standard collectors + HTTP metrics
// safe labels only (method, route, code) to avoid path/cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304},
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		contentSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_source_info",
			Help: "Current content source (label carries value, gauge is always 1)",
		}, []string{"source"}),
		contentLoadedTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_loaded_timestamp_seconds",
			Help: "Unix timestamp of when the current document was published",
		}),
		contentInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_document_info",
			Help: "Currently published document (label carries identity, value is always 1)",
		}, []string{"sha256"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		storeOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Remote store and image host calls by operation and result",
		}, []string{"op", "result"}),
		storeOpDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Remote store and image host call latency by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edit_sessions_active",
			Help: "Page-load sessions currently held in memory",
		}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edit_auth_attempts_total",
			Help: "Edit mode password attempts by result",
		}, []string{"result"}),
		siteLogsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site_logs_total",
			Help: "Visit log increments recorded since start",
		}),
		remoteConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "store_remote_configured",
			Help: "Whether the remote store is configured (1) or the server is local-only (0)",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.httpPanicTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.contentSource,
		m.contentLoadedTimestamp,
		m.contentInfo,
		m.errorsTotal,
		m.profilingActive,
		m.storeOpsTotal,
		m.storeOpDur,
		m.sessionsActive,
		m.authAttempts,
		m.siteLogsTotal,
		m.remoteConfigured,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// Registry exposes the underlying registry, for tests and extra collectors.
func (m *ServerMetrics) Registry() *prometheus.Registry {
	return m.reg
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi *version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

func (m *ServerMetrics) SetContentSource(source string) {
	m.contentSource.Reset() // clear previous label value
	m.contentSource.WithLabelValues(source).Set(1)
}

func (m *ServerMetrics) SetContentLoadedTimestamp(t time.Time) {
	m.contentLoadedTimestamp.Set(float64(t.Unix()))
}

func (m *ServerMetrics) SetContentHash(sha256 string) {
	m.contentInfo.Reset()
	m.contentInfo.WithLabelValues(sha256).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

// ObserveStoreOp implements store.Recorder.
func (m *ServerMetrics) ObserveStoreOp(op, result string, d time.Duration) {
	m.storeOpsTotal.WithLabelValues(op, result).Inc()
	m.storeOpDur.WithLabelValues(op).Observe(d.Seconds())
}

func (m *ServerMetrics) SetSessionsActive(n int) {
	m.sessionsActive.Set(float64(n))
}

func (m *ServerMetrics) IncAuthAttempt(ok bool) {
	if ok {
		m.authAttempts.WithLabelValues("success").Inc()
	} else {
		m.authAttempts.WithLabelValues("failure").Inc()
	}
}

func (m *ServerMetrics) IncSiteLogs() {
	m.siteLogsTotal.Inc()
}

func (m *ServerMetrics) SetRemoteConfigured(ok bool) {
	if ok {
		m.remoteConfigured.Set(1)
	} else {
		m.remoteConfigured.Set(0)
	}
}
