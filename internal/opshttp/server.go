package opshttp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mohammadalshikh/orbit/internal/health"
	"github.com/mohammadalshikh/orbit/internal/httpmw"
	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/version"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

const defaultPort = 9000

// NewHandler builds the operator mux: health checks, status, /metrics and
// optional pprof.
func NewHandler(opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/-/healthy", health.HealthzHandler(opts.Health))
	mux.Handle("/-/ready", health.ReadyzHandler(opts.Readiness))
	mux.Handle("/-/status", statusHandler(opts.Build, opts.Content))

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	// pprof (or shadow with 404s)
	if opts.EnablePprof {
		RegisterPprof(mux)
	} else {
		mux.HandleFunc("/debug/pprof/", http.NotFound)
	}

	return httpmw.Recover(opts.OnPanic)(mux)
}

type contentStatus struct {
	Version  string `json:"version"`
	Hash     string `json:"hash"`
	Source   string `json:"source"`
	LoadedAt string `json:"loaded_at,omitempty"`
}

type status struct {
	Build   *version.Info  `json:"build,omitempty"`
	Content *contentStatus `json:"content,omitempty"`
}

func statusHandler(build *version.Info, cs ContentStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := status{Build: build}
		if cs != nil {
			c := &contentStatus{
				Version: cs.ContentVersion(),
				Hash:    cs.ContentHash(),
				Source:  string(cs.Source()),
			}
			if t := cs.LoadedAt(); !t.IsZero() {
				c.LoadedAt = t.UTC().Format(time.RFC3339)
			}
			out.Content = c
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// Start serves the operator endpoints on opts.Host:opts.Port.
// Returns stop(ctx) for graceful shutdown.
func Start(ctx context.Context, L log.Logger, opts Options) (func(context.Context) error, error) {
	port := opts.Port
	if port == 0 {
		port = defaultPort
	}
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// profiles stream for up to 30s by default
		WriteTimeout:   40 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "could not listen for ops port on addr=%v", addr)
	}
	L = L.With("listener", "ops", "addr", ln.Addr().String())

	go func() {
		L.Info(ctx, "ops http server listening", "pprof", opts.EnablePprof)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			L.Error(ctx, err, "ops http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			L.Info(sctx, "ops http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
