// Package sitehandler serves the embedded single-page app with per-extension
// cache headers, falling back to the app shell for client-side routes.
package sitehandler

import (
	"io/fs"
	"net/http"
	"strings"
)

type Handler struct {
	opts Options
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	o := *opts
	if !existsFile(o.Site, o.IndexFile) {
		// a build without the shell cannot route anything
		o.Site = nil
	}
	return &Handler{opts: o}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// unknown API paths must not receive the HTML shell
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
		return
	}

	if h.opts.Site == nil {
		h.serveMaintenance(w, r)
		return
	}

	file, res := resolvePath(r.URL.Path, h.opts.Site, h.opts.IndexFile)
	switch res {
	case resolvedNotFound:
		h.serveNotFound(w, r)
		return
	case resolvedIndex:
		w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	default:
		if cc := cacheControlForFile(file, &h.opts); cc != "" {
			w.Header().Set("Cache-Control", cc)
		}
	}
	http.ServeFileFS(w, r, h.opts.Site, file)
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "60")
	serveFileWithStatus(w, r, http.StatusServiceUnavailable, h.opts.FallbackFS, h.opts.MaintenanceFile)
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if existsFile(h.opts.FallbackFS, h.opts.Fallback404File) {
		serveFileWithStatus(w, r, http.StatusNotFound, h.opts.FallbackFS, h.opts.Fallback404File)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}

// statusOverrideWriter forces the status of the first WriteHeader, since
// http.ServeFileFS always answers 200 for a file it found.
type statusOverrideWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusOverrideWriter) WriteHeader(code int) {
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusOverrideWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.status)
	}
	return w.ResponseWriter.Write(b)
}

// serveFileWithStatus serves name from fsys with a forced status. The
// request path is replaced so ServeFileFS never rejects a fallback page
// because of the path that was originally asked for.
func serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	r2 := r.Clone(r.Context())
	r2.URL.Path = "/" + name
	r2.URL.RawPath = ""
	sw := &statusOverrideWriter{ResponseWriter: w, status: status}
	http.ServeFileFS(sw, r2, fsys, name)
}
