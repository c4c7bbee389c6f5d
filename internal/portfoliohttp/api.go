package portfoliohttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammadalshikh/orbit/internal/contact"
	"github.com/mohammadalshikh/orbit/internal/content"
	"github.com/mohammadalshikh/orbit/internal/httpmw"
	"github.com/mohammadalshikh/orbit/internal/session"
	"github.com/mohammadalshikh/orbit/internal/store"
	"github.com/mohammadalshikh/orbit/internal/visits"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

const (
	// maxJSONBytes bounds every JSON request body.
	maxJSONBytes = 1 << 20
	// imageSlack covers multipart framing around the image bytes.
	imageSlack = 64 << 10
)

// SnapshotProvider returns the published document and takes visit counts
// so the served document stays current between saves.
type SnapshotProvider interface {
	Get() (*content.Snapshot, bool)
	SetLogs(n int) bool
}

// Recorder receives API-level counters.
type Recorder interface {
	IncAuthAttempt(ok bool)
	IncSiteLogs()
}

type nopRecorder struct{}

func (nopRecorder) IncAuthAttempt(bool) {}
func (nopRecorder) IncSiteLogs()        {}

type Options struct {
	Sessions *session.Registry
	Content  SnapshotProvider
	// Counter backs POST /api/logs. Nil answers {"logs": null}.
	Counter visits.Counter
	// Contact backs POST /api/contact. Nil or disabled answers 503.
	Contact *contact.Relay
	// Remote reports whether a remote store is configured at all.
	Remote bool
	// ImageMaxBytes is the upload ceiling; defaults to store.DefaultMaxImageBytes.
	ImageMaxBytes int64
	// AuthLimiter wraps the password endpoint.
	AuthLimiter func(http.Handler) http.Handler
	Metrics     Recorder
}

func (o *Options) setDefaults() {
	if o.ImageMaxBytes <= 0 {
		o.ImageMaxBytes = store.DefaultMaxImageBytes
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
	if o.AuthLimiter == nil {
		o.AuthLimiter = func(next http.Handler) http.Handler { return next }
	}
}

func (o *Options) validate() error {
	if o.Sessions == nil {
		return xerrors.New("portfoliohttp: session registry is required")
	}
	if o.Content == nil {
		return xerrors.New("portfoliohttp: content provider is required")
	}
	return nil
}

// API serves the /api routes.
type API struct {
	opts Options
}

func NewAPI(opts Options) (*API, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &API{opts: opts}, nil
}

// RegisterRoutes attaches the API to r.
func (api *API) RegisterRoutes(r chi.Router) {
	jsonBody := httpmw.MaxBody(maxJSONBytes)
	imageBody := httpmw.MaxBody(api.opts.ImageMaxBytes + imageSlack)

	r.With(httpmw.Scope("content")).Get("/api/content", api.handleContent)
	r.With(httpmw.Scope("logs")).Post("/api/logs", api.handleLogs)
	r.With(httpmw.Scope("contact"), jsonBody).Post("/api/contact", api.handleContact)

	r.With(httpmw.Scope("sessions")).Post("/api/sessions", api.handleCreateSession)
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Use(httpmw.Scope("sessions"))
		r.Get("/", api.handleGetSession)
		r.Delete("/", api.handleDeleteSession)
		r.With(api.opts.AuthLimiter, jsonBody).Post("/edit", api.handleEnterEdit)
		r.Post("/exit", api.handleExitEdit)
		r.With(jsonBody).Put("/sections/{section}", api.handleUpdateSection)
		r.With(jsonBody).Post("/sections/{section}/items", api.handleAddItem)
		r.Post("/save", api.handleSave)
		r.Post("/undo", api.handleUndo)
		r.With(imageBody).Post("/images", api.handleUploadImage)
	})
}
