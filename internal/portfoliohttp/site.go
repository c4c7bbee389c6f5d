package portfoliohttp

import (
	"errors"
	"net/http"
	"time"

	"github.com/mohammadalshikh/orbit/internal/contact"
	"github.com/mohammadalshikh/orbit/internal/content"
	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/portfolio"
)

type contentResponse struct {
	Document *portfolio.Document `json:"document"`
	Source   content.Source      `json:"source"`
	Version  string              `json:"version"`
	Hash     string              `json:"hash"`
	LoadedAt time.Time           `json:"loadedAt"`
	Remote   bool                `json:"remote"`
}

type logsResponse struct {
	// Logs is null when the counter could not be updated.
	Logs *int `json:"logs"`
}

func (api *API) handleContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, ok := api.opts.Content.Get()
	if !ok {
		writeError(ctx, w, http.StatusServiceUnavailable, "no content loaded")
		return
	}
	writeJSON(ctx, w, http.StatusOK, contentResponse{
		Document: snap.Doc,
		Source:   snap.Meta.Source,
		Version:  snap.Meta.Version,
		Hash:     snap.Meta.Hash,
		LoadedAt: snap.LoadedAt.Truncate(time.Second),
		Remote:   api.opts.Remote,
	})
}

// handleLogs counts a site visit. Failures are logged and reported as a null
// count; the page never sees an error.
func (api *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var resp logsResponse
	if api.opts.Counter != nil {
		n, err := api.opts.Counter.Increment(ctx)
		if err != nil {
			log.FromContext(ctx).Warn(ctx, "log counter update failed", "error", err)
		} else {
			api.opts.Metrics.IncSiteLogs()
			api.opts.Content.SetLogs(n)
			resp.Logs = &n
		}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (api *API) handleContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !api.opts.Contact.Enabled() {
		writeError(ctx, w, http.StatusServiceUnavailable, "contact form is not configured")
		return
	}
	var msg contact.Message
	if err := decodeJSON(r, &msg); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "body must be {\"name\", \"email\", \"message\"}")
		return
	}
	if err := api.opts.Contact.Send(ctx, msg); err != nil {
		if errors.Is(err, contact.ErrInvalid) {
			writeError(ctx, w, http.StatusBadRequest, err.Error())
			return
		}
		log.FromContext(ctx).Error(ctx, err, "contact relay failed")
		writeError(ctx, w, http.StatusBadGateway, "message could not be sent")
		return
	}
	writeJSON(ctx, w, http.StatusAccepted, map[string]string{"status": "sent"})
}
