package portfoliohttp

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/portfolio"
	"github.com/mohammadalshikh/orbit/internal/session"
	"github.com/mohammadalshikh/orbit/internal/store"
)

type sessionResponse struct {
	ID string `json:"id,omitempty"`
	session.State
}

type saveResponse struct {
	session.SaveResult
	State session.State `json:"state"`
}

type undoResponse struct {
	Undone bool          `json:"undone"`
	State  session.State `json:"state"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

type editRequest struct {
	Password string `json:"password"`
}

// lookup resolves {id} and writes 404 when it is unknown.
func (api *API) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := api.opts.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err, "session lookup failed")
		return nil, false
	}
	return s, true
}

func (api *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, s, err := api.opts.Sessions.Create(ctx)
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			writeError(ctx, w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		if errors.Is(err, session.ErrFull) {
			w.Header().Set("Retry-After", "60")
			writeError(ctx, w, http.StatusServiceUnavailable, "too many open edit sessions, try again later")
			return
		}
		fail(w, r, err, "create session failed")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, sessionResponse{ID: id, State: s.State()})
}

func (api *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := api.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, sessionResponse{State: s.State()})
}

func (api *API) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !api.opts.Sessions.Remove(chi.URLParam(r, "id")) {
		writeError(r.Context(), w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) handleEnterEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, ok := api.lookup(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "body must be {\"password\": \"...\"}")
		return
	}

	ok = s.EnterEditMode(req.Password)
	api.opts.Metrics.IncAuthAttempt(ok)
	if !ok {
		log.FromContext(ctx).Info(ctx, "edit mode password rejected")
		writeError(ctx, w, http.StatusUnauthorized, "incorrect password")
		return
	}
	writeJSON(ctx, w, http.StatusOK, sessionResponse{State: s.State()})
}

func (api *API) handleExitEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, ok := api.lookup(w, r)
	if !ok {
		return
	}
	if !s.ExitEditMode(confirmed(r)) {
		writeJSON(ctx, w, http.StatusConflict, errorBody{
			Error:  "unsaved changes",
			Prompt: session.PromptExitUnsaved,
		})
		return
	}
	writeJSON(ctx, w, http.StatusOK, sessionResponse{State: s.State()})
}

// sectionBody reads the raw JSON value of a section request.
func sectionBody(r *http.Request) (portfolio.Section, []byte, error) {
	section, err := portfolio.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		return "", nil, err
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	return section, raw, nil
}

func (api *API) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	s, ok := api.lookup(w, r)
	if !ok {
		return
	}
	section, raw, err := sectionBody(r)
	if err == nil {
		err = s.UpdateSection(section, raw)
	}
	if err != nil {
		fail(w, r, err, "update section failed")
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, sessionResponse{State: s.State()})
}

func (api *API) handleAddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := api.lookup(w, r)
	if !ok {
		return
	}
	section, raw, err := sectionBody(r)
	if err == nil {
		err = s.AddItem(section, raw)
	}
	if err != nil {
		fail(w, r, err, "add item failed")
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{State: s.State()})
}

func (api *API) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, ok := api.lookup(w, r)
	if !ok {
		return
	}
	res, err := s.SaveChanges(ctx)
	if err != nil {
		fail(w, r, err, "save failed")
		return
	}
	log.FromContext(ctx).Info(ctx, "document saved", "local_only", res.LocalOnly)
	writeJSON(ctx, w, http.StatusOK, saveResponse{SaveResult: res, State: s.State()})
}

func (api *API) handleUndo(w http.ResponseWriter, r *http.Request) {
	s, ok := api.lookup(w, r)
	if !ok {
		return
	}
	undone := s.UndoChanges(confirmed(r))
	resp := undoResponse{Undone: undone, State: s.State()}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (api *API) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, ok := api.lookup(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(api.opts.ImageMaxBytes + imageSlack); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(ctx, w, http.StatusBadRequest, "image is larger than the upload limit")
			return
		}
		writeError(ctx, w, http.StatusBadRequest, "expected a multipart form with an image field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("image")
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "missing image field")
		return
	}
	defer f.Close()

	url, err := s.UploadImage(ctx, store.Image{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        f,
	})
	if err != nil {
		fail(w, r, err, "image upload failed")
		return
	}
	writeJSON(ctx, w, http.StatusOK, uploadResponse{URL: url})
}
