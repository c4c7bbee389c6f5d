package portfoliohttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/portfolio"
	"github.com/mohammadalshikh/orbit/internal/session"
	"github.com/mohammadalshikh/orbit/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
	// Prompt is set when repeating the request with ?confirm=true would
	// proceed.
	Prompt string `json:"prompt,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).Warn(ctx, "failed to encode JSON response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorBody{Error: msg})
}

// statusFor maps a domain error to its HTTP status and a message safe to
// show visitors.
func statusFor(err error) (int, string) {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrClosed):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, session.ErrNotEditing):
		return http.StatusForbidden, "edit mode required"
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict, "a load or save is already in progress"
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict, "edit mode was left before the request finished"
	case errors.Is(err, session.ErrNoImageHost):
		return http.StatusServiceUnavailable, "image uploads are not configured"
	case errors.Is(err, portfolio.ErrUnknownSection):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, portfolio.ErrInvalidDocument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, store.ErrNetwork), errors.Is(err, store.ErrServer):
		return http.StatusBadGateway, "remote store unavailable, changes were kept"
	}
	return http.StatusInternalServerError, "internal server error"
}

// validationMessage unwraps a store validation failure to its cause.
func validationMessage(err error) string {
	var f *store.Failure
	if errors.As(err, &f) && f.Err != nil {
		return f.Err.Error()
	}
	return err.Error()
}

// fail logs server-side failures and writes the mapped error.
func fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	ctx := r.Context()
	status, text := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(ctx).Error(ctx, err, msg, "http.response.status_code", status)
	}
	writeError(ctx, w, status, text)
}

// confirmed reads the ?confirm= answer to a prompt.
func confirmed(r *http.Request) session.ConfirmFunc {
	switch r.URL.Query().Get("confirm") {
	case "true", "1", "yes":
		return session.Always
	}
	return func(string) bool { return false }
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
