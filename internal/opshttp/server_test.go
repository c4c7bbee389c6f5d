package opshttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammadalshikh/orbit/internal/content"
	"github.com/mohammadalshikh/orbit/internal/health"
	"github.com/mohammadalshikh/orbit/internal/version"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_HealthEndpoints(t *testing.T) {
	h := NewHandler(Options{
		Health:    health.Fixed(true, ""),
		Readiness: health.Fixed(false, "no content published"),
	})

	if rec := get(t, h, "/-/healthy"); rec.Code != http.StatusOK {
		t.Fatalf("healthy status = %d", rec.Code)
	}
	rec := get(t, h, "/-/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no content published") {
		t.Fatalf("ready body = %q", rec.Body.String())
	}
}

func TestHandler_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	h := NewHandler(Options{Metrics: metrics})
	if rec := get(t, h, "/metrics"); rec.Code != http.StatusOK || rec.Body.String() != "# metrics\n" {
		t.Fatalf("metrics = %d %q", rec.Code, rec.Body.String())
	}

	if rec := get(t, NewHandler(Options{}), "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics without handler = %d, want 404", rec.Code)
	}
}

func TestHandler_Pprof(t *testing.T) {
	if rec := get(t, NewHandler(Options{}), "/debug/pprof/"); rec.Code != http.StatusNotFound {
		t.Fatalf("pprof disabled = %d, want 404", rec.Code)
	}
	if rec := get(t, NewHandler(Options{EnablePprof: true}), "/debug/pprof/"); rec.Code != http.StatusOK {
		t.Fatalf("pprof enabled = %d, want 200", rec.Code)
	}
}

type fakeContent struct{ loaded time.Time }

func (fakeContent) ContentVersion() string { return "3" }
func (fakeContent) ContentHash() string    { return "abc123" }
func (fakeContent) Source() content.Source { return content.SourceRemote }
func (f fakeContent) LoadedAt() time.Time  { return f.loaded }

func TestHandler_Status(t *testing.T) {
	loaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHandler(Options{
		Build:   &version.Info{AppName: "orbit", Version: "1.2.0", Commit: "deadbeef"},
		Content: fakeContent{loaded: loaded},
	})

	rec := get(t, h, "/-/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q", cc)
	}
	var got struct {
		Build   map[string]any    `json:"build"`
		Content map[string]string `json:"content"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Build["version"] != "1.2.0" || got.Build["commit"] != "deadbeef" {
		t.Fatalf("build = %v", got.Build)
	}
	want := map[string]string{"version": "3", "hash": "abc123", "source": "remote", "loaded_at": "2026-03-01T12:00:00Z"}
	for k, v := range want {
		if got.Content[k] != v {
			t.Fatalf("content[%s] = %q, want %q", k, got.Content[k], v)
		}
	}
}

func TestHandler_StatusWithoutSources(t *testing.T) {
	rec := get(t, NewHandler(Options{}), "/-/status")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Fatalf("status = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandler_RecoversPanics(t *testing.T) {
	var panics int
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := NewHandler(Options{Metrics: boom, OnPanic: func() { panics++ }})
	if rec := get(t, h, "/metrics"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if panics != 1 {
		t.Fatalf("OnPanic calls = %d", panics)
	}
}
