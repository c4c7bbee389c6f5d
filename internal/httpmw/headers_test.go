package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeContent struct{ version, hash string }

func (f fakeContent) ContentVersion() string { return f.version }
func (f fakeContent) ContentHash() string    { return f.hash }

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	h := rec.Header()
	for _, k := range []string{"Strict-Transport-Security", "X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy", "Cross-Origin-Opener-Policy"} {
		if h.Get(k) == "" {
			t.Errorf("missing %s", k)
		}
	}
	csp := h.Get("Content-Security-Policy")
	if !strings.Contains(csp, "img-src 'self' https: data:") {
		t.Errorf("csp does not allow hosted images: %s", csp)
	}
	if !strings.Contains(csp, "frame-ancestors 'none'") {
		t.Errorf("csp missing frame-ancestors: %s", csp)
	}
	if h.Get("Cross-Origin-Embedder-Policy") != "" {
		t.Errorf("COEP should not be set")
	}
}

func TestContentHeaders(t *testing.T) {
	info := fakeContent{version: "7", hash: "0123456789abcdef0123"}
	rec := httptest.NewRecorder()
	ContentHeaders(info)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("X-Content-Version"); got != "7" {
		t.Errorf("version = %q", got)
	}
	if got := rec.Header().Get("X-Content-Hash"); got != "0123456789ab" {
		t.Errorf("hash = %q", got)
	}
}

func TestContentHeaders_Unpublished(t *testing.T) {
	rec := httptest.NewRecorder()
	ContentHeaders(fakeContent{})(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Version") != "" || rec.Header().Get("X-Content-Hash") != "" {
		t.Fatalf("headers set before publish: %v", rec.Header())
	}
}

func TestContentHeaders_NilInfo(t *testing.T) {
	rec := httptest.NewRecorder()
	ContentHeaders(nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
