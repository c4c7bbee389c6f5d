package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{name: "valid inbound kept", inbound: "abc-123", keep: true},
		{name: "missing minted", inbound: ""},
		{name: "space rejected", inbound: "abc 123"},
		{name: "control char rejected", inbound: "abc\x01"},
		{name: "too long rejected", inbound: strings.Repeat("a", maxRequestIDLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromCtx string
			h := RequestID("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fromCtx = RequestIDFromContext(r.Context())
			}))
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				r.Header.Set("X-Request-Id", tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			echoed := rec.Header().Get("X-Request-Id")
			if echoed != fromCtx {
				t.Fatalf("echoed %q, context %q", echoed, fromCtx)
			}
			if tt.keep {
				if echoed != tt.inbound {
					t.Fatalf("got %q, want %q", echoed, tt.inbound)
				}
				return
			}
			if _, err := uuid.Parse(echoed); err != nil {
				t.Fatalf("minted id %q is not a uuid: %v", echoed, err)
			}
		})
	}
}

func TestRequestID_CustomHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Correlation-Id", "corr-1")
	RequestID("X-Correlation-Id")(okHandler).ServeHTTP(rec, r)
	if got := rec.Header().Get("X-Correlation-Id"); got != "corr-1" {
		t.Fatalf("got %q", got)
	}
}
