package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mohammadalshikh/orbit/internal/log"
)

// spyLogger captures Error calls for assertions.
type spyLogger struct {
	log.Logger
	mu     sync.Mutex
	errors []string
}

func newSpyLogger() *spyLogger { return &spyLogger{Logger: log.Nop()} }

func (s *spyLogger) With(kv ...any) log.Logger { return s }

func (s *spyLogger) Error(ctx context.Context, err error, msg string, kv ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err.Error())
}

func (s *spyLogger) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors)
}

func TestRecover_NoPanic(t *testing.T) {
	calls := 0
	rec := httptest.NewRecorder()
	Recover(func() { calls++ })(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || calls != 0 {
		t.Fatalf("status=%d onPanic calls=%d", rec.Code, calls)
	}
}

func TestRecover_Panic(t *testing.T) {
	spy := newSpyLogger()
	calls := 0
	h := Recover(func() { calls++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	r = r.WithContext(log.WithContext(r.Context(), spy))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("onPanic calls = %d", calls)
	}
	if spy.count() != 1 || !strings.Contains(spy.errors[0], "boom") {
		t.Fatalf("logged errors = %v", spy.errors)
	}
}

func TestRecover_AbortHandlerRepanics(t *testing.T) {
	h := Recover(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("recovered %v, want ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
