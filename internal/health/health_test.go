package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlers(t *testing.T) {
	tests := []struct {
		name     string
		h        http.HandlerFunc
		wantCode int
		wantBody string
	}{
		{name: "healthz pass", h: HealthzHandler(Fixed(true, "")), wantCode: http.StatusOK, wantBody: "ok"},
		{name: "healthz nil check", h: HealthzHandler(nil), wantCode: http.StatusOK, wantBody: "ok"},
		{name: "healthz fail", h: HealthzHandler(Fixed(false, "store down")), wantCode: http.StatusServiceUnavailable, wantBody: "store down"},
		{name: "readyz pass", h: ReadyzHandler(Fixed(true, "")), wantCode: http.StatusOK, wantBody: "ready"},
		{name: "readyz fail", h: ReadyzHandler(Fixed(false, "no content")), wantCode: http.StatusServiceUnavailable, wantBody: "no content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/ready", nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get("Cache-Control") != "no-store" {
				t.Fatal("health responses must not be cached")
			}
		})
	}
}

func TestFixed(t *testing.T) {
	if err := Fixed(true, "ignored").Check(context.Background()); err != nil {
		t.Fatalf("Fixed(true) = %v", err)
	}
	err := Fixed(false, "").Check(context.Background())
	if err == nil || err.Error() != "unhealthy" {
		t.Fatalf("Fixed(false, \"\") = %v, want default reason", err)
	}
}

func TestAll(t *testing.T) {
	secondCalled := false
	p := All(nil, Fixed(false, "first"), CheckFunc(func(context.Context) error {
		secondCalled = true
		return nil
	}))
	err := p.Check(context.Background())
	if err == nil || err.Error() != "first" {
		t.Fatalf("All = %v, want first", err)
	}
	if secondCalled {
		t.Fatal("All should short-circuit")
	}
	if err := All().Check(context.Background()); err != nil {
		t.Fatalf("All() = %v", err)
	}
}

func TestTimeout(t *testing.T) {
	slow := CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	err := Timeout(slow, 10*time.Millisecond).Check(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if err := Timeout(nil, time.Second).Check(context.Background()); err != nil {
		t.Fatalf("nil check = %v", err)
	}
}

func TestShutdownGate(t *testing.T) {
	var g ShutdownGate
	p := g.Readiness()
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("fresh gate = %v", err)
	}
	g.Set("")
	if err := p.Check(context.Background()); err == nil || err.Error() != "draining" {
		t.Fatalf("draining gate = %v", err)
	}
	g.Set("shutting down")
	if err := p.Check(context.Background()); err == nil || err.Error() != "shutting down" {
		t.Fatalf("gate reason = %v", err)
	}
	g.Clear()
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("cleared gate = %v", err)
	}
}
