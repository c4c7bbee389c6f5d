package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ContentInfo identifies the currently published document.
type ContentInfo interface {
	ContentVersion() string
	ContentHash() string
}

// ContentHeaders adds X-Content-Version and a short X-Content-Hash to every
// response once a document has been published, so clients and caches can
// tell which revision they saw.
func ContentHeaders(info ContentInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, h := info.ContentVersion(), info.ContentHash()
			if v != "" {
				w.Header().Set("X-Content-Version", v)
			}
			if h != "" {
				w.Header().Set("X-Content-Hash", shortHash(h))
			}
			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("content.version", v),
					attribute.String("content.hash", h),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
