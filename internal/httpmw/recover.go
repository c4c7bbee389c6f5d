package httpmw

import (
	"net/http"
	"runtime/debug"

	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

// Recover turns a handler panic into a logged 500. onPanic, if set, runs
// once per recovered panic (used for the panic counter). http.ErrAbortHandler
// is re-raised so net/http can abort the connection quietly.
func Recover(onPanic func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.FromContext(r.Context()).Error(r.Context(), xerrors.Newf("panic: %v", rec), "recovered handler panic",
					"url.path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				if onPanic != nil {
					onPanic()
				}

				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
