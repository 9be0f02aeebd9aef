package wrap

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Middleware is the standard net/http middleware signature. It is
// interchangeable with gorilla/mux MiddlewareFunc.
type Middleware func(next http.Handler) http.Handler

// Recovery returns middleware that recovers panics escaping routes not
// guarded by Catch or Guard, logs them with the stack, and responds 500
// without detail.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				//nolint:errorlint // sentinel is compared by identity in net/http
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				noteFailure(r, OutcomeUnhandled, http.StatusInternalServerError, panicCause)
				logger.ErrorContext(r.Context(), "panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
					"route", RouteName(r),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
