package wrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the status and body size a handler writes. The
// first WriteHeader wins, and a Write without one records the implicit 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// Status is the code sent to the client; 200 when the handler wrote nothing.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Unwrap returns the underlying ResponseWriter (supports http.ResponseController).
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Outcome says how a routed request ended.
type Outcome string

const (
	// OutcomeOK is a handler result written as returned.
	OutcomeOK Outcome = "ok"
	// OutcomeGuarded is a failure a Guard turned into a reply.
	OutcomeGuarded Outcome = "guarded"
	// OutcomeUnhandled is an error that reached the router's error handler.
	OutcomeUnhandled Outcome = "unhandled"
)

// outcome is filled in by guards and error handlers while a request runs and
// read by the access log and metrics afterwards.
type outcome struct {
	kind   Outcome
	cause  string
	status int
}

type outcomeKey struct{}

// trackOutcome returns the request's outcome note, attaching a new one when
// no outer middleware has.
func trackOutcome(r *http.Request) (*outcome, *http.Request) {
	if o, ok := r.Context().Value(outcomeKey{}).(*outcome); ok {
		return o, r
	}
	o := &outcome{kind: OutcomeOK}
	return o, r.WithContext(context.WithValue(r.Context(), outcomeKey{}, o))
}

// noteFailure records a converted or unhandled failure. The first one wins
// so an outer guard does not hide the inner cause.
func noteFailure(r *http.Request, kind Outcome, status int, cause string) {
	o, ok := r.Context().Value(outcomeKey{}).(*outcome)
	if !ok || o.kind != OutcomeOK {
		return
	}
	o.kind, o.status, o.cause = kind, status, cause
}

// Logger returns middleware that writes one access log line per request
// with the matched route name, the request ID and how the request ended.
// Failures a Guard converted carry outcome=guarded and the root cause type,
// even when the reply status hides them. 5xx log at error, 4xx at warn.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			note, r := trackOutcome(r)
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.Status()
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("latency", time.Since(start)),
				slog.Int("size", rec.size),
				slog.String("remote", r.RemoteAddr),
				slog.String("outcome", string(note.kind)),
			}
			if note.cause != "" {
				attrs = append(attrs, slog.String("cause", note.cause))
			}
			if name := RouteName(r); name != "" {
				attrs = append(attrs, slog.String("route", name))
			}
			if id := GetRequestID(r); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
