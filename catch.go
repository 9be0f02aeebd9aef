package wrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	pkgerrors "github.com/pkg/errors"
)

// GuardConfig configures the Guard decorator.
type GuardConfig struct {
	// Debug writes the failure trace into the response body. The trace
	// exposes source paths and internal messages to clients.
	Debug bool
	// ClientErrors answers *RequestError failures with 400 instead of 500.
	ClientErrors bool
	// Logger receives every failure. Default: slog.Default().
	Logger *slog.Logger
}

// Catch guards h with trace text enabled. Any returned error or panic
// becomes Reply{trace, 500}; successful results pass through unchanged.
//
// Catch must be the outermost decorator to see failures from extraction,
// validation and serialization. It does not encode its result: outside
// JSONResponse the trace is answered as text/plain, inside it the trace is
// encoded as a JSON string.
func Catch(h Handler) Handler {
	return Guard(GuardConfig{Debug: true})(h)
}

// Guard returns a configurable failure guard. See Catch.
func Guard(cfg GuardConfig) Decorator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fail := func(r *http.Request, status int, cause, trace string) Reply {
		noteFailure(r, OutcomeGuarded, status, cause)
		logger.ErrorContext(r.Context(), "endpoint failed",
			"status", status,
			"cause", cause,
			"method", r.Method,
			"path", r.URL.Path,
			"route", RouteName(r),
			"request_id", GetRequestID(r),
			"trace", trace,
		)
		if cfg.Debug {
			return Reply{trace, status}
		}
		return Reply{http.StatusText(status), status}
	}

	return func(h Handler) Handler {
		return func(r *http.Request) (result any, err error) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				//nolint:errorlint // sentinel is compared by identity in net/http
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				result, err = fail(r, http.StatusInternalServerError, panicCause, panicTrace(rec, debug.Stack())), nil
			}()

			result, err = h(r)
			if err == nil {
				return result, nil
			}

			status := http.StatusInternalServerError
			var reqErr *RequestError
			if cfg.ClientErrors && errors.As(err, &reqErr) {
				status = http.StatusBadRequest
			}
			return fail(r, status, causeName(err), errorTrace(err)), nil
		}
	}
}

// panicCause is the cause recorded for recovered panics.
const panicCause = "panic"

// causeName is the type of err's root cause, e.g. "*errors.errorString".
func causeName(err error) string {
	return fmt.Sprintf("%T", pkgerrors.Cause(err))
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// errorTrace names the root cause's type and message and appends the
// stack recorded when the error was created, or the current stack when the
// error carries none.
func errorTrace(err error) string {
	header := causeName(err) + ": " + err.Error()

	var st stackTracer
	if errors.As(err, &st) {
		return header + "\n" + fmt.Sprintf("%+v", st.StackTrace())
	}
	return header + "\n\n" + string(debug.Stack())
}

func panicTrace(rec any, stack []byte) string {
	header := fmt.Sprintf("panic: %v", rec)
	if err, ok := rec.(error); ok {
		header = fmt.Sprintf("panic: %T: %s", err, err.Error())
	}
	return header + "\n\n" + string(stack)
}
