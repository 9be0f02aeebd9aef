package wrap

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// maxRequestIDLen bounds client-supplied IDs.
const maxRequestIDLen = 128

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string            // default: "X-Request-ID"
	Generator func() string     // default: random UUID
	Validate  func(string) bool // default: ValidRequestID
}

// ValidRequestID accepts 1 to 128 printable ASCII characters without
// spaces.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := range len(id) {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// RequestID returns middleware that assigns an ID to each request. A valid
// ID sent by the client in the header is kept, anything else is replaced
// by a generated one. The ID is stored in the request context and echoed
// in the response header; guards, the access log and the default error
// handler include it.
func RequestID(cfg ...RequestIDConfig) Middleware {
	c := RequestIDConfig{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
		Validate:  ValidRequestID,
	}
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			c.Header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			c.Generator = cfg[0].Generator
		}
		if cfg[0].Validate != nil {
			c.Validate = cfg[0].Validate
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(c.Header)
			if !c.Validate(id) {
				id = c.Generator()
			}

			w.Header().Set(c.Header, id)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
		})
	}
}

// WithRequestID returns a copy of ctx carrying id, for code that builds
// requests outside the RequestID middleware.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID stored in ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GetRequestID extracts the request ID from the request context.
func GetRequestID(r *http.Request) string {
	return RequestIDFrom(r.Context())
}
