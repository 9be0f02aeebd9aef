package wrap

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors for request extraction and validation.
var (
	ErrNotJSON      = errors.New("Request body is not application/json")    //nolint:staticcheck // client-facing message
	ErrNotObject    = errors.New("Request body is not a JSON object")       //nolint:staticcheck // client-facing message
	ErrRequirements = errors.New("Some keys did not meet the requirements") //nolint:staticcheck // client-facing message
	ErrEncode       = errors.New("encode response")
)

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ConfigError reports a malformed requirement declaration. It is a
// programmer error, never a property of the request being served.
type ConfigError struct {
	Tag string
}

// Error lists the offending tag and every valid one.
func (e *ConfigError) Error() string {
	return e.Tag + " is not a valid type. The valid types are: " + strings.Join(kindNames(), " ") + "."
}

// RequestError reports client input that could not be extracted or did not
// meet the declared requirements.
type RequestError struct {
	// Err is one of ErrNotJSON, ErrNotObject or ErrRequirements.
	Err      error
	Failures Failures
	// Status defaults to 500 until a guard decides otherwise.
	Status int
}

func (e *RequestError) Error() string {
	if len(e.Failures) == 0 {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Failures.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code.
func (e *RequestError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// newRequestError records the caller's stack so guards can print where the
// request was rejected.
func newRequestError(sentinel error, failures Failures) error {
	return pkgerrors.WithStack(&RequestError{Err: sentinel, Failures: failures})
}

// Failures maps a body key to the reason it failed validation. An empty
// map means validation passed.
type Failures map[string]string

// String renders the failures sorted by key, e.g. {"age": "missing"}.
func (f Failures) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(k))
		b.WriteString(": ")
		b.WriteString(strconv.Quote(f[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
