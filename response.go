package wrap

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"reflect"
)

// Response is a fully built HTTP response.
type Response struct {
	Body        []byte
	Status      int
	ContentType string
	Header      http.Header
}

// StatusCode returns the HTTP status code.
func (resp *Response) StatusCode() int { return resp.Status }

// ServeHTTP writes the response.
func (resp *Response) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	w.Write(resp.Body)
}

// JSONResponse serializes the result of h into an application/json
// *Response. A Reply is read as (payload, status); any other value is the
// payload with status 200.
func JSONResponse(h Handler) Handler {
	return func(r *http.Request) (any, error) {
		result, err := h(r)
		if err != nil {
			return nil, err
		}

		payload, status, err := normalize(result)
		if err != nil {
			return nil, err
		}

		body, err := encodeJSON(payload)
		if err != nil {
			return nil, err
		}

		return &Response{
			Body:        body,
			Status:      status,
			ContentType: "application/json",
		}, nil
	}
}

// normalize splits a handler result into payload and status.
func normalize(result any) (any, int, error) {
	reply, ok := result.(Reply)
	if !ok {
		return result, http.StatusOK, nil
	}

	switch len(reply) {
	case 0:
		return "", http.StatusOK, nil
	case 1:
		return reply[0], http.StatusOK, nil
	}

	status, err := statusValue(reply[1])
	if err != nil {
		return nil, 0, err
	}
	return reply[0], status, nil
}

func statusValue(v any) (int, error) {
	rv := reflect.ValueOf(v)

	var code int64
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		code = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		code = int64(min(rv.Uint(), math.MaxInt64)) //nolint:gosec // clamped
	default:
		return 0, fmt.Errorf("%w: status must be an integer, got %T", ErrEncode, v)
	}
	if code < 100 || code > 999 {
		return 0, fmt.Errorf("%w: status %d is not a three-digit code", ErrEncode, code)
	}
	return int(code), nil
}

// ErrorHandler writes the response for an error that reached the host
// adapter unhandled.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// defaultErrorHandler answers 500 without detail and logs the error.
func defaultErrorHandler(logger *slog.Logger) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status := ErrorStatus(err)
		logger.ErrorContext(r.Context(), "unhandled endpoint error",
			"err", err,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"route", RouteName(r),
			"request_id", GetRequestID(r),
		)
		http.Error(w, http.StatusText(status), status)
	}
}

// Serve adapts h to net/http. *Response results are written as built. A
// Reply, string or []byte is written as text/plain, matching how a bare
// (text, status) result is answered without a serializer. Other values are
// encoded as JSON, and a nil result answers 204. Errors go to onErr; a nil
// onErr logs through slog.Default and writes a bare 500.
func Serve(h Handler, onErr ErrorHandler) http.Handler {
	if onErr == nil {
		onErr = defaultErrorHandler(slog.Default())
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := h(r)
		if err == nil {
			var resp *Response
			if resp, err = toResponse(result); err == nil {
				resp.ServeHTTP(w, r)
				return
			}
		}
		noteFailure(r, OutcomeUnhandled, ErrorStatus(err), causeName(err))
		onErr(w, r, err)
	})
}

func toResponse(result any) (*Response, error) {
	switch v := result.(type) {
	case nil:
		return &Response{Status: http.StatusNoContent}, nil
	case *Response:
		return v, nil
	}

	payload, status, err := normalize(result)
	if err != nil {
		return nil, err
	}

	switch p := payload.(type) {
	case string:
		return textResponse([]byte(p), status), nil
	case []byte:
		return textResponse(p, status), nil
	}

	body, err := encodeJSON(payload)
	if err != nil {
		return nil, err
	}
	return &Response{Body: body, Status: status, ContentType: "application/json"}, nil
}

func textResponse(body []byte, status int) *Response {
	return &Response{Body: body, Status: status, ContentType: "text/plain; charset=utf-8"}
}
