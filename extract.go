package wrap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// JSON passes the request's JSON object body to h. It is the only extractor
// that fails instead of falling back: an absent, empty or malformed body, a
// non-JSON content type, or a top-level value that is not an object yields
// a *RequestError.
//
// Integer literals decode to int64 (json.Number when out of range) and all
// other numbers to float64.
func JSON(h ViewHandler[map[string]any]) Handler {
	return func(r *http.Request) (any, error) {
		body, err := decodeJSONBody(r)
		if err != nil {
			return nil, err
		}
		return h(body, r)
	}
}

// Query passes the parsed query string to h.
func Query(h ViewHandler[url.Values]) Handler {
	return func(r *http.Request) (any, error) {
		qs := url.Values{}
		if r.URL != nil {
			qs = r.URL.Query()
		}
		return h(qs, r)
	}
}

// Headers passes a copy of the request headers to h.
func Headers(h ViewHandler[http.Header]) Handler {
	return func(r *http.Request) (any, error) {
		hdr := r.Header.Clone()
		if hdr == nil {
			hdr = http.Header{}
		}
		return h(hdr, r)
	}
}

// Cookies passes the request cookies to h as name to value. When a name
// repeats, the first cookie wins.
func Cookies(h ViewHandler[map[string]string]) Handler {
	return func(r *http.Request) (any, error) {
		cookies := make(map[string]string)
		for _, c := range r.Cookies() {
			if _, ok := cookies[c.Name]; !ok {
				cookies[c.Name] = c.Value
			}
		}
		return h(cookies, r)
	}
}

// Body passes the unparsed request body to h.
func Body(h ViewHandler[[]byte]) Handler {
	return func(r *http.Request) (any, error) {
		raw, err := readBody(r)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			raw = []byte{}
		}
		return h(raw, r)
	}
}

// readBody drains r.Body and puts an equivalent reader back so stacked
// extractors see the same bytes.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	raw, err := io.ReadAll(r.Body)
	if closeErr := r.Body.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "read request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, nil
}

func decodeJSONBody(r *http.Request) (map[string]any, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || !isJSONMediaType(mt) {
			return nil, newRequestError(ErrNotJSON, nil)
		}
	}

	raw, err := readBody(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, newRequestError(ErrNotJSON, nil)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, newRequestError(fmt.Errorf("%w: %w", ErrNotJSON, err), nil)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, newRequestError(fmt.Errorf("%w: trailing data after JSON value", ErrNotJSON), nil)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, newRequestError(ErrNotObject, nil)
	}
	normalizeNumbers(obj)
	return obj, nil
}

func isJSONMediaType(mt string) bool {
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// normalizeNumbers replaces json.Number values in place.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if isIntLiteral(t) {
			return t
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
	}
	return v
}

func isIntLiteral(n json.Number) bool {
	return !strings.ContainsAny(n.String(), ".eE")
}
