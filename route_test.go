package wrap_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bjaus/wrap"
)

func TestNormalizeMethods(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   []string
		want []string
	}{
		"empty":         {in: nil, want: []string{}},
		"upper cased":   {in: []string{"get", "Post"}, want: []string{"GET", "POST"}},
		"deduplicated":  {in: []string{"GET", "get", " GET "}, want: []string{"GET"}},
		"sorted":        {in: []string{"PUT", "DELETE", "GET"}, want: []string{"DELETE", "GET", "PUT"}},
		"blank dropped": {in: []string{"", "  "}, want: []string{}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, wrap.NormalizeMethods(tc.in))
		})
	}
}

func namedHandler(*http.Request) (any, error) { return nil, nil }

func TestHandlerName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "wrap_test.namedHandler", wrap.HandlerName(namedHandler))
	assert.Contains(t, wrap.HandlerName(wrap.JSONResponse(namedHandler)), "JSONResponse")
}

func TestRouteOptions_schemes(t *testing.T) {
	t.Parallel()

	r := wrap.New()
	r.Route("/secure", wrap.WithName("secure"), wrap.WithSchemes("https"))(namedHandler)

	rec := serve(r, http.MethodGet, "http://example.com/secure")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, http.MethodGet, "https://example.com/secure")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouteOptions_host(t *testing.T) {
	t.Parallel()

	r := wrap.New()
	r.Route("/", wrap.WithName("tenant"), wrap.WithHost("{tenant}.example.com"))(func(req *http.Request) (any, error) {
		return wrap.Vars(req)["tenant"], nil
	})

	rec := serve(r, http.MethodGet, "http://acme.example.com/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", rec.Body.String())

	rec = serve(r, http.MethodGet, "http://other.org/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
