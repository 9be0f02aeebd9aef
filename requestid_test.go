package wrap_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/wrap"
	"github.com/bjaus/wrap/apitest"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg       []wrap.RequestIDConfig
		reqHeader map[string]string
		checkID   func(t *testing.T, resp *apitest.Response)
	}{
		"generates X-Request-ID when none provided": {
			checkID: func(t *testing.T, resp *apitest.Response) {
				t.Helper()
				id := resp.Headers.Get("X-Request-ID")
				_, err := uuid.Parse(id)
				require.NoError(t, err)
				assert.Equal(t, id, resp.Text())
			},
		},
		"preserves existing X-Request-ID": {
			reqHeader: map[string]string{
				"X-Request-ID": "my-custom-id-123",
			},
			checkID: func(t *testing.T, resp *apitest.Response) {
				t.Helper()
				assert.Equal(t, "my-custom-id-123", resp.Headers.Get("X-Request-ID"))
				assert.Equal(t, "my-custom-id-123", resp.Text())
			},
		},
		"custom header name": {
			cfg: []wrap.RequestIDConfig{{
				Header: "X-Trace-ID",
			}},
			checkID: func(t *testing.T, resp *apitest.Response) {
				t.Helper()
				id := resp.Headers.Get("X-Trace-ID")
				_, err := uuid.Parse(id)
				require.NoError(t, err)
				assert.Empty(t, resp.Headers.Get("X-Request-ID"))
			},
		},
		"replaces a client ID with spaces": {
			reqHeader: map[string]string{
				"X-Request-ID": "forged id=1 level=ERROR",
			},
			checkID: func(t *testing.T, resp *apitest.Response) {
				t.Helper()
				id := resp.Headers.Get("X-Request-ID")
				_, err := uuid.Parse(id)
				require.NoError(t, err)
				assert.Equal(t, id, resp.Text())
			},
		},
		"replaces an oversized client ID": {
			reqHeader: map[string]string{
				"X-Request-ID": strings.Repeat("a", 129),
			},
			checkID: func(t *testing.T, resp *apitest.Response) {
				t.Helper()
				_, err := uuid.Parse(resp.Text())
				require.NoError(t, err)
			},
		},
		"custom validator": {
			cfg: []wrap.RequestIDConfig{{
				Validate:  func(id string) bool { return strings.HasPrefix(id, "svc-") },
				Generator: func() string { return "svc-generated" },
			}},
			reqHeader: map[string]string{
				"X-Request-ID": "other-1",
			},
			checkID: func(t *testing.T, resp *apitest.Response) {
				t.Helper()
				assert.Equal(t, "svc-generated", resp.Text())
			},
		},
		"custom generator": {
			cfg: []wrap.RequestIDConfig{{
				Generator: func() string { return "fixed" },
			}},
			checkID: func(t *testing.T, resp *apitest.Response) {
				t.Helper()
				assert.Equal(t, "fixed", resp.Headers.Get("X-Request-ID"))
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := wrap.New()
			r.Use(wrap.RequestID(tc.cfg...))
			r.Route("/id", wrap.WithName("id"))(func(req *http.Request) (any, error) {
				return wrap.GetRequestID(req), nil
			})

			c := apitest.NewClient(t, r)
			req := c.NewRequest(t, http.MethodGet, "/id", nil)
			for k, v := range tc.reqHeader {
				req.Header.Set(k, v)
			}

			tc.checkID(t, c.Send(t, req))
		})
	}
}

func TestRequestID_in_guard_log(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := wrap.New()
	r.Use(wrap.RequestID())
	r.Route("/fail", wrap.WithName("fail"))(wrap.Guard(wrap.GuardConfig{Logger: logger})(
		func(*http.Request) (any, error) {
			return nil, errors.New("upstream")
		},
	))

	c := apitest.NewClient(t, r)
	req := c.NewRequest(t, http.MethodGet, "/fail", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp := c.Send(t, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Contains(t, buf.String(), "request_id=abc-123")
	assert.Contains(t, buf.String(), "route=fail")
}

func TestValidRequestID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		id   string
		want bool
	}{
		"uuid":          {id: "0b7c6f2e-8f7e-4d55-9a53-5e0c1c3f9b2a", want: true},
		"short token":   {id: "req-42", want: true},
		"max length":    {id: strings.Repeat("x", 128), want: true},
		"empty":         {id: "", want: false},
		"too long":      {id: strings.Repeat("x", 129), want: false},
		"space":         {id: "a b", want: false},
		"newline":       {id: "a\nb", want: false},
		"non ascii":     {id: "r\u00e9q", want: false},
		"control bytes": {id: "a\x7f", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, wrap.ValidRequestID(tc.id))
		})
	}
}

func TestWithRequestID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, wrap.GetRequestID(req))

	req = req.WithContext(wrap.WithRequestID(req.Context(), "job-7"))
	assert.Equal(t, "job-7", wrap.GetRequestID(req))
	assert.Equal(t, "job-7", wrap.RequestIDFrom(req.Context()))
}
