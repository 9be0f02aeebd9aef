// Package apitest provides test helpers for handlers served through a
// wrap.Router.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Client wraps an httptest.Server for round trips through a real listener.
type Client struct {
	Server *httptest.Server
}

// NewClient starts a test server for h, closed when the test ends.
func NewClient(t testing.TB, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a fully read response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// JSON decodes the body into v, failing the test on malformed JSON.
func (r *Response) JSON(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("apitest: decode response body %q: %v", r.Body, err)
	}
}

// Get sends a GET request.
func (c *Client) Get(t testing.TB, path string) *Response {
	t.Helper()
	return c.Send(t, c.NewRequest(t, http.MethodGet, path, nil))
}

// Post sends a POST request. See NewRequest for how body is sent.
func (c *Client) Post(t testing.TB, path string, body any) *Response {
	t.Helper()
	return c.Send(t, c.NewRequest(t, http.MethodPost, path, body))
}

// Put sends a PUT request. See NewRequest for how body is sent.
func (c *Client) Put(t testing.TB, path string, body any) *Response {
	t.Helper()
	return c.Send(t, c.NewRequest(t, http.MethodPut, path, body))
}

// Delete sends a DELETE request.
func (c *Client) Delete(t testing.TB, path string) *Response {
	t.Helper()
	return c.Send(t, c.NewRequest(t, http.MethodDelete, path, nil))
}

// Options sends an OPTIONS request.
func (c *Client) Options(t testing.TB, path string) *Response {
	t.Helper()
	return c.Send(t, c.NewRequest(t, http.MethodOptions, path, nil))
}

// NewRequest builds a request against the test server. A string or []byte
// body is sent as is; any other non-nil body is JSON-encoded and sent with
// Content-Type application/json.
func (c *Client) NewRequest(t testing.TB, method, path string, body any) *http.Request {
	t.Helper()

	var (
		reqBody io.Reader
		isJSON  bool
	)
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = bytes.NewReader([]byte(b))
	case []byte:
		reqBody = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("apitest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(raw)
		isJSON = true
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// Send executes req and reads the whole response.
func (c *Client) Send(t testing.TB, req *http.Request) *Response {
	t.Helper()

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("apitest: read body: %v", err)
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    body,
	}
}
