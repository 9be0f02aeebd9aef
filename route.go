package wrap

import (
	"reflect"
	"runtime"
	"slices"
	"strings"
)

// routeInfo holds the options collected for a single registration.
type routeInfo struct {
	name    string
	methods []string
	host    string
	schemes []string
	headers []string
	queries []string
}

// RouteOption configures a route at registration time.
type RouteOption func(*routeInfo)

// WithMethods adds HTTP methods the route answers. Without any, the route
// matches every method.
func WithMethods(methods ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.methods = append(ri.methods, methods...)
	}
}

// WithName sets the route name used for reverse routing, logs and metrics.
// For RouteFactory routes it is the base of the generated name.
func WithName(name string) RouteOption {
	return func(ri *routeInfo) {
		ri.name = name
	}
}

// WithHost restricts the route to a host template, e.g. "{sub}.example.com".
func WithHost(tpl string) RouteOption {
	return func(ri *routeInfo) {
		ri.host = tpl
	}
}

// WithSchemes restricts the route to the given URL schemes.
func WithSchemes(schemes ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.schemes = append(ri.schemes, schemes...)
	}
}

// WithHeaders requires header key/value pairs. An empty value matches any
// value.
func WithHeaders(pairs ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.headers = append(ri.headers, pairs...)
	}
}

// WithQueries requires query key/value pairs; values may be templates.
func WithQueries(pairs ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.queries = append(ri.queries, pairs...)
	}
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Path    string   `json:"path" yaml:"path"`
	Methods []string `json:"methods,omitempty" yaml:"methods,omitempty"`
	Host    string   `json:"host,omitempty" yaml:"host,omitempty"`
}

// normalizeMethods upper-cases, de-duplicates and sorts methods.
func normalizeMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return out
}

// handlerName returns the Go function name of h without its import path,
// e.g. "main.listUsers" or "wrap.JSONResponse.func1" for decorated
// handlers.
func handlerName(h Handler) string {
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return "handler"
	}
	name := fn.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
