package wrap

import (
	"net/http"
	"strconv"
)

// RouteFactory registers handlers on a Router one HTTP method at a time.
// Decorated handlers often share one Go function name (every JSONResponse
// closure is named like "wrap.JSONResponse.func1"), so the factory names
// each route "<base>-<n>" with n issued by the router.
type RouteFactory struct {
	app *Router
}

// NewRouteFactory returns a factory registering on app.
func NewRouteFactory(app *Router) *RouteFactory {
	return &RouteFactory{app: app}
}

// Options registers an OPTIONS route.
func (f *RouteFactory) Options(path string, opts ...RouteOption) func(Handler) Handler {
	return f.route(path, http.MethodOptions, opts)
}

// Get registers a GET route.
func (f *RouteFactory) Get(path string, opts ...RouteOption) func(Handler) Handler {
	return f.route(path, http.MethodGet, opts)
}

// Post registers a POST route.
func (f *RouteFactory) Post(path string, opts ...RouteOption) func(Handler) Handler {
	return f.route(path, http.MethodPost, opts)
}

// Put registers a PUT route.
func (f *RouteFactory) Put(path string, opts ...RouteOption) func(Handler) Handler {
	return f.route(path, http.MethodPut, opts)
}

// Delete registers a DELETE route.
func (f *RouteFactory) Delete(path string, opts ...RouteOption) func(Handler) Handler {
	return f.route(path, http.MethodDelete, opts)
}

// route registers under method plus any methods from WithMethods.
func (f *RouteFactory) route(path, method string, opts []RouteOption) func(Handler) Handler {
	ri := routeInfo{}
	for _, opt := range opts {
		opt(&ri)
	}
	methods := normalizeMethods(append(ri.methods, method))

	return func(h Handler) Handler {
		base := ri.name
		if base == "" {
			base = handlerName(h)
		}
		wrapped := Handler(func(r *http.Request) (any, error) {
			return h(r)
		})

		reg := ri
		reg.methods = methods
		reg.name = base + "-" + strconv.FormatUint(f.app.nextSeq(), 10)
		f.app.addRoute(path, reg.name, reg, Serve(wrapped, f.app.errorHandler))
		return wrapped
	}
}
