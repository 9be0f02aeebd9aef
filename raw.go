package wrap

import "net/http"

// Handle registers a plain http.Handler, such as MetricsHandler or a file
// server, alongside decorated routes. It shares the route options, the
// unique-name rule and the body limit; without WithName the route is named
// after path.
func (r *Router) Handle(path string, h http.Handler, opts ...RouteOption) {
	ri := routeInfo{}
	for _, opt := range opts {
		opt(&ri)
	}
	name := ri.name
	if name == "" {
		name = path
	}
	r.addRoute(path, name, ri, h)
}

// HandleFunc is Handle for an ordinary function.
func (r *Router) HandleFunc(path string, fn func(http.ResponseWriter, *http.Request), opts ...RouteOption) {
	r.Handle(path, http.HandlerFunc(fn), opts...)
}
