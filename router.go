package wrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// Router is the host application: a gorilla/mux router that registers
// Handlers under unique names. It implements http.Handler.
type Router struct {
	mux    *mux.Router
	routes []RouteInfo
	names  map[string]struct{}
	seq    atomic.Uint64

	logger       *slog.Logger
	errorHandler ErrorHandler
	bodyLimit    int64

	mu sync.Mutex
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the logger for unhandled errors. Default: slog.Default().
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithErrorHandler sets the writer for errors no guard converted into a
// result.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithBodyLimit caps request bodies read by extractors at maxBytes.
func WithBodyLimit(maxBytes int64) RouterOption {
	return func(r *Router) {
		r.bodyLimit = maxBytes
	}
}

// WithNotFound sets the handler for requests no route matches.
func WithNotFound(h http.Handler) RouterOption {
	return func(r *Router) {
		r.mux.NotFoundHandler = h
	}
}

// WithStrictSlash redirects "/path/" to "/path" and vice versa.
func WithStrictSlash(strict bool) RouterOption {
	return func(r *Router) {
		r.mux.StrictSlash(strict)
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	r := &Router{
		mux:   mux.NewRouter(),
		names: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.errorHandler == nil {
		r.errorHandler = defaultErrorHandler(r.logger)
	}
	return r
}

// Use adds middleware that runs for matched routes, in the order added.
// The matched route is visible to middleware through RouteName.
func (r *Router) Use(mw ...Middleware) {
	for _, m := range mw {
		r.mux.Use(mux.MiddlewareFunc(m))
	}
}

// Route returns a decorator that registers a handler under path. Without
// WithName the route is named after the handler's Go function; registering
// two routes under one name panics, since reverse routing and metrics key
// on it.
func (r *Router) Route(path string, opts ...RouteOption) func(Handler) Handler {
	ri := routeInfo{}
	for _, opt := range opts {
		opt(&ri)
	}
	return func(h Handler) Handler {
		name := ri.name
		if name == "" {
			name = handlerName(h)
		}
		r.addRoute(path, name, ri, Serve(h, r.errorHandler))
		return h
	}
}

// addRoute registers handler with the mux under a name that must be unused.
func (r *Router) addRoute(path, name string, ri routeInfo, handler http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[name]; ok {
		panic(fmt.Sprintf("wrap: route name %q is already registered", name))
	}

	methods := normalizeMethods(ri.methods)

	route := r.mux.NewRoute().Name(name).Path(path)
	if len(methods) > 0 {
		route = route.Methods(methods...)
	}
	if ri.host != "" {
		route = route.Host(ri.host)
	}
	if len(ri.schemes) > 0 {
		route = route.Schemes(ri.schemes...)
	}
	if len(ri.headers) > 0 {
		route = route.Headers(ri.headers...)
	}
	if len(ri.queries) > 0 {
		route = route.Queries(ri.queries...)
	}
	if err := route.GetError(); err != nil {
		panic(fmt.Sprintf("wrap: route %q: %v", name, err))
	}

	if r.bodyLimit > 0 {
		handler = limitBody(r.bodyLimit, handler)
	}
	route.Handler(handler)

	r.names[name] = struct{}{}
	r.routes = append(r.routes, RouteInfo{
		Name:    name,
		Path:    path,
		Methods: methods,
		Host:    ri.host,
	})
}

func limitBody(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// nextSeq issues a number not returned before by this router.
func (r *Router) nextSeq() uint64 {
	return r.seq.Add(1)
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []RouteInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.routes)
}

// WriteRoutes writes the route table as YAML to w.
func (r *Router) WriteRoutes(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.Routes()); err != nil {
		return err
	}
	return enc.Close()
}

// URL builds the URL of a named route from variable key/value pairs.
func (r *Router) URL(name string, pairs ...string) (*url.URL, error) {
	route := r.mux.Get(name)
	if route == nil {
		return nil, fmt.Errorf("wrap: no route named %q", name)
	}
	return route.URL(pairs...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// RouteName returns the name of the route that matched r, or "" outside a
// route.
func RouteName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		return route.GetName()
	}
	return ""
}

// Vars returns the path variables of the route that matched r.
func Vars(r *http.Request) map[string]string {
	return mux.Vars(r)
}
