// Command sample serves a small users API built from wrap decorators.
//
// Run:
//
//	go run ./cmd/sample
//	go run ./cmd/sample --config config.yaml
//	WRAP_ADDR=:9090 WRAP_DEBUG=false go run ./cmd/sample
//
// Print the route table and exit:
//
//	go run ./cmd/sample --routes
//
// Then explore:
//
//	GET    http://localhost:8080/v1/health
//	GET    http://localhost:8080/v1/users
//	POST   http://localhost:8080/v1/users        {"name": "ada", "age": 36}
//	GET    http://localhost:8080/v1/users/{id}
//	DELETE http://localhost:8080/v1/users/{id}
//	POST   http://localhost:8080/v1/echo
//	GET    http://localhost:8080/metrics
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bjaus/wrap"
)

// CLI is the command line of the sample server.
type CLI struct {
	Config string `kong:"type='path',help='Path to a YAML configuration file.'"`
	Routes bool   `kong:"help='Print the route table as YAML and exit.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the logging level."`
	} `embed:"" prefix:"log-"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("sample"),
		kong.Description("Serve a users API built from wrap decorators."),
		kong.UsageOnError(),
		kong.DefaultEnvars("WRAP"),
	)

	logger := newLogger(os.Stderr, cli.Log.Level)
	slog.SetDefault(logger)

	if err := run(cli, logger); err != nil {
		logger.Error("sample failed", "err", err)
		os.Exit(1)
	}
}

func run(cli CLI, logger *slog.Logger) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := newRouter(cfg, logger, reg)

	if cli.Routes {
		return r.WriteRoutes(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting server", "addr", cfg.Addr, "debug", cfg.Debug, "routes", len(r.Routes()))

	if err := r.ListenAndServe(ctx, cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    noColor,
		TimeFormat: time.DateTime,
	}))
}

func newRouter(cfg *Config, logger *slog.Logger, reg *prometheus.Registry) *wrap.Router {
	r := wrap.New(
		wrap.WithLogger(logger),
		wrap.WithBodyLimit(cfg.BodyLimit),
		wrap.WithStrictSlash(true),
	)

	mw := []wrap.Middleware{
		wrap.RequestID(),
		wrap.Logger(logger),
		wrap.Recovery(logger),
		wrap.Metrics(reg),
	}
	if cfg.RateLimit.Rate > 0 {
		mw = append(mw, wrap.RateLimit(wrap.RateLimitConfig{
			Rate:  cfg.RateLimit.Rate,
			Burst: cfg.RateLimit.Burst,
		}))
	}
	r.Use(mw...)

	guard := wrap.Guard(wrap.GuardConfig{
		Debug:        cfg.Debug,
		ClientErrors: cfg.ClientErrors,
		Logger:       logger,
	})

	users := newUserStore()
	f := wrap.NewRouteFactory(r)

	f.Get("/v1/health", wrap.WithName("health"))(wrap.JSONResponse(func(*http.Request) (any, error) {
		return map[string]any{"status": "ok", "time": time.Now().UTC()}, nil
	}))
	f.Get("/v1/users", wrap.WithName("list-users"))(wrap.JSONResponse(users.list))
	f.Post("/v1/users", wrap.WithName("create-user"))(wrap.Chain(
		wrap.Required("str:name", "int:age")(users.create),
		guard,
		wrap.JSONResponse,
	))
	f.Get("/v1/users/{id:[0-9]+}", wrap.WithName("get-user"))(wrap.JSONResponse(users.get))
	f.Delete("/v1/users/{id:[0-9]+}", wrap.WithName("delete-user"))(wrap.JSONResponse(users.remove))
	f.Post("/v1/echo", wrap.WithName("echo"))(wrap.Chain(
		wrap.JSON(func(body map[string]any, req *http.Request) (any, error) {
			return wrap.Query(func(q url.Values, req *http.Request) (any, error) {
				return map[string]any{
					"body":       body,
					"query":      q,
					"request_id": wrap.GetRequestID(req),
				}, nil
			})(req)
		}),
		guard,
		wrap.JSONResponse,
	))

	r.Handle(cfg.Metrics.Path, wrap.MetricsHandler(reg), wrap.WithName("metrics"), wrap.WithMethods(http.MethodGet))

	return r
}
