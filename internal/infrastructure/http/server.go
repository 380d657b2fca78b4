package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/infrastructure/http/handler"
	mw "github.com/rezkam/weathertodo/internal/infrastructure/http/middleware"
	"github.com/rezkam/weathertodo/internal/infrastructure/http/response"
)

// Defaults applied by NewAPIServer to zero ServerConfig fields. An empty host
// listens on all interfaces.
const (
	DefaultPort              = "8080"
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20 // 1MB
	DefaultMaxBodyBytes      = 1 << 20 // 1MB
)

// ServerConfig holds listener limits and timeouts.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
}

// applyDefaults fills non-positive fields.
func (cfg *ServerConfig) applyDefaults() {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.MaxHeaderBytes <= 0 {
		cfg.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// Pinger reports whether a dependency can currently serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// readinessTimeout bounds a single /ready probe.
const readinessTimeout = 2 * time.Second

// Option configures an APIServer.
type Option func(*serverOptions)

type serverOptions struct {
	readiness Pinger
}

// WithReadiness makes /ready answer 503 while p fails to ping.
// Without it /ready always reports ok.
func WithReadiness(p Pinger) Option {
	return func(o *serverOptions) { o.readiness = p }
}

// APIServer serves the todo API over HTTP.
type APIServer struct {
	server *http.Server
}

// NewAPIServer assembles the router and the net/http server. Creating a todo
// requires an API key that authenticator resolves to a user; reads are open.
// Zero config values get defaults.
func NewAPIServer(todoService *todo.Service, authenticator mw.Authenticator, cfg ServerConfig, opts ...Option) *APIServer {
	cfg.applyDefaults()

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	apiHandler := handler.NewRouter(todoService, mw.NewAuth(authenticator).Validate)
	router := setupRouter(apiHandler, cfg, o)

	return &APIServer{
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           otelhttp.NewHandler(router, "weathertodo"),
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
	}
}

// setupRouter wires the probes, the JSON fallbacks and the todo routes behind
// the shared middleware stack.
func setupRouter(apiHandler http.Handler, cfg ServerConfig, o serverOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(mw.MaxBodyBytes(cfg.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, statusBody{Status: "ok"})
	})
	r.Get("/ready", readyHandler(o.readiness))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, "NOT_FOUND", "route not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, "METHOD_NOT_ALLOWED", "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Mount("/", apiHandler)

	return r
}

type statusBody struct {
	Status string `json:"status"`
}

func readyHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				slog.WarnContext(ctx, "readiness check failed", "error", err)
				response.Error(w, "NOT_READY", "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		response.OK(w, statusBody{Status: "ready"})
	}
}

// Addr returns the configured listen address.
func (s *APIServer) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *APIServer) Start() error {
	slog.Info("HTTP server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *APIServer) Shutdown(ctx context.Context) error {
	slog.InfoContext(ctx, "HTTP server draining")
	return s.server.Shutdown(ctx)
}

// Handler returns the instrumented root handler.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}
