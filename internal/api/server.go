// Package api provides the HTTP server for catalog access.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/canopy-data/canopy/internal/api/catalog"
	"github.com/canopy-data/canopy/internal/api/system"
	"github.com/canopy-data/canopy/internal/auth"
	"github.com/canopy-data/canopy/internal/metrics"
	"github.com/canopy-data/canopy/internal/service"
	pkgauth "github.com/canopy-data/canopy/pkg/auth"
	"github.com/canopy-data/canopy/pkg/codec"
	"github.com/canopy-data/canopy/pkg/compress"
	"github.com/canopy-data/canopy/pkg/query"
)

// ServerOption configures the catalog API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	serialization  *codec.SerializationRegistry
	queries        *query.Registry
	authenticator  pkgauth.Authenticator
	sessions       *auth.Sessions
	allowAnonymous bool
	metrics        *metrics.Metrics
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithSerialization overrides the payload encoder registry.
func WithSerialization(reg *codec.SerializationRegistry) ServerOption {
	return func(cfg *serverConfig) {
		cfg.serialization = reg
	}
}

// WithQueries overrides the query registry backing the search routes.
func WithQueries(reg *query.Registry) ServerOption {
	return func(cfg *serverConfig) {
		cfg.queries = reg
	}
}

// WithCompression compresses response bodies above the default minimum
// size, negotiated against the Accept-Encoding header.
func WithCompression(reg *compress.Registry) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, compress.Middleware(reg, compress.DefaultMinimumSize))
	}
}

// WithAuthentication installs session-token authentication. Data routes
// demand a valid token unless allowAnonymous is set, in which case
// unauthenticated requests proceed as the public principal.
func WithAuthentication(authenticator pkgauth.Authenticator, sessions *auth.Sessions, allowAnonymous bool) ServerOption {
	return func(cfg *serverConfig) {
		cfg.authenticator = authenticator
		cfg.sessions = sessions
		cfg.allowAnonymous = allowAnonymous
	}
}

// WithCORS admits browser clients from the given origins. The ETag header
// is exposed so clients can replay it through If-None-Match.
func WithCORS(origins []string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"ETag"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// WithMetrics instruments every request and serves the Prometheus
// exposition at /metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metrics = m
	}
}

// NewServer creates and configures the HTTP router with the given service and options
func NewServer(svc service.CatalogService, opts ...ServerOption) *chi.Mux {
	// Initialize configuration with defaults
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	// Apply middleware
	if cfg.metrics != nil {
		r.Use(cfg.metrics.Middleware)
	}
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	// Mount operational routes directly at root
	r.Mount("/", system.Router(svc))

	if cfg.metrics != nil {
		r.Handle("/metrics", cfg.metrics.Handler())
	}

	// Mount the catalog API
	catalogCfg := catalog.Config{
		Service:       svc,
		Serialization: cfg.serialization,
		Queries:       cfg.queries,
	}
	if cfg.metrics != nil {
		catalogCfg.Payloads = cfg.metrics
	}
	if cfg.sessions != nil {
		catalogCfg.SessionGuard = auth.NewMiddleware(cfg.sessions, cfg.allowAnonymous).Handler
		catalogCfg.TokenHandler = auth.NewTokenHandler(cfg.authenticator, cfg.sessions)
		catalogCfg.AuthRequired = !cfg.allowAnonymous
	}
	r.Mount("/api", catalog.Router(catalogCfg))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
