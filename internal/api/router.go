// Package api provides the HTTP API for routeboard.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/routeboard/routeboard/internal/api/handler"
	"github.com/routeboard/routeboard/internal/api/middleware"
	"github.com/routeboard/routeboard/internal/api/response"
	"github.com/routeboard/routeboard/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Routes      handler.RouteService
	Registry    *resilience.Registry

	// CORSOrigins lists allowed origins. Default: ["*"]
	CORSOrigins []string

	// RoutesRateLimit limits the route endpoints per client IP.
	// Default: middleware.RoutesRateLimit
	RoutesRateLimit middleware.RateLimitConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "routeboard-api"
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	limit := cfg.RoutesRateLimit
	if limit.RequestLimit <= 0 || limit.WindowLength <= 0 {
		limit = middleware.RoutesRateLimit
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.CORS(origins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, req, "no resource at "+req.URL.Path)
	})
	r.MethodNotAllowed(response.MethodNotAllowed)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Each request fans out to the upstreams, so limit per IP.
		if cfg.Routes != nil {
			routeHandler := handler.NewRouteHandler(cfg.Routes)
			r.Route("/routes", func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(limit))
				r.Get("/", routeHandler.ListRoutes)
				r.Get("/{routeId}", routeHandler.GetRoute)
			})
		}
	})

	return r
}
