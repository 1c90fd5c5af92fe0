package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/atrium-chat/atrium/internal/api/middleware"
	"github.com/atrium-chat/atrium/internal/handlers"
	"github.com/atrium-chat/atrium/internal/registry"
	"github.com/atrium-chat/atrium/internal/router"
	"github.com/atrium-chat/atrium/internal/useragent"
)

// NewRouter creates and configures the HTTP router for the
// administrative API.
func NewRouter(logger zerolog.Logger, reg *registry.Service, store registry.Store, fleet *router.Fleet, bridge *useragent.Bridge) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024)) // 64KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - the admin API is called by operator tooling and
	// integration layers running anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(reg, store, fleet, bridge)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Conceptual rooms and mappings
	r.Post("/rooms", h.CreateRoom)
	r.Get("/rooms/{id}", h.GetRoom)
	r.Get("/rooms/{id}/mappings", h.GetRoomMappings)
	r.Get("/rooms/{id}/agents", h.GetRoomAgents)
	r.Post("/rooms/{id}/mappings/{agentId}", h.EnsureMapping)
	r.Get("/agents/{id}/mappings", h.GetAgentMappings)

	// Direct two-agent connections
	r.Post("/connections", h.Connect)

	// User-identity bridge
	r.Post("/users", h.ResolveUser)
	r.Get("/users", h.ListUserAgents)

	return r
}
