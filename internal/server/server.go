// Package server provides the HTTP server setup for Empire.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MikeSquared-Agency/empire/internal/api"
	"github.com/MikeSquared-Agency/empire/internal/briefings"
	"github.com/MikeSquared-Agency/empire/internal/config"
	"github.com/MikeSquared-Agency/empire/internal/middleware"
)

// Pipeline is everything the REST API drives. *ingest.Service implements it.
type Pipeline interface {
	api.Purchases
	api.EventLister
	api.Searcher
	api.Suggestions
	api.StatsSource
}

// Server holds the router and its dependencies.
type Server struct {
	Router *chi.Mux
	Config *config.Config
	Logger *slog.Logger
}

// New creates a Server with all routes configured. bus may be nil.
func New(cfg *config.Config, pipeline Pipeline, db api.Pinger, bus api.BusStatus, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Agent-ID"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))
	r.Use(middleware.AgentAuth)
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.APIKeyAuth(cfg.APIKey))

	// Handlers
	healthHandler := api.NewHealthHandler(db, pipeline, bus)
	purchaseHandler := api.NewPurchaseHandler(pipeline, cfg.MaxUploadBytes, logger)
	eventHandler := api.NewEventHandler(pipeline, logger)
	searchHandler := api.NewSearchHandler(pipeline, logger)
	suggestionHandler := api.NewSuggestionHandler(pipeline, logger)
	briefingHandler := api.NewBriefingHandler(briefings.NewAssembler(pipeline), logger)

	// Rate limiters
	ingestRL := middleware.NewRateLimiter(cfg.IngestRateLimit, cfg.RateWindow)
	searchRL := middleware.NewRateLimiter(cfg.SearchRateLimit, cfg.RateWindow)

	routes := func(r chi.Router) {
		// Health (no rate limit)
		r.Get("/health", healthHandler.Health)
		r.Get("/stats", healthHandler.Stats)

		r.With(ingestRL.Middleware).Post("/ingest/purchase", purchaseHandler.Ingest)

		r.Route("/purchase_orders", func(r chi.Router) {
			r.Get("/", purchaseHandler.List)
			r.Post("/{id}/evaluate", purchaseHandler.Evaluate)
		})

		r.Get("/events", eventHandler.List)

		r.With(searchRL.Middleware).Get("/search/documents", searchHandler.Documents)

		r.Get("/agents/briefing", briefingHandler.Generate)
		r.Route("/agents/suggestions", func(r chi.Router) {
			r.Get("/", suggestionHandler.List)
			r.Post("/{id}/approve", suggestionHandler.Approve)
		})
	}

	// Bare paths serve the dashboard; /api/v1 is the versioned mount.
	r.Group(routes)
	r.Route("/api/v1", routes)

	return &Server{
		Router: r,
		Config: cfg,
		Logger: logger,
	}
}
