package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bollettalabs/bolletta-sync/internal/api/handlers"
	"github.com/bollettalabs/bolletta-sync/internal/api/middleware"
	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/metrics"
)

type Handlers struct {
	Health *handlers.HealthHandler
	Sync   *handlers.SyncHandler
	Runs   *handlers.RunsHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(metrics.Middleware)
	r.Use(middleware.RateLimit(10, 20))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)
		r.Handle("/metrics", metrics.Handler())
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Server.APIKey))

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/sync", h.Sync.Trigger)
			r.Get("/providers", h.Sync.ListProviders)
			r.Route("/runs", func(r chi.Router) {
				r.Get("/", h.Runs.List)
				r.Get("/{id}", h.Runs.Get)
			})
		})
	})

	return r
}
