package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/campaign-tracker/internal/tracking"
)

// SetupRoutes builds the top-level router: public tracking endpoints at the
// root (they are fetched by mail clients, no CORS or auth concerns apply)
// and the admin API under /api.
func SetupRoutes(h *Handler, trackingHandler *tracking.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Mount("/", trackingHandler.Routes())

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Mount("/", h.Routes())
	})

	return r
}
