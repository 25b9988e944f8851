/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/calculations/*   Standard and reconciliation calculations, sharing
  /api/indices/*        Published index data
  /api/contracts/*      Stored contract configurations
  /api/admin/*          Index-data corrections and base transitions

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Calculation routes
		r.Route("/calculations", func(r chi.Router) {
			r.Post("/standard", h.StandardCalc)
			r.Post("/reconcile", h.Reconcile)
			r.Post("/share", h.ShareCalculation)
			r.Get("/{id}", h.GetCalculation)
		})

		// Index data routes
		r.Route("/indices", func(r chi.Router) {
			r.Get("/{type}", h.ListIndexValues)
			r.Get("/{type}/latest", h.LatestIndexValue)
		})

		// Contract routes
		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", h.CreateContract)
			r.Get("/{id}", h.GetContract)
			r.Get("/{id}/projection", h.ContractProjection)
			r.Get("/{id}/schedule", h.ContractSchedule)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/indices", h.UpsertIndexValue)
			r.Post("/bases", h.UpsertBase)
		})
	})

	return r
}
