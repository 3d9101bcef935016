/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

SECURITY NOTE:
  No authentication middleware; session handling lives in the hosting
  platform in front of this service.

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Fill operations
		r.Route("/fill", func(r chi.Router) {
			r.Post("/check", h.CheckFill)
			r.Post("/", h.PerformFill)
			r.Post("/cancel", h.CancelFill)
			r.Post("/auto", h.AutoFill)
			r.Post("/batch", h.BatchFill)
		})

		// Staff views
		r.Route("/staff/{id}", func(r chi.Router) {
			r.Get("/eligibility", h.Eligibility)
			r.Get("/records", h.ListRecords)
			r.Get("/logs", h.ListLogs)
		})

		// Seed data
		r.Post("/contracts", h.CreateContract)
		r.Post("/templates", h.CreateTemplateRow)
		r.Post("/holidays", h.CreateHoliday)
		r.Post("/leaves", h.CreateLeave)
	})

	return r
}
