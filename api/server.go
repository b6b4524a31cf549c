/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", h.CreateTenant)

			r.Route("/{tenantID}", func(r chi.Router) {
				r.Get("/", h.GetTenant)
				r.Put("/settings", h.PutTenantSetting)
				r.Post("/statuses", h.CreateTaskStatus)
				r.Post("/service-types", h.CreateServiceType)

				r.Route("/tasks", func(r chi.Router) {
					r.Post("/", h.CreateTask)
					r.Get("/", h.ListTasks)
					r.Get("/{taskID}", h.GetTask)
					r.Delete("/{taskID}", h.DeleteTask)
				})

				r.Route("/approvals", func(r chi.Router) {
					r.Get("/", h.ListPendingApprovals)
					r.Post("/approve-all", h.ApproveAllTasks)
					r.Post("/{taskID}/approve", h.ApproveTask)
					r.Post("/{taskID}/reject", h.RejectTask)
				})
			})
		})

		// Admin operations
		r.Route("/admin", func(r chi.Router) {
			r.Post("/generate", h.GenerateAll)
			r.Post("/generate/{tenantID}", h.GenerateForTenant)
		})
	})

	return r
}
