package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/sannu-sannu/sannu-server/internal/policy"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		// Tenant-scoped routes; public projects are readable anonymously
		r.Route("/tenants/{tenant}", func(r chi.Router) {
			r.Use(s.tenantScope)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", s.HandleListProjects)
				r.With(s.requireAuth).Post("/", s.HandleCreateProject)

				r.Route("/{project}", func(r chi.Router) {
					r.Get("/", s.HandleGetProject)
					r.Get("/statistics", s.HandleProjectStatistics)

					r.Group(func(r chi.Router) {
						r.Use(s.requireAuth)
						r.Put("/", s.HandleUpdateProject)
						r.Delete("/", s.HandleDeleteProject)

						// Lifecycle
						r.Patch("/activate", s.handleTransition(policy.ActionActivate, s.projects.ActivateProject))
						r.Patch("/pause", s.handleTransition(policy.ActionPause, s.projects.PauseProject))
						r.Patch("/resume", s.handleTransition(policy.ActionResume, s.projects.ResumeProject))
						r.Patch("/complete", s.handleTransition(policy.ActionComplete, s.projects.CompleteProject))
						r.Patch("/cancel", s.HandleCancelProject)

						// Products
						r.Route("/products", func(r chi.Router) {
							r.Post("/", s.HandleAddProduct)
							r.Put("/order", s.HandleReorderProducts)
							r.Route("/{product}", func(r chi.Router) {
								r.Put("/", s.HandleUpdateProduct)
								r.Delete("/", s.HandleDeleteProduct)
								r.Post("/image", s.HandleUploadProductImage)
							})
						})

						r.Post("/contributions", s.HandlePledge)
						r.Post("/invitations", s.HandleInvite)
					})
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/invitations/{invitation}/accept", s.HandleAcceptInvitation)
				r.Put("/members/{user}", s.HandleAssignMember)
			})
		})

		// System administration, unscoped
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.systemOnly)

			r.Get("/projects", s.HandleAdminListProjects)
			r.Delete("/projects/{project}", s.HandleForceDeleteProject)

			r.Post("/tenants", s.HandleCreateTenant)
			r.Patch("/tenants/{id}/suspend", s.HandleSuspendTenant)
			r.Patch("/tenants/{id}/reactivate", s.HandleReactivateTenant)

			r.Put("/users/{id}/role", s.HandleAssignSystemRole)
			r.Delete("/users/{id}", s.HandleDeleteUser)

			r.Post("/images/cleanup", s.HandleCleanupImages)
			r.Post("/sweep", s.HandleSweep)
		})
	})
}
