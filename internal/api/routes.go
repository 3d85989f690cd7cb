package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/accesshub/accesshub-server/internal/auth"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)

	// Auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
		r.Post("/validate", s.HandleValidateToken)

		r.With(s.optionalAuthMiddleware).Post("/logout", s.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Put("/me", s.HandleUpdateProfile)
			r.Post("/change-password", s.HandleChangePassword)
		})
	})

	// Users
	r.Route("/users", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.With(s.requireAction(auth.ActionManageUsers)).Get("/", s.HandleListUsers)
		r.With(s.requireAction(auth.ActionManageTenantUsers)).Post("/", s.HandleCreateUser)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.HandleGetUser)
			r.With(s.requireAction(auth.ActionManageTenantUsers)).Put("/", s.HandleUpdateUser)
			r.With(s.requireAction(auth.ActionManageTenantUsers)).Post("/deactivate", s.HandleDeactivateUser)
			r.With(s.requireAction(auth.ActionManageTenantUsers)).Post("/reactivate", s.HandleReactivateUser)

			r.Get("/applications", s.HandleListUserAssignments)
			r.With(s.requireAction(auth.ActionSyncAssignments)).Put("/applications", s.HandleSyncAssignments)
		})
	})

	// Tenants
	r.Route("/tenants", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.With(s.requireAction(auth.ActionManageTenants)).Get("/", s.HandleListTenants)
		r.With(s.requireAction(auth.ActionManageTenants)).Post("/", s.HandleCreateTenant)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.HandleGetTenant)
			r.With(s.requireAction(auth.ActionManageTenants)).Put("/", s.HandleUpdateTenant)
			r.With(s.requireAction(auth.ActionManageTenants)).Post("/deactivate", s.HandleDeactivateTenant)
			r.With(s.requireAction(auth.ActionManageTenants)).Post("/reactivate", s.HandleReactivateTenant)

			// Tenant-scoped user management
			r.Route("/users", func(r chi.Router) {
				r.Use(s.requireAction(auth.ActionManageTenantUsers))
				r.Get("/", s.HandleListTenantUsers)
				r.Post("/", s.HandleCreateTenantUser)
			})

			// Licenses
			r.Route("/applications", func(r chi.Router) {
				r.Get("/", s.HandleListLicenses)
				r.With(s.requireAction(auth.ActionManageLicenses)).Post("/", s.HandleGrantLicense)
				r.With(s.requireAction(auth.ActionManageLicenses)).Put("/{applicationID}", s.HandleUpdateLicense)
				r.With(s.requireAction(auth.ActionManageLicenses)).Delete("/{applicationID}", s.HandleRevokeLicense)
			})
		})
	})

	// Applications
	r.Route("/applications", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/available", s.HandleAvailableApplications)

		r.With(s.requireAction(auth.ActionManageApplications)).Get("/", s.HandleListApplications)
		r.With(s.requireAction(auth.ActionManageApplications)).Post("/", s.HandleCreateApplication)

		r.Route("/{id}", func(r chi.Router) {
			r.Post("/access", s.HandleRequestAccess)

			r.With(s.requireAction(auth.ActionManageApplications)).Get("/", s.HandleGetApplication)
			r.With(s.requireAction(auth.ActionManageApplications)).Put("/", s.HandleUpdateApplication)
			r.With(s.requireAction(auth.ActionManageApplications)).Post("/deactivate", s.HandleDeactivateApplication)
			r.With(s.requireAction(auth.ActionManageApplications)).Post("/reactivate", s.HandleReactivateApplication)
			r.With(s.requireAction(auth.ActionManageApplications)).Post("/regenerate-key", s.HandleRegenerateAPIKey)
		})
	})

	// Access events
	r.Route("/events", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.requireAction(auth.ActionViewEvents))
		r.Get("/", s.HandleListAccessEvents)
	})
}
