package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hikgate/hikgate-core/internal/auth"
)

const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.trace, s.cors, limitBody)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/me", s.handleMe)

			r.Route("/persons", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermPersonRead)).Get("/", s.handleListPersons)
				r.With(s.requirePermission(auth.PermPersonWrite)).Post("/", s.handleCreatePerson)
				r.With(s.requirePermission(auth.PermAccessAssign)).Post("/assign-access-level", s.handleAssignAccessLevel)

				r.With(s.requirePermission(auth.PermPersonRead)).Get("/{person}", s.handleGetPerson)
				r.With(s.requirePermission(auth.PermPersonWrite)).Put("/{person}", s.handleUpdatePerson)
				r.With(s.requirePermission(auth.PermPhotoUpload)).Post("/{person}/photo", s.handleUploadPhoto)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermPersonRead))
				r.Get("/access-levels", s.handleListAccessLevels)
				r.Get("/organizations", s.handleListOrganizations)
				r.Get("/vehicles", s.handleListVehicles)
			})
			r.With(s.requirePermission(auth.PermVehicleManage)).Post("/vehicles/cache/invalidate", s.handleInvalidateVehicles)

			r.Route("/users", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermUserManage))
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Get("/{id}", s.handleGetUser)
				r.Patch("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})

			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit-logs", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth reports the version and the state of each dependency.
// It answers 503 when any dependency is unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, hc := range s.health {
		if err := hc.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":  overall,
		"version": s.version,
		"checks":  checks,
	})
}
