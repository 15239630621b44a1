package api

import (
	"net/http"
	"strings"

	"github.com/hikgate/hikgate-core/internal/audit"
	"github.com/hikgate/hikgate-core/internal/vehicle"
)

// handleListVehicles returns the cached owner-to-vehicles mapping, or one
// owner's vehicles with ?owner=.
func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	ix, err := s.vehicles.Get(r.Context())
	if err != nil {
		s.logger.Warn("vehicle cache build failed", "error", err)
		writeVendorError(w, "error listing vehicles", err)
		return
	}

	if owner := strings.TrimSpace(r.URL.Query().Get("owner")); owner != "" {
		vs := ix[vehicle.OwnerKey(owner)]
		if vs == nil {
			vs = []vehicle.Summary{}
		}
		writeOK(w, http.StatusOK, "vehicles retrieved", map[string]any{
			"owner":    owner,
			"vehicles": vs,
		})
		return
	}

	writeOK(w, http.StatusOK, "vehicles retrieved", map[string]any{
		"owners":    ix,
		"count":     len(ix),
		"expiresAt": s.vehicles.ExpiresAt(),
	})
}

// handleInvalidateVehicles forces the next read to rebuild the cache.
func (s *Server) handleInvalidateVehicles(w http.ResponseWriter, r *http.Request) {
	s.vehicles.Invalidate()

	claims := claimsFromContext(r.Context())
	s.logger.Info("vehicle cache invalidated", "user_id", claims.Subject)
	s.auditLog(audit.ActionUpdate, audit.EntityVehicle, "cache", claims.Subject, map[string]any{"invalidated": true})

	writeOK(w, http.StatusOK, "vehicle cache invalidated", nil)
}
