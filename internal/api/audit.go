package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hikgate/hikgate-core/internal/audit"
)

// Entries queued beyond this are dropped so a slow disk never holds up a
// request.
const auditChanSize = 256

// auditLog queues an entry for the background writer.
func (s *Server) auditLog(action, entityType, entityID, userID string, details map[string]any) {
	if s.auditCh == nil {
		return
	}
	e := &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Source:     "api",
		Details:    details,
	}
	select {
	case s.auditCh <- e:
	default:
		s.logger.Warn("audit queue full, entry dropped",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
		)
	}
}

// drainAuditLog persists queued entries until ctx ends, then flushes the
// backlog. Writes use a fresh context so the flush survives shutdown.
func (s *Server) drainAuditLog(ctx context.Context) {
	persist := func(e *audit.Entry) {
		if err := s.auditRepo.Create(context.Background(), e); err != nil {
			s.logger.Error("audit write failed",
				"action", e.Action,
				"entity_type", e.EntityType,
				"error", err,
			)
		}
	}

	for ctx.Err() == nil {
		select {
		case e := <-s.auditCh:
			persist(e)
		case <-ctx.Done():
		}
	}
	for n := len(s.auditCh); n > 0; n-- {
		persist(<-s.auditCh)
	}
}

// handleListAuditLogs filters by action, entity_type, entity_id, user_id
// and an RFC 3339 since/until window. limit and offset are clamped by the
// repository.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w, "audit logging not configured")
		return
	}

	q := r.URL.Query()
	f := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
		Limit:      queryInt(r, 0, "limit"),
		Offset:     queryInt(r, 0, "offset"),
	}
	var err error
	if f.Since, err = queryTime(r, "since"); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if f.Until, err = queryTime(r, "until"); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	page, err := s.auditRepo.List(r.Context(), f)
	if err != nil {
		s.logger.Error("listing audit entries", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// queryTime parses an optional RFC 3339 parameter; absent yields zero.
func queryTime(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC 3339 timestamp", key)
	}
	return t, nil
}
