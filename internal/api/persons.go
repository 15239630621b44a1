package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hikgate/hikgate-core/internal/audit"
	"github.com/hikgate/hikgate-core/internal/auth"
	"github.com/hikgate/hikgate-core/internal/events"
	"github.com/hikgate/hikgate-core/internal/hikcentral"
	"github.com/hikgate/hikgate-core/internal/person"
	"github.com/hikgate/hikgate-core/internal/search"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

type photoRequest struct {
	FaceData string `json:"faceData"`
	Photo    string `json:"photo"`
}

type assignRequest struct {
	PersonCode       string        `json:"personCode"`
	PrivilegeGroupID hikcentral.ID `json:"privilegeGroupId"`
}

// queryInt reads a positive integer parameter, falling back to def.
func queryInt(r *http.Request, def int, keys ...string) int {
	for _, k := range keys {
		if v := r.URL.Query().Get(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return def
}

// handleListPersons serves one vendor page, or a ranked search when
// ?search= is present.
func (s *Server) handleListPersons(w http.ResponseWriter, r *http.Request) {
	if q := strings.TrimSpace(r.URL.Query().Get("search")); q != "" {
		listing, err := s.searcher.Search(r.Context(), q)
		if err != nil {
			s.logger.Warn("person search failed", "query", q, "error", err)
			writeVendorError(w, "error searching persons", err)
			return
		}
		writeOK(w, http.StatusOK, "search completed", listing)
		return
	}

	pageNo := queryInt(r, 1, "page_no", "page")
	pageSize := min(queryInt(r, defaultPageSize, "page_size"), maxPageSize)

	listing, err := s.searcher.Page(r.Context(), pageNo, pageSize)
	if err != nil {
		s.logger.Warn("person listing failed", "page", pageNo, "error", err)
		writeVendorError(w, "error listing persons", err)
		return
	}
	writeOK(w, http.StatusOK, "list retrieved", listing)
}

// handleGetPerson fetches a person by personCode with DNI and vehicles.
func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "person")

	p, err := s.vendor.GetPersonByCode(r.Context(), code)
	if err != nil {
		if hikcentral.IsLocal(err) {
			writeVendorError(w, "error fetching person", err)
			return
		}
		var ve *hikcentral.VendorError
		msg := err.Error()
		if errors.As(err, &ve) {
			msg = ve.Msg
		}
		writeNotFound(w, "person not found: "+msg)
		return
	}

	results := []search.Result{search.FromPerson(*p)}
	s.searcher.Enrich(r.Context(), results)
	writeOK(w, http.StatusOK, "person found", results[0])
}

// handleCreatePerson runs the create workflow. Only a failed base add is an
// error; later step outcomes are in the returned report.
func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePersonRequest(w, r)
	if !ok {
		return
	}
	if req.OrgIndexCode == "" {
		req.OrgIndexCode = s.defaultOrg
	}

	claims := claimsFromContext(r.Context())
	rep, err := s.workflow.Create(context.WithoutCancel(r.Context()), req)
	if err != nil {
		s.writeWorkflowError(w, "error adding person", err)
		return
	}

	s.recordPersonChange(audit.ActionCreate, events.PersonCreated, rep, claims)
	writeOK(w, http.StatusCreated, "person added", rep)
}

// handleUpdatePerson runs the update workflow for the vendor personId in the path.
func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePersonRequest(w, r)
	if !ok {
		return
	}

	claims := claimsFromContext(r.Context())
	rep, err := s.workflow.Update(context.WithoutCancel(r.Context()), chi.URLParam(r, "person"), req)
	if err != nil {
		s.writeWorkflowError(w, "error updating person", err)
		return
	}

	s.recordPersonChange(audit.ActionUpdate, events.PersonUpdated, rep, claims)
	writeOK(w, http.StatusOK, "person updated", rep)
}

// handleUploadPhoto replaces a person's face photo.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "person")

	var req photoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	face := req.FaceData
	if face == "" {
		face = req.Photo
	}
	face = person.StripDataURL(face)
	if face == "" {
		writeValidation(w, "faceData or photo is required")
		return
	}

	if err := s.vendor.UpdateFace(context.WithoutCancel(r.Context()), code, face); err != nil {
		s.logger.Warn("photo upload failed", "person_code", code, "error", err)
		writeVendorError(w, "error uploading photo", err)
		return
	}

	claims := claimsFromContext(r.Context())
	s.logger.Info("photo updated", "person_code", code, "user_id", claims.Subject)
	s.auditLog(audit.ActionUpdate, audit.EntityPerson, code, claims.Subject, map[string]any{"photo": true})
	s.publish(events.Event{Kind: events.PhotoUpdated, PersonCode: code, UserID: claims.Subject})

	writeOK(w, http.StatusOK, "photo updated", map[string]string{"personCode": code})
}

// handleAssignAccessLevel adds a person to a privilege group.
func (s *Server) handleAssignAccessLevel(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.PersonCode = strings.TrimSpace(req.PersonCode)
	if req.PersonCode == "" || req.PrivilegeGroupID == "" {
		writeValidation(w, "personCode and privilegeGroupId are required")
		return
	}

	err := s.vendor.AssignAccessLevel(context.WithoutCancel(r.Context()), req.PersonCode, req.PrivilegeGroupID.String())
	if err != nil {
		s.logger.Warn("access level assignment failed",
			"person_code", req.PersonCode,
			"group_id", req.PrivilegeGroupID,
			"error", err,
		)
		if errors.Is(err, hikcentral.ErrPersonNotResolved) && !hikcentral.IsLocal(err) {
			writeNotFound(w, "person not found: "+req.PersonCode)
			return
		}
		writeVendorError(w, "error assigning access level", err)
		return
	}

	claims := claimsFromContext(r.Context())
	s.auditLog(audit.ActionAssign, audit.EntityAccessLevel, req.PrivilegeGroupID.String(), claims.Subject, map[string]any{
		"personCode": req.PersonCode,
	})
	s.publish(events.Event{
		Kind:        events.AccessAssigned,
		PersonCode:  req.PersonCode,
		AccessLevel: req.PrivilegeGroupID.String(),
		UserID:      claims.Subject,
	})

	writeOK(w, http.StatusOK, "access level assigned", map[string]string{
		"personCode":       req.PersonCode,
		"privilegeGroupId": req.PrivilegeGroupID.String(),
	})
}

// decodePersonRequest reads the body and sets the step permissions from
// the caller's role.
func (s *Server) decodePersonRequest(w http.ResponseWriter, r *http.Request) (person.Request, bool) {
	var req person.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return req, false
	}

	claims := claimsFromContext(r.Context())
	req.Allow = person.Allow{
		Photo:    claims.Can(auth.PermPhotoUpload),
		Vehicles: claims.Can(auth.PermVehicleManage),
	}
	return req, true
}

func (s *Server) writeWorkflowError(w http.ResponseWriter, prefix string, err error) {
	if errors.Is(err, person.ErrInvalidRequest) {
		writeValidation(w, err.Error())
		return
	}
	s.logger.Warn(prefix, "error", err)
	writeVendorError(w, prefix, err)
}

// recordPersonChange audits a finished workflow and announces it.
func (s *Server) recordPersonChange(action string, kind events.Kind, rep *person.Report, claims *auth.Claims) {
	details := map[string]any{"personCode": rep.PersonCode}
	if failed := rep.Failed(); len(failed) > 0 {
		details["failed_steps"] = failed
	}
	if len(rep.VehiclesAdded) > 0 {
		details["vehicles_added"] = rep.VehiclesAdded
	}
	if len(rep.VehiclesRemoved) > 0 {
		details["vehicles_removed"] = rep.VehiclesRemoved
	}
	s.auditLog(action, audit.EntityPerson, rep.PersonID, claims.Subject, details)

	if len(rep.VehiclesAdded) > 0 || len(rep.VehiclesRemoved) > 0 {
		s.auditLog(audit.ActionUpdate, audit.EntityVehicle, rep.PersonID, claims.Subject, map[string]any{
			"added":   rep.VehiclesAdded,
			"removed": rep.VehiclesRemoved,
		})
	}

	s.publish(events.FromReport(kind, rep, claims.Subject))
}
