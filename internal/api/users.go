package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hikgate/hikgate-core/internal/audit"
	"github.com/hikgate/hikgate-core/internal/auth"
)

type createUserRequest struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Password    string    `json:"password"`
	Role        auth.Role `json:"role"`
}

// validate normalises defaults and reports the first problem.
func (req *createUserRequest) validate() string {
	switch {
	case req.Username == "" || req.Password == "":
		return "username and password are required"
	case !auth.IsValidUsername(req.Username):
		return "username may only contain letters, digits, dots, hyphens and underscores"
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return err.Error()
	}
	if req.Role == "" {
		req.Role = auth.RoleViewer
	}
	if !auth.IsValidRole(req.Role) {
		return "invalid role: " + string(req.Role)
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}
	return ""
}

type updateUserRequest struct {
	DisplayName *string    `json:"display_name,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Role        *auth.Role `json:"role,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
	Password    *string    `json:"password,omitempty"`
}

// apply copies the set fields onto u and returns them for the audit entry.
func (req updateUserRequest) apply(u *auth.User) map[string]any {
	changed := map[string]any{}
	if req.DisplayName != nil {
		u.DisplayName = *req.DisplayName
		changed["display_name"] = *req.DisplayName
	}
	if req.Email != nil {
		u.Email = *req.Email
		changed["email"] = *req.Email
	}
	if req.Role != nil {
		u.Role = *req.Role
		changed["role"] = *req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
		changed["is_active"] = *req.IsActive
	}
	return changed
}

// loadUser fetches the {id} user, writing 404 or 500 on failure.
func (s *Server) loadUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, err := s.userRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		writeNotFound(w, "user not found")
		return nil, false
	case err != nil:
		s.logger.Error("user lookup failed", "user_id", chi.URLParam(r, "id"), "error", err)
		writeInternalError(w, "failed to load user")
		return nil, false
	}
	return user, true
}

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userRepo.List(r.Context())
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

// handleCreateUser creates an operator account. Role defaults to viewer.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeValidation(w, msg)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	claims := claimsFromContext(r.Context())
	user := &auth.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
		CreatedBy:    claims.Subject,
	}
	err = s.userRepo.Create(r.Context(), user)
	switch {
	case errors.Is(err, auth.ErrUsernameExists):
		writeConflict(w, "username already exists")
		return
	case err != nil:
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role, "by", claims.Subject)
	s.auditLog(audit.ActionCreate, audit.EntityUser, user.ID, claims.Subject, map[string]any{
		"username": user.Username,
		"role":     user.Role,
	})
	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if user, ok := s.loadUser(w, r); ok {
		writeJSON(w, http.StatusOK, user)
	}
}

// handleUpdateUser patches a user's mutable fields. Admins cannot
// deactivate themselves or change their own role.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	user, ok := s.loadUser(w, r)
	if !ok {
		return
	}

	claims := claimsFromContext(r.Context())
	self := user.ID == claims.Subject
	switch {
	case self && req.IsActive != nil && !*req.IsActive:
		writeForbidden(w, "cannot deactivate your own account")
		return
	case self && req.Role != nil && *req.Role != user.Role:
		writeForbidden(w, "cannot change your own role")
		return
	case req.Role != nil && !auth.IsValidRole(*req.Role):
		writeValidation(w, "invalid role: "+string(*req.Role))
		return
	}

	var hash string
	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password); err != nil {
			writeValidation(w, err.Error())
			return
		}
		var err error
		if hash, err = auth.HashPassword(*req.Password); err != nil {
			s.logger.Error("hash password failed", "error", err)
			writeInternalError(w, "failed to update user")
			return
		}
	}

	changed := req.apply(user)
	if err := s.userRepo.Update(r.Context(), user); err != nil {
		s.logger.Error("update user failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to update user")
		return
	}
	if hash != "" {
		if err := s.userRepo.UpdatePassword(r.Context(), user.ID, hash); err != nil {
			s.logger.Error("update password failed", "user_id", user.ID, "error", err)
			writeInternalError(w, "failed to update password")
			return
		}
		changed["password"] = "changed"
	}

	s.logger.Info("user updated", "user_id", user.ID, "by", claims.Subject)
	s.auditLog(audit.ActionUpdate, audit.EntityUser, user.ID, claims.Subject, changed)
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes a user account other than the caller's.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if chi.URLParam(r, "id") == claims.Subject {
		writeForbidden(w, "cannot delete your own account")
		return
	}
	user, ok := s.loadUser(w, r)
	if !ok {
		return
	}

	if err := s.userRepo.Delete(r.Context(), user.ID); err != nil {
		s.logger.Error("delete user failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	s.logger.Info("user deleted", "user_id", user.ID, "by", claims.Subject)
	s.auditLog(audit.ActionDelete, audit.EntityUser, user.ID, claims.Subject, map[string]any{
		"username": user.Username,
	})
	w.WriteHeader(http.StatusNoContent)
}
