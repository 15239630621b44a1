package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hikgate/hikgate-core/internal/audit"
	"github.com/hikgate/hikgate-core/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int        `json:"expires_in"`
	User        *auth.User `json:"user"`
}

type meResponse struct {
	*auth.User
	Permissions []auth.Permission `json:"permissions"`
}

// handleLogin checks credentials against the user table and issues a token.
// Unknown users, wrong passwords and inactive accounts all answer 401 with
// the same message.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := s.userRepo.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			s.logger.Error("login lookup failed", "error", err)
			writeInternalError(w, "login failed")
			return
		}
		writeUnauthorized(w, auth.ErrInvalidCredentials.Error())
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("password verification failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "login failed")
		return
	}
	if !ok || !user.IsActive {
		s.logger.Warn("login rejected", "username", req.Username, "inactive", ok && !user.IsActive)
		writeUnauthorized(w, auth.ErrInvalidCredentials.Error())
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	s.auditLog(audit.ActionLogin, audit.EntityUser, user.ID, user.ID, nil)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
		User:        user,
	})
}

// handleMe returns the caller's account and effective permissions.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, meResponse{
		User:        user,
		Permissions: auth.PermissionsForRole(user.Role),
	})
}
