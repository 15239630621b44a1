package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hikgate/hikgate-core/internal/audit"
	"github.com/hikgate/hikgate-core/internal/auth"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "operator1", auth.RoleOperador)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Username: "operator1", Password: "password123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != 3600 || resp.User.ID != u.ID {
		t.Errorf("response = %+v", resp)
	}

	claims, err := env.tokens.Parse(resp.AccessToken)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != u.ID || claims.Role != auth.RoleOperador {
		t.Errorf("claims = %+v", claims)
	}

	entries := env.drainAudit()
	if len(entries) != 1 || entries[0].Action != audit.ActionLogin || entries[0].UserID != u.ID {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestLogin_Rejections(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "active", auth.RoleViewer)
	inactive := env.createUser(t, "inactive", auth.RoleViewer)
	inactive.IsActive = false
	if err := env.users.Update(context.Background(), inactive); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing password", loginRequest{Username: "active"}, http.StatusBadRequest},
		{"unknown user", loginRequest{Username: "ghost", Password: "password123"}, http.StatusUnauthorized},
		{"wrong password", loginRequest{Username: "active", Password: "wrong-password"}, http.StatusUnauthorized},
		{"inactive", loginRequest{Username: "inactive", Password: "password123"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if e := decodeError(t, rec); e.Message != auth.ErrInvalidCredentials.Error() {
					t.Errorf("message = %q, want the generic credentials error", e.Message)
				}
			}
		})
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	tok := env.tokenFor(t, "vehic", auth.RoleVehicular)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Username    string            `json:"username"`
		Role        auth.Role         `json:"role"`
		Permissions []auth.Permission `json:"permissions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Username != "vehic" || resp.Role != auth.RoleVehicular || len(resp.Permissions) != 3 {
		t.Errorf("me = %+v", resp)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)
	tok := env.tokenFor(t, "alice", auth.RoleAdmin)

	t.Run("missing token", func(t *testing.T) {
		if rec := env.do(t, http.MethodGet, "/api/v1/persons", "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if rec := env.do(t, http.MethodGet, "/api/v1/persons", "not-a-jwt", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("foreign secret", func(t *testing.T) {
		u := env.createUser(t, "mallory", auth.RoleAdmin)
		forged, err := auth.NewTokenIssuer("another-secret-entirely-0000000", 0).Issue(u)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if rec := env.do(t, http.MethodGet, "/api/v1/persons", forged, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid", func(t *testing.T) {
		if rec := env.do(t, http.MethodGet, "/api/v1/persons", tok, nil); rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestAuthMiddleware_ReloadsUser(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "bob", auth.RoleAdmin)
	tok, err := env.tokens.Issue(u)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/users", tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rec.Code)
	}

	// Demotion applies to the existing token.
	u.Role = auth.RoleViewer
	if err := env.users.Update(context.Background(), u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/users", tok, nil); rec.Code != http.StatusForbidden {
		t.Errorf("demoted status = %d, want 403", rec.Code)
	}

	u.IsActive = false
	if err := env.users.Update(context.Background(), u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/persons", tok, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("deactivated status = %d, want 401", rec.Code)
	}

	if err := env.users.Delete(context.Background(), u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/persons", tok, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted status = %d, want 401", rec.Code)
	}
}

func TestRequirePermission_PerRole(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		role       auth.Role
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{auth.RoleViewer, http.MethodGet, "/api/v1/persons", nil, http.StatusOK},
		{auth.RoleViewer, http.MethodPost, "/api/v1/persons", map[string]string{}, http.StatusForbidden},
		{auth.RolePostulante, http.MethodPost, "/api/v1/persons/EMP-1/photo", map[string]string{"photo": "abc"}, http.StatusForbidden},
		{auth.RoleVehicular, http.MethodPost, "/api/v1/persons/EMP-1/photo", map[string]string{"photo": "abc"}, http.StatusForbidden},
		{auth.RolePeatonal, http.MethodPost, "/api/v1/persons/EMP-1/photo", map[string]string{"photo": "abc"}, http.StatusOK},
		{auth.RoleSeguridad, http.MethodPost, "/api/v1/persons/assign-access-level", map[string]string{"personCode": "EMP-1", "privilegeGroupId": "3"}, http.StatusForbidden},
		{auth.RoleOperador, http.MethodPost, "/api/v1/persons/assign-access-level", map[string]string{"personCode": "EMP-1", "privilegeGroupId": "3"}, http.StatusOK},
		{auth.RolePeatonal, http.MethodPost, "/api/v1/vehicles/cache/invalidate", nil, http.StatusForbidden},
		{auth.RoleVehicular, http.MethodPost, "/api/v1/vehicles/cache/invalidate", nil, http.StatusOK},
		{auth.RoleOperador, http.MethodGet, "/api/v1/users", nil, http.StatusForbidden},
		{auth.RoleOperador, http.MethodGet, "/api/v1/audit-logs", nil, http.StatusForbidden},
		{auth.RoleAdmin, http.MethodGet, "/api/v1/audit-logs", nil, http.StatusOK},
	}
	for i, tt := range tests {
		t.Run(string(tt.role)+" "+tt.method+" "+tt.path, func(t *testing.T) {
			tok := env.tokenFor(t, "user"+string(rune('a'+i)), tt.role)
			rec := env.do(t, tt.method, tt.path, tok, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
