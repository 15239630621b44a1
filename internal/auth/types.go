package auth

import (
	"errors"
	"regexp"
	"time"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername reports whether username is 1-64 characters of letters,
// digits, dots, hyphens and underscores.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role is an operator's job function.
type Role string

const (
	// RoleAdmin manages everything, including operator accounts and the audit log.
	RoleAdmin Role = "admin"

	// RoleOperador runs day-to-day registration and assigns access levels.
	RoleOperador Role = "operador"

	// RoleSeguridad is gate security staff: registers people, photos and vehicles.
	RoleSeguridad Role = "personal_seguridad"

	// RoleVehicular manages people and their vehicles, not photos.
	RoleVehicular Role = "gestion_vehicular"

	// RolePeatonal manages people and their photos, not vehicles.
	RolePeatonal Role = "gestion_peatonal"

	// RolePostulante is read-only.
	RolePostulante Role = "postulante"

	// RoleViewer is read-only and the default for new accounts.
	RoleViewer Role = "viewer"
)

// ValidRoles lists every assignable role.
var ValidRoles = []Role{
	RoleAdmin, RoleOperador, RoleSeguridad, RoleVehicular,
	RolePeatonal, RolePostulante, RoleViewer,
}

// IsValidRole reports whether r is assignable.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User is an operator account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sentinel errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrUsernameExists     = errors.New("username already exists")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrSelfModification   = errors.New("cannot modify own account in this way")
	ErrWeakPassword       = errors.New("password too short")
)
