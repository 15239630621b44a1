package auth

// Permission is a named capability checked by the API layer.
type Permission string

const (
	PermPersonRead    Permission = "person:read"
	PermPersonWrite   Permission = "person:write"
	PermVehicleManage Permission = "vehicle:manage"
	PermPhotoUpload   Permission = "photo:upload"
	PermAccessAssign  Permission = "access:assign"
	PermUserManage    Permission = "user:manage"
	PermAuditRead     Permission = "audit:read"
)

// rolePermissions is the whole authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermPersonRead, PermPersonWrite, PermVehicleManage, PermPhotoUpload,
		PermAccessAssign, PermUserManage, PermAuditRead,
	},
	RoleOperador: {
		PermPersonRead, PermPersonWrite, PermVehicleManage, PermPhotoUpload,
		PermAccessAssign,
	},
	RoleSeguridad: {
		PermPersonRead, PermPersonWrite, PermVehicleManage, PermPhotoUpload,
	},
	RoleVehicular: {
		PermPersonRead, PermPersonWrite, PermVehicleManage,
	},
	RolePeatonal: {
		PermPersonRead, PermPersonWrite, PermPhotoUpload,
	},
	RolePostulante: {PermPersonRead},
	RoleViewer:     {PermPersonRead},
}

// HasPermission reports whether role grants perm. Unknown roles grant nothing.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of role's permissions, nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
