package models

// RoleType defines the administrator role type
type RoleType string

const (
	RoleSuperAdmin RoleType = "SUPER_ADMIN"
	RoleAdmin      RoleType = "ADMIN"
)

// ValidRole reports whether the role is one of the known role types
func ValidRole(role RoleType) bool {
	return role == RoleSuperAdmin || role == RoleAdmin
}
