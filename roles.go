package dashboard

import "slices"

// Roles lists the roles a user record can hold
var Roles = []UserRole{
	RoleSuperAdmin,
	RoleAdmin,
	RoleManager,
	RoleCashier,
	RoleUser,
}

// IsValidRole checks if the role is one of the predefined roles
func IsValidRole(r UserRole) bool {
	return slices.Contains(Roles, r)
}

// IsAdminRole checks if the role can manage other users
func IsAdminRole(r UserRole) bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleLabel returns the capitalized role, superadmin is spelled out
func RoleLabel(r UserRole) string {
	if r == RoleSuperAdmin {
		return "Super Admin"
	}
	return capitalize(r)
}

// roleRank is used when sorting by role, higher privileges first
func roleRank(r UserRole) int {
	if i := slices.Index(Roles, r); i >= 0 {
		return i
	}
	return len(Roles)
}

// HasAnyRole checks the role against an allow list. An empty list allows
// any role.
func HasAnyRole(r UserRole, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, r)
}
