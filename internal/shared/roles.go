package shared

// Portal role tags as issued by the auth service.
const (
	RoleAdmin  = "ROLE_ADMIN"
	RoleUser   = "ROLE_USER"
	RoleDoctor = "ROLE_DOCTOR"
	RoleNurse  = "ROLE_NURSE"
)

// KnownRoles lists the roles an administrator can assign.
func KnownRoles() []string {
	return []string{
		RoleAdmin,
		RoleUser,
		RoleDoctor,
		RoleNurse,
	}
}

// IsKnownRole reports whether role is one of KnownRoles.
func IsKnownRole(role string) bool {
	for _, r := range KnownRoles() {
		if r == role {
			return true
		}
	}
	return false
}
