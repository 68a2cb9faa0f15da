package roles

import "github.com/medportal/medportal/internal/backend"

// RoleView is one role with its permission links.
type RoleView struct {
	Name  string
	Links []backend.RolePermission
	// Available lists catalog permissions not yet linked to the role.
	Available []backend.Permission
}

// LinkInput assigns a permission to a role.
type LinkInput struct {
	PermissionID string `validate:"required"`
	IsActive     bool
}
