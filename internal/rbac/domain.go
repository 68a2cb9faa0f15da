package rbac

import (
	"context"

	"github.com/medportal/medportal/internal/backend"
)

// Directory is the authorization service as seen by the portal.
type Directory interface {
	ListPermissions(ctx context.Context) ([]backend.Permission, error)
	GetPermission(ctx context.Context, id string) (*backend.Permission, error)
	CreatePermission(ctx context.Context, req backend.PermissionRequest) (*backend.Permission, error)
	UpdatePermission(ctx context.Context, id string, req backend.PermissionRequest) (*backend.Permission, error)
	DeletePermission(ctx context.Context, id string) error
	ActivePermissionsByRole(ctx context.Context, role string) ([]backend.RolePermission, error)
}

// Result is the effective permission set of a principal.
type Result struct {
	// Permissions is de-duplicated by id, in role order.
	Permissions []backend.Permission `json:"permissions"`
	// Full is set when the principal is an administrator and Permissions is
	// the whole catalog.
	Full bool `json:"full"`
	// Failed lists roles whose links could not be loaded.
	Failed []string `json:"failedRoles,omitempty"`
}

// Partial reports whether some roles could not be resolved.
func (r Result) Partial() bool {
	return len(r.Failed) > 0
}
