package users

import "errors"

// ErrUnknownRole is returned when a role update names a role outside
// shared.KnownRoles.
var ErrUnknownRole = errors.New("users: unknown role")

// RolesInput replaces the role set of an account.
type RolesInput struct {
	SisiID string   `validate:"required"`
	Roles  []string `validate:"dive,required"`
}

// RoleChangeInput grants or revokes a single role.
type RoleChangeInput struct {
	SisiID string `validate:"required"`
	Role   string `validate:"required"`
}
