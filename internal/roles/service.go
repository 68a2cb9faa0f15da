package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/shared"
)

// ErrUnknownRole is returned for role names outside shared.KnownRoles.
var ErrUnknownRole = errors.New("roles: unknown role")

// RepositoryPort is the authorization service surface for role links.
type RepositoryPort interface {
	ListPermissions(ctx context.Context) ([]backend.Permission, error)
	PermissionsByRole(ctx context.Context, role string) ([]backend.RolePermission, error)
	AssignPermissionToRole(ctx context.Context, req backend.RolePermissionRequest) (*backend.RolePermission, error)
	UpdateRolePermission(ctx context.Context, id string, req backend.RolePermissionRequest) (*backend.RolePermission, error)
	DeleteRolePermission(ctx context.Context, id string) error
}

// Invalidator drops cached permissions of roles whose links changed.
type Invalidator interface {
	Invalidate(roles ...string)
}

// Service handles role-permission link management.
type Service struct {
	repo   RepositoryPort
	cache  Invalidator
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache Invalidator, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger}
}

// ListRoles returns the assignable roles.
func (s *Service) ListRoles() []string {
	return shared.KnownRoles()
}

// Role loads the links of role together with the permissions still available
// for assignment.
func (s *Service) Role(ctx context.Context, role string) (RoleView, error) {
	if !shared.IsKnownRole(role) {
		return RoleView{}, ErrUnknownRole
	}
	links, err := s.repo.PermissionsByRole(ctx, role)
	if err != nil {
		return RoleView{}, fmt.Errorf("roles: links of %s: %w", role, err)
	}
	catalog, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return RoleView{}, fmt.Errorf("roles: list permissions: %w", err)
	}
	linked := make(map[string]struct{}, len(links))
	for _, link := range links {
		if link.Permission != nil {
			linked[link.Permission.ID] = struct{}{}
		}
	}
	view := RoleView{Name: role, Links: links}
	for _, perm := range catalog {
		if _, ok := linked[perm.ID]; !ok {
			view.Available = append(view.Available, perm)
		}
	}
	return view, nil
}

// Assign links a permission to role.
func (s *Service) Assign(ctx context.Context, role string, in LinkInput) (*backend.RolePermission, error) {
	if !shared.IsKnownRole(role) {
		return nil, ErrUnknownRole
	}
	link, err := s.repo.AssignPermissionToRole(ctx, linkRequest(role, in))
	if err != nil {
		return nil, fmt.Errorf("roles: assign: %w", err)
	}
	s.changed(ctx, role, shared.AuditRoleLinkSaved, link.ID, in.PermissionID)
	return link, nil
}

// Update changes an existing link of role.
func (s *Service) Update(ctx context.Context, role, id string, in LinkInput) (*backend.RolePermission, error) {
	if !shared.IsKnownRole(role) {
		return nil, ErrUnknownRole
	}
	link, err := s.repo.UpdateRolePermission(ctx, id, linkRequest(role, in))
	if err != nil {
		return nil, fmt.Errorf("roles: update link: %w", err)
	}
	s.changed(ctx, role, shared.AuditRoleLinkSaved, id, in.PermissionID)
	return link, nil
}

// Remove deletes a link of role.
func (s *Service) Remove(ctx context.Context, role, id string) error {
	if !shared.IsKnownRole(role) {
		return ErrUnknownRole
	}
	if err := s.repo.DeleteRolePermission(ctx, id); err != nil {
		return fmt.Errorf("roles: delete link: %w", err)
	}
	s.changed(ctx, role, shared.AuditRoleLinkDeleted, id, "")
	return nil
}

func (s *Service) changed(ctx context.Context, role, action, linkID, permissionID string) {
	if s.cache != nil {
		s.cache.Invalidate(role)
	}
	actor := ""
	if p := auth.IdentityFromContext(ctx).Principal(); p != nil {
		actor = p.SisiID
	}
	meta := map[string]any{"role": role}
	if permissionID != "" {
		meta["permissionId"] = permissionID
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "role_permission", EntityID: linkID, Meta: meta}); err != nil {
		s.logger.Warn("audit role link change", slog.String("action", action), slog.Any("error", err))
	}
}

func linkRequest(role string, in LinkInput) backend.RolePermissionRequest {
	active := in.IsActive
	return backend.RolePermissionRequest{Role: role, PermissionID: in.PermissionID, IsActive: &active}
}
