package users

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/shared"
)

// RepositoryPort is the auth service surface for account administration.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]backend.UserAccount, error)
	UpdateUserRoles(ctx context.Context, req backend.UserRolesRequest) (*backend.AuthResponse, error)
	AddUserRole(ctx context.Context, sisiID, role string) (*backend.AuthResponse, error)
	RemoveUserRole(ctx context.Context, sisiID, role string) (*backend.AuthResponse, error)
	DeleteUser(ctx context.Context, id string) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListUsers returns all accounts ordered by login name.
func (s *Service) ListUsers(ctx context.Context) ([]backend.UserAccount, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].SisiID < users[j].SisiID })
	return users, nil
}

// UpdateRoles replaces the roles of the account id.
func (s *Service) UpdateRoles(ctx context.Context, id string, in RolesInput) error {
	roles := shared.NormalizeRoles(in.Roles)
	for _, role := range roles {
		if !shared.IsKnownRole(role) {
			return fmt.Errorf("%w: %s", ErrUnknownRole, role)
		}
	}
	if _, err := s.repo.UpdateUserRoles(ctx, backend.UserRolesRequest{SisiID: in.SisiID, Roles: roles}); err != nil {
		return fmt.Errorf("users: update roles: %w", err)
	}
	s.record(ctx, shared.AuditUserRolesUpdated, id, map[string]any{"sisiId": in.SisiID, "roles": roles})
	return nil
}

// GrantRole adds one role to the account id, leaving its other roles alone.
func (s *Service) GrantRole(ctx context.Context, id string, in RoleChangeInput) error {
	if !shared.IsKnownRole(in.Role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, in.Role)
	}
	if _, err := s.repo.AddUserRole(ctx, in.SisiID, in.Role); err != nil {
		return fmt.Errorf("users: grant role: %w", err)
	}
	s.record(ctx, shared.AuditUserRoleGranted, id, map[string]any{"sisiId": in.SisiID, "role": in.Role})
	return nil
}

// RevokeRole removes one role from the account id.
func (s *Service) RevokeRole(ctx context.Context, id string, in RoleChangeInput) error {
	if !shared.IsKnownRole(in.Role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, in.Role)
	}
	if _, err := s.repo.RemoveUserRole(ctx, in.SisiID, in.Role); err != nil {
		return fmt.Errorf("users: revoke role: %w", err)
	}
	s.record(ctx, shared.AuditUserRoleRevoked, id, map[string]any{"sisiId": in.SisiID, "role": in.Role})
	return nil
}

// DeleteUser removes the account id.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	s.record(ctx, shared.AuditUserDeleted, id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action, id string, meta map[string]any) {
	actor := ""
	if p := auth.IdentityFromContext(ctx).Principal(); p != nil {
		actor = p.SisiID
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "user", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit user change", slog.String("action", action), slog.Any("error", err))
	}
}
