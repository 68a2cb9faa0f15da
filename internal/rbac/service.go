package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/shared"
)

// ErrNotFound indicates that the requested permission does not exist.
var ErrNotFound = errors.New("rbac: not found")

// PermissionInput is the editable part of a permission.
type PermissionInput struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	IsActive    bool
}

// Service orchestrates permission catalog operations.
type Service struct {
	dir        Directory
	aggregator *Aggregator
	audit      *shared.AuditLogger
	logger     *slog.Logger
}

// NewService constructs a Service.
func NewService(dir Directory, aggregator *Aggregator, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dir: dir, aggregator: aggregator, audit: audit, logger: logger}
}

// ListPermissions returns the catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]backend.Permission, error) {
	return s.dir.ListPermissions(ctx)
}

// GetPermission fetches a permission by id.
func (s *Service) GetPermission(ctx context.Context, id string) (*backend.Permission, error) {
	perm, err := s.dir.GetPermission(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return perm, nil
}

// CreatePermission adds a permission to the catalog.
func (s *Service) CreatePermission(ctx context.Context, in PermissionInput) (*backend.Permission, error) {
	perm, err := s.dir.CreatePermission(ctx, toRequest(in))
	if err != nil {
		return nil, fmt.Errorf("rbac: create permission: %w", err)
	}
	s.record(ctx, shared.AuditPermissionSaved, perm.ID, map[string]any{"name": perm.Name, "created": true})
	return perm, nil
}

// UpdatePermission edits a permission. Cached role permissions embed the
// permission, so the whole cache is dropped.
func (s *Service) UpdatePermission(ctx context.Context, id string, in PermissionInput) (*backend.Permission, error) {
	perm, err := s.dir.UpdatePermission(ctx, id, toRequest(in))
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rbac: update permission: %w", err)
	}
	s.aggregator.InvalidateAll()
	s.record(ctx, shared.AuditPermissionSaved, id, map[string]any{"name": perm.Name})
	return perm, nil
}

// DeletePermission removes a permission.
func (s *Service) DeletePermission(ctx context.Context, id string) error {
	if err := s.dir.DeletePermission(ctx, id); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("rbac: delete permission: %w", err)
	}
	s.aggregator.InvalidateAll()
	s.record(ctx, shared.AuditPermissionDeleted, id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action, id string, meta map[string]any) {
	actor := ""
	if p := auth.IdentityFromContext(ctx).Principal(); p != nil {
		actor = p.SisiID
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "permission", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit permission change", slog.String("action", action), slog.Any("error", err))
	}
}

func toRequest(in PermissionInput) backend.PermissionRequest {
	active := in.IsActive
	return backend.PermissionRequest{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		IsActive:    &active,
	}
}
