package patients

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/shared"
)

// Registrar is the user-detail service surface used to register patients.
type Registrar interface {
	CreateUserDetail(ctx context.Context, detail backend.UserDetail) (*backend.UserDetail, error)
}

// Service registers patients.
type Service struct {
	api    Registrar
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(api Registrar, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, audit: audit, logger: logger}
}

// Register creates the personal record. The user-detail service provisions
// the login account and sends the initial password.
func (s *Service) Register(ctx context.Context, in DetailInput) (*backend.UserDetail, error) {
	created, err := s.api.CreateUserDetail(ctx, in.Record())
	if err != nil {
		return nil, fmt.Errorf("patients: register: %w", err)
	}
	entityID := in.SisiID
	if created != nil && created.ID != "" {
		entityID = created.ID
	}
	actor := ""
	if p := auth.IdentityFromContext(ctx).Principal(); p != nil {
		actor = p.SisiID
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Actor: actor, Action: shared.AuditPatientRegistered, Entity: "user_detail", EntityID: entityID,
		Meta: map[string]any{"sisiId": in.SisiID},
	}); err != nil {
		s.logger.Warn("audit patient registration", slog.Any("error", err))
	}
	return created, nil
}
