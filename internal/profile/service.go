// Package profile serves the signed-in user's own account page.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/patients"
	"github.com/medportal/medportal/internal/shared"
)

// DetailStore is the user-detail service surface.
type DetailStore interface {
	UserDetailBySisiID(ctx context.Context, sisiID string) (*backend.UserDetail, error)
	CreateUserDetail(ctx context.Context, detail backend.UserDetail) (*backend.UserDetail, error)
	UpdateUserDetail(ctx context.Context, id string, detail backend.UserDetail) (*backend.UserDetail, error)
}

// PasswordChanger changes the signed-in user's password.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, current, next string) error
}

// Overview is what the profile page shows.
type Overview struct {
	Principal    *shared.Principal
	Detail       *backend.UserDetail
	TokenExpires time.Time
}

// Service reads and edits the signed-in user's profile.
type Service struct {
	details   DetailStore
	passwords PasswordChanger
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(details DetailStore, passwords PasswordChanger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{details: details, passwords: passwords, logger: logger}
}

// Overview loads the principal's personal record. A missing record is not an
// error; the page then offers to create one.
func (s *Service) Overview(ctx context.Context, principal *shared.Principal) (Overview, error) {
	out := Overview{Principal: principal}
	if principal == nil {
		return out, nil
	}
	if exp, ok := auth.TokenExpiry(principal.Token); ok {
		out.TokenExpires = exp
	}
	detail, err := s.details.UserDetailBySisiID(ctx, principal.SisiID)
	switch {
	case err == nil:
		out.Detail = detail
	case errors.Is(err, backend.ErrNotFound):
	default:
		return out, fmt.Errorf("profile: load details: %w", err)
	}
	return out, nil
}

// SaveDetail updates the principal's record, creating it when none exists.
// It reports whether a record was created.
func (s *Service) SaveDetail(ctx context.Context, principal *shared.Principal, in patients.DetailInput) (bool, error) {
	in.SisiID = principal.SisiID
	existing, err := s.details.UserDetailBySisiID(ctx, principal.SisiID)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		return false, fmt.Errorf("profile: load details: %w", err)
	}
	if existing != nil && existing.ID != "" {
		if _, err := s.details.UpdateUserDetail(ctx, existing.ID, in.Record()); err != nil {
			return false, fmt.Errorf("profile: update details: %w", err)
		}
		return false, nil
	}
	if _, err := s.details.CreateUserDetail(ctx, in.Record()); err != nil {
		return false, fmt.Errorf("profile: create details: %w", err)
	}
	return true, nil
}

// ChangePassword delegates to the auth service.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	return s.passwords.ChangePassword(ctx, current, next)
}
