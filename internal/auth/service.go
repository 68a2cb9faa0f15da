package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/shared"
)

// Backend is the subset of the gateway client used for authentication.
type Backend interface {
	Login(ctx context.Context, req backend.LoginRequest) (*backend.AuthResponse, error)
	Register(ctx context.Context, req backend.RegisterRequest) (*backend.AuthResponse, error)
	ChangePassword(ctx context.Context, req backend.ChangePasswordRequest) error
}

// Service wraps authentication business rules.
type Service struct {
	api      Backend
	sessions *shared.SessionManager
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(api Backend, sessions *shared.SessionManager, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, sessions: sessions, audit: audit, logger: logger}
}

// Login authenticates against the auth service and stores the principal in
// sess. On failure the session is left as it was.
func (s *Service) Login(ctx context.Context, sess *shared.Session, creds Credentials) (*shared.Principal, error) {
	resp, err := s.api.Login(ctx, backend.LoginRequest{SisiID: creds.SisiID, Password: creds.Password})
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrBadRequest) {
			s.record(ctx, creds.SisiID, shared.AuditLoginFailed, creds.SisiID, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: login: %w", err)
	}

	principal := &shared.Principal{
		ID:     resp.ID,
		SisiID: resp.SisiID,
		Token:  resp.Token,
		Roles:  resp.Roles,
	}
	if principal.SisiID == "" {
		principal.SisiID = creds.SisiID
	}
	if !principal.Valid() {
		return nil, errors.New("auth: login response is missing id or token")
	}
	if err := s.sessions.SavePrincipal(ctx, sess, principal); err != nil {
		return nil, fmt.Errorf("auth: save principal: %w", err)
	}
	s.record(ctx, principal.SisiID, shared.AuditLogin, principal.ID, map[string]any{"roles": principal.Roles})
	return sess.Principal(), nil
}

// Register creates an account. It never signs the visitor in.
func (s *Service) Register(ctx context.Context, creds Credentials) error {
	resp, err := s.api.Register(ctx, backend.RegisterRequest{SisiID: creds.SisiID, Password: creds.Password})
	if err != nil {
		if errors.Is(err, backend.ErrConflict) || strings.Contains(backend.MessageOf(err), "already exists") {
			return ErrAccountExists
		}
		return fmt.Errorf("auth: register: %w", err)
	}
	entityID := creds.SisiID
	if resp != nil && resp.ID != "" {
		entityID = resp.ID
	}
	s.record(ctx, creds.SisiID, shared.AuditRegister, entityID, nil)
	return nil
}

// Logout clears the stored principal. Persist failures are logged; logout
// itself never fails.
func (s *Service) Logout(ctx context.Context, sess *shared.Session) {
	principal := sess.Principal()
	if err := s.sessions.ClearPrincipal(ctx, sess); err != nil {
		s.logger.Error("clear session on logout", slog.Any("error", err))
	}
	if principal != nil {
		s.record(ctx, principal.SisiID, shared.AuditLogout, principal.ID, nil)
	}
}

// ChangePassword changes the signed-in user's password.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	err := s.api.ChangePassword(ctx, backend.ChangePasswordRequest{CurrentPassword: current, NewPassword: next})
	if err != nil {
		if errors.Is(err, backend.ErrBadRequest) {
			return ErrWrongPassword
		}
		return fmt.Errorf("auth: change password: %w", err)
	}
	if p := IdentityFromContext(ctx).Principal(); p != nil {
		s.record(ctx, p.SisiID, shared.AuditPasswordChanged, p.ID, nil)
	}
	return nil
}

// HasRole reports whether the visitor of ctx holds role.
func (s *Service) HasRole(ctx context.Context, role string) bool {
	return IdentityFromContext(ctx).HasRole(role)
}

func (s *Service) record(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if entityID == "" {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "user", EntityID: entityID, Meta: meta}); err != nil {
		s.logger.Warn("audit auth event", slog.String("action", action), slog.Any("error", err))
	}
}

// SessionCredentials hands the request session's token to the gateway client
// and clears it when the gateway rejects it.
type SessionCredentials struct {
	sessions *shared.SessionManager
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewSessionCredentials builds the credentials source for the gateway client.
func NewSessionCredentials(sessions *shared.SessionManager, audit *shared.AuditLogger, logger *slog.Logger) *SessionCredentials {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionCredentials{sessions: sessions, audit: audit, logger: logger}
}

// Token returns the bearer token of the request session.
func (c *SessionCredentials) Token(ctx context.Context) string {
	return c.sessions.Token(ctx)
}

// Revoke clears the request session's principal.
func (c *SessionCredentials) Revoke(ctx context.Context) error {
	principal := shared.SessionFromContext(ctx).Principal()
	if err := c.sessions.Revoke(ctx); err != nil {
		return err
	}
	if principal != nil {
		err := c.audit.Record(ctx, shared.AuditLog{Actor: principal.SisiID, Action: shared.AuditSessionRevoked, Entity: "user", EntityID: principal.ID})
		if err != nil {
			c.logger.Warn("audit session revoke", slog.Any("error", err))
		}
	}
	return nil
}

var _ backend.Credentials = (*SessionCredentials)(nil)
