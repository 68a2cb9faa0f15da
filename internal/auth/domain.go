package auth

import (
	"context"
	"errors"

	"github.com/medportal/medportal/internal/shared"
)

var (
	// ErrInvalidCredentials is returned when the login name or password is rejected.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountExists is returned when registration hits an existing login name.
	ErrAccountExists = errors.New("auth: account already exists")
	// ErrWrongPassword is returned when a password change is rejected.
	ErrWrongPassword = errors.New("auth: current password is incorrect")
)

// State describes what is known about the visitor of a request.
type State int

const (
	// StateInitializing means the session store has not been read yet.
	StateInitializing State = iota
	// StateAnonymous means no principal is stored.
	StateAnonymous
	// StateAuthenticated means a principal is stored.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "initializing"
	}
}

// Credentials is a login name and password pair.
type Credentials struct {
	SisiID   string
	Password string
}

// Identity is the per-request view of the session's principal. It reads the
// session on every call, so login, logout and upstream revocation are visible
// immediately.
type Identity struct {
	sess *shared.Session
}

// NewIdentity binds an identity to a loaded session.
func NewIdentity(sess *shared.Session) *Identity {
	return &Identity{sess: sess}
}

// State reports the current state. A nil identity is still initializing.
func (id *Identity) State() State {
	if id == nil || id.sess == nil {
		return StateInitializing
	}
	if id.sess.Principal() == nil {
		return StateAnonymous
	}
	return StateAuthenticated
}

// IsAuthenticated reports whether a principal is stored.
func (id *Identity) IsAuthenticated() bool {
	return id.State() == StateAuthenticated
}

// Principal returns a copy of the stored principal or nil.
func (id *Identity) Principal() *shared.Principal {
	if id == nil || id.sess == nil {
		return nil
	}
	return id.sess.Principal()
}

// HasRole reports whether the principal holds role. Anonymous visitors hold none.
func (id *Identity) HasRole(role string) bool {
	return id.Principal().HasRole(role)
}

// HasAnyRole reports whether the principal holds one of roles.
func (id *Identity) HasAnyRole(roles ...string) bool {
	return id.Principal().HasAnyRole(roles...)
}

type identityKey struct{}

// ContextWithIdentity stores identity in ctx.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by Hydrate, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
