package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/shared"
)

type fakeBackend struct {
	loginResp *backend.AuthResponse
	loginErr  error
	changeErr error
}

func (f *fakeBackend) Login(context.Context, backend.LoginRequest) (*backend.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeBackend) Register(context.Context, backend.RegisterRequest) (*backend.AuthResponse, error) {
	return &backend.AuthResponse{}, nil
}

func (f *fakeBackend) ChangePassword(context.Context, backend.ChangePasswordRequest) error {
	return f.changeErr
}

func newTestSessions(t *testing.T) (*shared.SessionManager, *shared.Session) {
	t.Helper()
	mr := miniredis.RunT(t)
	sm := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "sid", "secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return sm, sess
}

func TestIdentityFollowsSessionLifecycle(t *testing.T) {
	sm, sess := newTestSessions(t)
	api := &fakeBackend{loginResp: &backend.AuthResponse{ID: "u1", SisiID: "doc1", Token: "tok", Roles: []string{shared.RoleDoctor}}}
	svc := NewService(api, sm, nil, nil)
	ctx := context.Background()

	var missing *Identity
	assert.Equal(t, StateInitializing, missing.State())
	assert.False(t, missing.IsAuthenticated())
	assert.False(t, missing.HasRole(shared.RoleDoctor))

	id := NewIdentity(sess)
	assert.Equal(t, StateAnonymous, id.State())
	assert.False(t, id.IsAuthenticated())

	principal, err := svc.Login(ctx, sess, Credentials{SisiID: "doc1", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", principal.ID)
	assert.Equal(t, StateAuthenticated, id.State())
	assert.True(t, id.HasRole(shared.RoleDoctor))
	assert.False(t, id.HasRole(shared.RoleAdmin))

	svc.Logout(ctx, sess)
	assert.Equal(t, StateAnonymous, id.State())
	assert.Nil(t, id.Principal())
	assert.False(t, id.HasRole(shared.RoleDoctor))
}

func TestLoginFailureLeavesSessionUntouched(t *testing.T) {
	sm, sess := newTestSessions(t)
	ctx := context.Background()

	svc := NewService(&fakeBackend{loginErr: backend.ErrUnauthorized}, sm, nil, nil)
	_, err := svc.Login(ctx, sess, Credentials{SisiID: "doc1", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, sess.Principal())

	network := errors.New("dial tcp: connection refused")
	svc = NewService(&fakeBackend{loginErr: network}, sm, nil, nil)
	_, err = svc.Login(ctx, sess, Credentials{SisiID: "doc1", Password: "secret1"})
	assert.ErrorIs(t, err, network)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	svc = NewService(&fakeBackend{loginResp: &backend.AuthResponse{ID: "u1"}}, sm, nil, nil)
	_, err = svc.Login(ctx, sess, Credentials{SisiID: "doc1", Password: "secret1"})
	assert.Error(t, err)
	assert.Nil(t, sess.Principal())
}

func TestChangePasswordMapsBadRequest(t *testing.T) {
	sm, _ := newTestSessions(t)
	svc := NewService(&fakeBackend{changeErr: &backend.APIError{Status: http.StatusBadRequest}}, sm, nil, nil)
	assert.ErrorIs(t, svc.ChangePassword(context.Background(), "old", "newpass"), ErrWrongPassword)

	svc = NewService(&fakeBackend{changeErr: &backend.APIError{Status: http.StatusInternalServerError}}, sm, nil, nil)
	err := svc.ChangePassword(context.Background(), "old", "newpass")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrWrongPassword)
}

func TestSessionCredentialsRevoke(t *testing.T) {
	sm, sess := newTestSessions(t)
	ctx := shared.ContextWithSession(context.Background(), sess)
	require.NoError(t, sm.SavePrincipal(ctx, sess, &shared.Principal{ID: "u1", SisiID: "doc1", Token: "tok"}))

	creds := NewSessionCredentials(sm, nil, nil)
	assert.Equal(t, "tok", creds.Token(ctx))
	require.NoError(t, creds.Revoke(ctx))
	assert.Empty(t, creds.Token(ctx))
	assert.Nil(t, sess.Principal())
	assert.Empty(t, creds.Token(context.Background()))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "doc1",
		"exp": exp.Unix(),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	got, ok := TokenExpiry(signed)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)
	_, ok = TokenExpiry("")
	assert.False(t, ok)
}
