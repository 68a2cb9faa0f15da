package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/shared"
)

type stubResolver struct {
	result rbac.Result
	err    error
}

func (s stubResolver) Effective(context.Context, *shared.Principal) (rbac.Result, error) {
	return s.result, s.err
}

func serve(t *testing.T, resolver stubResolver, path string, principal *shared.Principal) *httptest.ResponseRecorder {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "sid", "secret", time.Hour, false)
	r := chi.NewRouter()
	r.Route("/api", NewHandler(nil, resolver, rbac.Guard{}).MountRoutes)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	if principal != nil {
		require.NoError(t, sessions.SavePrincipal(context.Background(), sess, principal))
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(auth.ContextWithIdentity(ctx, auth.NewIdentity(sess)))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func TestSessionHidesToken(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	res := serve(t, stubResolver{}, "/api/session", &shared.Principal{ID: "u1", SisiID: "doc1", Token: token, Roles: []string{shared.RoleDoctor}})
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, res.Body.String(), token)

	var view SessionView
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &view))
	assert.Equal(t, "authenticated", view.State)
	assert.Equal(t, "doc1", view.SisiID)
	assert.Equal(t, []string{shared.RoleDoctor}, view.Roles)
	require.NotNil(t, view.TokenExpiresAt)
	assert.True(t, exp.Equal(*view.TokenExpiresAt))
}

func TestSessionRequiresSignIn(t *testing.T) {
	res := serve(t, stubResolver{}, "/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestEffectivePermissions(t *testing.T) {
	resolver := stubResolver{result: rbac.Result{
		Permissions: []backend.Permission{{ID: "p1", Name: "view_profile"}},
		Failed:      []string{shared.RoleNurse},
	}}
	res := serve(t, resolver, "/api/permissions/effective", &shared.Principal{ID: "u1", SisiID: "n1", Token: "tok", Roles: []string{shared.RoleUser, shared.RoleNurse}})
	require.Equal(t, http.StatusOK, res.Code)

	var result rbac.Result
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &result))
	require.Len(t, result.Permissions, 1)
	assert.Equal(t, "view_profile", result.Permissions[0].Name)
	assert.Equal(t, []string{shared.RoleNurse}, result.Failed)
}

func TestEffectivePermissionsUpstreamFailure(t *testing.T) {
	res := serve(t, stubResolver{err: backend.ErrUnauthorized}, "/api/permissions/effective", &shared.Principal{ID: "u1", SisiID: "n1", Token: "tok"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
}
