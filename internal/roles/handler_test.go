package roles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/view"
)

type fakeRepo struct {
	catalog  []backend.Permission
	links    map[string][]backend.RolePermission
	assigned []backend.RolePermissionRequest
	updated  map[string]backend.RolePermissionRequest
	deleted  []string
	err      error
}

func (f *fakeRepo) ListPermissions(context.Context) ([]backend.Permission, error) {
	return f.catalog, f.err
}

func (f *fakeRepo) PermissionsByRole(_ context.Context, role string) ([]backend.RolePermission, error) {
	return f.links[role], f.err
}

func (f *fakeRepo) AssignPermissionToRole(_ context.Context, req backend.RolePermissionRequest) (*backend.RolePermission, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.assigned = append(f.assigned, req)
	return &backend.RolePermission{ID: "l-new", Role: req.Role}, nil
}

func (f *fakeRepo) UpdateRolePermission(_ context.Context, id string, req backend.RolePermissionRequest) (*backend.RolePermission, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.updated == nil {
		f.updated = map[string]backend.RolePermissionRequest{}
	}
	f.updated[id] = req
	return &backend.RolePermission{ID: id, Role: req.Role}, nil
}

func (f *fakeRepo) DeleteRolePermission(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type recordingInvalidator struct {
	roles []string
}

func (r *recordingInvalidator) Invalidate(roles ...string) {
	r.roles = append(r.roles, roles...)
}

type fixture struct {
	router   chi.Router
	repo     *fakeRepo
	cache    *recordingInvalidator
	sessions *shared.SessionManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "sid", "secret", time.Hour, false)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	render := view.NewRenderer(engine, shared.NewCSRFManager("csrf"), nil)

	repo := &fakeRepo{links: map[string][]backend.RolePermission{}}
	cache := &recordingInvalidator{}
	handler := NewHandler(nil, NewService(repo, cache, nil, nil), render, rbac.Guard{Render: render})
	r := chi.NewRouter()
	r.Route("/roles", handler.MountRoutes)
	return fixture{router: r, repo: repo, cache: cache, sessions: sessions}
}

func (f fixture) serve(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, f.sessions.SavePrincipal(context.Background(), sess, &shared.Principal{ID: "a1", SisiID: "admin", Token: "tok", Roles: []string{shared.RoleAdmin}}))
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(auth.ContextWithIdentity(ctx, auth.NewIdentity(sess)))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func TestShowRoleListsAvailablePermissions(t *testing.T) {
	f := newFixture(t)
	f.repo.catalog = []backend.Permission{{ID: "p1", Name: "view_profile"}, {ID: "p2", Name: "upload_files"}}
	f.repo.links[shared.RoleNurse] = []backend.RolePermission{{ID: "l1", Role: shared.RoleNurse, Permission: &backend.Permission{ID: "p1", Name: "view_profile"}, IsActive: true}}

	res := f.serve(t, http.MethodGet, "/roles/ROLE_NURSE", nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "view_profile")
	assert.Contains(t, body, `<option value="p2">`)
	assert.NotContains(t, body, `<option value="p1">`)
}

func TestUnknownRoleIsNotFound(t *testing.T) {
	f := newFixture(t)
	res := f.serve(t, http.MethodGet, "/roles/ROLE_JANITOR", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestAssignInvalidatesRoleCache(t *testing.T) {
	f := newFixture(t)
	res := f.serve(t, http.MethodPost, "/roles/ROLE_USER/permissions", url.Values{"permissionId": {"p2"}, "isActive": {"on"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/roles/ROLE_USER", res.Header().Get("Location"))
	require.Len(t, f.repo.assigned, 1)
	assert.Equal(t, shared.RoleUser, f.repo.assigned[0].Role)
	assert.True(t, *f.repo.assigned[0].IsActive)
	assert.Equal(t, []string{shared.RoleUser}, f.cache.roles)
}

func TestAssignWithoutPermissionIsRejected(t *testing.T) {
	f := newFixture(t)
	res := f.serve(t, http.MethodPost, "/roles/ROLE_USER/permissions", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, f.repo.assigned)
	assert.Empty(t, f.cache.roles)
}

func TestUpdateAndRemoveLink(t *testing.T) {
	f := newFixture(t)

	res := f.serve(t, http.MethodPost, "/roles/ROLE_DOCTOR/permissions/l9", url.Values{"permissionId": {"p4"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Contains(t, f.repo.updated, "l9")
	assert.False(t, *f.repo.updated["l9"].IsActive)

	res = f.serve(t, http.MethodPost, "/roles/ROLE_DOCTOR/permissions/l9/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, []string{"l9"}, f.repo.deleted)
	assert.Equal(t, []string{shared.RoleDoctor, shared.RoleDoctor}, f.cache.roles)
}

func TestUpstreamRejectionSendsToLogin(t *testing.T) {
	f := newFixture(t)
	f.repo.err = backend.ErrUnauthorized

	res := f.serve(t, http.MethodPost, "/roles/ROLE_USER/permissions/l1/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, view.LoginPath, res.Header().Get("Location"))
	assert.Empty(t, f.cache.roles)
}
