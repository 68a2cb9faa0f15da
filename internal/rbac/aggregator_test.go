package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/shared"
)

type fakeDirectory struct {
	mu        sync.Mutex
	catalog   []backend.Permission
	links     map[string][]backend.RolePermission
	failRoles map[string]error
	calls     map[string]int
	listCalls int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		links:     map[string][]backend.RolePermission{},
		failRoles: map[string]error{},
		calls:     map[string]int{},
	}
}

func (f *fakeDirectory) ListPermissions(context.Context) ([]backend.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.catalog, nil
}

func (f *fakeDirectory) GetPermission(_ context.Context, id string) (*backend.Permission, error) {
	for _, p := range f.catalog {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &backend.APIError{Status: 404}
}

func (f *fakeDirectory) CreatePermission(_ context.Context, req backend.PermissionRequest) (*backend.Permission, error) {
	p := backend.Permission{ID: "new", Name: req.Name, Description: req.Description, IsActive: req.IsActive != nil && *req.IsActive}
	f.catalog = append(f.catalog, p)
	return &p, nil
}

func (f *fakeDirectory) UpdatePermission(_ context.Context, id string, req backend.PermissionRequest) (*backend.Permission, error) {
	for i, p := range f.catalog {
		if p.ID == id {
			f.catalog[i].Name = req.Name
			return &f.catalog[i], nil
		}
	}
	return nil, &backend.APIError{Status: 404}
}

func (f *fakeDirectory) DeletePermission(_ context.Context, id string) error {
	for i, p := range f.catalog {
		if p.ID == id {
			f.catalog = append(f.catalog[:i], f.catalog[i+1:]...)
			return nil
		}
	}
	return &backend.APIError{Status: 404}
}

func (f *fakeDirectory) ActivePermissionsByRole(ctx context.Context, role string) ([]backend.RolePermission, error) {
	f.mu.Lock()
	f.calls[role]++
	err := f.failRoles[role]
	links := f.links[role]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return links, nil
}

func (f *fakeDirectory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := f.listCalls
	for _, n := range f.calls {
		total += n
	}
	return total
}

func link(role, permID, name string) backend.RolePermission {
	return backend.RolePermission{
		ID:         role + "-" + permID,
		Role:       role,
		Permission: &backend.Permission{ID: permID, Name: name, IsActive: true},
		IsActive:   true,
	}
}

func permissionIDs(perms []backend.Permission) []string {
	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestEffectiveDeduplicatesAcrossRoles(t *testing.T) {
	dir := newFakeDirectory()
	dir.links[shared.RoleUser] = []backend.RolePermission{link(shared.RoleUser, "p1", "view_profile"), link(shared.RoleUser, "p2", "upload_files")}
	dir.links[shared.RoleNurse] = []backend.RolePermission{link(shared.RoleNurse, "p1", "view_profile"), link(shared.RoleNurse, "p3", "view_patients")}

	agg := NewAggregator(dir)
	result, err := agg.Effective(context.Background(), &shared.Principal{ID: "u2", Token: "t", Roles: []string{shared.RoleUser, shared.RoleNurse}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, permissionIDs(result.Permissions))
	assert.False(t, result.Full)
	assert.False(t, result.Partial())
}

func TestEffectiveAdminGetsFullCatalog(t *testing.T) {
	dir := newFakeDirectory()
	dir.catalog = []backend.Permission{{ID: "p1"}, {ID: "p2", IsActive: false}, {ID: "p3"}}

	result, err := NewAggregator(dir).Effective(context.Background(), &shared.Principal{ID: "a", Token: "t", Roles: []string{shared.RoleAdmin, shared.RoleUser}})
	require.NoError(t, err)
	assert.True(t, result.Full)
	assert.Equal(t, []string{"p1", "p2", "p3"}, permissionIDs(result.Permissions))
	assert.Zero(t, dir.calls[shared.RoleUser])
}

func TestEffectiveWithoutRolesMakesNoCalls(t *testing.T) {
	dir := newFakeDirectory()
	result, err := NewAggregator(dir).Effective(context.Background(), &shared.Principal{ID: "u", Token: "t"})
	require.NoError(t, err)
	assert.Empty(t, result.Permissions)
	assert.Zero(t, dir.callCount())

	result, err = NewAggregator(dir).Effective(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Permissions)
	assert.Zero(t, dir.callCount())
}

func TestEffectiveSkipsLinksWithoutPermission(t *testing.T) {
	dir := newFakeDirectory()
	dir.links[shared.RoleDoctor] = []backend.RolePermission{
		{ID: "dangling", Role: shared.RoleDoctor},
		link(shared.RoleDoctor, "p4", "register_patient"),
	}
	result, err := NewAggregator(dir).Effective(context.Background(), &shared.Principal{ID: "u1", Token: "t", Roles: []string{shared.RoleDoctor}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p4"}, permissionIDs(result.Permissions))
}

func TestEffectiveKeepsOtherRolesWhenOneFails(t *testing.T) {
	dir := newFakeDirectory()
	dir.links[shared.RoleUser] = []backend.RolePermission{link(shared.RoleUser, "p1", "view_profile")}
	dir.failRoles[shared.RoleNurse] = &backend.APIError{Status: 500, Message: "boom"}
	dir.links[shared.RoleDoctor] = []backend.RolePermission{link(shared.RoleDoctor, "p4", "register_patient")}

	partials := 0
	agg := NewAggregator(dir, WithPartialHook(func() { partials++ }))
	result, err := agg.Effective(context.Background(), &shared.Principal{ID: "u", Token: "t", Roles: []string{shared.RoleUser, shared.RoleNurse, shared.RoleDoctor}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p4"}, permissionIDs(result.Permissions))
	assert.Equal(t, []string{shared.RoleNurse}, result.Failed)
	assert.True(t, result.Partial())
	assert.Equal(t, 1, partials)
}

func TestEffectiveAbortsOnUnauthorized(t *testing.T) {
	dir := newFakeDirectory()
	dir.links[shared.RoleUser] = []backend.RolePermission{link(shared.RoleUser, "p1", "view_profile")}
	dir.failRoles[shared.RoleNurse] = backend.ErrUnauthorized

	_, err := NewAggregator(dir).Effective(context.Background(), &shared.Principal{ID: "u", Token: "t", Roles: []string{shared.RoleUser, shared.RoleNurse}})
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
}

func TestEffectiveAbortsWhenCancelled(t *testing.T) {
	dir := newFakeDirectory()
	dir.links[shared.RoleUser] = []backend.RolePermission{link(shared.RoleUser, "p1", "view_profile")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(dir).Effective(ctx, &shared.Principal{ID: "u", Token: "t", Roles: []string{shared.RoleUser}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEffectiveRoleCache(t *testing.T) {
	dir := newFakeDirectory()
	dir.links[shared.RoleUser] = []backend.RolePermission{link(shared.RoleUser, "p1", "view_profile")}
	agg := NewAggregator(dir, WithRoleCache(8, time.Minute))
	principal := &shared.Principal{ID: "u", Token: "t", Roles: []string{shared.RoleUser}}

	_, err := agg.Effective(context.Background(), principal)
	require.NoError(t, err)
	_, err = agg.Effective(context.Background(), principal)
	require.NoError(t, err)
	assert.Equal(t, 1, dir.calls[shared.RoleUser])

	dir.links[shared.RoleUser] = append(dir.links[shared.RoleUser], link(shared.RoleUser, "p2", "upload_files"))
	agg.Invalidate(shared.RoleUser)
	result, err := agg.Effective(context.Background(), principal)
	require.NoError(t, err)
	assert.Equal(t, 2, dir.calls[shared.RoleUser])
	assert.Equal(t, []string{"p1", "p2"}, permissionIDs(result.Permissions))
}

func TestEffectiveDoesNotCacheFailures(t *testing.T) {
	dir := newFakeDirectory()
	dir.failRoles[shared.RoleNurse] = errors.New("connection reset")
	agg := NewAggregator(dir, WithRoleCache(8, time.Minute))
	principal := &shared.Principal{ID: "u", Token: "t", Roles: []string{shared.RoleNurse}}

	result, err := agg.Effective(context.Background(), principal)
	require.NoError(t, err)
	assert.Equal(t, []string{shared.RoleNurse}, result.Failed)

	delete(dir.failRoles, shared.RoleNurse)
	dir.links[shared.RoleNurse] = []backend.RolePermission{link(shared.RoleNurse, "p3", "view_patients")}
	result, err = agg.Effective(context.Background(), principal)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, permissionIDs(result.Permissions))
	assert.Empty(t, result.Failed)
}

type staticToken struct{}

func (staticToken) Token(context.Context) string { return "tok" }
func (staticToken) Revoke(context.Context) error { return nil }

func TestEffectiveKeepsOtherRolesWhenOneTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authorization/role-permissions/role/ROLE_NURSE/active":
			select {
			case <-release:
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		case "/authorization/role-permissions/role/ROLE_USER/active":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"l1","role":"ROLE_USER","isActive":true,"permission":{"id":"p1","name":"view_profile","isActive":true}}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	defer close(release)

	client := backend.NewClient(srv.URL, 100*time.Millisecond, staticToken{})
	result, err := NewAggregator(client).Effective(context.Background(), &shared.Principal{ID: "u", Token: "tok", Roles: []string{shared.RoleUser, shared.RoleNurse}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, permissionIDs(result.Permissions))
	assert.Equal(t, []string{shared.RoleNurse}, result.Failed)
}

func TestEffectiveWithFanOutOfOne(t *testing.T) {
	dir := newFakeDirectory()
	dir.links[shared.RoleUser] = []backend.RolePermission{link(shared.RoleUser, "p1", "view_profile")}
	dir.links[shared.RoleNurse] = []backend.RolePermission{link(shared.RoleNurse, "p3", "view_patients")}

	result, err := NewAggregator(dir, WithFanOut(1)).Effective(context.Background(), &shared.Principal{ID: "u", Token: "t", Roles: []string{shared.RoleUser, shared.RoleNurse}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, permissionIDs(result.Permissions))
}
