package profile

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
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/i18n"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/view"
)

type fakeStore struct {
	records map[string]backend.UserDetail
	created []backend.UserDetail
	updated map[string]backend.UserDetail
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]backend.UserDetail{}, updated: map[string]backend.UserDetail{}}
}

func (f *fakeStore) UserDetailBySisiID(_ context.Context, sisiID string) (*backend.UserDetail, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	d, ok := f.records[sisiID]
	if !ok {
		return nil, &backend.APIError{Status: http.StatusNotFound}
	}
	return &d, nil
}

func (f *fakeStore) CreateUserDetail(_ context.Context, d backend.UserDetail) (*backend.UserDetail, error) {
	f.created = append(f.created, d)
	return &d, nil
}

func (f *fakeStore) UpdateUserDetail(_ context.Context, id string, d backend.UserDetail) (*backend.UserDetail, error) {
	f.updated[id] = d
	return &d, nil
}

type fakePasswords struct {
	calls [][2]string
	err   error
}

func (f *fakePasswords) ChangePassword(_ context.Context, current, next string) error {
	f.calls = append(f.calls, [2]string{current, next})
	return f.err
}

type fixture struct {
	router    chi.Router
	store     *fakeStore
	passwords *fakePasswords
	sessions  *shared.SessionManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "sid", "secret", time.Hour, false)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	render := view.NewRenderer(engine, shared.NewCSRFManager("csrf"), nil)
	store, passwords := newFakeStore(), &fakePasswords{}
	handler := NewHandler(nil, NewService(store, passwords, nil), render, rbac.Guard{Render: render})
	r := chi.NewRouter()
	r.Use(i18n.Middleware(language.Mongolian))
	r.Route("/profile", handler.MountRoutes)
	return fixture{router: r, store: store, passwords: passwords, sessions: sessions}
}

func (f fixture) serve(t *testing.T, method, target string, form url.Values) (*httptest.ResponseRecorder, *shared.Session) {
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
	require.NoError(t, f.sessions.SavePrincipal(context.Background(), sess, &shared.Principal{ID: "u1", SisiID: "nurse1", Token: "tok", Roles: []string{shared.RoleNurse}}))
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(auth.ContextWithIdentity(ctx, auth.NewIdentity(sess)))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res, sess
}

func detailForm() url.Values {
	return url.Values{
		"firstName":      {"Сараа"},
		"lastName":       {"Бат"},
		"registerNumber": {"УБ01020304"},
		"phoneNumber":    {"88112233"},
		"university":     {"АШУҮИС"},
		"courseYear":     {"5"},
	}
}

func TestOverviewToleratesMissingRecord(t *testing.T) {
	svc := NewService(newFakeStore(), &fakePasswords{}, nil)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	out, err := svc.Overview(context.Background(), &shared.Principal{ID: "u1", SisiID: "nobody", Token: token})
	require.NoError(t, err)
	assert.Nil(t, out.Detail)
	assert.True(t, exp.Equal(out.TokenExpires))
}

func TestProfilePageShowsStoredDetails(t *testing.T) {
	f := newFixture(t)
	f.store.records["nurse1"] = backend.UserDetail{ID: "d1", SisiID: "nurse1", FirstName: "Сараа"}

	res, _ := f.serve(t, http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Сараа")
}

func TestSaveDetailsCreatesWhenMissing(t *testing.T) {
	f := newFixture(t)
	res, _ := f.serve(t, http.MethodPost, "/profile/details", detailForm())
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Len(t, f.store.created, 1)
	assert.Equal(t, "nurse1", f.store.created[0].SisiID)
	assert.Empty(t, f.store.updated)
}

func TestSaveDetailsUpdatesExisting(t *testing.T) {
	f := newFixture(t)
	f.store.records["nurse1"] = backend.UserDetail{ID: "d1", SisiID: "nurse1"}
	form := detailForm()
	form.Set("sisiId", "someone-else")

	res, _ := f.serve(t, http.MethodPost, "/profile/details", form)
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Contains(t, f.store.updated, "d1")
	assert.Equal(t, "nurse1", f.store.updated["d1"].SisiID)
	assert.Empty(t, f.store.created)
}

func TestChangePasswordValidation(t *testing.T) {
	f := newFixture(t)
	res, _ := f.serve(t, http.MethodPost, "/profile/password", url.Values{
		"currentPassword": {"old-secret"},
		"newPassword":     {"abc"},
		"confirmPassword": {"abc"},
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Нууц үг 6-с дээш тэмдэгт байх ёстой")
	assert.Empty(t, f.passwords.calls)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	f := newFixture(t)
	f.passwords.err = auth.ErrWrongPassword
	res, _ := f.serve(t, http.MethodPost, "/profile/password", url.Values{
		"currentPassword": {"bad-secret"},
		"newPassword":     {"new-secret"},
		"confirmPassword": {"new-secret"},
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Одоогийн нууц үг буруу байна.")
}

func TestChangePasswordSuccess(t *testing.T) {
	f := newFixture(t)
	res, sess := f.serve(t, http.MethodPost, "/profile/password", url.Values{
		"currentPassword": {"old-secret"},
		"newPassword":     {"new-secret"},
		"confirmPassword": {"new-secret"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, [][2]string{{"old-secret", "new-secret"}}, f.passwords.calls)
	assert.NotNil(t, sess.PopFlash())
}
