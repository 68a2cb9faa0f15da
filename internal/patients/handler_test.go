package patients

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
	"golang.org/x/text/language"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/i18n"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/view"
)

type fakeRegistrar struct {
	created []backend.UserDetail
	err     error
}

func (f *fakeRegistrar) CreateUserDetail(_ context.Context, detail backend.UserDetail) (*backend.UserDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, detail)
	detail.ID = "d1"
	return &detail, nil
}

type fixture struct {
	router   chi.Router
	api      *fakeRegistrar
	sessions *shared.SessionManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "sid", "secret", time.Hour, false)
	engine, err := view.NewEngine()
	require.NoError(t, err)
	render := view.NewRenderer(engine, shared.NewCSRFManager("csrf"), nil)
	api := &fakeRegistrar{}
	handler := NewHandler(nil, NewService(api, nil, nil), render, rbac.Guard{Render: render})
	r := chi.NewRouter()
	r.Use(i18n.Middleware(language.Mongolian))
	r.Route("/patients", handler.MountRoutes)
	return fixture{router: r, api: api, sessions: sessions}
}

func (f fixture) post(t *testing.T, roles []string, form url.Values) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, f.sessions.SavePrincipal(context.Background(), sess, &shared.Principal{ID: "d9", SisiID: "doc1", Token: "tok", Roles: roles}))
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(auth.ContextWithIdentity(ctx, auth.NewIdentity(sess)))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res, sess
}

func patientForm() url.Values {
	return url.Values{
		"sisiId":         {"pat01"},
		"firstName":      {"Бат"},
		"lastName":       {"Дорж"},
		"registerNumber": {"фб99112233"},
		"phoneNumber":    {"99112233"},
		"university":     {"АШУҮИС"},
		"courseYear":     {"2"},
	}
}

func TestRegisterPatient(t *testing.T) {
	f := newFixture(t)
	res, sess := f.post(t, []string{shared.RoleDoctor}, patientForm())
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Len(t, f.api.created, 1)
	assert.Equal(t, "ФБ99112233", f.api.created[0].RegisterNumber)
	assert.Equal(t, 2, f.api.created[0].CourseYear)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)
}

func TestRegisterPatientValidationStaysLocal(t *testing.T) {
	f := newFixture(t)
	form := patientForm()
	form.Set("phoneNumber", "1234")
	form.Set("courseYear", "9")

	res, _ := f.post(t, []string{shared.RoleAdmin}, form)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Утасны дугаар 8 оронтой байх ёстой")
	assert.Empty(t, f.api.created)
}

func TestRegisterPatientRequiresDoctorOrAdmin(t *testing.T) {
	f := newFixture(t)
	res, _ := f.post(t, []string{shared.RoleNurse}, patientForm())
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, rbac.UnauthorizedPath, res.Header().Get("Location"))
	assert.Empty(t, f.api.created)
}

func TestRegisterPatientShowsUpstreamMessage(t *testing.T) {
	f := newFixture(t)
	f.api.err = &backend.APIError{Status: http.StatusBadRequest, Message: "sisiId taken"}
	res, _ := f.post(t, []string{shared.RoleDoctor}, patientForm())
	assert.Equal(t, http.StatusBadGateway, res.Code)
	assert.Contains(t, res.Body.String(), "sisiId taken")
}

func TestRegisterPatientExpiredSession(t *testing.T) {
	f := newFixture(t)
	f.api.err = backend.ErrUnauthorized
	res, _ := f.post(t, []string{shared.RoleDoctor}, patientForm())
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, view.LoginPath, res.Header().Get("Location"))
}
