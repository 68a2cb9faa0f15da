package view

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medportal/medportal/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderWritesStatusAndNavigation(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	principal := &shared.Principal{ID: "u1", SisiID: "doc1", Token: "t", Roles: []string{shared.RoleDoctor}}
	data := TemplateData{
		Title:     "Access denied",
		Principal: principal,
		Nav:       buildNav(principal, "/files", func(s string, _ ...any) string { return s }),
		Flash:     &shared.FlashMessage{Kind: "info", Message: "hello"},
	}

	res := httptest.NewRecorder()
	require.NoError(t, engine.Render(res, http.StatusForbidden, "pages/unauthorized.html", data))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "text/html; charset=utf-8", res.Header().Get("Content-Type"))
	body := res.Body.String()
	assert.Contains(t, body, `href="/patients/new"`)
	assert.NotContains(t, body, `href="/users"`)
	assert.Contains(t, body, `<a href="/files" class="active">`)
	assert.Contains(t, body, "hello")
}

func TestRenderFailureWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	res := httptest.NewRecorder()
	assert.Error(t, engine.Render(res, http.StatusOK, "pages/missing.html", TemplateData{}))
	assert.Zero(t, res.Body.Len())
	assert.Empty(t, res.Header().Get("Content-Type"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", formatDate(time.Time{}))
	assert.Equal(t, "2024-03-05 09:07", formatDate(time.Date(2024, 3, 5, 9, 7, 0, 0, time.UTC)))
}

func TestWithReplacesData(t *testing.T) {
	base := TemplateData{Title: "x", Data: 1}
	next := base.With(2)
	assert.Equal(t, 2, next.Data)
	assert.Equal(t, "x", next.Title)
	assert.Equal(t, 1, base.Data)
}
