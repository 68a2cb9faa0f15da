package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/message"

	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// NavItem is one entry of the navigation bar.
type NavItem struct {
	Label  string
	Href   string
	Active bool
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Principal   *shared.Principal
	Nav         []NavItem
	Lang        string
	Data        any

	printer *message.Printer
}

// T translates a catalog key for the page language.
func (d TemplateData) T(key string) string {
	if d.printer == nil {
		return key
	}
	return d.printer.Sprintf(key)
}

// With returns a copy of d carrying data, for partials that render a
// section of the page data.
func (d TemplateData) With(data any) TemplateData {
	d.Data = data
	return d
}

// HasRole reports whether the signed-in principal holds role.
func (d TemplateData) HasRole(role string) bool {
	return d.Principal.HasRole(role)
}

var roleLabels = map[string]string{
	shared.RoleAdmin:  "Admin",
	shared.RoleUser:   "User",
	shared.RoleDoctor: "Doctor",
	shared.RoleNurse:  "Nurse",
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": formatDate,
		"roleLabel": func(role string) string {
			if label, ok := roleLabels[role]; ok {
				return label
			}
			return strings.TrimPrefix(role, "ROLE_")
		},
		"contains": func(list []string, v string) bool {
			for _, item := range list {
				if item == v {
					return true
				}
			}
			return false
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData. Output is buffered so a
// failing template never leaves a half-written page behind.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
