package view

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/i18n"
	"github.com/medportal/medportal/internal/shared"
)

// LoginPath is where anonymous visitors are sent.
const LoginPath = "/auth/login"

type navEntry struct {
	label string
	href  string
	roles []string
}

// Entries without roles are shown to every signed-in principal.
var navigation = []navEntry{
	{label: "Dashboard", href: "/dashboard"},
	{label: "Users", href: "/users", roles: []string{shared.RoleAdmin}},
	{label: "Permissions", href: "/permissions", roles: []string{shared.RoleAdmin}},
	{label: "Roles", href: "/roles", roles: []string{shared.RoleAdmin}},
	{label: "Register patient", href: "/patients/new", roles: []string{shared.RoleAdmin, shared.RoleDoctor}},
	{label: "Examination files", href: "/files"},
	{label: "Profile", href: "/profile"},
}

// Renderer fills the per-request template values and writes pages.
type Renderer struct {
	engine *Engine
	csrf   *shared.CSRFManager
	logger *slog.Logger
}

// NewRenderer constructs a Renderer.
func NewRenderer(engine *Engine, csrf *shared.CSRFManager, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{engine: engine, csrf: csrf, logger: logger}
}

// Render writes the page name with status.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	var csrfToken string
	if sess != nil {
		token, err := rd.csrf.EnsureToken(ctx, sess)
		if err != nil {
			rd.logger.Warn("ensure csrf token", slog.Any("error", err))
		}
		csrfToken = token
	}
	printer := i18n.Printer(ctx)
	principal := sess.Principal()
	viewData := TemplateData{
		Title:       printer.Sprintf(title),
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		Principal:   principal,
		Nav:         buildNav(principal, r.URL.Path, func(key string, args ...any) string { return printer.Sprintf(key, args...) }),
		Lang:        i18n.Lang(ctx),
		Data:        data,
		printer:     printer,
	}
	if err := rd.engine.Render(w, status, name, viewData); err != nil {
		rd.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// RedirectWithFlash queues a translated flash and redirects with 303.
func (rd *Renderer) RedirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: i18n.T(r.Context(), message)})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// SessionExpired handles an upstream rejection of the session token. The
// gateway client has already cleared the session when err is
// backend.ErrUnauthorized, so the visitor is sent to the login page.
func (rd *Renderer) SessionExpired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	rd.RedirectWithFlash(w, r, LoginPath, "warning", "Your session has expired. Please sign in again.")
	return true
}

// Message returns a translated, user-safe message for err, preferring the
// gateway's own text.
func (rd *Renderer) Message(r *http.Request, err error, fallback string) string {
	if msg := backend.MessageOf(err); msg != "" {
		return msg
	}
	return i18n.T(r.Context(), fallback)
}

func buildNav(principal *shared.Principal, current string, translate func(string, ...any) string) []NavItem {
	if principal == nil {
		return nil
	}
	items := make([]NavItem, 0, len(navigation))
	for _, entry := range navigation {
		if len(entry.roles) > 0 && !principal.HasAnyRole(entry.roles...) {
			continue
		}
		items = append(items, NavItem{
			Label:  translate(entry.label),
			Href:   entry.href,
			Active: current == entry.href || strings.HasPrefix(current, entry.href+"/"),
		})
	}
	return items
}
