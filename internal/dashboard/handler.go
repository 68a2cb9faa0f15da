// Package dashboard serves the landing pages of the portal.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/i18n"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/view"
)

// Resolver computes the effective permissions of a principal.
type Resolver interface {
	Effective(ctx context.Context, principal *shared.Principal) (rbac.Result, error)
}

// Handler serves /, /dashboard and /unauthorized.
type Handler struct {
	logger   *slog.Logger
	resolver Resolver
	render   *view.Renderer
	guard    rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, resolver Resolver, render *view.Renderer, guard rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, resolver: resolver, render: render, guard: guard}
}

// MountRoutes registers the landing routes on the root router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.root)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require())
		r.Get(auth.DashboardPath, h.dashboard)
		r.Get(rbac.UnauthorizedPath, h.unauthorized)
	})
}

type pageData struct {
	Result  rbac.Result
	Warning string
	Error   string
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	target := view.LoginPath
	if auth.IdentityFromContext(r.Context()).IsAuthenticated() {
		target = auth.DashboardPath
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.resolver.Effective(ctx, auth.IdentityFromContext(ctx).Principal())
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			// the visitor left; nothing to render
		case h.render.SessionExpired(w, r, err):
		default:
			h.logger.Error("aggregate permissions", slog.Any("error", err))
			h.render.Render(w, r, http.StatusBadGateway, "pages/dashboard.html", "Dashboard", pageData{
				Error: h.render.Message(r, err, "Failed to load permissions."),
			})
		}
		return
	}
	data := pageData{Result: result}
	if result.Partial() {
		h.logger.Warn("partial permission set", slog.Any("failed_roles", result.Failed))
		data.Warning = i18n.T(ctx, "Some role permissions could not be loaded.")
	}
	h.render.Render(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", data)
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusForbidden, "pages/unauthorized.html", "Access denied", nil)
}
