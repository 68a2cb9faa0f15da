package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/view"
)

// Handler manages role-permission link screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	render    *view.Renderer
	guard     rbac.Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, render *view.Renderer, guard rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, render: render, guard: guard, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.RoleAdmin))
		r.Get("/", h.listRoles)
		r.Get("/{role}", h.showRole)
		r.Post("/{role}/permissions", h.assign)
		r.Post("/{role}/permissions/{id}", h.update)
		r.Post("/{role}/permissions/{id}/delete", h.remove)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "pages/roles_list.html", "Roles", map[string]any{"Roles": h.service.ListRoles()})
}

func (h *Handler) showRole(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	roleView, err := h.service.Role(r.Context(), role)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownRole):
			http.NotFound(w, r)
		case h.render.SessionExpired(w, r, err):
		default:
			h.logger.Error("load role", slog.String("role", role), slog.Any("error", err))
			h.render.Render(w, r, http.StatusBadGateway, "pages/role_detail.html", "Roles", map[string]any{
				"Role":   RoleView{Name: role},
				"Errors": view.FormErrors{"general": h.render.Message(r, err, "Failed to load permissions.")},
			})
		}
		return
	}
	h.render.Render(w, r, http.StatusOK, "pages/role_detail.html", "Roles", map[string]any{"Role": roleView})
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	in, ok := h.parseLink(w, r)
	if !ok {
		return
	}
	if err := h.validator.Struct(in); err != nil {
		h.render.RedirectWithFlash(w, r, rolePath(role), "error", "Invalid value.")
		return
	}
	_, err := h.service.Assign(r.Context(), role, in)
	h.finish(w, r, role, err, "Role permission saved.")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	in, ok := h.parseLink(w, r)
	if !ok {
		return
	}
	if err := h.validator.Struct(in); err != nil {
		h.render.RedirectWithFlash(w, r, rolePath(role), "error", "Invalid value.")
		return
	}
	_, err := h.service.Update(r.Context(), role, chi.URLParam(r, "id"), in)
	h.finish(w, r, role, err, "Role permission saved.")
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	err := h.service.Remove(r.Context(), role, chi.URLParam(r, "id"))
	h.finish(w, r, role, err, "Role permission removed.")
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, role string, err error, success string) {
	switch {
	case err == nil:
		h.render.RedirectWithFlash(w, r, rolePath(role), "success", success)
	case errors.Is(err, ErrUnknownRole):
		http.NotFound(w, r)
	case h.render.SessionExpired(w, r, err):
	default:
		h.logger.Error("role link change", slog.String("role", role), slog.Any("error", err))
		h.render.RedirectWithFlash(w, r, rolePath(role), "error", "Failed to save role permission.")
	}
}

func (h *Handler) parseLink(w http.ResponseWriter, r *http.Request) (LinkInput, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return LinkInput{}, false
	}
	return LinkInput{
		PermissionID: strings.TrimSpace(r.PostFormValue("permissionId")),
		IsActive:     r.PostFormValue("isActive") != "",
	}, true
}

func rolePath(role string) string {
	return "/roles/" + url.PathEscape(role)
}
