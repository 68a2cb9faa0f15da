package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/view"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.RoleAdmin))
		r.Get("/", h.listUsers)
		r.Post("/{id}/roles", h.updateRoles)
		r.Post("/{id}/roles/grant", h.changeRole(true))
		r.Post("/{id}/roles/revoke", h.changeRole(false))
		r.Post("/{id}/delete", h.deleteUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		if h.render.SessionExpired(w, r, err) {
			return
		}
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render.Render(w, r, http.StatusBadGateway, "pages/users_list.html", "Users", map[string]any{
			"Errors": view.FormErrors{"general": h.render.Message(r, err, "Failed to load users.")},
			"Roles":  shared.KnownRoles(),
		})
		return
	}
	h.render.Render(w, r, http.StatusOK, "pages/users_list.html", "Users", map[string]any{
		"Users": users,
		"Roles": shared.KnownRoles(),
	})
}

func (h *Handler) updateRoles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := RolesInput{
		SisiID: strings.TrimSpace(r.PostFormValue("sisiId")),
		Roles:  r.PostForm["roles"],
	}
	if err := h.validator.Struct(in); err != nil {
		h.render.RedirectWithFlash(w, r, "/users", "error", "Invalid value.")
		return
	}
	err := h.service.UpdateRoles(r.Context(), chi.URLParam(r, "id"), in)
	switch {
	case err == nil:
		h.render.RedirectWithFlash(w, r, "/users", "success", "User roles updated.")
	case errors.Is(err, ErrUnknownRole):
		h.render.RedirectWithFlash(w, r, "/users", "error", "Unknown role.")
	case h.render.SessionExpired(w, r, err):
	default:
		h.logger.Error("update user roles", slog.Any("error", err))
		h.render.RedirectWithFlash(w, r, "/users", "error", "Failed to update user roles.")
	}
}

func (h *Handler) changeRole(grant bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		in := RoleChangeInput{
			SisiID: strings.TrimSpace(r.PostFormValue("sisiId")),
			Role:   strings.TrimSpace(r.PostFormValue("role")),
		}
		if err := h.validator.Struct(in); err != nil {
			h.render.RedirectWithFlash(w, r, "/users", "error", "Invalid value.")
			return
		}
		id := chi.URLParam(r, "id")
		var err error
		success := "Role granted."
		if grant {
			err = h.service.GrantRole(r.Context(), id, in)
		} else {
			err = h.service.RevokeRole(r.Context(), id, in)
			success = "Role revoked."
		}
		switch {
		case err == nil:
			h.render.RedirectWithFlash(w, r, "/users", "success", success)
		case errors.Is(err, ErrUnknownRole):
			h.render.RedirectWithFlash(w, r, "/users", "error", "Unknown role.")
		case h.render.SessionExpired(w, r, err):
		default:
			h.logger.Error("change user role", slog.Bool("grant", grant), slog.Any("error", err))
			h.render.RedirectWithFlash(w, r, "/users", "error", "Failed to update user roles.")
		}
	}
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		h.render.RedirectWithFlash(w, r, "/users", "success", "User deleted.")
	case h.render.SessionExpired(w, r, err):
	default:
		h.logger.Error("delete user", slog.Any("error", err))
		h.render.RedirectWithFlash(w, r, "/users", "error", "Failed to delete user.")
	}
}
