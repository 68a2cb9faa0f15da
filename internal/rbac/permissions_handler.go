package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/view"
)

// PermissionsHandler manages the permission catalog screens.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	render    *view.Renderer
	guard     Guard
	validator *validator.Validate
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, render *view.Renderer, guard Guard) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger, service: service, render: render, guard: guard, validator: validator.New()}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.RoleAdmin))
		r.Get("/", h.listPermissions)
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createPermission)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.updatePermission)
		r.Post("/{id}/delete", h.deletePermission)
	})
}

var permissionMessages = map[string]string{
	"Name.required": "Please enter a permission name.",
}

type permissionFormData struct {
	ID     string
	Form   PermissionInput
	Errors view.FormErrors
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		if h.render.SessionExpired(w, r, err) {
			return
		}
		h.logger.Error("list permissions", slog.Any("error", err))
		h.render.Render(w, r, http.StatusBadGateway, "pages/permissions_list.html", "Permissions", map[string]any{
			"Errors": view.FormErrors{"general": h.render.Message(r, err, "Failed to load permissions.")},
		})
		return
	}
	h.render.Render(w, r, http.StatusOK, "pages/permissions_list.html", "Permissions", map[string]any{"Permissions": perms})
}

func (h *PermissionsHandler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "pages/permissions_form.html", "New permission", permissionFormData{Form: PermissionInput{IsActive: true}})
}

func (h *PermissionsHandler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	perm, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to load permissions.")
		return
	}
	form := PermissionInput{Name: perm.Name, Description: perm.Description, IsActive: perm.IsActive}
	h.render.Render(w, r, http.StatusOK, "pages/permissions_form.html", "Edit", permissionFormData{ID: perm.ID, Form: form})
}

func (h *PermissionsHandler) createPermission(w http.ResponseWriter, r *http.Request) {
	form, errs, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	if len(errs) > 0 {
		h.render.Render(w, r, http.StatusBadRequest, "pages/permissions_form.html", "New permission", permissionFormData{Form: form, Errors: errs})
		return
	}
	if _, err := h.service.CreatePermission(r.Context(), form); err != nil {
		if h.render.SessionExpired(w, r, err) {
			return
		}
		h.logger.Error("create permission", slog.Any("error", err))
		errs["general"] = h.render.Message(r, err, "Failed to save permission.")
		h.render.Render(w, r, http.StatusBadRequest, "pages/permissions_form.html", "New permission", permissionFormData{Form: form, Errors: errs})
		return
	}
	h.render.RedirectWithFlash(w, r, "/permissions", "success", "Permission created.")
}

func (h *PermissionsHandler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, errs, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	if len(errs) > 0 {
		h.render.Render(w, r, http.StatusBadRequest, "pages/permissions_form.html", "Edit", permissionFormData{ID: id, Form: form, Errors: errs})
		return
	}
	if _, err := h.service.UpdatePermission(r.Context(), id, form); err != nil {
		switch {
		case h.render.SessionExpired(w, r, err):
		case errors.Is(err, ErrNotFound):
			http.NotFound(w, r)
		default:
			h.logger.Error("update permission", slog.String("id", id), slog.Any("error", err))
			errs["general"] = h.render.Message(r, err, "Failed to save permission.")
			h.render.Render(w, r, http.StatusBadRequest, "pages/permissions_form.html", "Edit", permissionFormData{ID: id, Form: form, Errors: errs})
		}
		return
	}
	h.render.RedirectWithFlash(w, r, "/permissions", "success", "Permission updated.")
}

func (h *PermissionsHandler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		if h.render.SessionExpired(w, r, err) {
			return
		}
		h.logger.Error("delete permission", slog.String("id", id), slog.Any("error", err))
		h.render.RedirectWithFlash(w, r, "/permissions", "error", "Failed to delete permission.")
		return
	}
	h.render.RedirectWithFlash(w, r, "/permissions", "success", "Permission deleted.")
}

func (h *PermissionsHandler) parseForm(w http.ResponseWriter, r *http.Request) (PermissionInput, view.FormErrors, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return PermissionInput{}, nil, false
	}
	form := PermissionInput{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		IsActive:    r.PostFormValue("isActive") != "",
	}
	return form, view.ValidationErrors(r, h.validator.Struct(form), permissionMessages), true
}

func (h *PermissionsHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case h.render.SessionExpired(w, r, err):
	case errors.Is(err, ErrNotFound), errors.Is(err, backend.ErrNotFound):
		http.NotFound(w, r)
	default:
		h.logger.Error("permission request", slog.Any("error", err))
		h.render.RedirectWithFlash(w, r, "/permissions", "error", fallback)
	}
}
