package profile

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/i18n"
	"github.com/medportal/medportal/internal/patients"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/view"
)

const profilePath = "/profile"

// Handler serves the profile page.
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
	return &Handler{logger: logger, service: service, render: render, guard: guard, validator: patients.NewValidator()}
}

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require())
		r.Get("/", h.show)
		r.Post("/password", h.changePassword)
		r.Post("/details", h.saveDetails)
	})
}

type passwordForm struct {
	CurrentPassword string `validate:"required"`
	NewPassword     string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=NewPassword"`
}

var passwordMessages = map[string]string{
	"CurrentPassword.required": "Please enter your current password.",
	"NewPassword.required":     "Please enter your password.",
	"NewPassword.min":          "Password must be at least 6 characters.",
	"ConfirmPassword.required": "Please confirm your password.",
	"ConfirmPassword.eqfield":  "Passwords do not match.",
}

type detailSection struct {
	Form   patients.DetailInput
	Errors view.FormErrors
}

type pageData struct {
	Overview       Overview
	Detail         detailSection
	PasswordErrors view.FormErrors
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, nil, nil, nil)
}

// renderPage loads the overview and renders the page. A non-nil form keeps the
// submitted detail values instead of the stored ones.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, form *patients.DetailInput, detailErrs, passwordErrs view.FormErrors) {
	principal := auth.IdentityFromContext(r.Context()).Principal()
	overview, err := h.service.Overview(r.Context(), principal)
	if err != nil {
		if h.render.SessionExpired(w, r, err) {
			return
		}
		h.logger.Error("load profile", slog.Any("error", err))
		if detailErrs == nil {
			detailErrs = view.FormErrors{}
		}
		if _, ok := detailErrs["general"]; !ok {
			detailErrs["general"] = h.render.Message(r, err, "Failed to load user details.")
		}
	}
	data := pageData{Overview: overview, Detail: detailSection{Errors: detailErrs}, PasswordErrors: passwordErrs}
	if form != nil {
		data.Detail.Form = *form
	} else {
		data.Detail.Form = patients.InputFromRecord(overview.Detail)
	}
	h.render.Render(w, r, status, "pages/profile.html", "Profile", data)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := passwordForm{
		CurrentPassword: r.PostFormValue("currentPassword"),
		NewPassword:     r.PostFormValue("newPassword"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.renderPage(w, r, http.StatusBadRequest, nil, nil, view.ValidationErrors(r, err, passwordMessages))
		return
	}
	err := h.service.ChangePassword(r.Context(), form.CurrentPassword, form.NewPassword)
	switch {
	case err == nil:
		h.render.RedirectWithFlash(w, r, profilePath, "success", "Password changed.")
	case errors.Is(err, auth.ErrWrongPassword):
		h.renderPage(w, r, http.StatusBadRequest, nil, nil, view.FormErrors{
			"CurrentPassword": i18n.T(r.Context(), "Current password is incorrect."),
		})
	case h.render.SessionExpired(w, r, err):
	default:
		h.logger.Error("change password", slog.Any("error", err))
		h.render.RedirectWithFlash(w, r, profilePath, "error", "Failed to change password.")
	}
}

func (h *Handler) saveDetails(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	principal := auth.IdentityFromContext(r.Context()).Principal()
	in := patients.ParseForm(r)
	in.SisiID = principal.SisiID
	if err := h.validator.Struct(in); err != nil {
		h.renderPage(w, r, http.StatusBadRequest, &in, view.ValidationErrors(r, err, patients.FieldMessages), nil)
		return
	}
	_, err := h.service.SaveDetail(r.Context(), principal, in)
	switch {
	case err == nil:
		h.render.RedirectWithFlash(w, r, profilePath, "success", "Details saved.")
	case h.render.SessionExpired(w, r, err):
	default:
		h.logger.Error("save profile details", slog.Any("error", err))
		h.render.RedirectWithFlash(w, r, profilePath, "error", "Failed to save details.")
	}
}
