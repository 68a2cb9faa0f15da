package patients

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/view"
)

// Handler serves the patient registration form.
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
	return &Handler{logger: logger, service: service, render: render, guard: guard, validator: NewValidator()}
}

// MountRoutes registers patient routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(shared.RoleAdmin, shared.RoleDoctor))
		r.Get("/new", h.showForm)
		r.Post("/", h.register)
	})
}

type formPageData struct {
	Form   DetailInput
	Errors view.FormErrors
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "pages/patient_form.html", "Register patient", formPageData{Form: DetailInput{CourseYear: 1}})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := ParseForm(r)
	if err := h.validator.Struct(in); err != nil {
		h.render.Render(w, r, http.StatusBadRequest, "pages/patient_form.html", "Register patient", formPageData{
			Form:   in,
			Errors: view.ValidationErrors(r, err, FieldMessages),
		})
		return
	}
	if _, err := h.service.Register(r.Context(), in); err != nil {
		if h.render.SessionExpired(w, r, err) {
			return
		}
		h.logger.Error("register patient", slog.Any("error", err))
		h.render.Render(w, r, http.StatusBadGateway, "pages/patient_form.html", "Register patient", formPageData{
			Form:   in,
			Errors: view.FormErrors{"general": h.render.Message(r, err, "Failed to register patient.")},
		})
		return
	}
	h.render.RedirectWithFlash(w, r, "/patients/new", "success", "Patient registered.")
}

// ParseForm reads a personal record form from a parsed request.
func ParseForm(r *http.Request) DetailInput {
	return DetailInput{
		SisiID:         strings.TrimSpace(r.PostFormValue("sisiId")),
		FirstName:      strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:       strings.TrimSpace(r.PostFormValue("lastName")),
		RegisterNumber: strings.ToUpper(strings.TrimSpace(r.PostFormValue("registerNumber"))),
		PhoneNumber:    strings.TrimSpace(r.PostFormValue("phoneNumber")),
		University:     strings.TrimSpace(r.PostFormValue("university")),
		CourseYear:     ParseCourseYear(r.PostFormValue("courseYear")),
	}
}
