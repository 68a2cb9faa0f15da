package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medportal/medportal/internal/i18n"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/view"
)

// DashboardPath is where signed-in visitors land.
const DashboardPath = "/dashboard"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	render    *view.Renderer
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, render *view.Renderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		render:    render,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	SisiID   string `validate:"required"`
	Password string `validate:"required,min=6"`
}

type registerForm struct {
	SisiID          string `validate:"required"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

type formPageData struct {
	Form   any
	Errors view.FormErrors
}

var fieldMessages = map[string]string{
	"SisiID.required":          "Please enter your login name.",
	"Password.required":        "Please enter your password.",
	"Password.min":             "Password must be at least 6 characters.",
	"ConfirmPassword.required": "Please confirm your password.",
	"ConfirmPassword.eqfield":  "Passwords do not match.",
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	h.render.Render(w, r, http.StatusOK, "pages/login.html", "Sign in", formPageData{Form: loginForm{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		SisiID:   strings.TrimSpace(r.PostFormValue("sisiId")),
		Password: r.PostFormValue("password"),
	}
	errs := h.validate(r, form)
	if len(errs) > 0 {
		h.render.Render(w, r, http.StatusBadRequest, "pages/login.html", "Sign in", formPageData{Form: form, Errors: errs})
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if _, err := h.service.Login(r.Context(), sess, Credentials{SisiID: form.SisiID, Password: form.Password}); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			errs["general"] = i18n.T(r.Context(), "Invalid login name or password.")
		} else {
			h.logger.Error("login", slog.Any("error", err))
			errs["general"] = h.render.Message(r, err, "Sign-in failed, please try again.")
		}
		form.Password = ""
		h.render.Render(w, r, http.StatusBadRequest, "pages/login.html", "Sign in", formPageData{Form: form, Errors: errs})
		return
	}
	h.render.RedirectWithFlash(w, r, DashboardPath, "success", "Signed in successfully.")
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	h.render.Render(w, r, http.StatusOK, "pages/register.html", "Register", formPageData{Form: registerForm{}})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		SisiID:          strings.TrimSpace(r.PostFormValue("sisiId")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	errs := h.validate(r, form)
	if len(errs) == 0 {
		err := h.service.Register(r.Context(), Credentials{SisiID: form.SisiID, Password: form.Password})
		if err == nil {
			h.render.RedirectWithFlash(w, r, view.LoginPath, "success", "Registration complete. You can sign in now.")
			return
		}
		if errors.Is(err, ErrAccountExists) {
			errs["SisiID"] = i18n.T(r.Context(), "This login name is already registered.")
		} else {
			h.logger.Error("register", slog.Any("error", err))
			errs["general"] = h.render.Message(r, err, "Registration failed. Please try again.")
		}
	}
	form.Password, form.ConfirmPassword = "", ""
	h.render.Render(w, r, http.StatusBadRequest, "pages/register.html", "Register", formPageData{Form: form, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.service.Logout(r.Context(), sess)
	}
	h.render.RedirectWithFlash(w, r, view.LoginPath, "info", "Signed out.")
}

func (h *Handler) redirectAuthenticated(w http.ResponseWriter, r *http.Request) bool {
	if !IdentityFromContext(r.Context()).IsAuthenticated() {
		return false
	}
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
	return true
}

func (h *Handler) validate(r *http.Request, form any) view.FormErrors {
	return view.ValidationErrors(r, h.validator.Struct(form), fieldMessages)
}
