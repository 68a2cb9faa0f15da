package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/medportal/medportal/internal/api"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/dashboard"
	"github.com/medportal/medportal/internal/files"
	"github.com/medportal/medportal/internal/observability"
	"github.com/medportal/medportal/internal/patients"
	"github.com/medportal/medportal/internal/platform/httpx"
	"github.com/medportal/medportal/internal/profile"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/roles"
	"github.com/medportal/medportal/internal/shared"
	"github.com/medportal/medportal/internal/users"
	"github.com/medportal/medportal/web"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	Health         map[string]HealthCheck

	AuthHandler        *auth.Handler
	DashboardHandler   *dashboard.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *rbac.PermissionsHandler
	RolesHandler       *roles.Handler
	ProfileHandler     *profile.Handler
	PatientsHandler    *patients.Handler
	FilesHandler       *files.Handler
	APIHandler         *api.Handler
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthHandler(params.Health))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// served outside the session and CSRF stack
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}

		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.ProfileHandler != nil {
			r.Route("/profile", params.ProfileHandler.MountRoutes)
		}
		if params.PatientsHandler != nil {
			r.Route("/patients", params.PatientsHandler.MountRoutes)
		}
		if params.FilesHandler != nil {
			r.Route("/files", params.FilesHandler.MountRoutes)
		}
		if params.APIHandler != nil {
			r.Route("/api", func(r chi.Router) {
				r.Use(corsMiddleware(params.Config))
				params.APIHandler.MountRoutes(r)
			})
		}
	})

	return r
}

func corsMiddleware(cfg *Config) func(http.Handler) http.Handler {
	var origins []string
	if cfg != nil {
		origins = cfg.CORSAllowedOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", shared.CSRFHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httpx.JSON(w, code, status)
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
