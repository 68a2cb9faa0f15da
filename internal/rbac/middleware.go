package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/platform/httpx"
	"github.com/medportal/medportal/internal/view"
)

// UnauthorizedPath is where principals without a required role are sent.
const UnauthorizedPath = "/unauthorized"

// Guard gates route groups on the request identity.
type Guard struct {
	Render *view.Renderer
	Logger *slog.Logger
}

// Require serves the wrapped handler only to authenticated principals holding
// at least one of roles. An empty role list admits every authenticated
// principal. The check runs on every request.
func (g Guard) Require(roles ...string) func(http.Handler) http.Handler {
	allowed := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.IdentityFromContext(r.Context())
			api := isAPIRequest(r)
			switch id.State() {
			case auth.StateInitializing:
				g.loading(w, r, api)
				return
			case auth.StateAnonymous:
				if api {
					httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
					return
				}
				http.Redirect(w, r, view.LoginPath, http.StatusSeeOther)
				return
			}
			if len(allowed) > 0 && !id.HasAnyRole(allowed...) {
				if g.Logger != nil {
					g.Logger.Info("role check denied", slog.String("path", r.URL.Path), slog.Any("required", allowed))
				}
				if api {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing required role")
					return
				}
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g Guard) loading(w http.ResponseWriter, r *http.Request, api bool) {
	w.Header().Set("Retry-After", "1")
	if api || g.Render == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Session Unavailable", "session is still loading")
		return
	}
	g.Render.Render(w, r, http.StatusServiceUnavailable, "pages/loading.html", "Loading...", nil)
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role != "" {
			out = append(out, role)
		}
	}
	return out
}
