// Package api exposes the session and permission state as JSON.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/platform/httpx"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/shared"
)

// Resolver computes the effective permissions of a principal.
type Resolver interface {
	Effective(ctx context.Context, principal *shared.Principal) (rbac.Result, error)
}

// Handler serves /api.
type Handler struct {
	logger   *slog.Logger
	resolver Resolver
	guard    rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, resolver Resolver, guard rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, resolver: resolver, guard: guard}
}

// MountRoutes registers the JSON routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require())
		r.Get("/session", h.session)
		r.Get("/permissions/effective", h.effective)
	})
}

// SessionView is the public shape of the signed-in principal. The bearer
// token is never exposed.
type SessionView struct {
	State          string     `json:"state"`
	ID             string     `json:"id"`
	SisiID         string     `json:"sisiId"`
	Roles          []string   `json:"roles"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	p := id.Principal()
	out := SessionView{State: id.State().String(), ID: p.ID, SisiID: p.SisiID, Roles: p.Roles}
	if out.Roles == nil {
		out.Roles = []string{}
	}
	if exp, ok := auth.TokenExpiry(p.Token); ok {
		out.TokenExpiresAt = &exp
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.resolver.Effective(ctx, auth.IdentityFromContext(ctx).Principal())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("aggregate permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
