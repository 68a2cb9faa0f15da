package auth

import (
	"net/http"

	"github.com/medportal/medportal/internal/shared"
)

// Hydrate attaches the request identity once the session has been loaded.
// Requests without a session keep no identity and stay initializing.
func Hydrate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := ContextWithIdentity(r.Context(), NewIdentity(sess))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
