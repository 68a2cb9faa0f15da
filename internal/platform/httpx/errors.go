// Package httpx provides HTTP response utilities.
package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/medportal/medportal/internal/backend"
)

// RespondError maps gateway errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	detail := backend.MessageOf(err)
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "session expired")
	case errors.Is(err, backend.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", detail)
	case errors.Is(err, backend.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case errors.Is(err, backend.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", detail)
	case errors.Is(err, backend.ErrBadRequest):
		Problem(w, http.StatusBadRequest, "Bad Request", detail)
	case errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusGatewayTimeout, "Upstream Timeout", "")
	default:
		Problem(w, http.StatusBadGateway, "Upstream Error", "")
	}
}
