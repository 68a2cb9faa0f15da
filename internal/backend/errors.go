package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized means the gateway rejected the credentials; the session
	// has already been cleared when a caller sees it.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrBadRequest maps 400 responses.
	ErrBadRequest = errors.New("backend: bad request")
	// ErrForbidden maps 403 responses.
	ErrForbidden = errors.New("backend: forbidden")
	// ErrNotFound maps 404 responses.
	ErrNotFound = errors.New("backend: not found")
	// ErrConflict maps 409 responses.
	ErrConflict = errors.New("backend: conflict")
)

// APIError carries a non-2xx gateway response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Is lets errors.Is match the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// SafeMessage exposes the gateway's message for rendering.
func (e *APIError) SafeMessage() string {
	return e.Message
}

// StatusOf returns the HTTP status behind err, or 0.
func StatusOf(err error) int {
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the gateway's message behind err, or "".
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &APIError{Status: resp.StatusCode, Message: extractMessage(raw)}
}

// The services answer with {"message": ...} or {"error": ...}; anything else
// is passed through as trimmed text.
func extractMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
		return ""
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
