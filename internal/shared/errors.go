package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// SafeMessager is implemented by errors that carry text fit for end users.
type SafeMessager interface {
	SafeMessage() string
}

// UserSafeMessage returns a message that can be rendered to users without
// leaking internals.
func UserSafeMessage(err error) string {
	var safe SafeMessager
	if errors.As(err, &safe) {
		if msg := safe.SafeMessage(); msg != "" {
			return msg
		}
	}
	return "Something went wrong, please try again."
}
