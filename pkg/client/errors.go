package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotSignedIn is returned by calls that need a token when the session
// holds none.
var ErrNotSignedIn = errors.New("not signed in")

// FieldError is one entry of a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int          `json:"-"`
	Message    string       `json:"error"`
	Details    []FieldError `json:"details"`
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.Field + " " + d.Message
	}
	return fmt.Sprintf("%d: %s (%s)", e.StatusCode, e.Message, strings.Join(parts, "; "))
}

// StatusCode returns the HTTP status of err when it is an *APIError, else 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }
func IsForbidden(err error) bool    { return StatusCode(err) == http.StatusForbidden }
func IsNotFound(err error) bool     { return StatusCode(err) == http.StatusNotFound }
