package domain

import (
	"errors"
	"strings"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrIssueNotFound      = errors.New("issue not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("access forbidden")

	// Authentication failures. All three render as the same 401 response.
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownUser  = errors.New("unknown user")
)

// IsAuthentication reports whether err is one of the authentication stage errors.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrUnknownUser)
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input with per-field detail.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
