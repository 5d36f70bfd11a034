package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error   string              `json:"error"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Collapses every authentication failure into one generic 401.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "details": [...]}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Details: ve.Fields}
	}

	// The failing stage is never revealed to the caller.
	if domain.IsAuthentication(err) {
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized"}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: domain.ErrInvalidCredentials.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden"}
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, errorResponse{Error: domain.ErrDuplicateEmail.Error()}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Error: "user not found"}
	case errors.Is(err, domain.ErrIssueNotFound):
		return http.StatusNotFound, errorResponse{Error: "issue not found"}
	}

	// Echo's own errors (bind failures, 404 from router, body limit, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			logUnhandled(log, c, err)
		}
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	// Unexpected error: log the real cause, return a generic message.
	logUnhandled(log, c, err)
	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

func logUnhandled(log zerolog.Logger, c echo.Context, err error) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")
}
