package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/civicwatch/civic-reports/internal/api/handler"
	"github.com/civicwatch/civic-reports/internal/api/metrics"
	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// Auth resolves the bearer token into the current identity and binds it to
// the request context. The identity is re-read from the store on every
// request so that role changes apply immediately. Any failure is terminal.
func Auth(resolver ports.IdentityResolver, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := handler.BearerToken(c)
			if err != nil {
				return reject(c, log, err)
			}

			user, err := resolver.Authenticate(c.Request().Context(), token)
			if err != nil {
				return reject(c, log, err)
			}

			handler.SetCurrentUser(c, user)
			return next(c)
		}
	}
}

// reject records the stage that failed. The client only ever sees the
// generic 401 rendered by the error handler.
func reject(c echo.Context, log zerolog.Logger, err error) error {
	stage := rejectionStage(err)
	if stage == "" {
		// Store failure while resolving the identity: surfaces as a 500.
		return err
	}

	metrics.AuthenticationRejectionsTotal.WithLabelValues(stage).Inc()
	log.Debug().
		Str("stage", stage).
		Str("path", c.Path()).
		Err(err).
		Msg("request rejected")
	return err
}

func rejectionStage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrUnknownUser):
		return "unknown_user"
	}
	return ""
}
