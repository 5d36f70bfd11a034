package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// userContextKey is where the Auth middleware stores the resolved identity.
const userContextKey = "user"

// SetCurrentUser binds the resolved identity to the request context.
func SetCurrentUser(c echo.Context, user *domain.User) {
	c.Set(userContextKey, user)
}

// CurrentUser returns the identity bound by the Auth middleware.
// A route reached without it fails the same way as a missing token.
func CurrentUser(c echo.Context) (*domain.User, error) {
	user, ok := c.Get(userContextKey).(*domain.User)
	if !ok || user == nil {
		return nil, domain.ErrMissingToken
	}
	return user, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func BearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", domain.ErrMissingToken
	}

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", domain.ErrMissingToken
	}
	return token, nil
}
