package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/civicwatch/civic-reports/internal/api/handler"
	"github.com/civicwatch/civic-reports/internal/api/metrics"
	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// RBAC enforces role-based access control. It must run after Auth; a request
// that reaches it without an identity is forbidden.
func RBAC(policy domain.RoleSet) echo.MiddlewareFunc {
	label := policy.String()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := handler.CurrentUser(c)
			if err != nil {
				metrics.AuthorizationDenialsTotal.WithLabelValues("none", label).Inc()
				return fmt.Errorf("no identity bound: %w", domain.ErrForbidden)
			}
			if !policy.Allows(user.Role) {
				metrics.AuthorizationDenialsTotal.WithLabelValues(string(user.Role), label).Inc()
				return fmt.Errorf("role %s not in {%s}: %w", user.Role, label, domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
