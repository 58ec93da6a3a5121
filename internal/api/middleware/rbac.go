package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ispbilling/console/internal/core/access"
	"github.com/ispbilling/console/internal/core/domain"
)

// RequireRoles enforces an allow-list with the same predicate the route guard
// uses, so the super admin always passes. It must run after RequireAuth.
func RequireRoles(allowed ...domain.Role) echo.MiddlewareFunc {
	set := domain.NewRoleSet(allowed...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			console := ConsoleFrom(c)
			if console == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}
			if !access.CanAccess(console.Session.Snapshot().User, set) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
