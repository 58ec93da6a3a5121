package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ispbilling/console/internal/api/metrics"
	"github.com/ispbilling/console/internal/core/domain"
)

const settleTimeout = 10 * time.Second

// RequireAuth waits for the session to settle and rejects anonymous requests
// with 401. It must run after Session.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			console := ConsoleFrom(c)
			if console == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), settleTimeout)
			defer cancel()
			if err := console.Session.AwaitSettled(ctx); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session is still loading")
			}

			if !console.Session.Snapshot().Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return next(c)
		}
	}
}

// UsedTokenKey is the echo context key under which handlers record the
// credential they sent to the billing API.
const UsedTokenKey = "console.used_token"

// ExpireOnUnauthorized ends the session whenever the handler reports that the
// billing API rejected the credential. Only the credential the handler used
// is ended; a session that re-authenticated meanwhile is left alone.
func ExpireOnUnauthorized() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			console := ConsoleFrom(c)
			var token string
			if console != nil {
				token, _ = console.Token()
			}

			err := next(c)
			if err == nil || !errors.Is(err, domain.ErrUnauthorized) || console == nil {
				return err
			}
			if used, ok := c.Get(UsedTokenKey).(string); ok && used != "" {
				token = used
			}
			if console.Unauthorized(context.WithoutCancel(c.Request().Context()), token) {
				metrics.ForcedLogoutsTotal.WithLabelValues("console").Inc()
			}
			return err
		}
	}
}
