package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ispbilling/console/internal/api/metrics"
	"github.com/ispbilling/console/internal/core/service"
)

// ConsoleKey is the echo context key holding the request's *service.Console.
const ConsoleKey = "console"

const defaultCookieName = "console_sid"

// SessionOpener resolves a browser session id to its live console.
type SessionOpener interface {
	Open(ctx context.Context, id string) (*service.Console, error)
	Len() int
}

// CookieConfig shapes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Session resolves the session cookie to a console and injects it into the
// context. A missing or unknown cookie yields a fresh anonymous console and
// a new cookie.
func Session(reg SessionOpener, cookie CookieConfig) echo.MiddlewareFunc {
	if cookie.Name == "" {
		cookie.Name = defaultCookieName
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sid string
			if ck, err := c.Cookie(cookie.Name); err == nil {
				sid = ck.Value
			}

			console, err := reg.Open(c.Request().Context(), sid)
			if err != nil {
				return err
			}
			metrics.LiveSessions.Set(float64(reg.Len()))

			if console.ID() != sid {
				c.SetCookie(&http.Cookie{
					Name:     cookie.Name,
					Value:    console.ID(),
					Path:     "/",
					MaxAge:   int(cookie.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cookie.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(ConsoleKey, console)
			return next(c)
		}
	}
}

// ConsoleFrom returns the console injected by Session, or nil.
func ConsoleFrom(c echo.Context) *service.Console {
	console, _ := c.Get(ConsoleKey).(*service.Console)
	return console
}
