package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ispbilling/console/internal/api/middleware"
	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/service"
)

// ctxConsole extracts the console injected by the Session middleware. Its
// absence means the route was wired without that middleware.
func ctxConsole(c echo.Context) (*service.Console, error) {
	console := middleware.ConsoleFrom(c)
	if console == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session middleware not installed")
	}
	return console, nil
}

// ctxUser returns the console and its authenticated user and token. Routes
// using it sit behind RequireAuth, so a logout racing the request is the
// only way to observe an anonymous session here.
func ctxUser(c echo.Context) (*service.Console, *domain.User, string, error) {
	console, err := ctxConsole(c)
	if err != nil {
		return nil, nil, "", err
	}
	user := console.Session.Snapshot().User
	token, ok := console.Token()
	if user == nil || !ok {
		return nil, nil, "", echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	c.Set(middleware.UsedTokenKey, token)
	return console, user, token, nil
}
