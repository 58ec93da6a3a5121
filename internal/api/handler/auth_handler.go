package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/api/metrics"
	"github.com/ispbilling/console/internal/core/access"
	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/service"
)

const waitTimeout = 10 * time.Second

// AuthHandler exposes the session store of the calling browser.
type AuthHandler struct {
	log zerolog.Logger
}

func NewAuthHandler(log zerolog.Logger) *AuthHandler {
	return &AuthHandler{log: log}
}

type loginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	BusinessID string `json:"business_id,omitempty" validate:"max=64"`
}

type loginResponse struct {
	Success bool                 `json:"success"`
	User    *domain.User         `json:"user,omitempty"`
	Landing string               `json:"landing,omitempty"`
	Reason  service.LoginFailure `json:"reason,omitempty"`
	Message string               `json:"message,omitempty"`
}

type sessionResponse struct {
	Loading       bool           `json:"loading"`
	Authenticated bool           `json:"authenticated"`
	User          *domain.User   `json:"user"`
	RoleLabel     string         `json:"role_label,omitempty"`
	Landing       string         `json:"landing"`
	Tenant        *domain.Tenant `json:"tenant"`
}

type logoutResponse struct {
	Success  bool   `json:"success"`
	Redirect string `json:"redirect"`
}

// Login authenticates against the billing API and stores the credential in
// the caller's session.
//
// @Summary      Login
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials and optional business id"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  loginResponse
// @Failure      409   {object}  loginResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  loginResponse
// @Router       /console/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	console, err := ctxConsole(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	res := console.Session.Login(ctx, req.Email, req.Password, req.BusinessID)
	if !res.Success {
		metrics.LoginsTotal.WithLabelValues(string(res.Reason)).Inc()
		return c.JSON(loginStatus(res.Reason), loginResponse{
			Reason:  res.Reason,
			Message: res.Message,
		})
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	if token, ok := console.Token(); ok {
		if err := console.Tenants.Ensure(ctx, res.User, token); err != nil {
			h.log.Warn().Err(err).Msg("tenant scope not ready after login")
		}
	}

	return c.JSON(http.StatusOK, loginResponse{
		Success: true,
		User:    res.User,
		Landing: res.Landing,
	})
}

// Logout ends the caller's session. It always succeeds.
//
// @Summary      Logout
// @Tags         session
// @Produce      json
// @Success      200  {object}  logoutResponse
// @Router       /console/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	console, err := ctxConsole(c)
	if err != nil {
		return err
	}
	console.Logout(context.WithoutCancel(c.Request().Context()))
	return c.JSON(http.StatusOK, logoutResponse{Success: true, Redirect: access.LoginRoute})
}

// Current reports the caller's session. With wait=true it blocks until a
// pending credential verification settles.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Param        wait  query     bool  false  "Wait for a pending verification"
// @Success      200   {object}  sessionResponse
// @Router       /console/session [get]
func (h *AuthHandler) Current(c echo.Context) error {
	console, err := ctxConsole(c)
	if err != nil {
		return err
	}

	if c.QueryParam("wait") == "true" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), waitTimeout)
		defer cancel()
		_ = console.Session.AwaitSettled(ctx)
	}

	snap := console.Session.Snapshot()
	resp := sessionResponse{
		Loading:       snap.Loading,
		Authenticated: snap.Authenticated(),
		User:          snap.User,
		Landing:       access.LandingRouteFor(snap.User),
	}
	if snap.User != nil {
		resp.RoleLabel = snap.User.Role.Label()
	}
	if resp.Authenticated {
		resp.Tenant = console.Tenants.Current(snap.User)
	}
	return c.JSON(http.StatusOK, resp)
}

func loginStatus(reason service.LoginFailure) int {
	switch reason {
	case service.FailureInvalidCredentials:
		return http.StatusUnauthorized
	case service.FailureSuperseded:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
