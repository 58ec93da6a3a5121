package api

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/ispbilling/console/docs"
	"github.com/ispbilling/console/internal/api/handler"
	"github.com/ispbilling/console/internal/api/middleware"
	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/service"
)

const proxyPrefix = "/api"

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Registry  middleware.SessionOpener
	Guard     *service.Guard
	Navigator *service.Navigator
	Cookie    middleware.CookieConfig

	// Upstream is the billing API root the proxy forwards to.
	Upstream  *url.URL
	Transport http.RoundTripper

	// Ready lists the dependencies pinged by the readiness check.
	Ready map[string]handler.Pinger

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("console"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Log)
	navHandler := handler.NewNavigationHandler(d.Guard, d.Navigator)
	tenantHandler := handler.NewTenantHandler()
	notificationHandler := handler.NewNotificationHandler()
	proxyHandler := handler.NewProxyHandler(proxyPrefix, d.Upstream, d.Transport, d.Log)

	session := middleware.Session(d.Registry, d.Cookie)
	requireAuth := middleware.RequireAuth()
	expire := middleware.ExpireOnUnauthorized()

	// --- Console session and navigation ---
	con := e.Group("/console", session)
	con.POST("/login", authHandler.Login)
	con.POST("/logout", authHandler.Logout)
	con.GET("/session", authHandler.Current)
	con.GET("/navigate", navHandler.Navigate)
	con.GET("/navigation", navHandler.Menu)

	// --- Authenticated console state ---
	con.GET("/tenants", tenantHandler.List, requireAuth, middleware.RequireRoles(domain.RoleSuperAdmin), expire)
	con.GET("/tenant", tenantHandler.Current, requireAuth, expire)
	con.PUT("/tenant", tenantHandler.Switch, requireAuth, expire)
	con.GET("/notifications", notificationHandler.Get, requireAuth)

	// --- Billing API proxy ---
	e.Any(proxyPrefix+"/*", proxyHandler.Forward, session, requireAuth, expire)

	// --- Health checks (no auth required) ---
	healthHandler := handler.NewHealthHandler(d.Registry, d.Ready)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
