package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/api/metrics"
	"github.com/ispbilling/console/internal/core/access"
	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/service"
)

// unscopedPrefixes are billing API paths that are not filtered by tenant.
var unscopedPrefixes = []string{"/auth", "/isps", "/notifications"}

// loginPath is served by the console's own login endpoint; proxying it would
// let a failed sign-in end the current session.
const loginPath = "/auth/login"

// anonymousPaths answer 401 for bad input rather than for a rejected
// credential, so their 401s pass through without ending the session.
var anonymousPaths = map[string]bool{"/auth/register": true}

type proxyStateKey struct{}

type proxyState struct {
	console   *service.Console
	path      string
	token     string
	anonymous bool
	tenantID  int64
	start     time.Time
}

// ProxyHandler forwards console data requests to the billing API with the
// session's credential and tenant scope applied.
type ProxyHandler struct {
	prefix string
	target *url.URL
	proxy  *httputil.ReverseProxy
	log    zerolog.Logger
}

// NewProxyHandler proxies requests under prefix (e.g. "/api") to target.
func NewProxyHandler(prefix string, target *url.URL, transport http.RoundTripper, log zerolog.Logger) *ProxyHandler {
	h := &ProxyHandler{
		prefix: strings.TrimRight(prefix, "/"),
		target: target,
		log:    log.With().Str("component", "proxy").Logger(),
	}
	h.proxy = &httputil.ReverseProxy{
		Rewrite:        h.rewrite,
		ModifyResponse: h.modifyResponse,
		ErrorHandler:   h.errorHandler,
		Transport:      transport,
	}
	return h
}

// Forward proxies the request. Tenant-scoped calls carry isp_id; they are
// refused with 409, without contacting the billing API, while no tenant is
// resolved.
//
// @Summary      Billing API proxy
// @Tags         proxy
// @Param        path  path  string  true  "Billing API path"
// @Success      200
// @Failure      401  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /api/{path} [get]
func (h *ProxyHandler) Forward(c echo.Context) error {
	console, user, token, err := ctxUser(c)
	if err != nil {
		return err
	}

	req := c.Request()
	st := &proxyState{
		console: console,
		path:    "/" + strings.TrimLeft(strings.TrimPrefix(req.URL.Path, h.prefix), "/"),
		token:   token,
		start:   time.Now(),
	}
	if st.path == loginPath {
		return echo.NewHTTPError(http.StatusNotFound, "login is handled by /console/login")
	}
	st.anonymous = anonymousPaths[st.path]

	if tenantScoped(st.path) {
		if err := console.Tenants.Ensure(req.Context(), user, token); err != nil {
			return err
		}
		id, ok := console.Tenants.TenantID(user)
		if !ok {
			return domain.ErrTenantUnresolved
		}
		st.tenantID = id
	}

	h.proxy.ServeHTTP(c.Response(), req.WithContext(context.WithValue(req.Context(), proxyStateKey{}, st)))
	return nil
}

func tenantScoped(path string) bool {
	for _, p := range unscopedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return false
		}
	}
	return true
}

func (h *ProxyHandler) rewrite(pr *httputil.ProxyRequest) {
	st := pr.In.Context().Value(proxyStateKey{}).(*proxyState)

	pr.SetURL(h.target)
	pr.Out.URL.Path = strings.TrimRight(h.target.Path, "/") + st.path
	pr.Out.URL.RawPath = ""

	q := pr.In.URL.Query()
	if st.tenantID != 0 {
		q.Set("isp_id", strconv.FormatInt(st.tenantID, 10))
	}
	pr.Out.URL.RawQuery = q.Encode()

	pr.Out.Header.Set("Authorization", "Bearer "+st.token)
	pr.Out.Header.Del("Cookie")
	pr.SetXForwarded()
}

// modifyResponse applies the global 401 reaction: the session is ended and
// the browser is told to go to the login screen. A 401 for a credential the
// session has already replaced is passed through untouched.
func (h *ProxyHandler) modifyResponse(resp *http.Response) error {
	st := resp.Request.Context().Value(proxyStateKey{}).(*proxyState)
	metrics.ProxyDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(st.start).Seconds())

	if resp.StatusCode != http.StatusUnauthorized || st.anonymous {
		return nil
	}
	if !st.console.Unauthorized(context.WithoutCancel(resp.Request.Context()), st.token) {
		h.log.Debug().Str("path", st.path).Msg("401 for a superseded credential passed through")
		return nil
	}

	h.log.Info().Str("path", st.path).Msg("billing api rejected credential, session ended")
	metrics.ForcedLogoutsTotal.WithLabelValues("proxy").Inc()

	body, _ := json.Marshal(errorResponse{Error: "session expired", Redirect: access.LoginRoute})
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Header.Set("Content-Type", echo.MIMEApplicationJSON)
	resp.Header.Del("Content-Encoding")
	return nil
}

func (h *ProxyHandler) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if st, ok := r.Context().Value(proxyStateKey{}).(*proxyState); ok {
		metrics.ProxyDuration.WithLabelValues("error").Observe(time.Since(st.start).Seconds())
	}
	h.log.Warn().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("billing api unreachable")

	w.Header().Set("Content-Type", echo.MIMEApplicationJSON)
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: "billing api unreachable"})
}
