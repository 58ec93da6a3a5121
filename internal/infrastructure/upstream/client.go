// Package upstream is the HTTP client for the billing REST API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// Client talks to the billing API. It satisfies ports.AuthAPI,
// ports.TenantAPI and ports.NotificationAPI.
type Client struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

// New builds a client for baseURL (e.g. http://billing:8000/api).
func New(baseURL string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: timeout},
		log:  log.With().Str("component", "upstream").Logger(),
	}, nil
}

// BaseURL is the API root the proxy forwards to.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Transport exposes the underlying round tripper for the proxy.
func (c *Client) Transport() http.RoundTripper {
	if c.http.Transport != nil {
		return c.http.Transport
	}
	return http.DefaultTransport
}

// Ping reports whether the billing API answers at all. Any HTTP status counts
// as reachable; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base.String()+"/", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	_ = resp.Body.Close()
	return nil
}

type loginPayload struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	BusinessID string `json:"business_id,omitempty"`
}

type loginBody struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
	Message string       `json:"message"`
}

// Login calls POST /auth/login. Any failure is an *ports.APIError whose
// Message is ready to show on the login form.
func (c *Client) Login(ctx context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
	payload := loginPayload{Email: req.Email, Password: req.Password, BusinessID: req.TenantHint}
	status, raw, err := c.do(ctx, http.MethodPost, "/auth/login", "", payload)
	if err != nil {
		return nil, err
	}

	if status >= 300 {
		return nil, loginError(status, raw)
	}

	var body loginBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &ports.APIError{Status: status, Message: "Login failed - invalid response format", Err: domain.ErrMalformedResponse}
	}
	if !body.Success {
		msg := body.Message
		if msg == "" {
			msg = "Login failed - invalid response format"
			return nil, &ports.APIError{Status: status, Message: msg, Err: domain.ErrMalformedResponse}
		}
		return nil, &ports.APIError{Status: status, Message: msg, Err: domain.ErrInvalidCredentials}
	}
	if body.Token == "" || body.User.Validate() != nil {
		return nil, &ports.APIError{Status: status, Message: orDefault(body.Message, "Login failed - invalid response format"), Err: domain.ErrMalformedResponse}
	}
	return &ports.LoginResponse{Token: body.Token, User: body.User}, nil
}

type meBody struct {
	User *domain.User `json:"user"`
}

// Verify calls GET /auth/me with token.
func (c *Client) Verify(ctx context.Context, token string) (*domain.User, error) {
	var body meBody
	if err := c.getJSON(ctx, "/auth/me", token, &body); err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	if err := body.User.Validate(); err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	return body.User, nil
}

type tenantsBody struct {
	ISPs []domain.Tenant `json:"isps"`
}

// ListTenants calls GET /isps.
func (c *Client) ListTenants(ctx context.Context, token string) ([]domain.Tenant, error) {
	var body tenantsBody
	if err := c.getJSON(ctx, "/isps", token, &body); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	if body.ISPs == nil {
		return []domain.Tenant{}, nil
	}
	return body.ISPs, nil
}

// Notifications calls GET /notifications?limit=n.
func (c *Client) Notifications(ctx context.Context, token string, limit int) (*ports.NotificationSummary, error) {
	var body ports.NotificationSummary
	path := "/notifications?limit=" + strconv.Itoa(limit)
	if err := c.getJSON(ctx, path, token, &body); err != nil {
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}
	if body.Notifications == nil {
		body.Notifications = []ports.Notification{}
	}
	body.FetchedAt = time.Now().UTC()
	return &body, nil
}

func (c *Client) getJSON(ctx context.Context, path, token string, out any) error {
	status, raw, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return statusError(status, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ports.APIError{Status: status, Message: err.Error(), Err: domain.ErrMalformedResponse}
	}
	return nil
}

// do performs one request. A transport failure is reported as an
// *ports.APIError wrapping domain.ErrTransport with Status 0.
func (c *Client) do(ctx context.Context, method, path, token string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	target := c.base.String() + path
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("billing api unreachable")
		return 0, nil, &ports.APIError{Message: msgUnreachable, Err: errors.Join(domain.ErrTransport, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, &ports.APIError{Status: resp.StatusCode, Message: msgUnreachable, Err: errors.Join(domain.ErrTransport, err)}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("billing api call")

	return resp.StatusCode, raw, nil
}

func statusError(status int, raw []byte) error {
	msg := extractMessage(parseErrorBody(raw))
	switch {
	case status == http.StatusUnauthorized:
		return &ports.APIError{Status: status, Message: orDefault(msg, "session expired"), Err: domain.ErrUnauthorized}
	case status == http.StatusForbidden:
		return &ports.APIError{Status: status, Message: orDefault(msg, "access forbidden"), Err: domain.ErrForbidden}
	case status == http.StatusNotFound:
		return &ports.APIError{Status: status, Message: orDefault(msg, "not found"), Err: domain.ErrNotFound}
	default:
		return &ports.APIError{Status: status, Message: orDefault(msg, http.StatusText(status)), Err: domain.ErrUpstream}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
