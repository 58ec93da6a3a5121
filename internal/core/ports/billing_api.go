package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/ispbilling/console/internal/core/domain"
)

// LoginRequest is forwarded to POST /auth/login. TenantHint becomes
// business_id when non-empty.
type LoginRequest struct {
	Email      string
	Password   string
	TenantHint string
}

// LoginResponse is a successful login: both fields are always set.
type LoginResponse struct {
	Token string
	User  *domain.User
}

// APIError carries the billing API's own message for a failed call. Err is
// one of the domain sentinels so callers can classify with errors.Is.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Err, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// AuthAPI is the authentication endpoint contract.
type AuthAPI interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	// Verify returns the user behind token or an error wrapping
	// domain.ErrUnauthorized when the credential is rejected.
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// TenantAPI lists tenants; only meaningful for the super admin role.
type TenantAPI interface {
	ListTenants(ctx context.Context, token string) ([]domain.Tenant, error)
}

// Notification is one entry of the notification bell.
type Notification struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationSummary is the latest few notifications plus the unread count.
type NotificationSummary struct {
	Unread        int            `json:"unread"`
	Notifications []Notification `json:"notifications"`
	FetchedAt     time.Time      `json:"fetched_at"`
}

type NotificationAPI interface {
	Notifications(ctx context.Context, token string, limit int) (*NotificationSummary, error)
}

// NotificationTarget is a live console session the poller delivers to.
type NotificationTarget interface {
	ID() string
	// Token returns the current credential, false when logged out or loading.
	Token() (string, bool)
	Deliver(NotificationSummary)
	// Unauthorized is the global 401 reaction for a rejected token. It is a
	// no-op once token is no longer the session's credential.
	Unauthorized(ctx context.Context, token string) bool
}

// Watcher runs a repeating task per authenticated session.
type Watcher interface {
	Watch(t NotificationTarget)
	Unwatch(id string)
}
