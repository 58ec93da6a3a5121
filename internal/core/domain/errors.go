package domain

import "errors"

var (
	// ErrUnauthorized is returned when the billing API rejects the credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is a rejected login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
	// ErrTransport means the billing API could not be reached at all.
	ErrTransport = errors.New("billing api unreachable")
	// ErrUpstream is a non-auth error status from the billing API.
	ErrUpstream = errors.New("billing api error")
	// ErrMalformedResponse is a success response missing expected fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrTenantUnresolved means no tenant is selected yet; the request must wait.
	ErrTenantUnresolved = errors.New("tenant not selected")
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrNotFound         = errors.New("not found")
)
