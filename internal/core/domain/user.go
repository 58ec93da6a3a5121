package domain

// Tenant is a billing organization (an ISP "business").
type Tenant struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	BusinessID         string `json:"business_id,omitempty"`
	SubscriptionStatus string `json:"subscription_status,omitempty"`
}

// User is the authenticated principal as returned by the billing API.
// Tenant is nil only for the super admin role.
type User struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Role   Role    `json:"role"`
	Tenant *Tenant `json:"isp,omitempty"`
	Active bool    `json:"is_active"`
}

// IsSuperAdmin reports whether u holds the platform-operator role.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

// Validate checks the fields every snapshot must carry.
func (u *User) Validate() error {
	if u == nil {
		return ErrMalformedResponse
	}
	if u.ID == 0 || u.Email == "" || !u.Role.Valid() {
		return ErrMalformedResponse
	}
	return nil
}

// Clone returns a deep copy so callers never share the session's snapshot.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Tenant != nil {
		t := *u.Tenant
		c.Tenant = &t
	}
	return &c
}

// Clone returns a copy of t, or nil.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
