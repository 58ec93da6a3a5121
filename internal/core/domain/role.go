package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is one of the fixed console roles. The zero value is not a valid role.
type Role uint8

const (
	roleUnknown Role = iota
	RoleSuperAdmin
	RoleTenantAdmin
	RoleAccountManager
	RoleTechnicalOfficer
	RoleRecoveryOfficer
	RoleMarketingOfficer
	RoleCustomer

	roleCount
)

var roleNames = [roleCount]string{
	RoleSuperAdmin:       "super_admin",
	RoleTenantAdmin:      "admin",
	RoleAccountManager:   "account_manager",
	RoleTechnicalOfficer: "technical_officer",
	RoleRecoveryOfficer:  "recovery_officer",
	RoleMarketingOfficer: "marketing_officer",
	RoleCustomer:         "customer",
}

var roleLabels = [roleCount]string{
	RoleSuperAdmin:       "Super Admin",
	RoleTenantAdmin:      "Business Admin",
	RoleAccountManager:   "Account Manager",
	RoleTechnicalOfficer: "Technical Officer",
	RoleRecoveryOfficer:  "Recovery Officer",
	RoleMarketingOfficer: "Marketing / Promotion Officer",
	RoleCustomer:         "Customer",
}

// Roles returns every valid role in declaration order.
func Roles() []Role {
	out := make([]Role, 0, roleCount-1)
	for r := RoleSuperAdmin; r < roleCount; r++ {
		out = append(out, r)
	}
	return out
}

// ParseRole maps the billing API's wire name to a Role.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for r := RoleSuperAdmin; r < roleCount; r++ {
		if roleNames[r] == s {
			return r, nil
		}
	}
	return roleUnknown, fmt.Errorf("%w: unknown role %q", ErrMalformedResponse, s)
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	return r > roleUnknown && r < roleCount
}

func (r Role) String() string {
	if !r.Valid() {
		return "unknown"
	}
	return roleNames[r]
}

// Label is the human-readable name shown next to the user in the navbar.
func (r Role) Label() string {
	if !r.Valid() {
		return ""
	}
	return roleLabels[r]
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("marshal role: invalid value %d", uint8(r))
	}
	return json.Marshal(roleNames[r])
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: role is not a string", ErrMalformedResponse)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is a route allow-list. The empty set admits any authenticated role.
type RoleSet uint16

// NewRoleSet builds an allow-list. Invalid roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r.Valid() {
			s |= 1 << r
		}
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	return r.Valid() && s&(1<<r) != 0
}

func (s RoleSet) Empty() bool {
	return s == 0
}

// SubsetOf reports whether every role in s is also in other.
func (s RoleSet) SubsetOf(other RoleSet) bool {
	return s&^other == 0
}

// Members lists the roles in declaration order.
func (s RoleSet) Members() []Role {
	var out []Role
	for _, r := range Roles() {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	members := s.Members()
	if members == nil {
		members = []Role{}
	}
	return json.Marshal(members)
}
