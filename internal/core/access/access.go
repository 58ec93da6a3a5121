// Package access holds the role predicate shared by the route guard and the
// navigation filter, plus the landing route policy.
package access

import "github.com/ispbilling/console/internal/core/domain"

const (
	LoginRoute          = "/login"
	DashboardRoute      = "/dashboard"
	PortalRoute         = "/portal"
	SuperDashboardRoute = "/super-admin/dashboard"
)

// Allows is the single role predicate. The super admin bypass is checked
// before the allow-list is consulted.
func Allows(role domain.Role, allowed domain.RoleSet) bool {
	if role == domain.RoleSuperAdmin {
		return true
	}
	if !role.Valid() {
		return false
	}
	return allowed.Empty() || allowed.Has(role)
}

// CanAccess applies Allows to a possibly absent user.
func CanAccess(user *domain.User, allowed domain.RoleSet) bool {
	if user == nil {
		return false
	}
	return Allows(user.Role, allowed)
}

// LandingRouteFor is where a user goes after login or after a forbidden
// navigation. Anonymous users land on the login page.
func LandingRouteFor(user *domain.User) string {
	if user == nil {
		return LoginRoute
	}
	switch user.Role {
	case domain.RoleSuperAdmin:
		return SuperDashboardRoute
	case domain.RoleCustomer:
		return PortalRoute
	default:
		return DashboardRoute
	}
}
