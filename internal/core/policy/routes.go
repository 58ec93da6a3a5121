// Package policy is the static console route table and sidebar menu. Both the
// route guard and the navigation filter derive their decisions from Routes.
package policy

import (
	"fmt"

	"github.com/ispbilling/console/internal/core/domain"
)

var (
	super      = domain.RoleSuperAdmin
	admin      = domain.RoleTenantAdmin
	accountMgr = domain.RoleAccountManager
	technical  = domain.RoleTechnicalOfficer
	recovery   = domain.RoleRecoveryOfficer
	customer   = domain.RoleCustomer
)

var (
	anyRole        = domain.NewRoleSet()
	customerStaff  = domain.NewRoleSet(super, admin, accountMgr, technical, recovery)
	customerEdit   = domain.NewRoleSet(super, admin, accountMgr)
	billingView    = domain.NewRoleSet(super, admin, accountMgr, customer)
	billingEdit    = domain.NewRoleSet(super, admin, accountMgr)
	paymentEntry   = domain.NewRoleSet(super, admin, accountMgr, recovery)
	recoveryDesk   = domain.NewRoleSet(super, admin, recovery)
	management     = domain.NewRoleSet(super, admin, accountMgr)
	administration = domain.NewRoleSet(super, admin)
	fieldWork      = domain.NewRoleSet(super, admin, accountMgr, technical)
	portal         = domain.NewRoleSet(customer, super, admin, accountMgr)
	platformOnly   = domain.NewRoleSet(super)
)

func protected(path string, allowed domain.RoleSet) domain.RoutePolicy {
	return domain.RoutePolicy{Path: path, Kind: domain.RouteProtected, Allowed: allowed}
}

// Routes is ordered; the first matching pattern wins, so static segments
// precede parameterised ones and the catch-all is last.
var Routes = []domain.RoutePolicy{
	{Path: "/login", Kind: domain.RoutePublic},
	{Path: "/", Kind: domain.RouteRoot},

	protected("/dashboard", anyRole),

	protected("/customers", customerStaff),
	protected("/customers/new", customerEdit),
	protected("/customers/:id", customerStaff),
	protected("/customers/:id/edit", customerEdit),

	protected("/billing", billingView),
	protected("/billing/new", billingEdit),
	protected("/billing/:id", billingView),
	protected("/billing/:id/edit", billingEdit),
	protected("/bills/:id", billingView),
	protected("/invoices", billingView),

	protected("/payments", anyRole),
	protected("/payments/new", paymentEntry),

	protected("/recoveries", recoveryDesk),
	protected("/reports", management),
	protected("/settings", anyRole),
	protected("/users", administration),
	protected("/packages", management),
	protected("/installations", fieldWork),
	protected("/notifications", anyRole),
	protected("/portal", portal),

	protected("/super-admin/dashboard", platformOnly),
	protected("/super-admin/packages", platformOnly),
	protected("/super-admin/isps", platformOnly),

	protected("/roles", administration),
	protected("/activity-logs", administration),

	{Path: "*", Kind: domain.RouteNotFound},
}

// Menu is the sidebar in display order.
var Menu = []domain.MenuEntry{
	{Path: "/dashboard", Label: "Dashboard", Icon: "dashboard"},
	{Path: "/customers", Label: "Customers", Icon: "customers"},
	{Path: "/packages", Label: "Packages", Icon: "packages"},
	{Path: "/installations", Label: "Installations", Icon: "installations"},
	{Path: "/billing", Label: "Billing", Icon: "billing"},
	{Path: "/invoices", Label: "Invoices", Icon: "invoices"},
	{Path: "/payments", Label: "Payments", Icon: "payments"},
	{Path: "/recoveries", Label: "Recoveries", Icon: "recoveries"},
	{Path: "/reports", Label: "Reports", Icon: "reports"},
	{Path: "/notifications", Label: "Notifications", Icon: "notifications"},
	{Path: "/portal", Label: "My Portal", Icon: "portal"},
	{Path: "/users", Label: "Users", Icon: "users"},
	{Path: "/super-admin/dashboard", Label: "Super Admin Dashboard", Icon: "crown"},
	{Path: "/super-admin/packages", Label: "SaaS Packages", Icon: "packages"},
	{Path: "/super-admin/isps", Label: "Business Management", Icon: "business"},
	{Path: "/roles", Label: "Roles & Permissions", Icon: "lock"},
	{Path: "/settings", Label: "Settings", Icon: "settings"},
	{Path: "/activity-logs", Label: "Activity Logs", Icon: "logs"},
}

// Lookup returns the first route whose pattern matches path. The catch-all
// guarantees a result for a well-formed table.
func Lookup(routes []domain.RoutePolicy, path string) domain.RoutePolicy {
	for _, r := range routes {
		if r.Match(path) {
			return r
		}
	}
	return domain.RoutePolicy{Path: "*", Kind: domain.RouteNotFound}
}

// Validate checks the table invariants: exactly one login, root and
// catch-all entry (catch-all last), no duplicate patterns, and every menu
// path resolving to a protected route declared by its exact pattern.
func Validate(routes []domain.RoutePolicy, menu []domain.MenuEntry) error {
	seen := make(map[string]struct{}, len(routes))
	kinds := make(map[domain.RouteKind]int)
	for i, r := range routes {
		if _, dup := seen[r.Path]; dup {
			return fmt.Errorf("policy: duplicate route %q", r.Path)
		}
		seen[r.Path] = struct{}{}
		kinds[r.Kind]++
		if r.Kind == domain.RouteNotFound && i != len(routes)-1 {
			return fmt.Errorf("policy: catch-all must be the last route")
		}
		if r.Kind != domain.RouteProtected && !r.Allowed.Empty() {
			return fmt.Errorf("policy: unguarded route %q carries an allow-list", r.Path)
		}
	}
	for _, k := range []domain.RouteKind{domain.RoutePublic, domain.RouteRoot, domain.RouteNotFound} {
		if kinds[k] != 1 {
			return fmt.Errorf("policy: expected exactly one route of kind %d, found %d", k, kinds[k])
		}
	}

	for _, m := range menu {
		r := Lookup(routes, m.Path)
		if r.Kind != domain.RouteProtected || r.Path != m.Path {
			return fmt.Errorf("policy: menu entry %q has no protected route", m.Path)
		}
	}
	return nil
}
