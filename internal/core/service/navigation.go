package service

import (
	"fmt"

	"github.com/ispbilling/console/internal/core/access"
	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/policy"
)

// MenuItem is a sidebar entry bound to its route's allow-list.
type MenuItem struct {
	domain.MenuEntry
	Allowed domain.RoleSet `json:"-"`
}

// Navigator filters the sidebar with the same predicate the guard uses.
type Navigator struct {
	items []MenuItem
}

// NewNavigator binds every menu entry to its route table allow-list and
// fails when the two tables disagree.
func NewNavigator(routes []domain.RoutePolicy, menu []domain.MenuEntry) (*Navigator, error) {
	if err := policy.Validate(routes, menu); err != nil {
		return nil, fmt.Errorf("navigator: %w", err)
	}
	items := make([]MenuItem, 0, len(menu))
	for _, m := range menu {
		items = append(items, MenuItem{MenuEntry: m, Allowed: policy.Lookup(routes, m.Path).Allowed})
	}
	return &Navigator{items: items}, nil
}

// FilterMenu keeps, in order, the items user may open.
func FilterMenu(items []MenuItem, user *domain.User) []domain.MenuEntry {
	out := make([]domain.MenuEntry, 0, len(items))
	if user == nil {
		return out
	}
	for _, it := range items {
		if access.Allows(user.Role, it.Allowed) {
			out = append(out, it.MenuEntry)
		}
	}
	return out
}

// Visible returns the sidebar for the snapshot; empty while loading.
func (n *Navigator) Visible(snap SessionSnapshot) []domain.MenuEntry {
	if !snap.Authenticated() {
		return []domain.MenuEntry{}
	}
	return FilterMenu(n.items, snap.User)
}
