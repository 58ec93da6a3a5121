package domain

import "strings"

// RouteKind distinguishes guarded views from the few routes that are not.
type RouteKind uint8

const (
	RouteProtected RouteKind = iota
	RoutePublic
	RouteRoot
	RouteNotFound
)

// RoutePolicy maps a console path pattern to the roles allowed to view it.
// Patterns use ":name" for a single path segment and "*" for the catch-all.
type RoutePolicy struct {
	Path    string    `json:"path"`
	Kind    RouteKind `json:"-"`
	Allowed RoleSet   `json:"allowed_roles"`
}

// Match reports whether a concrete request path fits the pattern.
func (p RoutePolicy) Match(path string) bool {
	if p.Path == "*" {
		return true
	}
	want := splitPath(p.Path)
	got := splitPath(path)
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, ":") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// MenuEntry is one sidebar item. Its allow-list comes from the route table.
type MenuEntry struct {
	Path  string `json:"path"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
}
