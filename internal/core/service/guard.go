package service

import (
	"net/url"

	"github.com/ispbilling/console/internal/core/access"
	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/policy"
)

// GuardState is the outcome of one navigation attempt.
type GuardState string

const (
	GuardLoading         GuardState = "LOADING"
	GuardDeniedAnonymous GuardState = "DENIED_ANONYMOUS"
	GuardDeniedForbidden GuardState = "DENIED_FORBIDDEN"
	GuardGranted         GuardState = "GRANTED"
)

// Decision tells the routing collaborator what to do: render the view, wait,
// or go to Redirect. A granted decision may still carry a redirect, which is
// how the root path forwards to the landing route.
type Decision struct {
	State    GuardState `json:"state"`
	Route    string     `json:"route"`
	Redirect string     `json:"redirect,omitempty"`
	NotFound bool       `json:"not_found,omitempty"`
}

// Decide is a pure function of the session snapshot and the matched route.
// The originally requested path is not remembered across the login redirect.
func Decide(snap SessionSnapshot, route domain.RoutePolicy) Decision {
	d := Decision{Route: route.Path}

	switch route.Kind {
	case domain.RoutePublic:
		d.State = GuardGranted
		return d
	case domain.RouteNotFound:
		d.State = GuardGranted
		d.NotFound = true
		return d
	}

	if snap.Loading {
		d.State = GuardLoading
		return d
	}
	if snap.User == nil {
		d.State = GuardDeniedAnonymous
		d.Redirect = access.LoginRoute
		return d
	}

	if route.Kind == domain.RouteRoot {
		d.State = GuardGranted
		d.Redirect = access.LandingRouteFor(snap.User)
		return d
	}

	if !access.CanAccess(snap.User, route.Allowed) {
		d.State = GuardDeniedForbidden
		d.Redirect = access.LandingRouteFor(snap.User)
		return d
	}

	d.State = GuardGranted
	return d
}

// Guard evaluates navigations against a route table.
type Guard struct {
	routes []domain.RoutePolicy
}

func NewGuard(routes []domain.RoutePolicy) *Guard {
	return &Guard{routes: routes}
}

// Navigate matches path (query and fragment ignored) and decides.
func (g *Guard) Navigate(snap SessionSnapshot, path string) Decision {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	if path == "" {
		path = "/"
	}
	return Decide(snap, policy.Lookup(g.routes, path))
}
