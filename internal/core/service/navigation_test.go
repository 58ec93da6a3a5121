package service

import (
	"testing"

	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/policy"
)

func TestNavigator_AgreesWithGuard(t *testing.T) {
	nav, err := NewNavigator(policy.Routes, policy.Menu)
	if err != nil {
		t.Fatalf("navigator: %v", err)
	}
	g := NewGuard(policy.Routes)

	for _, r := range domain.Roles() {
		u := &domain.User{ID: 9, Email: "x@y.io", Role: r, Tenant: acme}
		snap := SessionSnapshot{User: u}

		visible := make(map[string]bool)
		for _, m := range nav.Visible(snap) {
			visible[m.Path] = true
		}
		for _, m := range policy.Menu {
			granted := g.Navigate(snap, m.Path).State == GuardGranted
			if granted != visible[m.Path] {
				t.Fatalf("role %s, %s: menu visible=%v but guard granted=%v", r, m.Path, visible[m.Path], granted)
			}
		}
	}
}

func TestNavigator_SuperSeesEverythingInOrder(t *testing.T) {
	nav, _ := NewNavigator(policy.Routes, policy.Menu)
	items := nav.Visible(SessionSnapshot{User: superUser})

	if len(items) != len(policy.Menu) {
		t.Fatalf("expected %d entries, got %d", len(policy.Menu), len(items))
	}
	for i := range items {
		if items[i].Path != policy.Menu[i].Path {
			t.Fatalf("order differs at %d: %s vs %s", i, items[i].Path, policy.Menu[i].Path)
		}
	}
}

func TestNavigator_CustomerMenu(t *testing.T) {
	nav, _ := NewNavigator(policy.Routes, policy.Menu)
	var got []string
	for _, m := range nav.Visible(SessionSnapshot{User: customerUser}) {
		got = append(got, m.Path)
	}

	want := []string{"/dashboard", "/billing", "/invoices", "/payments", "/notifications", "/portal", "/settings"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNavigator_EmptyWhileLoadingOrAnonymous(t *testing.T) {
	nav, _ := NewNavigator(policy.Routes, policy.Menu)

	if len(nav.Visible(SessionSnapshot{})) != 0 {
		t.Fatal("anonymous sessions have no menu")
	}
	if len(nav.Visible(SessionSnapshot{User: adminUser, Loading: true})) != 0 {
		t.Fatal("loading sessions have no menu")
	}
}

func TestNewNavigator_RejectsUnknownMenuPath(t *testing.T) {
	menu := append([]domain.MenuEntry{}, policy.Menu...)
	menu = append(menu, domain.MenuEntry{Path: "/nowhere", Label: "Nowhere"})

	if _, err := NewNavigator(policy.Routes, menu); err == nil {
		t.Fatal("expected an error for a menu entry without a route")
	}
}
