package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
	"github.com/ispbilling/console/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAuth struct {
	mu          sync.Mutex
	loginFn     func(ctx context.Context, req ports.LoginRequest) (*ports.LoginResponse, error)
	verifyFn    func(ctx context.Context, token string) (*domain.User, error)
	loginCalls  int
	verifyCalls int
}

func (s *stubAuth) Login(ctx context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
	s.mu.Lock()
	s.loginCalls++
	s.mu.Unlock()
	return s.loginFn(ctx, req)
}

func (s *stubAuth) Verify(ctx context.Context, token string) (*domain.User, error) {
	s.mu.Lock()
	s.verifyCalls++
	s.mu.Unlock()
	return s.verifyFn(ctx, token)
}

func (s *stubAuth) verifications() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyCalls
}

// authFor answers every login with user and every verification with user.
func authFor(user *domain.User) *stubAuth {
	return &stubAuth{
		loginFn: func(_ context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
			return &ports.LoginResponse{Token: "tok-" + req.Email, User: user.Clone()}, nil
		},
		verifyFn: func(context.Context, string) (*domain.User, error) {
			return user.Clone(), nil
		},
	}
}

type stubTenantAPI struct {
	mu      sync.Mutex
	tenants []domain.Tenant
	err     error
	calls   int
	// When set, each call signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (s *stubTenantAPI) ListTenants(context.Context, string) ([]domain.Tenant, error) {
	s.mu.Lock()
	s.calls++
	tenants, err := append([]domain.Tenant(nil), s.tenants...), s.err
	entered, release := s.entered, s.release
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

type stubWatcher struct {
	mu      sync.Mutex
	watched map[string]ports.NotificationTarget
}

func newStubWatcher() *stubWatcher {
	return &stubWatcher{watched: make(map[string]ports.NotificationTarget)}
}

func (w *stubWatcher) Watch(t ports.NotificationTarget) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watched[t.ID()] = t
}

func (w *stubWatcher) Unwatch(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.watched, id)
}

func (w *stubWatcher) has(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.watched[id]
	return ok
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var (
	acme  = &domain.Tenant{ID: 1, Name: "Acme Fiber", BusinessID: "ACME"}
	other = &domain.Tenant{ID: 2, Name: "Other Net", BusinessID: "OTHER"}

	superUser    = &domain.User{ID: 1, Email: "root@platform.io", Role: domain.RoleSuperAdmin}
	adminUser    = &domain.User{ID: 2, Email: "admin@acme.io", Role: domain.RoleTenantAdmin, Tenant: acme}
	customerUser = &domain.User{ID: 3, Email: "jane@acme.io", Role: domain.RoleCustomer, Tenant: acme}
	techUser     = &domain.User{ID: 4, Email: "tech@acme.io", Role: domain.RoleTechnicalOfficer, Tenant: acme}
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "sub": "2"}).
		SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newMemoryStore() *memory.Store {
	return memory.NewStore()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
