package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
	"github.com/ispbilling/console/internal/core/service"
	"github.com/ispbilling/console/internal/infrastructure/db/memory"
)

// --- stubs ---

type stubAPI struct {
	mu    sync.Mutex
	calls int
	err   error
	// When set, each call signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (s *stubAPI) Notifications(_ context.Context, token string, limit int) (*ports.NotificationSummary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return &ports.NotificationSummary{Unread: limit, Notifications: []ports.Notification{{ID: 1, Title: token}}}, nil
}

type stubTarget struct {
	id       string
	token    string
	loggedIn bool

	mu           sync.Mutex
	delivered    []ports.NotificationSummary
	unauthorized []string
	got          chan struct{}
}

func newTarget(id string) *stubTarget {
	return &stubTarget{id: id, token: "tok-" + id, loggedIn: true, got: make(chan struct{}, 4)}
}

func (s *stubTarget) ID() string { return s.id }

func (s *stubTarget) Token() (string, bool) { return s.token, s.loggedIn }

func (s *stubTarget) Deliver(sum ports.NotificationSummary) {
	s.mu.Lock()
	s.delivered = append(s.delivered, sum)
	s.mu.Unlock()
	s.got <- struct{}{}
}

func (s *stubTarget) Unauthorized(_ context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unauthorized = append(s.unauthorized, token)
	return token == s.token
}

// stubAuth signs in any email as a tenant admin holding "tok-"+email.
type stubAuth struct{}

func (stubAuth) Login(_ context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
	return &ports.LoginResponse{
		Token: "tok-" + req.Email,
		User:  &domain.User{ID: int64(len(req.Email)), Email: req.Email, Role: domain.RoleTenantAdmin, Tenant: &domain.Tenant{ID: 1, Name: "Acme Fiber"}},
	}, nil
}

func (stubAuth) Verify(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUnauthorized
}

// --- tests ---

func TestPoll_DeliversSummary(t *testing.T) {
	api := &stubAPI{}
	p := NewPoller(api, time.Hour, zerolog.Nop())
	target := newTarget("a")

	var outcome string
	p.OnResult = func(o string) { outcome = o }
	p.poll(target)

	if len(target.delivered) != 1 || target.delivered[0].Notifications[0].Title != "tok-a" {
		t.Fatalf("expected one delivery with the session token, got %+v", target.delivered)
	}
	if target.delivered[0].Unread != defaultLimit {
		t.Fatalf("expected limit %d to be requested", defaultLimit)
	}
	if outcome != "ok" {
		t.Fatalf("expected ok outcome, got %q", outcome)
	}
}

func TestPoll_SkipsLoggedOutTarget(t *testing.T) {
	api := &stubAPI{}
	p := NewPoller(api, time.Hour, zerolog.Nop())
	target := newTarget("a")
	target.loggedIn = false

	p.poll(target)

	if api.calls != 0 {
		t.Fatalf("expected no upstream call, got %d", api.calls)
	}
}

func TestPoll_UnauthorizedEndsSession(t *testing.T) {
	api := &stubAPI{err: fmt.Errorf("fetch notifications: %w", domain.ErrUnauthorized)}
	p := NewPoller(api, time.Hour, zerolog.Nop())
	target := newTarget("a")

	p.poll(target)

	if len(target.unauthorized) != 1 || target.unauthorized[0] != "tok-a" {
		t.Fatalf("expected the 401 reaction once for the polled token, got %v", target.unauthorized)
	}
	if len(target.delivered) != 0 {
		t.Fatal("expected nothing delivered")
	}
}

func TestPoll_TransientErrorKeepsSession(t *testing.T) {
	api := &stubAPI{err: errors.New("boom")}
	p := NewPoller(api, time.Hour, zerolog.Nop())
	target := newTarget("a")

	p.poll(target)

	if len(target.unauthorized) != 0 {
		t.Fatal("transient failures must not end the session")
	}
}

func TestWatch_FetchesImmediatelyAndUnwatch(t *testing.T) {
	api := &stubAPI{}
	p := NewPoller(api, time.Hour, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	a, b := newTarget("a"), newTarget("b")
	p.Watch(a)
	p.Watch(b)
	p.Watch(a)

	select {
	case <-a.got:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate poll on watch")
	}

	if p.Len() != 2 {
		t.Fatalf("expected 2 watched sessions, got %d", p.Len())
	}
	p.Unwatch("a")
	p.Unwatch("missing")
	if p.Len() != 1 {
		t.Fatalf("expected 1 watched session after unwatch, got %d", p.Len())
	}
}

func TestPoll_LateRejectionKeepsNewSession(t *testing.T) {
	api := &stubAPI{
		err:     fmt.Errorf("fetch notifications: %w", domain.ErrUnauthorized),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := NewPoller(api, time.Hour, zerolog.Nop())

	reg := service.NewRegistry(service.RegistryConfig{
		Store: memory.NewStore(),
		Auth:  stubAuth{},
		TTL:   time.Hour,
	}, zerolog.Nop())
	console, _ := reg.Open(context.Background(), "")
	console.Session.Login(context.Background(), "a@acme.io", "pw", "")

	done := make(chan struct{})
	go func() {
		p.poll(console)
		close(done)
	}()
	<-api.entered

	// The user signs out and back in as someone else while the poll for the
	// old credential is still in flight.
	console.Logout(context.Background())
	console.Session.Login(context.Background(), "b@acme.io", "pw", "")
	close(api.release)
	<-done

	snap := console.Session.Snapshot()
	if !snap.Authenticated() || snap.User.Email != "b@acme.io" {
		t.Fatalf("a late 401 for the old credential must not end the new session, got %+v", snap)
	}
}
