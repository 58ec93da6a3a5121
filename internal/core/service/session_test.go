package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
)

const sid = "5b0e8f3a-6c1d-4d5e-9f00-1a2b3c4d5e6f"

func newSession(store ports.KVStore, auth ports.AuthAPI) *Session {
	return NewSession(sid, store, auth, time.Hour, zerolog.Nop())
}

func persisted(t *testing.T, store ports.KVStore, name string) string {
	t.Helper()
	v, err := store.Get(context.Background(), storageKey(sid, name))
	if errors.Is(err, domain.ErrNotFound) {
		return ""
	}
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	return v
}

func TestInitialize_NoCredential(t *testing.T) {
	auth := authFor(adminUser)
	s := newSession(newMemoryStore(), auth)
	s.markRestoring()

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	snap := s.Snapshot()
	if snap.User != nil || snap.Loading {
		t.Fatalf("expected settled anonymous session, got %+v", snap)
	}
	if _, ok := s.Token(); ok {
		t.Fatal("expected no token")
	}
	if auth.verifications() != 0 {
		t.Fatal("verification must not run without a credential")
	}
}

func TestLogin_PersistsAndLands(t *testing.T) {
	store := newMemoryStore()
	s := newSession(store, authFor(customerUser))

	var events []SessionEventKind
	s.OnChange(func(ev SessionEvent) { events = append(events, ev.Kind) })

	res := s.Login(context.Background(), customerUser.Email, "pw", "")
	if !res.Success || res.Landing != "/portal" {
		t.Fatalf("unexpected result %+v", res)
	}
	if tok, ok := s.Token(); !ok || tok != "tok-"+customerUser.Email {
		t.Fatalf("unexpected token %q", tok)
	}
	if persisted(t, store, keyToken) == "" || persisted(t, store, keyUser) == "" {
		t.Fatal("expected token and user persisted")
	}
	if len(events) != 1 || events[0] != SessionAuthenticated {
		t.Fatalf("expected one authenticated event, got %v", events)
	}
}

func TestLogin_FailureLeavesSessionUntouched(t *testing.T) {
	store := newMemoryStore()
	auth := authFor(adminUser)
	s := newSession(store, auth)
	if res := s.Login(context.Background(), adminUser.Email, "pw", ""); !res.Success {
		t.Fatalf("first login failed: %+v", res)
	}

	auth.loginFn = func(context.Context, ports.LoginRequest) (*ports.LoginResponse, error) {
		return nil, &ports.APIError{Status: 401, Message: "Invalid email or password", Err: domain.ErrInvalidCredentials}
	}
	res := s.Login(context.Background(), "someone@else.io", "bad", "")

	if res.Success || res.Reason != FailureInvalidCredentials || res.Message != "Invalid email or password" {
		t.Fatalf("unexpected result %+v", res)
	}
	if u := s.Snapshot().User; u == nil || u.ID != adminUser.ID {
		t.Fatalf("existing session must survive a failed login, got %+v", u)
	}
	if persisted(t, store, keyToken) != "tok-"+adminUser.Email {
		t.Fatal("persisted token must be unchanged")
	}
}

func TestLogin_TenantHintMismatchMessageIsVerbatim(t *testing.T) {
	const msg = "This account is not registered with business OTHER"
	store := newMemoryStore()
	auth := &stubAuth{loginFn: func(_ context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
		if req.TenantHint != "OTHER" {
			t.Errorf("expected the tenant hint to be forwarded, got %q", req.TenantHint)
		}
		return nil, &ports.APIError{Status: 403, Message: msg, Err: domain.ErrInvalidCredentials}
	}}
	s := newSession(store, auth)

	res := s.Login(context.Background(), adminUser.Email, "pw", "OTHER")

	if res.Success || res.Message != msg {
		t.Fatalf("expected verbatim message, got %+v", res)
	}
	if persisted(t, store, keyToken) != "" {
		t.Fatal("no token may be persisted on failure")
	}
	if s.Snapshot().User != nil {
		t.Fatal("no user may be set on failure")
	}
}

func TestLogin_NetworkFailure(t *testing.T) {
	auth := &stubAuth{loginFn: func(context.Context, ports.LoginRequest) (*ports.LoginResponse, error) {
		return nil, &ports.APIError{Err: domain.ErrTransport}
	}}
	s := newSession(newMemoryStore(), auth)

	res := s.Login(context.Background(), "a@b.io", "pw", "")
	if res.Reason != FailureNetwork || res.Message == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLogin_MalformedResponse(t *testing.T) {
	auth := &stubAuth{loginFn: func(context.Context, ports.LoginRequest) (*ports.LoginResponse, error) {
		return &ports.LoginResponse{Token: "tok"}, nil
	}}
	s := newSession(newMemoryStore(), auth)

	if res := s.Login(context.Background(), "a@b.io", "pw", ""); res.Reason != FailureMalformed {
		t.Fatalf("expected malformed, got %+v", res)
	}
}

func TestLogin_LastAttemptWins(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	auth := &stubAuth{loginFn: func(_ context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
		if req.Email == adminUser.Email {
			close(entered)
			<-release
			return &ports.LoginResponse{Token: "tok-admin", User: adminUser.Clone()}, nil
		}
		return &ports.LoginResponse{Token: "tok-super", User: superUser.Clone()}, nil
	}}
	s := newSession(newMemoryStore(), auth)

	first := make(chan LoginResult, 1)
	go func() { first <- s.Login(context.Background(), adminUser.Email, "pw", "") }()
	<-entered

	if res := s.Login(context.Background(), superUser.Email, "pw", ""); !res.Success {
		t.Fatalf("second login failed: %+v", res)
	}
	close(release)

	if res := <-first; res.Success || res.Reason != FailureSuperseded {
		t.Fatalf("expected the older login to be superseded, got %+v", res)
	}
	if u := s.Snapshot().User; u == nil || !u.IsSuperAdmin() {
		t.Fatalf("expected the latest login to hold, got %+v", u)
	}
}

func TestLogout_PurgesAndIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	s := newSession(store, authFor(adminUser))
	s.Login(context.Background(), adminUser.Email, "pw", "")

	ended := 0
	s.OnChange(func(ev SessionEvent) {
		if ev.Kind == SessionEnded {
			ended++
		}
	})

	s.Logout(context.Background())
	s.Logout(context.Background())

	if s.Snapshot().User != nil {
		t.Fatal("expected logged out")
	}
	if persisted(t, store, keyToken) != "" || persisted(t, store, keyUser) != "" {
		t.Fatal("expected persisted credential purged")
	}
	if ended != 2 {
		t.Fatalf("expected an ended event per logout, got %d", ended)
	}
}

func TestInitialize_RestoresAndVerifies(t *testing.T) {
	store := newMemoryStore()
	first := newSession(store, authFor(adminUser))
	first.Login(context.Background(), adminUser.Email, "pw", "")

	release := make(chan struct{})
	fresh := adminUser.Clone()
	fresh.Name = "Renamed Admin"
	auth := &stubAuth{verifyFn: func(context.Context, string) (*domain.User, error) {
		<-release
		return fresh, nil
	}}
	restored := newSession(store, auth)
	restored.markRestoring()

	if err := restored.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	snap := restored.Snapshot()
	if !snap.Loading || snap.User == nil || snap.User.ID != adminUser.ID {
		t.Fatalf("expected optimistic cached user while loading, got %+v", snap)
	}
	if snap.Authenticated() {
		t.Fatal("a loading session is not authenticated yet")
	}
	if _, ok := restored.Token(); ok {
		t.Fatal("token must not be handed out while loading")
	}

	close(release)
	if err := restored.AwaitSettled(context.Background()); err != nil {
		t.Fatalf("await settled: %v", err)
	}

	snap = restored.Snapshot()
	if snap.Loading || snap.User == nil || snap.User.Name != "Renamed Admin" {
		t.Fatalf("expected verified user, got %+v", snap)
	}
	var saved domain.User
	_ = json.Unmarshal([]byte(persisted(t, store, keyUser)), &saved)
	if saved.Name != "Renamed Admin" {
		t.Fatal("expected the refreshed user persisted")
	}
}

func TestInitialize_RejectedCredentialLogsOut(t *testing.T) {
	store := newMemoryStore()
	newSession(store, authFor(adminUser)).Login(context.Background(), adminUser.Email, "pw", "")

	auth := &stubAuth{verifyFn: func(context.Context, string) (*domain.User, error) {
		return nil, &ports.APIError{Status: 401, Err: domain.ErrUnauthorized}
	}}
	restored := newSession(store, auth)
	restored.markRestoring()
	_ = restored.Initialize(context.Background())

	if err := restored.AwaitSettled(context.Background()); err != nil {
		t.Fatalf("await settled: %v", err)
	}
	if snap := restored.Snapshot(); snap.User != nil || snap.Loading {
		t.Fatalf("expected logged out, got %+v", snap)
	}
	if persisted(t, store, keyToken) != "" {
		t.Fatal("expected credential purged")
	}
}

func TestInitialize_ExpiredCredentialSkipsVerification(t *testing.T) {
	store := newMemoryStore()
	_ = store.Set(context.Background(), storageKey(sid, keyToken), signedToken(t, time.Now().Add(-time.Minute)), 0)

	auth := authFor(adminUser)
	s := newSession(store, auth)
	s.markRestoring()
	_ = s.Initialize(context.Background())

	if snap := s.Snapshot(); snap.User != nil || snap.Loading {
		t.Fatalf("expected settled anonymous session, got %+v", snap)
	}
	if auth.verifications() != 0 {
		t.Fatal("an expired credential must not be verified")
	}
	if persisted(t, store, keyToken) != "" {
		t.Fatal("expected the expired credential purged")
	}
}

func TestVerify_StaleResultAfterLogoutIsIgnored(t *testing.T) {
	store := newMemoryStore()
	newSession(store, authFor(adminUser)).Login(context.Background(), adminUser.Email, "pw", "")

	release := make(chan struct{})
	returned := make(chan struct{})
	auth := &stubAuth{verifyFn: func(context.Context, string) (*domain.User, error) {
		<-release
		defer close(returned)
		return adminUser.Clone(), nil
	}}
	s := newSession(store, auth)
	s.markRestoring()
	_ = s.Initialize(context.Background())

	s.Logout(context.Background())
	close(release)
	<-returned
	time.Sleep(20 * time.Millisecond)

	if s.Snapshot().User != nil {
		t.Fatal("a verification settling after logout must not resurrect the session")
	}
	if persisted(t, store, keyUser) != "" {
		t.Fatal("a stale verification must not persist the user again")
	}
}

func TestTTL_BoundedByCredentialExpiry(t *testing.T) {
	s := newSession(newMemoryStore(), authFor(adminUser))
	tok := signedToken(t, time.Now().Add(10*time.Minute))

	if ttl := s.ttlFor(tok); ttl > 10*time.Minute || ttl < 9*time.Minute {
		t.Fatalf("expected ttl near 10m, got %v", ttl)
	}
	if ttl := s.ttlFor("opaque"); ttl != time.Hour {
		t.Fatalf("expected the default ttl for opaque tokens, got %v", ttl)
	}
}

func TestHandleUnauthorized_EndsSession(t *testing.T) {
	s := newSession(newMemoryStore(), authFor(adminUser))
	s.Login(context.Background(), adminUser.Email, "pw", "")

	if !s.HandleUnauthorized(context.Background(), "tok-"+adminUser.Email) {
		t.Fatal("expected the rejection of the current credential to end the session")
	}
	if s.Snapshot().User != nil {
		t.Fatal("expected logged out")
	}
}

func TestHandleUnauthorized_IgnoresReplacedCredential(t *testing.T) {
	store := newMemoryStore()
	s := newSession(store, authFor(adminUser))
	s.Login(context.Background(), "old@acme.io", "pw", "")
	s.Logout(context.Background())
	s.Login(context.Background(), adminUser.Email, "pw", "")

	for _, tok := range []string{"tok-old@acme.io", ""} {
		if s.HandleUnauthorized(context.Background(), tok) {
			t.Fatalf("rejection of %q must not end the session", tok)
		}
	}
	if !s.Snapshot().Authenticated() {
		t.Fatal("expected the new session to survive")
	}
	if persisted(t, store, keyToken) != "tok-"+adminUser.Email {
		t.Fatal("expected the new credential to stay persisted")
	}
}

// gatedStore holds every Set until release is closed.
type gatedStore struct {
	ports.KVStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.KVStore.Set(ctx, key, value, ttl)
}

func TestLogin_StoreWritesDoNotBlockReaders(t *testing.T) {
	store := &gatedStore{KVStore: newMemoryStore(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := newSession(store, authFor(adminUser))

	done := make(chan LoginResult)
	go func() { done <- s.Login(context.Background(), adminUser.Email, "pw", "") }()
	<-store.entered

	read := make(chan struct{})
	go func() {
		_ = s.Snapshot()
		_, _ = s.Token()
		close(read)
	}()
	select {
	case <-read:
	case <-time.After(time.Second):
		t.Fatal("readers must not wait for store writes")
	}

	close(store.release)
	if res := <-done; !res.Success {
		t.Fatalf("expected login success, got %+v", res)
	}
}

func TestLogin_LogoutWhilePersistingWins(t *testing.T) {
	backing := newMemoryStore()
	store := &gatedStore{KVStore: backing, entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := newSession(store, authFor(adminUser))

	done := make(chan LoginResult)
	go func() { done <- s.Login(context.Background(), adminUser.Email, "pw", "") }()
	<-store.entered

	loggedOut := make(chan struct{})
	go func() {
		s.Logout(context.Background())
		close(loggedOut)
	}()
	waitFor(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.applied > 0
	})

	close(store.release)
	if res := <-done; res.Success || res.Reason != FailureSuperseded {
		t.Fatalf("expected the login superseded by the logout, got %+v", res)
	}
	<-loggedOut

	if s.Snapshot().User != nil {
		t.Fatal("expected logged out")
	}
	if persisted(t, backing, keyToken) != "" || persisted(t, backing, keyUser) != "" {
		t.Fatal("expected the logout to purge what the superseded login wrote")
	}
}
