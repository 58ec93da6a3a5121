package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/core/access"
	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
)

const (
	keyToken          = "token"
	keyUser           = "user"
	keySelectedTenant = "selected_tenant"

	defaultSessionTTL = 24 * time.Hour
)

// storageKey namespaces a local-storage style key by browser session.
func storageKey(sessionID, name string) string {
	return "console:" + sessionID + ":" + name
}

// SessionSnapshot is the read-only view of a session handed to the guard and
// the navigation filter. Loading must be treated as unauthenticated.
type SessionSnapshot struct {
	User    *domain.User `json:"user"`
	Loading bool         `json:"loading"`
}

// Authenticated reports whether the snapshot carries a settled user.
func (s SessionSnapshot) Authenticated() bool {
	return !s.Loading && s.User != nil
}

// LoginFailure classifies a failed login for the login form.
type LoginFailure string

const (
	FailureInvalidCredentials LoginFailure = "invalid_credentials"
	FailureNetwork            LoginFailure = "network"
	FailureServer             LoginFailure = "server"
	FailureMalformed          LoginFailure = "malformed"
	FailureSuperseded         LoginFailure = "superseded"
)

const (
	msgInvalidCredentials = "Login failed. Please check your credentials and try again."
	msgNetwork            = "Cannot connect to server. Please ensure the billing API is running and reachable."
	msgMalformed          = "Login failed - invalid response format"
	msgSuperseded         = "Login was superseded by a newer sign-in or sign-out."
	msgPersist            = "Login succeeded but the session could not be saved. Please try again."
)

// LoginResult is what the login form renders.
type LoginResult struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user,omitempty"`
	Landing string       `json:"landing,omitempty"`
	Reason  LoginFailure `json:"reason,omitempty"`
	Message string       `json:"message,omitempty"`
}

// SessionEventKind tells listeners how the session changed.
type SessionEventKind uint8

const (
	SessionAuthenticated SessionEventKind = iota + 1
	SessionEnded
)

type SessionEvent struct {
	Kind SessionEventKind
	User *domain.User
}

// Session owns the credential and user snapshot of one browser session.
//
// Every state-changing operation draws a ticket from a monotonically
// increasing counter. A result is written only when its ticket is newer than
// the ticket of the last write, so a verify or login response that arrives
// after a logout (or after a newer login) is dropped. Store I/O never runs
// under mu; storeMu orders it so the last applied operation's writes land
// last.
type Session struct {
	id    string
	store ports.KVStore
	auth  ports.AuthAPI
	ttl   time.Duration
	log   zerolog.Logger
	now   func() time.Time

	storeMu sync.Mutex

	mu        sync.Mutex
	token     string
	user      *domain.User
	loading   bool
	settled   chan struct{}
	issued    uint64
	applied   uint64
	listeners []func(SessionEvent)
}

// NewSession returns a logged-out session. Call Initialize to restore
// persisted state.
func NewSession(id string, store ports.KVStore, auth ports.AuthAPI, ttl time.Duration, log zerolog.Logger) *Session {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	settled := make(chan struct{})
	close(settled)
	return &Session{
		id:      id,
		store:   store,
		auth:    auth,
		ttl:     ttl,
		log:     log.With().Str("session", shortID(id)).Logger(),
		now:     time.Now,
		settled: settled,
	}
}

func (s *Session) ID() string { return s.id }

// markRestoring reports the session as loading until Initialize settles it,
// so a concurrent request never mistakes a restoring session for anonymous.
func (s *Session) markRestoring() {
	s.mu.Lock()
	s.beginLoadingLocked()
	s.mu.Unlock()
}

// OnChange registers fn to run after authentication or logout. Listeners run
// outside the session lock, in registration order.
func (s *Session) OnChange(fn func(SessionEvent)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{User: s.user.Clone(), Loading: s.loading}
}

// Token returns the credential of a settled, authenticated session.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading || s.token == "" || s.user == nil {
		return "", false
	}
	return s.token, true
}

// Settled returns a channel closed once no verification is in flight.
func (s *Session) Settled() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// AwaitSettled blocks until verification completes or ctx is done.
func (s *Session) AwaitSettled(ctx context.Context) error {
	select {
	case <-s.Settled():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Initialize restores the persisted credential. With a credential present the
// cached user is shown optimistically while the credential is re-verified in
// the background; Loading stays true until that verification settles.
func (s *Session) Initialize(ctx context.Context) error {
	token, err := s.load(ctx, keyToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("read persisted credential failed, starting logged out")
	}

	var cached *domain.User
	if token != "" {
		if raw, uerr := s.load(ctx, keyUser); uerr == nil && raw != "" {
			var u domain.User
			if jerr := json.Unmarshal([]byte(raw), &u); jerr == nil && u.Validate() == nil {
				cached = &u
			}
		}
	}

	s.mu.Lock()
	ticket := s.nextTicket()
	s.applied = ticket

	if token == "" {
		s.end(ctx, ticket)
		return err
	}

	if expired, exp := tokenExpired(token, s.now()); expired {
		s.log.Info().Time("expired_at", exp).Msg("persisted credential expired")
		s.end(ctx, ticket)
		return nil
	}

	s.token = token
	s.user = cached
	s.beginLoadingLocked()
	s.mu.Unlock()

	// The verification outlives the request that triggered initialisation.
	go s.verify(context.WithoutCancel(ctx), ticket, token)
	return nil
}

func (s *Session) verify(ctx context.Context, ticket uint64, token string) {
	user, err := s.auth.Verify(ctx, token)
	if err == nil {
		err = user.Validate()
	}

	s.mu.Lock()
	if s.applied != ticket {
		s.mu.Unlock()
		s.log.Debug().Msg("stale verification result ignored")
		return
	}
	if err != nil {
		s.log.Info().Err(err).Msg("credential verification failed, logging out")
		s.end(ctx, ticket)
		return
	}
	s.mu.Unlock()

	s.saveUser(ctx, ticket, token, user)

	s.mu.Lock()
	if s.applied != ticket {
		s.mu.Unlock()
		s.log.Debug().Msg("session changed while saving verified user")
		return
	}
	s.user = user.Clone()
	listeners := s.endLoadingLocked()
	s.mu.Unlock()

	s.log.Debug().Int64("user_id", user.ID).Str("role", user.Role.String()).Msg("credential verified")
	s.notify(listeners, SessionEvent{Kind: SessionAuthenticated, User: user.Clone()})
}

// Login submits credentials. Failures never touch current or persisted
// state, so a failed attempt cannot log out an existing session.
func (s *Session) Login(ctx context.Context, email, password, tenantHint string) LoginResult {
	s.mu.Lock()
	ticket := s.nextTicket()
	s.mu.Unlock()

	resp, err := s.auth.Login(ctx, ports.LoginRequest{Email: email, Password: password, TenantHint: tenantHint})
	if err != nil {
		res := loginFailure(err)
		s.log.Info().Err(err).Str("reason", string(res.Reason)).Msg("login failed")
		return res
	}
	if resp == nil || resp.Token == "" || resp.User.Validate() != nil {
		s.log.Warn().Msg("login response missing token or user")
		return LoginResult{Reason: FailureMalformed, Message: msgMalformed}
	}

	s.storeMu.Lock()
	s.mu.Lock()
	if ticket <= s.applied {
		s.mu.Unlock()
		s.storeMu.Unlock()
		s.log.Debug().Msg("stale login result ignored")
		return LoginResult{Reason: FailureSuperseded, Message: msgSuperseded}
	}
	prevToken, prevUser := s.token, s.user.Clone()
	s.mu.Unlock()

	if err := s.persist(ctx, resp.Token, resp.User, prevToken, prevUser); err != nil {
		s.storeMu.Unlock()
		s.log.Error().Err(err).Msg("persist session failed")
		return LoginResult{Reason: FailureServer, Message: msgPersist}
	}

	s.mu.Lock()
	if ticket <= s.applied {
		// A logout took over while persisting; its purge runs once storeMu
		// is released.
		s.mu.Unlock()
		s.storeMu.Unlock()
		s.log.Debug().Msg("login superseded while persisting")
		return LoginResult{Reason: FailureSuperseded, Message: msgSuperseded}
	}
	s.applied = ticket
	s.token = resp.Token
	s.user = resp.User.Clone()
	listeners := s.endLoadingLocked()
	s.mu.Unlock()
	s.storeMu.Unlock()

	s.log.Info().Int64("user_id", resp.User.ID).Str("role", resp.User.Role.String()).Msg("login succeeded")
	s.notify(listeners, SessionEvent{Kind: SessionAuthenticated, User: resp.User.Clone()})

	return LoginResult{
		Success: true,
		User:    resp.User.Clone(),
		Landing: access.LandingRouteFor(resp.User),
	}
}

// Logout purges the credential and user snapshot. It is idempotent and
// voids any verification or login still in flight.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.logoutLocked(ctx)
}

// HandleUnauthorized is the reaction every authenticated call site must
// trigger when the billing API rejects token. It logs out only while token
// is still the session's credential, so a late rejection of a credential
// that has since been replaced is ignored. It reports whether the session
// was ended.
func (s *Session) HandleUnauthorized(ctx context.Context, token string) bool {
	s.mu.Lock()
	if token == "" || token != s.token {
		s.mu.Unlock()
		s.log.Debug().Msg("rejection of a superseded credential ignored")
		return false
	}
	s.log.Warn().Msg("credential rejected by billing api, forcing logout")
	s.logoutLocked(ctx)
	return true
}

func (s *Session) logoutLocked(ctx context.Context) {
	ticket := s.nextTicket()
	s.applied = ticket
	if s.token != "" || s.user != nil {
		s.log.Info().Msg("logged out")
	}
	s.end(ctx, ticket)
}

// end settles the session as logged out. The caller holds s.mu; end releases
// it before touching the store and notifying listeners.
func (s *Session) end(ctx context.Context, ticket uint64) {
	s.clearLocked()
	listeners := s.endLoadingLocked()
	s.mu.Unlock()

	s.purge(ctx, ticket)
	s.notify(listeners, SessionEvent{Kind: SessionEnded})
}

func (s *Session) nextTicket() uint64 {
	s.issued++
	return s.issued
}

// isCurrent reports whether ticket is still the last applied operation.
func (s *Session) isCurrent(ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied == ticket
}

func (s *Session) clearLocked() {
	s.token = ""
	s.user = nil
}

func (s *Session) beginLoadingLocked() {
	if !s.loading {
		s.loading = true
		s.settled = make(chan struct{})
	}
}

// endLoadingLocked clears the loading flag and returns the listeners to
// notify once the lock is released.
func (s *Session) endLoadingLocked() []func(SessionEvent) {
	if s.loading {
		s.loading = false
		close(s.settled)
	}
	return append([]func(SessionEvent){}, s.listeners...)
}

func (s *Session) notify(listeners []func(SessionEvent), ev SessionEvent) {
	for _, fn := range listeners {
		fn(ev)
	}
}

func (s *Session) load(ctx context.Context, name string) (string, error) {
	v, err := s.store.Get(ctx, storageKey(s.id, name))
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// purge removes the persisted credential unless a newer operation has been
// applied since ticket.
func (s *Session) purge(ctx context.Context, ticket uint64) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if !s.isCurrent(ticket) {
		return
	}
	if err := s.store.Delete(ctx, storageKey(s.id, keyToken), storageKey(s.id, keyUser)); err != nil {
		s.log.Warn().Err(err).Msg("purge persisted credential failed")
	}
}

func (s *Session) saveUser(ctx context.Context, ticket uint64, token string, u *domain.User) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if !s.isCurrent(ticket) {
		return
	}
	raw, err := json.Marshal(u)
	if err == nil {
		err = s.store.Set(ctx, storageKey(s.id, keyUser), string(raw), s.ttlFor(token))
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("refresh persisted user snapshot failed")
	}
}

// persist writes the new credential and user. On a partial failure the
// previous pair is put back. The caller holds storeMu.
func (s *Session) persist(ctx context.Context, token string, u *domain.User, prevToken string, prevUser *domain.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	ttl := s.ttlFor(token)
	if err := s.store.Set(ctx, storageKey(s.id, keyToken), token, ttl); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.store.Set(ctx, storageKey(s.id, keyUser), string(raw), ttl); err != nil {
		s.rollback(ctx, prevToken, prevUser)
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func (s *Session) rollback(ctx context.Context, token string, u *domain.User) {
	if token == "" || u == nil {
		if err := s.store.Delete(ctx, storageKey(s.id, keyToken), storageKey(s.id, keyUser)); err != nil {
			s.log.Warn().Err(err).Msg("roll back partial credential failed")
		}
		return
	}
	if err := s.store.Set(ctx, storageKey(s.id, keyToken), token, s.ttlFor(token)); err != nil {
		s.log.Warn().Err(err).Msg("restore previous credential failed")
	}
}

// ttlFor bounds persistence by the credential's own expiry when it has one.
func (s *Session) ttlFor(token string) time.Duration {
	ttl := s.ttl
	if exp, ok := tokenExpiry(token); ok {
		if left := exp.Sub(s.now()); left > 0 && left < ttl {
			ttl = left
		}
	}
	return ttl
}

// tokenExpiry reads the exp claim without checking the signature; the
// billing API remains the authority on validity. Opaque tokens have none.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func tokenExpired(token string, now time.Time) (bool, time.Time) {
	exp, ok := tokenExpiry(token)
	if !ok {
		return false, time.Time{}
	}
	return !now.Before(exp), exp
}

func loginFailure(err error) LoginResult {
	var apiErr *ports.APIError
	msg := ""
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}

	switch {
	case errors.Is(err, domain.ErrTransport):
		return LoginResult{Reason: FailureNetwork, Message: orDefault(msg, msgNetwork)}
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		return LoginResult{Reason: FailureInvalidCredentials, Message: orDefault(msg, msgInvalidCredentials)}
	case errors.Is(err, domain.ErrMalformedResponse):
		return LoginResult{Reason: FailureMalformed, Message: orDefault(msg, msgMalformed)}
	default:
		return LoginResult{Reason: FailureServer, Message: orDefault(msg, msgInvalidCredentials)}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
