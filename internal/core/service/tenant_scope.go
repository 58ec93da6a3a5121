package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
)

// CurrentTenant resolves whose data a view should query. Only the super
// admin follows the selection; everyone else is pinned to their own tenant.
func CurrentTenant(user *domain.User, selected *domain.Tenant) *domain.Tenant {
	if user == nil {
		return nil
	}
	if user.IsSuperAdmin() {
		return selected
	}
	return user.Tenant
}

// TenantIDFor projects CurrentTenant to an id. false means the request must
// not be issued yet; it never means "fetch unscoped data".
func TenantIDFor(user *domain.User, selected *domain.Tenant) (int64, bool) {
	t := CurrentTenant(user, selected)
	if t == nil {
		return 0, false
	}
	return t.ID, true
}

// persistedSelection is the stored form of a super admin's choice. Owner
// keeps one user's choice from being restored for another user signing in
// on the same browser session.
type persistedSelection struct {
	Owner  string        `json:"owner"`
	Tenant domain.Tenant `json:"tenant"`
}

// TenantScope owns the selected tenant of one browser session.
type TenantScope struct {
	sessionID string
	store     ports.KVStore
	api       ports.TenantAPI
	ttl       time.Duration
	log       zerolog.Logger

	mu        sync.Mutex
	selected  *domain.Tenant
	available []domain.Tenant
	loading   bool
	scopedFor string
	gen       uint64
}

func NewTenantScope(sessionID string, store ports.KVStore, api ports.TenantAPI, ttl time.Duration, log zerolog.Logger) *TenantScope {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &TenantScope{
		sessionID: sessionID,
		store:     store,
		api:       api,
		ttl:       ttl,
		log:       log.With().Str("session", shortID(sessionID)).Logger(),
	}
}

// TenantState is the read-only view for the navbar tenant switcher.
type TenantState struct {
	Current   *domain.Tenant  `json:"current"`
	Available []domain.Tenant `json:"available,omitempty"`
	Loading   bool            `json:"loading"`
}

// State reports the scope as seen by user.
func (s *TenantScope) State(user *domain.User) TenantState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := TenantState{
		Current: CurrentTenant(user, s.selected).Clone(),
		Loading: s.loading,
	}
	if user.IsSuperAdmin() {
		st.Available = append([]domain.Tenant(nil), s.available...)
	}
	return st
}

// Current returns CurrentTenant for user against the held selection.
func (s *TenantScope) Current(user *domain.User) *domain.Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CurrentTenant(user, s.selected).Clone()
}

// TenantID returns TenantIDFor for user against the held selection.
func (s *TenantScope) TenantID(user *domain.User) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TenantIDFor(user, s.selected)
}

// Ensure initialises the scope once per user identity, so a change of user
// or role re-runs the initialisation policy.
func (s *TenantScope) Ensure(ctx context.Context, user *domain.User, token string) error {
	if user == nil {
		return nil
	}
	s.mu.Lock()
	done := s.scopedFor == scopeKey(user)
	s.mu.Unlock()
	if done {
		return nil
	}
	return s.Initialize(ctx, user, token)
}

// Initialize applies the selection policy, in order: the user's own tenant,
// then a persisted selection still present in the fresh listing, then the
// first listed tenant. Only the super admin triggers the listing.
func (s *TenantScope) Initialize(ctx context.Context, user *domain.User, token string) error {
	if user == nil {
		return nil
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if !user.IsSuperAdmin() {
		s.selected = user.Tenant.Clone()
		s.available = nil
		s.loading = false
		s.scopedFor = scopeKey(user)
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	tenants, err := s.api.ListTenants(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.loading = false
	if err != nil {
		s.log.Warn().Err(err).Msg("list tenants failed")
		return fmt.Errorf("initialise tenant scope: %w", err)
	}

	s.available = tenants
	s.scopedFor = scopeKey(user)

	switch {
	case user.Tenant != nil:
		s.selected = user.Tenant.Clone()
	default:
		if persisted, ok := s.restoreLocked(ctx, user); ok {
			s.selected = persisted
		} else if len(tenants) > 0 {
			s.selected = tenants[0].Clone()
		} else {
			s.selected = nil
		}
	}

	if s.selected != nil {
		s.log.Debug().Int64("tenant_id", s.selected.ID).Msg("tenant scope initialised")
	}
	return nil
}

// Switch selects tenantID for a super admin and persists the choice. Other
// roles cannot switch; the call is a no-op returning their own tenant.
func (s *TenantScope) Switch(ctx context.Context, user *domain.User, tenantID int64) (*domain.Tenant, error) {
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if !user.IsSuperAdmin() {
		s.log.Warn().Int64("user_id", user.ID).Msg("tenant switch attempted by non super admin, ignored")
		return user.Tenant.Clone(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := findTenant(s.available, tenantID)
	if t == nil {
		return nil, fmt.Errorf("switch tenant %d: %w", tenantID, domain.ErrTenantNotFound)
	}

	raw, err := json.Marshal(persistedSelection{Owner: scopeKey(user), Tenant: *t})
	if err != nil {
		return nil, fmt.Errorf("encode tenant: %w", err)
	}
	if err := s.store.Set(ctx, storageKey(s.sessionID, keySelectedTenant), string(raw), s.ttl); err != nil {
		return nil, fmt.Errorf("persist tenant selection: %w", err)
	}

	// The bump voids any listing still in flight, so nothing else will clear
	// the loading flag it set.
	s.gen++
	s.loading = false
	s.selected = t
	s.log.Info().Int64("tenant_id", t.ID).Str("tenant", t.Name).Msg("tenant switched")
	return t.Clone(), nil
}

// Adopt clears a scope initialised for a different identity, so a user signing
// in over another user's session never inherits that user's selection.
func (s *TenantScope) Adopt(ctx context.Context, user *domain.User) {
	if user == nil {
		return
	}
	s.mu.Lock()
	stale := s.scopedFor != "" && s.scopedFor != scopeKey(user)
	s.mu.Unlock()
	if stale {
		s.log.Debug().Int64("user_id", user.ID).Msg("identity changed, dropping tenant scope")
		s.Clear(ctx)
	}
}

// Clear drops the selection and its persisted copy.
func (s *TenantScope) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.selected = nil
	s.available = nil
	s.loading = false
	s.scopedFor = ""
	if err := s.store.Delete(ctx, storageKey(s.sessionID, keySelectedTenant)); err != nil {
		s.log.Warn().Err(err).Msg("clear persisted tenant selection failed")
	}
}

func (s *TenantScope) restoreLocked(ctx context.Context, user *domain.User) (*domain.Tenant, bool) {
	raw, err := s.store.Get(ctx, storageKey(s.sessionID, keySelectedTenant))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn().Err(err).Msg("read persisted tenant selection failed")
		}
		return nil, false
	}
	var saved persistedSelection
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		s.log.Warn().Err(err).Msg("persisted tenant selection unreadable")
		return nil, false
	}
	if saved.Owner != scopeKey(user) {
		s.log.Debug().Msg("persisted tenant selection belongs to another user, ignored")
		return nil, false
	}
	fresh := findTenant(s.available, saved.Tenant.ID)
	return fresh, fresh != nil
}

func findTenant(tenants []domain.Tenant, id int64) *domain.Tenant {
	for i := range tenants {
		if tenants[i].ID == id {
			return tenants[i].Clone()
		}
	}
	return nil
}

func scopeKey(u *domain.User) string {
	return strconv.FormatInt(u.ID, 10) + ":" + u.Role.String()
}
