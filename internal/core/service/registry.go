package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/core/ports"
)

const defaultRegistrySize = 4096

// Console is everything the gateway keeps for one browser session: the
// session store, the tenant scope and the last polled notifications.
type Console struct {
	Session *Session
	Tenants *TenantScope

	notifications atomic.Pointer[ports.NotificationSummary]
}

func (c *Console) ID() string { return c.Session.ID() }

func (c *Console) Token() (string, bool) { return c.Session.Token() }

func (c *Console) Deliver(sum ports.NotificationSummary) {
	c.notifications.Store(&sum)
}

// Notifications returns the last delivered summary, or nil.
func (c *Console) Notifications() *ports.NotificationSummary {
	return c.notifications.Load()
}

// Unauthorized ends the session when token is still its credential and
// reports whether it did.
func (c *Console) Unauthorized(ctx context.Context, token string) bool {
	return c.Session.HandleUnauthorized(ctx, token)
}

// Logout ends the session; tenant scope and polling follow via listeners.
func (c *Console) Logout(ctx context.Context) {
	c.Session.Logout(ctx)
}

// RegistryConfig wires the collaborators shared by every console.
type RegistryConfig struct {
	Store   ports.KVStore
	Auth    ports.AuthAPI
	Tenants ports.TenantAPI
	Watcher ports.Watcher
	// Size bounds the live consoles held in memory; evicted consoles are
	// rebuilt from the store on the next request.
	Size int
	TTL  time.Duration
}

// Registry maps browser session ids to live consoles.
type Registry struct {
	cfg   RegistryConfig
	log   zerolog.Logger
	mu    sync.Mutex
	cache *lru.LRU[string, *Console]
}

func NewRegistry(cfg RegistryConfig, log zerolog.Logger) *Registry {
	if cfg.Size <= 0 {
		cfg.Size = defaultRegistrySize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}
	r := &Registry{cfg: cfg, log: log}
	r.cache = lru.NewLRU[string, *Console](cfg.Size, r.evicted, cfg.TTL)
	return r
}

// Open returns the console for id, restoring it from the store when it is not
// live. An empty id yields a fresh console with a new id.
func (r *Registry) Open(ctx context.Context, id string) (*Console, error) {
	if id != "" {
		if _, err := uuid.Parse(id); err != nil {
			id = ""
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	if c, ok := r.cache.Get(id); ok {
		r.mu.Unlock()
		return c, nil
	}
	c := r.build(id)
	r.cache.Add(id, c)
	r.mu.Unlock()

	if err := c.Session.Initialize(ctx); err != nil {
		r.log.Warn().Err(err).Str("session", shortID(id)).Msg("session initialisation degraded")
	}
	return c, nil
}

// Len reports the number of live consoles.
func (r *Registry) Len() int {
	return r.cache.Len()
}

func (r *Registry) build(id string) *Console {
	c := &Console{
		Session: NewSession(id, r.cfg.Store, r.cfg.Auth, r.cfg.TTL, r.log),
		Tenants: NewTenantScope(id, r.cfg.Store, r.cfg.Tenants, r.cfg.TTL, r.log),
	}
	c.Session.markRestoring()
	c.Session.OnChange(func(ev SessionEvent) {
		switch ev.Kind {
		case SessionAuthenticated:
			c.Tenants.Adopt(context.Background(), ev.User)
			if r.cfg.Watcher != nil {
				r.cfg.Watcher.Watch(c)
			}
		case SessionEnded:
			if r.cfg.Watcher != nil {
				r.cfg.Watcher.Unwatch(c.ID())
			}
			c.notifications.Store(nil)
			c.Tenants.Clear(context.Background())
		}
	})
	return c
}

// evicted stops polling for a console dropped from memory. Its persisted
// state is left alone so the next request restores it.
func (r *Registry) evicted(id string, _ *Console) {
	if r.cfg.Watcher != nil {
		r.cfg.Watcher.Unwatch(id)
	}
}
