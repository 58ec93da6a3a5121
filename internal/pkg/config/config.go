package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store backends for the session key-value store.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Upstream     UpstreamConfig
	Session      SessionConfig
	StoreBackend string `env:"STORE_BACKEND, default=memory"`

	Mongo MongoConfig
	Redis RedisConfig
}

type UpstreamConfig struct {
	URL                  string        `env:"UPSTREAM_URL,          default=http://localhost:8000/api"`
	Timeout              time.Duration `env:"UPSTREAM_TIMEOUT,      default=15s"`
	NotificationInterval time.Duration `env:"NOTIFICATION_INTERVAL, default=30s"`
}

type SessionConfig struct {
	Cookie       string        `env:"SESSION_COOKIE,        default=console_sid"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE, default=false"`
	CacheSize    int           `env:"SESSION_CACHE_SIZE,    default=4096"`
	TTL          time.Duration `env:"SESSION_TTL,           default=24h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=billing_console"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Development reports whether the gateway runs in a local environment.
func (c *Config) Development() bool {
	return c.Env == "development" || c.Env == "local"
}

// Validate rejects settings the gateway cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreRedis, StoreMongo:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive")
	}
	if c.Upstream.NotificationInterval < time.Second {
		return fmt.Errorf("config: NOTIFICATION_INTERVAL must be at least 1s")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := Process(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// Process reads and validates configuration from l.
func Process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
