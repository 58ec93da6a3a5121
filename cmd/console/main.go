// Command console runs the ISP billing console gateway.
//
// @title        ISP Billing Console Gateway
// @version      1.0
// @description  Session, role-based access and tenant scoping for the ISP billing console.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/api"
	"github.com/ispbilling/console/internal/api/handler"
	"github.com/ispbilling/console/internal/api/metrics"
	"github.com/ispbilling/console/internal/api/middleware"
	"github.com/ispbilling/console/internal/core/policy"
	"github.com/ispbilling/console/internal/core/ports"
	"github.com/ispbilling/console/internal/core/service"
	"github.com/ispbilling/console/internal/infrastructure/db/memory"
	mongostore "github.com/ispbilling/console/internal/infrastructure/db/mongo"
	redisstore "github.com/ispbilling/console/internal/infrastructure/db/redis"
	"github.com/ispbilling/console/internal/infrastructure/queue"
	"github.com/ispbilling/console/internal/infrastructure/upstream"
	"github.com/ispbilling/console/internal/pkg/config"
	"github.com/ispbilling/console/pkg/logger"
)

const memoryJanitorInterval = time.Minute

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: "billing-console",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("console gateway stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, ready, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := upstream.New(cfg.Upstream.URL, cfg.Upstream.Timeout, log)
	if err != nil {
		return err
	}
	ready["billing_api"] = client

	poller := queue.NewPoller(client, cfg.Upstream.NotificationInterval, log)
	poller.OnResult = func(outcome string) {
		metrics.NotificationPollsTotal.WithLabelValues(outcome).Inc()
		if outcome == "unauthorized" {
			metrics.ForcedLogoutsTotal.WithLabelValues("poller").Inc()
		}
	}
	poller.Start(ctx)

	registry := service.NewRegistry(service.RegistryConfig{
		Store:   store,
		Auth:    client,
		Tenants: client,
		Watcher: poller,
		Size:    cfg.Session.CacheSize,
		TTL:     cfg.Session.TTL,
	}, logger.Component("session"))

	navigator, err := service.NewNavigator(policy.Routes, policy.Menu)
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Registry:  registry,
		Guard:     service.NewGuard(policy.Routes),
		Navigator: navigator,
		Cookie: middleware.CookieConfig{
			Name:   cfg.Session.Cookie,
			Secure: cfg.Session.CookieSecure,
			MaxAge: cfg.Session.TTL,
		},
		Upstream:  client.BaseURL(),
		Transport: client.Transport(),
		Ready:     ready,
		Log:       log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Str("upstream", cfg.Upstream.URL).Msg("console gateway listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	poller.Stop()
	return nil
}

// openStore builds the session key-value store selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config) (ports.KVStore, map[string]handler.Pinger, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		s := redisstore.NewStore(rdb, "")
		return s, map[string]handler.Pinger{"redis": s}, func() { _ = rdb.Close() }, nil

	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, nil, err
		}
		s := mongostore.NewStore(db)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return s, map[string]handler.Pinger{"mongodb": s}, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		s := memory.NewStore()
		s.StartJanitor(ctx, memoryJanitorInterval)
		return s, map[string]handler.Pinger{"memory": s}, func() {}, nil
	}
}
