// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the secrets HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Run database migrations (idempotent).
//  4. Open the user store (PostgreSQL or SQLite).
//  5. Connect to Redis for sessions.
//  6. Wire services and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/secrets/internal/api"
	"github.com/taibuivan/secrets/internal/platform/config"
	"github.com/taibuivan/secrets/internal/platform/constants"
	"github.com/taibuivan/secrets/internal/platform/migration"
	pgstore "github.com/taibuivan/secrets/internal/platform/postgres"
	redisstore "github.com/taibuivan/secrets/internal/platform/redis"
	"github.com/taibuivan/secrets/internal/platform/sec"
	"github.com/taibuivan/secrets/internal/users/auth"
	"github.com/taibuivan/secrets/internal/users/secret"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_driver", cfg.StoreDriver),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3 & 4. Migrations and user store ──────────────────────────────────
	var (
		userRepository auth.UserRepository
		checks         []api.HealthCheck
	)

	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		must(log, migration.RunUp(migration.DriverSQLite, cfg.SQLitePath, cfg.MigrationPath, log), "run migrations")

		repository, err := auth.NewSQLiteUserRepository(startupCtx, cfg.SQLitePath)
		must(log, err, "open sqlite")
		defer func() {
			log.Info("closing sqlite database")
			if cerr := repository.Close(); cerr != nil {
				log.Error("sqlite close error", slog.Any("error", cerr))
			}
		}()

		userRepository = repository
		checks = append(checks, api.HealthCheck{Name: "sqlite", Probe: repository.Ping})

	default:
		must(log, migration.RunUp(migration.DriverPostgres, cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing postgres pool")
			pool.Close()
		}()

		userRepository = auth.NewPostgresUserRepository(pool)
		checks = append(checks, api.HealthCheck{Name: "postgres", Probe: func(context context.Context) error {
			return pgstore.Ping(context, pool)
		}})
	}

	// ── 5. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	checks = append(checks, api.HealthCheck{Name: "redis", Probe: func(context context.Context) error {
		return redisstore.Ping(context, rdb)
	}})

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	sessions := auth.NewSessionManager(auth.NewRedisSessionStore(rdb), cfg.SessionIdleTTL, cfg.SessionMaxTTL)

	authService, err := auth.NewService(userRepository, sessions, cfg.BcryptCost)
	must(log, err, "initialize auth service")

	var federationService *auth.FederationService
	if configured := cfg.Providers(); len(configured) > 0 {
		stateSigner, err := sec.NewStateSigner(cfg.SessionSecret, constants.StateIssuer, cfg.OAuthStateTTL)
		must(log, err, "initialize oauth state signer")

		providers := make([]auth.Provider, 0, len(configured))
		for name, providerConfig := range configured {
			providers = append(providers, auth.NewProvider(name, providerConfig))
		}

		federationService = auth.NewFederationService(providers, userRepository, sessions, stateSigner, cfg.OAuthHTTPTimeout)
		log.Info("federation_enabled", slog.Any("providers", federationService.Providers()))
	}

	authHandler := auth.NewHandler(authService, federationService, auth.HandlerConfig{
		CookieSecure: cfg.CookieSecure,
		LoginURL:     cfg.LoginURL,
		LandingURL:   cfg.LandingURL,
		StateTTL:     cfg.OAuthStateTTL,
	})
	secretHandler := secret.NewHandler(secret.NewService(userRepository, sessions))

	liveness, readiness := api.NewHealthHandlers(checks, log)

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(cfg, log, sessions, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Secret:    secretHandler,
	})

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
