// Package control assembles the storefront from configuration and runs its
// lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/config"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/worker"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/cache"
	redisclient "github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/redis"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage/memory"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/storage/postgres"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/mail"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/otp"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/ratelimit"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/server"
)

// App is the main application struct that manages the server lifecycle.
type App struct {
	cfg         *config.AppConfig
	server      *server.Server
	db          *postgres.DB
	redisClient *redisclient.Client
	memCache    *cache.TTLCache
	memOTP      *otp.MemoryStore
	pruner      *worker.Pruner
	log         *slog.Logger

	storageKind string
	sharedState bool
}

// NewApp creates the application with all dependencies initialized.
// Without a database URL the catalog lives in memory; without a reachable
// Redis the cache, limiter and code store do too.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}

	// 1. Initialize Storage
	var (
		products storage.ProductRepository
		users    storage.UserRepository
		checks   []server.HealthCheck
	)
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		a.storageKind = "postgres"
		products = postgres.NewProductRepo(db)
		users = postgres.NewUserRepo(db)
		checks = append(checks, server.HealthCheck{Name: "database", Check: db.Health})
		a.log.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		a.storageKind = "memory"
		products = memory.NewProductRepo(store)
		users = memory.NewUserRepo(store)
		a.log.Info("Using Memory storage")
	}

	// 2. Initialize Redis-backed shared state
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.log.Warn("Failed to connect to Redis, using in-process state", "error", err)
		} else {
			a.redisClient = client
			a.sharedState = true
			checks = append(checks, server.HealthCheck{Name: "redis", Check: client.Ping})
		}
	}

	var (
		store   cache.Store
		limiter ratelimit.Limiter
		codes   otp.Store
	)
	if a.redisClient != nil {
		store = redisclient.NewCacheStore(a.redisClient)
		limiter = redisclient.NewRateLimiter(a.redisClient, cfg.RateLimit)
		codes = redisclient.NewOTPStore(a.redisClient)
		a.log.Info("Using Redis for cache, rate limits and reset codes")
	} else {
		a.memCache = cache.NewTTLCache(cache.WithCleanupInterval(cfg.Cache.CleanupInterval))
		store = cache.NewMemoryStore(a.memCache)

		windows := ratelimit.NewFixedWindow(cfg.RateLimit)
		limiter = windows
		a.pruner = worker.NewPruner(cfg.Cache.CleanupInterval,
			worker.Task{Name: "rate_limit", Prune: windows.Prune},
		)

		a.memOTP = otp.NewMemoryStore()
		codes = a.memOTP
	}

	// 3. Initialize Services
	mailer := mail.NewLogMailer(cfg.Mail, a.log)
	codeService := otp.NewService(codes, mailer, cfg.OTP)

	a.server = server.New(cfg.Server, server.Deps{
		Products: products,
		Users:    users,
		Cache:    store,
		Limiter:  limiter,
		OTP:      codeService,
		Checks:   checks,
	})
	return a, nil
}

// StorageKind reports "postgres" or "memory".
func (a *App) StorageKind() string { return a.storageKind }

// SharedState reports whether cache, limiter and codes live in Redis.
func (a *App) SharedState() bool { return a.sharedState }

// Server returns the HTTP server.
func (a *App) Server() *server.Server { return a.server }

// Start migrates the database, launches background workers and starts
// serving in the background.
func (a *App) Start(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.Migrate(ctx); err != nil {
			return err
		}
		a.db.StartMetricsCollector(ctx)
	}

	if a.memCache != nil {
		a.memCache.StartCleanup(ctx)
	}
	if a.pruner != nil {
		go a.pruner.Start(ctx)
	}

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down and releases every connection.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping storefront...")

	var errs []error
	if err := a.server.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop server: %w", err))
	}

	if a.memCache != nil {
		a.memCache.Shutdown()
	}
	if a.memOTP != nil {
		a.memOTP.Shutdown()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}
