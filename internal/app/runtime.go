package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	"github.com/odyssey-erp/odyssey-ledger/migrations"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// detectTestMode reads the ODYSSEY_TEST_MODE flag once.
func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}

// Runtime holds the connections shared by the API, the worker and the CLI.
type Runtime struct {
	Config  *Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
}

// NewRuntime connects to Postgres, applies migrations when enabled and connects to Redis.
// Redis is optional: without it reports are served uncached.
func NewRuntime(ctx context.Context, cfg *Config, logger *slog.Logger) (*Runtime, error) {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool, migrations.Files, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	rt := &Runtime{Config: cfg, Logger: logger, Pool: pool, Metrics: observability.NewMetrics()}
	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		rt.Redis = client
	}
	return rt, nil
}

// Ledger wires the accounting module over the runtime connections.
func (rt *Runtime) Ledger() *accounting.Module {
	var reportCache *reports.Cache
	if rt.Redis != nil {
		reportCache = reports.NewCache(rt.Redis, rt.Config.ReportCacheTTL)
	}
	return accounting.NewModule(accounting.NewRepositories(rt.Pool), accounting.Deps{
		Audit:       shared.NewAuditLogger(rt.Pool, rt.Logger),
		Metrics:     rt.Metrics,
		Cache:       reportCache,
		Idempotency: shared.NewIdempotencyStore(rt.Pool),
		Options:     rt.Config.LedgerOptions(),
		Logger:      rt.Logger,
	})
}

// RedisOpt returns the asynq connection settings.
func (rt *Runtime) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: rt.Config.RedisAddr, Password: rt.Config.RedisPassword, DB: rt.Config.RedisDB}
}

// Close releases the runtime connections.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			rt.Logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}
