package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/bookbot/core/config"
	coredatabase "github.com/m3rciful/bookbot/core/database"
	"github.com/m3rciful/bookbot/core/logger"
)

// DefaultWaitTimeout bounds how long Run waits for postgres to accept connections.
const DefaultWaitTimeout = 30 * time.Second

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config  *coreconfig.Config
	Modules Modules

	// SkipLogger leaves the logger as the caller configured it.
	SkipLogger bool
	// WaitTimeout > 0 waits for postgres before connecting.
	WaitTimeout time.Duration

	LoggerInit   func(*coreconfig.Config) error
	Connect      func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate      func(db *sqlx.DB, driver string) error
	ConnectRedis func(ctx context.Context, cfg coreconfig.RedisConfig) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
	// Redis is nil when no address is configured.
	Redis *redis.Client
}

// Close releases the database and Redis handles.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger, connects to the database, applies migrations,
// connects Redis when configured, and runs the seeders.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	if !opts.SkipLogger {
		loggerInit := opts.LoggerInit
		if loggerInit == nil {
			loggerInit = logger.InitLogger
		}
		if err := loggerInit(cfg); err != nil {
			return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
		}
	}

	if opts.WaitTimeout > 0 && cfg.Database.Driver == coreconfig.DriverPostgres {
		if err := coredatabase.WaitForPostgres(coredatabase.DSN(cfg.Database), opts.WaitTimeout); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	res := &Result{DB: db}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(db, cfg.Database.Driver); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	if cfg.Redis.Enabled() {
		connectRedis := opts.ConnectRedis
		if connectRedis == nil {
			connectRedis = coredatabase.ConnectRedis
		}
		rdb, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = rdb
	}

	for _, s := range opts.Modules.Seeders {
		if err := s.Seed(ctx, db); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: seeding failed: %w", err)
		}
	}

	return res, nil
}
