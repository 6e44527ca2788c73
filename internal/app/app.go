package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Varun5711/tinyauth/internal/auth"
	"github.com/Varun5711/tinyauth/internal/config"
	"github.com/Varun5711/tinyauth/internal/database"
	"github.com/Varun5711/tinyauth/internal/events"
	"github.com/Varun5711/tinyauth/internal/lock"
	"github.com/Varun5711/tinyauth/internal/logger"
	redisclient "github.com/Varun5711/tinyauth/internal/redis"
	"github.com/Varun5711/tinyauth/internal/service"
	"github.com/Varun5711/tinyauth/internal/storage"
)

const (
	eventStreamMaxLen = 100_000
	migrationLockKey  = "tinyauth:lock:migrate"
	migrationLockTTL  = time.Minute
)

// App holds the dependencies shared by the HTTP gateway and the gRPC service.
type App struct {
	Config  *config.Config
	Hasher  auth.Hasher
	Tokens  *auth.JWTManager
	Store   storage.UserStore
	Service *service.UserService
	Redis   *redisclient.Client

	health  func(ctx context.Context) error
	closers []func()
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg}

	hasher, err := auth.NewHasher(auth.HasherConfig{
		Algorithm:     cfg.Auth.HashAlgorithm,
		BcryptCost:    cfg.Auth.BcryptCost,
		Argon2Time:    cfg.Auth.Argon2Time,
		Argon2Memory:  cfg.Auth.Argon2Memory,
		Argon2Threads: cfg.Auth.Argon2Threads,
	})
	if err != nil {
		return nil, err
	}
	a.Hasher = hasher
	a.Tokens = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	if cfg.Redis.Enabled() {
		rc, err := redisclient.NewClient(ctx, redisclient.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.Redis = rc
		a.closers = append(a.closers, func() { _ = rc.Close() })
	}

	if err := a.openStore(ctx, log); err != nil {
		a.Close()
		return nil, err
	}

	opts := []service.Option{service.WithLogger(log)}
	if a.Redis != nil {
		producer := events.NewAuthProducer(a.Redis.Raw(), cfg.Redis.StreamName, eventStreamMaxLen)
		opts = append(opts, service.WithEventPublisher(producer))
		log.Info("Publishing auth events to stream %s", cfg.Redis.StreamName)
	}

	a.Service = service.NewUserService(a.Store, a.Hasher, a.Tokens, opts...)
	return a, nil
}

func (a *App) openStore(ctx context.Context, log *logger.Logger) error {
	cfg := a.Config.Database
	dbConfig := database.Config{
		PrimaryDSN:      cfg.PrimaryDSN,
		ReplicaDSNs:     cfg.ReplicaDSNs,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
	}

	if cfg.Driver != config.StoreDriverMemory && cfg.AutoMigrate {
		if err := a.migrate(ctx, cfg.PrimaryDSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.Info("Database schema is up to date")
	}

	switch cfg.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewDBManager(ctx, dbConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.health = db.Ping
		a.Store = storage.NewUserStorage(db, a.Hasher)
		log.Info("Using postgres store with %d replica(s)", len(cfg.ReplicaDSNs))

	case config.StoreDriverGorm:
		db, err := database.OpenGorm(ctx, dbConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("gorm sql db: %w", err)
		}
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
		a.health = sqlDB.PingContext
		a.Store = storage.NewGormUserStorage(db, a.Hasher)
		log.Info("Using gorm store")

	case config.StoreDriverMemory:
		a.Store = storage.NewMemoryUserStorage(a.Hasher)
		log.Warn("Using in-memory store, users are lost on restart")

	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	return nil
}

// migrate applies the schema. With Redis available, replicas starting together
// take turns through a lock.
func (a *App) migrate(ctx context.Context, dsn string) error {
	if a.Redis == nil {
		return database.Migrate(ctx, dsn)
	}

	l := lock.NewDistributedLock(a.Redis.Raw(), migrationLockKey, migrationLockTTL)

	waitCtx, cancel := context.WithTimeout(ctx, migrationLockTTL)
	defer cancel()
	if err := l.AcquireWait(waitCtx, 500*time.Millisecond); err != nil {
		return err
	}
	defer func() { _ = l.Release(context.WithoutCancel(ctx)) }()

	return database.Migrate(ctx, dsn)
}

// Health pings the store and Redis when they are in use.
func (a *App) Health(ctx context.Context) error {
	if a.health != nil {
		if err := a.health(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
