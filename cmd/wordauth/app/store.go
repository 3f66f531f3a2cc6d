package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/credential/memory"
	"github.com/wordleapi/wordauth/credential/postgres"
	"github.com/wordleapi/wordauth/credential/redisstore"
	"github.com/wordleapi/wordauth/internal/config"
	"github.com/wordleapi/wordauth/password"
)

// accountStore is what the server needs from a backend: lookups for the
// engine and registration for the createuser route and the seed.
type accountStore interface {
	credential.Store
	credential.Registrar
}

// openStore connects the configured backend. The returned close func is never nil.
func openStore(ctx context.Context, cfg config.Config, hasher *password.Hasher, logger *slog.Logger) (accountStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory credential store; accounts are lost on restart")
		return memory.New(hasher), noop, nil

	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, noop, fmt.Errorf("redis ping %s: %w", cfg.Store.RedisAddr, err)
		}
		logger.Info("connected to redis", slog.String("addr", cfg.Store.RedisAddr), slog.String("prefix", cfg.Store.RedisPrefix))
		return redisstore.New(rdb, cfg.Store.RedisPrefix, hasher), rdb.Close, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		if cfg.Store.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, noop, err
			}
			logger.Info("database migrations applied")
		}
		return postgres.New(db, hasher), db.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
