package main

import (
	"context"

	pkgconfig "github.com/Skotchmaster/shopeasy/pkg/config"
	pkgdb "github.com/Skotchmaster/shopeasy/pkg/db"

	storecfg "github.com/Skotchmaster/shopeasy/internal/config"
	"github.com/Skotchmaster/shopeasy/internal/session"
)

// sessionBackend bundles the configured session.Backend with the hooks the
// process needs around it.
type sessionBackend struct {
	session.Backend

	Ready func(ctx context.Context) error
	Purge func(ctx context.Context) (int64, error)
	Close func()
}

func openBackend(ctx context.Context, cfg pkgconfig.Config) (*sessionBackend, error) {
	switch cfg.SessionBackend {
	case storecfg.BackendRedis:
		rb, err := session.NewRedisBackend(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		return &sessionBackend{
			Backend: rb,
			Ready:   func(ctx context.Context) error { return rb.Client.Ping(ctx).Err() },
			Close:   func() { _ = rb.Client.Close() },
		}, nil

	case storecfg.BackendSQL:
		db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		sb, err := session.NewSQLBackend(db, cfg.SessionTTL)
		if err != nil {
			pkgdb.Close(db)
			return nil, err
		}
		return &sessionBackend{
			Backend: sb,
			Ready: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			Purge: sb.PurgeExpired,
			Close: func() { pkgdb.Close(db) },
		}, nil

	case storecfg.BackendMemory:
		return &sessionBackend{Backend: session.NewMemoryBackend(), Close: func() {}}, nil

	default:
		return &sessionBackend{
			Backend: session.CookieBackend{Secure: cfg.CookieSecure, TTL: cfg.SessionTTL},
			Close:   func() {},
		}, nil
	}
}
