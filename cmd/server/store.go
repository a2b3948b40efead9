package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/character-chat-backend/internal/config"
	"github.com/tbourn/character-chat-backend/internal/observability"
	"github.com/tbourn/character-chat-backend/internal/repo"
	"github.com/tbourn/character-chat-backend/internal/services"
)

// openStore connects the configured backend once for the whole process.
// SQL backends are traced and migrated before use.
func openStore(ctx context.Context, cfg config.Config) (services.Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Store.Driver {
	case config.StoreRedis:
		client, err := repo.OpenRedis(ctx, cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		return repo.NewRedisStore(client), nil
	case config.StorePostgres:
		db, err = repo.OpenPostgres(cfg.Store.DatabaseURL)
	case config.StoreSQLite:
		db, err = repo.OpenSQLite(cfg.Store.DBPath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	store := repo.NewGormStore(db)
	if err := observability.InstrumentGORM(db); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("gorm tracing: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
