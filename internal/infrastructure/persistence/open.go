// Package persistence opens the store selected by configuration.
package persistence

import (
	"context"
	"fmt"
	"io"

	"github.com/rezkam/weathertodo/internal/application/auth"
	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/config"
	"github.com/rezkam/weathertodo/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/weathertodo/internal/infrastructure/persistence/sqlite"
)

// Store is a backend serving both the todo and auth repositories.
type Store interface {
	todo.Repository
	auth.Repository
	io.Closer
	Ping(ctx context.Context) error
}

var (
	_ Store = (*postgres.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// Open connects to the configured backend. Pending migrations are applied
// when migrate is true or the backend's auto-migrate setting is on.
func Open(ctx context.Context, cfg config.StorageConfig, migrate bool) (Store, error) {
	switch cfg.Type {
	case config.StoragePostgres:
		store, err := postgres.NewStoreWithConfig(ctx, postgres.DBConfig{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			AutoMigrate:     migrate || cfg.Database.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, nil

	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, sqlite.Config{
			Path:        cfg.SQLite.Path,
			AutoMigrate: migrate || cfg.Database.AutoMigrate || cfg.SQLite.Path == sqlite.MemoryPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
