package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/weathertodo/internal/config"
	"github.com/rezkam/weathertodo/internal/domain"
	"github.com/rezkam/weathertodo/internal/infrastructure/persistence/sqlite"
)

func TestOpen_SQLiteMemoryIsMigrated(t *testing.T) {
	store, err := Open(context.Background(), config.StorageConfig{
		Type:   config.StorageSQLite,
		SQLite: config.SQLiteConfig{Path: sqlite.MemoryPath},
	}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	user, err := store.CreateUser(context.Background(), &domain.User{Email: "a@example.com", Nickname: "a"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
}

func TestOpen_SQLiteFileRequiresMigrateFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.db")
	cfg := config.StorageConfig{Type: config.StorageSQLite, SQLite: config.SQLiteConfig{Path: path}}

	store, err := Open(context.Background(), cfg, false)
	require.NoError(t, err)
	_, err = store.FindTodoByID(context.Background(), 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrTodoNotFound, "schema should be missing")
	require.NoError(t, store.Close())

	store, err = Open(context.Background(), cfg, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.FindTodoByID(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Type: "gcs"}, false)
	assert.Error(t, err)
}
