// Package sqlite implements the todo and auth repositories on an embedded
// SQLite database through the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/weathertodo/internal/application/auth"
	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/infrastructure/persistence/todoquery"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides the SQLite implementation of the todo and auth repositories.
type Store struct {
	db      *sql.DB
	conn    dbtx
	queries todoquery.Builder
	now     func() time.Time
}

// Compile-time verification that Store implements all repository interfaces.
var (
	_ auth.Repository = (*Store)(nil)
	_ todo.Repository = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the source of created and modified timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore wraps an open database. Use Open to get one configured for the
// store's needs.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		conn:    db,
		queries: todoquery.SQLite(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks that the database file is still usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// executeInTransaction runs fn on a transaction-bound copy of the store with
// logging and panic recovery.
func (s *Store) executeInTransaction(ctx context.Context, operationName string, fn func(txStore *Store) error) (err error) {
	start := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to begin transaction",
			"operation", operationName,
			"error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "transaction panic, rolling back",
				"operation", operationName,
				"panic", p)
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "rollback after panic failed",
					"operation", operationName,
					"panic", p,
					"rollback_error", rbErr)
			}
			panic(p)
		}

		if err != nil {
			slog.ErrorContext(ctx, "transaction failed, rolling back",
				"operation", operationName,
				"error", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback error: %v)", err, rbErr)
			}
			return
		}

		if err = tx.Commit(); err != nil {
			slog.ErrorContext(ctx, "transaction commit failed",
				"operation", operationName,
				"error", err)
			return
		}
		slog.DebugContext(ctx, "transaction completed",
			"operation", operationName,
			"duration_ms", time.Since(start).Milliseconds())
	}()

	err = fn(&Store{
		db:      s.db,
		conn:    tx,
		queries: s.queries,
		now:     s.now,
	})
	return
}

// Atomic executes fn within a database transaction.
func (s *Store) Atomic(ctx context.Context, fn func(repo todo.Repository) error) error {
	return s.executeInTransaction(ctx, "atomic", func(txStore *Store) error {
		return fn(txStore)
	})
}
