package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rezkam/weathertodo/internal/domain"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

// CreateTodo inserts a todo and returns it with its id and timestamps.
func (s *Store) CreateTodo(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	now := s.timestamp()

	query, args, err := s.queries.Insert(todo, now, now).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: user %d", domain.ErrUserNotFound, todo.UserID)
		}
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read todo id: %w", err)
	}

	created := *todo
	created.ID = id
	created.User = nil
	created.CreatedAt = now
	created.ModifiedAt = now
	return &created, nil
}

// FindTodoByID retrieves a todo joined with its owner.
func (s *Store) FindTodoByID(ctx context.Context, id int64) (*domain.Todo, error) {
	query, args, err := s.queries.ByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	todo, err := scanTodo(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: todo %d", domain.ErrTodoNotFound, id)
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return todo, nil
}

// FindTodos returns one page of matching todos and the total match count.
func (s *Store) FindTodos(ctx context.Context, params domain.FindTodosParams) (*domain.PagedResult, error) {
	query, args, err := s.queries.Page(params.Filter, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to build page query: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}

	todos := make([]domain.Todo, 0, params.Limit)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}
	// The single pooled connection must be released before the count runs.
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to close rows: %w", err)
	}

	countQuery, countArgs, err := s.queries.Count(params.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := s.conn.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count todos: %w", err)
	}

	return &domain.PagedResult{
		Todos:      todos,
		TotalCount: total,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTodo reads one row in todoquery.Columns order.
func scanTodo(row scanner) (*domain.Todo, error) {
	var (
		t                       domain.Todo
		userID                  sql.NullInt64
		createdAt, modifiedAt   int64
		ownerID, ownerCreatedAt sql.NullInt64
		ownerEmail, ownerNick   sql.NullString
	)

	err := row.Scan(
		&t.ID, &t.Title, &t.Contents, &t.Weather, &userID, &createdAt, &modifiedAt,
		&ownerID, &ownerEmail, &ownerNick, &ownerCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.UserID = userID.Int64
	t.CreatedAt = fromNanos(createdAt)
	t.ModifiedAt = fromNanos(modifiedAt)
	if ownerID.Valid {
		t.User = &domain.User{
			ID:       ownerID.Int64,
			Email:    ownerEmail.String,
			Nickname: ownerNick.String,
		}
		if ownerCreatedAt.Valid {
			t.User.CreatedAt = fromNanos(ownerCreatedAt.Int64)
		}
	}
	return &t, nil
}
