package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rezkam/weathertodo/internal/domain"
)

// isForeignKeyViolation checks if an error is a PostgreSQL FK violation
// involving column (any column when empty).
func isForeignKeyViolation(err error, column string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 is foreign_key_violation
		if pgErr.Code == "23503" {
			if column == "" {
				return true
			}
			return strings.Contains(pgErr.ConstraintName, column) ||
				strings.Contains(pgErr.Message, column)
		}
	}
	return false
}

// CreateTodo inserts a todo and returns it with its id and timestamps.
func (s *Store) CreateTodo(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	now := s.timestamp()

	query, args, err := s.queries.Insert(todo, now, now).
		Suffix("RETURNING id, created_at, modified_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	created := *todo
	created.User = nil
	err = s.db.QueryRow(ctx, query, args...).Scan(&created.ID, &created.CreatedAt, &created.ModifiedAt)
	if err != nil {
		if isForeignKeyViolation(err, "user_id") {
			return nil, fmt.Errorf("%w: user %d", domain.ErrUserNotFound, todo.UserID)
		}
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	created.CreatedAt = created.CreatedAt.UTC()
	created.ModifiedAt = created.ModifiedAt.UTC()

	return &created, nil
}

// FindTodoByID retrieves a todo joined with its owner.
func (s *Store) FindTodoByID(ctx context.Context, id int64) (*domain.Todo, error) {
	query, args, err := s.queries.ByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	todo, err := scanTodo(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: todo %d", domain.ErrTodoNotFound, id)
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return todo, nil
}

// FindTodos returns one page of matching todos and the total match count.
// The page and the count are separate statements without a shared snapshot,
// so a concurrent insert may be reflected in one and not the other.
func (s *Store) FindTodos(ctx context.Context, params domain.FindTodosParams) (*domain.PagedResult, error) {
	query, args, err := s.queries.Page(params.Filter, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to build page query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0, params.Limit)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}

	countQuery, countArgs, err := s.queries.Count(params.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := s.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count todos: %w", err)
	}

	return &domain.PagedResult{
		Todos:      todos,
		TotalCount: int(total),
	}, nil
}

// scanTodo reads one row in todoquery.Columns order. The owner columns come
// from an outer join and are all NULL when the owner is missing.
func scanTodo(row pgx.Row) (*domain.Todo, error) {
	var (
		t             domain.Todo
		userID        *int64
		ownerID       *int64
		ownerEmail    *string
		ownerNickname *string
		ownerCreated  *time.Time
	)

	err := row.Scan(
		&t.ID, &t.Title, &t.Contents, &t.Weather, &userID, &t.CreatedAt, &t.ModifiedAt,
		&ownerID, &ownerEmail, &ownerNickname, &ownerCreated,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = t.CreatedAt.UTC()
	t.ModifiedAt = t.ModifiedAt.UTC()
	if userID != nil {
		t.UserID = *userID
	}
	if ownerID != nil {
		t.User = &domain.User{
			ID:       *ownerID,
			Email:    deref(ownerEmail),
			Nickname: deref(ownerNickname),
		}
		if ownerCreated != nil {
			t.User.CreatedAt = ownerCreated.UTC()
		}
	}
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
