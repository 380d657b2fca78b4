package todo

import (
	"context"

	"github.com/rezkam/weathertodo/internal/domain"
)

// Repository defines storage operations for todo management.
// Create operations return the entity as persisted, including the store-assigned
// id and timestamps.
type Repository interface {
	// CreateTodo inserts a new todo owned by todo.UserID.
	// ID, CreatedAt and ModifiedAt are assigned by the store.
	// Returns domain.ErrUserNotFound if the owner doesn't exist.
	CreateTodo(ctx context.Context, todo *domain.Todo) (*domain.Todo, error)

	// FindTodoByID retrieves a single todo joined with its owner.
	// Returns domain.ErrTodoNotFound if the todo doesn't exist.
	FindTodoByID(ctx context.Context, id int64) (*domain.Todo, error)

	// FindTodos returns one page of todos matching params.Filter, ordered by
	// modified timestamp descending (id descending on ties), together with the
	// total number of matching todos.
	FindTodos(ctx context.Context, params domain.FindTodosParams) (*domain.PagedResult, error)

	// Atomic runs fn inside a transaction. Returning an error (or panicking)
	// rolls back every write made through tx.
	Atomic(ctx context.Context, fn func(tx Repository) error) error
}

// WeatherProvider resolves the weather tag for todos created today.
type WeatherProvider interface {
	// TodayWeather returns a non-empty weather label or an error wrapping
	// domain.ErrWeatherUnavailable.
	TodayWeather(ctx context.Context) (string, error)
}

// Cache is an optional read-through cache for single todo lookups.
// Todos are immutable once created, so entries never need invalidation.
type Cache interface {
	GetTodo(ctx context.Context, id int64) (*domain.Todo, bool, error)
	SetTodo(ctx context.Context, todo *domain.Todo) error
}

// Metrics records service-level measurements.
type Metrics interface {
	RecordTodoCreated(ctx context.Context)
	RecordTodosListed(ctx context.Context, shape domain.ListShape, results int)
}
