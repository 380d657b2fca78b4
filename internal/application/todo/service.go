package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/weathertodo/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Default configuration values.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// sharedLookupTimeout bounds a by-id lookup shared between concurrent callers.
// The lookup runs detached from any single caller's cancellation.
const sharedLookupTimeout = 5 * time.Second

// Config holds configuration for the Service.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithCache enables the read-through cache for GetTodo.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records creations and listings on m.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// ListQuery holds the raw listing request as received by the transport.
// Nil fields are absent filters. Page is 1-based.
type ListQuery struct {
	Weather   *string
	StartDate *civil.Date
	EndDate   *civil.Date
	Page      int
	Size      int
}

// Service provides business logic for todo management.
// It orchestrates operations using the Repository interface.
type Service struct {
	repo    Repository
	weather WeatherProvider
	config  Config

	cache   Cache
	metrics Metrics
	lookups singleflight.Group
}

// NewService creates a new todo service.
// Applies application defaults for zero or invalid config values.
func NewService(repo Repository, weather WeatherProvider, config Config, opts ...Option) *Service {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = DefaultPageSize
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = MaxPageSize
	}
	config.DefaultPageSize = min(config.DefaultPageSize, config.MaxPageSize)

	s := &Service{
		repo:    repo,
		weather: weather,
		config:  config,
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPageSize is the page size used when a request does not name one.
func (s *Service) DefaultPageSize() int {
	return s.config.DefaultPageSize
}

// CreateTodo validates the input, tags it with today's weather and persists it
// for owner.
func (s *Service) CreateTodo(ctx context.Context, owner *domain.User, titleStr, contentsStr string) (*CreatedTodo, error) {
	if owner == nil {
		return nil, domain.ErrUnauthorized
	}

	title, err := domain.NewTitle(titleStr)
	if err != nil {
		return nil, err
	}
	contents, err := domain.NewContents(contentsStr)
	if err != nil {
		return nil, err
	}

	weather, err := s.weather.TodayWeather(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrWeatherUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrWeatherUnavailable, err)
		}
		return nil, err
	}
	if weather == "" {
		return nil, fmt.Errorf("%w: empty weather label", domain.ErrWeatherUnavailable)
	}

	var created *domain.Todo
	err = s.repo.Atomic(ctx, func(tx Repository) error {
		var err error
		created, err = tx.CreateTodo(ctx, &domain.Todo{
			Title:    title.String(),
			Contents: contents.String(),
			Weather:  weather,
			UserID:   owner.ID,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	s.metrics.RecordTodoCreated(ctx)
	slog.DebugContext(ctx, "todo created",
		"todo_id", created.ID,
		"user_id", owner.ID,
		"weather", weather)

	return &CreatedTodo{
		ID:       created.ID,
		Title:    created.Title,
		Contents: created.Contents,
		Weather:  created.Weather,
		User:     UserView{ID: owner.ID, Email: owner.Email, Nickname: owner.Nickname},
	}, nil
}

// ListTodos returns one page of todos matching the optional weather and date
// range filters.
func (s *Service) ListTodos(ctx context.Context, q ListQuery) (*TodoPage, error) {
	var filter domain.TodoFilter

	if q.StartDate != nil || q.EndDate != nil {
		if err := domain.ValidateDateRange(q.StartDate, q.EndDate); err != nil {
			return nil, err
		}
		from, to := domain.NewModifiedRange(*q.StartDate, *q.EndDate)
		filter.ModifiedFrom = &from
		filter.ModifiedTo = &to
	}

	if q.Page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1, got %d", domain.ErrInvalidPageRequest, q.Page)
	}
	if q.Size < 1 {
		return nil, fmt.Errorf("%w: size must be at least 1, got %d", domain.ErrInvalidPageRequest, q.Size)
	}
	size := min(q.Size, s.config.MaxPageSize)

	filter.Weather = q.Weather

	shape := filter.Shape()
	result, err := s.repo.FindTodos(ctx, domain.FindTodosParams{
		Filter: filter,
		Limit:  size,
		Offset: (q.Page - 1) * size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}

	s.metrics.RecordTodosListed(ctx, shape, len(result.Todos))
	slog.DebugContext(ctx, "todos listed",
		"shape", string(shape),
		"page", q.Page,
		"size", size,
		"total", result.TotalCount)

	return newTodoPage(result, q.Page, size), nil
}

// GetTodo retrieves a single todo by id.
func (s *Service) GetTodo(ctx context.Context, id int64) (*TodoView, error) {
	if id <= 0 {
		return nil, domain.ErrTodoNotFound
	}

	todo, err := s.findTodo(ctx, id)
	if err != nil {
		return nil, err
	}

	view := newTodoView(todo)
	return &view, nil
}

func (s *Service) findTodo(ctx context.Context, id int64) (*domain.Todo, error) {
	if s.cache == nil {
		return s.repo.FindTodoByID(ctx, id)
	}

	results := s.lookups.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()

		cached, ok, err := s.cache.GetTodo(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "todo cache read failed",
				"todo_id", id,
				"error", err)
		} else if ok {
			return cached, nil
		}

		todo, err := s.repo.FindTodoByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := s.cache.SetTodo(ctx, todo); err != nil {
			slog.WarnContext(ctx, "todo cache write failed",
				"todo_id", id,
				"error", err)
		}
		return todo, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Todo), nil
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordTodoCreated(context.Context) {}
func (noopMetrics) RecordTodosListed(context.Context, domain.ListShape, int) {}
