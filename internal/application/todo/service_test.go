package todo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rezkam/weathertodo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo records the calls made by the service and returns canned results.
type mockRepo struct {
	mu sync.Mutex

	created      []*domain.Todo
	createErr    error
	findParams   []domain.FindTodosParams
	findResult   *domain.PagedResult
	findErr      error
	todosByID    map[int64]*domain.Todo
	findByIDHits atomic.Int32
	atomicCalls  int
}

func (m *mockRepo) CreateTodo(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	persisted := *todo
	persisted.ID = int64(len(m.created) + 1)
	persisted.CreatedAt = time.Date(2024, 11, 14, 9, 0, 0, 0, time.UTC)
	persisted.ModifiedAt = persisted.CreatedAt
	m.created = append(m.created, &persisted)
	return &persisted, nil
}

func (m *mockRepo) FindTodoByID(ctx context.Context, id int64) (*domain.Todo, error) {
	m.findByIDHits.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	todo, ok := m.todosByID[id]
	if !ok {
		return nil, domain.ErrTodoNotFound
	}
	return todo, nil
}

func (m *mockRepo) FindTodos(ctx context.Context, params domain.FindTodosParams) (*domain.PagedResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findParams = append(m.findParams, params)
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.findResult != nil {
		return m.findResult, nil
	}
	return &domain.PagedResult{}, nil
}

// Atomic executes callback without transaction (tests don't need real transactions)
func (m *mockRepo) Atomic(ctx context.Context, fn func(tx Repository) error) error {
	m.mu.Lock()
	m.atomicCalls++
	m.mu.Unlock()
	return fn(m)
}

type stubWeather struct {
	label string
	err   error
	calls int
}

func (w *stubWeather) TodayWeather(ctx context.Context) (string, error) {
	w.calls++
	return w.label, w.err
}

type mockCache struct {
	mu      sync.Mutex
	entries map[int64]*domain.Todo
	getErr  error
	setErr  error
	sets    int
}

func (c *mockCache) GetTodo(ctx context.Context, id int64) (*domain.Todo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	todo, ok := c.entries[id]
	return todo, ok, nil
}

func (c *mockCache) SetTodo(ctx context.Context, todo *domain.Todo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	if c.entries == nil {
		c.entries = map[int64]*domain.Todo{}
	}
	c.entries[todo.ID] = todo
	return nil
}

type recordingMetrics struct {
	created int
	shapes  []domain.ListShape
	results []int
}

func (r *recordingMetrics) RecordTodoCreated(ctx context.Context) { r.created++ }

func (r *recordingMetrics) RecordTodosListed(ctx context.Context, shape domain.ListShape, results int) {
	r.shapes = append(r.shapes, shape)
	r.results = append(r.results, results)
}

func strPtr(s string) *string { return &s }

func datePtr(y int, m time.Month, d int) *civil.Date {
	return &civil.Date{Year: y, Month: m, Day: d}
}

var owner = &domain.User{ID: 7, Email: "kim@example.com", Nickname: "kim"}

func TestNewService_AppliesDefaults(t *testing.T) {
	s := NewService(&mockRepo{}, &stubWeather{}, Config{})
	assert.Equal(t, DefaultPageSize, s.config.DefaultPageSize)
	assert.Equal(t, MaxPageSize, s.config.MaxPageSize)

	s = NewService(&mockRepo{}, &stubWeather{}, Config{DefaultPageSize: 50, MaxPageSize: 20})
	assert.Equal(t, 20, s.DefaultPageSize(), "default page size must not exceed the maximum")
}

func TestCreateTodo(t *testing.T) {
	ctx := context.Background()

	t.Run("tags todo with today's weather", func(t *testing.T) {
		repo := &mockRepo{}
		weather := &stubWeather{label: "Sunny"}
		metrics := &recordingMetrics{}
		s := NewService(repo, weather, Config{}, WithMetrics(metrics))

		created, err := s.CreateTodo(ctx, owner, "  Buy milk ", "2%")
		require.NoError(t, err)

		assert.Equal(t, &CreatedTodo{
			ID:       1,
			Title:    "Buy milk",
			Contents: "2%",
			Weather:  "Sunny",
			User:     UserView{ID: 7, Email: "kim@example.com", Nickname: "kim"},
		}, created)
		require.Len(t, repo.created, 1)
		assert.Equal(t, int64(7), repo.created[0].UserID)
		assert.Equal(t, 1, repo.atomicCalls)
		assert.Equal(t, 1, metrics.created)
	})

	t.Run("weather failure aborts before persisting", func(t *testing.T) {
		repo := &mockRepo{}
		s := NewService(repo, &stubWeather{err: errors.New("connection refused")}, Config{})

		_, err := s.CreateTodo(ctx, owner, "Buy milk", "2%")
		assert.ErrorIs(t, err, domain.ErrWeatherUnavailable)
		assert.Empty(t, repo.created)
		assert.Zero(t, repo.atomicCalls)
	})

	t.Run("empty weather label is unavailable", func(t *testing.T) {
		repo := &mockRepo{}
		s := NewService(repo, &stubWeather{label: ""}, Config{})

		_, err := s.CreateTodo(ctx, owner, "Buy milk", "2%")
		assert.ErrorIs(t, err, domain.ErrWeatherUnavailable)
		assert.Empty(t, repo.created)
	})

	t.Run("validation runs before the weather call", func(t *testing.T) {
		weather := &stubWeather{label: "Sunny"}
		s := NewService(&mockRepo{}, weather, Config{})

		_, err := s.CreateTodo(ctx, owner, "   ", "2%")
		assert.ErrorIs(t, err, domain.ErrTitleRequired)

		_, err = s.CreateTodo(ctx, owner, "Buy milk", "")
		assert.ErrorIs(t, err, domain.ErrContentsRequired)

		assert.Zero(t, weather.calls)
	})

	t.Run("requires an owner", func(t *testing.T) {
		s := NewService(&mockRepo{}, &stubWeather{label: "Sunny"}, Config{})

		_, err := s.CreateTodo(ctx, nil, "Buy milk", "2%")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		s := NewService(&mockRepo{createErr: domain.ErrUserNotFound}, &stubWeather{label: "Sunny"}, Config{})

		_, err := s.CreateTodo(ctx, owner, "Buy milk", "2%")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.Contains(t, err.Error(), "failed to create todo")
	})
}

func TestListTodos_Dispatch(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 11, 15, 23, 59, 59, 999999999, time.UTC)

	testCases := []struct {
		name       string
		query      ListQuery
		wantShape  domain.ListShape
		wantFilter domain.TodoFilter
	}{
		{
			name:       "no filters",
			query:      ListQuery{Page: 1, Size: 10},
			wantShape:  domain.ShapeAll,
			wantFilter: domain.TodoFilter{},
		},
		{
			name:       "weather only",
			query:      ListQuery{Weather: strPtr("Sunny"), Page: 1, Size: 10},
			wantShape:  domain.ShapeWeather,
			wantFilter: domain.TodoFilter{Weather: strPtr("Sunny")},
		},
		{
			name:       "empty weather is still matched",
			query:      ListQuery{Weather: strPtr(""), Page: 1, Size: 10},
			wantShape:  domain.ShapeWeather,
			wantFilter: domain.TodoFilter{Weather: strPtr("")},
		},
		{
			name:       "date range only",
			query:      ListQuery{StartDate: datePtr(2024, 11, 1), EndDate: datePtr(2024, 11, 15), Page: 1, Size: 10},
			wantShape:  domain.ShapePeriod,
			wantFilter: domain.TodoFilter{ModifiedFrom: &from, ModifiedTo: &to},
		},
		{
			name:       "weather and date range",
			query:      ListQuery{Weather: strPtr("Rain"), StartDate: datePtr(2024, 11, 1), EndDate: datePtr(2024, 11, 15), Page: 1, Size: 10},
			wantShape:  domain.ShapeWeatherAndPeriod,
			wantFilter: domain.TodoFilter{Weather: strPtr("Rain"), ModifiedFrom: &from, ModifiedTo: &to},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockRepo{}
			metrics := &recordingMetrics{}
			s := NewService(repo, &stubWeather{}, Config{}, WithMetrics(metrics))

			_, err := s.ListTodos(ctx, tc.query)
			require.NoError(t, err)

			require.Len(t, repo.findParams, 1, "exactly one store call per listing")
			assert.Equal(t, tc.wantFilter, repo.findParams[0].Filter)
			assert.Equal(t, []domain.ListShape{tc.wantShape}, metrics.shapes)
		})
	}
}

func TestListTodos_InvalidFilterFailsBeforeIO(t *testing.T) {
	testCases := []struct {
		name  string
		query ListQuery
	}{
		{"start only", ListQuery{StartDate: datePtr(2024, 11, 14), Page: 1, Size: 10}},
		{"end only", ListQuery{EndDate: datePtr(2024, 11, 14), Page: 1, Size: 10}},
		{"inverted", ListQuery{StartDate: datePtr(2024, 11, 15), EndDate: datePtr(2024, 11, 14), Page: 1, Size: 10}},
		{"inverted with weather", ListQuery{Weather: strPtr("Sunny"), StartDate: datePtr(2024, 11, 15), EndDate: datePtr(2024, 11, 14), Page: 1, Size: 10}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockRepo{}
			s := NewService(repo, &stubWeather{}, Config{})

			_, err := s.ListTodos(context.Background(), tc.query)
			assert.ErrorIs(t, err, domain.ErrInvalidFilter)
			assert.Empty(t, repo.findParams)
		})
	}
}

func TestListTodos_Pagination(t *testing.T) {
	ctx := context.Background()

	t.Run("page and size map to offset and limit", func(t *testing.T) {
		repo := &mockRepo{}
		s := NewService(repo, &stubWeather{}, Config{})

		_, err := s.ListTodos(ctx, ListQuery{Page: 3, Size: 10})
		require.NoError(t, err)

		assert.Equal(t, 10, repo.findParams[0].Limit)
		assert.Equal(t, 20, repo.findParams[0].Offset)
	})

	t.Run("size is clamped to the maximum", func(t *testing.T) {
		repo := &mockRepo{}
		s := NewService(repo, &stubWeather{}, Config{MaxPageSize: 50})

		page, err := s.ListTodos(ctx, ListQuery{Page: 2, Size: 500})
		require.NoError(t, err)

		assert.Equal(t, 50, repo.findParams[0].Limit)
		assert.Equal(t, 50, repo.findParams[0].Offset)
		assert.Equal(t, 50, page.Size)
	})

	t.Run("non-positive page or size is rejected", func(t *testing.T) {
		repo := &mockRepo{}
		s := NewService(repo, &stubWeather{}, Config{})

		for _, q := range []ListQuery{{Page: 0, Size: 10}, {Page: -1, Size: 10}, {Page: 1, Size: 0}, {Page: 1, Size: -5}} {
			_, err := s.ListTodos(ctx, q)
			assert.ErrorIs(t, err, domain.ErrInvalidPageRequest, "query %+v", q)
		}
		assert.Empty(t, repo.findParams)
	})

	t.Run("page result carries totals and projections", func(t *testing.T) {
		ts := time.Date(2024, 11, 14, 9, 0, 0, 0, time.UTC)
		repo := &mockRepo{findResult: &domain.PagedResult{
			Todos: []domain.Todo{
				{ID: 25, Title: "a", Contents: "x", Weather: "Sunny", UserID: 7, User: owner, CreatedAt: ts, ModifiedAt: ts},
				{ID: 24, Title: "b", Contents: "y", Weather: "Rain", UserID: 99, CreatedAt: ts, ModifiedAt: ts},
			},
			TotalCount: 25,
		}}
		metrics := &recordingMetrics{}
		s := NewService(repo, &stubWeather{}, Config{}, WithMetrics(metrics))

		page, err := s.ListTodos(ctx, ListQuery{Page: 1, Size: 10})
		require.NoError(t, err)

		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 10, page.Size)
		assert.Equal(t, 25, page.TotalElements)
		assert.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Items, 2)
		assert.Equal(t, &UserView{ID: 7, Email: "kim@example.com", Nickname: "kim"}, page.Items[0].User)
		assert.Nil(t, page.Items[1].User, "missing owner stays absent")
		assert.Equal(t, []int{2}, metrics.results)
	})

	t.Run("empty result", func(t *testing.T) {
		s := NewService(&mockRepo{}, &stubWeather{}, Config{})

		page, err := s.ListTodos(ctx, ListQuery{Page: 4, Size: 10})
		require.NoError(t, err)

		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
		assert.Zero(t, page.TotalElements)
		assert.Zero(t, page.TotalPages)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		boom := errors.New("connection reset")
		s := NewService(&mockRepo{findErr: boom}, &stubWeather{}, Config{})

		_, err := s.ListTodos(ctx, ListQuery{Page: 1, Size: 10})
		assert.ErrorIs(t, err, boom)
	})
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 10))
	assert.Equal(t, 1, totalPages(1, 10))
	assert.Equal(t, 1, totalPages(10, 10))
	assert.Equal(t, 2, totalPages(11, 10))
	assert.Equal(t, 3, totalPages(25, 10))
}

func TestGetTodo(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2024, 11, 14, 9, 0, 0, 0, time.UTC)
	stored := &domain.Todo{ID: 3, Title: "t", Contents: "c", Weather: "Cloudy", UserID: 7, User: owner, CreatedAt: ts, ModifiedAt: ts}

	t.Run("found", func(t *testing.T) {
		s := NewService(&mockRepo{todosByID: map[int64]*domain.Todo{3: stored}}, &stubWeather{}, Config{})

		view, err := s.GetTodo(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), view.ID)
		assert.Equal(t, "Cloudy", view.Weather)
		assert.Equal(t, ts, view.ModifiedAt)
		assert.Equal(t, "kim", view.User.Nickname)
	})

	t.Run("not found", func(t *testing.T) {
		s := NewService(&mockRepo{}, &stubWeather{}, Config{})

		_, err := s.GetTodo(ctx, 42)
		assert.ErrorIs(t, err, domain.ErrTodoNotFound)

		_, err = s.GetTodo(ctx, 0)
		assert.ErrorIs(t, err, domain.ErrTodoNotFound)
	})

	t.Run("cache hit skips the store", func(t *testing.T) {
		repo := &mockRepo{}
		cache := &mockCache{entries: map[int64]*domain.Todo{3: stored}}
		s := NewService(repo, &stubWeather{}, Config{}, WithCache(cache))

		view, err := s.GetTodo(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), view.ID)
		assert.Zero(t, repo.findByIDHits.Load())
	})

	t.Run("cache miss populates the cache", func(t *testing.T) {
		repo := &mockRepo{todosByID: map[int64]*domain.Todo{3: stored}}
		cache := &mockCache{}
		s := NewService(repo, &stubWeather{}, Config{}, WithCache(cache))

		_, err := s.GetTodo(ctx, 3)
		require.NoError(t, err)
		_, err = s.GetTodo(ctx, 3)
		require.NoError(t, err)

		assert.Equal(t, int32(1), repo.findByIDHits.Load())
		assert.Equal(t, 1, cache.sets)
	})

	t.Run("cache failures fall back to the store", func(t *testing.T) {
		repo := &mockRepo{todosByID: map[int64]*domain.Todo{3: stored}}
		cache := &mockCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
		s := NewService(repo, &stubWeather{}, Config{}, WithCache(cache))

		view, err := s.GetTodo(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), view.ID)
	})

	t.Run("not found is not cached", func(t *testing.T) {
		cache := &mockCache{}
		s := NewService(&mockRepo{}, &stubWeather{}, Config{}, WithCache(cache))

		_, err := s.GetTodo(ctx, 42)
		assert.ErrorIs(t, err, domain.ErrTodoNotFound)
		assert.Zero(t, cache.sets)
	})
}

// blockingRepo holds FindTodoByID until release is closed or the caller's
// context ends.
type blockingRepo struct {
	*mockRepo
	started     chan struct{}
	startedOnce sync.Once
	release     chan struct{}
}

func (r *blockingRepo) FindTodoByID(ctx context.Context, id int64) (*domain.Todo, error) {
	r.startedOnce.Do(func() { close(r.started) })
	select {
	case <-r.release:
		return r.mockRepo.FindTodoByID(ctx, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestGetTodo_SharedLookupSurvivesCanceledCaller(t *testing.T) {
	ts := time.Date(2024, 11, 14, 9, 0, 0, 0, time.UTC)
	stored := &domain.Todo{ID: 3, Title: "t", Contents: "c", Weather: "Cloudy", UserID: 7, User: owner, CreatedAt: ts, ModifiedAt: ts}
	repo := &blockingRepo{
		mockRepo: &mockRepo{todosByID: map[int64]*domain.Todo{3: stored}},
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	cache := &mockCache{}
	s := NewService(repo, &stubWeather{}, Config{}, WithCache(cache))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.GetTodo(firstCtx, 3)
		firstErr <- err
	}()
	<-repo.started

	type result struct {
		view *TodoView
		err  error
	}
	second := make(chan result, 1)
	go func() {
		view, err := s.GetTodo(context.Background(), 3)
		second <- result{view, err}
	}()
	// Let the second caller join the in-flight lookup.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller did not return")
	}

	close(repo.release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, int64(3), res.view.ID)
	case <-time.After(time.Second):
		t.Fatal("live caller did not return")
	}
	assert.Equal(t, 1, cache.sets, "shared lookup still fills the cache")
}
