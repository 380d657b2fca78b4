// Package compliance holds the behavior every todo store must share.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rezkam/weathertodo/internal/application/auth"
	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store is the repository surface a storage backend provides.
type Store interface {
	todo.Repository
	auth.Repository
}

// Clock is a settable time source handed to the store under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock reading start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// RunStorageComplianceTest runs a standard set of tests against a Store.
// setup returns a fresh (empty) store whose timestamps come from clock, and a
// teardown func.
func RunStorageComplianceTest(t *testing.T, setup func(clock *Clock) (Store, func())) {
	start := time.Date(2024, 11, 1, 8, 0, 0, 0, time.UTC)

	t.Run("CreateAndFindTodo", func(t *testing.T) {
		clock := NewClock(start)
		store, teardown := setup(clock)
		defer teardown()
		ctx := context.Background()

		owner := createUser(t, store, "kim@example.com", "kim")

		created, err := store.CreateTodo(ctx, &domain.Todo{
			Title:    "Buy milk",
			Contents: "2%",
			Weather:  "Sunny",
			UserID:   owner.ID,
		})
		require.NoError(t, err)
		assert.Positive(t, created.ID)
		assertSameInstant(t, start, created.CreatedAt)
		assertSameInstant(t, start, created.ModifiedAt)

		fetched, err := store.FindTodoByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, "Buy milk", fetched.Title)
		assert.Equal(t, "2%", fetched.Contents)
		assert.Equal(t, "Sunny", fetched.Weather)
		assert.Equal(t, owner.ID, fetched.UserID)
		assertSameInstant(t, start, fetched.ModifiedAt)
		require.NotNil(t, fetched.User)
		assert.Equal(t, owner.ID, fetched.User.ID)
		assert.Equal(t, "kim@example.com", fetched.User.Email)
		assert.Equal(t, "kim", fetched.User.Nickname)
	})

	t.Run("FindTodoByID_NotFound", func(t *testing.T) {
		store, teardown := setup(NewClock(start))
		defer teardown()

		_, err := store.FindTodoByID(context.Background(), 987654)
		assert.ErrorIs(t, err, domain.ErrTodoNotFound)
	})

	t.Run("CreateTodo_UnknownUser", func(t *testing.T) {
		store, teardown := setup(NewClock(start))
		defer teardown()

		_, err := store.CreateTodo(context.Background(), &domain.Todo{
			Title: "orphan", Contents: "x", Weather: "Rain", UserID: 424242,
		})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("FindTodos_FilterShapes", func(t *testing.T) {
		clock := NewClock(start)
		store, teardown := setup(clock)
		defer teardown()

		owner := createUser(t, store, "kim@example.com", "kim")
		seed := []struct {
			title    string
			weather  string
			modified time.Time
		}{
			{"before-range", "Rain", time.Date(2024, 10, 31, 23, 59, 59, 999999000, time.UTC)},
			{"nov1-morning", "Sunny", time.Date(2024, 11, 1, 8, 0, 0, 0, time.UTC)},
			{"nov1-last-instant", "Rain", time.Date(2024, 11, 1, 23, 59, 59, 999999000, time.UTC)},
			{"nov2-midnight", "Sunny", time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)},
			{"nov3-noon", "Cloudy", time.Date(2024, 11, 3, 12, 0, 0, 0, time.UTC)},
			{"nov5-noon", "Sunny", time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)},
		}
		for _, s := range seed {
			clock.Set(s.modified)
			createTodo(t, store, owner.ID, s.title, s.weather)
		}

		testCases := []struct {
			name       string
			filter     domain.TodoFilter
			wantTitles []string
		}{
			{
				name:       "all",
				filter:     domain.TodoFilter{},
				wantTitles: []string{"nov5-noon", "nov3-noon", "nov2-midnight", "nov1-last-instant", "nov1-morning", "before-range"},
			},
			{
				name:       "weather",
				filter:     weatherFilter("Sunny"),
				wantTitles: []string{"nov5-noon", "nov2-midnight", "nov1-morning"},
			},
			{
				name:       "period includes both day boundaries",
				filter:     periodFilter(civil.Date{Year: 2024, Month: 11, Day: 1}, civil.Date{Year: 2024, Month: 11, Day: 2}),
				wantTitles: []string{"nov2-midnight", "nov1-last-instant", "nov1-morning"},
			},
			{
				name:       "weather and period",
				filter:     withWeather(periodFilter(civil.Date{Year: 2024, Month: 11, Day: 1}, civil.Date{Year: 2024, Month: 11, Day: 2}), "Sunny"),
				wantTitles: []string{"nov2-midnight", "nov1-morning"},
			},
			{
				name:       "single-day period",
				filter:     periodFilter(civil.Date{Year: 2024, Month: 11, Day: 3}, civil.Date{Year: 2024, Month: 11, Day: 3}),
				wantTitles: []string{"nov3-noon"},
			},
			{
				name:       "period with no matches",
				filter:     periodFilter(civil.Date{Year: 2024, Month: 11, Day: 4}, civil.Date{Year: 2024, Month: 11, Day: 4}),
				wantTitles: []string{},
			},
			{
				name:       "unknown weather",
				filter:     weatherFilter("Snow"),
				wantTitles: []string{},
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				result, err := store.FindTodos(context.Background(), domain.FindTodosParams{
					Filter: tc.filter,
					Limit:  100,
				})
				require.NoError(t, err)

				assert.Equal(t, tc.wantTitles, titles(result.Todos))
				assert.Equal(t, len(tc.wantTitles), result.TotalCount, "count uses the page predicate")
				for _, td := range result.Todos {
					require.NotNil(t, td.User, "owner is joined on every row")
					assert.Equal(t, owner.ID, td.User.ID)
				}
			})
		}
	})

	t.Run("FindTodos_Pagination", func(t *testing.T) {
		clock := NewClock(start)
		store, teardown := setup(clock)
		defer teardown()
		ctx := context.Background()

		owner := createUser(t, store, "kim@example.com", "kim")
		for i := 0; i < 25; i++ {
			clock.Set(start.Add(time.Duration(i) * time.Minute))
			createTodo(t, store, owner.ID, fmt.Sprintf("todo-%02d", i), "Sunny")
		}

		unpaged, err := store.FindTodos(ctx, domain.FindTodosParams{Limit: 100})
		require.NoError(t, err)
		require.Len(t, unpaged.Todos, 25)
		assert.Equal(t, "todo-24", unpaged.Todos[0].Title)

		var concatenated []string
		wantSizes := []int{10, 10, 5}
		for page, wantSize := range wantSizes {
			result, err := store.FindTodos(ctx, domain.FindTodosParams{Limit: 10, Offset: page * 10})
			require.NoError(t, err)

			assert.Len(t, result.Todos, wantSize, "page %d", page+1)
			assert.Equal(t, 25, result.TotalCount)
			concatenated = append(concatenated, titles(result.Todos)...)
		}
		assert.Equal(t, titles(unpaged.Todos), concatenated, "pages reproduce the unpaged order")

		beyond, err := store.FindTodos(ctx, domain.FindTodosParams{Limit: 10, Offset: 30})
		require.NoError(t, err)
		assert.Empty(t, beyond.Todos)
		assert.Equal(t, 25, beyond.TotalCount)
	})

	t.Run("FindTodos_TiesOrderedByIDDescending", func(t *testing.T) {
		store, teardown := setup(NewClock(start))
		defer teardown()
		ctx := context.Background()

		owner := createUser(t, store, "kim@example.com", "kim")
		var ids []int64
		for i := 0; i < 4; i++ {
			ids = append(ids, createTodo(t, store, owner.ID, fmt.Sprintf("tie-%d", i), "Rain").ID)
		}

		var got []int64
		for offset := 0; offset < 4; offset += 2 {
			result, err := store.FindTodos(ctx, domain.FindTodosParams{Limit: 2, Offset: offset})
			require.NoError(t, err)
			for _, td := range result.Todos {
				got = append(got, td.ID)
			}
		}
		assert.Equal(t, []int64{ids[3], ids[2], ids[1], ids[0]}, got)
	})

	t.Run("Atomic_RollsBackOnError", func(t *testing.T) {
		store, teardown := setup(NewClock(start))
		defer teardown()
		ctx := context.Background()

		owner := createUser(t, store, "kim@example.com", "kim")
		boom := errors.New("boom")

		err := store.Atomic(ctx, func(tx todo.Repository) error {
			_, err := tx.CreateTodo(ctx, &domain.Todo{Title: "t", Contents: "c", Weather: "Rain", UserID: owner.ID})
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		assert.Panics(t, func() {
			_ = store.Atomic(ctx, func(tx todo.Repository) error {
				_, err := tx.CreateTodo(ctx, &domain.Todo{Title: "t", Contents: "c", Weather: "Rain", UserID: owner.ID})
				require.NoError(t, err)
				panic("mid-transaction")
			})
		})

		result, err := store.FindTodos(ctx, domain.FindTodosParams{Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, result.TotalCount, "no partial record survives")
	})

	t.Run("Atomic_Commits", func(t *testing.T) {
		store, teardown := setup(NewClock(start))
		defer teardown()
		ctx := context.Background()

		owner := createUser(t, store, "kim@example.com", "kim")

		var created *domain.Todo
		err := store.Atomic(ctx, func(tx todo.Repository) error {
			var err error
			created, err = tx.CreateTodo(ctx, &domain.Todo{Title: "t", Contents: "c", Weather: "Rain", UserID: owner.ID})
			return err
		})
		require.NoError(t, err)

		fetched, err := store.FindTodoByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "t", fetched.Title)
	})

	t.Run("Users", func(t *testing.T) {
		store, teardown := setup(NewClock(start))
		defer teardown()
		ctx := context.Background()

		created := createUser(t, store, "kim@example.com", "kim")

		fetched, err := store.FindUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "kim@example.com", fetched.Email)
		assert.Equal(t, "kim", fetched.Nickname)

		_, err = store.FindUserByID(ctx, created.ID+1000)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("DeletedOwner_TodosRemainListed", func(t *testing.T) {
		clock := NewClock(start)
		store, teardown := setup(clock)
		defer teardown()
		ctx := context.Background()

		gone := createUser(t, store, "gone@example.com", "gone")
		kept := createUser(t, store, "kim@example.com", "kim")
		orphan := createTodo(t, store, gone.ID, "orphaned", "Sunny")
		clock.Set(start.Add(time.Minute))
		createTodo(t, store, kept.ID, "owned", "Sunny")

		require.NoError(t, store.DeleteUser(ctx, gone.ID))
		assert.ErrorIs(t, store.DeleteUser(ctx, gone.ID), domain.ErrUserNotFound)
		_, err := store.FindUserByID(ctx, gone.ID)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		fetched, err := store.FindTodoByID(ctx, orphan.ID)
		require.NoError(t, err)
		assert.Equal(t, "orphaned", fetched.Title)
		assert.Zero(t, fetched.UserID)
		assert.Nil(t, fetched.User)

		filters := map[string]domain.TodoFilter{
			"all":                {},
			"weather":            weatherFilter("Sunny"),
			"period":             periodFilter(civil.DateOf(start), civil.DateOf(start)),
			"weather and period": withWeather(periodFilter(civil.DateOf(start), civil.DateOf(start)), "Sunny"),
		}
		for name, filter := range filters {
			result, err := store.FindTodos(ctx, domain.FindTodosParams{Filter: filter, Limit: 10})
			require.NoError(t, err, name)
			require.Equal(t, []string{"owned", "orphaned"}, titles(result.Todos), name)
			assert.Equal(t, 2, result.TotalCount, name)
			assert.Nil(t, result.Todos[1].User, name)
			require.NotNil(t, result.Todos[0].User, name)
			assert.Equal(t, kept.ID, result.Todos[0].User.ID, name)
		}
	})

	t.Run("DeleteUser_RevokesKeys", func(t *testing.T) {
		store, teardown := setup(NewClock(start))
		defer teardown()
		ctx := context.Background()

		owner := createUser(t, store, "kim@example.com", "kim")
		require.NoError(t, store.CreateAPIKey(ctx, &domain.APIKey{
			ID:             uuid.Must(uuid.NewV7()).String(),
			UserID:         owner.ID,
			KeyType:        "sk",
			Service:        "wtodo",
			Version:        "v1",
			ShortToken:     "c0ffee0c0ffe",
			LongSecretHash: "hash",
			Name:           "ci",
			IsActive:       true,
			CreatedAt:      start,
		}))

		require.NoError(t, store.DeleteUser(ctx, owner.ID))
		_, err := store.FindAPIKeyByShortToken(ctx, "c0ffee0c0ffe")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("APIKeys", func(t *testing.T) {
		store, teardown := setup(NewClock(start))
		defer teardown()
		ctx := context.Background()

		owner := createUser(t, store, "kim@example.com", "kim")
		expires := start.Add(30 * 24 * time.Hour)
		key := &domain.APIKey{
			ID:             uuid.Must(uuid.NewV7()).String(),
			UserID:         owner.ID,
			KeyType:        "sk",
			Service:        "wtodo",
			Version:        "v1",
			ShortToken:     "a3f5d8c2b4e6",
			LongSecretHash: "hash",
			Name:           "ci",
			IsActive:       true,
			CreatedAt:      start,
			ExpiresAt:      &expires,
		}
		require.NoError(t, store.CreateAPIKey(ctx, key))

		fetched, err := store.FindAPIKeyByShortToken(ctx, "a3f5d8c2b4e6")
		require.NoError(t, err)
		assert.Equal(t, key.ID, fetched.ID)
		assert.Equal(t, owner.ID, fetched.UserID)
		assert.Equal(t, "hash", fetched.LongSecretHash)
		assert.True(t, fetched.IsActive)
		assert.Nil(t, fetched.LastUsedAt)
		require.NotNil(t, fetched.ExpiresAt)
		assertSameInstant(t, expires, *fetched.ExpiresAt)

		later := start.Add(time.Hour)
		require.NoError(t, store.UpdateAPIKeyLastUsed(ctx, key.ID, later))
		require.NoError(t, store.UpdateAPIKeyLastUsed(ctx, key.ID, start), "older timestamps are ignored")

		fetched, err = store.FindAPIKeyByShortToken(ctx, "a3f5d8c2b4e6")
		require.NoError(t, err)
		require.NotNil(t, fetched.LastUsedAt)
		assertSameInstant(t, later, *fetched.LastUsedAt)

		_, err = store.FindAPIKeyByShortToken(ctx, "000000000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = store.UpdateAPIKeyLastUsed(ctx, uuid.Must(uuid.NewV7()).String(), later)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		orphan := *key
		orphan.ID = uuid.Must(uuid.NewV7()).String()
		orphan.ShortToken = "bbbbbbbbbbbb"
		orphan.UserID = owner.ID + 1000
		assert.ErrorIs(t, store.CreateAPIKey(ctx, &orphan), domain.ErrUserNotFound)
	})
}

func createUser(t *testing.T, store Store, email, nickname string) *domain.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), &domain.User{Email: email, Nickname: nickname})
	require.NoError(t, err)
	require.Positive(t, user.ID)
	return user
}

func createTodo(t *testing.T, store Store, userID int64, title, weather string) *domain.Todo {
	t.Helper()
	created, err := store.CreateTodo(context.Background(), &domain.Todo{
		Title:    title,
		Contents: "contents of " + title,
		Weather:  weather,
		UserID:   userID,
	})
	require.NoError(t, err)
	return created
}

func weatherFilter(w string) domain.TodoFilter {
	return domain.TodoFilter{Weather: &w}
}

func periodFilter(startDate, endDate civil.Date) domain.TodoFilter {
	from, to := domain.NewModifiedRange(startDate, endDate)
	return domain.TodoFilter{ModifiedFrom: &from, ModifiedTo: &to}
}

func withWeather(f domain.TodoFilter, w string) domain.TodoFilter {
	f.Weather = &w
	return f
}

func titles(todos []domain.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, td := range todos {
		out = append(out, td.Title)
	}
	return out
}

func assertSameInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}
