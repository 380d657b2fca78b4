package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/weathertodo/internal/application/auth"
	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/domain"
	mw "github.com/rezkam/weathertodo/internal/infrastructure/http/middleware"
	"github.com/rezkam/weathertodo/internal/infrastructure/persistence/sqlite"
	"github.com/rezkam/weathertodo/internal/infrastructure/weather"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	router http.Handler
	store  *sqlite.Store
	clock  *testClock
	apiKey string
	user   *domain.User
}

// newTestEnv wires the real router, service, authenticator and an in-memory
// store, with today's weather fixed to weatherLabel.
func newTestEnv(t *testing.T, weatherLabel string) *testEnv {
	t.Helper()
	ctx := context.Background()

	clock := &testClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	store, err := sqlite.Open(ctx, sqlite.Config{Path: sqlite.MemoryPath, AutoMigrate: true}, sqlite.WithClock(clock.Now))
	require.NoError(t, err)

	authenticator := auth.NewAuthenticator(ctx, store, auth.Config{})
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, authenticator.Shutdown(shutdownCtx))
		assert.NoError(t, store.Close())
	})

	user, err := auth.CreateUser(ctx, store, "ada@example.com", "ada")
	require.NoError(t, err)
	apiKey, err := auth.CreateAPIKey(ctx, store, user.ID, "sk", "wtodo", "v1", "test", nil)
	require.NoError(t, err)

	svc := todo.NewService(store, weather.Static(weatherLabel), todo.Config{})
	return &testEnv{
		router: NewRouter(svc, mw.NewAuth(authenticator).Validate),
		store:  store,
		clock:  clock,
		apiKey: apiKey,
		user:   user,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) create(t *testing.T, title string) createdTodoDTO {
	t.Helper()
	w := e.do(t, http.MethodPost, "/todos", `{"title":"`+title+`","contents":"body of `+title+`"}`, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dto createdTodoDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
	return dto
}

type errorJSON struct {
	Error struct {
		Code    string `json:"code"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) errorJSON {
	t.Helper()
	var e errorJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}

func TestCreateTodo(t *testing.T) {
	env := newTestEnv(t, "sunny")

	w := env.do(t, http.MethodPost, "/todos", `{"title":"  picnic ","contents":"bring a blanket"}`, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "  picnic ", got["title"], "title is stored as given")
	assert.Equal(t, "bring a blanket", got["contents"])
	assert.Equal(t, "sunny", got["weather"])
	assert.NotZero(t, got["id"])
	assert.Equal(t, map[string]any{
		"id":       float64(env.user.ID),
		"email":    "ada@example.com",
		"nickname": "ada",
	}, got["user"])
}

func TestCreateTodo_AcceptsAPIKeyHeader(t *testing.T) {
	env := newTestEnv(t, "sunny")

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"title":"a","contents":"b"}`))
	req.Header.Set(mw.APIKeyHeader, env.apiKey)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCreateTodo_Errors(t *testing.T) {
	tests := []struct {
		name       string
		weather    string
		body       string
		authorized bool
		apiKey     string
		wantStatus int
		wantCode   string
	}{
		{"missing credentials", "sunny", `{"title":"a","contents":"b"}`, false, "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown key", "sunny", `{"title":"a","contents":"b"}`, false, "sk-wtodo-v1-aaaaaaaaaaaa-bbbbbbbbbbbbbbbbbbbb", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed JSON", "sunny", `{"title":`, true, "", http.StatusBadRequest, "INVALID_REQUEST"},
		{"blank title", "sunny", `{"title":"   ","contents":"b"}`, true, "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing contents", "sunny", `{"title":"a"}`, true, "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"title too long", "sunny", `{"title":"` + strings.Repeat("x", 256) + `","contents":"b"}`, true, "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"weather unavailable", "", `{"title":"a","contents":"b"}`, true, "", http.StatusServiceUnavailable, "WEATHER_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.weather)
			req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(tt.body))
			if tt.authorized {
				req.Header.Set("Authorization", "Bearer "+env.apiKey)
			} else if tt.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+tt.apiKey)
			}
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeErr(t, w).Error.Code)

			page := env.do(t, http.MethodGet, "/todos", "", false)
			assert.Contains(t, page.Body.String(), `"totalElements":0`, "failed creation must not persist")
		})
	}
}

func TestGetTodo(t *testing.T) {
	env := newTestEnv(t, "rainy")
	created := env.create(t, "umbrella")

	w := env.do(t, http.MethodGet, "/todos/"+itoa(created.ID), "", false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got todoDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "rainy", got.Weather)
	require.NotNil(t, got.User)
	assert.Equal(t, env.user.ID, got.User.ID)
	assert.Equal(t, env.clock.Now(), got.CreatedAt)
	assert.Equal(t, env.clock.Now(), got.ModifiedAt)
	assert.Contains(t, w.Body.String(), `"createdAt":"2025-03-14T12:00:00Z"`)
}

func TestTodos_DeletedOwnerRendersNullUser(t *testing.T) {
	env := newTestEnv(t, "rainy")
	created := env.create(t, "umbrella")
	require.NoError(t, auth.DeleteUser(context.Background(), env.store, env.user.ID))

	w := env.do(t, http.MethodGet, "/todos/"+itoa(created.ID), "", false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"user":null`)
	var got todoDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Nil(t, got.User)

	w = env.do(t, http.MethodGet, "/todos", "", false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page todoPageDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Content, 1)
	assert.Equal(t, 1, page.TotalElements)
	assert.Nil(t, page.Content[0].User)
	assert.Contains(t, w.Body.String(), `"user":null`)
}

func TestGetTodo_Errors(t *testing.T) {
	env := newTestEnv(t, "rainy")

	w := env.do(t, http.MethodGet, "/todos/999", "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeErr(t, w).Error.Code)

	w = env.do(t, http.MethodGet, "/todos/abc", "", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeErr(t, w).Error.Code)
}

func TestListTodos_Filters(t *testing.T) {
	env := newTestEnv(t, "sunny")

	env.clock.Set(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	env.create(t, "first")
	env.clock.Set(time.Date(2025, 3, 12, 23, 59, 59, 999999000, time.UTC))
	env.create(t, "second")
	env.clock.Set(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC))
	env.create(t, "third")

	tests := []struct {
		name      string
		query     string
		wantTitle []string
	}{
		{"all", "", []string{"third", "second", "first"}},
		{"weather", "?weather=sunny", []string{"third", "second", "first"}},
		{"other weather", "?weather=rainy", []string{}},
		{"empty weather matches nothing", "?weather=", []string{}},
		{"weather is not trimmed", "?weather=%20sunny%20", []string{}},
		{"period", "?startDate=2025-03-11&endDate=2025-03-12", []string{"second"}},
		{"single day", "?startDate=2025-03-13&endDate=2025-03-13", []string{"third"}},
		{"weather and period", "?weather=sunny&startDate=2025-03-10&endDate=2025-03-12", []string{"second", "first"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/todos"+tt.query, "", false)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var page todoPageDTO
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
			titles := make([]string, len(page.Content))
			for i, item := range page.Content {
				titles[i] = item.Title
			}
			assert.Equal(t, tt.wantTitle, titles)
			assert.Equal(t, len(tt.wantTitle), page.TotalElements)
			assert.Contains(t, w.Body.String(), `"content":[`)
		})
	}
}

func TestListTodos_Pagination(t *testing.T) {
	env := newTestEnv(t, "sunny")
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range 25 {
		env.clock.Set(base.Add(time.Duration(i) * time.Minute))
		env.create(t, "todo"+itoa(int64(i)))
	}

	w := env.do(t, http.MethodGet, "/todos?page=3&size=10", "", false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page todoPageDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 10, page.Size)
	assert.Equal(t, 25, page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Content, 5)
	assert.Equal(t, "todo4", page.Content[0].Title)
	assert.Equal(t, "todo0", page.Content[4].Title)

	w = env.do(t, http.MethodGet, "/todos", "", false)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, todo.DefaultPageSize, page.Size)
	assert.Len(t, page.Content, todo.DefaultPageSize)
}

func TestListTodos_Rejections(t *testing.T) {
	env := newTestEnv(t, "sunny")

	tests := []struct {
		name      string
		query     string
		wantCode  string
		wantField string
	}{
		{"start only", "?startDate=2025-03-01", "INVALID_FILTER", ""},
		{"end only", "?endDate=2025-03-01", "INVALID_FILTER", ""},
		{"inverted range", "?startDate=2025-03-02&endDate=2025-03-01", "INVALID_FILTER", ""},
		{"bad start date", "?startDate=03/01/2025&endDate=2025-03-01", "VALIDATION_ERROR", "startDate"},
		{"bad end date", "?startDate=2025-03-01&endDate=2025-02-30", "VALIDATION_ERROR", "endDate"},
		{"non-numeric page", "?page=first", "VALIDATION_ERROR", "page"},
		{"zero page", "?page=0", "VALIDATION_ERROR", "page"},
		{"zero size", "?size=0", "VALIDATION_ERROR", "page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/todos"+tt.query, "", false)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decodeErr(t, w)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantField != "" {
				require.Len(t, body.Error.Details, 1)
				assert.Equal(t, tt.wantField, body.Error.Details[0].Field)
			}
		})
	}
}
