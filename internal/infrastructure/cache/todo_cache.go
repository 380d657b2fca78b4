// Package cache stores looked-up todos in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/domain"
)

// DefaultTTL applies when NewTodoCache is given a non-positive TTL.
const DefaultTTL = 10 * time.Minute

var _ todo.Cache = (*TodoCache)(nil)

// TodoCache keeps JSON-encoded todos under todo:{id}.
type TodoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTodoCache wraps an existing client.
func NewTodoCache(rdb *redis.Client, ttl time.Duration) *TodoCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TodoCache{rdb: rdb, ttl: ttl}
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func todoKey(id int64) string {
	return "todo:" + strconv.FormatInt(id, 10)
}

type cachedUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

type cachedTodo struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	Contents   string      `json:"contents"`
	Weather    string      `json:"weather"`
	UserID     int64       `json:"user_id"`
	User       *cachedUser `json:"user,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	ModifiedAt time.Time   `json:"modified_at"`
}

// GetTodo returns the cached todo. A miss reports ok=false with no error.
func (c *TodoCache) GetTodo(ctx context.Context, id int64) (*domain.Todo, bool, error) {
	b, err := c.rdb.Get(ctx, todoKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var ct cachedTodo
	if err := json.Unmarshal(b, &ct); err != nil {
		return nil, false, fmt.Errorf("decode cached todo: %w", err)
	}

	t := &domain.Todo{
		ID:         ct.ID,
		Title:      ct.Title,
		Contents:   ct.Contents,
		Weather:    ct.Weather,
		UserID:     ct.UserID,
		CreatedAt:  ct.CreatedAt.UTC(),
		ModifiedAt: ct.ModifiedAt.UTC(),
	}
	if ct.User != nil {
		t.User = &domain.User{
			ID:        ct.User.ID,
			Email:     ct.User.Email,
			Nickname:  ct.User.Nickname,
			CreatedAt: ct.User.CreatedAt.UTC(),
		}
	}
	return t, true, nil
}

// SetTodo stores t for the configured TTL.
func (c *TodoCache) SetTodo(ctx context.Context, t *domain.Todo) error {
	ct := cachedTodo{
		ID:         t.ID,
		Title:      t.Title,
		Contents:   t.Contents,
		Weather:    t.Weather,
		UserID:     t.UserID,
		CreatedAt:  t.CreatedAt,
		ModifiedAt: t.ModifiedAt,
	}
	if t.User != nil {
		ct.User = &cachedUser{
			ID:        t.User.ID,
			Email:     t.User.Email,
			Nickname:  t.User.Nickname,
			CreatedAt: t.User.CreatedAt,
		}
	}

	b, err := json.Marshal(ct)
	if err != nil {
		return fmt.Errorf("encode todo: %w", err)
	}
	if err := c.rdb.Set(ctx, todoKey(t.ID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
