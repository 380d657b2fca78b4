package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/config"
	"github.com/rezkam/weathertodo/internal/infrastructure/cache"
	"github.com/rezkam/weathertodo/internal/infrastructure/observability"
	"github.com/rezkam/weathertodo/internal/infrastructure/weather"
)

// provideWeather returns the static provider when a label is configured and
// the HTTP client otherwise.
func provideWeather(cfg config.WeatherConfig) todo.WeatherProvider {
	if cfg.Static != "" {
		return weather.Static(cfg.Static)
	}
	return weather.NewClient(cfg.URL, cfg.Timeout)
}

// provideTodoService builds the service with metrics and, when Redis is
// configured, the lookup cache. The returned closer is the Redis client, or
// nil when the cache is disabled.
func provideTodoService(ctx context.Context, cfg *config.ServerConfig, repo todo.Repository, meters metric.MeterProvider) (*todo.Service, io.Closer, error) {
	metrics, err := observability.NewTodoMetrics(meters)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	opts := []todo.Option{todo.WithMetrics(metrics)}
	var cacheClient io.Closer

	if cfg.Cache.Enabled() {
		rdb, err := cache.Connect(ctx, cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		opts = append(opts, todo.WithCache(cache.NewTodoCache(rdb, cfg.Cache.TTL)))
		cacheClient = rdb
		slog.InfoContext(ctx, "todo lookup cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
	}

	svc := todo.NewService(repo, provideWeather(cfg.Weather), todo.Config{
		DefaultPageSize: cfg.Todo.DefaultPageSize,
		MaxPageSize:     cfg.Todo.MaxPageSize,
	}, opts...)
	return svc, cacheClient, nil
}
