package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/rezkam/weathertodo/internal/config"
	"github.com/rezkam/weathertodo/internal/infrastructure/persistence/sqlite"
	"github.com/rezkam/weathertodo/internal/infrastructure/weather"
)

func TestProvideWeather(t *testing.T) {
	assert.Equal(t, weather.Static("sunny"), provideWeather(config.WeatherConfig{Static: "sunny"}))
	assert.IsType(t, &weather.Client{}, provideWeather(config.WeatherConfig{URL: "http://127.0.0.1:1/weather.json", Timeout: time.Second}))
}

func TestProvideTodoService(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, sqlite.Config{Path: sqlite.MemoryPath, AutoMigrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	meters := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = meters.Shutdown(ctx) })

	t.Run("without cache", func(t *testing.T) {
		cfg := &config.ServerConfig{Todo: config.TodoConfig{DefaultPageSize: 15, MaxPageSize: 50}}
		svc, cacheClient, err := provideTodoService(ctx, cfg, store, meters)
		require.NoError(t, err)
		assert.Nil(t, cacheClient)
		assert.Equal(t, 15, svc.DefaultPageSize())
	})

	t.Run("with cache", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.ServerConfig{Cache: config.CacheConfig{Addr: mr.Addr(), TTL: time.Minute}}
		svc, cacheClient, err := provideTodoService(ctx, cfg, store, meters)
		require.NoError(t, err)
		require.NotNil(t, cacheClient)
		assert.NotNil(t, svc)
		assert.NoError(t, cacheClient.Close())
	})

	t.Run("unreachable cache", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		cfg := &config.ServerConfig{Cache: config.CacheConfig{Addr: addr}}
		_, _, err := provideTodoService(ctx, cfg, store, meters)
		assert.Error(t, err)
	})
}
