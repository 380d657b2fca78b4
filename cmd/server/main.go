package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/weathertodo/internal/application/auth"
	"github.com/rezkam/weathertodo/internal/config"
	httpserver "github.com/rezkam/weathertodo/internal/infrastructure/http"
	"github.com/rezkam/weathertodo/internal/infrastructure/observability"
	"github.com/rezkam/weathertodo/internal/infrastructure/persistence"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Root context, cancelled on SIGTERM/SIGINT.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration via OTEL_* env vars (endpoint, headers, resource attributes)
	providers, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.OTelEnabled,
		ServiceName: cfg.Observability.ServiceName,
		LogLevel:    cfg.Observability.Level(),
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer func() {
		// Bounded so an unreachable collector cannot hang exit.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown observability providers", "error", err)
		}
	}()

	slog.InfoContext(ctx, "starting weathertodo",
		"storage", cfg.Storage.Type,
		"otel_enabled", cfg.Observability.OTelEnabled)

	var resources teardown
	defer func() {
		// Fresh context: ctx is already cancelled by the time this runs.
		cleanupCtx, cancel := newShutdownContext(cfg.ShutdownTimeout)
		defer cancel()
		newCleanup(cleanupCtx, &resources)()
	}()

	store, err := persistence.Open(ctx, cfg.Storage, false)
	if err != nil {
		return err
	}
	resources.addCloser("store", store)
	slog.InfoContext(ctx, "storage initialized", "target", storageTarget(cfg.Storage))

	authenticator := auth.NewAuthenticator(ctx, store, auth.Config{
		OperationTimeout: cfg.Auth.OperationTimeout,
		UpdateQueueSize:  cfg.Auth.UpdateQueueSize,
	})
	resources.add("authenticator", authenticator.Shutdown)

	todoService, cacheClient, err := provideTodoService(ctx, cfg, store, providers.Meter)
	if err != nil {
		return err
	}
	resources.addCloser("cache", cacheClient)

	server := httpserver.NewAPIServer(todoService, authenticator, httpserver.ServerConfig{
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
	}, httpserver.WithReadiness(store))

	errResult := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")

		// Fresh context: ctx is already cancelled.
		httpCtx, cancel := newShutdownContext(cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(httpCtx); err != nil {
			slog.WarnContext(httpCtx, "HTTP server shutdown incomplete", "error", err)
		} else {
			slog.InfoContext(httpCtx, "HTTP server shutdown complete")
		}
		return nil
	case err := <-errResult:
		return err
	}
}

// newShutdownContext creates a fresh context with timeout for graceful shutdown operations.
func newShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// storageTarget describes the store for logs without leaking credentials.
func storageTarget(cfg config.StorageConfig) string {
	if cfg.Type == config.StorageSQLite {
		return cfg.SQLite.Path
	}
	return maskPassword(cfg.Database.DSN)
}

// maskPassword masks the password in a connection string for logging.
func maskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}
