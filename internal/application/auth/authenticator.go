// Package auth resolves API keys to users and provisions both.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rezkam/weathertodo/internal/domain"
	"github.com/rezkam/weathertodo/internal/infrastructure/keygen"
)

const (
	DefaultOperationTimeout = 5 * time.Second
	DefaultUpdateQueueSize  = 1000
)

// Config holds configuration for the Authenticator.
type Config struct {
	OperationTimeout time.Duration    // per storage call; negative = default, zero = none
	UpdateQueueSize  int              // buffered last_used_at updates; non-positive = default
	Now              func() time.Time // expiry and last_used_at clock; nil = time.Now
}

type lastUsedUpdate struct {
	keyID     string
	timestamp time.Time
}

// Authenticator resolves API keys to the users that own them. Successful
// lookups record last_used_at asynchronously through a bounded queue that a
// single worker drains; updates that do not fit are dropped.
type Authenticator struct {
	repo             Repository
	appCtx           context.Context // cancelled on application shutdown
	now              func() time.Time
	operationTimeout time.Duration

	lastUsedUpdates chan lastUsedUpdate
	shutdownChan    chan struct{}
	shutdownOnce    sync.Once
	wg              sync.WaitGroup
}

// NewAuthenticator starts the last_used_at worker. ctx is the application
// context; queued updates still drain on Shutdown after it is cancelled.
func NewAuthenticator(ctx context.Context, repo Repository, config Config) *Authenticator {
	if config.OperationTimeout < 0 {
		config.OperationTimeout = DefaultOperationTimeout
	}
	if config.UpdateQueueSize <= 0 {
		config.UpdateQueueSize = DefaultUpdateQueueSize
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	a := &Authenticator{
		repo:             repo,
		appCtx:           ctx,
		now:              config.Now,
		operationTimeout: config.OperationTimeout,
		lastUsedUpdates:  make(chan lastUsedUpdate, config.UpdateQueueSize),
		shutdownChan:     make(chan struct{}),
	}

	a.wg.Add(1)
	go a.runLastUsedWorker()

	return a
}

// withTimeout derives an operation context. Zero timeout means none.
func (a *Authenticator) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if a.operationTimeout == 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.operationTimeout)
}

func (a *Authenticator) recordLastUsed(parent context.Context, u lastUsedUpdate) {
	ctx, cancel := a.withTimeout(parent)
	defer cancel()
	if err := a.repo.UpdateAPIKeyLastUsed(ctx, u.keyID, u.timestamp); err != nil {
		slog.WarnContext(ctx, "failed to update API key last_used_at",
			"key_id", u.keyID,
			"error", err)
	}
}

func (a *Authenticator) runLastUsedWorker() {
	defer a.wg.Done()

	for {
		select {
		case u := <-a.lastUsedUpdates:
			a.recordLastUsed(a.appCtx, u)
		case <-a.shutdownChan:
			a.drainLastUsed()
			return
		}
	}
}

// drainLastUsed flushes what is already queued. appCtx may be cancelled by
// now, so each write gets a fresh context.
func (a *Authenticator) drainLastUsed() {
	for {
		select {
		case u := <-a.lastUsedUpdates:
			a.recordLastUsed(context.Background(), u)
		default:
			return
		}
	}
}

// Shutdown stops the worker after it drains queued updates, or returns when
// ctx is done. It is idempotent.
func (a *Authenticator) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.shutdownOnce.Do(func() {
		close(a.shutdownChan)

		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			shutdownErr = fmt.Errorf("shutdown timeout: %w", ctx.Err())
		}
	})
	return shutdownErr
}

// Authenticate validates apiKey and returns the user that owns it.
//
// A key that is malformed, unknown, carries the wrong secret or prefix, is
// inactive or expired, or whose owner no longer exists yields
// domain.ErrUnauthorized. Storage failures are returned wrapped so callers
// can log them apart from ordinary rejections.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (*domain.User, error) {
	parts, err := keygen.ParseAPIKey(apiKey)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	opCtx, cancel := a.withTimeout(ctx)
	defer cancel()

	key, err := a.repo.FindAPIKeyByShortToken(opCtx, parts.ShortToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}

	if !keygen.VerifySecret(parts.LongSecret, key.LongSecretHash) {
		return nil, domain.ErrUnauthorized
	}
	if parts.KeyType != key.KeyType || parts.Service != key.Service || parts.Version != key.Version {
		return nil, domain.ErrUnauthorized
	}
	if !key.IsActive {
		return nil, domain.ErrUnauthorized
	}

	now := a.now().UTC()
	if key.ExpiresAt != nil && !now.Before(*key.ExpiresAt) {
		return nil, domain.ErrUnauthorized
	}

	user, err := a.repo.FindUserByID(opCtx, key.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			slog.WarnContext(ctx, "API key owner no longer exists",
				"key_id", key.ID,
				"user_id", key.UserID)
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load API key owner: %w", err)
	}

	select {
	case a.lastUsedUpdates <- lastUsedUpdate{keyID: key.ID, timestamp: now}:
	default:
		slog.WarnContext(ctx, "dropped last_used_at update, queue full",
			"key_id", key.ID)
	}

	return user, nil
}
