package auth

import (
	"context"
	"time"

	"github.com/rezkam/weathertodo/internal/domain"
)

// Repository defines storage operations for authentication.
type Repository interface {
	// FindAPIKeyByShortToken retrieves an API key by its short token for validation.
	// Returns domain.ErrNotFound if no key has that token.
	FindAPIKeyByShortToken(ctx context.Context, shortToken string) (*domain.APIKey, error)

	// UpdateAPIKeyLastUsed updates the last used timestamp for an API key.
	UpdateAPIKeyLastUsed(ctx context.Context, keyID string, timestamp time.Time) error

	// CreateAPIKey stores a new API key.
	// Returns domain.ErrUserNotFound if key.UserID doesn't exist.
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error

	// FindUserByID retrieves a user.
	// Returns domain.ErrUserNotFound if the user doesn't exist.
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)

	// CreateUser inserts a user and returns it with its assigned id.
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)

	// DeleteUser removes a user and its API keys. The user's todos are kept
	// without an owner.
	// Returns domain.ErrUserNotFound if the user doesn't exist.
	DeleteUser(ctx context.Context, id int64) error
}
