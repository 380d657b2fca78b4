package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rezkam/weathertodo/internal/domain"
)

// === Auth Repository Implementation ===
// Implements application/auth.Repository.

const (
	selectAPIKeyByShortToken = `
SELECT id::text, user_id, key_type, service, version, short_token, long_secret_hash,
       name, is_active, created_at, last_used_at, expires_at
FROM api_keys
WHERE short_token = $1`

	// Only moves last_used_at forward.
	updateAPIKeyLastUsed = `
UPDATE api_keys SET last_used_at = $2
WHERE id = $1 AND (last_used_at IS NULL OR last_used_at < $2)`

	apiKeyExists = `SELECT EXISTS (SELECT 1 FROM api_keys WHERE id = $1)`

	insertAPIKey = `
INSERT INTO api_keys (id, user_id, key_type, service, version, short_token, long_secret_hash,
                      name, is_active, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	selectUserByID = `SELECT id, email, nickname, created_at FROM users WHERE id = $1`

	insertUser = `
INSERT INTO users (email, nickname, created_at) VALUES ($1, $2, $3)
RETURNING id, created_at`

	deleteUser = `DELETE FROM users WHERE id = $1`
)

// FindAPIKeyByShortToken retrieves an API key by its short token for validation.
func (s *Store) FindAPIKeyByShortToken(ctx context.Context, shortToken string) (*domain.APIKey, error) {
	var k domain.APIKey
	err := s.db.QueryRow(ctx, selectAPIKeyByShortToken, shortToken).Scan(
		&k.ID, &k.UserID, &k.KeyType, &k.Service, &k.Version, &k.ShortToken, &k.LongSecretHash,
		&k.Name, &k.IsActive, &k.CreatedAt, &k.LastUsedAt, &k.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: API key", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	k.CreatedAt = k.CreatedAt.UTC()
	k.LastUsedAt = utcPtr(k.LastUsedAt)
	k.ExpiresAt = utcPtr(k.ExpiresAt)
	return &k, nil
}

// UpdateAPIKeyLastUsed updates the last used timestamp for an API key.
// An older timestamp than the stored one is ignored and reported as success.
// Returns domain.ErrNotFound if the key doesn't exist.
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, keyID string, timestamp time.Time) error {
	id, err := uuid.Parse(keyID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidID, err)
	}

	tag, err := s.db.Exec(ctx, updateAPIKeyLastUsed, id, timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the key doesn't exist or the timestamp wasn't later.
		var exists bool
		if err := s.db.QueryRow(ctx, apiKeyExists, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check key existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: API key", domain.ErrNotFound)
		}
	}

	return nil
}

// CreateAPIKey stores a new API key.
func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	id, err := uuid.Parse(key.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidID, err)
	}

	_, err = s.db.Exec(ctx, insertAPIKey,
		id, key.UserID, key.KeyType, key.Service, key.Version, key.ShortToken, key.LongSecretHash,
		key.Name, key.IsActive, key.CreatedAt.UTC(), utcPtr(key.ExpiresAt),
	)
	if err != nil {
		if isForeignKeyViolation(err, "user_id") {
			return fmt.Errorf("%w: user %d", domain.ErrUserNotFound, key.UserID)
		}
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// FindUserByID retrieves a user.
func (s *Store) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx, selectUserByID, id).Scan(&u.ID, &u.Email, &u.Nickname, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", domain.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	created := *user
	err := s.db.QueryRow(ctx, insertUser, user.Email, user.Nickname, s.timestamp()).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	created.CreatedAt = created.CreatedAt.UTC()
	return &created, nil
}

// DeleteUser removes a user. Keys cascade; todos keep a NULL owner.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, deleteUser, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", domain.ErrUserNotFound, id)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
