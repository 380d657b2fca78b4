package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/weathertodo/internal/domain"
)

const (
	selectAPIKeyByShortToken = `
SELECT id, user_id, key_type, service, version, short_token, long_secret_hash,
       name, is_active, created_at, last_used_at, expires_at
FROM api_keys
WHERE short_token = ?`

	updateAPIKeyLastUsed = `
UPDATE api_keys SET last_used_at = ?
WHERE id = ? AND (last_used_at IS NULL OR last_used_at < ?)`

	apiKeyExists = `SELECT EXISTS (SELECT 1 FROM api_keys WHERE id = ?)`

	insertAPIKey = `
INSERT INTO api_keys (id, user_id, key_type, service, version, short_token, long_secret_hash,
                      name, is_active, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectUserByID = `SELECT id, email, nickname, created_at FROM users WHERE id = ?`

	insertUser = `INSERT INTO users (email, nickname, created_at) VALUES (?, ?, ?)`

	deleteUser = `DELETE FROM users WHERE id = ?`
)

// FindAPIKeyByShortToken retrieves an API key by its short token for validation.
func (s *Store) FindAPIKeyByShortToken(ctx context.Context, shortToken string) (*domain.APIKey, error) {
	var (
		k                   domain.APIKey
		createdAt           int64
		lastUsed, expiresAt sql.NullInt64
	)
	err := s.conn.QueryRowContext(ctx, selectAPIKeyByShortToken, shortToken).Scan(
		&k.ID, &k.UserID, &k.KeyType, &k.Service, &k.Version, &k.ShortToken, &k.LongSecretHash,
		&k.Name, &k.IsActive, &createdAt, &lastUsed, &expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: API key", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	k.CreatedAt = fromNanos(createdAt)
	k.LastUsedAt = fromNullNanos(lastUsed)
	k.ExpiresAt = fromNullNanos(expiresAt)
	return &k, nil
}

// UpdateAPIKeyLastUsed moves last_used_at forward to timestamp.
// Returns domain.ErrNotFound if the key doesn't exist.
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, keyID string, timestamp time.Time) error {
	if _, err := uuid.Parse(keyID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidID, err)
	}

	ts := toNanos(timestamp)
	res, err := s.conn.ExecContext(ctx, updateAPIKeyLastUsed, ts, keyID, ts)
	if err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.conn.QueryRowContext(ctx, apiKeyExists, keyID).Scan(&exists); err != nil {
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
	if _, err := uuid.Parse(key.ID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidID, err)
	}

	var expiresAt sql.NullInt64
	if key.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: toNanos(*key.ExpiresAt), Valid: true}
	}

	_, err := s.conn.ExecContext(ctx, insertAPIKey,
		key.ID, key.UserID, key.KeyType, key.Service, key.Version, key.ShortToken, key.LongSecretHash,
		key.Name, key.IsActive, toNanos(key.CreatedAt), expiresAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: user %d", domain.ErrUserNotFound, key.UserID)
		}
		return fmt.Errorf("failed to create API key: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user.
func (s *Store) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var (
		u         domain.User
		createdAt int64
	)
	err := s.conn.QueryRowContext(ctx, selectUserByID, id).Scan(&u.ID, &u.Email, &u.Nickname, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", domain.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = fromNanos(createdAt)
	return &u, nil
}

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := s.timestamp()

	res, err := s.conn.ExecContext(ctx, insertUser, user.Email, user.Nickname, toNanos(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}

	created := *user
	created.ID = id
	created.CreatedAt = now
	return &created, nil
}

// DeleteUser removes a user. Keys cascade; todos keep a NULL owner.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %d", domain.ErrUserNotFound, id)
	}
	return nil
}
