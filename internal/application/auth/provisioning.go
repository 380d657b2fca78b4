package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/weathertodo/internal/domain"
	"github.com/rezkam/weathertodo/internal/infrastructure/keygen"
)

// CreateUser validates and stores a new user.
func CreateUser(ctx context.Context, repo Repository, email, nickname string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	nickname = strings.TrimSpace(nickname)
	if email == "" {
		return nil, domain.ErrEmailRequired
	}
	if nickname == "" {
		return nil, domain.ErrNicknameRequired
	}

	user, err := repo.CreateUser(ctx, &domain.User{
		Email:    email,
		Nickname: nickname,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user and revokes its keys. Its todos stay listed
// without an owner.
func DeleteUser(ctx context.Context, repo Repository, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: user %d", domain.ErrUserNotFound, id)
	}
	if err := repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// CreateAPIKey issues a key for userID and returns the plain key.
// The plain key is not stored and cannot be recovered later.
func CreateAPIKey(ctx context.Context, repo Repository, userID int64, keyType, service, version, name string, expiresAt *time.Time) (string, error) {
	keyParts, err := keygen.GenerateAPIKey(keyType, service, version)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}

	keyID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate key ID: %w", err)
	}

	err = repo.CreateAPIKey(ctx, &domain.APIKey{
		ID:             keyID.String(),
		UserID:         userID,
		KeyType:        keyParts.KeyType,
		Service:        keyParts.Service,
		Version:        keyParts.Version,
		ShortToken:     keyParts.ShortToken,
		LongSecretHash: keygen.HashSecret(keyParts.LongSecret),
		Name:           name,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create API key: %w", err)
	}

	return keyParts.FullKey, nil
}
