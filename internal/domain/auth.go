package domain

import "time"

// APIKey is an aggregate root representing an API key for authentication.
//
// API keys use a split-token pattern:
//   - ShortToken: indexed portion for lookup
//   - LongSecretHash: cryptographic hash for verification
//   - the full key is only shown once at creation (short + long)
//
// Every key belongs to exactly one user; a request authenticated with the key
// acts as that user.
type APIKey struct {
	ID             string
	UserID         int64
	KeyType        string // "sk" = secret key, "pk" = public key
	Service        string // Service name (e.g., "wtodo")
	Version        string // API version (e.g., "v1")
	ShortToken     string // Indexed portion for fast lookup
	LongSecretHash string // BLAKE2b-256 hash of long secret
	Name           string // Human-readable name/description
	IsActive       bool
	CreatedAt      time.Time
	LastUsedAt     *time.Time
	ExpiresAt      *time.Time
}
