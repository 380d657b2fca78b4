// Package keygen generates and parses split-token API keys of the form
// {key_type}-{service}-{version}-{short_token}-{long_secret}.
package keygen

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rezkam/weathertodo/internal/domain"
	"golang.org/x/crypto/blake2b"
)

// Defaults for keys issued by todoctl.
const (
	DefaultKeyType = "sk"
	DefaultService = "wtodo"
	DefaultVersion = "v1"
)

const (
	shortTokenBytes = 6 // 12 hex chars
	longSecretBytes = 32
)

// APIKeyParts represents the components of an API key.
type APIKeyParts struct {
	KeyType    string // "sk" (secret key) or "pk" (public key)
	Service    string // e.g. "wtodo"
	Version    string // e.g. "v1"
	ShortToken string // lookup token, 12 hex chars taken from the secret's BLAKE2b hash
	LongSecret string // 43 chars, unpadded base64url
	FullKey    string
}

// GenerateAPIKey creates a new key.
// Example: sk-wtodo-v1-a3f5d8c2b4e6-8h3k2jf9s7d6f5g4h3j2k1m0n9p8q7r6s5t4u3v2w1x
func GenerateAPIKey(keyType, service, version string) (*APIKeyParts, error) {
	for name, part := range map[string]string{"key type": keyType, "service": service, "version": version} {
		if part == "" || strings.Contains(part, "-") {
			return nil, fmt.Errorf("%w: %s must be non-empty and contain no '-'", domain.ErrInvalidAPIKeyFormat, name)
		}
	}

	longBytes := make([]byte, longSecretBytes)
	if _, err := rand.Read(longBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	longSecret := base64.RawURLEncoding.EncodeToString(longBytes)

	hash := blake2b.Sum256([]byte(longSecret))
	shortToken := hex.EncodeToString(hash[:shortTokenBytes])

	return &APIKeyParts{
		KeyType:    keyType,
		Service:    service,
		Version:    version,
		ShortToken: shortToken,
		LongSecret: longSecret,
		FullKey:    strings.Join([]string{keyType, service, version, shortToken, longSecret}, "-"),
	}, nil
}

// ParseAPIKey splits an API key into its components.
// The long secret is base64url and may itself contain '-', so the key is split
// into at most five parts.
func ParseAPIKey(apiKey string) (*APIKeyParts, error) {
	parts := strings.SplitN(apiKey, "-", 5)
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: expected 5 parts, got %d", domain.ErrInvalidAPIKeyFormat, len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: part %d is empty", domain.ErrInvalidAPIKeyFormat, i+1)
		}
	}
	if len(parts[3]) != shortTokenBytes*2 {
		return nil, fmt.Errorf("%w: short token must be %d characters", domain.ErrInvalidAPIKeyFormat, shortTokenBytes*2)
	}

	return &APIKeyParts{
		KeyType:    parts[0],
		Service:    parts[1],
		Version:    parts[2],
		ShortToken: parts[3],
		LongSecret: parts[4],
		FullKey:    apiKey,
	}, nil
}

// DisplayKey returns the key with its secret masked, e.g. "sk-wtodo-v1-a3f5d8c2b4e6-****".
func (k *APIKeyParts) DisplayKey() string {
	return fmt.Sprintf("%s-%s-%s-%s-****", k.KeyType, k.Service, k.Version, k.ShortToken)
}

// HashSecret returns the hex-encoded BLAKE2b-256 hash of secret.
func HashSecret(secret string) string {
	hash := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:])
}

// VerifySecret reports whether secret hashes to storedHash, in constant time.
func VerifySecret(secret, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashSecret(secret)), []byte(storedHash)) == 1
}
