// Package middleware holds the HTTP middleware specific to the todo API.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rezkam/weathertodo/internal/application/auth"
	"github.com/rezkam/weathertodo/internal/domain"
	"github.com/rezkam/weathertodo/internal/infrastructure/http/response"
)

// APIKeyHeader is accepted when no Authorization header is sent.
const APIKeyHeader = "X-API-Key"

// Authenticator resolves an API key to the user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*domain.User, error)
}

var _ Authenticator = (*auth.Authenticator)(nil)

var (
	errMissingCredentials = errors.New("missing Authorization header")
	errMalformedBearer    = errors.New("invalid Authorization header format, expected: Bearer <token>")
)

// Auth guards handlers that need an authenticated user.
type Auth struct {
	authenticator Authenticator
}

// NewAuth creates the middleware around authenticator.
func NewAuth(authenticator Authenticator) *Auth {
	return &Auth{authenticator: authenticator}
}

// credentials returns the presented API key. Authorization takes precedence
// over X-API-Key, and its scheme is matched case-insensitively.
func credentials(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
			return key, nil
		}
		return "", errMissingCredentials
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errMalformedBearer
	}
	return token, nil
}

// Validate puts the key owner in the request context, or answers 401.
// Lookup failures other than a rejected key are logged at error level but
// still answered with 401 so clients cannot probe storage health.
func (a *Auth) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		apiKey, err := credentials(r)
		if err != nil {
			slog.WarnContext(ctx, "authentication failed",
				"reason", err.Error(),
				"method", r.Method,
				"path", r.URL.Path)
			response.Unauthorized(w, err.Error())
			return
		}

		user, err := a.authenticator.Authenticate(ctx, apiKey)
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			slog.WarnContext(ctx, "authentication failed",
				"reason", "invalid or expired API key",
				"method", r.Method,
				"path", r.URL.Path)
			response.Unauthorized(w, "invalid or expired API key")
			return
		case err != nil:
			slog.ErrorContext(ctx, "API key lookup failed",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err)
			response.Unauthorized(w, "invalid or expired API key")
			return
		}

		slog.DebugContext(ctx, "request authenticated", "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(auth.WithUser(ctx, user)))
	})
}
