package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/rezkam/weathertodo/internal/infrastructure/http/response"
)

// MaxBodyBytes answers 413 to requests whose body is larger than maxBytes.
// Handlers downstream always see a fully read, size-checked body, so a JSON
// decode error there is never a disguised size error.
func MaxBodyBytes(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			body, err := readLimited(w, r, maxBytes)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if !errors.As(err, &tooLarge) {
					response.BadRequest(w, "failed to read request body")
					return
				}
				slog.WarnContext(r.Context(), "request body too large",
					"method", r.Method,
					"path", r.URL.Path,
					"content_length", r.ContentLength,
					"limit", maxBytes)
				response.Error(w, "PAYLOAD_TOO_LARGE", "request body exceeds size limit", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// readLimited rejects an oversized declared Content-Length without reading,
// and otherwise reads at most maxBytes through http.MaxBytesReader.
func readLimited(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if r.ContentLength > maxBytes {
		return nil, &http.MaxBytesError{Limit: maxBytes}
	}
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
}
