package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/weathertodo/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human message.
type ErrorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []ErrorField `json:"details,omitempty"`
}

// ErrorField names the request field a validation error applies to.
type ErrorField struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Error codes.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidFilter      = "INVALID_FILTER"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeWeatherUnavailable = "WEATHER_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error writes a response with the given code and message.
func Error(w http.ResponseWriter, code, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// BadRequest rejects a body or parameter that could not be parsed at all.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, CodeInvalidRequest, message, http.StatusBadRequest)
}

// ValidationError rejects a well-formed request with an invalid field.
func ValidationError(w http.ResponseWriter, field, issue string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    CodeValidation,
			Message: "validation failed",
			Details: []ErrorField{{Field: field, Issue: issue}},
		},
	})
}

// Unauthorized answers 401 with a bearer challenge.
func Unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="weathertodo"`)
	Error(w, CodeUnauthorized, message, http.StatusUnauthorized)
}

// errorMapping turns one domain sentinel into a response. A non-empty field
// makes it a validation error; an empty message echoes err.Error().
type errorMapping struct {
	target  error
	status  int
	code    string
	field   string
	message string
}

// domainErrors is checked in order with errors.Is; specific sentinels come
// before the generic ones they may wrap.
var domainErrors = []errorMapping{
	{target: domain.ErrInvalidFilter, status: http.StatusBadRequest, code: CodeInvalidFilter},
	{target: domain.ErrInvalidPageRequest, field: "page", message: "page must be >= 1 and size must be > 0"},
	{target: domain.ErrTitleRequired, field: "title", message: "required field missing"},
	{target: domain.ErrTitleTooLong, field: "title", message: "must be 255 characters or less"},
	{target: domain.ErrContentsRequired, field: "contents", message: "required field missing"},
	{target: domain.ErrInvalidID, field: "id", message: "invalid ID format"},
	{target: domain.ErrTodoNotFound, status: http.StatusNotFound, code: CodeNotFound, message: "todo not found"},
	{target: domain.ErrUserNotFound, status: http.StatusNotFound, code: CodeNotFound, message: "user not found"},
	{target: domain.ErrNotFound, status: http.StatusNotFound, code: CodeNotFound, message: "resource not found"},
	{target: domain.ErrWeatherUnavailable, status: http.StatusServiceUnavailable, code: CodeWeatherUnavailable,
		message: "weather service unavailable, try again later"},
}

// FromDomainError writes the response for err. Unrecognised errors are
// logged and answered with a generic 500.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrUnauthorized) {
		Unauthorized(w, "invalid or missing API key")
		return
	}

	for _, m := range domainErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.field != "" {
			ValidationError(w, m.field, m.message)
			return
		}
		if m.status >= http.StatusInternalServerError {
			slog.WarnContext(r.Context(), "dependency unavailable", "error", err)
		}
		message := m.message
		if message == "" {
			message = err.Error()
		}
		Error(w, m.code, message, m.status)
		return
	}

	slog.ErrorContext(r.Context(), "internal server error",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
	Error(w, CodeInternal, "an internal error occurred", http.StatusInternalServerError)
}
