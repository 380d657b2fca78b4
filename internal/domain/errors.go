package domain

import "errors"

// Domain errors returned by repository implementations and services.

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrTodoNotFound indicates the requested todo does not exist.
	ErrTodoNotFound = errors.New("todo not found")

	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidID indicates the provided ID format is invalid.
	ErrInvalidID = errors.New("invalid ID format")
)

// Validation errors.
var (
	// ErrInvalidFilter indicates a partial or inverted date-range filter.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidPageRequest indicates a page number below 1 or a non-positive page size.
	ErrInvalidPageRequest = errors.New("invalid page request")

	ErrTitleRequired    = errors.New("title is required")
	ErrTitleTooLong     = errors.New("title must be 255 characters or less")
	ErrContentsRequired = errors.New("contents is required")

	ErrEmailRequired    = errors.New("email is required")
	ErrNicknameRequired = errors.New("nickname is required")
)

// Collaborator errors.
var (
	// ErrWeatherUnavailable indicates today's weather could not be resolved.
	ErrWeatherUnavailable = errors.New("weather unavailable")
)

// Auth errors.
var (
	// ErrUnauthorized indicates missing, invalid, inactive or expired credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidAPIKeyFormat indicates an API key that does not follow the expected layout.
	ErrInvalidAPIKeyFormat = errors.New("invalid API key format")
)
