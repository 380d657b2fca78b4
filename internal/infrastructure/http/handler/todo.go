package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/weathertodo/internal/application/auth"
	"github.com/rezkam/weathertodo/internal/domain"
	"github.com/rezkam/weathertodo/internal/infrastructure/http/response"
)

// CreateTodo handles POST /todos.
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "authentication required")
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}

	created, err := h.todoService.CreateTodo(r.Context(), user, req.Title, req.Contents)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create todo via HTTP",
			"user_id", user.ID,
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "todo created via HTTP",
		"todo_id", created.ID,
		"user_id", user.ID,
		"weather", created.Weather)

	response.OK(w, mapCreatedTodo(created))
}

// ListTodos handles GET /todos.
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query(), h.todoService.DefaultPageSize())
	if err != nil {
		var qe *queryError
		if errors.As(err, &qe) {
			response.ValidationError(w, qe.param, qe.issue)
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	page, err := h.todoService.ListTodos(r.Context(), q)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to list todos via HTTP",
			"page", q.Page,
			"size", q.Size,
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, mapTodoPage(page))
}

// GetTodo handles GET /todos/{todoId}.
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "todoId")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		response.FromDomainError(w, r, domain.ErrInvalidID)
		return
	}

	view, err := h.todoService.GetTodo(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrTodoNotFound) {
			slog.ErrorContext(r.Context(), "failed to get todo via HTTP",
				"todo_id", id,
				"error", err)
		}
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, mapTodo(*view))
}
