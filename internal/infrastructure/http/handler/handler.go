// Package handler adapts HTTP requests to the todo service.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/weathertodo/internal/application/todo"
)

// TodoHandler serves the /todos resource.
type TodoHandler struct {
	todoService *todo.Service
}

// NewTodoHandler creates a new HTTP API handler.
func NewTodoHandler(todoService *todo.Service) *TodoHandler {
	return &TodoHandler{
		todoService: todoService,
	}
}

// NewRouter mounts the todo routes. requireAuth wraps the routes that need
// an authenticated user; listing and lookup are public.
// Both production code and tests use this function so routing is identical.
func NewRouter(todoService *todo.Service, requireAuth func(http.Handler) http.Handler) http.Handler {
	h := NewTodoHandler(todoService)

	r := chi.NewRouter()
	r.Route("/todos", func(r chi.Router) {
		r.With(requireAuth).Post("/", h.CreateTodo)
		r.Get("/", h.ListTodos)
		r.Get("/{todoId}", h.GetTodo)
	})
	return r
}
