package handler

import (
	"time"

	"github.com/rezkam/weathertodo/internal/application/todo"
)

// createTodoRequest is the body of POST /todos.
type createTodoRequest struct {
	Title    string `json:"title"`
	Contents string `json:"contents"`
}

type userDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

type todoDTO struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Contents   string    `json:"contents"`
	Weather    string    `json:"weather"`
	User       *userDTO  `json:"user"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

type createdTodoDTO struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Contents string  `json:"contents"`
	Weather  string  `json:"weather"`
	User     userDTO `json:"user"`
}

type todoPageDTO struct {
	Content       []todoDTO `json:"content"`
	Page          int       `json:"page"`
	Size          int       `json:"size"`
	TotalElements int       `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
}

func mapUser(u todo.UserView) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Nickname: u.Nickname}
}

// mapTodo converts a view to its wire form. Timestamps are emitted in UTC.
func mapTodo(v todo.TodoView) todoDTO {
	dto := todoDTO{
		ID:         v.ID,
		Title:      v.Title,
		Contents:   v.Contents,
		Weather:    v.Weather,
		CreatedAt:  v.CreatedAt.UTC(),
		ModifiedAt: v.ModifiedAt.UTC(),
	}
	if v.User != nil {
		u := mapUser(*v.User)
		dto.User = &u
	}
	return dto
}

func mapCreatedTodo(c *todo.CreatedTodo) createdTodoDTO {
	return createdTodoDTO{
		ID:       c.ID,
		Title:    c.Title,
		Contents: c.Contents,
		Weather:  c.Weather,
		User:     mapUser(c.User),
	}
}

// mapTodoPage always emits a JSON array for content, never null.
func mapTodoPage(p *todo.TodoPage) todoPageDTO {
	content := make([]todoDTO, len(p.Items))
	for i, item := range p.Items {
		content[i] = mapTodo(item)
	}
	return todoPageDTO{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}
