package todo

import (
	"time"

	"github.com/rezkam/weathertodo/internal/domain"
)

// UserView is the public projection of a todo owner.
type UserView struct {
	ID       int64
	Email    string
	Nickname string
}

// TodoView is the projection returned by lookups and listings.
// User is nil when the owner row is missing.
type TodoView struct {
	ID         int64
	Title      string
	Contents   string
	Weather    string
	User       *UserView
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// CreatedTodo is the projection returned after a successful creation.
type CreatedTodo struct {
	ID       int64
	Title    string
	Contents string
	Weather  string
	User     UserView
}

// TodoPage is one page of a listing.
type TodoPage struct {
	Items         []TodoView
	Page          int
	Size          int
	TotalElements int
	TotalPages    int
}

func newUserView(u *domain.User) *UserView {
	if u == nil {
		return nil
	}
	return &UserView{ID: u.ID, Email: u.Email, Nickname: u.Nickname}
}

func newTodoView(t *domain.Todo) TodoView {
	return TodoView{
		ID:         t.ID,
		Title:      t.Title,
		Contents:   t.Contents,
		Weather:    t.Weather,
		User:       newUserView(t.User),
		CreatedAt:  t.CreatedAt,
		ModifiedAt: t.ModifiedAt,
	}
}

func newTodoPage(result *domain.PagedResult, page, size int) *TodoPage {
	items := make([]TodoView, 0, len(result.Todos))
	for i := range result.Todos {
		items = append(items, newTodoView(&result.Todos[i]))
	}

	return &TodoPage{
		Items:         items,
		Page:          page,
		Size:          size,
		TotalElements: result.TotalCount,
		TotalPages:    totalPages(result.TotalCount, size),
	}
}

func totalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
