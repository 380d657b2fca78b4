// Package todoquery builds the SQL for todo reads from a domain.TodoFilter.
//
// Every listing shape goes through the same builder: the predicates that are
// present are joined with AND and the page and count statements share them.
package todoquery

import (
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rezkam/weathertodo/internal/domain"
)

// Columns is the projection shared by page and by-id queries, in scan order.
var Columns = []string{
	"t.id",
	"t.title",
	"t.contents",
	"t.weather",
	"t.user_id",
	"t.created_at",
	"t.modified_at",
	"u.id",
	"u.email",
	"u.nickname",
	"u.created_at",
}

const (
	fromTodos = "todos t"
	joinUsers = "users u ON u.id = t.user_id"
)

// TimeEncoder converts a bound timestamp to the driver value the dialect stores.
type TimeEncoder func(time.Time) any

// Builder produces dialect-specific statements.
type Builder struct {
	sb         sq.StatementBuilderType
	encodeTime TimeEncoder
}

// New returns a builder using placeholders for the driver and encodeTime for
// timestamp arguments. A nil encoder passes time.Time through.
func New(placeholders sq.PlaceholderFormat, encodeTime TimeEncoder) Builder {
	if encodeTime == nil {
		encodeTime = func(t time.Time) any { return t }
	}
	return Builder{
		sb:         sq.StatementBuilder.PlaceholderFormat(placeholders),
		encodeTime: encodeTime,
	}
}

// Postgres returns the builder for pgx ($1 placeholders, native timestamps).
func Postgres() Builder {
	return New(sq.Dollar, nil)
}

// SQLite returns the builder for sqlite (? placeholders, unix nanosecond timestamps).
func SQLite() Builder {
	return New(sq.Question, func(t time.Time) any { return t.UTC().UnixNano() })
}

// Predicate returns the conjunction of the predicates present in f, or nil
// when f has none.
func (b Builder) Predicate(f domain.TodoFilter) sq.Sqlizer {
	var and sq.And
	if f.HasWeather() {
		and = append(and, sq.Eq{"t.weather": *f.Weather})
	}
	if f.HasPeriod() {
		and = append(and, sq.Expr("t.modified_at BETWEEN ? AND ?",
			b.encodeTime(*f.ModifiedFrom), b.encodeTime(*f.ModifiedTo)))
	}
	if len(and) == 0 {
		return nil
	}
	return and
}

// Page selects one page of todos joined with their owners, newest
// modification first. id breaks ties so pages never overlap.
func (b Builder) Page(f domain.TodoFilter, limit, offset int) (string, []any, error) {
	q := b.sb.Select(Columns...).
		From(fromTodos).
		LeftJoin(joinUsers)
	if p := b.Predicate(f); p != nil {
		q = q.Where(p)
	}
	return q.OrderBy("t.modified_at DESC", "t.id DESC").
		Limit(uint64(max(limit, 0))).
		Offset(uint64(max(offset, 0))).
		ToSql()
}

// Count counts every todo matching f.
func (b Builder) Count(f domain.TodoFilter) (string, []any, error) {
	q := b.sb.Select("COUNT(*)").From(fromTodos)
	if p := b.Predicate(f); p != nil {
		q = q.Where(p)
	}
	return q.ToSql()
}

// ByID selects a single todo joined with its owner.
func (b Builder) ByID(id int64) (string, []any, error) {
	return b.sb.Select(Columns...).
		From(fromTodos).
		LeftJoin(joinUsers).
		Where(sq.Eq{"t.id": id}).
		ToSql()
}

// Insert writes a new todo. The caller supplies the timestamps.
func (b Builder) Insert(todo *domain.Todo, createdAt, modifiedAt time.Time) sq.InsertBuilder {
	return b.sb.Insert("todos").
		Columns("title", "contents", "weather", "user_id", "created_at", "modified_at").
		Values(todo.Title, todo.Contents, todo.Weather, todo.UserID,
			b.encodeTime(createdAt), b.encodeTime(modifiedAt))
}
