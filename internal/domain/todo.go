package domain

import "time"

// Todo is a persisted todo record.
//
// Weather is captured once at creation and never edited. CreatedAt and
// ModifiedAt are assigned by the store; ModifiedAt drives ordering and the
// date-range filter.
type Todo struct {
	ID       int64
	Title    string
	Contents string
	Weather  string

	// Owner relationship. User is populated from an outer join and may be nil
	// when the owner row is missing.
	UserID int64
	User   *User

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// User is the identity a todo belongs to. Todos treat it as read-only.
type User struct {
	ID        int64
	Email     string
	Nickname  string
	CreatedAt time.Time
}

// TodoFilter holds the optional listing predicates (nil = predicate not applied).
// ModifiedFrom and ModifiedTo are either both set or both nil.
type TodoFilter struct {
	Weather      *string
	ModifiedFrom *time.Time
	ModifiedTo   *time.Time
}

// HasWeather reports whether the weather predicate is present.
func (f TodoFilter) HasWeather() bool {
	return f.Weather != nil
}

// HasPeriod reports whether the modified-timestamp window is present.
func (f TodoFilter) HasPeriod() bool {
	return f.ModifiedFrom != nil && f.ModifiedTo != nil
}

// FindTodosParams contains parameters for listing todos with filtering and pagination.
type FindTodosParams struct {
	Filter TodoFilter

	Limit  int // Maximum number of todos to return (page size)
	Offset int // Number of todos to skip (for page N: offset = (N-1) * limit)
}

// PagedResult contains todos matching FindTodosParams.
type PagedResult struct {
	Todos      []Todo // Todos on the requested page
	TotalCount int    // Total matching todos across all pages
}

// ListShape labels which listing predicates are present. It is used for logs
// and metrics only; the query itself is built from the present predicates.
type ListShape string

const (
	ShapeWeatherAndPeriod ListShape = "weather_and_period"
	ShapeWeather          ListShape = "weather"
	ShapePeriod           ListShape = "period"
	ShapeAll              ListShape = "all"
)

// Shape returns the label for the combination of predicates in f.
func (f TodoFilter) Shape() ListShape {
	switch {
	case f.HasWeather() && f.HasPeriod():
		return ShapeWeatherAndPeriod
	case f.HasWeather():
		return ShapeWeather
	case f.HasPeriod():
		return ShapePeriod
	default:
		return ShapeAll
	}
}
