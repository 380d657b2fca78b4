package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/rezkam/weathertodo/internal/application/todo"
)

// queryError names the query parameter that failed to parse.
type queryError struct {
	param string
	issue string
}

func (e *queryError) Error() string {
	return fmt.Sprintf("%s: %s", e.param, e.issue)
}

// parseListQuery reads weather, startDate, endDate, page and size.
// Absent page defaults to 1 and absent size to defaultSize. A supplied weather
// value is passed through untouched, even when empty. Range and page
// validation is left to the service.
func parseListQuery(values url.Values, defaultSize int) (todo.ListQuery, error) {
	q := todo.ListQuery{Page: 1, Size: defaultSize}

	if values.Has("weather") {
		w := values.Get("weather")
		q.Weather = &w
	}

	var err error
	if q.StartDate, err = parseDate(values, "startDate"); err != nil {
		return todo.ListQuery{}, err
	}
	if q.EndDate, err = parseDate(values, "endDate"); err != nil {
		return todo.ListQuery{}, err
	}
	if q.Page, err = parseInt(values, "page", q.Page); err != nil {
		return todo.ListQuery{}, err
	}
	if q.Size, err = parseInt(values, "size", q.Size); err != nil {
		return todo.ListQuery{}, err
	}
	return q, nil
}

func parseDate(values url.Values, param string) (*civil.Date, error) {
	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return nil, &queryError{param: param, issue: "must be an ISO date (YYYY-MM-DD)"}
	}
	return &d, nil
}

func parseInt(values url.Values, param string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &queryError{param: param, issue: "must be an integer"}
	}
	return n, nil
}
