package weather

import (
	"context"
	"fmt"

	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/domain"
)

var _ todo.WeatherProvider = Static("")

// Static always reports the same label. Used offline and in tests.
type Static string

// TodayWeather returns the fixed label.
func (s Static) TodayWeather(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: no static weather configured", domain.ErrWeatherUnavailable)
	}
	return string(s), nil
}
