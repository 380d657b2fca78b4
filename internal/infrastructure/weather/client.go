// Package weather resolves today's weather label for new todos.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultURL serves a year of daily weather labels keyed by month and day.
const DefaultURL = "https://f-api.github.io/f-api/weather.json"

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

// Compile-time verification that Client implements todo.WeatherProvider.
var _ todo.WeatherProvider = (*Client)(nil)

type dailyWeather struct {
	Date    string `json:"date"`
	Weather string `json:"weather"`
}

// Client fetches the daily weather table over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(wc *Client) { wc.httpClient = c }
}

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(wc *Client) { wc.now = now }
}

// NewClient creates a client for the table at url. An empty url uses DefaultURL.
func NewClient(url string, timeout time.Duration, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		url: url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TodayWeather returns the label for the current UTC month and day.
// Every failure wraps domain.ErrWeatherUnavailable.
func (c *Client) TodayWeather(ctx context.Context) (string, error) {
	today := c.now().UTC().Format("01-02")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrWeatherUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrWeatherUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.WarnContext(ctx, "failed to close weather response body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: upstream status %d", domain.ErrWeatherUnavailable, resp.StatusCode)
	}

	var days []dailyWeather
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&days); err != nil {
		return "", fmt.Errorf("%w: decode: %w", domain.ErrWeatherUnavailable, err)
	}

	for _, d := range days {
		if d.Date != today {
			continue
		}
		label := strings.TrimSpace(d.Weather)
		if label == "" {
			break
		}
		slog.DebugContext(ctx, "resolved weather", "date", today, "weather", label)
		return label, nil
	}
	return "", fmt.Errorf("%w: no entry for %s", domain.ErrWeatherUnavailable, today)
}
