package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/weathertodo/internal/application/todo"
	"github.com/rezkam/weathertodo/internal/domain"
)

const meterName = "github.com/rezkam/weathertodo/todo"

var _ todo.Metrics = (*TodoMetrics)(nil)

// TodoMetrics records todo service activity as OpenTelemetry instruments.
type TodoMetrics struct {
	created     metric.Int64Counter
	listed      metric.Int64Counter
	listResults metric.Int64Histogram
}

// NewTodoMetrics creates the instruments on provider.
func NewTodoMetrics(provider metric.MeterProvider) (*TodoMetrics, error) {
	meter := provider.Meter(meterName)

	created, err := meter.Int64Counter("todos.created",
		metric.WithDescription("Todos persisted"),
		metric.WithUnit("{todo}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create todos.created counter: %w", err)
	}

	listed, err := meter.Int64Counter("todos.listed",
		metric.WithDescription("Listing requests served, by filter shape"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create todos.listed counter: %w", err)
	}

	listResults, err := meter.Int64Histogram("todos.list.results",
		metric.WithDescription("Todos returned per listing page"),
		metric.WithUnit("{todo}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100))
	if err != nil {
		return nil, fmt.Errorf("failed to create todos.list.results histogram: %w", err)
	}

	return &TodoMetrics{
		created:     created,
		listed:      listed,
		listResults: listResults,
	}, nil
}

// RecordTodoCreated counts one persisted todo.
func (m *TodoMetrics) RecordTodoCreated(ctx context.Context) {
	m.created.Add(ctx, 1)
}

// RecordTodosListed counts one listing of the given shape and its page size.
func (m *TodoMetrics) RecordTodosListed(ctx context.Context, shape domain.ListShape, results int) {
	attrs := metric.WithAttributes(attribute.String("shape", string(shape)))
	m.listed.Add(ctx, 1, attrs)
	m.listResults.Record(ctx, int64(results), attrs)
}
