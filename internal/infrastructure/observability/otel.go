// Package observability sets up OpenTelemetry tracing, metrics and logging
// for the process, and defines the todo metrics recorded by the service.
//
// With OpenTelemetry disabled the tracer and meter providers are local SDK
// providers with no exporter, and logs go to stdout as JSON. When enabled,
// all three signals are exported over OTLP/HTTP and configured by the
// standard variables:
//
//	OTEL_EXPORTER_OTLP_ENDPOINT=https://otlp.example.com/otlp
//	OTEL_EXPORTER_OTLP_HEADERS=Authorization=Basic <token>
//	OTEL_RESOURCE_ATTRIBUTES=service.version=1.4.0,deployment.environment=prod
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is reported when Config.ServiceName is empty and
// OTEL_SERVICE_NAME is not set.
const DefaultServiceName = "weathertodo"

const (
	exportTimeout   = 10 * time.Second
	batchTimeout    = 5 * time.Second
	metricInterval  = 15 * time.Second
	logExportWindow = 5 * time.Second
)

// Config holds observability configuration.
type Config struct {
	Enabled     bool       // export over OTLP
	ServiceName string     // defaults to DefaultServiceName
	LogLevel    slog.Level // minimum level for the stdout logger
}

func (c Config) serviceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// Providers bundles the process-wide OpenTelemetry providers.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
	Logger *log.LoggerProvider
}

// Init creates the providers, registers the tracer and meter providers and
// the W3C propagators globally, and installs the process logger as the slog
// default. Providers already created are shut down if a later one fails.
func Init(ctx context.Context, cfg Config) (*Providers, error) {
	if !cfg.Enabled {
		p := &Providers{
			Tracer: sdktrace.NewTracerProvider(),
			Meter:  sdkmetric.NewMeterProvider(),
			Logger: log.NewLoggerProvider(),
		}
		p.register()
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
		return p, nil
	}

	res, err := newResource(ctx, cfg.serviceName())
	if err != nil {
		return nil, err
	}

	p := &Providers{}
	if p.Tracer, err = newTracerProvider(res); err != nil {
		return nil, err
	}
	if p.Meter, err = newMeterProvider(res); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	if p.Logger, err = newLoggerProvider(res); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	p.register()

	slog.SetDefault(otelslog.NewLogger(cfg.serviceName(), otelslog.WithLoggerProvider(p.Logger)))
	return p, nil
}

func (p *Providers) register() {
	otel.SetTracerProvider(p.Tracer)
	otel.SetMeterProvider(p.Meter)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// newResource describes this process. OTEL_SERVICE_NAME and
// OTEL_RESOURCE_ATTRIBUTES override serviceName.
func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	service, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil && !errors.Is(err, resource.ErrPartialResource) {
		return nil, fmt.Errorf("failed to create service resource: %w", err)
	}

	res, err := resource.Merge(resource.Default(), service)
	if err != nil {
		// A schema conflict with the SDK default still leaves a usable resource.
		if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
			return res, nil
		}
		return nil, fmt.Errorf("failed to merge resources: %w", err)
	}
	return res, nil
}

// Exporters are created with context.Background: they outlive Init and must
// not be tied to the signal-cancelled root context.

func newTracerProvider(res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(context.Background(), otlptracehttp.WithTimeout(exportTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
	), nil
}

func newMeterProvider(res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(context.Background(), otlpmetrichttp.WithTimeout(exportTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricInterval))),
	), nil
}

func newLoggerProvider(res *resource.Resource) (*log.LoggerProvider, error) {
	exporter, err := otlploghttp.New(context.Background(), otlploghttp.WithTimeout(exportTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}
	return log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(log.NewBatchProcessor(exporter, log.WithExportTimeout(logExportWindow))),
	), nil
}

// Shutdown flushes and stops every provider, returning all failures joined.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Tracer != nil {
		if err := p.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.Meter != nil {
		if err := p.Meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if p.Logger != nil {
		if err := p.Logger.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logger provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
