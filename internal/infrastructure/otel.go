// Package infrastructure wires the OpenTelemetry providers: traces to a
// stdout exporter and metrics through the Prometheus bridge, exposed on
// /metrics alongside the plain client_golang collectors.
package infrastructure

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "cleanbot"

// Providers bundles the configured telemetry providers and their
// shutdown hooks.
type Providers struct {
	Tracer   trace.Tracer
	Meter    metric.Meter
	Registry *prometheus.Registry

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewProviders sets up tracing and metrics. traceOut receives the
// exported spans; pass io.Discard outside development.
func NewProviders(traceOut io.Writer) (*Providers, error) {
	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(traceOut),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	registry := prometheus.NewRegistry()
	metricExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(metricExporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	return &Providers{
		Tracer:         tracerProvider.Tracer(serviceName),
		Meter:          meterProvider.Meter(serviceName),
		Registry:       registry,
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
	}, nil
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// BusinessMetrics are the domain counters recorded by the cleaning
// service.
type BusinessMetrics struct {
	TablesCleaned    metric.Int64Counter
	RowsRemoved      metric.Int64Counter
	CellsImputed     metric.Int64Counter
	CleanDurationSec metric.Float64Histogram
}

// NewBusinessMetrics creates the domain instruments on the given meter.
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	tablesCleaned, err := meter.Int64Counter("cleanbot_tables_cleaned_total",
		metric.WithDescription("Tables processed by the cleaning pipeline."))
	if err != nil {
		return nil, err
	}
	rowsRemoved, err := meter.Int64Counter("cleanbot_rows_removed_total",
		metric.WithDescription("Rows removed by deduplication and outlier filtering."))
	if err != nil {
		return nil, err
	}
	cellsImputed, err := meter.Int64Counter("cleanbot_cells_imputed_total",
		metric.WithDescription("Cells filled by the imputation stage."))
	if err != nil {
		return nil, err
	}
	cleanDuration, err := meter.Float64Histogram("cleanbot_clean_duration_seconds",
		metric.WithDescription("Wall-clock duration of one table cleaning run."))
	if err != nil {
		return nil, err
	}
	return &BusinessMetrics{
		TablesCleaned:    tablesCleaned,
		RowsRemoved:      rowsRemoved,
		CellsImputed:     cellsImputed,
		CleanDurationSec: cleanDuration,
	}, nil
}
