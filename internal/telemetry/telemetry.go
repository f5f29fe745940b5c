// Package telemetry wires up OpenTelemetry tracing for the daemon: one
// span per queue record drained, with child spans around matcher
// resolution and the matcher's keyword search. Other tracker and LLM calls
// get no span of their own.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name used throughout the
// daemon's spans.
const tracerName = "claude-sync-daemon"

// Shutdown flushes and stops the tracer provider.
type Shutdown func(ctx context.Context) error

// Init builds and installs a global TracerProvider exporting spans via
// OTLP/HTTP to endpoint. When endpoint is empty, tracing is a no-op
// (spans are created but discarded) so the daemon runs the same whether
// or not a collector is configured.
func Init(ctx context.Context, serviceName, endpoint string) (Shutdown, error) {
	if endpoint == "" {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func(shutdownCtx context.Context) error {
		return tp.Shutdown(shutdownCtx)
	}, nil
}

// Tracer returns the daemon's named tracer off the globally installed
// provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan is a small convenience wrapper for opening a span per unit of
// work.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}
