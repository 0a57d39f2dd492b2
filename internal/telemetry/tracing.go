// Package telemetry configures OpenTelemetry tracing for the hotspot pipeline.
//
// Custom span attributes use the `pulse.` prefix.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/campuspulse/pulse/server"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider installs an OTLP gRPC trace exporter.
// If endpoint is empty the global no-op provider stays in place.
// The returned shutdown function flushes pending spans.
func InitTraceProvider(ctx context.Context, endpoint, serviceName string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartPipelineSpan creates the parent span for a hotspot pipeline run.
func StartPipelineSpan(ctx context.Context, runID, trigger string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "hotspots.run",
		trace.WithAttributes(
			attribute.String("pulse.run_id", runID),
			attribute.String("pulse.trigger", trigger),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartClusterSpan creates a child span for building one hotspot.
func StartClusterSpan(ctx context.Context, clusterIndex, members int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "hotspots.cluster",
		trace.WithAttributes(
			attribute.Int("pulse.cluster_index", clusterIndex),
			attribute.Int("pulse.cluster_members", members),
		),
	)
}

// StartEnrichmentSpan creates the span for an asynchronous enrichment run.
func StartEnrichmentSpan(ctx context.Context, runID string, candidates int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "hotspots.enrich",
		trace.WithAttributes(
			attribute.String("pulse.run_id", runID),
			attribute.Int("pulse.candidates", candidates),
		),
	)
}

// StartGenerateSpan creates a client span for a text-generation call.
func StartGenerateSpan(ctx context.Context, provider string, chunk int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "gen_ai.chat",
		trace.WithAttributes(
			attribute.String("gen_ai.system", provider),
			attribute.Int("pulse.chunk", chunk),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}
