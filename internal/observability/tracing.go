// Package observability wires the agent's tracing, metrics, and resource
// telemetry into the otel/prometheus/gopsutil stack, ground:
// internal/observability/tracing.go+metrics.go and
// internal/monitoring/resource_monitor.go, generalized from a per-service
// HTTP concern to a per-run pipeline concern (one span per phase, one
// gauge set per run, one resource sample published on the event bus
// instead of an HTTP scrape-only surface).
package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InitTracer initializes a tracer provider exporting to backendURL (a
// Jaeger collector endpoint by default, or a Zipkin one if the URL
// contains "zipkin"), sets it as the global provider, and returns it so
// the caller can flush it on shutdown. An empty backendURL installs a
// provider with no exporter: spans are still created but never exported.
func InitTracer(serviceName, backendURL string) (*sdktrace.TracerProvider, error) {
	if backendURL == "" {
		tp := sdktrace.NewTracerProvider(sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)))
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	var (
		exp sdktrace.SpanExporter
		err error
	)
	if strings.Contains(strings.ToLower(backendURL), "zipkin") {
		exp, err = zipkin.New(backendURL)
	} else {
		exp, err = jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(backendURL)))
	}
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartPhaseSpan starts a span named for phase, tagged with the run id, so
// every phase execution in internal/pipeline is independently traceable
// regardless of which exporter (or none) is configured.
func StartPhaseSpan(ctx context.Context, tracer trace.Tracer, runID, phase string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pipeline.phase."+phase, trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("phase", phase),
	))
}
