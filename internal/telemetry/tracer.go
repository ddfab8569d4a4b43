// Package telemetry provides OpenTelemetry tracing for policy evaluations.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kubegov/manifestgate/internal/store"
)

// InitTracer sets up an OTLP trace exporter. If endpoint is empty, returns a
// noop tracer and a no-op shutdown function.
func InitTracer(ctx context.Context, endpoint, serviceVersion string) (trace.Tracer, func(context.Context) error, error) {
	const serviceName = "manifestgate"

	if endpoint == "" {
		t := noop.NewTracerProvider().Tracer(serviceName)
		return t, func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	tracer := tp.Tracer(serviceName)
	return tracer, tp.Shutdown, nil
}

// StartEvaluation starts a span for one manifest evaluation, tagged with the
// resource identity.
func StartEvaluation(ctx context.Context, tracer trace.Tracer, kind, namespace, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "policy.evaluate",
		trace.WithAttributes(
			attribute.String("k8s.resource.kind", kind),
			attribute.String("k8s.namespace.name", namespace),
			attribute.String("k8s.resource.name", name),
		),
	)
}

// RecordDecision annotates an evaluation span with its outcome before End.
func RecordDecision(span trace.Span, d store.Decision) {
	span.SetAttributes(
		attribute.Bool("policy.allowed", d.Allowed),
		attribute.Int("policy.violations", len(d.Violations)),
	)
	for _, v := range d.Violations {
		span.AddEvent("violation", trace.WithAttributes(
			attribute.String("code", string(v.Code)),
			attribute.String("severity", string(v.Severity)),
		))
	}
}
