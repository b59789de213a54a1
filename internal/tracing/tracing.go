// Package tracing wires OpenTelemetry spans around the three operations
// SPEC_FULL.md's domain stack calls out — queue, work_once, and evaluate —
// propagating the trace context through a job's filter map so a worker's
// span on the other side of the queue links as a child of the requester's
// span rather than starting a disconnected trace. Grounded on
// Jeeves-Cluster-Organization-jeeves-core's coreengine/observability/tracing.go
// for the exporter/resource/provider setup; the span-per-operation and
// context-propagation-through-a-plain-map shape has no direct analogue
// there (that package only traces its own in-process gRPC/pipeline calls)
// and is built from go.opentelemetry.io/otel/propagation's
// TextMapCarrier, the library's own mechanism for carrying a trace context
// through a transport that isn't already an HTTP/gRPC header set.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/swarm-lang/swarm/internal/queue"

// Init installs an OTLP/gRPC exporter and registers it as the global
// tracer provider, returning a shutdown func to flush on process exit.
// endpoint is the collector address (e.g. "localhost:4317"); an empty
// endpoint is treated as tracing being disabled, returning a no-op
// shutdown.
func Init(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp.Shutdown, nil
}

func tracer() trace.Tracer { return otel.Tracer(instrumentationName) }

// StartQueue opens the span covering a Queue call (the enqueue side of
// spec §4.10's queue operation).
func StartQueue(ctx context.Context) (context.Context, trace.Span) {
	return tracer().Start(ctx, "queue")
}

// StartWorkOnce opens the span covering one WorkOnce poll-and-evaluate
// cycle, as the child of whatever trace context filters carried from the
// job's originating queue() call.
func StartWorkOnce(ctx context.Context, filters map[string]string) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, filterCarrier(filters))
	return tracer().Start(ctx, "work_once")
}

// StartEvaluate opens the span covering a single evaluate() call — the
// interpreter walking one AST subtree to a value.
func StartEvaluate(ctx context.Context) (context.Context, trace.Span) {
	return tracer().Start(ctx, "evaluate")
}

// InjectFilters writes the current span context into filters so a job
// queued from ctx carries its trace id to whichever worker eventually
// pops it, per this package's doc comment on why propagation rides the
// filter map instead of a transport header.
func InjectFilters(ctx context.Context, filters map[string]string) map[string]string {
	if filters == nil {
		filters = map[string]string{}
	}
	otel.GetTextMapPropagator().Inject(ctx, filterCarrier(filters))
	return filters
}

// filterCarrier adapts a job's plain string filter map to
// propagation.TextMapCarrier so the standard W3C tracecontext propagator
// can read and write it without knowing anything about jobs or filters.
type filterCarrier map[string]string

func (c filterCarrier) Get(key string) string { return c[key] }
func (c filterCarrier) Set(key, value string) { c[key] = value }
func (c filterCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
