package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestFilterCarrierGetSetKeys(t *testing.T) {
	c := filterCarrier{"a": "1"}
	c.Set("b", "2")

	if c.Get("a") != "1" || c.Get("b") != "2" {
		t.Fatalf("unexpected carrier contents: %v", c)
	}
	if c.Get("missing") != "" {
		t.Fatalf("expected empty string for a missing key")
	}

	keys := c.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}
}

func TestInjectFiltersWritesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	ctx, span := tracer().Start(context.Background(), "test-span")
	defer span.End()

	filters := InjectFilters(ctx, map[string]string{"cap": "gpu"})

	if filters["cap"] != "gpu" {
		t.Fatalf("expected InjectFilters to preserve existing entries, got %v", filters)
	}
	if _, ok := filters["traceparent"]; !ok {
		t.Fatalf("expected a traceparent key to be injected, got %v", filters)
	}
}

func TestInjectFiltersHandlesNilMap(t *testing.T) {
	ctx, span := tracer().Start(context.Background(), "test-span")
	defer span.End()

	filters := InjectFilters(ctx, nil)
	if filters == nil {
		t.Fatal("expected a non-nil map back")
	}
}

func TestInitWithEmptyEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), "swarm", "")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
