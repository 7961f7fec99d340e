package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracerProvider(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exp))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	return exp, func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	}
}

func TestStartSpanNesting(t *testing.T) {
	exp, cleanup := setupTracerProvider(t)
	defer cleanup()

	ctx, parent := StartSpan(context.Background(), "OrderService.ReturnBook")
	_, child := StartSpan(ctx, "Store.Put")
	child.End()
	parent.End()

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "Store.Put" || spans[1].Name != "OrderService.ReturnBook" {
		t.Errorf("unexpected span names %q, %q", spans[0].Name, spans[1].Name)
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("expected child span to reference parent")
	}
}

func TestSpanHelpers(t *testing.T) {
	exp, cleanup := setupTracerProvider(t)
	defer cleanup()

	_, span := StartSpan(context.Background(), "sweep")
	AddSpanAttributes(span, attribute.Int("orders.cancelled", 2))
	AddSpanEvent(span, "order.cancelled", attribute.Int64("order.id", 4))
	RecordSpanError(span, errors.New("storage unavailable"))
	span.End()

	_, succeeded := StartSpan(context.Background(), "pickup")
	SetSpanSuccess(succeeded)
	succeeded.End()

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	failed := spans[0]
	if failed.Status.Code != codes.Error || failed.Status.Description != "storage unavailable" {
		t.Errorf("expected error status, got %+v", failed.Status)
	}
	if len(failed.Attributes) != 1 || failed.Attributes[0].Key != "orders.cancelled" {
		t.Errorf("unexpected attributes %v", failed.Attributes)
	}
	var names []string
	for _, e := range failed.Events {
		names = append(names, e.Name)
	}
	if len(names) != 2 || names[0] != "order.cancelled" || names[1] != "exception" {
		t.Errorf("expected cancelled and exception events, got %v", names)
	}

	if spans[1].Status.Code != codes.Ok {
		t.Errorf("expected ok status, got %+v", spans[1].Status)
	}
}

func TestStartSpanAttributes(t *testing.T) {
	exp, cleanup := setupTracerProvider(t)
	defer cleanup()

	_, span := StartSpan(context.Background(), "OrderService.Pickup", attribute.Int64("order.id", 9))
	span.End()

	got := exp.GetSpans()[0]
	if len(got.Attributes) != 1 || got.Attributes[0].Value.AsInt64() != 9 {
		t.Errorf("expected order.id=9, got %v", got.Attributes)
	}
}

func TestEndSpan(t *testing.T) {
	exp, cleanup := setupTracerProvider(t)
	defer cleanup()

	_, failed := StartSpan(context.Background(), "Store.Get")
	EndSpan(failed, errors.New("disk full"))
	_, ok := StartSpan(context.Background(), "Store.Put")
	EndSpan(ok, nil)
	EndSpan(nil, nil)

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error || spans[1].Status.Code != codes.Ok {
		t.Errorf("unexpected statuses %v, %v", spans[0].Status, spans[1].Status)
	}
}

func TestSpanHelpersTolerateNil(t *testing.T) {
	AddSpanAttributes(nil, attribute.String("k", "v"))
	AddSpanEvent(nil, "e")
	RecordSpanError(nil, errors.New("x"))
	SetSpanSuccess(nil)

	_, cleanup := setupTracerProvider(t)
	defer cleanup()
	_, span := StartSpan(context.Background(), "noop")
	RecordSpanError(span, nil)
	span.End()
}

func TestTraceAndSpanID(t *testing.T) {
	if TraceID(context.Background()) != "" || SpanID(context.Background()) != "" {
		t.Error("expected empty ids without a span")
	}

	_, cleanup := setupTracerProvider(t)
	defer cleanup()

	ctx, parent := StartSpan(context.Background(), "parent")
	defer parent.End()
	childCtx, child := StartSpan(ctx, "child")
	defer child.End()

	if TraceID(ctx) != TraceID(childCtx) {
		t.Error("expected nested spans to share a trace id")
	}
	if SpanID(ctx) == SpanID(childCtx) {
		t.Error("expected nested spans to have distinct span ids")
	}
}
