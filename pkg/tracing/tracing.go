package tracing

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

// SetTracer installs the tracer used by StartSpan; nil turns spans into no-ops.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a child span of whatever span ctx carries
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName)
}

func recordingSpan(ctx context.Context) (trace.Span, bool) {
	if tracer == nil {
		return nil, false
	}
	span := trace.SpanFromContext(ctx)
	return span, span.SpanContext().IsValid()
}

// TraceParent is the W3C traceparent of the span in ctx, or "" without one.
// Event headers carry it so consumers can join the ingestion trace.
func TraceParent(ctx context.Context) string {
	if _, ok := recordingSpan(ctx); !ok {
		return ""
	}
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier.Get("traceparent")
}

// GetTraceID returns the hex trace id of the span in ctx, or ""
func GetTraceID(ctx context.Context) string {
	span, ok := recordingSpan(ctx)
	if !ok {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
