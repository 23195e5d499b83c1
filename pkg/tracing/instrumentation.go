package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextLogger returns a logger carrying the trace and span ids of ctx, or
// logger itself when ctx holds no recording span
func ContextLogger(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// TraceComponent starts the span wrapping one generator component
func TraceComponent(ctx context.Context, component string, seed int64) (context.Context, trace.Span) {
	return StartSpan(ctx, "generate."+component,
		attribute.String("component", component),
		attribute.Int64("seed", seed),
	)
}

// TraceBatch starts the span wrapping one batch delivered to a sink
func TraceBatch(ctx context.Context, sink, collection, batchID string, index, size int) (context.Context, trace.Span) {
	return StartSpan(ctx, "deliver.batch",
		attribute.String("sink", sink),
		attribute.String("collection", collection),
		attribute.String("batch.id", batchID),
		attribute.Int("batch.index", index),
		attribute.Int("batch.size", size),
	)
}

// TraceStoreOperation starts the span wrapping a collection store call
func TraceStoreOperation(ctx context.Context, operation, collection string) (context.Context, trace.Span) {
	return StartSpan(ctx, "store."+operation,
		attribute.String("store.operation", operation),
		attribute.String("collection", collection),
	)
}
