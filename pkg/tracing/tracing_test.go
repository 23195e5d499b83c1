package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProviderDisabled(t *testing.T) {
	tp, err := NewProvider(context.Background(), DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	ctx, span := TraceComponent(context.Background(), "auth", 42)
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestProviderStdout(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Writer = &buf

	tp, err := NewProvider(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		NewProvider(context.Background(), DefaultConfig(), zap.NewNop())
	})

	ctx, span := TraceBatch(context.Background(), "http", "payments", "b-1", 0, 100)
	assert.True(t, span.SpanContext().IsValid())

	core, logs := observer.New(zap.InfoLevel)
	ContextLogger(ctx, zap.New(core)).Info("delivering")
	span.End()

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])

	headers := map[string]string{}
	InjectTraceContext(ctx, headers)
	assert.Contains(t, headers, "traceparent")

	extracted := ExtractTraceContext(context.Background(), headers)
	_, child := StartSpan(extracted, "child")
	assert.Equal(t, span.SpanContext().TraceID(), child.SpanContext().TraceID())
	child.End()

	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "deliver.batch")
}

func TestUnsupportedExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "zipkin"

	_, err := NewProvider(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContextLoggerWithoutSpan(t *testing.T) {
	logger := zap.NewNop()
	assert.Same(t, logger, ContextLogger(context.Background(), logger))
}
