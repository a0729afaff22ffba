package shared

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetAndGetTraceID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	withTrace := SetTraceID(ctx)
	traceID := GetTraceID(withTrace)
	assert.Len(t, traceID, 32)
	_, err := hex.DecodeString(traceID)
	require.NoError(t, err)

	assert.Empty(t, GetTraceID(ctx), "original context unchanged")
	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 123)), "non-string value ignored")
}

func TestSetTraceIDReusesSpanTraceID(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(SetTraceID(ctx)))
}

func TestGenerateTraceIDUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool, 500)
	for i := 0; i < 500; i++ {
		id := generateTraceID()
		require.False(t, seen[id])
		seen[id] = true
	}
}
