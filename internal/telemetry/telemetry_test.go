package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "nse", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("Namespace", func(t *testing.T) {
		attr := Namespace("notes-default")
		assert.Equal(t, AttrNamespace, string(attr.Key))
		assert.Equal(t, "notes-default", attr.Value.AsString())
	})

	t.Run("DeviceID", func(t *testing.T) {
		attr := DeviceID("device-1")
		assert.Equal(t, AttrDeviceID, string(attr.Key))
		assert.Equal(t, "device-1", attr.Value.AsString())
	})

	t.Run("NodeID", func(t *testing.T) {
		attr := NodeID("node-123")
		assert.Equal(t, AttrNodeID, string(attr.Key))
		assert.Equal(t, "node-123", attr.Value.AsString())
	})

	t.Run("PayloadID", func(t *testing.T) {
		attr := PayloadID("payload-abc")
		assert.Equal(t, AttrPayloadID, string(attr.Key))
		assert.Equal(t, "payload-abc", attr.Value.AsString())
	})

	t.Run("Section", func(t *testing.T) {
		attr := Section("metadata")
		assert.Equal(t, AttrSection, string(attr.Key))
		assert.Equal(t, "metadata", attr.Value.AsString())
	})

	t.Run("Direction", func(t *testing.T) {
		attr := Direction("push")
		assert.Equal(t, AttrDirection, string(attr.Key))
		assert.Equal(t, "push", attr.Value.AsString())
	})

	t.Run("BatchSize", func(t *testing.T) {
		attr := BatchSize(25)
		assert.Equal(t, AttrBatchSize, string(attr.Key))
		assert.Equal(t, int64(25), attr.Value.AsInt64())
	})

	t.Run("Cursor", func(t *testing.T) {
		attr := Cursor("cursor-1")
		assert.Equal(t, AttrCursor, string(attr.Key))
		assert.Equal(t, "cursor-1", attr.Value.AsString())
	})

	t.Run("SchemaVersion", func(t *testing.T) {
		attr := SchemaVersion(3)
		assert.Equal(t, AttrSchemaVer, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("Vector", func(t *testing.T) {
		attr := Vector("device-1:5,device-2:3")
		assert.Equal(t, AttrVector, string(attr.Key))
		assert.Equal(t, "device-1:5,device-2:3", attr.Value.AsString())
	})

	t.Run("DeviceCount", func(t *testing.T) {
		attr := DeviceCount(4)
		assert.Equal(t, AttrDeviceCount, string(attr.Key))
		assert.Equal(t, int64(4), attr.Value.AsInt64())
	})

	t.Run("Dominance", func(t *testing.T) {
		attr := Dominance("concurrent")
		assert.Equal(t, AttrDominance, string(attr.Key))
		assert.Equal(t, "concurrent", attr.Value.AsString())
	})

	t.Run("Field", func(t *testing.T) {
		attr := Field("metadata.title")
		assert.Equal(t, AttrField, string(attr.Key))
		assert.Equal(t, "metadata.title", attr.Value.AsString())
	})

	t.Run("Strategy", func(t *testing.T) {
		attr := Strategy("latest_wins")
		assert.Equal(t, AttrStrategy, string(attr.Key))
		assert.Equal(t, "latest_wins", attr.Value.AsString())
	})

	t.Run("ConflictID", func(t *testing.T) {
		attr := ConflictID("conflict-1")
		assert.Equal(t, AttrConflictID, string(attr.Key))
		assert.Equal(t, "conflict-1", attr.Value.AsString())
	})

	t.Run("KeyVersion", func(t *testing.T) {
		attr := KeyVersion(2)
		assert.Equal(t, AttrKeyVersion, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("Phase", func(t *testing.T) {
		attr := Phase("reencrypting")
		assert.Equal(t, AttrPhase, string(attr.Key))
		assert.Equal(t, "reencrypting", attr.Value.AsString())
	})

	t.Run("Tier", func(t *testing.T) {
		attr := Tier("private")
		assert.Equal(t, AttrTier, string(attr.Key))
		assert.Equal(t, "private", attr.Value.AsString())
	})

	t.Run("StoreName", func(t *testing.T) {
		attr := StoreName("badger")
		assert.Equal(t, AttrStoreName, string(attr.Key))
		assert.Equal(t, "badger", attr.Value.AsString())
	})
}

func TestStartSyncSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSyncSpan(ctx, "push", "notes-default")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartSyncSpan(ctx, "pull", "notes-default", Cursor("cursor-1"), BatchSize(10))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartVectorSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartVectorSpan(ctx, "compare", DeviceCount(3))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartMergeSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartMergeSpan(ctx, "metadata.title", "latest_wins")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartRotateSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartRotateSpan(ctx, "reencrypting", 2)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartStoreSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartStoreSpan(ctx, "lookup", "badger")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
