package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for sync operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Sync session attributes
	// ========================================================================
	AttrNamespace   = "sync.namespace"    // Graph namespace being synced
	AttrDeviceID    = "sync.device_id"    // Device identifier
	AttrNodeID      = "sync.node_id"      // Knowledge-graph node identifier
	AttrPayloadID   = "sync.payload_id"   // Sync payload identifier
	AttrSection     = "sync.section"      // Node section: metadata, content, embedding, links
	AttrDirection   = "sync.direction"    // push, pull
	AttrBatchSize   = "sync.batch_size"   // Number of payloads in a batch
	AttrCursor      = "sync.cursor"       // Resumable cursor position
	AttrSchemaVer   = "sync.schema_version"

	// ========================================================================
	// Version vector attributes
	// ========================================================================
	AttrVector      = "vvector.value"
	AttrDeviceCount = "vvector.device_count"
	AttrDominance   = "vvector.dominance"

	// ========================================================================
	// Merge & conflict attributes
	// ========================================================================
	AttrField      = "merge.field"
	AttrStrategy   = "merge.strategy"
	AttrConflictID = "merge.conflict_id"

	// ========================================================================
	// Private tier & key rotation attributes
	// ========================================================================
	AttrKeyVersion = "keyring.key_version"
	AttrPhase      = "keyring.phase"
	AttrTier       = "sync.tier"

	// ========================================================================
	// User/Auth attributes
	// ========================================================================
	AttrUsername = "user.name"
	AttrAuth     = "auth.method"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrStoreName = "store.name"
	AttrStoreType = "store.type"
)

// Span names for sync operations.
// Format: <component>.<operation>
const (
	// ========================================================================
	// Relay protocol spans
	// ========================================================================
	SpanSyncPush    = "sync.push"
	SpanSyncPull    = "sync.pull"
	SpanSyncLock    = "sync.lock"
	SpanSyncUnlock  = "sync.unlock"

	// ========================================================================
	// Version vector spans
	// ========================================================================
	SpanVectorCompare  = "vvector.compare"
	SpanVectorMerge    = "vvector.merge"
	SpanVectorIncr     = "vvector.increment"
	SpanVectorCompact  = "vvector.compact"

	// ========================================================================
	// Auto-merge spans
	// ========================================================================
	SpanChangeSetDiff = "changeset.diff"
	SpanMergeApply    = "automerge.apply"
	SpanMergeFold     = "automerge.fold"

	// ========================================================================
	// Private tier & key rotation spans
	// ========================================================================
	SpanKeyDerive     = "privatetier.derive_key"
	SpanEncode        = "privatetier.encode"
	SpanDecode        = "privatetier.decode"
	SpanRotateStart   = "keyring.rotate_start"
	SpanRotateStep    = "keyring.rotate_step"
	SpanRotateVerify  = "keyring.rotate_verify"
	SpanRotateComplete = "keyring.rotate_complete"

	// ========================================================================
	// Local/relay storage spans
	// ========================================================================
	SpanStoreLookup = "store.lookup"
	SpanStoreWrite  = "store.write"
	SpanStoreDelete = "store.delete"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Namespace returns an attribute for the graph namespace being synced
func Namespace(ns string) attribute.KeyValue {
	return attribute.String(AttrNamespace, ns)
}

// DeviceID returns an attribute for a device identifier
func DeviceID(id string) attribute.KeyValue {
	return attribute.String(AttrDeviceID, id)
}

// NodeID returns an attribute for a knowledge-graph node identifier
func NodeID(id string) attribute.KeyValue {
	return attribute.String(AttrNodeID, id)
}

// PayloadID returns an attribute for a sync payload identifier
func PayloadID(id string) attribute.KeyValue {
	return attribute.String(AttrPayloadID, id)
}

// Section returns an attribute for a node section
func Section(s string) attribute.KeyValue {
	return attribute.String(AttrSection, s)
}

// Direction returns an attribute for sync direction
func Direction(d string) attribute.KeyValue {
	return attribute.String(AttrDirection, d)
}

// BatchSize returns an attribute for batch size
func BatchSize(n int) attribute.KeyValue {
	return attribute.Int(AttrBatchSize, n)
}

// Cursor returns an attribute for a resumable cursor position
func Cursor(c string) attribute.KeyValue {
	return attribute.String(AttrCursor, c)
}

// SchemaVersion returns an attribute for the protocol schema version
func SchemaVersion(v int) attribute.KeyValue {
	return attribute.Int(AttrSchemaVer, v)
}

// Vector returns an attribute for a serialized version vector
func Vector(v string) attribute.KeyValue {
	return attribute.String(AttrVector, v)
}

// DeviceCount returns an attribute for the number of active devices in a vector
func DeviceCount(n int) attribute.KeyValue {
	return attribute.Int(AttrDeviceCount, n)
}

// Dominance returns an attribute for a dominance relation result
func Dominance(rel string) attribute.KeyValue {
	return attribute.String(AttrDominance, rel)
}

// Field returns an attribute for a dotted field path under merge
func Field(path string) attribute.KeyValue {
	return attribute.String(AttrField, path)
}

// Strategy returns an attribute for a merge strategy name
func Strategy(s string) attribute.KeyValue {
	return attribute.String(AttrStrategy, s)
}

// ConflictID returns an attribute for an unresolved conflict record identifier
func ConflictID(id string) attribute.KeyValue {
	return attribute.String(AttrConflictID, id)
}

// KeyVersion returns an attribute for an encryption key version
func KeyVersion(v int) attribute.KeyValue {
	return attribute.Int(AttrKeyVersion, v)
}

// Phase returns an attribute for a rotation phase
func Phase(p string) attribute.KeyValue {
	return attribute.String(AttrPhase, p)
}

// Tier returns an attribute for a storage tier (standard, private)
func Tier(t string) attribute.KeyValue {
	return attribute.String(AttrTier, t)
}

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// AuthMethod returns an attribute for authentication method
func AuthMethod(method string) attribute.KeyValue {
	return attribute.String(AttrAuth, method)
}

// StoreName returns an attribute for store name
func StoreName(name string) attribute.KeyValue {
	return attribute.String(AttrStoreName, name)
}

// StoreType returns an attribute for store type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// StartSyncSpan starts a span for a push/pull sync operation.
func StartSyncSpan(ctx context.Context, direction, namespace string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Direction(direction),
		Namespace(namespace),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "sync."+direction, trace.WithAttributes(allAttrs...))
}

// StartVectorSpan starts a span for a version vector operation.
func StartVectorSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "vvector."+operation, trace.WithAttributes(attrs...))
}

// StartMergeSpan starts a span for an auto-merge operation on a single field.
func StartMergeSpan(ctx context.Context, field, strategy string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Field(field),
		Strategy(strategy),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "automerge.apply", trace.WithAttributes(allAttrs...))
}

// StartRotateSpan starts a span for a key rotation step.
func StartRotateSpan(ctx context.Context, phase string, keyVersion int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Phase(phase),
		KeyVersion(keyVersion),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "keyring.rotate_"+phase, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a storage backend operation.
func StartStoreSpan(ctx context.Context, operation, storeName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		StoreName(storeName),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "store."+operation, trace.WithAttributes(allAttrs...))
}
