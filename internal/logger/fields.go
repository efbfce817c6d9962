package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are shared by the relay server and the device-side sync
// client so that logs from either side of a sync session can be
// correlated and queried consistently.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Sync Session & Node Identity
	// ========================================================================
	KeyNamespace  = "namespace"   // Graph namespace being synced
	KeyDeviceID   = "device_id"   // Device identifier (vector-vector actor key)
	KeyNodeID     = "node_id"     // Knowledge-graph node identifier
	KeyPayloadID  = "payload_id"  // Sync payload identifier
	KeySection    = "section"     // Node section: metadata, content, embedding, links
	KeyOperation  = "operation"   // Sub-operation: push, pull, merge, rotate, compact
	KeyCursor     = "cursor"      // Resumable pull/rotation cursor position
	KeyBatchSize  = "batch_size"  // Number of payloads in a push/pull batch
	KeyDirection  = "direction"   // Sync direction: push, pull

	// ========================================================================
	// Version Vectors
	// ========================================================================
	KeyVector       = "vector"        // Serialized version vector
	KeyDeviceCount  = "device_count"  // Number of active devices in a vector
	KeyDominance    = "dominance"     // Dominance relation result: equal, dominates, dominated, concurrent
	KeyInactiveFold = "inactive_fold" // Whether an entry was folded into _inactive during compaction

	// ========================================================================
	// Change Sets & Field Merge
	// ========================================================================
	KeyField        = "field"         // Dotted field path under merge/diff
	KeyStrategy     = "strategy"      // Merge strategy: conflict, latest_wins, union, merge_memberships, max, min, average, sum, max_timestamp
	KeyConflictID   = "conflict_id"   // Unresolved conflict record identifier
	KeyChangeCount  = "change_count"  // Number of changed fields in a change set
	KeyDriftAdjust  = "drift_adj_ms"  // Clock-drift adjustment applied to a timestamp, in milliseconds

	// ========================================================================
	// Private Tier & Key Rotation
	// ========================================================================
	KeyKeyVersion   = "key_version"   // Encryption key version identifier
	KeyPhase        = "phase"         // Rotation phase: generating, reencrypting, verifying, completing
	KeyChecksum     = "checksum"      // Plaintext checksum bound into AEAD associated data
	KeyTier         = "tier"          // Storage tier: standard, private

	// ========================================================================
	// Relay & Transport
	// ========================================================================
	KeyClientIP     = "client_ip"     // Device client IP address
	KeyRequestID    = "request_id"    // HTTP request identifier
	KeyStatusCode   = "status_code"   // HTTP response status code
	KeyLockHolder   = "lock_holder"   // Device holding the namespace sync lock
	KeySchemaVer    = "schema_version" // Protocol schema version

	// ========================================================================
	// Health & Capability
	// ========================================================================
	KeyConnState  = "connectivity_state" // Connectivity state: online, short_offline, medium_offline, long_offline, reauth_required
	KeyLastOnline = "last_online"        // Duration since the device was last online

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // ErrorCode string
	KeySource     = "source"      // Data source: localstore, relaystore, keyring
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Storage Backend
	// ========================================================================
	KeyStoreName = "store_name" // Named store identifier: badger, postgres
	KeyStoreType = "store_type" // Store type
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Sync Session & Node Identity
// ----------------------------------------------------------------------------

// Namespace returns a slog.Attr for the graph namespace being synced
func Namespace(ns string) slog.Attr {
	return slog.String(KeyNamespace, ns)
}

// DeviceID returns a slog.Attr for a device identifier
func DeviceID(id string) slog.Attr {
	return slog.String(KeyDeviceID, id)
}

// NodeID returns a slog.Attr for a knowledge-graph node identifier
func NodeID(id string) slog.Attr {
	return slog.String(KeyNodeID, id)
}

// PayloadID returns a slog.Attr for a sync payload identifier
func PayloadID(id string) slog.Attr {
	return slog.String(KeyPayloadID, id)
}

// Section returns a slog.Attr for a node section (metadata, content, embedding, links)
func Section(s string) slog.Attr {
	return slog.String(KeySection, s)
}

// Operation returns a slog.Attr for a sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Cursor returns a slog.Attr for a resumable cursor position
func Cursor(c string) slog.Attr {
	return slog.String(KeyCursor, c)
}

// BatchSize returns a slog.Attr for the number of payloads in a batch
func BatchSize(n int) slog.Attr {
	return slog.Int(KeyBatchSize, n)
}

// Direction returns a slog.Attr for sync direction (push, pull)
func Direction(d string) slog.Attr {
	return slog.String(KeyDirection, d)
}

// ----------------------------------------------------------------------------
// Version Vectors
// ----------------------------------------------------------------------------

// Vector returns a slog.Attr for a serialized version vector
func Vector(v string) slog.Attr {
	return slog.String(KeyVector, v)
}

// DeviceCount returns a slog.Attr for the number of active devices in a vector
func DeviceCount(n int) slog.Attr {
	return slog.Int(KeyDeviceCount, n)
}

// Dominance returns a slog.Attr for a dominance relation result
func Dominance(rel string) slog.Attr {
	return slog.String(KeyDominance, rel)
}

// InactiveFold returns a slog.Attr indicating whether an entry was folded
// into _inactive during compaction
func InactiveFold(folded bool) slog.Attr {
	return slog.Bool(KeyInactiveFold, folded)
}

// ----------------------------------------------------------------------------
// Change Sets & Field Merge
// ----------------------------------------------------------------------------

// Field returns a slog.Attr for a dotted field path
func Field(path string) slog.Attr {
	return slog.String(KeyField, path)
}

// Strategy returns a slog.Attr for a merge strategy name
func Strategy(s string) slog.Attr {
	return slog.String(KeyStrategy, s)
}

// ConflictID returns a slog.Attr for an unresolved conflict record identifier
func ConflictID(id string) slog.Attr {
	return slog.String(KeyConflictID, id)
}

// ChangeCount returns a slog.Attr for the number of changed fields in a change set
func ChangeCount(n int) slog.Attr {
	return slog.Int(KeyChangeCount, n)
}

// DriftAdjustMs returns a slog.Attr for a clock-drift adjustment in milliseconds
func DriftAdjustMs(ms int64) slog.Attr {
	return slog.Int64(KeyDriftAdjust, ms)
}

// ----------------------------------------------------------------------------
// Private Tier & Key Rotation
// ----------------------------------------------------------------------------

// KeyVersion returns a slog.Attr for an encryption key version identifier
func KeyVersion(v int) slog.Attr {
	return slog.Int(KeyKeyVersion, v)
}

// Phase returns a slog.Attr for a rotation phase
func Phase(p string) slog.Attr {
	return slog.String(KeyPhase, p)
}

// Checksum returns a slog.Attr for a ciphertext checksum
func Checksum(c string) slog.Attr {
	return slog.String(KeyChecksum, c)
}

// Tier returns a slog.Attr for a storage tier (standard, private)
func Tier(t string) slog.Attr {
	return slog.String(KeyTier, t)
}

// ----------------------------------------------------------------------------
// Relay & Transport
// ----------------------------------------------------------------------------

// ClientIP returns a slog.Attr for a device client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// RequestID returns a slog.Attr for an HTTP request identifier
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// StatusCode returns a slog.Attr for an HTTP response status code
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// LockHolder returns a slog.Attr for the device holding a namespace sync lock
func LockHolder(deviceID string) slog.Attr {
	return slog.String(KeyLockHolder, deviceID)
}

// SchemaVersion returns a slog.Attr for the protocol schema version
func SchemaVersion(v int) slog.Attr {
	return slog.Int(KeySchemaVer, v)
}

// ----------------------------------------------------------------------------
// Health & Capability
// ----------------------------------------------------------------------------

// ConnState returns a slog.Attr for a connectivity state
func ConnState(state string) slog.Attr {
	return slog.String(KeyConnState, state)
}

// LastOnline returns a slog.Attr for the duration since last online
func LastOnline(d string) slog.Attr {
	return slog.String(KeyLastOnline, d)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for an error code string
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Source returns a slog.Attr for a data source
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// ----------------------------------------------------------------------------
// Storage Backend
// ----------------------------------------------------------------------------

// StoreName returns a slog.Attr for a named store identifier
func StoreName(name string) slog.Attr {
	return slog.String(KeyStoreName, name)
}

// StoreType returns a slog.Attr for a store type
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}
