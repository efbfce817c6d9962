// Package errs defines the sync-engine's typed error vocabulary.
//
// SyncError is a domain error (bad vector, stale lock, schema mismatch) as
// opposed to an infrastructure error (network failure, disk error, which
// are returned unwrapped from the relevant store/client). Callers use the
// Is*Error predicates to decide whether to retry, surface, or degrade.
package errs

import "fmt"

// Code represents the category of a sync error.
type Code string

const (
	// VectorCompactionConflict indicates a compaction attempt raced an
	// active device that reappeared after being folded into _inactive.
	VectorCompactionConflict Code = "vector_compaction_conflict"

	// ChangeSetBaseMissing indicates no last-synced snapshot exists to
	// diff the current payload against.
	ChangeSetBaseMissing Code = "changeset_base_missing"

	// StrategyTypeMismatch indicates a merge strategy received a field
	// value of a type it cannot operate on (e.g. max on a string).
	StrategyTypeMismatch Code = "strategy_type_mismatch"

	// LockHeld indicates the namespace lock is currently held by another
	// sync session.
	LockHeld Code = "lock_held"

	// LockExpired indicates the caller's lock token expired before the
	// operation it guarded completed.
	LockExpired Code = "lock_expired"

	// SchemaTooOld indicates the device's schema version is behind the
	// relay's minimum supported version (HTTP 426 at the wire level).
	SchemaTooOld Code = "schema_too_old"

	// IntegrityError indicates a Private-tier checksum mismatch or other
	// tamper/corruption signal.
	IntegrityError Code = "integrity_error"

	// KeyVersionMissing indicates no local key material exists for the
	// encryption_version stamped on a payload.
	KeyVersionMissing Code = "key_version_missing"

	// RotationAborted indicates a key rotation was interrupted and could
	// not resume from its persisted cursor.
	RotationAborted Code = "rotation_aborted"

	// OfflineQueueFull indicates the on-device offline sync queue has
	// reached its configured capacity and is rejecting further writes.
	OfflineQueueFull Code = "offline_queue_full"
)

// SyncError is the engine's single error type: a code, a human-readable
// message, and the dotted field path it concerns, if any.
type SyncError struct {
	Code    Code
	Message string
	Field   string
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func new(code Code, msg string) *SyncError {
	return &SyncError{Code: code, Message: msg}
}

func newField(code Code, msg, field string) *SyncError {
	return &SyncError{Code: code, Message: msg, Field: field}
}

// NewVectorCompactionConflictError reports a compaction race.
func NewVectorCompactionConflictError(deviceID string) *SyncError {
	return new(VectorCompactionConflict, "device reactivated during compaction: "+deviceID)
}

// NewChangeSetBaseMissingError reports an absent last-synced snapshot.
func NewChangeSetBaseMissingError(nodeID string) *SyncError {
	return new(ChangeSetBaseMissing, "no last-synced snapshot for node: "+nodeID)
}

// NewStrategyTypeMismatchError reports a field whose value type the named
// strategy cannot operate on.
func NewStrategyTypeMismatchError(field, strategy string) *SyncError {
	return newField(StrategyTypeMismatch, "value type incompatible with strategy "+strategy, field)
}

// NewLockHeldError reports that a namespace lock is held by another holder.
func NewLockHeldError(namespace, holder string) *SyncError {
	return new(LockHeld, fmt.Sprintf("namespace %s locked by %s", namespace, holder))
}

// NewLockExpiredError reports a lock token that expired mid-operation.
func NewLockExpiredError(namespace string) *SyncError {
	return new(LockExpired, "lock expired for namespace: "+namespace)
}

// NewSchemaTooOldError reports a device schema version below the relay
// minimum.
func NewSchemaTooOldError(deviceVersion, minVersion int) *SyncError {
	return new(SchemaTooOld, fmt.Sprintf("device schema %d below minimum %d", deviceVersion, minVersion))
}

// NewIntegrityError reports a checksum or tamper-detection failure.
func NewIntegrityError(nodeID string) *SyncError {
	return new(IntegrityError, "checksum verification failed for node: "+nodeID)
}

// NewKeyVersionMissingError reports missing local key material for an
// encryption version.
func NewKeyVersionMissingError(version uint32) *SyncError {
	return new(KeyVersionMissing, fmt.Sprintf("no local key material for version %d", version))
}

// NewRotationAbortedError reports a rotation that could not resume.
func NewRotationAbortedError(reason string) *SyncError {
	return new(RotationAborted, "rotation aborted: "+reason)
}

// NewOfflineQueueFullError reports a full offline sync queue.
func NewOfflineQueueFullError(capacity int) *SyncError {
	return new(OfflineQueueFull, fmt.Sprintf("offline queue at capacity (%d)", capacity))
}

func codeOf(err error) (Code, bool) {
	if err == nil {
		return "", false
	}
	se, ok := err.(*SyncError)
	if !ok {
		return "", false
	}
	return se.Code, true
}

// IsVectorCompactionConflictError reports whether err is a compaction race.
func IsVectorCompactionConflictError(err error) bool { c, ok := codeOf(err); return ok && c == VectorCompactionConflict }

// IsChangeSetBaseMissingError reports whether err is a missing-base error.
func IsChangeSetBaseMissingError(err error) bool { c, ok := codeOf(err); return ok && c == ChangeSetBaseMissing }

// IsStrategyTypeMismatchError reports whether err is a strategy/type mismatch.
func IsStrategyTypeMismatchError(err error) bool { c, ok := codeOf(err); return ok && c == StrategyTypeMismatch }

// IsLockHeldError reports whether err is a held-lock conflict.
func IsLockHeldError(err error) bool { c, ok := codeOf(err); return ok && c == LockHeld }

// IsLockExpiredError reports whether err is an expired-lock error.
func IsLockExpiredError(err error) bool { c, ok := codeOf(err); return ok && c == LockExpired }

// IsSchemaTooOldError reports whether err is a schema-gate rejection.
func IsSchemaTooOldError(err error) bool { c, ok := codeOf(err); return ok && c == SchemaTooOld }

// IsIntegrityError reports whether err is a checksum/tamper failure.
func IsIntegrityError(err error) bool { c, ok := codeOf(err); return ok && c == IntegrityError }

// IsKeyVersionMissingError reports whether err is a missing-key-version error.
func IsKeyVersionMissingError(err error) bool { c, ok := codeOf(err); return ok && c == KeyVersionMissing }

// IsRotationAbortedError reports whether err is a rotation-abort error.
func IsRotationAbortedError(err error) bool { c, ok := codeOf(err); return ok && c == RotationAborted }

// IsOfflineQueueFullError reports whether err is a full-offline-queue error.
func IsOfflineQueueFullError(err error) bool { c, ok := codeOf(err); return ok && c == OfflineQueueFull }

// Retryable reports whether an error calls for a jittered-backoff retry
// rather than surfacing/halting. Lock contention, lock expiry and vector
// compaction races retry; every other code, including SchemaTooOld, local
// corruption and stale-key errors, is not retryable.
func Retryable(err error) bool {
	c, ok := codeOf(err)
	if !ok {
		return false
	}
	switch c {
	case LockHeld, LockExpired, VectorCompactionConflict:
		return true
	default:
		return false
	}
}
