// Package models defines the wire and storage types shared by the relay
// and the device-side sync client: nodes, change sets, devices, key
// versions, encrypted nodes, and conflict records.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SyncStatus is a node's local sync state.
type SyncStatus string

const (
	StatusSynced   SyncStatus = "synced"
	StatusPending  SyncStatus = "pending"
	StatusConflict SyncStatus = "conflict"
)

// Platform identifies a device's operating environment.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformMac     Platform = "mac"
	PlatformWindows Platform = "win"
	PlatformWeb     Platform = "web"
)

// Vector is a JSON-serializable version vector (device-id -> counter),
// storable as JSONB on Postgres and TEXT on SQLite via the
// driver.Valuer/sql.Scanner pair below.
type Vector map[string]uint64

// Value implements driver.Valuer for GORM/database-sql persistence.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(src any) error {
	if src == nil {
		*v = Vector{}
		return nil
	}
	var raw []byte
	switch t := src.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return errors.New("models: unsupported Scan source for Vector")
	}
	out := Vector{}
	if len(raw) == 0 {
		*v = out
		return nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*v = out
	return nil
}

// Node is the sync-relevant view of a knowledge-graph node: its opaque
// payload plus the metadata the sync engine itself owns.
type Node struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Namespace       string     `gorm:"index;not null" json:"namespace"`
	Payload         JSONMap    `gorm:"type:jsonb" json:"payload"`
	Vector          Vector     `gorm:"type:jsonb" json:"vector"`
	LastModifierID  string     `json:"last_modifier_device_id"`
	LastModifiedAt  time.Time  `json:"last_modified_at"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"`
	Status          SyncStatus `gorm:"index" json:"status"`
	ContentChecksum string     `json:"content_checksum,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// JSONMap is a flattened dotted-path payload map, JSON/JSONB-persistable.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	var raw []byte
	switch t := src.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return errors.New("models: unsupported Scan source for JSONMap")
	}
	out := JSONMap{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// FieldChange is the wire representation of pkg/changeset.FieldChange.
// OldPresent/NewPresent distinguish a field transitioning to/from JSON
// null from a field that was entirely absent beforehand.
type FieldChange struct {
	Field      string `json:"field"`
	OldValue   any    `json:"old_value"`
	OldPresent bool   `json:"old_present"`
	NewValue   any    `json:"new_value"`
	NewPresent bool   `json:"new_present"`
}

// ChangeSet is the wire payload pushed to, or pulled from, the relay.
// Vector is the node's resulting version vector once this change set was
// applied server-side; a device pulling the change set compares it
// against its own local vector for the node to route the pulled payload
// as dominated (discard), dominating (overwrite), or concurrent
// (auto-merge) without a second round trip.
type ChangeSet struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	NodeID    uuid.UUID  `gorm:"type:uuid;index" json:"node_id"`
	Namespace string     `gorm:"index" json:"namespace"`
	DeviceID  string     `gorm:"index" json:"device_id"`
	Timestamp time.Time  `json:"timestamp"`
	Changes   ChangeList `gorm:"type:jsonb" json:"changes"`
	Vector    Vector     `gorm:"type:jsonb" json:"vector"`
	Cursor    int64      `gorm:"autoIncrement" json:"cursor"`
}

// ChangeList is a persistable slice of FieldChange.
type ChangeList []FieldChange

// Value implements driver.Valuer.
func (c ChangeList) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *ChangeList) Scan(src any) error {
	if src == nil {
		*c = nil
		return nil
	}
	var raw []byte
	switch t := src.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return errors.New("models: unsupported Scan source for ChangeList")
	}
	if len(raw) == 0 {
		*c = nil
		return nil
	}
	return json.Unmarshal(raw, c)
}

// LastSyncedSnapshot is the base payload a device diffs its current state
// against to build a ChangeSet.
type LastSyncedSnapshot struct {
	NodeID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"node_id"`
	Snapshot JSONMap   `gorm:"type:jsonb" json:"snapshot"`
	SyncedAt time.Time `json:"synced_at"`
}

// Device is a registered sync participant.
type Device struct {
	DeviceID      string    `gorm:"primaryKey" json:"device_id"`
	Namespace     string    `gorm:"index" json:"namespace"`
	Platform      Platform  `json:"platform"`
	DisplayName   string    `json:"display_name"`
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
	ClockDriftMs  int64     `json:"clock_drift_ms"`
	SchemaVersion int       `json:"schema_version"`
}

// KeyVersionStatus is a key-version record's lifecycle state.
type KeyVersionStatus string

const (
	KeyVersionActive     KeyVersionStatus = "active"
	KeyVersionRotating   KeyVersionStatus = "rotating"
	KeyVersionDeprecated KeyVersionStatus = "deprecated"
	KeyVersionExpired    KeyVersionStatus = "expired"
)

// KeyVersion records one generation of the Private-tier key hierarchy.
type KeyVersion struct {
	Version        uint32           `gorm:"primaryKey" json:"version"`
	Namespace      string           `gorm:"index" json:"namespace"`
	CreatedAt      time.Time        `json:"created_at"`
	DerivationSalt []byte           `gorm:"type:bytea" json:"derivation_salt"`
	Status         KeyVersionStatus `json:"status"`
}

// EncryptedNode is the wire/storage shape of a Private-tier node: the
// relay only ever sees this, never plaintext.
type EncryptedNode struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Namespace          string    `gorm:"index" json:"namespace"`
	Type               string    `json:"type"`
	EncryptedPayload   []byte    `gorm:"type:bytea" json:"encrypted_payload"`
	EncryptedEmbedding []byte    `gorm:"type:bytea" json:"encrypted_embedding,omitempty"`
	Nonce              []byte    `gorm:"type:bytea" json:"nonce"`
	EncryptionVersion  uint32    `json:"encryption_version"`
	Version            Vector    `gorm:"type:jsonb" json:"version"`
	UpdatedAt          time.Time `json:"updated_at"`
	ContentChecksum    string    `json:"content_checksum"`
}

// FieldConflictRecord is the wire shape of one field's divergence inside
// an UnresolvedConflict.
type FieldConflictRecord struct {
	Field       string    `json:"field"`
	LocalValue  any       `json:"local_value"`
	RemoteValue any       `json:"remote_value"`
	LocalTime   time.Time `json:"local_time"`
	RemoteTime  time.Time `json:"remote_time"`
}

// ConflictList is a persistable slice of FieldConflictRecord.
type ConflictList []FieldConflictRecord

// Value implements driver.Valuer.
func (c ConflictList) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *ConflictList) Scan(src any) error {
	if src == nil {
		*c = nil
		return nil
	}
	var raw []byte
	switch t := src.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return errors.New("models: unsupported Scan source for ConflictList")
	}
	if len(raw) == 0 {
		*c = nil
		return nil
	}
	return json.Unmarshal(raw, c)
}

// UnresolvedConflict records a node whose concurrent edits the auto-merge
// engine could not fold automatically.
type UnresolvedConflict struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	NodeID        uuid.UUID    `gorm:"type:uuid;index" json:"node_id"`
	Namespace     string       `gorm:"index" json:"namespace"`
	LocalVersion  Vector       `gorm:"type:jsonb" json:"local_version"`
	RemoteVersion Vector       `gorm:"type:jsonb" json:"remote_version"`
	Conflicts     ConflictList `gorm:"type:jsonb" json:"conflicts"`
	CreatedAt     time.Time    `json:"created_at"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// ConflictResolvedBy identifies who resolved a conflict.
type ConflictResolvedBy string

const (
	ResolvedByUser ConflictResolvedBy = "user"
	ResolvedByAuto ConflictResolvedBy = "auto"
)

// ConflictHistoryEntry retains a resolved conflict for 30 days after
// resolution, then becomes eligible for garbage collection.
type ConflictHistoryEntry struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	NodeID          uuid.UUID          `gorm:"type:uuid;index" json:"node_id"`
	Namespace       string             `gorm:"index" json:"namespace"`
	RejectedVersion Vector             `gorm:"type:jsonb" json:"rejected_version"`
	ResolvedAt      time.Time          `json:"resolved_at"`
	ResolvedBy      ConflictResolvedBy `json:"resolved_by"`
	ExpiresAt       time.Time          `json:"expires_at"`
}

// NewID returns a fresh random identifier for any of the uuid-keyed types
// above. Primary keys are client-generated UUIDs rather than DB-assigned
// serials, so a node or change set can be created offline before it ever
// reaches the relay.
func NewID() uuid.UUID {
	return uuid.New()
}
