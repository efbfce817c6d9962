// Package changeset builds field-level change sets by diffing a node's
// current payload against its last-synced base snapshot.
package changeset

import (
	"reflect"
	"sort"
	"time"
)

// FieldChange describes one field's transition. OldValue/NewValue are nil
// to represent JSON null; Present distinguishes null from "field absent".
type FieldChange struct {
	Field      string `json:"field"`
	OldValue   any    `json:"old_value"`
	OldPresent bool   `json:"old_present"`
	NewValue   any    `json:"new_value"`
	NewPresent bool   `json:"new_present"`
}

// ChangeSet is the unit exchanged with the relay: every field that moved
// since the node's last-synced snapshot, relative to that snapshot.
type ChangeSet struct {
	NodeID    string        `json:"node_id"`
	DeviceID  string        `json:"device_id"`
	Timestamp time.Time     `json:"timestamp"`
	Changes   []FieldChange `json:"changes"`
}

// syncableFields is the closed, versioned set of dotted paths this engine
// will ever diff or merge. Any field outside this set is left untouched
// by sync and never appears in a ChangeSet.
var syncableFields = map[string]struct{}{
	"content.title":                    {},
	"content.body":                     {},
	"content.summary":                  {},
	"organization.tags":                {},
	"organization.cluster_memberships": {},
	"neural.stability":                 {},
	"neural.retrievability":            {},
	"neural.difficulty":                {},
	"neural.importance":                {},
	"temporal.last_accessed":           {},
	"temporal.access_count":            {},
	"state.lifecycle":                  {},
	"state.flags":                      {},
}

// IsSyncableField reports whether path is part of the closed syncable set.
func IsSyncableField(path string) bool {
	_, ok := syncableFields[path]
	return ok
}

// Diff builds a ChangeSet from a flattened base snapshot and current
// payload. Both maps use dotted paths as keys; a key's absence means
// "undefined", a key mapped to nil means JSON null — these are distinct
// for change-detection purposes (undefined→null IS a change).
func Diff(nodeID, deviceID string, base, current map[string]any, now time.Time) ChangeSet {
	cs := ChangeSet{NodeID: nodeID, DeviceID: deviceID, Timestamp: now}

	paths := make(map[string]struct{}, len(base)+len(current))
	for p := range base {
		paths[p] = struct{}{}
	}
	for p := range current {
		paths[p] = struct{}{}
	}

	var ordered []string
	for p := range paths {
		if IsSyncableField(p) {
			ordered = append(ordered, p)
		}
	}
	sort.Strings(ordered)

	for _, p := range ordered {
		oldVal, oldPresent := base[p]
		newVal, newPresent := current[p]

		if oldPresent == newPresent && deepEqual(oldVal, newVal) {
			continue
		}

		cs.Changes = append(cs.Changes, FieldChange{
			Field:      p,
			OldValue:   oldVal,
			OldPresent: oldPresent,
			NewValue:   newVal,
			NewPresent: newPresent,
		})
	}

	return cs
}

// deepEqual distinguishes nil (null) from missing via the caller-tracked
// presence flags; it only needs to compare two present-or-absent values
// structurally once presence itself has been checked.
func deepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// ApplyDriftAdjustment returns ts shifted by -driftMs, converting a
// device-local timestamp into the relay's best estimate of true wall-clock
// time, per the clock-drift tracker (pkg/health.DriftTracker).
func ApplyDriftAdjustment(ts time.Time, driftMs int64) time.Time {
	return ts.Add(-time.Duration(driftMs) * time.Millisecond)
}
