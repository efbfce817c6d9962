package automerge

import (
	"sort"
	"time"
)

// NodeState is one side of a merge: the field values a device held at a
// point in time, the adjusted wall-clock time of that state, and which
// device produced it.
type NodeState struct {
	Values                 map[string]any
	LastModifiedAtAdjusted time.Time
	DeviceID               string
}

// Merge folds a single remote NodeState onto local, relative to base,
// returning the merged field values and any unresolved conflicts.
func (e *Engine) Merge(base map[string]any, local, remote NodeState) (map[string]any, []FieldConflict, error) {
	merged := make(map[string]any, len(local.Values)+len(remote.Values))
	var conflicts []FieldConflict

	fields := map[string]struct{}{}
	for f := range local.Values {
		fields[f] = struct{}{}
	}
	for f := range remote.Values {
		fields[f] = struct{}{}
	}

	for field := range fields {
		localVal, localHas := local.Values[field]
		remoteVal, remoteHas := remote.Values[field]

		if !localHas {
			merged[field] = remoteVal
			continue
		}
		if !remoteHas {
			merged[field] = localVal
			continue
		}

		baseVal, basePresent := base[field]
		result, err := e.MergeField(FieldInput{
			Field:           field,
			Base:            baseVal,
			BasePresent:     basePresent,
			LocalValue:      localVal,
			LocalTimestamp:  local.LastModifiedAtAdjusted,
			LocalDevice:     local.DeviceID,
			RemoteValue:     remoteVal,
			RemoteTimestamp: remote.LastModifiedAtAdjusted,
			RemoteDevice:    remote.DeviceID,
		})
		if err != nil {
			return nil, nil, err
		}
		merged[field] = result.Value
		if result.Conflict != nil {
			conflicts = append(conflicts, *result.Conflict)
		}
	}

	return merged, conflicts, nil
}

// MergeAll folds an arbitrary number of concurrent remote payloads onto a
// local state. Remotes are sorted by (LastModifiedAtAdjusted, DeviceID)
// ascending and folded left: each fold's merged output becomes the next
// fold's local side. This makes the result deterministic for a fixed
// input batch regardless of arrival order over the wire.
func (e *Engine) MergeAll(base map[string]any, local NodeState, remotes []NodeState) (map[string]any, []FieldConflict, error) {
	sorted := make([]NodeState, len(remotes))
	copy(sorted, remotes)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].LastModifiedAtAdjusted.Equal(sorted[j].LastModifiedAtAdjusted) {
			return sorted[i].LastModifiedAtAdjusted.Before(sorted[j].LastModifiedAtAdjusted)
		}
		return sorted[i].DeviceID < sorted[j].DeviceID
	})

	current := local
	var allConflicts []FieldConflict

	for _, remote := range sorted {
		merged, conflicts, err := e.Merge(base, current, remote)
		if err != nil {
			return nil, nil, err
		}
		allConflicts = append(allConflicts, conflicts...)
		next := current.LastModifiedAtAdjusted
		if remote.LastModifiedAtAdjusted.After(next) {
			next = remote.LastModifiedAtAdjusted
		}
		current = NodeState{
			Values:                 merged,
			LastModifiedAtAdjusted: next,
			DeviceID:               remote.DeviceID,
		}
	}

	return current.Values, allConflicts, nil
}
