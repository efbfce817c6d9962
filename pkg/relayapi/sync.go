package relayapi

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nous-sync/nse/internal/logger"
	"github.com/nous-sync/nse/pkg/automerge"
	"github.com/nous-sync/nse/pkg/models"
	"github.com/nous-sync/nse/pkg/relaystore"
	"github.com/nous-sync/nse/pkg/vvector"
)

// PushRequest is the wire body of POST /sync/push.
type PushRequest struct {
	NodeID        string               `json:"node_id"`
	Changes       []models.FieldChange `json:"changes"`
	Vector        models.Vector        `json:"vector"`
	SchemaVersion int                  `json:"schema_version"`
}

// PushResponse reports the server-resolved outcome of a push.
type PushResponse struct {
	Cursor    int64          `json:"cursor"`
	Vector    models.Vector  `json:"vector"`
	Applied   []AppliedRef   `json:"applied,omitempty"`
	Conflicts []ConflictView `json:"conflicts,omitempty"`
}

// AppliedRef identifies one payload the relay actually wrote.
type AppliedRef struct {
	ID string `json:"id"`
}

// ConflictView is the wire shape of one field's unresolved divergence.
type ConflictView struct {
	Field       string `json:"field"`
	LocalValue  any    `json:"local_value"`
	RemoteValue any    `json:"remote_value"`
}

// applyPush resolves an incoming change set against the node's current
// server-side state under the namespace's push lock. The incoming vector
// is first compared against the node's stored vector: a dominated push
// (the stored state has moved past what this device based its edit on)
// is discarded outright and reported back as a conflict rather than
// partially applied; a dominating push fast-forwards every field
// directly. Only a concurrent (or equal) push falls through to the
// per-field auto-merge engine, using the client's per-field OldValue as
// the merge base — fields it cannot resolve are returned as conflicts
// and recorded for later surfacing to every device.
func applyPush(ctx context.Context, store *relaystore.Store, engine *automerge.Engine, namespace, deviceID string, req PushRequest) (*PushResponse, error) {
	if _, err := store.AcquireLock(ctx, namespace, deviceID); err != nil {
		return nil, err
	}
	defer func() {
		if err := store.ReleaseLock(ctx, namespace, deviceID); err != nil {
			logger.Error("failed to release namespace lock after push", logger.Err(err))
		}
	}()

	nodeID := req.NodeID
	parsedNodeID, err := uuid.Parse(nodeID)
	if err != nil {
		return nil, fmt.Errorf("relayapi: invalid node_id: %w", err)
	}

	node, err := store.GetNode(ctx, nodeID)
	var payload models.JSONMap
	var storedVector models.Vector
	var lastModifiedAt time.Time
	var lastModifier string
	if err == relaystore.ErrNodeNotFound {
		payload = models.JSONMap{}
		storedVector = models.Vector{}
	} else if err != nil {
		return nil, err
	} else {
		payload = node.Payload
		storedVector = node.Vector
		lastModifiedAt = node.LastModifiedAt
		lastModifier = node.LastModifierID
	}

	relation := vvector.Compare(vvector.Vector(req.Vector), vvector.Vector(storedVector))

	if relation == vvector.Dominated {
		return &PushResponse{
			Vector: storedVector,
			Conflicts: []ConflictView{{
				Field:       "_vector",
				LocalValue:  req.Vector,
				RemoteValue: storedVector,
			}},
		}, nil
	}

	merged := make(models.JSONMap, len(payload))
	for k, v := range payload {
		merged[k] = v
	}

	var conflicts []ConflictView
	var conflictRecords []models.FieldConflictRecord

	for _, change := range req.Changes {
		storedVal, storedPresent := merged[change.Field]

		// A dominating push (strictly ahead of the stored vector) needs
		// no per-field reconciliation: this device has already seen
		// everything the relay has, so its new value always wins.
		baseMatchesStored := relation == vvector.DominatesRel ||
			(storedPresent == change.OldPresent && (!storedPresent || equalJSON(storedVal, change.OldValue)))

		if baseMatchesStored {
			if change.NewPresent {
				merged[change.Field] = change.NewValue
			} else {
				delete(merged, change.Field)
			}
			continue
		}

		result, mergeErr := engine.MergeField(automerge.FieldInput{
			Field:           change.Field,
			Base:            change.OldValue,
			BasePresent:     change.OldPresent,
			LocalValue:      change.NewValue,
			LocalTimestamp:  time.Now(),
			LocalDevice:     deviceID,
			RemoteValue:     storedVal,
			RemoteTimestamp: lastModifiedAt,
			RemoteDevice:    lastModifier,
		})
		if mergeErr != nil {
			return nil, mergeErr
		}
		merged[change.Field] = result.Value
		if result.Conflict != nil {
			conflicts = append(conflicts, ConflictView{
				Field:       result.Conflict.Field,
				LocalValue:  result.Conflict.LocalValue,
				RemoteValue: result.Conflict.RemoteValue,
			})
			conflictRecords = append(conflictRecords, models.FieldConflictRecord{
				Field:       result.Conflict.Field,
				LocalValue:  result.Conflict.LocalValue,
				RemoteValue: result.Conflict.RemoteValue,
				LocalTime:   result.Conflict.LocalTime,
				RemoteTime:  result.Conflict.RemoteTime,
			})
		}
	}

	newVector := vvector.Merge(vvector.Vector(storedVector), vvector.Vector(req.Vector))

	cs := &models.ChangeSet{
		NodeID:    parsedNodeID,
		Namespace: namespace,
		DeviceID:  deviceID,
		Timestamp: time.Now(),
		Changes:   models.ChangeList(req.Changes),
		Vector:    models.Vector(newVector),
	}

	cursor, err := store.PushChangeSet(ctx, cs, merged, models.Vector(newVector), deviceID)
	if err != nil {
		return nil, err
	}

	if len(conflictRecords) > 0 {
		conflictErr := store.CreateConflict(ctx, &models.UnresolvedConflict{
			NodeID:        cs.NodeID,
			Namespace:     namespace,
			LocalVersion:  models.Vector(newVector),
			RemoteVersion: storedVector,
			Conflicts:     conflictRecords,
			CreatedAt:     time.Now(),
			ExpiresAt:     time.Now().Add(30 * 24 * time.Hour),
		})
		if conflictErr != nil {
			logger.Error("failed to persist conflict record", logger.Err(conflictErr), logger.NodeID(nodeID))
		}
	}

	return &PushResponse{
		Cursor:    cursor,
		Vector:    models.Vector(newVector),
		Applied:   []AppliedRef{{ID: nodeID}},
		Conflicts: conflicts,
	}, nil
}

// equalJSON compares two values as decoded from JSON (so numeric types
// that differ only by float64 vs int representation still compare equal).
func equalJSON(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
