package syncclient

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nous-sync/nse/pkg/automerge"
	"github.com/nous-sync/nse/pkg/changeset"
	"github.com/nous-sync/nse/pkg/conflictstore"
	"github.com/nous-sync/nse/pkg/localstore"
	"github.com/nous-sync/nse/pkg/models"
	"github.com/nous-sync/nse/pkg/vvector"
)

const (
	snapshotKeyPrefix = "sync:snapshot:"
	cursorKey         = "sync:cursor"
	maxConcurrentPush = 4
)

// Syncer drives a full sync cycle for one device: diff each dirty node
// against its last-synced snapshot, push the resulting change sets, then
// pull and apply whatever the relay has accumulated since the device's
// last cursor.
type Syncer struct {
	client        *Client
	store         *localstore.Store
	deviceID      string
	schemaVersion int
	conflicts     *conflictstore.Store
	engine        *automerge.Engine
}

// NewSyncer builds a Syncer wired to an authenticated client and the
// device's local store.
func NewSyncer(client *Client, store *localstore.Store, deviceID string, schemaVersion int) *Syncer {
	return &Syncer{
		client:        client,
		store:         store,
		deviceID:      deviceID,
		schemaVersion: schemaVersion,
		engine:        automerge.NewEngine(),
	}
}

// WithConflictStore records any push-time conflicts the relay reports into
// cs, driving the local badge/banner notification state. Without one,
// PushNode still surfaces conflicts on its return value but nothing is
// persisted for later, offline inspection.
func (s *Syncer) WithConflictStore(cs *conflictstore.Store) *Syncer {
	s.conflicts = cs
	return s
}

func snapshotKey(nodeID string) string {
	return snapshotKeyPrefix + nodeID
}

func vectorKey(nodeID string) string {
	return "sync:vector:" + nodeID
}

// localVector returns the device's last-recorded version vector for
// nodeID, or an empty vector if the node has never synced before.
func (s *Syncer) localVector(nodeID string) (models.Vector, error) {
	var v models.Vector
	if _, err := s.store.Get(vectorKey(nodeID), &v); err != nil {
		return nil, err
	}
	if v == nil {
		v = models.Vector{}
	}
	return v, nil
}

// lastSnapshot returns the node's last-synced flattened payload, or an
// empty map if the node has never synced before.
func (s *Syncer) lastSnapshot(nodeID string) (map[string]any, error) {
	var snapshot map[string]any
	found, err := s.store.Get(snapshotKey(nodeID), &snapshot)
	if err != nil {
		return nil, err
	}
	if !found {
		return map[string]any{}, nil
	}
	return snapshot, nil
}

// PushNode diffs current against the node's last-synced snapshot, pushes
// the resulting change set (a no-op if nothing changed), and on success
// advances the local snapshot to current.
func (s *Syncer) PushNode(ctx context.Context, nodeID string, current map[string]any, vector models.Vector) (*PushResponse, error) {
	base, err := s.lastSnapshot(nodeID)
	if err != nil {
		return nil, fmt.Errorf("syncclient: load snapshot for %s: %w", nodeID, err)
	}

	cs := changeset.Diff(nodeID, s.deviceID, base, current, time.Now())
	if len(cs.Changes) == 0 {
		return &PushResponse{Vector: vector}, nil
	}

	wireChanges := make([]models.FieldChange, len(cs.Changes))
	for i, fc := range cs.Changes {
		wireChanges[i] = models.FieldChange{
			Field:      fc.Field,
			OldValue:   fc.OldValue,
			OldPresent: fc.OldPresent,
			NewValue:   fc.NewValue,
			NewPresent: fc.NewPresent,
		}
	}

	resp, err := s.client.Push(ctx, PushRequest{
		NodeID:        nodeID,
		Changes:       wireChanges,
		Vector:        vector,
		SchemaVersion: s.schemaVersion,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Conflicts) > 0 && s.conflicts != nil {
		fieldConflicts := make([]automerge.FieldConflict, len(resp.Conflicts))
		for i, c := range resp.Conflicts {
			fieldConflicts[i] = automerge.FieldConflict{
				Field:       c.Field,
				LocalValue:  c.LocalValue,
				RemoteValue: c.RemoteValue,
			}
		}
		if _, err := s.conflicts.Create(nodeID, vvector.Vector(vector), vvector.Vector(resp.Vector), fieldConflicts); err != nil {
			return nil, fmt.Errorf("syncclient: record conflict for %s: %w", nodeID, err)
		}
	}

	if err := s.store.Put(snapshotKey(nodeID), current); err != nil {
		return nil, fmt.Errorf("syncclient: save snapshot for %s: %w", nodeID, err)
	}
	if err := s.store.Put(vectorKey(nodeID), resp.Vector); err != nil {
		return nil, fmt.Errorf("syncclient: save vector for %s: %w", nodeID, err)
	}
	return resp, nil
}

// nodeUpdate is one node's current state, as supplied by the caller.
type nodeUpdate struct {
	NodeID  string
	Payload map[string]any
	Vector  models.Vector
}

// PushAll pushes every node in updates concurrently, bounded by
// maxConcurrentPush, and returns one PushResponse per input node in the
// same order. A single node's push failure does not block the others;
// the first error encountered is returned after all pushes complete.
func (s *Syncer) PushAll(ctx context.Context, updates []nodeUpdate) ([]*PushResponse, error) {
	results := make([]*PushResponse, len(updates))
	var g errgroup.Group
	g.SetLimit(maxConcurrentPush)

	for i, u := range updates {
		i, u := i, u
		g.Go(func() error {
			resp, err := s.PushNode(ctx, u.NodeID, u.Payload, u.Vector)
			if err != nil {
				return fmt.Errorf("node %s: %w", u.NodeID, err)
			}
			results[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Pull fetches every change set the relay has accumulated since the
// device's last recorded cursor, applies each one to local node state,
// and advances the cursor on success. Applying a pulled change set
// routes it through the same vector-compare logic the relay runs on
// push: a change set whose vector is dominated by the local node's
// vector is discarded (this device already reflects it), one whose
// vector dominates local overwrites the local snapshot directly, and a
// concurrent one folds field-by-field through the auto-merge engine.
func (s *Syncer) Pull(ctx context.Context) (*PullResult, error) {
	var cursor int64
	if _, err := s.store.Get(cursorKey, &cursor); err != nil {
		return nil, fmt.Errorf("syncclient: load cursor: %w", err)
	}

	result, err := s.client.Pull(ctx, cursor, 0)
	if err != nil {
		return nil, err
	}

	for _, cs := range result.Changes {
		if err := s.applyPulled(cs); err != nil {
			return nil, fmt.Errorf("syncclient: apply pulled change for node %s: %w", cs.NodeID, err)
		}
	}

	if result.NextCursor > cursor {
		if err := s.store.Put(cursorKey, result.NextCursor); err != nil {
			return nil, fmt.Errorf("syncclient: save cursor: %w", err)
		}
	}
	return result, nil
}

// applyPulled reconciles one pulled change set against this device's
// local node state and persists the result.
func (s *Syncer) applyPulled(cs *models.ChangeSet) error {
	nodeID := cs.NodeID.String()

	localVec, err := s.localVector(nodeID)
	if err != nil {
		return err
	}

	local, err := s.lastSnapshot(nodeID)
	if err != nil {
		return err
	}

	relation := vvector.Compare(vvector.Vector(cs.Vector), vvector.Vector(localVec))
	if relation == vvector.Dominated {
		return nil
	}

	var conflicts []automerge.FieldConflict

	if relation == vvector.DominatesRel || relation == vvector.Equal {
		for _, change := range cs.Changes {
			if change.NewPresent {
				local[change.Field] = change.NewValue
			} else {
				delete(local, change.Field)
			}
		}
	} else {
		remoteValues := make(map[string]any, len(local))
		for k, v := range local {
			remoteValues[k] = v
		}
		base := map[string]any{}
		for _, change := range cs.Changes {
			if change.OldPresent {
				base[change.Field] = change.OldValue
			}
			if change.NewPresent {
				remoteValues[change.Field] = change.NewValue
			} else {
				delete(remoteValues, change.Field)
			}
		}

		merged, mergeConflicts, mergeErr := s.engine.Merge(base,
			automerge.NodeState{Values: local, LastModifiedAtAdjusted: time.Now(), DeviceID: s.deviceID},
			automerge.NodeState{Values: remoteValues, LastModifiedAtAdjusted: cs.Timestamp, DeviceID: cs.DeviceID},
		)
		if mergeErr != nil {
			return mergeErr
		}
		local = merged
		conflicts = mergeConflicts
	}

	newVector := vvector.Merge(vvector.Vector(localVec), vvector.Vector(cs.Vector))

	if err := s.store.Put(snapshotKey(nodeID), local); err != nil {
		return err
	}
	if err := s.store.Put(vectorKey(nodeID), models.Vector(newVector)); err != nil {
		return err
	}

	if len(conflicts) > 0 && s.conflicts != nil {
		if _, err := s.conflicts.Create(nodeID, vvector.Vector(localVec), vvector.Vector(cs.Vector), conflicts); err != nil {
			return err
		}
	}
	return nil
}
