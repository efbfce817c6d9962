package relaystore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nous-sync/nse/pkg/models"
)

// ErrNodeNotFound is returned when a node lookup fails to match.
var ErrNodeNotFound = errors.New("relaystore: node not found")

// MaxPullBatch is the hard cap on a single pull response's item count.
const MaxPullBatch = 100

// PushChangeSet appends a device's change set, updates the node's stored
// vector/payload to reflect it (resolved merge is the caller's
// responsibility — relaystore is a dumb append+read layer, not a merge
// engine), and returns the new relay-assigned cursor.
func (s *Store) PushChangeSet(ctx context.Context, cs *models.ChangeSet, mergedPayload models.JSONMap, newVector models.Vector, lastModifier string) (int64, error) {
	var cursor int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cs.ID == uuid.Nil {
			cs.ID = models.NewID()
		}
		if err := tx.Create(cs).Error; err != nil {
			return err
		}
		cursor = cs.Cursor

		var node models.Node
		err := tx.Where("id = ?", cs.NodeID).First(&node).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			node = models.Node{
				ID:             cs.NodeID,
				Namespace:      cs.Namespace,
				Payload:        mergedPayload,
				Vector:         newVector,
				LastModifierID: lastModifier,
				LastModifiedAt: time.Now(),
				Status:         models.StatusSynced,
			}
			return tx.Create(&node).Error
		case err != nil:
			return err
		default:
			return tx.Model(&models.Node{}).Where("id = ?", cs.NodeID).Updates(map[string]any{
				"payload":          mergedPayload,
				"vector":           newVector,
				"last_modifier_id": lastModifier,
				"last_modified_at": time.Now(),
				"status":           models.StatusSynced,
			}).Error
		}
	})

	return cursor, err
}

// PullChangeSets returns up to MaxPullBatch change sets for namespace
// with cursor strictly greater than since, ordered by cursor, plus the
// new cursor to resume from (since itself if nothing further is available).
func (s *Store) PullChangeSets(ctx context.Context, namespace string, since int64, limit int) ([]*models.ChangeSet, int64, error) {
	if limit <= 0 || limit > MaxPullBatch {
		limit = MaxPullBatch
	}

	var results []*models.ChangeSet
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND cursor > ?", namespace, since).
		Order("cursor ASC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, 0, err
	}

	next := since
	if len(results) > 0 {
		next = results[len(results)-1].Cursor
	}
	return results, next, nil
}

// CountRemaining returns how many change sets past cursor still remain in
// namespace, for the pull response's total_estimate.
func (s *Store) CountRemaining(ctx context.Context, namespace string, cursor int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ChangeSet{}).
		Where("namespace = ? AND cursor > ?", namespace, cursor).
		Count(&count).Error
	return count, err
}

// GetNode fetches a node by id.
func (s *Store) GetNode(ctx context.Context, nodeID string) (*models.Node, error) {
	return getByField[models.Node](s.db, ctx, "id", nodeID, ErrNodeNotFound)
}

// UpsertSnapshot records the base snapshot a device's next diff should
// be relative to, after a successful sync cycle.
func (s *Store) UpsertSnapshot(ctx context.Context, snap *models.LastSyncedSnapshot) error {
	return s.db.WithContext(ctx).Save(snap).Error
}
