package relaystore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nous-sync/nse/pkg/models"
)

// ErrConflictNotFound is returned when a conflict lookup misses.
var ErrConflictNotFound = errors.New("relaystore: conflict not found")

// CreateConflict persists an unresolved conflict surfaced by a push that
// the auto-merge engine could not fold automatically.
func (s *Store) CreateConflict(ctx context.Context, c *models.UnresolvedConflict) error {
	if c.ID == uuid.Nil {
		c.ID = models.NewID()
	}
	return s.db.WithContext(ctx).Create(c).Error
}

// ListConflicts returns every unresolved conflict for namespace.
func (s *Store) ListConflicts(ctx context.Context, namespace string) ([]*models.UnresolvedConflict, error) {
	return listAll[models.UnresolvedConflict](s.db, ctx, "namespace = ?", namespace)
}

// GetConflict fetches an unresolved conflict by id.
func (s *Store) GetConflict(ctx context.Context, id string) (*models.UnresolvedConflict, error) {
	return getByField[models.UnresolvedConflict](s.db, ctx, "id", id, ErrConflictNotFound)
}

// GCExpiredConflicts moves every unresolved conflict past its ExpiresAt
// into conflict history (ResolvedBy "expired" is represented as auto,
// the device never got a chance to weigh in) and deletes the source
// row, then deletes history entries that have themselves expired.
// Returns the number of unresolved conflicts archived.
func (s *Store) GCExpiredConflicts(ctx context.Context) (int, error) {
	var expired []models.UnresolvedConflict
	now := time.Now()
	if err := s.db.WithContext(ctx).Where("expires_at < ?", now).Find(&expired).Error; err != nil {
		return 0, err
	}

	for _, c := range expired {
		entry := models.ConflictHistoryEntry{
			ID:              models.NewID(),
			NodeID:          c.NodeID,
			Namespace:       c.Namespace,
			RejectedVersion: c.RemoteVersion,
			ResolvedAt:      now,
			ResolvedBy:      models.ResolvedByAuto,
			ExpiresAt:       now.Add(30 * 24 * time.Hour),
		}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			return tx.Delete(&models.UnresolvedConflict{}, "id = ?", c.ID).Error
		})
		if err != nil {
			return 0, err
		}
	}

	if err := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.ConflictHistoryEntry{}).Error; err != nil {
		return len(expired), err
	}

	return len(expired), nil
}
