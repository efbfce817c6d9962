package relaystore

import (
	"context"
	"errors"

	"github.com/nous-sync/nse/pkg/models"
)

// ErrKeyVersionNotFound is returned when a key-version lookup misses.
var ErrKeyVersionNotFound = errors.New("relaystore: key version not found")

// CreateKeyVersion persists a new key-version record (the relay only
// ever stores bookkeeping — version number, salt, status — never key
// material itself).
func (s *Store) CreateKeyVersion(ctx context.Context, kv *models.KeyVersion) error {
	return s.db.WithContext(ctx).Create(kv).Error
}

// GetActiveKeyVersion returns the current active key version for a
// namespace.
func (s *Store) GetActiveKeyVersion(ctx context.Context, namespace string) (*models.KeyVersion, error) {
	var result models.KeyVersion
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND status = ?", namespace, models.KeyVersionActive).
		Order("version DESC").
		First(&result).Error
	if err != nil {
		return nil, ErrKeyVersionNotFound
	}
	return &result, nil
}

// UpdateKeyVersionStatus transitions a key version's lifecycle status.
func (s *Store) UpdateKeyVersionStatus(ctx context.Context, namespace string, version uint32, status models.KeyVersionStatus) error {
	return s.db.WithContext(ctx).Model(&models.KeyVersion{}).
		Where("namespace = ? AND version = ?", namespace, version).
		Update("status", status).Error
}

// PutEncryptedNode stores or replaces a Private-tier ciphertext record.
// When s has a blob store attached, the payload and embedding ciphertext
// are uploaded to S3 first and the row itself keeps only their metadata,
// keeping large encrypted blobs out of Postgres.
func (s *Store) PutEncryptedNode(ctx context.Context, n *models.EncryptedNode) error {
	if s.blobs != nil {
		stored := *n
		if err := s.blobs.PutEncryptedNodeBlobs(ctx, &stored); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Save(&stored).Error
	}
	return s.db.WithContext(ctx).Save(n).Error
}

// GetEncryptedNode fetches a Private-tier ciphertext record by id,
// filling its ciphertext fields back in from S3 when a blob store is
// attached.
func (s *Store) GetEncryptedNode(ctx context.Context, id string) (*models.EncryptedNode, error) {
	n, err := getByField[models.EncryptedNode](s.db, ctx, "id", id, ErrNodeNotFound)
	if err != nil {
		return nil, err
	}
	if s.blobs != nil {
		if err := s.blobs.FillEncryptedNodeBlobs(ctx, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}
