package relaystore

import (
	"context"
	"errors"
	"time"

	"github.com/nous-sync/nse/pkg/models"
)

// ErrDeviceNotFound is returned when a device lookup fails to match.
var ErrDeviceNotFound = errors.New("relaystore: device not found")

// ErrDeviceExists is returned registering a device-id already in use.
var ErrDeviceExists = errors.New("relaystore: device already registered")

// RegisterDevice persists a new device record.
func (s *Store) RegisterDevice(ctx context.Context, d *models.Device) error {
	d.CreatedAt = time.Now()
	d.LastActiveAt = d.CreatedAt
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return err
	}
	return nil
}

// GetDevice fetches a device by id.
func (s *Store) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	return getByField[models.Device](s.db, ctx, "device_id", deviceID, ErrDeviceNotFound)
}

// ListDevices returns every device registered under namespace.
func (s *Store) ListDevices(ctx context.Context, namespace string) ([]*models.Device, error) {
	return listAll[models.Device](s.db, ctx, "namespace = ?", namespace)
}

// TouchDevice updates a device's last-active timestamp and drift
// estimate. No code in the relay calls it.
func (s *Store) TouchDevice(ctx context.Context, deviceID string, driftMs int64) error {
	return s.db.WithContext(ctx).Model(&models.Device{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]any{"last_active_at": time.Now(), "clock_drift_ms": driftMs}).Error
}

// RevokeDevice removes a device's registration, used by the relay admin
// CLI when a device is lost or decommissioned.
func (s *Store) RevokeDevice(ctx context.Context, deviceID string) error {
	return deleteByField[models.Device](s.db, ctx, "device_id", deviceID, ErrDeviceNotFound)
}
