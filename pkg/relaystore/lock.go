package relaystore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nous-sync/nse/pkg/errs"
)

// LockDuration is the hard per-namespace lock window a sync session holds
// while pushing and pulling change sets.
const LockDuration = 30 * time.Second

// namespaceLock is the GORM-persisted row backing the relay's per-user
// namespace mutex, so the lock survives a relay process restart rather
// than silently releasing.
type namespaceLock struct {
	Namespace string    `gorm:"primaryKey"`
	Holder    string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (namespaceLock) TableName() string { return "namespace_locks" }

// AcquireLock grants holder exclusive access to namespace for
// LockDuration, failing with errs.LockHeld if another holder's lock has
// not yet expired.
func (s *Store) AcquireLock(ctx context.Context, namespace, holder string) (time.Time, error) {
	expiresAt := time.Now().Add(LockDuration)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing namespaceLock
		err := tx.Where("namespace = ?", namespace).First(&existing).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			return tx.Create(&namespaceLock{Namespace: namespace, Holder: holder, ExpiresAt: expiresAt}).Error
		case err != nil:
			return err
		}

		if time.Now().Before(existing.ExpiresAt) && existing.Holder != holder {
			return errs.NewLockHeldError(namespace, existing.Holder)
		}

		return tx.Model(&namespaceLock{}).
			Where("namespace = ?", namespace).
			Updates(map[string]any{"holder": holder, "expires_at": expiresAt}).Error
	})

	if err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// ReleaseLock releases holder's lock on namespace. Releasing a lock held
// by a different holder, or one that already expired, is an expired-lock
// error rather than silently succeeding (it tells the caller its
// operation window is gone, which the caller must react to).
func (s *Store) ReleaseLock(ctx context.Context, namespace, holder string) error {
	var existing namespaceLock
	err := s.db.WithContext(ctx).Where("namespace = ?", namespace).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if existing.Holder != holder || time.Now().After(existing.ExpiresAt) {
		return errs.NewLockExpiredError(namespace)
	}

	return s.db.WithContext(ctx).Where("namespace = ?", namespace).Delete(&namespaceLock{}).Error
}
