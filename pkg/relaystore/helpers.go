package relaystore

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generic GORM helpers reduce repetitive CRUD boilerplate. Unexported,
// and operate on the raw *gorm.DB to avoid coupling to Store.

func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) (*T, error) {
	var result T
	if err := db.WithContext(ctx).Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

func listAll[T any](db *gorm.DB, ctx context.Context, conds ...any) ([]*T, error) {
	var results []*T
	q := db.WithContext(ctx)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func createWithID[T any](db *gorm.DB, ctx context.Context, entity *T, idSetter func(*T, uuid.UUID), currentID uuid.UUID, dupErr error) (uuid.UUID, error) {
	id := currentID
	if id == uuid.Nil {
		id = uuid.New()
		idSetter(entity, id)
	}
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueConstraintError(err) {
			return uuid.Nil, dupErr
		}
		return uuid.Nil, err
	}
	return id, nil
}

func deleteByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) error {
	var zero T
	result := db.WithContext(ctx).Where(field+" = ?", value).Delete(&zero)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr
	}
	return nil
}

func convertNotFoundError(err error, notFoundErr error) error {
	if err == gorm.ErrRecordNotFound {
		return notFoundErr
	}
	return err
}
