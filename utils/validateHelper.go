package utils

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

var ErrDuplicateValue = errors.New("duplicate value")

// ValidateUnique returns ErrDuplicateValue when another row already holds value.
func ValidateUnique[T any](ctx context.Context, db *gorm.DB, tenantId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if exceptId == nil || reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, db, tenantId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, db, tenantId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateValue, column)
	}
	return nil
}

// ResourceCountWhere counts rows with WHERE tenant_id = ? AND $condition.
// tenantId can be blank for tables without tenant ownership (tenants, global user lookup).
func ResourceCountWhere[T any](ctx context.Context, db *gorm.DB, tenantId string, condition string, value ...interface{}) (int64, error) {
	var model T

	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if tenantId != "" {
		dbCtx = dbCtx.Where("tenant_id = ?", tenantId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
