// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

// RequirementsStats returns aggregate metadata for the open requirements: the
// total number of rows and the maximum UpdatedAt timestamp among those rows.
//
// When there are no open requirements, the returned count is 0 and
// maxUpdatedAt is nil.
func RequirementsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.GroupedRequirement{})

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// RecordsStats returns aggregate metadata across completed and partial
// records: the combined row count and the greatest UpdatedAt of either table.
//
// When both tables are empty, the returned count is 0 and maxUpdatedAt is nil.
func RecordsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	var completed, partial int64
	if err = db.WithContext(ctx).Model(&domain.CompletedRecord{}).Count(&completed).Error; err != nil {
		return 0, nil, err
	}
	if err = db.WithContext(ctx).Model(&domain.PartialRecord{}).Count(&partial).Error; err != nil {
		return 0, nil, err
	}
	count = completed + partial
	if count == 0 {
		return 0, nil, nil
	}

	latest := func(model any) (*time.Time, error) {
		var row struct {
			UpdatedAt time.Time
		}
		res := db.WithContext(ctx).Model(model).
			Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
		return &row.UpdatedAt, nil
	}

	a, err := latest(&domain.CompletedRecord{})
	if err != nil {
		return 0, nil, err
	}
	b, err := latest(&domain.PartialRecord{})
	if err != nil {
		return 0, nil, err
	}
	switch {
	case a == nil:
		maxUpdatedAt = b
	case b == nil || a.After(*b):
		maxUpdatedAt = a
	default:
		maxUpdatedAt = b
	}
	return count, maxUpdatedAt, nil
}
