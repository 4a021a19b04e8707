// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for completed
// fulfilment records and their per-client allocations.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

// CreateCompleted inserts a completed record together with its allocations.
// Allocation IDs are assigned here.
func CreateCompleted(ctx context.Context, db *gorm.DB, rec *domain.CompletedRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	for i := range rec.Allocations {
		if rec.Allocations[i].ID == "" {
			rec.Allocations[i].ID = uuid.NewString()
		}
		rec.Allocations[i].RecordID = rec.ID
	}
	return db.WithContext(ctx).Create(rec).Error
}

// GetCompleted fetches a completed record with allocations, or ErrNotFound.
func GetCompleted(ctx context.Context, db *gorm.DB, id string) (*domain.CompletedRecord, error) {
	var rec domain.CompletedRecord
	err := db.WithContext(ctx).
		Preload("Allocations").
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountCompleted returns the total number of completed records.
func CountCompleted(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.CompletedRecord{}).Count(&total).Error
	return total, err
}

// ListCompletedPage returns a page of completed records with allocations,
// newest fulfilment first.
func ListCompletedPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CompletedRecord, error) {
	var out []domain.CompletedRecord
	err := db.WithContext(ctx).
		Preload("Allocations").
		Order("timestamp desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateCompletedHeader updates vendor, price, and the audit fields of a
// completed record. Quantity never changes through this path. Returns
// ErrNotFound when the record is missing.
func UpdateCompletedHeader(ctx context.Context, db *gorm.DB, id, vendor, updatedBy string, price decimal.Decimal) error {
	res := db.WithContext(ctx).
		Model(&domain.CompletedRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"vendor":     vendor,
			"price":      price,
			"updated_by": updatedBy,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAllocations swaps the full allocation set of a record.
func ReplaceAllocations(ctx context.Context, db *gorm.DB, recordID string, allocs []domain.CompletedAllocation) error {
	if err := db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Delete(&domain.CompletedAllocation{}).Error; err != nil {
		return err
	}
	for i := range allocs {
		if allocs[i].ID == "" {
			allocs[i].ID = uuid.NewString()
		}
		allocs[i].RecordID = recordID
	}
	if len(allocs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&allocs).Error
}
