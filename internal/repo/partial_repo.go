// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for partial
// fulfilment records and their snapshotted client orders.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

// CreatePartial inserts a partial record together with its order snapshot.
func CreatePartial(ctx context.Context, db *gorm.DB, rec *domain.PartialRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	for i := range rec.Orders {
		if rec.Orders[i].ID == "" {
			rec.Orders[i].ID = uuid.NewString()
		}
		rec.Orders[i].RecordID = rec.ID
	}
	return db.WithContext(ctx).Create(rec).Error
}

// GetPartial fetches a partial record with its order snapshot, or ErrNotFound.
func GetPartial(ctx context.Context, db *gorm.DB, id string) (*domain.PartialRecord, error) {
	var rec domain.PartialRecord
	err := db.WithContext(ctx).
		Preload("Orders").
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountPartial returns the total number of partial records.
func CountPartial(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.PartialRecord{}).Count(&total).Error
	return total, err
}

// ListPartialPage returns a page of partial records with order snapshots,
// newest fulfilment first.
func ListPartialPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PartialRecord, error) {
	var out []domain.PartialRecord
	err := db.WithContext(ctx).
		Preload("Orders").
		Order("timestamp desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdatePartialHeader updates vendor, price, fulfilled quantity, and audit
// fields of a partial record. Returns ErrNotFound when the record is missing.
func UpdatePartialHeader(ctx context.Context, db *gorm.DB, id, vendor, updatedBy string, price, fulfilledQty decimal.Decimal) error {
	res := db.WithContext(ctx).
		Model(&domain.PartialRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"vendor":        vendor,
			"price":         price,
			"fulfilled_qty": fulfilledQty,
			"updated_by":    updatedBy,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePartial removes a partial record and its snapshotted orders.
func DeletePartial(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.PartialRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return db.WithContext(ctx).
		Where("record_id = ?", id).
		Delete(&domain.PartialOrder{}).Error
}
