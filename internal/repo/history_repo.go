// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// history log.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

// CreateHistory appends one history row. ID and Time are assigned here when
// unset.
func CreateHistory(ctx context.Context, db *gorm.DB, h *domain.HistoryRecord) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Time.IsZero() {
		h.Time = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(h).Error
}

// CountHistory returns the number of history rows of one kind.
func CountHistory(ctx context.Context, db *gorm.DB, kind string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.HistoryRecord{}).
		Where("kind = ?", kind).
		Count(&total).Error
	return total, err
}

// ListHistoryPage returns a page of history rows of one kind, newest first.
func ListHistoryPage(ctx context.Context, db *gorm.DB, kind string, offset, limit int) ([]domain.HistoryRecord, error) {
	var out []domain.HistoryRecord
	err := db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("time desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
