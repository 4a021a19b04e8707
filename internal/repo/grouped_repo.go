// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// GroupedRequirement aggregate and its per-client order rows.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a requirement is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Guarded updates that match the key but not the expected version return
//     ErrStaleVersion; callers retry with a fresh read.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Every mutation of a grouped requirement is a compare-and-set on the row's
// version column. The version is bumped on each successful write, so two
// concurrent editors working from the same read cannot both win.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleVersion is returned when a guarded update matched the key but not
// the version the caller read, i.e. another writer got there first.
var ErrStaleVersion = errors.New("stale version")

// IsUniqueViolation reports whether err is a primary-key or unique-index
// violation. glebarez/sqlite often surfaces these as plain-text errors, so
// the check is partly textual.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// CreateRequirement inserts a new grouped requirement together with its order
// rows. Order IDs are assigned here; CreatedAt is set to UTC.
func CreateRequirement(ctx context.Context, db *gorm.DB, g *domain.GroupedRequirement) error {
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	for i := range g.Orders {
		if g.Orders[i].ID == "" {
			g.Orders[i].ID = uuid.NewString()
		}
		g.Orders[i].GroupingKey = g.GroupingKey
	}
	return db.WithContext(ctx).Create(g).Error
}

// GetRequirement fetches a requirement by key with its orders preloaded, or
// ErrNotFound.
func GetRequirement(ctx context.Context, db *gorm.DB, key string) (*domain.GroupedRequirement, error) {
	var g domain.GroupedRequirement
	err := db.WithContext(ctx).
		Preload("Orders").
		Where("grouping_key = ?", key).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListRequirements returns all grouped requirements with orders preloaded,
// most recently updated first.
func ListRequirements(ctx context.Context, db *gorm.DB) ([]domain.GroupedRequirement, error) {
	var out []domain.GroupedRequirement
	err := db.WithContext(ctx).
		Preload("Orders").
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}

// UpdateRequirementCAS applies updates to the requirement identified by key,
// guarded by the version the caller read. The version column is bumped as
// part of the write. Returns ErrNotFound when the key is gone and
// ErrStaleVersion when the key exists at a different version.
func UpdateRequirementCAS(ctx context.Context, db *gorm.DB, key string, version int64, updates map[string]any) error {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["version"] = version + 1
	updates["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.GroupedRequirement{}).
		Where("grouping_key = ? AND version = ?", key, version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return staleOrMissing(ctx, db, key)
	}
	return nil
}

// DeleteRequirementCAS removes a requirement and (via FK cascade) its orders,
// guarded by version.
func DeleteRequirementCAS(ctx context.Context, db *gorm.DB, key string, version int64) error {
	res := db.WithContext(ctx).
		Where("grouping_key = ? AND version = ?", key, version).
		Delete(&domain.GroupedRequirement{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return staleOrMissing(ctx, db, key)
	}
	// Cascade is declared on the association, but SQLite only honors it with
	// foreign_keys=ON; delete explicitly so the orders never leak.
	return db.WithContext(ctx).
		Where("grouping_key = ?", key).
		Delete(&domain.RequirementOrder{}).Error
}

func staleOrMissing(ctx context.Context, db *gorm.DB, key string) error {
	var n int64
	if err := db.WithContext(ctx).
		Model(&domain.GroupedRequirement{}).
		Where("grouping_key = ?", key).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStaleVersion
}

// AddOrderQuantity accumulates qty onto the client's order row under key,
// creating the row on the client's first order.
func AddOrderQuantity(ctx context.Context, db *gorm.DB, key, clientName string, qty decimal.Decimal) error {
	var o domain.RequirementOrder
	err := db.WithContext(ctx).
		Where("grouping_key = ? AND client_name = ?", key, clientName).
		First(&o).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		o = domain.RequirementOrder{
			ID:          uuid.NewString(),
			GroupingKey: key,
			ClientName:  clientName,
			Quantity:    qty,
			CreatedAt:   time.Now().UTC(),
		}
		return db.WithContext(ctx).Create(&o).Error
	case err != nil:
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.RequirementOrder{}).
		Where("id = ?", o.ID).
		Update("quantity", o.Quantity.Add(qty)).Error
}

// SetOrderQuantity overwrites the client's quantity under key, deleting the
// row when the new quantity is zero. Returns ErrNotFound for a missing row.
func SetOrderQuantity(ctx context.Context, db *gorm.DB, key, clientName string, qty decimal.Decimal) error {
	if qty.IsZero() {
		res := db.WithContext(ctx).
			Where("grouping_key = ? AND client_name = ?", key, clientName).
			Delete(&domain.RequirementOrder{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.RequirementOrder{}).
		Where("grouping_key = ? AND client_name = ?", key, clientName).
		Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
