// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

// CreateUser inserts a new user row. The caller supplies the ID (the legacy
// scheme derives it from the phone number).
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	return db.WithContext(ctx).Create(u).Error
}

// GetUser fetches a user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users ordered by name.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

// UpdateFCMToken stores the device token for a user. Returns ErrNotFound
// when the user is missing.
func UpdateFCMToken(ctx context.Context, db *gorm.DB, id, token string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"fcm_token": token, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAdminTokens returns the device tokens of admins that can receive
// pushes: role Admin with a non-empty token.
func ListAdminTokens(ctx context.Context, db *gorm.DB) ([]string, error) {
	var tokens []string
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("role = ? AND fcm_token <> ''", domain.RoleAdmin).
		Pluck("fcm_token", &tokens).Error
	return tokens, err
}
