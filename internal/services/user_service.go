// Package services – UserService and HistoryService
//
// Thin services over the user and history repositories: role validation on
// account creation, FCM token registration, and read-only paginated history
// listings.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lensworks/go-lens-backend/internal/domain"
	"github.com/lensworks/go-lens-backend/internal/repo"
)

// UserService manages staff accounts and their push tokens.
type UserService struct {
	DB *gorm.DB
}

// Create registers a user. The caller supplies the ID; the legacy scheme
// derives it from the phone number, but any stable non-blank identifier
// works.
func (s *UserService) Create(ctx context.Context, id, name, role string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", id)),
	)
	defer span.End()

	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return nil, ErrInvalidUser
	}
	if role != domain.RoleAdmin && role != domain.RoleEmployee {
		return nil, ErrInvalidRole
	}

	u := &domain.User{ID: id, Name: name, Role: role}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}
	return u, nil
}

// Get returns one user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("user.id", id)),
	)
	defer span.End()

	u, err := repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// List returns all users ordered by name.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()

	return repo.ListUsers(ctx, s.DB)
}

// SetToken stores the user's FCM device token.
func (s *UserService) SetToken(ctx context.Context, id, token string) error {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "SetToken",
		trace.WithAttributes(attribute.String("user.id", id)),
	)
	defer span.End()

	err := repo.UpdateFCMToken(ctx, s.DB, id, strings.TrimSpace(token))
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// HistoryService exposes the append-only audit log.
type HistoryService struct {
	DB *gorm.DB
}

// ListPage returns a page of history rows of one kind, newest first.
func (s *HistoryService) ListPage(ctx context.Context, kind string, page, pageSize int) ([]domain.HistoryRecord, int64, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("history.kind", kind),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := pageWindow(page, pageSize)
	total, err := repo.CountHistory(ctx, s.DB, kind)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.HistoryRecord{}, 0, nil
	}
	items, err := repo.ListHistoryPage(ctx, s.DB, kind, offset, limit)
	return items, total, err
}
