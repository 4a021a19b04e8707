// Package services – OrderService
//
// This file implements OrderService, the application-level component that
// owns client lens orders and the grouped requirements they aggregate into.
// It validates specifications against the catalog, merges orders additively
// under the grouping key, and handles requirement-level edits: attribute
// changes (which re-key the aggregate), comment upserts, and deletion.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include the grouping key and client identifiers where applicable.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lensworks/go-lens-backend/internal/domain"
	"github.com/lensworks/go-lens-backend/internal/lens"
	"github.com/lensworks/go-lens-backend/internal/notify"
	"github.com/lensworks/go-lens-backend/internal/repo"
)

// Notifier fans a requirement event out to admin devices. Implementations
// must never fail the calling mutation; delivery problems are logged and
// swallowed.
type Notifier interface {
	NotifyAdmins(ctx context.Context, event, detail, initiator string)
}

// OrderService coordinates order submission and requirement maintenance.
type OrderService struct {
	DB     *gorm.DB
	Notify Notifier
}

// Submit validates and records one client order, merging it into the grouped
// requirement for the spec's grouping key. A client ordering the same spec
// twice accumulates quantity on their existing line. A client history row is
// appended in the same transaction.
func (s *OrderService) Submit(ctx context.Context, spec lens.Spec, clientName string, qty decimal.Decimal, updatedBy string) (*domain.GroupedRequirement, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("client.name", clientName)),
	)
	defer span.End()

	clientName = strings.TrimSpace(clientName)
	if clientName == "" {
		return nil, ErrMissingClient
	}
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	spec, err := lens.Validate(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	key := lens.GroupingKey(spec)
	detail := lens.DetailString(spec)
	span.SetAttributes(attribute.String("requirement.key", key))

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := repo.GetRequirement(ctx, tx, key)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			g = &domain.GroupedRequirement{
				GroupingKey:       key,
				LensSpec:          domain.SpecColumns(spec),
				PartiallyAllotted: decimal.Zero,
				Orders: []domain.RequirementOrder{
					{ClientName: clientName, Quantity: qty},
				},
			}
			if err := repo.CreateRequirement(ctx, tx, g); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := repo.AddOrderQuantity(ctx, tx, key, clientName, qty); err != nil {
				return err
			}
			if err := repo.UpdateRequirementCAS(ctx, tx, key, g.Version, nil); err != nil {
				return casErr(err)
			}
		}
		return repo.CreateHistory(ctx, tx, &domain.HistoryRecord{
			Kind:      domain.HistoryClient,
			Details:   detail,
			PartyName: clientName,
			Quantity:  qty,
			UpdatedBy: updatedBy,
		})
	})
	if err != nil {
		return nil, err
	}
	return repo.GetRequirement(ctx, s.DB, key)
}

// EditSpec changes the lens attributes of a requirement. Because the
// grouping key is derived from the attributes, the requirement is re-keyed:
// its orders, partially-allotted counter, and comment move to the new key,
// merging additively when a requirement already exists there, and the old
// key is removed. Admins are notified with the new detail string.
func (s *OrderService) EditSpec(ctx context.Context, oldKey string, newSpec lens.Spec, updatedBy string) (*domain.GroupedRequirement, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "EditSpec",
		trace.WithAttributes(attribute.String("requirement.key", oldKey)),
	)
	defer span.End()

	newSpec, err := lens.Validate(newSpec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	newKey := lens.GroupingKey(newSpec)
	span.SetAttributes(attribute.String("requirement.new_key", newKey))

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := repo.GetRequirement(ctx, tx, oldKey)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRequirementNotFound
		}
		if err != nil {
			return err
		}

		if newKey == oldKey {
			// Attributes that do not participate in the key may still change
			// (coating capitalization survives key normalization, for one).
			return casErr(repo.UpdateRequirementCAS(ctx, tx, oldKey, g.Version, specUpdates(newSpec)))
		}

		target, err := repo.GetRequirement(ctx, tx, newKey)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			moved := &domain.GroupedRequirement{
				GroupingKey:       newKey,
				LensSpec:          domain.SpecColumns(newSpec),
				PartiallyAllotted: g.PartiallyAllotted,
				CommentText:       g.CommentText,
				CommentBy:         g.CommentBy,
				CommentAt:         g.CommentAt,
			}
			for _, o := range g.Orders {
				moved.Orders = append(moved.Orders, domain.RequirementOrder{
					ClientName: o.ClientName,
					Quantity:   o.Quantity,
				})
			}
			if err := repo.CreateRequirement(ctx, tx, moved); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			for _, o := range g.Orders {
				if err := repo.AddOrderQuantity(ctx, tx, newKey, o.ClientName, o.Quantity); err != nil {
					return err
				}
			}
			updates := map[string]any{
				"partially_allotted": target.PartiallyAllotted.Add(g.PartiallyAllotted),
			}
			if target.CommentText == "" && g.CommentText != "" {
				updates["comment_text"] = g.CommentText
				updates["comment_by"] = g.CommentBy
				updates["comment_at"] = g.CommentAt
			}
			if err := repo.UpdateRequirementCAS(ctx, tx, newKey, target.Version, updates); err != nil {
				return casErr(err)
			}
		}
		return casErr(repo.DeleteRequirementCAS(ctx, tx, oldKey, g.Version))
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.EventUpdated, lens.DetailString(newSpec), updatedBy)
	return repo.GetRequirement(ctx, s.DB, newKey)
}

// Comment sets or replaces the single comment carried by a requirement and
// notifies admins.
func (s *OrderService) Comment(ctx context.Context, key, text, updatedBy string) error {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Comment",
		trace.WithAttributes(attribute.String("requirement.key", key)),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	g, err := repo.GetRequirement(ctx, s.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrRequirementNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = repo.UpdateRequirementCAS(ctx, s.DB, key, g.Version, map[string]any{
		"comment_text": text,
		"comment_by":   updatedBy,
		"comment_at":   &now,
	})
	if err != nil {
		return casErr(err)
	}

	s.notify(ctx, notify.EventCommented, lens.DetailString(g.Spec()), updatedBy)
	return nil
}

// Delete removes a requirement and its orders and notifies admins.
func (s *OrderService) Delete(ctx context.Context, key, initiator string) error {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("requirement.key", key)),
	)
	defer span.End()

	g, err := repo.GetRequirement(ctx, s.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrRequirementNotFound
	}
	if err != nil {
		return err
	}
	if err := repo.DeleteRequirementCAS(ctx, s.DB, key, g.Version); err != nil {
		return casErr(err)
	}

	s.notify(ctx, notify.EventDeleted, lens.DetailString(g.Spec()), initiator)
	return nil
}

// List returns the open requirements: those whose remaining quantity is
// still positive, most recently touched first.
func (s *OrderService) List(ctx context.Context) ([]domain.GroupedRequirement, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()

	all, err := repo.ListRequirements(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	open := make([]domain.GroupedRequirement, 0, len(all))
	for _, g := range all {
		if g.Remaining().IsPositive() {
			open = append(open, g)
		}
	}
	return open, nil
}

// Get returns one requirement by grouping key.
func (s *OrderService) Get(ctx context.Context, key string) (*domain.GroupedRequirement, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("requirement.key", key)),
	)
	defer span.End()

	g, err := repo.GetRequirement(ctx, s.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRequirementNotFound
	}
	return g, err
}

func (s *OrderService) notify(ctx context.Context, event, detail, initiator string) {
	if s.Notify != nil {
		s.Notify.NotifyAdmins(ctx, event, detail, initiator)
	}
}

// specUpdates maps validated spec attributes onto their column names for a
// guarded update.
func specUpdates(spec lens.Spec) map[string]any {
	return map[string]any{
		"type":         spec.Type,
		"coating":      spec.Coating,
		"coating_type": spec.CoatingType,
		"material":     spec.Material,
		"sphere":       spec.Sphere,
		"cylinder":     spec.Cylinder,
		"axis":         spec.Axis,
		"add_power":    spec.Add,
		"eye_side":     spec.EyeSide,
	}
}

// casErr converts repository concurrency signals into service errors.
func casErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrStaleVersion):
		return ErrConflict
	case errors.Is(err, repo.ErrNotFound):
		return ErrRequirementNotFound
	}
	return err
}
