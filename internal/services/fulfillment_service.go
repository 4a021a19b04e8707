// Package services – FulfillmentService
//
// This file implements the fulfilment state machine for grouped
// requirements. A vendor purchase either completes a requirement (writing a
// completed record with proportional per-client cost allocations and removing
// the requirement) or partially fulfils it (raising the partially-allotted
// counter and writing a partial record that snapshots the original client
// quantities). Both transitions are single database transactions.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
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

// fulfilEpsilon absorbs representation noise when comparing fulfilled
// quantities against the total requirement. Completion requires the shortfall
// to be strictly below the epsilon: a purchase leaving exactly 0.001 open,
// or more, stays partial.
var fulfilEpsilon = decimal.NewFromFloat(0.001)

// FulfilmentResult reports which transition a fulfilment took. Exactly one
// of the two fields is set.
type FulfilmentResult struct {
	Completed *domain.CompletedRecord `json:"completed,omitempty"`
	Partial   *domain.PartialRecord   `json:"partial,omitempty"`
}

// FulfillmentService applies vendor purchases to grouped requirements.
type FulfillmentService struct {
	DB     *gorm.DB
	Notify Notifier
}

// Fulfil records a vendor purchase of qty units against the requirement at
// key for totalPrice. When the cumulative allotted quantity reaches the
// total requirement (within epsilon) the requirement completes; otherwise
// the purchase is held as a partial record. A vendor history row is written
// either way. Rejections perform no writes.
func (s *FulfillmentService) Fulfil(ctx context.Context, key, vendor string, totalPrice, qty decimal.Decimal, updatedBy, initiator string) (*FulfilmentResult, error) {
	tr := otel.Tracer("services/FulfillmentService")
	ctx, span := tr.Start(ctx, "Fulfil",
		trace.WithAttributes(
			attribute.String("requirement.key", key),
			attribute.String("vendor.name", vendor),
		),
	)
	defer span.End()

	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return nil, ErrMissingVendor
	}
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if totalPrice.IsNegative() {
		return nil, ErrInvalidPrice
	}

	var result FulfilmentResult
	var event string
	var detail string

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := repo.GetRequirement(ctx, tx, key)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRequirementNotFound
		}
		if err != nil {
			return err
		}
		detail = lens.DetailString(g.Spec())

		totalRequired := g.TotalRequired()
		remaining := totalRequired.Sub(g.PartiallyAllotted)
		if qty.Sub(remaining).GreaterThan(fulfilEpsilon) {
			return ErrExceedsRemaining
		}

		newAllotted := g.PartiallyAllotted.Add(qty)
		if totalRequired.Sub(newAllotted).Abs().LessThan(fulfilEpsilon) {
			rec := &domain.CompletedRecord{
				LensSpec:     g.LensSpec,
				Price:        totalPrice,
				FulfilledQty: qty,
				Vendor:       vendor,
				UpdatedBy:    updatedBy,
				Allocations:  proportionalAllocations(g.Orders, totalRequired, qty, totalPrice),
			}
			if err := createCompletedWithID(ctx, tx, rec); err != nil {
				return err
			}
			if err := repo.DeleteRequirementCAS(ctx, tx, key, g.Version); err != nil {
				return casErr(err)
			}
			result.Completed = rec
			event = notify.EventFulfilled
		} else {
			if err := repo.UpdateRequirementCAS(ctx, tx, key, g.Version, map[string]any{
				"partially_allotted": newAllotted,
			}); err != nil {
				return casErr(err)
			}
			part := &domain.PartialRecord{
				GroupedKey:   key,
				LensSpec:     g.LensSpec,
				Price:        totalPrice,
				FulfilledQty: qty,
				Vendor:       vendor,
				UpdatedBy:    updatedBy,
			}
			for _, o := range g.Orders {
				part.Orders = append(part.Orders, domain.PartialOrder{
					ClientName: o.ClientName,
					Quantity:   o.Quantity,
				})
			}
			if err := createPartialWithID(ctx, tx, part); err != nil {
				return err
			}
			result.Partial = part
			event = notify.EventPartiallyFulfilled
		}

		return repo.CreateHistory(ctx, tx, &domain.HistoryRecord{
			Kind:      domain.HistoryVendor,
			Details:   detail,
			PartyName: vendor,
			Price:     totalPrice,
			Quantity:  qty,
			UpdatedBy: updatedBy,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.Notify != nil {
		s.Notify.NotifyAdmins(ctx, event, detail, initiator)
	}
	return &result, nil
}

// proportionalAllocations splits a fulfilment of qty units at totalPrice
// across the clients in proportion to their requested quantities. Each
// client's share is (requested/totalRequired)*qty and their cost is the unit
// price times that share, so the shares sum to qty and the costs to
// totalPrice up to division precision.
func proportionalAllocations(orders []domain.RequirementOrder, totalRequired, qty, totalPrice decimal.Decimal) []domain.CompletedAllocation {
	unit := decimal.Zero
	if !qty.IsZero() {
		unit = totalPrice.Div(qty)
	}
	allocs := make([]domain.CompletedAllocation, 0, len(orders))
	for _, o := range orders {
		share := o.Quantity.Div(totalRequired).Mul(qty)
		allocs = append(allocs, domain.CompletedAllocation{
			ClientName: o.ClientName,
			Quantity:   share,
			TotalShare: unit.Mul(share),
		})
	}
	return allocs
}

// newRecordID mints a millisecond-timestamp record identifier, the format
// the historical data uses.
func newRecordID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// createCompletedWithID inserts rec under a fresh millisecond ID, retrying
// with a uuid suffix if two fulfilments land on the same millisecond.
func createCompletedWithID(ctx context.Context, tx *gorm.DB, rec *domain.CompletedRecord) error {
	rec.ID = newRecordID()
	err := repo.CreateCompleted(ctx, tx, rec)
	if err != nil && repo.IsUniqueViolation(err) {
		rec.ID = rec.ID + "-" + uuid.NewString()[:8]
		err = repo.CreateCompleted(ctx, tx, rec)
	}
	return err
}

// createPartialWithID mirrors createCompletedWithID for partial records.
func createPartialWithID(ctx context.Context, tx *gorm.DB, rec *domain.PartialRecord) error {
	rec.ID = newRecordID()
	err := repo.CreatePartial(ctx, tx, rec)
	if err != nil && repo.IsUniqueViolation(err) {
		rec.ID = rec.ID + "-" + uuid.NewString()[:8]
		err = repo.CreatePartial(ctx, tx, rec)
	}
	return err
}
