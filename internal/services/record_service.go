// Package services – RecordService
//
// This file implements reconciliation of fulfilment records after the fact:
// vendor/price corrections on completed records (with allocation re-derivation),
// quantity edits on partial records (with promotion to completed when the
// edit closes the requirement), and explicit per-client allocation of a
// partial purchase. Every multi-entity transition runs in one transaction.
package services

import (
	"context"
	"errors"
	"strings"

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

// shareEpsilon bounds the tolerated drift when explicit assignments are
// compared against a record's fulfilled quantity.
var shareEpsilon = decimal.New(1, -6)

// Allocation is one client's explicit slice of a partial fulfilment.
type Allocation struct {
	ClientName string          `json:"clientName"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// RecordService reconciles completed and partial fulfilment records.
type RecordService struct {
	DB     *gorm.DB
	Notify Notifier
}

// GetCompleted returns one completed record by ID.
func (s *RecordService) GetCompleted(ctx context.Context, id string) (*domain.CompletedRecord, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "GetCompleted",
		trace.WithAttributes(attribute.String("record.id", id)),
	)
	defer span.End()

	rec, err := repo.GetCompleted(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

// GetPartial returns one partial record by ID.
func (s *RecordService) GetPartial(ctx context.Context, id string) (*domain.PartialRecord, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "GetPartial",
		trace.WithAttributes(attribute.String("record.id", id)),
	)
	defer span.End()

	rec, err := repo.GetPartial(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

// ListCompleted returns a page of completed records, newest first.
func (s *RecordService) ListCompleted(ctx context.Context, page, pageSize int) ([]domain.CompletedRecord, int64, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "ListCompleted",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	offset, limit := pageWindow(page, pageSize)
	total, err := repo.CountCompleted(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.CompletedRecord{}, 0, nil
	}
	items, err := repo.ListCompletedPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// ListPartial returns a page of partial records, newest first.
func (s *RecordService) ListPartial(ctx context.Context, page, pageSize int) ([]domain.PartialRecord, int64, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "ListPartial",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	offset, limit := pageWindow(page, pageSize)
	total, err := repo.CountPartial(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PartialRecord{}, 0, nil
	}
	items, err := repo.ListPartialPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// EditCompleted corrects the vendor and price of a completed record. The
// fulfilled quantity is immutable; passing a different qty is rejected.
// Price changes re-derive every allocation's cost share from the new unit
// price so the shares keep summing to the record price.
func (s *RecordService) EditCompleted(ctx context.Context, id, vendor string, price, qty decimal.Decimal, updatedBy string) (*domain.CompletedRecord, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "EditCompleted",
		trace.WithAttributes(attribute.String("record.id", id)),
	)
	defer span.End()

	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return nil, ErrMissingVendor
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	rec, err := repo.GetCompleted(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if !qty.Equal(rec.FulfilledQty) {
		return nil, ErrQuantityImmutable
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateCompletedHeader(ctx, tx, id, vendor, updatedBy, price); err != nil {
			return err
		}
		unit := price.Div(rec.FulfilledQty)
		allocs := make([]domain.CompletedAllocation, 0, len(rec.Allocations))
		for _, a := range rec.Allocations {
			allocs = append(allocs, domain.CompletedAllocation{
				ClientName: a.ClientName,
				Quantity:   a.Quantity,
				TotalShare: unit.Mul(a.Quantity),
			})
		}
		return repo.ReplaceAllocations(ctx, tx, id, allocs)
	})
	if err != nil {
		return nil, err
	}
	return repo.GetCompleted(ctx, s.DB, id)
}

// EditPartial corrects the vendor, price, or quantity of a partial record.
// The quantity delta is reconciled against the live requirement's
// partially-allotted counter. An edit that would push the allotted total
// past the requirement is rejected; an edit that closes the requirement
// promotes the partial to a completed record, deriving allocations from the
// requirement's client quantities at the new unit price, and removes both
// the partial and the requirement.
func (s *RecordService) EditPartial(ctx context.Context, id, vendor string, price, newQty decimal.Decimal, updatedBy string) (*FulfilmentResult, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "EditPartial",
		trace.WithAttributes(attribute.String("record.id", id)),
	)
	defer span.End()

	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return nil, ErrMissingVendor
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if !newQty.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	var result FulfilmentResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := repo.GetPartial(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		g, err := repo.GetRequirement(ctx, tx, rec.GroupedKey)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRequirementNotFound
		}
		if err != nil {
			return err
		}

		delta := newQty.Sub(rec.FulfilledQty)
		totalRequired := g.TotalRequired()
		newAllotted := g.PartiallyAllotted.Add(delta)
		if newAllotted.Sub(totalRequired).GreaterThan(fulfilEpsilon) {
			return ErrExceedsRequirement
		}

		if totalRequired.Sub(newAllotted).Abs().LessThan(fulfilEpsilon) {
			// The edit closes the requirement: promote.
			unit := price.Div(newAllotted)
			completed := &domain.CompletedRecord{
				LensSpec:     rec.LensSpec,
				Price:        price,
				FulfilledQty: newQty,
				Vendor:       vendor,
				UpdatedBy:    updatedBy,
			}
			for _, o := range g.Orders {
				completed.Allocations = append(completed.Allocations, domain.CompletedAllocation{
					ClientName: o.ClientName,
					Quantity:   o.Quantity,
					TotalShare: unit.Mul(o.Quantity),
				})
			}
			if err := createCompletedWithID(ctx, tx, completed); err != nil {
				return err
			}
			if err := repo.DeletePartial(ctx, tx, id); err != nil {
				return err
			}
			if err := repo.DeleteRequirementCAS(ctx, tx, rec.GroupedKey, g.Version); err != nil {
				return casErr(err)
			}
			result.Completed = completed
			return nil
		}

		if err := repo.UpdateRequirementCAS(ctx, tx, rec.GroupedKey, g.Version, map[string]any{
			"partially_allotted": newAllotted,
		}); err != nil {
			return casErr(err)
		}
		if err := repo.UpdatePartialHeader(ctx, tx, id, vendor, updatedBy, price, newQty); err != nil {
			return err
		}
		updated, err := repo.GetPartial(ctx, tx, id)
		if err != nil {
			return err
		}
		result.Partial = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AllocatePartial resolves a partial record by assigning its fulfilled
// quantity to named clients. The assignments must sum to the record's
// quantity; each client's cost share is the record's unit price times their
// assigned quantity. Assigned quantities are deducted from the client lines
// of the live requirement (an overdraw aborts the whole operation), the
// partially-allotted counter gives back the resolved units, and the partial
// record is deleted. A requirement left with no open quantity is removed.
func (s *RecordService) AllocatePartial(ctx context.Context, id string, assignments []Allocation, updatedBy string) (*domain.CompletedRecord, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "AllocatePartial",
		trace.WithAttributes(
			attribute.String("record.id", id),
			attribute.Int("assignments", len(assignments)),
		),
	)
	defer span.End()

	var completed *domain.CompletedRecord
	var detail string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := repo.GetPartial(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		detail = lens.DetailString(rec.Spec())

		sum := decimal.Zero
		for _, a := range assignments {
			if a.Quantity.IsNegative() {
				return ErrInvalidQuantity
			}
			sum = sum.Add(a.Quantity)
		}
		if sum.Sub(rec.FulfilledQty).Abs().GreaterThan(shareEpsilon) {
			return ErrAllocationMismatch
		}

		g, err := repo.GetRequirement(ctx, tx, rec.GroupedKey)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRequirementNotFound
		}
		if err != nil {
			return err
		}

		byClient := make(map[string]decimal.Decimal, len(g.Orders))
		for _, o := range g.Orders {
			byClient[o.ClientName] = o.Quantity
		}

		unit := rec.Price.Div(rec.FulfilledQty)
		completed = &domain.CompletedRecord{
			LensSpec:     rec.LensSpec,
			Price:        rec.Price,
			FulfilledQty: rec.FulfilledQty,
			Vendor:       rec.Vendor,
			UpdatedBy:    updatedBy,
		}
		remainingTotal := decimal.Zero
		for _, a := range assignments {
			if a.Quantity.IsZero() {
				continue
			}
			have, ok := byClient[a.ClientName]
			if !ok {
				return ErrAllocationOverdraw
			}
			left := have.Sub(a.Quantity)
			if left.IsNegative() {
				return ErrAllocationOverdraw
			}
			byClient[a.ClientName] = left
			if err := repo.SetOrderQuantity(ctx, tx, rec.GroupedKey, a.ClientName, left); err != nil {
				return err
			}
			completed.Allocations = append(completed.Allocations, domain.CompletedAllocation{
				ClientName: a.ClientName,
				Quantity:   a.Quantity,
				TotalShare: unit.Mul(a.Quantity),
			})
		}
		for _, q := range byClient {
			remainingTotal = remainingTotal.Add(q)
		}

		if err := createCompletedWithID(ctx, tx, completed); err != nil {
			return err
		}
		if err := repo.DeletePartial(ctx, tx, id); err != nil {
			return err
		}

		newAllotted := g.PartiallyAllotted.Sub(rec.FulfilledQty)
		if newAllotted.IsNegative() {
			newAllotted = decimal.Zero
		}
		if remainingTotal.Sub(newAllotted).LessThan(fulfilEpsilon) {
			return casErr(repo.DeleteRequirementCAS(ctx, tx, rec.GroupedKey, g.Version))
		}
		return casErr(repo.UpdateRequirementCAS(ctx, tx, rec.GroupedKey, g.Version, map[string]any{
			"partially_allotted": newAllotted,
		}))
	})
	if err != nil {
		return nil, err
	}

	if s.Notify != nil {
		s.Notify.NotifyAdmins(ctx, notify.EventFulfilled, detail, updatedBy)
	}
	return completed, nil
}

// pageWindow clamps pagination inputs and converts them to offset/limit.
func pageWindow(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return (page - 1) * pageSize, pageSize
}
