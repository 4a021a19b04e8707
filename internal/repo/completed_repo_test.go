package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

func completedModels() []any {
	return []any{&domain.CompletedRecord{}, &domain.CompletedAllocation{}}
}

func mkCompleted(t *testing.T, db *gorm.DB, id string, at time.Time) *domain.CompletedRecord {
	t.Helper()
	rec := &domain.CompletedRecord{
		ID: id,
		LensSpec: domain.LensSpec{
			Type: "SingleVision", Coating: "Hard coat", CoatingType: "Blue",
			Sphere: "-2.00", Cylinder: "0.00",
		},
		Price:        decimal.NewFromInt(200),
		FulfilledQty: decimal.NewFromInt(2),
		Vendor:       "Prime Lens Co",
		Timestamp:    at,
		Allocations: []domain.CompletedAllocation{
			{ClientName: "Sharma Opticals", Quantity: decimal.NewFromInt(2), TotalShare: decimal.NewFromInt(200)},
		},
	}
	if err := CreateCompleted(context.Background(), db, rec); err != nil {
		t.Fatalf("create completed %s: %v", id, err)
	}
	return rec
}

func TestCreateAndGetCompleted(t *testing.T) {
	db := newTestDB(t, completedModels()...)
	ctx := context.Background()

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rec := mkCompleted(t, db, "r1", at)
	if rec.Allocations[0].ID == "" || rec.Allocations[0].RecordID != "r1" {
		t.Fatalf("allocation IDs not assigned: %+v", rec.Allocations[0])
	}

	got, err := GetCompleted(ctx, db, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Allocations) != 1 || !got.Timestamp.Equal(at) {
		t.Fatalf("readback wrong: %+v", got)
	}

	if _, err := GetCompleted(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: got %v", err)
	}
}

func TestCreateCompleted_DefaultsTimestamp(t *testing.T) {
	db := newTestDB(t, completedModels()...)
	rec := &domain.CompletedRecord{
		ID: "r1",
		LensSpec: domain.LensSpec{
			Type: "SingleVision", Coating: "ARC", CoatingType: "Green",
			Sphere: "1.00", Cylinder: "0.00",
		},
		Price:        decimal.NewFromInt(50),
		FulfilledQty: decimal.NewFromInt(1),
		Vendor:       "Apex Optics",
	}
	if err := CreateCompleted(context.Background(), db, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Timestamp.IsZero() {
		t.Fatalf("zero timestamp should be defaulted")
	}
}

func TestListCompletedPage_OrderAndWindow(t *testing.T) {
	db := newTestDB(t, completedModels()...)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mkCompleted(t, db, "r1", base)
	mkCompleted(t, db, "r2", base.Add(time.Hour))
	mkCompleted(t, db, "r3", base.Add(2*time.Hour))

	total, err := CountCompleted(ctx, db)
	if err != nil || total != 3 {
		t.Fatalf("count: %d %v", total, err)
	}

	page, err := ListCompletedPage(ctx, db, 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != "r3" || page[1].ID != "r2" {
		t.Fatalf("window wrong: %+v", page)
	}
	if len(page[0].Allocations) != 1 {
		t.Fatalf("allocations not preloaded")
	}

	rest, err := ListCompletedPage(ctx, db, 2, 2)
	if err != nil || len(rest) != 1 || rest[0].ID != "r1" {
		t.Fatalf("second window wrong: %v %+v", err, rest)
	}
}

func TestUpdateCompletedHeader(t *testing.T) {
	db := newTestDB(t, completedModels()...)
	ctx := context.Background()
	mkCompleted(t, db, "r1", time.Now().UTC())

	if err := UpdateCompletedHeader(ctx, db, "missing", "Apex", "u1", decimal.NewFromInt(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: got %v", err)
	}
	if err := UpdateCompletedHeader(ctx, db, "r1", "Apex Optics", "u2", decimal.NewFromInt(150)); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := GetCompleted(ctx, db, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Vendor != "Apex Optics" || got.UpdatedBy != "u2" || !got.Price.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("header wrong: %+v", got)
	}
	if !got.FulfilledQty.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("quantity must not change: %s", got.FulfilledQty)
	}
}

func TestReplaceAllocations(t *testing.T) {
	db := newTestDB(t, completedModels()...)
	ctx := context.Background()
	mkCompleted(t, db, "r1", time.Now().UTC())

	err := ReplaceAllocations(ctx, db, "r1", []domain.CompletedAllocation{
		{ClientName: "Sharma Opticals", Quantity: decimal.NewFromInt(1), TotalShare: decimal.NewFromInt(75)},
		{ClientName: "Verma Vision", Quantity: decimal.NewFromInt(1), TotalShare: decimal.NewFromInt(75)},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := GetCompleted(ctx, db, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(got.Allocations))
	}
	for _, a := range got.Allocations {
		if a.RecordID != "r1" || a.ID == "" {
			t.Fatalf("allocation not rebound: %+v", a)
		}
	}

	// Replacing with nothing clears the set.
	if err := ReplaceAllocations(ctx, db, "r1", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = GetCompleted(ctx, db, "r1")
	if len(got.Allocations) != 0 {
		t.Fatalf("allocations not cleared: %+v", got.Allocations)
	}
}
