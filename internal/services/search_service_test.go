package services

import (
	"context"
	"strings"
	"testing"

	"github.com/lensworks/go-lens-backend/internal/domain"
	"github.com/lensworks/go-lens-backend/internal/repo"
)

func seedSearchCorpus(t *testing.T, s *SearchService) {
	t.Helper()
	ctx := context.Background()
	orders := &OrderService{DB: s.DB}
	if _, err := orders.Submit(ctx, svSpec(), "Sharma Opticals", dec("3"), "u1"); err != nil {
		t.Fatalf("seed requirement: %v", err)
	}
	if err := repo.CreateCompleted(ctx, s.DB, &domain.CompletedRecord{
		ID:           "r1",
		LensSpec:     domain.SpecColumns(svSpec()),
		Price:        dec("300"),
		FulfilledQty: dec("3"),
		Vendor:       "Prime Lens Co",
	}); err != nil {
		t.Fatalf("seed completed: %v", err)
	}
	if err := repo.CreatePartial(ctx, s.DB, &domain.PartialRecord{
		ID:           "p1",
		GroupedKey:   "some-key",
		LensSpec:     domain.SpecColumns(svSpec()),
		Price:        dec("100"),
		FulfilledQty: dec("1"),
		Vendor:       "Apex Optics",
	}); err != nil {
		t.Fatalf("seed partial: %v", err)
	}
}

func TestSearchService_FindsVendorAndClient(t *testing.T) {
	s := &SearchService{DB: newSvcDB(t), TopK: 5}
	seedSearchCorpus(t, s)
	ctx := context.Background()

	got, err := s.Search(ctx, "Apex Optics", 0) // k<=0 falls back to TopK
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("expected results for vendor query")
	}
	if !strings.Contains(got[0].Snippet, "Apex Optics") {
		t.Fatalf("top hit should carry the vendor: %q", got[0].Snippet)
	}

	got, err = s.Search(ctx, "Sharma", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) == 0 || !strings.Contains(got[0].Snippet, "Sharma Opticals") {
		t.Fatalf("client query missed: %+v", got)
	}
}

func TestSearchService_KLimitsResults(t *testing.T) {
	s := &SearchService{DB: newSvcDB(t)}
	seedSearchCorpus(t, s)

	// Every line carries the material token, so k=1 must truncate.
	got, err := s.Search(context.Background(), "Poly", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result with k=1, got %d", len(got))
	}
}

func TestSearchService_DefaultKWithoutConfig(t *testing.T) {
	s := &SearchService{DB: newSvcDB(t)} // TopK unset
	seedSearchCorpus(t, s)

	// Falls back to 10; the corpus is smaller so everything matching returns.
	got, err := s.Search(context.Background(), "Poly HC Blue", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 corpus lines, got %d", len(got))
	}
}

func TestSearchService_NoMatch(t *testing.T) {
	s := &SearchService{DB: newSvcDB(t), TopK: 5}
	seedSearchCorpus(t, s)

	got, err := s.Search(context.Background(), "Trifocal Titanium", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no hits, got %+v", got)
	}
}
