// Package services – SearchService
//
// Free-text search across open requirements and fulfilment records. The
// corpus is rebuilt from live rows on each query: volumes are small (a
// distributor's open book is hundreds of lines, not millions) and a fresh
// build means results never lag behind a mutation.
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lensworks/go-lens-backend/internal/domain"
	"github.com/lensworks/go-lens-backend/internal/lens"
	"github.com/lensworks/go-lens-backend/internal/repo"
	"github.com/lensworks/go-lens-backend/internal/search"
)

// searchRecordCap bounds how many records of each kind enter the corpus.
const searchRecordCap = 500

// SearchService answers free-text queries over requirement and record
// detail lines.
type SearchService struct {
	DB   *gorm.DB
	TopK int
}

// Search returns up to k ranked snippets matching q. k falls back to the
// configured default when non-positive.
func (s *SearchService) Search(ctx context.Context, q string, k int) ([]search.Result, error) {
	tr := otel.Tracer("services/SearchService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.Int("k", k)),
	)
	defer span.End()

	if k <= 0 {
		k = s.TopK
	}
	if k <= 0 {
		k = 10
	}

	lines, err := s.corpus(ctx)
	if err != nil {
		return nil, err
	}
	idx := search.NewIndexFromStrings(lines)
	results := idx.TopK(q, k)
	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

// corpus renders one line per open requirement and recent record.
func (s *SearchService) corpus(ctx context.Context) ([]string, error) {
	var lines []string

	reqs, err := repo.ListRequirements(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	for _, g := range reqs {
		lines = append(lines, requirementLine(g))
	}

	completed, err := repo.ListCompletedPage(ctx, s.DB, 0, searchRecordCap)
	if err != nil {
		return nil, err
	}
	for _, rec := range completed {
		lines = append(lines, fmt.Sprintf("Completed %s | vendor %s | qty %s | price %s",
			lens.DetailString(rec.Spec()), rec.Vendor, rec.FulfilledQty.String(), rec.Price.String()))
	}

	partial, err := repo.ListPartialPage(ctx, s.DB, 0, searchRecordCap)
	if err != nil {
		return nil, err
	}
	for _, rec := range partial {
		lines = append(lines, fmt.Sprintf("Partial %s | vendor %s | qty %s",
			lens.DetailString(rec.Spec()), rec.Vendor, rec.FulfilledQty.String()))
	}

	return lines, nil
}

func requirementLine(g domain.GroupedRequirement) string {
	clients := make([]string, 0, len(g.Orders))
	for _, o := range g.Orders {
		clients = append(clients, fmt.Sprintf("%s x%s", o.ClientName, o.Quantity.String()))
	}
	return fmt.Sprintf("Requirement %s | remaining %s | %s",
		lens.DetailString(g.Spec()), g.Remaining().String(), strings.Join(clients, ", "))
}
