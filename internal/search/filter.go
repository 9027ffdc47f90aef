package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"real-estate-matching/internal/models"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

// buildCandidateFilter renders the candidate rule for request as a
// Meilisearch filter expression
func buildCandidateFilter(request *models.Request) string {
	filters := []string{
		fmt.Sprintf("status = %q", models.ListingStatusActive),
		fmt.Sprintf("transactionType = %q", request.TransactionType),
		fmt.Sprintf("propertyType = %q", request.PropertyType),
		fmt.Sprintf("price >= %d", request.BudgetMin),
		fmt.Sprintf("price <= %d", request.BudgetMax),
	}
	return strings.Join(filters, " AND ")
}

// FindMatchingListings pages through every indexed listing that fits the
// request's type and budget. The index may lag behind the store, so callers
// reload what comes back.
func (s *SearchClient) FindMatchingListings(ctx context.Context, request *models.Request) ([]models.Listing, error) {
	filter := buildCandidateFilter(request)

	listings, estimated, err := collectPages(ctx, s.pageSize, func(offset int64) ([]interface{}, int64, error) {
		searchRes, err := s.client.Index(s.index).Search("", &meilisearch.SearchRequest{
			Filter: filter,
			Limit:  s.pageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, 0, err
		}
		return searchRes.Hits, searchRes.EstimatedTotalHits, nil
	})
	if err != nil {
		return nil, err
	}

	if fetched := int64(len(listings)); estimated > fetched || fetched >= s.maxTotalHits {
		s.logger.Warn("candidate search truncated",
			zap.String("request_id", request.ID),
			zap.Int64("fetched", fetched),
			zap.Int64("estimated_total", estimated),
			zap.Int64("max_total_hits", s.maxTotalHits),
		)
	}
	return listings, nil
}

// pageFetcher returns the hits at offset and the engine's estimate of the
// total hit count
type pageFetcher func(offset int64) (hits []interface{}, estimatedTotal int64, err error)

// collectPages reads pages of pageSize until one comes back short, and
// returns the decoded listings with the largest estimate seen.
func collectPages(ctx context.Context, pageSize int64, fetch pageFetcher) ([]models.Listing, int64, error) {
	var listings []models.Listing
	var estimated int64
	for offset := int64(0); ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		hits, total, err := fetch(offset)
		if err != nil {
			return nil, 0, fmt.Errorf("search listings: %w", err)
		}
		if total > estimated {
			estimated = total
		}

		page, err := decodeHits(hits)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, page...)

		if int64(len(hits)) < pageSize {
			return listings, estimated, nil
		}
	}
}

// decodeHits converts search hits to listings
func decodeHits(hits []interface{}) ([]models.Listing, error) {
	listings := make([]models.Listing, 0, len(hits))
	for _, hit := range hits {
		// Convert hit to JSON then to Listing struct
		hitJSON, err := json.Marshal(hit)
		if err != nil {
			return nil, fmt.Errorf("encode hit: %w", err)
		}

		var listing models.Listing
		if err := json.Unmarshal(hitJSON, &listing); err != nil {
			return nil, fmt.Errorf("decode hit: %w", err)
		}
		listings = append(listings, listing)
	}
	return listings, nil
}
