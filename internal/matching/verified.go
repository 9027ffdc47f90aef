package matching

import (
	"context"
	"fmt"

	"real-estate-matching/internal/models"
)

// ListingLoader reads listings from the system of record
type ListingLoader interface {
	GetListings(ctx context.Context, ids []string) ([]models.Listing, error)
}

// verifiedListings takes candidate ids from an index and returns the stored
// copies, so a listing expired or sold since it was indexed reaches evaluate
// with its current status.
type verifiedListings struct {
	index ListingFinder
	store ListingLoader
}

// VerifiedListings wraps an index-backed finder with a store reload
func VerifiedListings(index ListingFinder, store ListingLoader) ListingFinder {
	return &verifiedListings{index: index, store: store}
}

func (v *verifiedListings) FindMatchingListings(ctx context.Context, request *models.Request) ([]models.Listing, error) {
	hits, err := v.index.FindMatchingListings(ctx, request)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	stored, err := v.store.GetListings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("reload indexed listings: %w", err)
	}
	return stored, nil
}
