// Package search keeps a Meilisearch index of listings and serves listing
// candidates from it.
package search

import (
	"fmt"

	"real-estate-matching/internal/models"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

// DefaultIndex is the uid of the listing index
const DefaultIndex = "listings"

// DefaultMaxTotalHits bounds how deep candidate paging can reach
const DefaultMaxTotalHits = 10000

type SearchClient struct {
	client       *meilisearch.Client
	index        string
	pageSize     int64
	maxTotalHits int64
	logger       *zap.Logger
}

func NewSearchClient(host, apiKey, index string, pageSize, maxTotalHits int64, logger *zap.Logger) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	if index == "" {
		index = DefaultIndex
	}
	if pageSize <= 0 {
		pageSize = 200
	}
	if maxTotalHits <= 0 {
		maxTotalHits = DefaultMaxTotalHits
	}

	return &SearchClient{
		client:       client,
		index:        index,
		pageSize:     pageSize,
		maxTotalHits: maxTotalHits,
		logger:       logger,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Candidate queries filter on exactly these
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"status",
		"transactionType",
		"propertyType",
		"price",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"price",
		"createdAt",
	})
	if err != nil {
		return err
	}

	// Offset paging stops at maxTotalHits (1000 unless raised)
	_, err = s.client.Index(s.index).UpdatePagination(&meilisearch.Pagination{
		MaxTotalHits: s.maxTotalHits,
	})
	if err != nil {
		return fmt.Errorf("update pagination: %w", err)
	}

	return nil
}

// IndexListing indexes a single listing
func (s *SearchClient) IndexListing(listing *models.Listing) error {
	_, err := s.client.Index(s.index).AddDocuments([]models.Listing{*listing})
	return err
}

// IndexListings indexes multiple listings
func (s *SearchClient) IndexListings(listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(listings)
	return err
}

// ReplaceListings empties the index and adds listings. Meilisearch applies
// the tasks of one index in order, so the delete lands before the add.
func (s *SearchClient) ReplaceListings(listings []models.Listing) error {
	if _, err := s.client.Index(s.index).DeleteAllDocuments(); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return s.IndexListings(listings)
}

// Healthy reports whether the Meilisearch server answers
func (s *SearchClient) Healthy() bool {
	return s.client.IsHealthy()
}
