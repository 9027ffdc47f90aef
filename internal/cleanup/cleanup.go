// Package cleanup moves listings that have been inactive for too long to the
// expired state.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"real-estate-matching/internal/models"

	"go.uber.org/zap"
)

// Store is the listing storage the sweeper needs
type Store interface {
	FindStaleListings(ctx context.Context, status models.ListingStatus, before time.Time) ([]models.Listing, error)
	MarkListingsExpired(ctx context.Context, ids []string) (int64, error)
}

// Service handles expiry of stale inactive listings
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new cleanup service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// ExpiryConfig holds configuration for expiry runs
type ExpiryConfig struct {
	RetentionDays int  // Days an inactive listing is kept before it expires (default: 30)
	DryRun        bool // If true, only report what would be expired
}

// DefaultExpiryConfig returns default configuration
func DefaultExpiryConfig() ExpiryConfig {
	return ExpiryConfig{
		RetentionDays: 30,
		DryRun:        false,
	}
}

// ExpiryResult holds the result of an expiry run
type ExpiryResult struct {
	TargetCount     int       `json:"target_count"`     // Listings eligible for expiry
	ExpiredCount    int       `json:"expired_count"`    // Listings actually moved to expired
	DryRun          bool      `json:"dry_run"`          // Whether this was a dry run
	Cutoff          time.Time `json:"cutoff"`           // Listings last updated before this are stale
	ExecutedAt      time.Time `json:"executed_at"`      // When the run was executed
	ExpiredListings []string  `json:"expired_listings"` // IDs of the affected listings
}

// FindStaleListings returns inactive listings untouched since cutoff
func (s *Service) FindStaleListings(ctx context.Context, cutoff time.Time) ([]models.Listing, error) {
	listings, err := s.store.FindStaleListings(ctx, models.ListingStatusInactive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale listings: %w", err)
	}
	return listings, nil
}

// ExpireStaleListings sets status = expired on every inactive listing whose
// updatedAt is older than the retention window, in one batch update.
func (s *Service) ExpireStaleListings(ctx context.Context, config ExpiryConfig) (*ExpiryResult, error) {
	if config.RetentionDays <= 0 {
		config.RetentionDays = DefaultExpiryConfig().RetentionDays
	}

	now := s.now()
	result := &ExpiryResult{
		DryRun:     config.DryRun,
		Cutoff:     now.AddDate(0, 0, -config.RetentionDays),
		ExecutedAt: now,
	}

	stale, err := s.FindStaleListings(ctx, result.Cutoff)
	if err != nil {
		return nil, err
	}
	result.TargetCount = len(stale)

	if result.TargetCount == 0 {
		s.logger.Info("no stale listings to expire", zap.Time("cutoff", result.Cutoff))
		return result, nil
	}

	ids := make([]string, len(stale))
	for i, l := range stale {
		ids[i] = l.ID
	}

	if config.DryRun {
		s.logger.Info("[DRY-RUN] would expire listings",
			zap.Int("count", len(ids)),
			zap.Strings("listing_ids", ids),
		)
		result.ExpiredListings = ids
		result.ExpiredCount = len(ids)
		return result, nil
	}

	n, err := s.store.MarkListingsExpired(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to expire %d listings: %w", len(ids), err)
	}
	result.ExpiredCount = int(n)
	result.ExpiredListings = ids

	s.logger.Info("expired stale listings",
		zap.Int("expired", result.ExpiredCount),
		zap.Int("target", result.TargetCount),
		zap.Int("retention_days", config.RetentionDays),
	)
	return result, nil
}
