package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"real-estate-matching/internal/database"
	"real-estate-matching/internal/models"

	"go.uber.org/zap"
)

var now = time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)

func listing(id string, status models.ListingStatus, updated time.Time) models.Listing {
	return models.Listing{ID: id, Status: status, UpdatedAt: updated, CreatedAt: updated}
}

func newService(store Store) *Service {
	s := NewService(store, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestExpireStaleListings(t *testing.T) {
	store := database.NewMemoryStore()
	store.PutListing(listing("old-inactive", models.ListingStatusInactive, now.AddDate(0, 0, -31)))
	store.PutListing(listing("new-inactive", models.ListingStatusInactive, now.AddDate(0, 0, -29)))
	store.PutListing(listing("old-active", models.ListingStatusActive, now.AddDate(0, 0, -90)))
	store.PutListing(listing("old-sold", models.ListingStatusSold, now.AddDate(0, 0, -90)))

	result, err := newService(store).ExpireStaleListings(context.Background(), DefaultExpiryConfig())
	if err != nil {
		t.Fatalf("ExpireStaleListings: %v", err)
	}

	if result.TargetCount != 1 || result.ExpiredCount != 1 {
		t.Fatalf("expected 1 expired listing, got %+v", result)
	}
	if got, _ := store.Listing("old-inactive"); got.Status != models.ListingStatusExpired {
		t.Errorf("old-inactive status = %s", got.Status)
	}
	for _, id := range []string{"new-inactive", "old-active", "old-sold"} {
		got, _ := store.Listing(id)
		if got.Status == models.ListingStatusExpired {
			t.Errorf("%s must not expire", id)
		}
	}
}

func TestExpireStaleListingsRerunIsNoop(t *testing.T) {
	store := database.NewMemoryStore()
	store.PutListing(listing("old", models.ListingStatusInactive, now.AddDate(0, 0, -40)))
	svc := newService(store)

	if _, err := svc.ExpireStaleListings(context.Background(), DefaultExpiryConfig()); err != nil {
		t.Fatal(err)
	}
	result, err := svc.ExpireStaleListings(context.Background(), DefaultExpiryConfig())
	if err != nil {
		t.Fatal(err)
	}
	if result.TargetCount != 0 || result.ExpiredCount != 0 {
		t.Fatalf("second run should do nothing, got %+v", result)
	}
}

func TestExpireStaleListingsDryRun(t *testing.T) {
	store := database.NewMemoryStore()
	store.PutListing(listing("old", models.ListingStatusInactive, now.AddDate(0, 0, -40)))

	result, err := newService(store).ExpireStaleListings(context.Background(), ExpiryConfig{RetentionDays: 30, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if !result.DryRun || result.ExpiredCount != 1 || len(result.ExpiredListings) != 1 {
		t.Fatalf("unexpected dry-run report: %+v", result)
	}
	if got, _ := store.Listing("old"); got.Status != models.ListingStatusInactive {
		t.Fatal("dry run must not change data")
	}
}

func TestExpireStaleListingsStoreError(t *testing.T) {
	store := database.NewMemoryStore().WithError(errors.New("down"))

	if _, err := newService(store).ExpireStaleListings(context.Background(), DefaultExpiryConfig()); err == nil {
		t.Fatal("expected error")
	}
}
