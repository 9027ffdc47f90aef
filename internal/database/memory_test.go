package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"real-estate-matching/internal/models"
)

func seedListing(id string, status models.ListingStatus, price int64, updated time.Time) models.Listing {
	return models.Listing{
		ID:              id,
		UserID:          "owner",
		TransactionType: models.TransactionSale,
		PropertyType:    models.PropertyHouse,
		Price:           price,
		Status:          status,
		CreatedAt:       updated,
		UpdatedAt:       updated,
	}
}

func TestMemoryStoreCandidateQueries(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore()
	s.PutListing(seedListing("in-budget", models.ListingStatusActive, 150, now))
	s.PutListing(seedListing("too-cheap", models.ListingStatusActive, 50, now))
	s.PutListing(seedListing("sold", models.ListingStatusSold, 150, now))
	other := seedListing("rental", models.ListingStatusActive, 150, now)
	other.TransactionType = models.TransactionRent
	s.PutListing(other)

	request := models.Request{
		ID:              "r1",
		TransactionType: models.TransactionSale,
		PropertyType:    models.PropertyHouse,
		BudgetMin:       100,
		BudgetMax:       150,
		Active:          true,
	}
	s.PutRequest(request)
	inactive := request
	inactive.ID = "r2"
	inactive.Active = false
	s.PutRequest(inactive)

	listings, err := s.FindMatchingListings(ctx, &request)
	if err != nil {
		t.Fatalf("FindMatchingListings: %v", err)
	}
	if len(listings) != 1 || listings[0].ID != "in-budget" {
		t.Fatalf("expected only in-budget, got %v", listings)
	}

	listing := seedListing("l", models.ListingStatusActive, 150, now)
	requests, err := s.FindMatchingRequests(ctx, &listing)
	if err != nil {
		t.Fatalf("FindMatchingRequests: %v", err)
	}
	if len(requests) != 1 || requests[0].ID != "r1" {
		t.Fatalf("expected only r1, got %v", requests)
	}
}

func TestMemoryStoreSaveMatchesUpserts(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	clock := t1
	s := NewMemoryStore().WithClock(func() time.Time { return clock })

	if err := s.SaveMatches(ctx, []models.Match{{RequestID: "r", ListingID: "l", Distance: 3, Score: 80}}); err != nil {
		t.Fatal(err)
	}
	clock = t2
	if err := s.SaveMatches(ctx, []models.Match{{RequestID: "r", ListingID: "l", Distance: 2, Score: 90}}); err != nil {
		t.Fatal(err)
	}

	matches, err := s.ListMatches(ctx, "r")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one record per pair, got %d", len(matches))
	}
	if m := matches[0]; m.Score != 90 || m.Distance != 2 || !m.MatchedAt.Equal(t2) {
		t.Fatalf("expected overwritten match, got %+v", m)
	}
}

func TestMemoryStoreRemovePushTokens(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.AddPushToken("u", "a")
	s.AddPushToken("u", "b")
	s.AddPushToken("u", "c")
	s.AddPushToken("v", "b")

	if err := s.RemovePushTokens(ctx, "u", []string{"b", "missing"}); err != nil {
		t.Fatal(err)
	}

	got, _ := s.ListPushTokens(ctx, "u")
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("unexpected tokens for u: %v", got)
	}
	if other, _ := s.ListPushTokens(ctx, "v"); len(other) != 1 {
		t.Fatalf("tokens of another user must be kept, got %v", other)
	}
}

func TestMemoryStoreTouchUserActivity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.PutUser(models.User{ID: "u"})
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := s.TouchUserActivity(ctx, "u", at); err != nil {
		t.Fatal(err)
	}
	u, err := s.GetUser(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if u.LastActive == nil || !u.LastActive.Equal(at) {
		t.Fatalf("expected last active %v, got %v", at, u.LastActive)
	}

	if err := s.TouchUserActivity(ctx, "ghost", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreExpiryAndCounts(t *testing.T) {
	ctx := context.Background()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.PutListing(seedListing("stale", models.ListingStatusInactive, 1, old))
	s.PutListing(seedListing("fresh", models.ListingStatusInactive, 1, recent))
	s.PutListing(seedListing("active", models.ListingStatusActive, 1, old))

	cutoff := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	stale, err := s.FindStaleListings(ctx, models.ListingStatusInactive, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 || stale[0].ID != "stale" {
		t.Fatalf("expected only stale, got %v", stale)
	}

	n, err := s.MarkListingsExpired(ctx, []string{"stale"})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 expired, got %d (%v)", n, err)
	}
	l, _ := s.Listing("stale")
	if l.Status != models.ListingStatusExpired || !l.UpdatedAt.Equal(old) {
		t.Fatalf("expected expired listing with unchanged updatedAt, got %+v", l)
	}
	if n, _ := s.MarkListingsExpired(ctx, []string{"stale"}); n != 0 {
		t.Fatalf("second run should change nothing, got %d", n)
	}

	count, err := s.CountCreatedBetween(ctx, models.CollectionListings, old, recent)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected [from, to) to count 2 listings, got %d", count)
	}
	if _, err := s.CountCreatedBetween(ctx, "bogus", old, recent); err == nil {
		t.Fatal("expected error for unknown collection")
	}
}

func TestMemoryStoreWithError(t *testing.T) {
	boom := errors.New("boom")
	s := NewMemoryStore().WithError(boom)
	if _, err := s.ListPushTokens(context.Background(), "u"); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
}

func TestMemoryStoreDocumentsByID(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore()
	s.PutListing(seedListing("a", models.ListingStatusActive, 1, now))
	s.PutListing(seedListing("b", models.ListingStatusExpired, 1, now))
	s.PutRequest(models.Request{ID: "r1", Active: true})

	l, err := s.GetListing(ctx, "b")
	if err != nil || l.Status != models.ListingStatusExpired {
		t.Fatalf("GetListing = %+v, %v", l, err)
	}
	if _, err := s.GetListing(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	listings, err := s.GetListings(ctx, []string{"b", "missing", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 2 || listings[0].ID != "b" || listings[1].ID != "a" {
		t.Fatalf("GetListings = %+v", listings)
	}

	r, err := s.GetRequest(ctx, "r1")
	if err != nil || !r.Active {
		t.Fatalf("GetRequest = %+v, %v", r, err)
	}
	if _, err := s.GetRequest(ctx, "r2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
