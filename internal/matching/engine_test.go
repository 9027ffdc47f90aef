package matching

import (
	"context"
	"errors"
	"testing"

	"real-estate-matching/internal/models"
	"real-estate-matching/internal/notify"

	"go.uber.org/zap"
)

type stubFinder struct {
	requests []models.Request
	listings []models.Listing
	err      error
	calls    int
}

func (f *stubFinder) FindMatchingRequests(ctx context.Context, listing *models.Listing) ([]models.Request, error) {
	f.calls++
	return f.requests, f.err
}

func (f *stubFinder) FindMatchingListings(ctx context.Context, request *models.Request) ([]models.Listing, error) {
	f.calls++
	return f.listings, f.err
}

type stubMatchStore struct {
	saved [][]models.Match
	err   error
}

func (s *stubMatchStore) SaveMatches(ctx context.Context, matches []models.Match) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, matches)
	return nil
}

type stubNotifier struct {
	pushes []notify.Push
}

func (n *stubNotifier) Notify(ctx context.Context, p notify.Push) notify.Delivery {
	n.pushes = append(n.pushes, p)
	return notify.Delivery{UserID: p.UserID, Results: []notify.TokenResult{{Token: "t", Outcome: notify.OutcomeDelivered}}}
}

var conakry = pointAt(9.5092, -13.7122)

func activeListing(id string, price int64, loc *models.GeoPoint) models.Listing {
	return models.Listing{
		ID:              id,
		UserID:          "owner",
		TransactionType: models.TransactionRent,
		PropertyType:    models.PropertyApartment,
		Price:           price,
		Location:        loc,
		Status:          models.ListingStatusActive,
	}
}

func activeRequest(id, userID string, loc *models.GeoPoint) models.Request {
	return models.Request{
		ID:              id,
		UserID:          userID,
		TransactionType: models.TransactionRent,
		PropertyType:    models.PropertyApartment,
		BudgetMin:       100_000,
		BudgetMax:       200_000,
		Location:        loc,
		Active:          true,
	}
}

func newTestEngine(f *stubFinder, s *stubMatchStore, n *stubNotifier) *Engine {
	return NewEngine(f, f, s, n, zap.NewNop(), 0)
}

func TestOnListingCreatedNotifiesEachRequestOwner(t *testing.T) {
	f := &stubFinder{requests: []models.Request{
		activeRequest("r1", "alice", conakry),
		activeRequest("r2", "bob", kmNorth(conakry, 5)),
	}}
	s := &stubMatchStore{}
	n := &stubNotifier{}
	listing := activeListing("l1", 150_000, &models.GeoPoint{
		Latitude:  conakry.Latitude,
		Longitude: conakry.Longitude,
		Address:   "Kaloum",
	})

	res := newTestEngine(f, s, n).OnListingCreated(context.Background(), &listing)

	if res.Failed() || res.Skipped {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Matches != 2 || res.Notified != 2 {
		t.Fatalf("expected 2 matches and 2 notifications, got %+v", res)
	}
	if len(s.saved) != 1 || len(s.saved[0]) != 2 {
		t.Fatalf("expected one batch of 2 matches, got %v", s.saved)
	}
	if len(n.pushes) != 2 {
		t.Fatalf("expected 2 pushes, got %d", len(n.pushes))
	}
	p := n.pushes[0]
	if p.UserID != "alice" || p.Title != listingMatchTitle {
		t.Errorf("unexpected push: %+v", p)
	}
	if want := "Un apartment à Kaloum correspond à votre recherche"; p.Body != want {
		t.Errorf("body = %q, want %q", p.Body, want)
	}
	if p.Data["type"] != models.NotificationTypeMatch || p.Data["listingId"] != "l1" || p.Data["requestId"] != "r1" {
		t.Errorf("unexpected data: %v", p.Data)
	}
}

func TestOnListingCreatedInactiveIsNoop(t *testing.T) {
	f := &stubFinder{}
	s := &stubMatchStore{}
	n := &stubNotifier{}
	listing := activeListing("l1", 150_000, conakry)
	listing.Status = models.ListingStatusDraft

	res := newTestEngine(f, s, n).OnListingCreated(context.Background(), &listing)

	if !res.Skipped {
		t.Fatalf("expected skipped result, got %+v", res)
	}
	if f.calls != 0 || len(s.saved) != 0 || len(n.pushes) != 0 {
		t.Fatal("inactive listing must not query, persist or notify")
	}
}

func TestOnListingCreatedAppliesRadius(t *testing.T) {
	near := activeRequest("near", "alice", kmNorth(conakry, 9))
	far := activeRequest("far", "bob", kmNorth(conakry, 11))
	wide := activeRequest("wide", "carol", kmNorth(conakry, 11))
	wide.SearchRadius = 15
	f := &stubFinder{requests: []models.Request{near, far, wide}}
	s := &stubMatchStore{}
	n := &stubNotifier{}
	listing := activeListing("l1", 150_000, conakry)

	res := newTestEngine(f, s, n).OnListingCreated(context.Background(), &listing)

	if res.Candidates != 3 || res.Matches != 2 {
		t.Fatalf("expected 3 candidates and 2 matches, got %+v", res)
	}
	for _, m := range s.saved[0] {
		if m.RequestID == "far" {
			t.Fatal("request beyond the default radius was matched")
		}
		if m.Distance > 15 {
			t.Errorf("match %s distance %f exceeds radius", m.Key(), m.Distance)
		}
	}
}

func TestOnListingCreatedSkipsRequestsWithoutLocation(t *testing.T) {
	f := &stubFinder{requests: []models.Request{
		activeRequest("r1", "alice", nil),
		activeRequest("r2", "bob", conakry),
	}}
	s := &stubMatchStore{}
	n := &stubNotifier{}
	listing := activeListing("l1", 150_000, conakry)

	res := newTestEngine(f, s, n).OnListingCreated(context.Background(), &listing)

	if res.Matches != 1 || s.saved[0][0].RequestID != "r2" {
		t.Fatalf("expected only r2 to match, got %+v", s.saved)
	}
}

func TestOnListingCreatedRechecksCandidates(t *testing.T) {
	stale := activeRequest("stale", "alice", conakry)
	stale.Active = false
	poor := activeRequest("poor", "bob", conakry)
	poor.BudgetMax = 120_000
	f := &stubFinder{requests: []models.Request{stale, poor}}
	s := &stubMatchStore{}
	n := &stubNotifier{}
	listing := activeListing("l1", 150_000, conakry)

	res := newTestEngine(f, s, n).OnListingCreated(context.Background(), &listing)

	if res.Matches != 0 || len(s.saved) != 0 || len(n.pushes) != 0 {
		t.Fatalf("ineligible candidates must be dropped, got %+v", res)
	}
}

func TestOnListingCreatedQueryFailureHasNoSideEffects(t *testing.T) {
	f := &stubFinder{err: errors.New("store unavailable")}
	s := &stubMatchStore{}
	n := &stubNotifier{}
	listing := activeListing("l1", 150_000, conakry)

	res := newTestEngine(f, s, n).OnListingCreated(context.Background(), &listing)

	if !res.Failed() {
		t.Fatal("expected failed result")
	}
	if len(s.saved) != 0 || len(n.pushes) != 0 {
		t.Fatal("query failure must not persist or notify")
	}
}

func TestOnListingCreatedPersistFailureSkipsNotifications(t *testing.T) {
	f := &stubFinder{requests: []models.Request{activeRequest("r1", "alice", conakry)}}
	s := &stubMatchStore{err: errors.New("tx aborted")}
	n := &stubNotifier{}
	listing := activeListing("l1", 150_000, conakry)

	res := newTestEngine(f, s, n).OnListingCreated(context.Background(), &listing)

	if !res.Failed() || res.Matches != 0 {
		t.Fatalf("expected failed result without matches, got %+v", res)
	}
	if len(n.pushes) != 0 {
		t.Fatal("no push may be sent when the batch failed")
	}
}

func TestOnRequestCreatedSendsOneSummary(t *testing.T) {
	f := &stubFinder{listings: []models.Listing{
		activeListing("l1", 150_000, conakry),
		activeListing("l2", 180_000, kmNorth(conakry, 3)),
		activeListing("l3", 120_000, kmNorth(conakry, 30)),
	}}
	s := &stubMatchStore{}
	n := &stubNotifier{}
	request := activeRequest("r1", "alice", conakry)

	res := newTestEngine(f, s, n).OnRequestCreated(context.Background(), &request)

	if res.Matches != 2 || res.Notified != 1 {
		t.Fatalf("expected 2 matches and 1 notification, got %+v", res)
	}
	if len(n.pushes) != 1 {
		t.Fatalf("expected a single push, got %d", len(n.pushes))
	}
	p := n.pushes[0]
	if p.UserID != "alice" || p.Title != requestMatchTitle {
		t.Errorf("unexpected push: %+v", p)
	}
	if want := "2 annonce(s) correspondent à votre demande"; p.Body != want {
		t.Errorf("body = %q, want %q", p.Body, want)
	}
	if p.Data["type"] != models.NotificationTypeRequestMatches || p.Data["matchCount"] != "2" || p.Data["requestId"] != "r1" {
		t.Errorf("unexpected data: %v", p.Data)
	}
}

func TestOnRequestCreatedWithoutMatchesSendsNothing(t *testing.T) {
	f := &stubFinder{listings: []models.Listing{activeListing("l1", 150_000, kmNorth(conakry, 50))}}
	s := &stubMatchStore{}
	n := &stubNotifier{}
	request := activeRequest("r1", "alice", conakry)

	res := newTestEngine(f, s, n).OnRequestCreated(context.Background(), &request)

	if res.Failed() || res.Matches != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(s.saved) != 0 || len(n.pushes) != 0 {
		t.Fatal("no matches means no write and no push")
	}
}

func TestOnRequestCreatedInactiveIsNoop(t *testing.T) {
	f := &stubFinder{}
	s := &stubMatchStore{}
	n := &stubNotifier{}
	request := activeRequest("r1", "alice", conakry)
	request.Active = false

	res := newTestEngine(f, s, n).OnRequestCreated(context.Background(), &request)

	if !res.Skipped || res.Matches != 0 || f.calls != 0 {
		t.Fatalf("inactive request must be skipped, got %+v", res)
	}
}

func TestMatchScoresAreInRange(t *testing.T) {
	f := &stubFinder{listings: []models.Listing{
		activeListing("l1", 100_000, kmNorth(conakry, 9.9)),
		activeListing("l2", 200_000, conakry),
	}}
	s := &stubMatchStore{}
	request := activeRequest("r1", "alice", conakry)

	newTestEngine(f, s, &stubNotifier{}).OnRequestCreated(context.Background(), &request)

	for _, m := range s.saved[0] {
		if m.Score < 0 || m.Score > 100 {
			t.Errorf("match %s score %d out of range", m.Key(), m.Score)
		}
	}
}
