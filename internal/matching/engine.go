// Package matching pairs new listings with standing requests and the other
// way round, persists the matches and notifies the interested users.
package matching

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"real-estate-matching/internal/geo"
	"real-estate-matching/internal/models"
	"real-estate-matching/internal/notify"
	"real-estate-matching/internal/trigger"

	"go.uber.org/zap"
)

// RequestFinder returns active requests whose type and budget accept listing
type RequestFinder interface {
	FindMatchingRequests(ctx context.Context, listing *models.Listing) ([]models.Request, error)
}

// ListingFinder returns active listings whose type and price fit request
type ListingFinder interface {
	FindMatchingListings(ctx context.Context, request *models.Request) ([]models.Listing, error)
}

// MatchStore writes matches atomically, upserting by (request, listing)
type MatchStore interface {
	SaveMatches(ctx context.Context, matches []models.Match) error
}

// Notification copy
const (
	listingMatchTitle  = "Nouvelle annonce correspondante !"
	requestMatchTitle  = "Annonces trouvées !"
	listingMatchBody   = "Un %s à %s correspond à votre recherche"
	requestMatchesBody = "%d annonce(s) correspondent à votre demande"
)

// Engine runs the two matching triggers
type Engine struct {
	requests RequestFinder
	listings ListingFinder
	matches  MatchStore
	notifier notify.Notifier
	logger   *zap.Logger

	defaultRadiusKm float64
}

// NewEngine creates an Engine. defaultRadiusKm applies to requests without a
// radius of their own; zero selects models.DefaultSearchRadiusKm.
func NewEngine(requests RequestFinder, listings ListingFinder, matches MatchStore, notifier notify.Notifier, logger *zap.Logger, defaultRadiusKm float64) *Engine {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = models.DefaultSearchRadiusKm
	}
	return &Engine{
		requests:        requests,
		listings:        listings,
		matches:         matches,
		notifier:        notifier,
		logger:          logger,
		defaultRadiusKm: defaultRadiusKm,
	}
}

// OnListingCreated matches a new listing against standing requests and
// notifies the owner of every matched request.
func (e *Engine) OnListingCreated(ctx context.Context, listing *models.Listing) trigger.Result {
	res := trigger.Result{Trigger: trigger.ListingCreated, EntityID: listing.ID}
	log := e.logger.With(zap.String("listing_id", listing.ID))

	if !listing.IsActive() {
		return res.Skip("listing not active")
	}
	if !listing.HasLocation() {
		return res.Skip("listing has no location")
	}

	requests, err := e.requests.FindMatchingRequests(ctx, listing)
	if err != nil {
		log.Error("find matching requests", zap.Error(err))
		res.Err = fmt.Errorf("find matching requests: %w", err)
		return res
	}
	res.Candidates = len(requests)

	var matches []models.Match
	var pushes []notify.Push
	for i := range requests {
		request := &requests[i]
		m, ok := e.evaluate(listing, request)
		if !ok {
			continue
		}
		matches = append(matches, m)
		pushes = append(pushes, notify.Push{
			UserID: request.UserID,
			Title:  listingMatchTitle,
			Body:   fmt.Sprintf(listingMatchBody, listing.PropertyType, listing.Address()),
			Data: map[string]string{
				"type":      models.NotificationTypeMatch,
				"listingId": listing.ID,
				"requestId": request.ID,
			},
		})
	}

	if err := e.persist(ctx, log, matches); err != nil {
		res.Err = err
		return res
	}
	res.Matches = len(matches)
	res.Notified = e.dispatch(ctx, pushes)

	log.Info("matches found for listing", zap.Int("matches", res.Matches))
	return res
}

// OnRequestCreated matches a new request against active listings and sends
// its owner a single summary notification.
func (e *Engine) OnRequestCreated(ctx context.Context, request *models.Request) trigger.Result {
	res := trigger.Result{Trigger: trigger.RequestCreated, EntityID: request.ID}
	log := e.logger.With(zap.String("request_id", request.ID))

	if !request.Active {
		return res.Skip("request not active")
	}
	if !request.HasLocation() {
		return res.Skip("request has no location")
	}

	listings, err := e.listings.FindMatchingListings(ctx, request)
	if err != nil {
		log.Error("find matching listings", zap.Error(err))
		res.Err = fmt.Errorf("find matching listings: %w", err)
		return res
	}
	res.Candidates = len(listings)

	var matches []models.Match
	for i := range listings {
		if m, ok := e.evaluate(&listings[i], request); ok {
			matches = append(matches, m)
		}
	}

	if err := e.persist(ctx, log, matches); err != nil {
		res.Err = err
		return res
	}
	res.Matches = len(matches)

	if res.Matches > 0 {
		res.Notified = e.dispatch(ctx, []notify.Push{{
			UserID: request.UserID,
			Title:  requestMatchTitle,
			Body:   fmt.Sprintf(requestMatchesBody, res.Matches),
			Data: map[string]string{
				"type":       models.NotificationTypeRequestMatches,
				"requestId":  request.ID,
				"matchCount": strconv.Itoa(res.Matches),
			},
		}})
	}

	log.Info("matches found for request", zap.Int("matches", res.Matches))
	return res
}

// evaluate applies the eligibility, location and radius rules to one pair.
// Candidates come from a query that already filtered on type and budget; the
// checks are repeated so every ListingFinder backend yields the same matches.
func (e *Engine) evaluate(listing *models.Listing, request *models.Request) (models.Match, bool) {
	if !listing.IsActive() || !request.Active {
		return models.Match{}, false
	}
	if listing.TransactionType != request.TransactionType || listing.PropertyType != request.PropertyType {
		return models.Match{}, false
	}
	if !request.Accepts(listing.Price) {
		return models.Match{}, false
	}
	if !listing.HasLocation() || !request.HasLocation() {
		return models.Match{}, false
	}

	distance := geo.Between(listing.Location, request.Location)
	if math.IsNaN(distance) || distance > request.RadiusKm(e.defaultRadiusKm) {
		return models.Match{}, false
	}

	return models.Match{
		RequestID: request.ID,
		ListingID: listing.ID,
		Distance:  distance,
		Score:     ScoreWithDistance(listing, request, distance),
	}, true
}

func (e *Engine) persist(ctx context.Context, log *zap.Logger, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	if err := e.matches.SaveMatches(ctx, matches); err != nil {
		keys := make([]string, len(matches))
		for i, m := range matches {
			keys[i] = m.Key()
		}
		log.Error("save matches", zap.Strings("match_keys", keys), zap.Error(err))
		return fmt.Errorf("save %d matches: %w", len(matches), err)
	}
	return nil
}

// dispatch sends pushes one after the other. Notify never fails, so one
// user's problem cannot stop the rest.
func (e *Engine) dispatch(ctx context.Context, pushes []notify.Push) int {
	sent := 0
	for _, p := range pushes {
		d := e.notifier.Notify(ctx, p)
		if d.Attempted() {
			sent++
		}
	}
	return sent
}
