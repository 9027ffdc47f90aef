package matching

import (
	"math"

	"real-estate-matching/internal/geo"
	"real-estate-matching/internal/models"
)

// Score weights. Fixed by product, not configurable.
const (
	priceWeight    = 0.6
	locationWeight = 0.4

	// locationScore reaches zero at 20 km whatever the request's radius
	locationDecayPerKm = 5.0
)

// PriceScore rates how close price is to the middle of [budgetMin, budgetMax].
// A zero-width budget scores 100 on an exact hit and 0 otherwise.
func PriceScore(price, budgetMin, budgetMax int64) float64 {
	midpoint := float64(budgetMax+budgetMin) / 2
	deviation := math.Abs(float64(price) - midpoint)

	priceRange := float64(budgetMax - budgetMin)
	if priceRange <= 0 {
		if deviation == 0 {
			return 100
		}
		return 0
	}

	return clamp(100 - (deviation/priceRange)*50)
}

// LocationScore decays linearly with distance in kilometers.
func LocationScore(distanceKm float64) float64 {
	return clamp(100 - distanceKm*locationDecayPerKm)
}

// Score computes the 0-100 compatibility of a listing with a request. Both
// must carry a location.
func Score(listing *models.Listing, request *models.Request) int {
	return ScoreWithDistance(listing, request, geo.Between(listing.Location, request.Location))
}

// ScoreWithDistance is Score with the listing-request distance already known.
func ScoreWithDistance(listing *models.Listing, request *models.Request, distanceKm float64) int {
	priceScore := PriceScore(listing.Price, request.BudgetMin, request.BudgetMax)
	locationScore := LocationScore(distanceKm)

	final := math.Round(priceScore*priceWeight + locationScore*locationWeight)
	return int(clamp(final))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
