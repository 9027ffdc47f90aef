// Package geo holds great-circle helpers used by the matcher.
package geo

import (
	"math"

	"real-estate-matching/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm
const EarthRadiusKm = 6371.0

// DistanceKm returns the Haversine distance in kilometers between two
// coordinates given in degrees. NaN inputs yield NaN.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Between returns the distance between two points. Both must be non-nil.
func Between(a, b *models.GeoPoint) float64 {
	return DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
