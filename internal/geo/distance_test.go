package geo

import (
	"math"
	"testing"

	"real-estate-matching/internal/models"
)

func TestDistanceKmIdenticalPoints(t *testing.T) {
	points := [][2]float64{{0, 0}, {9.5092, -13.7122}, {-33.8688, 151.2093}, {89.9, 179.9}}
	for _, p := range points {
		if d := DistanceKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Fatalf("expected 0 for identical point %v, got %f", p, d)
		}
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{9.5092, -13.7122, 9.6412, -13.5784},
		{48.8566, 2.3522, 51.5074, -0.1278},
		{-33.8688, 151.2093, 40.7128, -74.0060},
		{0, 179.5, 0, -179.5},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("distance not symmetric for %v: %f vs %f", p, ab, ba)
		}
		if ab < 0 {
			t.Fatalf("negative distance for %v: %f", p, ab)
		}
	}
}

func TestDistanceKmKnownValues(t *testing.T) {
	// Paris to London is about 343.5 km along the great circle
	d := DistanceKm(48.8566, 2.3522, 51.5074, -0.1278)
	if math.Abs(d-343.5) > 1.0 {
		t.Fatalf("expected ~343.5 km, got %f", d)
	}

	// One degree of latitude on the meridian
	d = DistanceKm(0, 0, 1, 0)
	want := EarthRadiusKm * math.Pi / 180
	if math.Abs(d-want) > 1e-6 {
		t.Fatalf("expected %f km, got %f", want, d)
	}
}

func TestDistanceKmNaNPropagates(t *testing.T) {
	if d := DistanceKm(math.NaN(), 0, 0, 0); !math.IsNaN(d) {
		t.Fatalf("expected NaN, got %f", d)
	}
}

func TestBetween(t *testing.T) {
	a := &models.GeoPoint{Latitude: 9.5092, Longitude: -13.7122}
	b := &models.GeoPoint{Latitude: 9.6412, Longitude: -13.5784}
	if got, want := Between(a, b), DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude); got != want {
		t.Fatalf("Between = %f, want %f", got, want)
	}
}
