package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
	"transitguide.org/internal/models"
)

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains checks whether the given latitude and longitude are within the bounding box
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Center returns the midpoint of the box.
func (b *BoundingBox) Center() models.Point {
	return models.Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// ComputeBoundingBox computes the bounding box of all the given stops.
func ComputeBoundingBox(stops []models.StopRecord) (BoundingBox, error) {
	if len(stops) == 0 {
		return BoundingBox{}, fmt.Errorf("no stops to compute bounding box")
	}

	minLat := math.MaxFloat64
	maxLat := -math.MaxFloat64
	minLon := math.MaxFloat64
	maxLon := -math.MaxFloat64

	for _, stop := range stops {
		if !IsValidLatLon(stop.Latitude, stop.Longitude) {
			continue
		}
		minLat = math.Min(minLat, stop.Latitude)
		maxLat = math.Max(maxLat, stop.Latitude)
		minLon = math.Min(minLon, stop.Longitude)
		maxLon = math.Max(maxLon, stop.Longitude)
	}

	if minLat == math.MaxFloat64 {
		return BoundingBox{}, fmt.Errorf("no valid latitude/longitude found in stops")
	}

	return BoundingBox{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLon: minLon,
		MaxLon: maxLon,
	}, nil
}

// IsValidLatLon returns true if the given latitude and longitude values
// are finite and fall within the valid geographic coordinate bounds.
//
// Latitude must be between -90 and 90 degrees, and longitude must be
// between -180 and 180 degrees.
func IsValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// UnitVector maps a point onto the unit sphere. Euclidean (chord) distance
// between unit vectors grows monotonically with great-circle distance, so the
// vectors can be fed to axis-aligned spatial indexes.
func UnitVector(p models.Point) r3.Vector {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon)).Vector
}

// ChordToAngle converts a chord length between unit vectors into the central angle in radians.
func ChordToAngle(chord float64) float64 {
	if chord >= 2 {
		return math.Pi
	}
	return 2 * math.Asin(chord/2)
}

// AngleToChord is the inverse of ChordToAngle, clamped to the sphere's diameter.
func AngleToChord(angle float64) float64 {
	if angle >= math.Pi {
		return 2
	}
	return 2 * math.Sin(angle/2)
}
