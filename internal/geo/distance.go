package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/geodesic"
	"transitguide.org/internal/models"
)

// ErrInvalidCoordinate is returned when a caller hands the distance metric a
// latitude or longitude outside its valid range. Normalized records never
// carry such values, so seeing it means a programming error upstream.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

const metersPerMile = 1609.344

// ValidatePoint returns ErrInvalidCoordinate (wrapped with the offending
// values) when p is not a finite, in-range WGS84 coordinate.
func ValidatePoint(p models.Point) error {
	if !IsValidLatLon(p.Lat, p.Lon) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	return nil
}

// Distance returns the geodesic distance between a and b on the WGS84
// ellipsoid, in statute miles.
func Distance(a, b models.Point) (float64, error) {
	if err := ValidatePoint(a); err != nil {
		return 0, err
	}
	if err := ValidatePoint(b); err != nil {
		return 0, err
	}
	if a == b {
		return 0, nil
	}

	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &meters, nil, nil)
	return math.Abs(meters) / metersPerMile, nil
}

// MilesToKm converts statute miles to kilometres.
func MilesToKm(miles float64) float64 {
	return miles * models.KmPerMile
}
