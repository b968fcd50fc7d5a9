// Package geofence checks whether a reported location lies inside an
// event's circular boundary.
package geofence

import (
	"fmt"
	"math"

	"presence/internal/verification"
)

// EarthRadiusMeters is the spherical Earth radius used for great-circle distances.
const EarthRadiusMeters = 6_371_000.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Result of a containment check.
type Result struct {
	Inside         bool    `json:"inside"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Validate reports InvalidCoordinates for non-finite or out-of-range values.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return verification.Fail(verification.ReasonInvalidCoordinates, "coordinates must be finite")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return verification.Fail(verification.ReasonInvalidCoordinates, fmt.Sprintf("latitude %v out of range", p.Lat))
	}
	if p.Lng < -180 || p.Lng > 180 {
		return verification.Fail(verification.ReasonInvalidCoordinates, fmt.Sprintf("longitude %v out of range", p.Lng))
	}
	return nil
}

// Distance returns the haversine great-circle distance in meters.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

// WithinRadius checks containment. The boundary counts as inside.
func WithinRadius(center, point Point, radiusMeters float64) (Result, error) {
	if err := center.Validate(); err != nil {
		return Result{}, err
	}
	if err := point.Validate(); err != nil {
		return Result{}, err
	}
	if math.IsNaN(radiusMeters) || radiusMeters < 0 {
		return Result{}, verification.Fail(verification.ReasonInvalidRadius, "radius must be non-negative")
	}

	d := haversine(center, point)
	return Result{Inside: d <= radiusMeters, DistanceMeters: d}, nil
}

func haversine(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Offset returns the point reached by moving north by the given meters.
// Used to build fixtures at a known distance from a center.
func Offset(p Point, northMeters float64) Point {
	return Point{Lat: p.Lat + (northMeters/EarthRadiusMeters)*180/math.Pi, Lng: p.Lng}
}
