package geo

import "math"

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// IsValidCoordinate reports whether p has finite latitude in [-90, 90] and
// longitude in [-180, 180].
func IsValidCoordinate(p Point) bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceKm returns the great-circle distance between a and b.
// ok is false when either point is not a valid coordinate.
func DistanceKm(a, b Point) (km float64, ok bool) {
	if !IsValidCoordinate(a) || !IsValidCoordinate(b) {
		return 0, false
	}

	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c, true
}

// SamePoint reports whether a and b are within tolerance degrees of each
// other on both axes.
func SamePoint(a, b Point, tolerance float64) bool {
	return math.Abs(a.Lat-b.Lat) < tolerance && math.Abs(a.Lng-b.Lng) < tolerance
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
