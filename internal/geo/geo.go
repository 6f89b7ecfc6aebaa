// Package geo provides the point type and distance calculation shared by
// the Matcher and the store's bounding-box pre-filter.
package geo

import "math"

// earthRadiusMeters is the mean radius used for the haversine approximation.
const earthRadiusMeters = 6371000.0

// Point is a location in decimal degrees, latitude first.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the point lies within the legal coordinate range.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceMeters returns the great-circle distance between a and b in
// meters, using the haversine formula.
func DistanceMeters(a, b Point) float64 {
	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// BoundingBox returns a (minLat, minLng, maxLat, maxLng) box that contains
// every point within radiusMeters of center, for use as a cheap SQL
// pre-filter ahead of the exact haversine ranking. The box is deliberately
// generous near the poles and the antimeridian; callers must still apply
// DistanceMeters to discard false positives.
func BoundingBox(center Point, radiusMeters float64) (minLat, minLng, maxLat, maxLng float64) {
	latDelta := radToDeg(radiusMeters / earthRadiusMeters)

	lngDeltaDenominator := math.Cos(degToRad(center.Lat))
	var lngDelta float64
	if lngDeltaDenominator > 0.0001 {
		lngDelta = radToDeg(radiusMeters / (earthRadiusMeters * lngDeltaDenominator))
	} else {
		// Near the poles, longitude lines converge; widen to the full range
		// rather than divide by a near-zero denominator.
		lngDelta = 180
	}

	minLat = clamp(center.Lat-latDelta, -90, 90)
	maxLat = clamp(center.Lat+latDelta, -90, 90)
	minLng = center.Lng - lngDelta
	maxLng = center.Lng + lngDelta

	return minLat, minLng, maxLat, maxLng
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
