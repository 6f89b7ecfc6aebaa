package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_SamePoint(t *testing.T) {
	p := Point{Lat: 40.7128, Lng: -74.0060}
	assert.InDelta(t, 0, DistanceMeters(p, p), 0.001)
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// New York to Los Angeles, roughly 3936 km.
	ny := Point{Lat: 40.7128, Lng: -74.0060}
	la := Point{Lat: 34.0522, Lng: -118.2437}

	d := DistanceMeters(ny, la)
	assert.InDelta(t, 3936000, d, 50000)
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{Lat: 0, Lng: 0}.Valid())
	assert.True(t, Point{Lat: 90, Lng: 180}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: 181}.Valid())
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	center := Point{Lat: 37.7749, Lng: -122.4194}
	radius := 5000.0

	minLat, minLng, maxLat, maxLng := BoundingBox(center, radius)

	assert.Less(t, minLat, center.Lat)
	assert.Greater(t, maxLat, center.Lat)
	assert.Less(t, minLng, center.Lng)
	assert.Greater(t, maxLng, center.Lng)

	// A point radius/2 away in latitude should fall inside the box.
	near := Point{Lat: center.Lat + 0.02, Lng: center.Lng}
	assert.True(t, near.Lat >= minLat && near.Lat <= maxLat)
}
