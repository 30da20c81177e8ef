package geo

import (
	"math"
	"testing"
)

func TestHaversineZeroDistance(t *testing.T) {
	p := Point{Lat: 45.0, Lon: -122.0}
	d := Haversine(p, p)
	if d != 0 {
		t.Errorf("expected zero distance for identical points, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Roughly one degree of latitude at the equator is ~111.2 km.
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 1, Lon: 0}
	d := Haversine(a, b)
	if math.Abs(d-111195) > 500 {
		t.Errorf("expected ~111195m, got %f", d)
	}
}

func TestBearingRange(t *testing.T) {
	a := Point{Lat: 10, Lon: 10}
	b := Point{Lat: 11, Lon: 11}
	brg := Bearing(a, b)
	if brg < 0 || brg >= 360 {
		t.Errorf("bearing %f out of [0,360) range", brg)
	}
}

func TestBearingDueNorth(t *testing.T) {
	a := Point{Lat: 10, Lon: 10}
	b := Point{Lat: 11, Lon: 10}
	brg := Bearing(a, b)
	if math.Abs(brg) > 0.5 {
		t.Errorf("expected ~0 degrees due north, got %f", brg)
	}
}

func TestBearingDueEast(t *testing.T) {
	a := Point{Lat: 0, Lon: 10}
	b := Point{Lat: 0, Lon: 11}
	brg := Bearing(a, b)
	if math.Abs(brg-90) > 0.5 {
		t.Errorf("expected ~90 degrees due east, got %f", brg)
	}
}
