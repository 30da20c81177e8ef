package telemetry

import (
	"math"
	"testing"
)

func TestValidateAcceptsWellFormedSample(t *testing.T) {
	s := Sample{Timestamp: 1.0, Lat: 45.5, Lon: -122.6, Speed: 120}
	if errs := Validate(s, DefaultValidationConfig()); len(errs) != 0 {
		t.Errorf("expected no validation errors, got %v", errs)
	}
}

func TestValidateRejectsNaN(t *testing.T) {
	s := Sample{Timestamp: math.NaN(), Lat: 0, Lon: 0, Speed: 10}
	errs := Validate(s, DefaultValidationConfig())
	if len(errs) == 0 {
		t.Fatal("expected validation error for NaN timestamp")
	}
}

func TestValidateRejectsNegativeSpeed(t *testing.T) {
	s := Sample{Timestamp: 1, Lat: 0, Lon: 0, Speed: -5}
	errs := Validate(s, DefaultValidationConfig())
	if len(errs) == 0 {
		t.Fatal("expected validation error for negative speed")
	}
}

func TestValidateRejectsOutOfRangeCoordinates(t *testing.T) {
	s := Sample{Timestamp: 1, Lat: 400, Lon: 0, Speed: 10}
	errs := Validate(s, DefaultValidationConfig())
	if len(errs) == 0 {
		t.Fatal("expected validation error for out-of-range latitude")
	}
}
