package engine

import (
	"racetelemetry/geo"
	"racetelemetry/telemetry"
)

const (
	// defaultBoundaryMinSamples is the minimum in-progress buffer length
	// before a new sample is allowed to close the lap.
	defaultBoundaryMinSamples = 50
	// defaultBoundaryRadiusMeters is how close a sample must be to the
	// lap's first point to be considered "back at the start/finish line".
	defaultBoundaryRadiusMeters = 20.0
	// degenerateLapMinSamples is the minimum finalized-buffer length for a
	// lap to be promoted to a LapRecord; shorter buffers are discarded.
	degenerateLapMinSamples = 10
)

// lapBuffer holds the in-progress lap's samples in arrival order.
type lapBuffer struct {
	samples []telemetry.Sample
}

func newLapBuffer() *lapBuffer {
	return &lapBuffer{}
}

// isEmpty reports whether the buffer has no samples yet.
func (b *lapBuffer) isEmpty() bool { return len(b.samples) == 0 }

// len returns the number of samples currently buffered.
func (b *lapBuffer) len() int { return len(b.samples) }

// append adds a sample to the buffer.
func (b *lapBuffer) append(s telemetry.Sample) { b.samples = append(b.samples, s) }

// isBoundary reports whether s should start a new lap given the current
// buffer state: empty buffer, OR buffer length >= minSamples AND the new
// sample is within radiusMeters of the buffer's first point.
func (b *lapBuffer) isBoundary(s telemetry.Sample, minSamples int, radiusMeters float64) bool {
	if b.isEmpty() {
		return true
	}
	if len(b.samples) < minSamples {
		return false
	}
	first := b.samples[0]
	d := geo.Haversine(
		geo.Point{Lat: first.Lat, Lon: first.Lon},
		geo.Point{Lat: s.Lat, Lon: s.Lon},
	)
	return d < radiusMeters
}

// reset clears the buffer and seeds it with the triggering sample.
func (b *lapBuffer) reset(seed telemetry.Sample) {
	b.samples = []telemetry.Sample{seed}
}
