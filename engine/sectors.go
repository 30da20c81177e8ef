package engine

import (
	"racetelemetry/geo"
	"racetelemetry/telemetry"
)

// sectorMap partitions a lap into numSectors equal-length (by cumulative
// distance) segments. It is computed once, from the first lap long enough
// to support the partition, and reused for every subsequent lap: later laps
// may run short or long relative to the lap that defined the boundaries,
// but the index cutoffs never change.
type sectorMap struct {
	numSectors int
	boundaries []int // [0, i1, i2, ..., N-1] of the lap that defined them
}

func newSectorMap(numSectors int) *sectorMap {
	return &sectorMap{numSectors: numSectors}
}

// restoreSectorMap rebuilds a sectorMap with boundaries already fixed, for
// restoring a session whose sector cut points were computed in a prior run.
func restoreSectorMap(numSectors int, boundaries []int) *sectorMap {
	return &sectorMap{numSectors: numSectors, boundaries: append([]int(nil), boundaries...)}
}

// isComputed reports whether boundaries have already been fixed.
func (m *sectorMap) isComputed() bool { return len(m.boundaries) > 0 }

// tryCompute fixes the sector boundaries from samples if not already fixed
// and samples is long enough (>= 3x numSectors points). Returns true if
// boundaries were computed on this call.
func (m *sectorMap) tryCompute(samples []telemetry.Sample) bool {
	if m.isComputed() {
		return false
	}
	if len(samples) < m.numSectors*3 {
		return false
	}

	distances := make([]float64, len(samples)-1)
	var total float64
	for i := 1; i < len(samples); i++ {
		d := geo.Haversine(
			geo.Point{Lat: samples[i-1].Lat, Lon: samples[i-1].Lon},
			geo.Point{Lat: samples[i].Lat, Lon: samples[i].Lon},
		)
		distances[i-1] = d
		total += d
	}

	sectorLength := total / float64(m.numSectors)

	boundaries := []int{0}
	var cumulative float64
	for i, d := range distances {
		cumulative += d
		pointIndex := i + 1
		if cumulative >= sectorLength*float64(len(boundaries)) && len(boundaries) < m.numSectors {
			boundaries = append(boundaries, pointIndex)
		}
	}
	boundaries = append(boundaries, len(samples)-1)

	m.boundaries = boundaries
	return true
}

// sectorFor returns the sector id for sample index i. If boundaries have
// not yet been computed, every point maps to sector 0.
func (m *sectorMap) sectorFor(i int) int {
	if !m.isComputed() {
		return 0
	}
	for k := 0; k < m.numSectors-1; k++ {
		if i < m.boundaries[k+1] {
			return k
		}
	}
	return m.numSectors - 1
}
