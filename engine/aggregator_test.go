package engine

import (
	"testing"

	"racetelemetry/telemetry"
)

func TestSummarizeSectorSinglePointHasZeroTime(t *testing.T) {
	points := []telemetry.Sample{{Timestamp: 5, Lat: 1, Lon: 1, Speed: 40}}
	summary := summarizeSector(points)
	if summary.Time != 0 {
		t.Errorf("single-point sector Time = %f, want 0", summary.Time)
	}
}

// A single-point partition has no elapsed time between a start and end
// sample, so finalizeLap must not record it as a SectorSummary: a spurious
// 0s sector would otherwise always beat any real optimal-lap sector record.
func TestFinalizeLapSkipsDegenerateSinglePointSector(t *testing.T) {
	e, err := NewEngine(Config{RaceTotalLaps: 5})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	samples := syntheticLap(0, 0)
	last := len(samples) - 1
	e.buffer.samples = samples
	e.sectors.boundaries = []int{0, 40, last, last}

	lap := e.finalizeLap()
	if lap == nil {
		t.Fatal("expected finalizeLap to produce a LapRecord")
	}
	if _, ok := lap.Sectors[2]; ok {
		t.Error("expected sector 2 (a single-point partition) to be omitted from the lap record")
	}
	if _, ok := e.optimalLap[2]; ok {
		t.Error("expected sector 2 to never enter the optimal lap from a single-point partition")
	}
}
