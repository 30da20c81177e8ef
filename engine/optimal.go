package engine

import (
	"math"
	"sort"

	"racetelemetry/telemetry"
)

// updateOptimalLap replaces each sector in optimalLap with the new lap's
// sector whenever it is a strict improvement (missing counts as +Inf). It
// mutates optimalLap in place and returns the sector ids that changed.
func updateOptimalLap(optimalLap map[int]OptimalSector, lapNumber int, sectors map[int]SectorSummary) []int {
	var updated []int
	for id, sector := range sectors {
		currentBest := math.Inf(1)
		if existing, ok := optimalLap[id]; ok {
			currentBest = existing.Time
		}
		if sector.Time < currentBest {
			pointsCopy := make([]telemetry.Sample, len(sector.Points))
			copy(pointsCopy, sector.Points)
			optimalLap[id] = OptimalSector{
				Time:      sector.Time,
				Points:    pointsCopy,
				LapNumber: lapNumber,
				AvgSpeed:  sector.AvgSpeed,
				MaxSpeed:  sector.MaxSpeed,
			}
			updated = append(updated, id)
		}
	}
	return updated
}

// optimalLapTime sums every sector's best time; zero when no sectors are
// known yet.
func optimalLapTime(optimalLap map[int]OptimalSector) float64 {
	var total float64
	for _, s := range optimalLap {
		total += s.Time
	}
	return total
}

// improvementPotential is the gap between the fastest lap ever completed
// and the theoretical optimal lap composed from best sectors. It is
// non-negative by construction, and zero only when one lap achieved the
// best time in every sector.
func improvementPotential(lapHistory []LapRecord, optimalLap map[int]OptimalSector) float64 {
	if len(lapHistory) == 0 || len(optimalLap) == 0 {
		return 0
	}
	fastest := lapHistory[0].TotalTime
	for _, lap := range lapHistory[1:] {
		if lap.TotalTime < fastest {
			fastest = lap.TotalTime
		}
	}
	return fastest - optimalLapTime(optimalLap)
}

// racingLine concatenates, in sector-id order, the (lat, lon) points of
// every optimal sector.
func racingLine(optimalLap map[int]OptimalSector) []telemetry.Sample {
	ids := make([]int, 0, len(optimalLap))
	for id := range optimalLap {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var line []telemetry.Sample
	for _, id := range ids {
		line = append(line, optimalLap[id].Points...)
	}
	return line
}
