package engine

import (
	"fmt"

	"racetelemetry/geo"
)

const (
	cornerImprovementThresholdPercent = 10.0
	brakeZoneProximityMeters          = 10.0
	brakeZoneSpeedDiffThreshold       = 2.0
)

// cornerScoreRecord is one lap's performance-score entry for a single
// ordinal corner, used to correlate corners across laps by detection
// order (fragile under differing detection
// counts, preserved here rather than switched to geographic matching).
type cornerScoreRecord struct {
	Lap        int
	Score      float64
	EntrySpeed float64
	ExitSpeed  float64
}

// analyzeCornerPerformance updates cornerHistory (keyed by ordinal corner
// index within the lap) with the current lap's corners, and returns an
// improvement-opportunity record for every corner whose score has
// regressed more than 10% from its historical best.
func analyzeCornerPerformance(cornerHistory map[int][]cornerScoreRecord, lapNumber int, corners []CornerEvent) []CornerImprovement {
	var analysis []CornerImprovement

	for idx, corner := range corners {
		score := 2*corner.ExitAcceleration - corner.SpeedLoss
		record := cornerScoreRecord{
			Lap:        lapNumber,
			Score:      score,
			EntrySpeed: corner.EntrySpeed,
			ExitSpeed:  corner.ExitSpeed,
		}

		full := append(append([]cornerScoreRecord{}, cornerHistory[idx]...), record)
		cornerHistory[idx] = full

		if len(full) <= 1 {
			continue // no prior record to compare against
		}

		bestScore := full[0]
		bestExit := full[0]
		for _, h := range full {
			if h.Score > bestScore.Score {
				bestScore = h
			}
			if h.ExitSpeed > bestExit.ExitSpeed {
				bestExit = h
			}
		}

		var improvementPct float64
		if bestScore.Score != 0 {
			improvementPct = (bestScore.Score - score) / absFloat(bestScore.Score) * 100
		}
		if improvementPct <= cornerImprovementThresholdPercent {
			continue
		}

		analysis = append(analysis, CornerImprovement{
			CornerIndex:          idx,
			ImprovementPotential: improvementPct,
			CurrentExitSpeed:     corner.ExitSpeed,
			BestExitSpeed:        bestExit.ExitSpeed,
			Recommendation:       cornerRecommendation(corner, bestExit),
			Lat:                  corner.Lat,
			Lon:                  corner.Lon,
		})
	}

	return analysis
}

func cornerRecommendation(current CornerEvent, best cornerScoreRecord) string {
	entryDiff := current.EntrySpeed - best.EntrySpeed
	exitDiff := current.ExitSpeed - best.ExitSpeed

	switch {
	case entryDiff < -3:
		return "Entry too slow - brake later"
	case exitDiff < -2:
		return "Exit too slow - earlier throttle application"
	case entryDiff > 3:
		return "Entry too fast - brake earlier for better exit"
	default:
		return "Good corner execution"
	}
}

// optimizeBrakePoints compares the current lap's brake zones against the
// accumulated brake-zone history from all prior laps, by proximity, and
// flags zones where entry speed differs by more than 2 km/h
// as optimized brake points.
func optimizeBrakePoints(priorBrakeZones []BrakeEvent, currentBrakeZones []BrakeEvent) []BrakeOptimization {
	var optimizations []BrakeOptimization

	for _, current := range currentBrakeZones {
		for _, historical := range priorBrakeZones {
			d := geo.Haversine(
				geo.Point{Lat: current.Lat, Lon: current.Lon},
				geo.Point{Lat: historical.Lat, Lon: historical.Lon},
			)
			if d >= brakeZoneProximityMeters {
				continue
			}

			speedDiff := historical.SpeedBefore - current.SpeedBefore
			if absFloat(speedDiff) <= brakeZoneSpeedDiffThreshold {
				continue
			}

			brakeEarlier := speedDiff > 0
			verb := "later"
			if brakeEarlier {
				verb = "earlier"
			}

			optimizations = append(optimizations, BrakeOptimization{
				Lat:               current.Lat,
				Lon:               current.Lon,
				CurrentEntrySpeed: current.SpeedBefore,
				OptimalEntrySpeed: historical.SpeedBefore,
				BrakeEarlier:      brakeEarlier,
				TimeGainPotential: absFloat(speedDiff) * 0.05,
				Recommendation:    fmt.Sprintf("Brake %s by ~%.0f km/h", verb, absFloat(speedDiff)),
			})
		}
	}

	return optimizations
}
