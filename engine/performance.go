package engine

import "gonum.org/v1/gonum/stat"

const (
	performanceMinLaps       = 2
	performanceWindow        = 10
	performanceTrendMinSnaps = 3
	performanceTrendWindow   = 5
)

// performanceScore composes the speed/consistency/smoothness rating for a
// just-completed lap. lapHistory holds only the laps prior to the one
// just finalized (mirroring tireModel's call convention), so the window
// search for the best lap time never sees the current lap's own time;
// currentLapTime is the just-finalized lap's total time, compared
// against that prior-only best. priorPerformance is the snapshot history
// BEFORE this lap's snapshot, used for trend detection. currentLapSpeeds
// is the raw (unsmoothed) per-sample speed series of the lap just
// finalized.
func performanceScore(lapHistory []LapRecord, currentLapTime float64, priorPerformance []PerformanceSnapshot, currentLapSpeeds []float64) PerformanceSnapshot {
	lapNumber := len(lapHistory)
	if lapNumber < performanceMinLaps {
		return PerformanceSnapshot{
			Lap:          lapNumber,
			OverallScore: 75,
			Rating:       RatingB,
			Trend:        TrendStable,
		}
	}

	start := lapNumber - performanceWindow
	if start < 0 {
		start = 0
	}
	window := lapHistory[start:lapNumber]

	lapTimes := make([]float64, len(window))
	best := window[0].TotalTime
	for i, lap := range window {
		lapTimes[i] = lap.TotalTime
		if lap.TotalTime < best {
			best = lap.TotalTime
		}
	}
	currentTime := currentLapTime

	speedScore := clampNonNegative(100 - (currentTime-best)/best*100)

	timeStdDev := stat.StdDev(lapTimes, nil)
	consistencyScore := clampNonNegative(100 - 10*timeStdDev)

	smoothnessScore := 75.0
	if len(currentLapSpeeds) > 1 {
		var sumChange float64
		for i := 1; i < len(currentLapSpeeds); i++ {
			sumChange += absFloat(currentLapSpeeds[i] - currentLapSpeeds[i-1])
		}
		avgChange := sumChange / float64(len(currentLapSpeeds)-1)
		smoothnessScore = clampNonNegative(100 - 5*avgChange)
	}

	overall := speedScore*0.4 + consistencyScore*0.3 + smoothnessScore*0.3

	return PerformanceSnapshot{
		Lap:              lapNumber,
		OverallScore:     overall,
		SpeedScore:       speedScore,
		ConsistencyScore: consistencyScore,
		SmoothnessScore:  smoothnessScore,
		Rating:           ratingBand(overall),
		Trend:            performanceTrend(priorPerformance),
	}
}

func ratingBand(score float64) Rating {
	switch {
	case score >= 95:
		return RatingSPlus
	case score >= 90:
		return RatingS
	case score >= 85:
		return RatingAPlus
	case score >= 80:
		return RatingA
	case score >= 75:
		return RatingBPlus
	case score >= 70:
		return RatingB
	case score >= 60:
		return RatingC
	default:
		return RatingD
	}
}

// performanceTrend compares the earliest to the latest of the last up-to-5
// prior snapshots; it needs at least 3 prior snapshots to say anything but
// STABLE.
func performanceTrend(priorPerformance []PerformanceSnapshot) Trend {
	if len(priorPerformance) < performanceTrendMinSnaps {
		return TrendStable
	}

	start := len(priorPerformance) - performanceTrendWindow
	if start < 0 {
		start = 0
	}
	window := priorPerformance[start:]

	delta := window[len(window)-1].OverallScore - window[0].OverallScore
	switch {
	case delta > 3:
		return TrendImproving
	case delta < -3:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// consistencyScore bands a session's lap-time standard deviation into a
// 0-100 score, used by GetSessionStats.
func consistencyScore(lapTimes []float64) float64 {
	if len(lapTimes) < 2 {
		return 100
	}
	return clampNonNegative(100 - 10*stat.StdDev(lapTimes, nil))
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
