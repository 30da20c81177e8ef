package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	tireModelMinLaps     = 3
	tireModelWindow      = 10
	tireCriticalFraction = 0.93
	tireDegradationFloor = 0.01
)

// tireModel fits avg_speed ~ a*lap_number + b by least squares over the
// last min(10, N) completed laps (gonum/stat.LinearRegression), and
// derives grip, remaining-laps, and pit-recommendation bands from the
// fitted degradation rate.
func tireModel(lapHistory []LapRecord, currentLapAvgSpeed float64) TireStatus {
	lapNumber := len(lapHistory)
	if lapNumber < tireModelMinLaps {
		return TireStatus{
			Lap:             lapNumber,
			GripLevel:       100,
			DegradationRate: 0,
			LapsRemaining:   999,
			PitRecommended:  false,
			ConditionStatus: TireNew,
		}
	}

	start := lapNumber - tireModelWindow
	if start < 0 {
		start = 0
	}
	window := lapHistory[start:lapNumber]

	lapNumbers := make([]float64, len(window))
	avgSpeeds := make([]float64, len(window))
	for i, lap := range window {
		lapNumbers[i] = float64(lap.LapNumber)
		avgSpeeds[i] = lap.AvgSpeed
	}

	_, slope := stat.LinearRegression(lapNumbers, avgSpeeds, nil, false)
	degradationRate := math.Abs(slope)

	firstWindowAvg := avgSpeeds[0]
	speedLossPercent := 0.0
	if firstWindowAvg > 0 {
		speedLossPercent = (firstWindowAvg - currentLapAvgSpeed) / firstWindowAvg * 100
	}
	if speedLossPercent < 0 {
		speedLossPercent = 0
	}

	gripLevel := 100 - speedLossPercent
	if gripLevel < 0 {
		gripLevel = 0
	}

	criticalSpeed := tireCriticalFraction * firstWindowAvg
	lapsRemaining := 999
	if degradationRate > tireDegradationFloor && currentLapAvgSpeed > criticalSpeed {
		lapsRemaining = int((currentLapAvgSpeed - criticalSpeed) / degradationRate)
	}

	pitRecommended := gripLevel < 75 || lapsRemaining < 3

	return TireStatus{
		Lap:             lapNumber,
		GripLevel:       gripLevel,
		DegradationRate: degradationRate,
		SpeedLossPercent: speedLossPercent,
		LapsRemaining:   lapsRemaining,
		PitRecommended:  pitRecommended,
		ConditionStatus: tireConditionBand(gripLevel),
	}
}

func tireConditionBand(grip float64) TireCondition {
	switch {
	case grip >= 95:
		return TireExcellent
	case grip >= 85:
		return TireGood
	case grip >= 75:
		return TireFair
	case grip >= 65:
		return TireWorn
	default:
		return TireCritical
	}
}
