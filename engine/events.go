package engine

import (
	"racetelemetry/geo"
	"racetelemetry/telemetry"
)

// detectCorners finds corners in a finalized lap by locating local minima
// in the smoothed speed series under 40 km/h. Speeds are smoothed first;
// entry/apex/exit are read 5 samples on either side of the minimum.
func detectCorners(samples []telemetry.Sample) []CornerEvent {
	n := len(samples)
	if n < 11 {
		return nil
	}
	speeds := make([]float64, n)
	for i, s := range samples {
		speeds[i] = s.Speed
	}
	smoothed := geo.Smooth(speeds)

	var corners []CornerEvent
	for i := 5; i < n-5; i++ {
		if !(smoothed[i] < smoothed[i-3] && smoothed[i] < smoothed[i+3]) {
			continue
		}
		if smoothed[i] >= 40 {
			continue
		}

		entry := smoothed[i-5]
		apex := smoothed[i]
		exit := smoothed[i+5]
		speedLoss := entry - apex

		var severityFraction float64
		if entry > 0 {
			severityFraction = speedLoss / entry
		}
		exitAcceleration := exit - apex

		corners = append(corners, CornerEvent{
			Index:            i,
			Lat:              samples[i].Lat,
			Lon:              samples[i].Lon,
			EntrySpeed:       entry,
			ApexSpeed:        apex,
			ExitSpeed:        exit,
			SpeedLoss:        speedLoss,
			Severity:         severityFraction * 100,
			ExitAcceleration: exitAcceleration,
			Type:             classifyCorner(severityFraction, apex),
		})
	}
	return corners
}

func classifyCorner(severityFraction, apexSpeed float64) CornerType {
	switch {
	case severityFraction > 0.5:
		return CornerHairpin
	case severityFraction > 0.3:
		return CornerSlow
	case apexSpeed > 35:
		return CornerFast
	default:
		return CornerMedium
	}
}

// detectBrakeZones finds points where raw speed drops by more than 3 km/h
// sample-to-sample.
func detectBrakeZones(samples []telemetry.Sample) []BrakeEvent {
	var zones []BrakeEvent
	for i := 1; i < len(samples)-1; i++ {
		before := samples[i-1].Speed
		after := samples[i].Speed
		decel := before - after
		if decel <= 3 {
			continue
		}
		intensity := BrakeModerate
		if decel > 10 {
			intensity = BrakeHard
		}
		zones = append(zones, BrakeEvent{
			Index:            i,
			Lat:              samples[i].Lat,
			Lon:              samples[i].Lon,
			SpeedBefore:      before,
			SpeedAfter:       after,
			DecelerationRate: decel,
			Intensity:        intensity,
		})
	}
	return zones
}

// detectAccelZones finds points where raw speed rises by more than 2 km/h
// sample-to-sample.
func detectAccelZones(samples []telemetry.Sample) []AccelEvent {
	var zones []AccelEvent
	for i := 1; i < len(samples)-1; i++ {
		before := samples[i-1].Speed
		after := samples[i].Speed
		accel := after - before
		if accel <= 2 {
			continue
		}
		zoneType := AccelStraight
		if before < 30 {
			zoneType = AccelCornerExit
		}
		zones = append(zones, AccelEvent{
			Index:            i,
			Lat:              samples[i].Lat,
			Lon:              samples[i].Lon,
			SpeedBefore:      before,
			SpeedAfter:       after,
			AccelerationRate: accel,
			ZoneType:         zoneType,
		})
	}
	return zones
}

// detectOvertakingZones flags high-speed sections (good for drafting) and
// corner-exit acceleration zones (good for out-braking on the next
// straight) as overtaking opportunities.
func detectOvertakingZones(samples []telemetry.Sample) []OvertakingZone {
	n := len(samples)
	var zones []OvertakingZone

	for i := 5; i < n-5; i++ {
		avg := windowMean(samples, i-5, i+5)
		if avg > 50 {
			zones = append(zones, OvertakingZone{
				Index:          i,
				Lat:            samples[i].Lat,
				Lon:            samples[i].Lon,
				Type:           OvertakingHighSpeedStraight,
				AvgSpeed:       avg,
				Confidence:     0.85,
				Recommendation: "Use slipstream for overtake",
			})
		}
	}

	for i := 1; i < n-5; i++ {
		cur := samples[i].Speed
		if cur < 35 && samples[i+5].Speed-cur > 10 {
			zones = append(zones, OvertakingZone{
				Index:          i,
				Lat:            samples[i].Lat,
				Lon:            samples[i].Lon,
				Type:           OvertakingCornerExit,
				ExitSpeed:      samples[i+5].Speed,
				Confidence:     0.70,
				Recommendation: "Better exit = overtake next straight",
			})
		}
	}

	return zones
}

func windowMean(samples []telemetry.Sample, lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi > len(samples) {
		hi = len(samples)
	}
	if hi <= lo {
		return 0
	}
	var sum float64
	for i := lo; i < hi; i++ {
		sum += samples[i].Speed
	}
	return sum / float64(hi-lo)
}
