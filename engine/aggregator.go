package engine

import "racetelemetry/telemetry"

// partitionBySector groups a finalized lap's samples into the fixed
// sectors, in order, using the sector map's index cutoffs. The returned
// ranges are disjoint and ordered, and their union is the whole lap.
func partitionBySector(samples []telemetry.Sample, sectors *sectorMap) map[int][]telemetry.Sample {
	partitions := make(map[int][]telemetry.Sample)
	for i, s := range samples {
		id := sectors.sectorFor(i)
		partitions[id] = append(partitions[id], s)
	}
	return partitions
}

// summarizeSector builds a SectorSummary from a sector's point range.
func summarizeSector(points []telemetry.Sample) SectorSummary {
	summary := SectorSummary{Points: points}
	if len(points) == 0 {
		return summary
	}

	summary.Time = points[len(points)-1].Timestamp - points[0].Timestamp
	summary.MinSpeed = points[0].Speed
	summary.MaxSpeed = points[0].Speed
	var sum float64
	for _, p := range points {
		sum += p.Speed
		if p.Speed > summary.MaxSpeed {
			summary.MaxSpeed = p.Speed
		}
		if p.Speed < summary.MinSpeed {
			summary.MinSpeed = p.Speed
		}
	}
	summary.AvgSpeed = sum / float64(len(points))
	return summary
}

// speedSummary computes avg/max/min speed across a whole lap.
func speedSummary(samples []telemetry.Sample) (avg, max, min float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	max = samples[0].Speed
	min = samples[0].Speed
	var sum float64
	for _, s := range samples {
		sum += s.Speed
		if s.Speed > max {
			max = s.Speed
		}
		if s.Speed < min {
			min = s.Speed
		}
	}
	avg = sum / float64(len(samples))
	return avg, max, min
}
