package engine

import (
	"math"

	"racetelemetry/telemetry"
)

const livePredictorMinHistoryLaps = 3

// currentSectorAndProgress identifies the sector the most recent sample of
// an in-progress buffer belongs to, along with how far into that sector the
// buffer currently is: the sample's index within the sector divided by the
// sector's length in the lap that fixed the boundaries (or by the buffered
// run itself while no boundaries exist). liveDelta maps this progress onto
// the optimal sector's points as k = min(floor(progress*len), len-1) rather
// than a proportional-by-buffer-length index, which can read 0 when the
// current lap is shorter than the optimal one.
func currentSectorAndProgress(buffer []telemetry.Sample, sectors *sectorMap) (sector int, progress float64) {
	n := len(buffer)
	if n == 0 {
		return 0, 0
	}
	sector = sectors.sectorFor(n - 1)

	sectorStart := 0
	for i := 0; i < n; i++ {
		if sectors.sectorFor(i) == sector {
			sectorStart = i
			break
		}
	}
	sectorLen := n - sectorStart
	if sectors.isComputed() && sector+1 < len(sectors.boundaries) {
		next := sectors.boundaries[sector+1]
		if sector == sectors.numSectors-1 {
			next++ // the last sector includes the final boundary index
		}
		if full := next - sectors.boundaries[sector]; full > 0 {
			sectorLen = full
		}
	}
	indexWithinSector := n - 1 - sectorStart
	progress = float64(indexWithinSector) / float64(sectorLen)
	return sector, progress
}

// liveDelta computes the signed time delta against the optimal-lap
// reference at the current sample's sector progress. Positive means ahead
// of the optimal. Zero when the current sector has no optimal data yet.
func liveDelta(buffer []telemetry.Sample, optimalLap map[int]OptimalSector, sectors *sectorMap) float64 {
	n := len(buffer)
	if n == 0 {
		return 0
	}
	sector, progress := currentSectorAndProgress(buffer, sectors)

	optimal, ok := optimalLap[sector]
	if !ok || len(optimal.Points) == 0 {
		return 0
	}

	k := int(math.Floor(progress * float64(len(optimal.Points))))
	if k > len(optimal.Points)-1 {
		k = len(optimal.Points) - 1
	}
	if k < 0 {
		k = 0
	}

	optimalElapsed := optimal.Points[k].Timestamp - optimal.Points[0].Timestamp
	elapsedInLap := buffer[n-1].Timestamp - buffer[0].Timestamp
	return optimalElapsed - elapsedInLap
}

// predictLapTime forecasts the total lap time for an in-progress lap from
// a weighted-similarity match against historical laps that share the same
// completed sectors.
func predictLapTime(buffer []telemetry.Sample, currentSector int, sectors *sectorMap, lapHistory []LapRecord) Maybe[LapTimePrediction] {
	if len(lapHistory) < livePredictorMinHistoryLaps {
		return Absent[LapTimePrediction](StatusInsufficientData)
	}

	completedSectors := make([]int, currentSector+1)
	for i := range completedSectors {
		completedSectors[i] = i
	}

	currentTimes := make([]float64, 0, len(completedSectors))
	for _, sid := range completedSectors {
		var first, last *telemetry.Sample
		count := 0
		for i := range buffer {
			if sectors.sectorFor(i) != sid {
				continue
			}
			if first == nil {
				first = &buffer[i]
			}
			last = &buffer[i]
			count++
		}
		if count < 2 {
			continue
		}
		currentTimes = append(currentTimes, last.Timestamp-first.Timestamp)
	}
	if len(currentTimes) != len(completedSectors) {
		return Absent[LapTimePrediction](StatusInsufficientData)
	}

	var trainX [][]float64
	var trainY []float64
	for _, lap := range lapHistory {
		row := make([]float64, 0, len(completedSectors))
		for _, sid := range completedSectors {
			sector, ok := lap.Sectors[sid]
			if !ok {
				break
			}
			row = append(row, sector.Time)
		}
		if len(row) == len(completedSectors) {
			trainX = append(trainX, row)
			trainY = append(trainY, lap.TotalTime)
		}
	}
	if len(trainX) < 2 {
		return Absent[LapTimePrediction](StatusInsufficientData)
	}

	similarities := make([]float64, len(trainX))
	var simSum float64
	for i, row := range trainX {
		var absDiffSum float64
		for j, x := range row {
			absDiffSum += math.Abs(x - currentTimes[j])
		}
		similarities[i] = 1 / (1 + absDiffSum)
		simSum += similarities[i]
	}

	var predicted, maxWeight float64
	for i, sim := range similarities {
		w := sim / simSum
		predicted += w * trainY[i]
		if w > maxWeight {
			maxWeight = w
		}
	}

	return Present(LapTimePrediction{
		PredictedTotalTime: predicted,
		Confidence:         maxWeight,
	})
}
