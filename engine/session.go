package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"racetelemetry/session"
	"racetelemetry/telemetry"
)

// SaveSession writes the engine's full state to store under a freshly
// generated session ID, and returns the metadata persisted alongside the
// full snapshot.
func (e *Engine) SaveSession(store session.Store) (session.Metadata, error) {
	e.mu.RLock()
	snap, meta := e.toSnapshotLocked()
	e.mu.RUnlock()

	if err := store.Save(meta.ID, snap); err != nil {
		return session.Metadata{}, fmt.Errorf("engine: save session: %w", err)
	}
	return meta, nil
}

// LoadSession replaces the engine's state with the snapshot stored under id.
// On failure the engine's existing state is left untouched (copy-then-swap).
func (e *Engine) LoadSession(store session.Store, id string) error {
	snap, err := store.Load(id)
	if err != nil {
		return fmt.Errorf("engine: load session: %w", err)
	}

	restored, err := fromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("engine: load session: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Field-by-field, not a whole-struct assignment: e.mu itself must stay
	// the lock we are currently holding.
	e.cfg = restored.cfg
	e.buffer = restored.buffer
	e.sectors = restored.sectors
	e.lapNumber = restored.lapNumber
	e.optimalLap = restored.optimalLap
	e.lapHistory = restored.lapHistory
	e.priorBrakeZones = restored.priorBrakeZones
	e.cornerHistory = restored.cornerHistory
	e.tireHistory = restored.tireHistory
	e.performanceHistory = restored.performanceHistory
	e.latestStrategy = restored.latestStrategy
	e.startedAt = restored.startedAt
	return nil
}

// RunAutoSave periodically snapshots the engine to store on the interval
// configured as SessionRotation, stopping when ctx is canceled. It is a
// no-op if SessionRotation is 0 (the default); callers that want periodic
// persistence run it in its own goroutine.
func (e *Engine) RunAutoSave(ctx context.Context, store session.Store) {
	e.mu.RLock()
	interval := e.cfg.SessionRotation
	e.mu.RUnlock()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := e.SaveSession(store); err != nil {
				log.Printf("engine: auto-save failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) toSnapshotLocked() (session.Snapshot, session.Metadata) {
	meta := session.Metadata{
		ID:        uuid.NewString(),
		SavedAt:   time.Now(),
		Duration:  time.Since(e.startedAt),
		TotalLaps: len(e.lapHistory),
	}
	if len(e.lapHistory) > 0 {
		best := e.lapHistory[0]
		for _, lap := range e.lapHistory[1:] {
			if lap.TotalTime < best.TotalTime {
				best = lap
			}
		}
		meta.HasBestLap = true
		meta.BestLapTime = best.TotalTime
		meta.BestLapNumber = best.LapNumber
	}

	snap := session.Snapshot{
		Metadata:           meta,
		LapNumber:          e.lapNumber,
		NumSectors:         e.cfg.NumSectors,
		RaceTotalLaps:      e.cfg.RaceTotalLaps,
		SectorBoundaries:   append([]int(nil), e.sectors.boundaries...),
		OptimalLap:         make(map[int]session.OptimalSector, len(e.optimalLap)),
		LapHistory:         make([]session.LapRecord, len(e.lapHistory)),
		PriorBrakeZones:    toSessionBrakeEvents(e.priorBrakeZones),
		TireHistory:        make([]session.TireStatus, len(e.tireHistory)),
		PerformanceHistory: make([]session.PerformanceSnapshot, len(e.performanceHistory)),
	}
	for id, s := range e.optimalLap {
		snap.OptimalLap[id] = toSessionOptimalSector(s)
	}
	for i, lap := range e.lapHistory {
		snap.LapHistory[i] = toSessionLapRecord(lap)
	}
	for i, t := range e.tireHistory {
		snap.TireHistory[i] = toSessionTireStatus(t)
	}
	for i, p := range e.performanceHistory {
		snap.PerformanceHistory[i] = toSessionPerformance(p)
	}

	return snap, meta
}

func fromSnapshot(snap session.Snapshot) (*Engine, error) {
	cfg, err := LoadConfig(Config{
		NumSectors:    snap.NumSectors,
		RaceTotalLaps: snap.RaceTotalLaps,
	})
	if err != nil {
		return nil, err
	}

	sectors := newSectorMap(cfg.NumSectors)
	if len(snap.SectorBoundaries) > 0 {
		sectors = restoreSectorMap(cfg.NumSectors, snap.SectorBoundaries)
	}

	e := &Engine{
		cfg:           cfg,
		buffer:        newLapBuffer(),
		sectors:       sectors,
		lapNumber:     snap.LapNumber,
		optimalLap:    make(map[int]OptimalSector, len(snap.OptimalLap)),
		cornerHistory: make(map[int][]cornerScoreRecord),
		startedAt:     time.Now().Add(-snap.Metadata.Duration),
	}
	for id, s := range snap.OptimalLap {
		e.optimalLap[id] = fromSessionOptimalSector(s)
	}
	e.lapHistory = make([]LapRecord, len(snap.LapHistory))
	for i, lap := range snap.LapHistory {
		e.lapHistory[i] = fromSessionLapRecord(lap)
	}
	e.priorBrakeZones = fromSessionBrakeEvents(snap.PriorBrakeZones)
	e.tireHistory = make([]TireStatus, len(snap.TireHistory))
	for i, t := range snap.TireHistory {
		e.tireHistory[i] = fromSessionTireStatus(t)
	}
	e.performanceHistory = make([]PerformanceSnapshot, len(snap.PerformanceHistory))
	for i, p := range snap.PerformanceHistory {
		e.performanceHistory[i] = fromSessionPerformance(p)
	}
	for idx, corners := range rebuildCornerHistory(e.lapHistory) {
		e.cornerHistory[idx] = corners
	}
	if len(e.lapHistory) > 0 {
		if strat, ok := generateStrategy(e.lapNumber, e.cfg.RaceTotalLaps, e.lapHistory, e.tireHistory, e.performanceHistory).Get(); ok {
			e.latestStrategy = &strat
		}
	}

	return e, nil
}

// rebuildCornerHistory reconstructs the per-corner-ordinal score history
// that analyzeCornerPerformance needs, from the restored lap history, so a
// reloaded session's improvement-potential comparisons stay consistent.
func rebuildCornerHistory(lapHistory []LapRecord) map[int][]cornerScoreRecord {
	history := make(map[int][]cornerScoreRecord)
	for _, lap := range lapHistory {
		for idx, corner := range lap.Corners {
			score := 2*corner.ExitAcceleration - corner.SpeedLoss
			history[idx] = append(history[idx], cornerScoreRecord{
				Lap:        lap.LapNumber,
				Score:      score,
				EntrySpeed: corner.EntrySpeed,
				ExitSpeed:  corner.ExitSpeed,
			})
		}
	}
	return history
}

func toSessionSample(s telemetry.Sample) session.Sample {
	return session.Sample{Timestamp: s.Timestamp, Lat: s.Lat, Lon: s.Lon, Speed: s.Speed}
}

func fromSessionSample(s session.Sample) telemetry.Sample {
	return telemetry.Sample{Timestamp: s.Timestamp, Lat: s.Lat, Lon: s.Lon, Speed: s.Speed}
}

func toSessionSamples(samples []telemetry.Sample) []session.Sample {
	out := make([]session.Sample, len(samples))
	for i, s := range samples {
		out[i] = toSessionSample(s)
	}
	return out
}

func fromSessionSamples(samples []session.Sample) []telemetry.Sample {
	out := make([]telemetry.Sample, len(samples))
	for i, s := range samples {
		out[i] = fromSessionSample(s)
	}
	return out
}

func toSessionOptimalSector(s OptimalSector) session.OptimalSector {
	return session.OptimalSector{
		Time:      s.Time,
		Points:    toSessionSamples(s.Points),
		LapNumber: s.LapNumber,
		AvgSpeed:  s.AvgSpeed,
		MaxSpeed:  s.MaxSpeed,
	}
}

func fromSessionOptimalSector(s session.OptimalSector) OptimalSector {
	return OptimalSector{
		Time:      s.Time,
		Points:    fromSessionSamples(s.Points),
		LapNumber: s.LapNumber,
		AvgSpeed:  s.AvgSpeed,
		MaxSpeed:  s.MaxSpeed,
	}
}

func toSessionBrakeEvents(events []BrakeEvent) []session.BrakeEvent {
	out := make([]session.BrakeEvent, len(events))
	for i, e := range events {
		out[i] = session.BrakeEvent{
			Index:            e.Index,
			Lat:              e.Lat,
			Lon:              e.Lon,
			SpeedBefore:      e.SpeedBefore,
			SpeedAfter:       e.SpeedAfter,
			DecelerationRate: e.DecelerationRate,
			Intensity:        string(e.Intensity),
		}
	}
	return out
}

func fromSessionBrakeEvents(events []session.BrakeEvent) []BrakeEvent {
	out := make([]BrakeEvent, len(events))
	for i, e := range events {
		out[i] = BrakeEvent{
			Index:            e.Index,
			Lat:              e.Lat,
			Lon:              e.Lon,
			SpeedBefore:      e.SpeedBefore,
			SpeedAfter:       e.SpeedAfter,
			DecelerationRate: e.DecelerationRate,
			Intensity:        BrakeIntensity(e.Intensity),
		}
	}
	return out
}

func toSessionAccelEvents(events []AccelEvent) []session.AccelEvent {
	out := make([]session.AccelEvent, len(events))
	for i, e := range events {
		out[i] = session.AccelEvent{
			Index:            e.Index,
			Lat:              e.Lat,
			Lon:              e.Lon,
			SpeedBefore:      e.SpeedBefore,
			SpeedAfter:       e.SpeedAfter,
			AccelerationRate: e.AccelerationRate,
			ZoneType:         string(e.ZoneType),
		}
	}
	return out
}

func fromSessionAccelEvents(events []session.AccelEvent) []AccelEvent {
	out := make([]AccelEvent, len(events))
	for i, e := range events {
		out[i] = AccelEvent{
			Index:            e.Index,
			Lat:              e.Lat,
			Lon:              e.Lon,
			SpeedBefore:      e.SpeedBefore,
			SpeedAfter:       e.SpeedAfter,
			AccelerationRate: e.AccelerationRate,
			ZoneType:         AccelZoneType(e.ZoneType),
		}
	}
	return out
}

func toSessionOvertakingZones(zones []OvertakingZone) []session.OvertakingZone {
	out := make([]session.OvertakingZone, len(zones))
	for i, z := range zones {
		out[i] = session.OvertakingZone{
			Index:          z.Index,
			Lat:            z.Lat,
			Lon:            z.Lon,
			Type:           string(z.Type),
			AvgSpeed:       z.AvgSpeed,
			ExitSpeed:      z.ExitSpeed,
			Confidence:     z.Confidence,
			Recommendation: z.Recommendation,
		}
	}
	return out
}

func fromSessionOvertakingZones(zones []session.OvertakingZone) []OvertakingZone {
	out := make([]OvertakingZone, len(zones))
	for i, z := range zones {
		out[i] = OvertakingZone{
			Index:          z.Index,
			Lat:            z.Lat,
			Lon:            z.Lon,
			Type:           OvertakingType(z.Type),
			AvgSpeed:       z.AvgSpeed,
			ExitSpeed:      z.ExitSpeed,
			Confidence:     z.Confidence,
			Recommendation: z.Recommendation,
		}
	}
	return out
}

func toSessionCornerAnalysis(improvements []CornerImprovement) []session.CornerImprovement {
	out := make([]session.CornerImprovement, len(improvements))
	for i, c := range improvements {
		out[i] = session.CornerImprovement{
			CornerIndex:          c.CornerIndex,
			ImprovementPotential: c.ImprovementPotential,
			CurrentExitSpeed:     c.CurrentExitSpeed,
			BestExitSpeed:        c.BestExitSpeed,
			Recommendation:       c.Recommendation,
			Lat:                  c.Lat,
			Lon:                  c.Lon,
		}
	}
	return out
}

func fromSessionCornerAnalysis(improvements []session.CornerImprovement) []CornerImprovement {
	out := make([]CornerImprovement, len(improvements))
	for i, c := range improvements {
		out[i] = CornerImprovement{
			CornerIndex:          c.CornerIndex,
			ImprovementPotential: c.ImprovementPotential,
			CurrentExitSpeed:     c.CurrentExitSpeed,
			BestExitSpeed:        c.BestExitSpeed,
			Recommendation:       c.Recommendation,
			Lat:                  c.Lat,
			Lon:                  c.Lon,
		}
	}
	return out
}

func toSessionCorners(corners []CornerEvent) []session.CornerEvent {
	out := make([]session.CornerEvent, len(corners))
	for i, c := range corners {
		out[i] = session.CornerEvent{
			Index:            c.Index,
			Lat:              c.Lat,
			Lon:              c.Lon,
			EntrySpeed:       c.EntrySpeed,
			ApexSpeed:        c.ApexSpeed,
			ExitSpeed:        c.ExitSpeed,
			SpeedLoss:        c.SpeedLoss,
			Severity:         c.Severity,
			ExitAcceleration: c.ExitAcceleration,
			Type:             string(c.Type),
		}
	}
	return out
}

func fromSessionCorners(corners []session.CornerEvent) []CornerEvent {
	out := make([]CornerEvent, len(corners))
	for i, c := range corners {
		out[i] = CornerEvent{
			Index:            c.Index,
			Lat:              c.Lat,
			Lon:              c.Lon,
			EntrySpeed:       c.EntrySpeed,
			ApexSpeed:        c.ApexSpeed,
			ExitSpeed:        c.ExitSpeed,
			SpeedLoss:        c.SpeedLoss,
			Severity:         c.Severity,
			ExitAcceleration: c.ExitAcceleration,
			Type:             CornerType(c.Type),
		}
	}
	return out
}

func toSessionSectors(sectors map[int]SectorSummary) map[int]session.SectorSummary {
	out := make(map[int]session.SectorSummary, len(sectors))
	for id, s := range sectors {
		out[id] = session.SectorSummary{
			Time:     s.Time,
			AvgSpeed: s.AvgSpeed,
			MaxSpeed: s.MaxSpeed,
			MinSpeed: s.MinSpeed,
			Points:   toSessionSamples(s.Points),
		}
	}
	return out
}

func fromSessionSectors(sectors map[int]session.SectorSummary) map[int]SectorSummary {
	out := make(map[int]SectorSummary, len(sectors))
	for id, s := range sectors {
		out[id] = SectorSummary{
			Time:     s.Time,
			AvgSpeed: s.AvgSpeed,
			MaxSpeed: s.MaxSpeed,
			MinSpeed: s.MinSpeed,
			Points:   fromSessionSamples(s.Points),
		}
	}
	return out
}

func toSessionTireStatus(t TireStatus) session.TireStatus {
	return session.TireStatus{
		Lap:              t.Lap,
		GripLevel:        t.GripLevel,
		DegradationRate:  t.DegradationRate,
		SpeedLossPercent: t.SpeedLossPercent,
		LapsRemaining:    t.LapsRemaining,
		PitRecommended:   t.PitRecommended,
		ConditionStatus:  string(t.ConditionStatus),
	}
}

func fromSessionTireStatus(t session.TireStatus) TireStatus {
	return TireStatus{
		Lap:              t.Lap,
		GripLevel:        t.GripLevel,
		DegradationRate:  t.DegradationRate,
		SpeedLossPercent: t.SpeedLossPercent,
		LapsRemaining:    t.LapsRemaining,
		PitRecommended:   t.PitRecommended,
		ConditionStatus:  TireCondition(t.ConditionStatus),
	}
}

func toSessionPerformance(p PerformanceSnapshot) session.PerformanceSnapshot {
	return session.PerformanceSnapshot{
		Lap:              p.Lap,
		OverallScore:     p.OverallScore,
		SpeedScore:       p.SpeedScore,
		ConsistencyScore: p.ConsistencyScore,
		SmoothnessScore:  p.SmoothnessScore,
		Rating:           string(p.Rating),
		Trend:            string(p.Trend),
	}
}

func fromSessionPerformance(p session.PerformanceSnapshot) PerformanceSnapshot {
	return PerformanceSnapshot{
		Lap:              p.Lap,
		OverallScore:     p.OverallScore,
		SpeedScore:       p.SpeedScore,
		ConsistencyScore: p.ConsistencyScore,
		SmoothnessScore:  p.SmoothnessScore,
		Rating:           Rating(p.Rating),
		Trend:            Trend(p.Trend),
	}
}

func toSessionLapRecord(lap LapRecord) session.LapRecord {
	return session.LapRecord{
		LapNumber:       lap.LapNumber,
		TotalTime:       lap.TotalTime,
		AvgSpeed:        lap.AvgSpeed,
		MaxSpeed:        lap.MaxSpeed,
		MinSpeed:        lap.MinSpeed,
		Sectors:         toSessionSectors(lap.Sectors),
		Corners:         toSessionCorners(lap.Corners),
		BrakeZones:      toSessionBrakeEvents(lap.BrakeZones),
		AccelZones:      toSessionAccelEvents(lap.AccelZones),
		OvertakingZones: toSessionOvertakingZones(lap.OvertakingZones),
		CornerAnalysis:  toSessionCornerAnalysis(lap.CornerAnalysis),
		TireStatus:      toSessionTireStatus(lap.TireStatus),
		Performance:     toSessionPerformance(lap.Performance),
		Timestamp:       lap.Timestamp,
	}
}

func fromSessionLapRecord(lap session.LapRecord) LapRecord {
	return LapRecord{
		LapNumber:       lap.LapNumber,
		TotalTime:       lap.TotalTime,
		AvgSpeed:        lap.AvgSpeed,
		MaxSpeed:        lap.MaxSpeed,
		MinSpeed:        lap.MinSpeed,
		Sectors:         fromSessionSectors(lap.Sectors),
		Corners:         fromSessionCorners(lap.Corners),
		BrakeZones:      fromSessionBrakeEvents(lap.BrakeZones),
		AccelZones:      fromSessionAccelEvents(lap.AccelZones),
		OvertakingZones: fromSessionOvertakingZones(lap.OvertakingZones),
		CornerAnalysis:  fromSessionCornerAnalysis(lap.CornerAnalysis),
		TireStatus:      fromSessionTireStatus(lap.TireStatus),
		Performance:     fromSessionPerformance(lap.Performance),
		Timestamp:       lap.Timestamp,
	}
}
