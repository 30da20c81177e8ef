package engine

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"racetelemetry/telemetry"
)

const (
	defaultNumSectors     = 3
	lapHistoryRetained    = 15
	cornerHistoryLapLimit = 50
)

// Config bounds the engine's tunable behavior. LoadConfig (which NewEngine
// calls) fills each zero-value field with DefaultConfig's value.
type Config struct {
	NumSectors           int
	ValidationConfig     telemetry.ValidationConfig
	RaceTotalLaps        int
	BoundaryMinSamples   int
	BoundaryRadiusMeters float64
	SessionDir           string
	SessionRotation      time.Duration
}

// DefaultConfig returns the engine's out-of-the-box configuration.
func DefaultConfig() Config {
	return Config{
		NumSectors:           defaultNumSectors,
		ValidationConfig:     telemetry.DefaultValidationConfig(),
		RaceTotalLaps:        1,
		BoundaryMinSamples:   defaultBoundaryMinSamples,
		BoundaryRadiusMeters: defaultBoundaryRadiusMeters,
		SessionDir:           "sessions",
		SessionRotation:      0,
	}
}

// Validate rejects configurations that would make the pipeline meaningless.
func (c Config) Validate() error {
	if c.NumSectors < 1 {
		return fmt.Errorf("engine: NumSectors must be >= 1, got %d", c.NumSectors)
	}
	if c.RaceTotalLaps < 1 {
		return fmt.Errorf("engine: RaceTotalLaps must be >= 1, got %d", c.RaceTotalLaps)
	}
	if c.BoundaryMinSamples < 1 {
		return fmt.Errorf("engine: BoundaryMinSamples must be >= 1, got %d", c.BoundaryMinSamples)
	}
	if c.BoundaryRadiusMeters <= 0 {
		return fmt.Errorf("engine: BoundaryRadiusMeters must be > 0, got %f", c.BoundaryRadiusMeters)
	}
	if c.SessionDir == "" {
		return fmt.Errorf("engine: SessionDir must not be empty")
	}
	return nil
}

// LoadConfig fills any zero-valued field of c with DefaultConfig's value,
// overlays environment variable overrides, then validates the result.
func LoadConfig(c Config) (Config, error) {
	def := DefaultConfig()
	if c.NumSectors == 0 {
		c.NumSectors = def.NumSectors
	}
	if c.ValidationConfig == (telemetry.ValidationConfig{}) {
		c.ValidationConfig = def.ValidationConfig
	}
	if c.RaceTotalLaps == 0 {
		c.RaceTotalLaps = def.RaceTotalLaps
	}
	if c.BoundaryMinSamples == 0 {
		c.BoundaryMinSamples = def.BoundaryMinSamples
	}
	if c.BoundaryRadiusMeters == 0 {
		c.BoundaryRadiusMeters = def.BoundaryRadiusMeters
	}
	if c.SessionDir == "" {
		c.SessionDir = def.SessionDir
	}

	if dir := os.Getenv("TRACKTIC_SESSION_DIR"); dir != "" {
		c.SessionDir = dir
	}
	if laps := os.Getenv("TRACKTIC_RACE_TOTAL_LAPS"); laps != "" {
		n, err := strconv.Atoi(laps)
		if err != nil {
			return Config{}, fmt.Errorf("engine: invalid TRACKTIC_RACE_TOTAL_LAPS %q: %w", laps, err)
		}
		c.RaceTotalLaps = n
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Engine is the single state owner for a driving session. Every mutating
// method (ProcessTelemetryPoint, SetRaceTotalLaps, LoadSession) and every
// read-only query method takes the same mutex, so a query never observes a
// sample half-applied and ingestion never races a save.
type Engine struct {
	mu sync.RWMutex

	cfg Config

	buffer  *lapBuffer
	sectors *sectorMap

	lapNumber       int
	optimalLap      map[int]OptimalSector
	lapHistory      []LapRecord
	priorBrakeZones []BrakeEvent
	cornerHistory   map[int][]cornerScoreRecord

	tireHistory        []TireStatus
	performanceHistory []PerformanceSnapshot
	latestStrategy     *StrategyRecord

	startedAt time.Time
}

// NewEngine constructs an Engine ready to accept telemetry. cfg is passed
// through LoadConfig, so a zero-value Config is a valid argument.
func NewEngine(cfg Config) (*Engine, error) {
	cfg, err := LoadConfig(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		buffer:        newLapBuffer(),
		sectors:       newSectorMap(cfg.NumSectors),
		optimalLap:    make(map[int]OptimalSector),
		cornerHistory: make(map[int][]cornerScoreRecord),
		startedAt:     time.Now(),
	}
	log.Printf("engine: started new session (sectors=%d, race_total_laps=%d)", cfg.NumSectors, cfg.RaceTotalLaps)
	return e, nil
}

// SetRaceTotalLaps updates the race length used by the strategy advisor's
// race-progress and laps-remaining calculations.
func (e *Engine) SetRaceTotalLaps(n int) error {
	if n < 1 {
		return fmt.Errorf("engine: RaceTotalLaps must be >= 1, got %d", n)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.RaceTotalLaps = n
	return nil
}

// ProcessTelemetryPoint is the main ingest operation. Malformed samples are
// rejected and logged rather than treated as fatal, so a noisy GPS source
// never stalls the stream.
func (e *Engine) ProcessTelemetryPoint(s telemetry.Sample) (SampleResult, error) {
	if errs := telemetry.Validate(s, e.cfg.ValidationConfig); len(errs) > 0 {
		log.Printf("engine: rejected sample: %v", errs[0])
		return SampleResult{}, errs[0]
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var result SampleResult
	var completedLap *LapRecord

	if e.buffer.isBoundary(s, e.cfg.BoundaryMinSamples, e.cfg.BoundaryRadiusMeters) && !e.buffer.isEmpty() {
		if lap := e.finalizeLap(); lap != nil {
			completedLap = lap
			result.LapCompleted = true
		}
		e.buffer.reset(s)
	} else {
		e.buffer.append(s)
	}

	result.CurrentSector, _ = currentSectorAndProgress(e.buffer.samples, e.sectors)
	result.Delta = liveDelta(e.buffer.samples, e.optimalLap, e.sectors)
	result.Prediction = predictLapTime(e.buffer.samples, result.CurrentSector, e.sectors, e.lapHistory)
	if total := optimalLapTime(e.optimalLap); total > 0 {
		result.OptimalLapTime = Present(total)
	} else {
		result.OptimalLapTime = Absent[float64](StatusNoData)
	}
	if pred, ok := result.Prediction.Get(); ok {
		pred.OptimalTime = result.OptimalLapTime
		result.Prediction = Present(pred)
	}

	if completedLap != nil {
		result.LapData = completedLap
		if strat, ok := e.latestStrategyLocked(); ok {
			result.RaceStrategy = &strat
		}
	}

	return result, nil
}

// finalizeLap promotes the just-closed buffer into a LapRecord and updates
// every derived model (sectors, optimal lap, events, tire, performance,
// strategy). Returns nil if the buffer was too short to be a real lap
// (the degenerate-lap rule).
func (e *Engine) finalizeLap() *LapRecord {
	samples := e.buffer.samples
	if len(samples) < degenerateLapMinSamples {
		log.Printf("engine: discarding degenerate lap with %d samples", len(samples))
		return nil
	}

	e.lapNumber++
	lapNumber := e.lapNumber

	e.sectors.tryCompute(samples)
	partitions := partitionBySector(samples, e.sectors)
	sectorSummaries := make(map[int]SectorSummary, len(partitions))
	var totalTime float64
	for id, points := range partitions {
		if len(points) < 2 {
			// A 1-point partition has no elapsed time between a start and
			// end sample; recording it would hand updateOptimalLap a
			// spurious 0s "best" sector.
			continue
		}
		summary := summarizeSector(points)
		sectorSummaries[id] = summary
		totalTime += summary.Time
	}

	avgSpeed, maxSpeed, minSpeed := speedSummary(samples)

	corners := detectCorners(samples)
	brakeZones := detectBrakeZones(samples)
	accelZones := detectAccelZones(samples)
	overtaking := detectOvertakingZones(samples)

	cornerAnalysis := analyzeCornerPerformance(e.cornerHistory, lapNumber, corners)
	brakeOptimizations := optimizeBrakePoints(e.priorBrakeZones, brakeZones)
	_ = brakeOptimizations // surfaced via GetCornerAnalysis's brake-side companion, not the lap record itself
	e.priorBrakeZones = append(e.priorBrakeZones, brakeZones...)

	tire := tireModel(e.lapHistory, avgSpeed)
	speeds := make([]float64, len(samples))
	for i, p := range samples {
		speeds[i] = p.Speed
	}

	lap := LapRecord{
		LapNumber:       lapNumber,
		TotalTime:       totalTime,
		AvgSpeed:        avgSpeed,
		MaxSpeed:        maxSpeed,
		MinSpeed:        minSpeed,
		Sectors:         sectorSummaries,
		Corners:         corners,
		BrakeZones:      brakeZones,
		AccelZones:      accelZones,
		OvertakingZones: overtaking,
		CornerAnalysis:  cornerAnalysis,
		TireStatus:      tire,
		Timestamp:       time.Now(),
	}

	lap.Performance = performanceScore(e.lapHistory, lap.TotalTime, e.performanceHistory, speeds)
	e.lapHistory = append(e.lapHistory, lap)

	e.tireHistory = append(e.tireHistory, tire)
	e.performanceHistory = append(e.performanceHistory, lap.Performance)

	updateOptimalLap(e.optimalLap, lapNumber, sectorSummaries)

	if strat, ok := generateStrategy(lapNumber, e.cfg.RaceTotalLaps, e.lapHistory, e.tireHistory, e.performanceHistory).Get(); ok {
		e.latestStrategy = &strat
	}

	if len(e.lapHistory) > lapHistoryRetained {
		e.lapHistory = e.lapHistory[len(e.lapHistory)-lapHistoryRetained:]
	}

	log.Printf("engine: lap %d completed in %.3fs (%d samples)", lapNumber, totalTime, len(samples))
	return &e.lapHistory[len(e.lapHistory)-1]
}

func (e *Engine) latestStrategyLocked() (StrategyRecord, bool) {
	if e.latestStrategy == nil {
		return StrategyRecord{}, false
	}
	return *e.latestStrategy, true
}

// GetDashboard composes the read-only dashboard view.
func (e *Engine) GetDashboard() DashboardView {
	e.mu.RLock()
	defer e.mu.RUnlock()

	view := DashboardView{
		OptimalLap:           copyOptimalLap(e.optimalLap),
		LapHistory:           append([]LapRecord(nil), e.lapHistory...),
		RacingLine:           racingLine(e.optimalLap),
		ImprovementZones:     e.improvementZonesLocked(),
		ImprovementPotential: improvementPotential(e.lapHistory, e.optimalLap),
		OvertakingZones:      e.latestOvertakingZonesLocked(),
	}
	view.CurrentSector, _ = currentSectorAndProgress(e.buffer.samples, e.sectors)

	if len(e.lapHistory) > 0 {
		view.LatestLap = Present(e.lapHistory[len(e.lapHistory)-1])
	} else {
		view.LatestLap = Absent[LapRecord](StatusNoData)
	}
	if len(e.tireHistory) > 0 {
		view.TireStatus = Present(e.tireHistory[len(e.tireHistory)-1])
	} else {
		view.TireStatus = Absent[TireStatus](StatusNoData)
	}
	if len(e.performanceHistory) > 0 {
		view.Performance = Present(e.performanceHistory[len(e.performanceHistory)-1])
	} else {
		view.Performance = Absent[PerformanceSnapshot](StatusNoData)
	}
	if e.latestStrategy != nil {
		view.RaceStrategy = Present(*e.latestStrategy)
	} else {
		view.RaceStrategy = Absent[StrategyRecord](StatusInsufficientData)
	}
	view.SessionStats = e.sessionStatsLocked()

	return view
}

// GetOptimalLap returns the best-ever composite lap and its total time.
func (e *Engine) GetOptimalLap() (map[int]OptimalSector, Maybe[float64]) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.optimalLap) == 0 {
		return nil, Absent[float64](StatusNoData)
	}
	return copyOptimalLap(e.optimalLap), Present(optimalLapTime(e.optimalLap))
}

// GetRacingLine returns the composed racing line across every optimal sector.
func (e *Engine) GetRacingLine() []telemetry.Sample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return racingLine(e.optimalLap)
}

// GetImprovementZones reports per-sector time loss against the optimal lap.
func (e *Engine) GetImprovementZones() []ImprovementZone {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.improvementZonesLocked()
}

func (e *Engine) improvementZonesLocked() []ImprovementZone {
	if len(e.lapHistory) == 0 || len(e.optimalLap) == 0 {
		return nil
	}
	latest := e.lapHistory[len(e.lapHistory)-1]

	var zones []ImprovementZone
	for id, optimal := range e.optimalLap {
		current, ok := latest.Sectors[id]
		if !ok {
			continue
		}
		loss := current.Time - optimal.Time
		if loss <= 0 {
			continue
		}
		var pct float64
		if optimal.Time > 0 {
			pct = loss / optimal.Time * 100
		}
		zones = append(zones, ImprovementZone{
			SectorID:        id,
			TimeLoss:        loss,
			PercentageLoss:  pct,
			OptimalAvgSpeed: optimal.AvgSpeed,
			CurrentAvgSpeed: current.AvgSpeed,
			SpeedDeficit:    optimal.AvgSpeed - current.AvgSpeed,
		})
	}
	return zones
}

func (e *Engine) latestOvertakingZonesLocked() []OvertakingZone {
	if len(e.lapHistory) == 0 {
		return nil
	}
	return e.lapHistory[len(e.lapHistory)-1].OvertakingZones
}

// GetLapHistory returns up to the last 15 completed laps, oldest first.
func (e *Engine) GetLapHistory() []LapRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]LapRecord(nil), e.lapHistory...)
}

// GetTireStatus returns the most recent tire model snapshot.
func (e *Engine) GetTireStatus() Maybe[TireStatus] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.tireHistory) == 0 {
		return Absent[TireStatus](StatusNoData)
	}
	return Present(e.tireHistory[len(e.tireHistory)-1])
}

// GetPerformance returns the most recent performance snapshot.
func (e *Engine) GetPerformance() Maybe[PerformanceSnapshot] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.performanceHistory) == 0 {
		return Absent[PerformanceSnapshot](StatusNoData)
	}
	return Present(e.performanceHistory[len(e.performanceHistory)-1])
}

// GetCornerAnalysis returns the most recently completed lap's corner
// improvement opportunities and brake-point optimizations together.
func (e *Engine) GetCornerAnalysis() ([]CornerImprovement, []BrakeOptimization) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.lapHistory) == 0 {
		return nil, nil
	}
	latest := e.lapHistory[len(e.lapHistory)-1]
	priorCount := len(e.priorBrakeZones) - len(latest.BrakeZones)
	if priorCount < 0 {
		priorCount = 0
	}
	brakeOpt := optimizeBrakePoints(e.priorBrakeZones[:priorCount], latest.BrakeZones)
	return latest.CornerAnalysis, brakeOpt
}

// GetOvertakingZones returns the most recently completed lap's overtaking
// opportunities.
func (e *Engine) GetOvertakingZones() []OvertakingZone {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latestOvertakingZonesLocked()
}

// GetSessionStats summarizes the session's completed laps.
func (e *Engine) GetSessionStats() Maybe[SessionStats] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessionStatsLocked()
}

func (e *Engine) sessionStatsLocked() Maybe[SessionStats] {
	if len(e.lapHistory) == 0 {
		return Absent[SessionStats](StatusNoData)
	}

	best := e.lapHistory[0]
	var sumTime float64
	lapTimes := make([]float64, len(e.lapHistory))
	for i, lap := range e.lapHistory {
		lapTimes[i] = lap.TotalTime
		sumTime += lap.TotalTime
		if lap.TotalTime < best.TotalTime {
			best = lap
		}
	}
	avg := sumTime / float64(len(e.lapHistory))

	stats := SessionStats{
		TotalLaps:      len(e.lapHistory),
		BestLap:        best.LapNumber,
		BestLapTime:    best.TotalTime,
		BestLapNumber:  best.LapNumber,
		AverageLapTime: avg,
		Consistency:    consistencyScore(lapTimes),
	}

	if len(e.lapHistory) >= 5 {
		window := e.lapHistory[len(e.lapHistory)-5:]
		var sum float64
		for _, lap := range window {
			sum += lap.TotalTime
		}
		stats.Last5Avg = Present(sum / float64(len(window)))
	} else {
		stats.Last5Avg = Absent[float64](StatusInsufficientData)
	}

	return Present(stats)
}

func copyOptimalLap(src map[int]OptimalSector) map[int]OptimalSector {
	dst := make(map[int]OptimalSector, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
