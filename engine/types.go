// Package engine implements the streaming lap-processing pipeline: lap
// boundary detection, sector decomposition, event extraction, tire and
// performance modelling, race strategy advisory, and the live lap-time
// predictor. The Engine is the single state owner described by the
// concurrency model: every mutating and read-only method takes the same
// RWMutex, so no sample is ever processed concurrently with a query.
package engine

import (
	"time"

	"racetelemetry/telemetry"
)

// Status tags the reason a query result is absent, used by the Maybe
// wrapper below instead of returning a dict-shaped {"status": ...} record.
type Status string

const (
	StatusNoData            Status = "NO_DATA"
	StatusInsufficientData  Status = "INSUFFICIENT_DATA"
)

// Maybe is a tagged Present(value) | Absent(reason) variant. Every query
// surface method that might lack sufficient history returns one of these;
// callers flatten it to a plain value only at the external boundary
// (an HTTP handler, a CLI printer, and so on), never inside the core.
type Maybe[T any] struct {
	ok     bool
	value  T
	Reason Status
}

// Present wraps a value as a successful result.
func Present[T any](v T) Maybe[T] { return Maybe[T]{ok: true, value: v} }

// Absent builds a result carrying the reason no value is available.
func Absent[T any](reason Status) Maybe[T] { return Maybe[T]{Reason: reason} }

// Get returns the wrapped value and whether it was present.
func (m Maybe[T]) Get() (T, bool) { return m.value, m.ok }

// CornerType classifies a detected corner by severity and apex speed.
type CornerType string

const (
	CornerHairpin CornerType = "HAIRPIN"
	CornerSlow    CornerType = "SLOW"
	CornerMedium  CornerType = "MEDIUM"
	CornerFast    CornerType = "FAST"
)

// BrakeIntensity classifies a braking event by deceleration magnitude.
type BrakeIntensity string

const (
	BrakeHard     BrakeIntensity = "HARD"
	BrakeModerate BrakeIntensity = "MODERATE"
)

// AccelZoneType classifies an acceleration event by the speed it started from.
type AccelZoneType string

const (
	AccelCornerExit AccelZoneType = "CORNER_EXIT"
	AccelStraight   AccelZoneType = "STRAIGHT"
)

// OvertakingType classifies an overtaking opportunity.
type OvertakingType string

const (
	OvertakingHighSpeedStraight OvertakingType = "HIGH_SPEED_STRAIGHT"
	OvertakingCornerExit        OvertakingType = "CORNER_EXIT"
)

// TireCondition bands the tire model's grip estimate.
type TireCondition string

const (
	TireNew       TireCondition = "NEW_TIRES"
	TireExcellent TireCondition = "EXCELLENT"
	TireGood      TireCondition = "GOOD"
	TireFair      TireCondition = "FAIR"
	TireWorn      TireCondition = "WORN"
	TireCritical  TireCondition = "CRITICAL"
)

// Rating bands the performance scorer's composite score.
type Rating string

const (
	RatingSPlus Rating = "S+"
	RatingS     Rating = "S"
	RatingAPlus Rating = "A+"
	RatingA     Rating = "A"
	RatingBPlus Rating = "B+"
	RatingB     Rating = "B"
	RatingC     Rating = "C"
	RatingD     Rating = "D"
)

// Trend describes whether the driver is improving, stable, or declining
// across the most recent performance snapshots.
type Trend string

const (
	TrendImproving Trend = "IMPROVING"
	TrendStable    Trend = "STABLE"
	TrendDeclining Trend = "DECLINING"
)

// RacePhase discretizes race progress into coaching-relevant bands.
type RacePhase string

const (
	PhaseOpening RacePhase = "OPENING"
	PhaseEarly   RacePhase = "EARLY"
	PhaseMiddle  RacePhase = "MIDDLE"
	PhaseClosing RacePhase = "CLOSING"
)

// StrategyMode is the race-progress-driven advisory mode.
type StrategyMode string

const (
	ModeSettleIn     StrategyMode = "SETTLE_IN"
	ModeMaintainPace StrategyMode = "MAINTAIN_PACE"
	ModeAttack       StrategyMode = "ATTACK_MODE"
)

// Priority buckets a strategy advisory record.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// SectorSummary aggregates one sector's slice of a completed lap.
type SectorSummary struct {
	Time     float64
	AvgSpeed float64
	MaxSpeed float64
	MinSpeed float64
	Points   []telemetry.Sample
}

// CornerEvent is a detected corner: entry/apex/exit speed and severity.
type CornerEvent struct {
	Index             int
	Lat, Lon          float64
	EntrySpeed        float64
	ApexSpeed         float64
	ExitSpeed         float64
	SpeedLoss         float64
	Severity          float64 // 0-100
	ExitAcceleration  float64
	Type              CornerType
}

// BrakeEvent is a detected braking zone.
type BrakeEvent struct {
	Index             int
	Lat, Lon          float64
	SpeedBefore       float64
	SpeedAfter        float64
	DecelerationRate  float64
	Intensity         BrakeIntensity
}

// AccelEvent is a detected acceleration zone.
type AccelEvent struct {
	Index            int
	Lat, Lon         float64
	SpeedBefore      float64
	SpeedAfter       float64
	AccelerationRate float64
	ZoneType         AccelZoneType
}

// OvertakingZone is a location flagged as favourable for a pass.
type OvertakingZone struct {
	Index          int
	Lat, Lon       float64
	Type           OvertakingType
	AvgSpeed       float64 // set when Type == HIGH_SPEED_STRAIGHT
	ExitSpeed      float64 // set when Type == CORNER_EXIT
	Confidence     float64 // 0-1
	Recommendation string
}

// CornerImprovement is an improvement-opportunity record for the k-th
// corner of a lap, correlated against the best-ever score for that ordinal.
type CornerImprovement struct {
	CornerIndex         int // ordinal (0-based) within the lap
	ImprovementPotential float64
	CurrentExitSpeed    float64
	BestExitSpeed       float64
	Recommendation      string
	Lat, Lon            float64
}

// BrakeOptimization compares a current-lap brake zone to the closest
// historical brake zone by location.
type BrakeOptimization struct {
	Lat, Lon           float64
	CurrentEntrySpeed  float64
	OptimalEntrySpeed  float64
	BrakeEarlier       bool
	TimeGainPotential  float64
	Recommendation     string
}

// TireStatus is a point-in-time snapshot of the tire model.
type TireStatus struct {
	Lap               int
	GripLevel         float64
	DegradationRate   float64
	SpeedLossPercent  float64
	LapsRemaining     int // sentinel 999 means "no estimate"
	PitRecommended    bool
	ConditionStatus   TireCondition
}

// PerformanceSnapshot is a point-in-time snapshot of the performance scorer.
type PerformanceSnapshot struct {
	Lap               int
	OverallScore      float64
	SpeedScore        float64
	ConsistencyScore  float64
	SmoothnessScore   float64
	Rating            Rating
	Trend             Trend
}

// Advisory is one strategy recommendation record.
type Advisory struct {
	Category      string
	Icon          string
	Message       string
	Action        string
	ExpectedGain  string
	Priority      Priority
}

// StrategyRecord is the race-strategy advisor's output for one completed lap.
type StrategyRecord struct {
	Lap             int
	LapsRemaining   int
	RaceProgress    float64 // 0-100
	RacePhase       RacePhase
	StrategyMode    StrategyMode
	Recommendations []Advisory
}

// LapRecord is the complete analytical product of one finalized lap.
type LapRecord struct {
	LapNumber        int
	TotalTime        float64
	AvgSpeed         float64
	MaxSpeed         float64
	MinSpeed         float64
	Sectors          map[int]SectorSummary
	Corners          []CornerEvent
	BrakeZones       []BrakeEvent
	AccelZones       []AccelEvent
	OvertakingZones  []OvertakingZone
	CornerAnalysis   []CornerImprovement
	TireStatus       TireStatus
	Performance      PerformanceSnapshot
	Timestamp        time.Time
}

// OptimalSector is the fastest observed instance of one sector across history.
type OptimalSector struct {
	Time      float64
	Points    []telemetry.Sample
	LapNumber int
	AvgSpeed  float64
	MaxSpeed  float64
}

// ImprovementZone reports how much time a sector is losing against the
// optimal-lap composition.
type ImprovementZone struct {
	SectorID         int
	TimeLoss         float64
	PercentageLoss   float64
	OptimalAvgSpeed  float64
	CurrentAvgSpeed  float64
	SpeedDeficit     float64
}

// SessionStats summarizes the completed laps of a session.
type SessionStats struct {
	TotalLaps      int
	BestLap        int // lap number
	BestLapTime    float64
	BestLapNumber  int
	AverageLapTime float64
	Last5Avg       Maybe[float64]
	Consistency    float64 // 0-100
}

// SessionMetadata is an engine-side shape for save-time bookkeeping.
// SaveSession returns session.Metadata; no code in this package builds a
// SessionMetadata.
type SessionMetadata struct {
	ID            string
	SavedAt       time.Time
	Duration      time.Duration
	TotalLaps     int
	BestLapTime   Maybe[float64]
	BestLapNumber Maybe[int]
}

// DashboardView is the read-only composite the query surface's
// get_dashboard operation returns.
type DashboardView struct {
	CurrentSector        int
	OptimalLap           map[int]OptimalSector
	LapHistory           []LapRecord // last 15
	RacingLine           []telemetry.Sample
	ImprovementZones     []ImprovementZone
	ImprovementPotential float64
	LatestLap            Maybe[LapRecord]
	TireStatus           Maybe[TireStatus]
	Performance          Maybe[PerformanceSnapshot]
	RaceStrategy         Maybe[StrategyRecord]
	OvertakingZones      []OvertakingZone
	SessionStats         Maybe[SessionStats]
}

// SampleResult is the per-sample ingest response.
type SampleResult struct {
	LapCompleted    bool
	Delta           float64
	CurrentSector   int
	Prediction      Maybe[LapTimePrediction]
	OptimalLapTime  Maybe[float64]
	LapData         *LapRecord      // set iff LapCompleted
	RaceStrategy    *StrategyRecord // set when LapCompleted and a strategy exists (none after lap 1)
}

// LapTimePrediction is the live predictor's weighted-similarity forecast.
type LapTimePrediction struct {
	PredictedTotalTime float64
	Confidence         float64
	OptimalTime        Maybe[float64]
}
