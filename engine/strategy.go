package engine

import "fmt"

const (
	paceWindow           = 5
	racePhaseOpeningMax  = 0.25
	racePhaseEarlyMax    = 0.5
	racePhaseMiddleMax   = 0.75
	strategySettleInMax  = 0.3
	strategyMaintainMax  = 0.7
)

// generateStrategy runs the deterministic rule engine over tire, pace,
// performance, and race-phase state. It requires at least one completed
// lap and lapNumber >= 2; otherwise there is no strategy to advise on yet.
func generateStrategy(
	lapNumber, totalLaps int,
	lapHistory []LapRecord,
	tireHistory []TireStatus,
	performanceHistory []PerformanceSnapshot,
) Maybe[StrategyRecord] {
	if len(lapHistory) == 0 || lapNumber < 2 {
		return Absent[StrategyRecord](StatusInsufficientData)
	}
	if totalLaps < 1 {
		totalLaps = 1
	}

	var high, medium, low []Advisory

	if len(tireHistory) > 0 {
		tire := tireHistory[len(tireHistory)-1]
		switch {
		case tire.PitRecommended:
			action := "PLAN_PIT_STOP"
			if tire.GripLevel < 65 {
				action = "BOX_THIS_LAP"
			}
			high = append(high, Advisory{
				Category:     "TIRES",
				Icon:         "red",
				Message:      fmt.Sprintf("Tire grip at %.0f%% - PIT WITHIN %d LAPS", tire.GripLevel, tire.LapsRemaining),
				Action:       action,
				ExpectedGain: "+1.2s/lap with fresh tires",
			})
		case tire.GripLevel < 85:
			medium = append(medium, Advisory{
				Category:     "TIRES",
				Icon:         "yellow",
				Message:      fmt.Sprintf("Tire degradation detected (%.1f%% pace loss)", tire.SpeedLossPercent),
				Action:       "MONITOR_CLOSELY",
				ExpectedGain: "Consider pit window in 3-5 laps",
			})
		}
	}

	if len(lapHistory) >= paceWindow {
		window := lapHistory[len(lapHistory)-paceWindow:]
		paceTrend := window[len(window)-1].TotalTime - window[0].TotalTime
		switch {
		case paceTrend > 1.0:
			high = append(high, Advisory{
				Category:     "PACE",
				Icon:         "warning",
				Message:      fmt.Sprintf("Pace dropping by %.2fs over last 5 laps", paceTrend),
				Action:       "CHECK_TIRE_PRESSURE",
				ExpectedGain: "Investigate mechanical issues",
			})
		case paceTrend < -0.3:
			low = append(low, Advisory{
				Category:     "PACE",
				Icon:         "good",
				Message:      fmt.Sprintf("Pace improving by %.2fs - Excellent!", -paceTrend),
				Action:       "MAINTAIN_RHYTHM",
				ExpectedGain: "Keep building confidence",
			})
		}
	}

	if len(performanceHistory) > 0 {
		perf := performanceHistory[len(performanceHistory)-1]
		switch {
		case perf.OverallScore < 70:
			medium = append(medium, Advisory{
				Category:     "DRIVING",
				Icon:         "tip",
				Message:      fmt.Sprintf("Performance score: %s - Focus on consistency", perf.Rating),
				Action:       "SMOOTH_INPUTS",
				ExpectedGain: "+0.3s/lap potential",
			})
		case perf.Trend == TrendImproving:
			low = append(low, Advisory{
				Category:     "DRIVING",
				Icon:         "trend-up",
				Message:      fmt.Sprintf("Performance improving - Rating: %s", perf.Rating),
				Action:       "KEEP_PUSHING",
				ExpectedGain: "Momentum building",
			})
		}
	}

	raceProgress := float64(lapNumber) / float64(totalLaps)
	lapsRemaining := totalLaps - lapNumber

	mode := strategyMode(raceProgress)
	if mode == ModeAttack {
		high = append(high, Advisory{
			Category:     "STRATEGY",
			Icon:         "checkered",
			Message:      fmt.Sprintf("Final %d laps - PUSH FOR POSITION", lapsRemaining),
			Action:       "MAXIMUM_ATTACK",
			ExpectedGain: "Race is now",
		})
	}

	switch lapsRemaining {
	case 5:
		high = append(high, Advisory{
			Category:     "RACE_INFO",
			Icon:         "clock",
			Message:      "5 LAPS REMAINING - Final push",
			Action:       "GIVE_IT_EVERYTHING",
			ExpectedGain: "No tire saving needed",
		})
	case 1:
		high = append(high, Advisory{
			Category:     "RACE_INFO",
			Icon:         "checkered",
			Message:      "FINAL LAP - Maximum attack",
			Action:       "QUALIFYING_MODE",
			ExpectedGain: "Last chance for positions",
		})
	}

	for i := range high {
		high[i].Priority = PriorityHigh
	}
	for i := range medium {
		medium[i].Priority = PriorityMedium
	}
	for i := range low {
		low[i].Priority = PriorityLow
	}

	recommendations := append(append(high, medium...), low...)

	return Present(StrategyRecord{
		Lap:             lapNumber,
		LapsRemaining:   lapsRemaining,
		RaceProgress:    raceProgress * 100,
		RacePhase:       racePhase(raceProgress),
		StrategyMode:    mode,
		Recommendations: recommendations,
	})
}

func racePhase(progress float64) RacePhase {
	switch {
	case progress < racePhaseOpeningMax:
		return PhaseOpening
	case progress < racePhaseEarlyMax:
		return PhaseEarly
	case progress < racePhaseMiddleMax:
		return PhaseMiddle
	default:
		return PhaseClosing
	}
}

func strategyMode(progress float64) StrategyMode {
	switch {
	case progress < strategySettleInMax:
		return ModeSettleIn
	case progress < strategyMaintainMax:
		return ModeMaintainPace
	default:
		return ModeAttack
	}
}
