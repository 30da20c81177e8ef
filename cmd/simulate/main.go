// Command simulate drives the engine with a synthetic lap stream and
// prints the resulting dashboard, demonstrating the ingest → analysis →
// session-persistence round trip without a real GPS device attached.
package main

import (
	"fmt"
	"log"
	"math"
	"os"

	"racetelemetry/engine"
	"racetelemetry/session/jsonstore"
	"racetelemetry/telemetry"
)

const (
	circuitRadiusMeters = 300.0
	samplesPerLap       = 200
	lapsToSimulate      = 6
)

func main() {
	fmt.Println("=== Telemetry Engine Simulation ===")

	cfg, err := engine.LoadConfig(engine.Config{RaceTotalLaps: lapsToSimulate})
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	eng, err := engine.NewEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	for lap := 1; lap <= lapsToSimulate; lap++ {
		fmt.Printf("\n--- Simulating lap %d ---\n", lap)
		for _, sample := range simulateLap(lap) {
			result, err := eng.ProcessTelemetryPoint(sample)
			if err != nil {
				continue // malformed sample, engine already logged it
			}
			if result.LapCompleted && result.LapData != nil {
				fmt.Printf("Lap %d complete: %.2fs (avg %.1f km/h)\n",
					result.LapData.LapNumber, result.LapData.TotalTime, result.LapData.AvgSpeed)
				if result.RaceStrategy != nil {
					for _, advisory := range result.RaceStrategy.Recommendations {
						fmt.Printf("  [%s] %s\n", advisory.Priority, advisory.Message)
					}
				}
			}
		}
	}

	dashboard := eng.GetDashboard()
	fmt.Printf("\n=== Dashboard ===\n")
	fmt.Printf("Laps recorded: %d\n", len(dashboard.LapHistory))
	if optimal, optimalTime := eng.GetOptimalLap(); len(optimal) > 0 {
		if t, present := optimalTime.Get(); present {
			fmt.Printf("Optimal lap time: %.2fs across %d sectors\n", t, len(optimal))
		}
	}
	fmt.Printf("Improvement potential: %.2fs\n", dashboard.ImprovementPotential)
	if stats, present := dashboard.SessionStats.Get(); present {
		fmt.Printf("Best lap: #%d (%.2fs), average %.2fs, consistency %.0f%%\n",
			stats.BestLapNumber, stats.BestLapTime, stats.AverageLapTime, stats.Consistency)
	}

	store, err := jsonstore.New(cfg.SessionDir)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	meta, err := eng.SaveSession(store)
	if err != nil {
		log.Fatalf("Failed to save session: %v", err)
	}
	fmt.Printf("\nSession saved as %s (%d laps, %v)\n", meta.ID, meta.TotalLaps, meta.Duration)

	reloaded, err := engine.NewEngine(engine.Config{})
	if err != nil {
		log.Fatalf("Failed to create engine for reload: %v", err)
	}
	if err := reloaded.LoadSession(store, meta.ID); err != nil {
		log.Fatalf("Failed to reload session: %v", err)
	}
	fmt.Printf("Reloaded session has %d laps on record\n", len(reloaded.GetLapHistory()))

	os.Exit(0)
}

// simulateLap generates a closed circular loop of GPS+speed samples, one
// lap's worth, with a single slow corner so the event detector has
// something to find.
func simulateLap(lapNumber int) []telemetry.Sample {
	samples := make([]telemetry.Sample, 0, samplesPerLap)
	centerLat, centerLon := 51.5, -0.1
	baseSpeed := 140.0 - float64(lapNumber) // gentle speed decay to exercise the tire model
	t := float64(lapNumber-1) * samplesPerLap

	for i := 0; i < samplesPerLap; i++ {
		angle := 2 * math.Pi * float64(i) / samplesPerLap
		lat := centerLat + (circuitRadiusMeters/111000.0)*math.Sin(angle)
		lon := centerLon + (circuitRadiusMeters/78000.0)*math.Cos(angle)

		speed := baseSpeed
		if i > samplesPerLap/2-10 && i < samplesPerLap/2+10 {
			// one slow corner per lap, centered on the halfway point
			dist := math.Abs(float64(i - samplesPerLap/2))
			speed = 30 + dist*3
		}

		samples = append(samples, telemetry.Sample{
			Timestamp: t + float64(i)*0.5,
			Lat:       lat,
			Lon:       lon,
			Speed:     speed,
		})
	}
	return samples
}
