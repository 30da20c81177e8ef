package sqlitestore

import (
	"path/filepath"
	"testing"
	"time"

	"racetelemetry/session"
)

func sampleSnapshot() session.Snapshot {
	return session.Snapshot{
		Metadata: session.Metadata{
			ID:            "test-session",
			SavedAt:       time.Unix(1700000000, 0).UTC(),
			Duration:      90 * time.Second,
			TotalLaps:     2,
			HasBestLap:    true,
			BestLapTime:   61.5,
			BestLapNumber: 2,
		},
		LapNumber:        2,
		NumSectors:       3,
		RaceTotalLaps:    10,
		SectorBoundaries: []int{0, 40, 80, 119},
		OptimalLap: map[int]session.OptimalSector{
			0: {Time: 20.1, LapNumber: 2, AvgSpeed: 90},
		},
		LapHistory: []session.LapRecord{
			{LapNumber: 1, TotalTime: 63.0, AvgSpeed: 88},
			{LapNumber: 2, TotalTime: 61.5, AvgSpeed: 91},
		},
	}
}

func TestSaveAndLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	want := sampleSnapshot()
	if err := store.Save(want.Metadata.ID, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(want.Metadata.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.LapNumber != want.LapNumber {
		t.Errorf("LapNumber = %d, want %d", got.LapNumber, want.LapNumber)
	}
	if len(got.LapHistory) != len(want.LapHistory) {
		t.Fatalf("LapHistory has %d entries, want %d", len(got.LapHistory), len(want.LapHistory))
	}
	if got.LapHistory[1].TotalTime != want.LapHistory[1].TotalTime {
		t.Errorf("lap 2 TotalTime = %f, want %f", got.LapHistory[1].TotalTime, want.LapHistory[1].TotalTime)
	}
}

func TestSaveUpsertsExistingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	snap := sampleSnapshot()
	if err := store.Save(snap.Metadata.ID, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap.LapNumber = 3
	if err := store.Save(snap.Metadata.ID, snap); err != nil {
		t.Fatalf("Save (update): %v", err)
	}

	got, err := store.Load(snap.Metadata.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LapNumber != 3 {
		t.Errorf("LapNumber = %d, want 3 after upsert", got.LapNumber)
	}

	summaries, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("expected 1 session after upsert, got %d", len(summaries))
	}
}

func TestLoadMissingIDReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := store.Load("does-not-exist"); err == nil {
		t.Fatal("expected an error loading an unknown session ID")
	}
}
