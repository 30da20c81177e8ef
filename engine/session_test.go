package engine

import (
	"os"
	"testing"

	"racetelemetry/session/jsonstore"
)

func TestSaveAndLoadSessionRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := jsonstore.New(dir)
	if err != nil {
		t.Fatalf("jsonstore.New: %v", err)
	}

	e, err := NewEngine(Config{RaceTotalLaps: 5})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	feedLaps(t, e, 4)

	wantHistory := e.GetLapHistory()
	wantOptimal, wantOptimalTime := e.GetOptimalLap()

	meta, err := e.SaveSession(store)
	if err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if meta.TotalLaps != len(wantHistory) {
		t.Errorf("metadata TotalLaps = %d, want %d", meta.TotalLaps, len(wantHistory))
	}

	reloaded, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := reloaded.LoadSession(store, meta.ID); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}

	gotHistory := reloaded.GetLapHistory()
	if len(gotHistory) != len(wantHistory) {
		t.Fatalf("reloaded history has %d laps, want %d", len(gotHistory), len(wantHistory))
	}
	for i := range wantHistory {
		if gotHistory[i].LapNumber != wantHistory[i].LapNumber {
			t.Errorf("lap %d: LapNumber = %d, want %d", i, gotHistory[i].LapNumber, wantHistory[i].LapNumber)
		}
		if gotHistory[i].TotalTime != wantHistory[i].TotalTime {
			t.Errorf("lap %d: TotalTime = %f, want %f", i, gotHistory[i].TotalTime, wantHistory[i].TotalTime)
		}
	}

	gotOptimal, gotOptimalTime := reloaded.GetOptimalLap()
	if len(gotOptimal) != len(wantOptimal) {
		t.Errorf("reloaded optimal lap has %d sectors, want %d", len(gotOptimal), len(wantOptimal))
	}
	gotTotal, gotOK := gotOptimalTime.Get()
	wantTotal, wantOK := wantOptimalTime.Get()
	if gotOK != wantOK || gotTotal != wantTotal {
		t.Errorf("reloaded optimal lap time = (%f,%v), want (%f,%v)", gotTotal, gotOK, wantTotal, wantOK)
	}

	if !e.sectors.isComputed() {
		t.Fatal("expected the original session to have fixed sector boundaries by now")
	}
	if !reloaded.sectors.isComputed() {
		t.Fatal("expected sector boundaries to survive a save/load round trip")
	}
	if len(reloaded.sectors.boundaries) != len(e.sectors.boundaries) {
		t.Fatalf("reloaded sector boundaries = %v, want %v", reloaded.sectors.boundaries, e.sectors.boundaries)
	}
	for i := range e.sectors.boundaries {
		if reloaded.sectors.boundaries[i] != e.sectors.boundaries[i] {
			t.Errorf("reloaded sector boundary %d = %d, want %d", i, reloaded.sectors.boundaries[i], e.sectors.boundaries[i])
		}
	}
}

func TestLoadSessionLeavesEngineUntouchedOnMissingID(t *testing.T) {
	dir := t.TempDir()
	store, err := jsonstore.New(dir)
	if err != nil {
		t.Fatalf("jsonstore.New: %v", err)
	}

	e, err := NewEngine(Config{RaceTotalLaps: 5})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	feedLaps(t, e, 2)
	before := len(e.GetLapHistory())

	if err := e.LoadSession(store, "does-not-exist"); err == nil {
		t.Fatal("expected an error loading a missing session ID")
	}
	if after := len(e.GetLapHistory()); after != before {
		t.Errorf("engine state changed after a failed load: %d laps before, %d after", before, after)
	}
}

func TestJSONStoreListReportsSavedSessions(t *testing.T) {
	dir := t.TempDir()
	store, err := jsonstore.New(dir)
	if err != nil {
		t.Fatalf("jsonstore.New: %v", err)
	}

	e, err := NewEngine(Config{RaceTotalLaps: 5})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	feedLaps(t, e, 2)

	meta, err := e.SaveSession(store)
	if err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == meta.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s in session listing %v", meta.ID, ids)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected session directory to exist: %v", err)
	}
}
