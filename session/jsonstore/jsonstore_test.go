package jsonstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"racetelemetry/session"
)

func TestSaveAndLoadRoundTrips(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	snap := session.Snapshot{
		Metadata: session.Metadata{
			ID:        "abc-123",
			SavedAt:   time.Unix(1700000000, 0).UTC(),
			TotalLaps: 1,
		},
		LapNumber:  1,
		NumSectors: 3,
		LapHistory: []session.LapRecord{
			{LapNumber: 1, TotalTime: 55.5, AvgSpeed: 100},
		},
	}

	if err := store.Save(snap.Metadata.ID, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(snap.Metadata.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.LapHistory) != 1 || got.LapHistory[0].TotalTime != 55.5 {
		t.Errorf("unexpected round-tripped snapshot: %+v", got)
	}
}

func TestLoadNonExistentIDReturnsError(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := store.Load("missing"); err == nil {
		t.Fatal("expected an error for a missing session file")
	}
}

func TestListReturnsOnlyJSONFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	snap := session.Snapshot{Metadata: session.Metadata{ID: "s1"}}
	if err := store.Save("s1", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save("s2", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a session"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 session IDs, got %d: %v", len(ids), ids)
	}
}

func TestNewCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sessions")
	if _, err := New(dir); err != nil {
		t.Fatalf("New: %v", err)
	}
}
