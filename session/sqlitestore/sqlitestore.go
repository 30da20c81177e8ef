// Package sqlitestore is an alternative session.Store backend: snapshots
// are stored as JSON blobs in a SQLite table, with the metadata kept in
// separate columns for listing (only id is indexed, as the primary key),
// using the pure-Go modernc.org/sqlite driver.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"racetelemetry/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	saved_at        DATETIME NOT NULL,
	duration_ns     INTEGER NOT NULL,
	total_laps      INTEGER NOT NULL,
	best_lap_time   REAL,
	best_lap_number INTEGER,
	snapshot        TEXT NOT NULL
);
`

// Store persists session.Snapshot rows to a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and ensures
// the sessions table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts snap under id.
func (s *Store) Save(id string, snap session.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sqlitestore: marshal snapshot: %w", err)
	}

	var bestLapTime sql.NullFloat64
	var bestLapNumber sql.NullInt64
	if snap.Metadata.HasBestLap {
		bestLapTime = sql.NullFloat64{Float64: snap.Metadata.BestLapTime, Valid: true}
		bestLapNumber = sql.NullInt64{Int64: int64(snap.Metadata.BestLapNumber), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, saved_at, duration_ns, total_laps, best_lap_time, best_lap_number, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			saved_at = excluded.saved_at,
			duration_ns = excluded.duration_ns,
			total_laps = excluded.total_laps,
			best_lap_time = excluded.best_lap_time,
			best_lap_number = excluded.best_lap_number,
			snapshot = excluded.snapshot
	`, id, snap.Metadata.SavedAt, int64(snap.Metadata.Duration), snap.Metadata.TotalLaps, bestLapTime, bestLapNumber, string(body))
	if err != nil {
		return fmt.Errorf("sqlitestore: save snapshot %s: %w", id, err)
	}
	return nil
}

// Load reads the snapshot stored under id.
func (s *Store) Load(id string) (session.Snapshot, error) {
	var body string
	err := s.db.QueryRow(`SELECT snapshot FROM sessions WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return session.Snapshot{}, fmt.Errorf("sqlitestore: session %s not found", id)
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("sqlitestore: load snapshot %s: %w", id, err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("sqlitestore: unmarshal snapshot %s: %w", id, err)
	}
	return snap, nil
}

// SessionSummary is one row of the lightweight listing ListSessions returns,
// without paying for a full snapshot unmarshal.
type SessionSummary struct {
	ID            string
	SavedAt       time.Time
	TotalLaps     int
	BestLapTime   sql.NullFloat64
	BestLapNumber sql.NullInt64
}

// ListSessions returns every saved session's summary, most recent first.
func (s *Store) ListSessions() ([]SessionSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, saved_at, total_laps, best_lap_time, best_lap_number
		FROM sessions ORDER BY saved_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.SavedAt, &sum.TotalLaps, &sum.BestLapTime, &sum.BestLapNumber); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan session row: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
