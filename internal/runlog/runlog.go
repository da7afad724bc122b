// Package runlog persists optimization-run telemetry to a side SQLite
// database: runs, rounds, tool events and benchmark latencies. The run log
// is never the database under optimization and is out of the model's reach.
// A nil *Log is valid and records nothing.
package runlog

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	started_at   INTEGER NOT NULL,
	finished_at  INTEGER,
	initial_sql  TEXT NOT NULL,
	best_sql     TEXT,
	baseline_ms  REAL,
	best_ms      REAL
);

CREATE TABLE IF NOT EXISTS rounds (
	run_id        TEXT NOT NULL REFERENCES runs(run_id),
	round         INTEGER NOT NULL,
	candidate_sql TEXT,
	median_ms     REAL,
	improve_pct   REAL,
	adopted       INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	PRIMARY KEY (run_id, round)
);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(run_id),
	timestamp   INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS latencies (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    TEXT NOT NULL REFERENCES runs(run_id),
	timestamp INTEGER NOT NULL,
	label     TEXT NOT NULL,
	median_ms REAL NOT NULL,
	samples   INTEGER NOT NULL
);
`

// Log is a handle on the run-log database
type Log struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the run log at path
func Open(path string) (*Log, error) {
	connString := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run log schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the underlying database
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

// StartRun registers a new run and returns its ID
func (l *Log) StartRun(initialSQL string) string {
	runID := uuid.New().String()
	if l == nil {
		return runID
	}

	_, err := l.db.Exec(`
		INSERT INTO runs (run_id, started_at, initial_sql)
		VALUES (?, ?, ?)
	`, runID, time.Now().Unix(), initialSQL)
	if err != nil {
		slog.Warn("failed to record run start", "error", err)
	}
	return runID
}

// RecordEvent appends a telemetry event for the run
func (l *Log) RecordEvent(runID, kind, description string) {
	if l == nil {
		return
	}

	_, err := l.db.Exec(`
		INSERT INTO events (run_id, timestamp, kind, description)
		VALUES (?, ?, ?, ?)
	`, runID, time.Now().Unix(), kind, description)
	if err != nil {
		slog.Warn("failed to record event", "kind", kind, "error", err)
	}
}

// RecordLatency stores one benchmark median under a label (baseline,
// candidate, ...)
func (l *Log) RecordLatency(runID, label string, medianMS float64, samples int) {
	if l == nil {
		return
	}

	_, err := l.db.Exec(`
		INSERT INTO latencies (run_id, timestamp, label, median_ms, samples)
		VALUES (?, ?, ?, ?, ?)
	`, runID, time.Now().Unix(), label, medianMS, samples)
	if err != nil {
		slog.Warn("failed to record latency", "label", label, "error", err)
	}
}

// RecordRound stores the outcome of one optimization round
func (l *Log) RecordRound(runID string, round int, candidateSQL string, medianMS, improvePct float64, adopted bool) {
	if l == nil {
		return
	}

	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO rounds
		(run_id, round, candidate_sql, median_ms, improve_pct, adopted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, round, candidateSQL, medianMS, improvePct, adopted, time.Now().Unix())
	if err != nil {
		slog.Warn("failed to record round", "round", round, "error", err)
	}
}

// FinishRun finalizes the run record with the winning SQL and timings
func (l *Log) FinishRun(runID, bestSQL string, baselineMS, bestMS float64) {
	if l == nil {
		return
	}

	_, err := l.db.Exec(`
		UPDATE runs
		SET finished_at = ?, best_sql = ?, baseline_ms = ?, best_ms = ?
		WHERE run_id = ?
	`, time.Now().Unix(), bestSQL, baselineMS, bestMS, runID)
	if err != nil {
		slog.Warn("failed to finalize run", "error", err)
	}
}
