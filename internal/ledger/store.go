// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SQLITE STORE
// =============================================================================

// schema creates the interactions table.
const schema = `
CREATE TABLE IF NOT EXISTS interactions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp      TEXT    NOT NULL,
    session_id     TEXT    NOT NULL,
    task_type      TEXT    NOT NULL,
    backend        TEXT    NOT NULL,
    success        INTEGER NOT NULL,
    score          REAL    NOT NULL,
    cost           REAL    NOT NULL,
    execution_ms   INTEGER NOT NULL,
    tokens_used    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id);
CREATE INDEX IF NOT EXISTS idx_interactions_backend ON interactions(backend);
`

// Store persists entries to SQLite so history survives restarts.
// Implements Sink.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite history database.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Append inserts one entry.
func (s *Store) Append(e Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO interactions
			(timestamp, session_id, task_type, backend, success, score, cost, execution_ms, tokens_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.SessionID,
		e.TaskType,
		e.Backend,
		boolToInt(e.Success),
		e.Score,
		e.Cost,
		e.ExecutionTime.Milliseconds(),
		e.TokensUsed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, session_id, task_type, backend, success, score, cost, execution_ms, tokens_used
		FROM interactions
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			ts      string
			success int
			ms      int64
		)
		if err := rows.Scan(&ts, &e.SessionID, &e.TaskType, &e.Backend,
			&success, &e.Score, &e.Cost, &ms, &e.TokensUsed); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = t
		}
		e.Success = success != 0
		e.ExecutionTime = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
