// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// =============================================================================
// STATS STORE
// =============================================================================

// Store persists stream records to a local SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS streams (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp      INTEGER NOT NULL,
	session_id     TEXT NOT NULL,
	model          TEXT NOT NULL DEFAULT '',
	knowledge_base TEXT NOT NULL DEFAULT '',
	prompt         TEXT NOT NULL DEFAULT '',
	outcome        TEXT NOT NULL,
	ttft_ms        INTEGER NOT NULL DEFAULT 0,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	tokens         INTEGER NOT NULL DEFAULT 0,
	tokens_per_sec REAL NOT NULL DEFAULT 0,
	attachments    INTEGER NOT NULL DEFAULT 0,
	refs           INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_streams_timestamp ON streams(timestamp);
CREATE INDEX IF NOT EXISTS idx_streams_session ON streams(session_id);
`

// OpenStore opens (or creates) the statistics database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent recording
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize stats schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Insert persists one stream record.
func (s *Store) Insert(rec StreamRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO streams
			(timestamp, session_id, model, knowledge_base, prompt, outcome,
			 ttft_ms, duration_ms, tokens, tokens_per_sec, attachments, refs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.Unix(), rec.SessionID, rec.Model, rec.KnowledgeBase,
		rec.Prompt, rec.Outcome, rec.TTFTMs, rec.DurationMs, rec.Tokens,
		rec.TokensPerS, rec.Attachments, rec.References,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stream record: %w", err)
	}
	return nil
}

// Recent returns the most recent records, newest first.
func (s *Store) Recent(limit int) ([]StreamRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, timestamp, session_id, model, knowledge_base, prompt, outcome,
			ttft_ms, duration_ms, tokens, tokens_per_sec, attachments, refs
		 FROM streams ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream records: %w", err)
	}
	defer rows.Close()

	var records []StreamRecord
	for rows.Next() {
		var rec StreamRecord
		var ts int64
		if err := rows.Scan(&rec.ID, &ts, &rec.SessionID, &rec.Model,
			&rec.KnowledgeBase, &rec.Prompt, &rec.Outcome, &rec.TTFTMs,
			&rec.DurationMs, &rec.Tokens, &rec.TokensPerS,
			&rec.Attachments, &rec.References); err != nil {
			return nil, fmt.Errorf("failed to scan stream record: %w", err)
		}
		rec.Timestamp = time.Unix(ts, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DailyTotals aggregates completed-stream throughput over the last n days.
type DailyTotals struct {
	Date        time.Time `json:"date"`
	Streams     int       `json:"streams"`
	Tokens      int       `json:"tokens"`
	AvgTTFTMs   int64     `json:"avg_ttft_ms"`
	AvgTokensPS float64   `json:"avg_tokens_per_sec"`
}

// Trends returns per-day aggregates for the trailing window, oldest first.
func (s *Store) Trends(days int) ([]DailyTotals, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days).Unix()

	rows, err := s.db.Query(
		`SELECT date(timestamp, 'unixepoch') AS day,
			COUNT(*), SUM(tokens),
			CAST(AVG(ttft_ms) AS INTEGER), AVG(tokens_per_sec)
		 FROM streams
		 WHERE timestamp >= ? AND outcome = ?
		 GROUP BY day ORDER BY day ASC`, since, OutcomeCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query trends: %w", err)
	}
	defer rows.Close()

	var totals []DailyTotals
	for rows.Next() {
		var day string
		var t DailyTotals
		if err := rows.Scan(&day, &t.Streams, &t.Tokens, &t.AvgTTFTMs, &t.AvgTokensPS); err != nil {
			return nil, fmt.Errorf("failed to scan trend row: %w", err)
		}
		if parsed, err := time.Parse("2006-01-02", day); err == nil {
			t.Date = parsed
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// DeleteBefore removes records older than the cutoff.
func (s *Store) DeleteBefore(cutoff time.Time) error {
	_, err := s.db.Exec(`DELETE FROM streams WHERE timestamp < ?`, cutoff.Unix())
	if err != nil {
		return fmt.Errorf("failed to prune stream records: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM streams`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count stream records: %w", err)
	}
	return n, nil
}
