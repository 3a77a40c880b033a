// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records local streaming statistics for ragbench.
package telemetry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// STREAM RECORDS
// =============================================================================

// sessionIDCounter ensures unique session IDs even when created rapidly
var sessionIDCounter uint64

// StreamRecord captures one completed streaming exchange. All data stays
// local; nothing is ever uploaded.
type StreamRecord struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	Model         string    `json:"model"`
	KnowledgeBase string    `json:"knowledge_base"`
	Prompt        string    `json:"prompt"` // First 100 chars

	// Outcome is one of "completed", "failed", "cancelled"
	Outcome string `json:"outcome"`

	// Timing and throughput
	TTFTMs     int64   `json:"ttft_ms"`
	DurationMs int64   `json:"duration_ms"`
	Tokens     int     `json:"tokens"`
	TokensPerS float64 `json:"tokens_per_sec"`

	// Message composition
	Attachments int `json:"attachments"`
	References  int `json:"references"`
}

// SessionSummary aggregates one application session.
type SessionSummary struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`

	Streams    int `json:"streams"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Tokens     int `json:"tokens"`
	References int `json:"references"`

	// Derived averages over completed streams
	AvgTTFTMs   int64   `json:"avg_ttft_ms"`
	AvgTokensPS float64 `json:"avg_tokens_per_sec"`
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker accumulates per-session statistics and persists each stream
// record through the store. Safe for concurrent use. A nil store disables
// persistence but keeps the in-memory session summary working.
type Tracker struct {
	mu        sync.RWMutex
	sessionID string
	startTime time.Time
	records   []StreamRecord
	store     *Store
}

// NewTracker creates a tracker for a new session.
func NewTracker(store *Store) *Tracker {
	return &Tracker{
		sessionID: generateSessionID(),
		startTime: time.Now(),
		store:     store,
	}
}

// SessionID returns the current session identifier.
func (t *Tracker) SessionID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessionID
}

// RecordStream records one finished streaming exchange. The prompt is
// truncated before it leaves the caller's hands.
func (t *Tracker) RecordStream(rec StreamRecord) {
	if len(rec.Prompt) > 100 {
		rec.Prompt = rec.Prompt[:100] + "..."
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	t.mu.Lock()
	rec.SessionID = t.sessionID
	t.records = append(t.records, rec)
	store := t.store
	t.mu.Unlock()

	if store != nil {
		// Persistence failures never disturb the chat flow
		_ = store.Insert(rec)
	}
}

// Summary returns the aggregated statistics for the current session.
func (t *Tracker) Summary() SessionSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summary := SessionSummary{
		ID:        t.sessionID,
		StartTime: t.startTime,
		Streams:   len(t.records),
	}

	var ttftTotal int64
	var tpsTotal float64
	for _, rec := range t.records {
		switch rec.Outcome {
		case OutcomeCompleted:
			summary.Completed++
			ttftTotal += rec.TTFTMs
			tpsTotal += rec.TokensPerS
		case OutcomeFailed:
			summary.Failed++
		case OutcomeCancelled:
			summary.Cancelled++
		}
		summary.Tokens += rec.Tokens
		summary.References += rec.References
	}

	if summary.Completed > 0 {
		summary.AvgTTFTMs = ttftTotal / int64(summary.Completed)
		summary.AvgTokensPS = tpsTotal / float64(summary.Completed)
	}

	return summary
}

// Stream outcome values.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// generateSessionID generates a unique session ID.
func generateSessionID() string {
	// Date format plus atomic counter for guaranteed uniqueness
	now := time.Now()
	counter := atomic.AddUint64(&sessionIDCounter, 1)
	return now.Format("20060102-150405") + "-" + fmt.Sprintf("%d", counter)
}
