// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records local streaming statistics for ragbench.
//
// Each streaming exchange produces one record: time to first token,
// throughput, token count, attachment and citation counts, and outcome.
// Records feed the stats views and nothing else.
//
// # Key Types
//
//   - Tracker: per-session accumulator with persistence
//   - StreamRecord: single streaming exchange
//   - Store: SQLite-backed record store
//   - SessionSummary: aggregated view of the current session
//
// # Usage
//
// Record a stream:
//
//	store, _ := telemetry.OpenStore(path)
//	tracker := telemetry.NewTracker(store)
//	tracker.RecordStream(telemetry.StreamRecord{
//	    Model:   "gpt-4o",
//	    Outcome: telemetry.OutcomeCompleted,
//	    TTFTMs:  230,
//	    Tokens:  512,
//	})
//
// # Privacy
//
// Statistics are local-only and never transmitted. Prompts are truncated
// to a short preview before storage.
package telemetry
