// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stats.go - Local usage statistics command for ragbench.
//
// Command: stats [subcommand]
// Short:   Show local streaming statistics
// Aliases: statistics
//
// Examples:
//   ragbench stats                   Summary of all recorded streams
//   ragbench stats recent            Last 20 streams
//   ragbench stats recent --limit 50 Last 50 streams
//   ragbench stats trends --days 30  Per-day throughput for a month
//   ragbench stats prune --keep-days 30
//
// All statistics are recorded locally; nothing is uploaded.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/ragbench-tui/internal/config"
	"github.com/jeranaias/ragbench-tui/internal/telemetry"
	"github.com/jeranaias/ragbench-tui/internal/util"
)

// =============================================================================
// STATS HANDLER
// =============================================================================

// HandleStats handles the "stats" command and its subcommands.
func HandleStats(args Args) error {
	cfg := config.Global()
	if !cfg.Telemetry.Enabled {
		if args.JSON {
			resp := NewJSONErrorResponse("stats", fmt.Errorf("statistics recording is disabled"))
			return resp.Print()
		}
		fmt.Println(valueDimStyle.Render("Statistics recording is disabled (telemetry.enabled = false)"))
		return nil
	}

	path, err := cfg.StatsDBPath()
	if err != nil {
		return WrapError(err, "could not resolve statistics database path")
	}

	store, err := telemetry.OpenStore(path)
	if err != nil {
		return WrapError(err, "could not open statistics database")
	}
	defer store.Close()

	parser := NewArgParser(args.Raw)

	switch args.Subcommand {
	case "", "summary":
		return handleStatsSummary(store, args)
	case "recent":
		limit := parser.FlagIntOrDefault("limit", 20)
		return handleStatsRecent(store, limit, args)
	case "trends":
		days := parser.FlagIntOrDefault("days", 7)
		return handleStatsTrends(store, days, args)
	case "prune":
		keepDays := parser.FlagIntOrDefault("keep-days", 90)
		return handleStatsPrune(store, keepDays, args)
	default:
		return &ValidationError{
			Field:  "subcommand",
			Value:  args.Subcommand,
			Reason: "expected one of: summary, recent, trends, prune",
		}
	}
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

// handleStatsSummary shows totals across every recorded stream.
func handleStatsSummary(store *telemetry.Store, args Args) error {
	count, err := store.Count()
	if err != nil {
		return err
	}

	// The summary derives from the most recent window; all-time totals would
	// need a dedicated aggregate query.
	records, err := store.Recent(count)
	if err != nil {
		return err
	}

	var completed, failed, cancelled, tokens, references int
	var ttftTotal int64
	var tpsTotal float64
	for _, rec := range records {
		switch rec.Outcome {
		case telemetry.OutcomeCompleted:
			completed++
			ttftTotal += rec.TTFTMs
			tpsTotal += rec.TokensPerS
		case telemetry.OutcomeFailed:
			failed++
		case telemetry.OutcomeCancelled:
			cancelled++
		}
		tokens += rec.Tokens
		references += rec.References
	}

	var avgTTFT int64
	var avgTPS float64
	if completed > 0 {
		avgTTFT = ttftTotal / int64(completed)
		avgTPS = tpsTotal / float64(completed)
	}

	if args.JSON {
		data := StatsSummaryData{
			Streams:     count,
			Completed:   completed,
			Failed:      failed,
			Cancelled:   cancelled,
			Tokens:      tokens,
			References:  references,
			AvgTTFTMs:   avgTTFT,
			AvgTokensPS: avgTPS,
		}
		resp := NewJSONResponse("stats", data)
		return resp.Print()
	}

	fmt.Println()
	fmt.Println(statusTitleStyle.Render("Usage Statistics"))
	fmt.Println(statusSeparatorStyle.Render(strings.Repeat("=", 41)))
	fmt.Println()
	fmt.Printf("  %s%s\n", labelStyle.Render("Streams:"),
		valueStyle.Render(fmt.Sprintf("%d (%d completed, %d failed, %d cancelled)",
			count, completed, failed, cancelled)))
	fmt.Printf("  %s%s\n", labelStyle.Render("Tokens:"),
		valueStyle.Render(formatNumber(tokens)))
	fmt.Printf("  %s%s\n", labelStyle.Render("Citations:"),
		valueStyle.Render(fmt.Sprintf("%d", references)))
	if completed > 0 {
		fmt.Printf("  %s%s\n", labelStyle.Render("Avg TTFT:"),
			valueStyle.Render(fmt.Sprintf("%dms", avgTTFT)))
		fmt.Printf("  %s%s\n", labelStyle.Render("Avg Speed:"),
			valueStyle.Render(fmt.Sprintf("%.1f tok/s", avgTPS)))
	}
	fmt.Println()

	return nil
}

// handleStatsRecent lists the most recent streams, newest first.
func handleStatsRecent(store *telemetry.Store, limit int, args Args) error {
	records, err := store.Recent(limit)
	if err != nil {
		return err
	}

	if args.JSON {
		resp := NewJSONResponse("stats", StatsRecentData{Records: records})
		return resp.Print()
	}

	if len(records) == 0 {
		fmt.Println(valueDimStyle.Render("No recorded streams yet"))
		return nil
	}

	fmt.Println()
	fmt.Println(statusTitleStyle.Render(fmt.Sprintf("Recent Streams (%d)", len(records))))
	fmt.Println(statusSeparatorStyle.Render(strings.Repeat("=", 41)))
	fmt.Println()

	for _, rec := range records {
		outcome := rec.Outcome
		switch rec.Outcome {
		case telemetry.OutcomeCompleted:
			outcome = valueGreenStyle.Render(outcome)
		case telemetry.OutcomeFailed:
			outcome = valueRedStyle.Render(outcome)
		case telemetry.OutcomeCancelled:
			outcome = valueYellowStyle.Render(outcome)
		}

		fmt.Printf("  %s  %s  %s\n",
			valueDimStyle.Render(rec.Timestamp.Format("2006-01-02 15:04")),
			outcome,
			valueStyle.Render(util.TruncateRunes(strings.ReplaceAll(rec.Prompt, "\n", " "), 60)))
		detail := fmt.Sprintf("model=%s kb=%s tokens=%d", rec.Model, rec.KnowledgeBase, rec.Tokens)
		if rec.TokensPerS > 0 {
			detail += fmt.Sprintf(" speed=%.1f tok/s", rec.TokensPerS)
		}
		if rec.References > 0 {
			detail += fmt.Sprintf(" refs=%d", rec.References)
		}
		fmt.Printf("      %s\n", valueDimStyle.Render(detail))
	}
	fmt.Println()

	return nil
}

// handleStatsTrends shows per-day aggregates over the trailing window.
func handleStatsTrends(store *telemetry.Store, days int, args Args) error {
	totals, err := store.Trends(days)
	if err != nil {
		return err
	}

	if args.JSON {
		resp := NewJSONResponse("stats", StatsTrendsData{Days: days, Totals: totals})
		return resp.Print()
	}

	if len(totals) == 0 {
		fmt.Println(valueDimStyle.Render(fmt.Sprintf("No completed streams in the last %d days", days)))
		return nil
	}

	fmt.Println()
	fmt.Println(statusTitleStyle.Render(fmt.Sprintf("Throughput, last %d days", days)))
	fmt.Println(statusSeparatorStyle.Render(strings.Repeat("=", 41)))
	fmt.Println()

	for _, day := range totals {
		fmt.Printf("  %s  %s streams, %s tokens, %dms ttft, %.1f tok/s\n",
			valueStyle.Render(day.Date.Format("2006-01-02")),
			valueGreenStyle.Render(util.IntToString(day.Streams)),
			formatNumber(day.Tokens),
			day.AvgTTFTMs,
			day.AvgTokensPS)
	}
	fmt.Println()

	return nil
}

// handleStatsPrune deletes records older than the retention window.
func handleStatsPrune(store *telemetry.Store, keepDays int, args Args) error {
	if keepDays < 1 {
		return &ValidationError{
			Field:  "keep-days",
			Value:  util.IntToString(keepDays),
			Reason: "must be at least 1",
		}
	}

	before, err := store.Count()
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -keepDays)
	if err := store.DeleteBefore(cutoff); err != nil {
		return err
	}

	after, err := store.Count()
	if err != nil {
		return err
	}
	removed := before - after

	if args.JSON {
		data := StatsPruneData{
			KeepDays: keepDays,
			Removed:  removed,
			Kept:     after,
		}
		resp := NewJSONResponse("stats", data)
		return resp.Print()
	}

	fmt.Printf("%s Removed %d records older than %d days (%d kept)\n",
		valueGreenStyle.Render("[OK]"),
		removed, keepDays, after)

	return nil
}
