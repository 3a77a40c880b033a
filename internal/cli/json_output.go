// json_output.go - JSON output support for scripting and automation.
//
// Provides a standardized JSON output format for all CLI commands so the
// client can be driven from scripts and log pipelines.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/ragbench-tui/internal/backend"
	"github.com/jeranaias/ragbench-tui/internal/config"
	"github.com/jeranaias/ragbench-tui/internal/telemetry"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Error:     nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Data:      nil,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponseStr creates a new error JSON response from a string.
func NewJSONErrorResponseStr(command string, errMsg string) *JSONResponse {
	return &JSONResponse{
		Success:   false,
		Data:      nil,
		Error:     &errMsg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
// Human-readable messages should go to stderr when JSON mode is enabled.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// PrintCompact outputs the JSON response without indentation.
// Useful for piping to other tools or log aggregation.
func (r *JSONResponse) PrintCompact() error {
	return json.NewEncoder(os.Stdout).Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// OutputJSON is a helper function that outputs either JSON or runs a normal handler.
// If jsonMode is true, it outputs JSON and handles errors. Otherwise it runs the handler.
func OutputJSON(jsonMode bool, command string, handler func() (interface{}, error)) error {
	if !jsonMode {
		_, err := handler()
		return err
	}

	data, err := handler()
	if err != nil {
		resp := NewJSONErrorResponse(command, err)
		resp.Print()
		return err
	}

	resp := NewJSONResponse(command, data)
	return resp.Print()
}

// StderrPrint prints a message to stderr (for human-readable output in JSON mode).
func StderrPrint(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// StderrPrintln prints a line to stderr (for human-readable output in JSON mode).
func StderrPrintln(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// StatusData represents the data returned by the status command.
type StatusData struct {
	Backend  StatusBackendInfo  `json:"backend"`
	Defaults StatusDefaultsInfo `json:"defaults"`
	Catalog  StatusCatalogInfo  `json:"catalog"`
	Stats    StatusStatsInfo    `json:"stats"`
}

// StatusBackendInfo contains backend connectivity information.
type StatusBackendInfo struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatusDefaultsInfo contains the configured defaults.
type StatusDefaultsInfo struct {
	Model         string `json:"model"`
	KnowledgeBase string `json:"knowledge_base"`
}

// StatusCatalogInfo contains backend catalog counts.
type StatusCatalogInfo struct {
	Models         int `json:"models"`
	KnowledgeBases int `json:"knowledge_bases"`
}

// StatusStatsInfo contains statistics store information.
type StatusStatsInfo struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
	Records int    `json:"records"`
}

// ListingData wraps a model or knowledge base catalog listing.
type ListingData struct {
	Entries []backend.ListingEntry `json:"entries"`
}

// DoctorData represents the data returned by the doctor command.
type DoctorData struct {
	Checks  []DoctorCheck `json:"checks"`
	Summary DoctorSummary `json:"summary"`
}

// DoctorCheck represents a single health check result.
type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "warn", "fail"
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// DoctorSummary contains the summary of health checks.
type DoctorSummary struct {
	Passed  int  `json:"passed"`
	Warned  int  `json:"warned"`
	Failed  int  `json:"failed"`
	Healthy bool `json:"healthy"`
}

// ConfigData represents the data returned by the config show command.
type ConfigData struct {
	Config *config.Config `json:"config"`
	Path   string         `json:"config_path"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// AskData represents the data returned by the ask command.
type AskData struct {
	Response      string              `json:"response"`
	Model         string              `json:"model"`
	KnowledgeBase string              `json:"knowledge_base"`
	Tokens        int                 `json:"tokens"`
	TokensPerSec  float64             `json:"tokens_per_sec"`
	TTFTMs        int64               `json:"ttft_ms"`
	DurationMs    int64               `json:"duration_ms"`
	Attachments   int                 `json:"attachments"`
	References    []backend.Reference `json:"references"`
}

// StatsSummaryData represents the stats summary output.
type StatsSummaryData struct {
	Streams     int     `json:"streams"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	Cancelled   int     `json:"cancelled"`
	Tokens      int     `json:"tokens"`
	References  int     `json:"references"`
	AvgTTFTMs   int64   `json:"avg_ttft_ms"`
	AvgTokensPS float64 `json:"avg_tokens_per_sec"`
}

// StatsRecentData wraps the recent stream records.
type StatsRecentData struct {
	Records []telemetry.StreamRecord `json:"records"`
}

// StatsTrendsData wraps the per-day throughput aggregates.
type StatsTrendsData struct {
	Days   int                     `json:"days"`
	Totals []telemetry.DailyTotals `json:"totals"`
}

// StatsPruneData reports the outcome of a prune run.
type StatsPruneData struct {
	KeepDays int `json:"keep_days"`
	Removed  int `json:"removed"`
	Kept     int `json:"kept"`
}
