// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Doctor command implementation for ragbench.
//
// Command: doctor
// Short:   Run connectivity and configuration diagnostics
// Aliases: (none)
//
// Examples:
//   ragbench doctor                Run all health checks
//   ragbench doctor --json         Health check results in JSON
//
// Health Checks Performed:
//   1. Config Valid       - Validates configuration file
//   2. Config Writable    - Checks config directory permissions
//   3. Backend Reachable  - Probes the workbench API root
//   4. Models Listed      - Checks the model catalog endpoint
//   5. KBs Listed         - Checks the knowledge base catalog endpoint
//   6. Stats Writable     - Opens the local statistics database
//
// Exit Codes:
//   0   All checks passed
//   1   One or more checks failed
//
// Flags:
//   --json              Output in JSON format
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragbench-tui/internal/config"
	"github.com/jeranaias/ragbench-tui/internal/telemetry"
)

// =============================================================================
// DOCTOR STYLES
// =============================================================================

var (
	// Doctor title style
	doctorTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")). // Cyan
				MarginBottom(1)

	// Check pass style
	checkPassStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	// Check warn style
	checkWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	// Check fail style
	checkFailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Check message style
	checkMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	// Fix suggestion style
	fixStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true).
			PaddingLeft(2)

	// Summary style
	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	// CheckPass indicates the check passed successfully.
	CheckPass CheckStatus = iota
	// CheckWarn indicates the check passed with warnings.
	CheckWarn
	// CheckFail indicates the check failed.
	CheckFail
)

// String returns the string representation of the check status.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "Pass"
	case CheckWarn:
		return "Warn"
	case CheckFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// Symbol returns the rendered status marker.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return checkPassStyle.Render("[OK]")
	case CheckWarn:
		return checkWarnStyle.Render("[!!]")
	case CheckFail:
		return checkFailStyle.Render("[FAIL]")
	default:
		return "?"
	}
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // Suggested fix command or instruction
}

// Render returns a formatted string representation of the health check.
func (c *HealthCheck) Render() string {
	result := fmt.Sprintf("%s %s", c.Status.Symbol(), checkMsgStyle.Render(c.Message))
	if c.Status != CheckPass && c.Fix != "" {
		result += "\n" + fixStyle.Render("-> "+c.Fix)
	}
	return result
}

// =============================================================================
// HANDLE DOCTOR
// =============================================================================

// HandleDoctor handles the "doctor" command.
func HandleDoctor(args Args) error {
	checks := runAllChecks(args)

	// Count results
	passed := 0
	warned := 0
	failed := 0
	for _, check := range checks {
		switch check.Status {
		case CheckPass:
			passed++
		case CheckWarn:
			warned++
		case CheckFail:
			failed++
		}
	}

	// JSON output mode
	if args.JSON {
		return handleDoctorJSON(checks, passed, warned, failed)
	}

	// Human-readable output
	separator := strings.Repeat("=", 41)
	fmt.Println()
	fmt.Println(doctorTitleStyle.Render("ragbench Doctor"))
	fmt.Println(separatorStyle.Render(separator))
	fmt.Println()

	// Display results
	for _, check := range checks {
		fmt.Println(check.Render())
	}

	// Summary line
	fmt.Println()
	fmt.Println(separatorStyle.Render(strings.Repeat("-", 41)))

	summaryParts := []string{
		fmt.Sprintf("%d passed", passed),
	}
	if warned > 0 {
		summaryParts = append(summaryParts, checkWarnStyle.Render(fmt.Sprintf("%d warning", warned)))
	}
	if failed > 0 {
		summaryParts = append(summaryParts, checkFailStyle.Render(fmt.Sprintf("%d failed", failed)))
	}

	fmt.Println(summaryStyle.Render(strings.Join(summaryParts, ", ")))
	fmt.Println()

	// Return error if there are failures
	if failed > 0 {
		return fmt.Errorf("%d health check(s) failed", failed)
	}

	return nil
}

// handleDoctorJSON outputs doctor results in JSON format.
func handleDoctorJSON(checks []*HealthCheck, passed, warned, failed int) error {
	jsonChecks := make([]DoctorCheck, 0, len(checks))
	for _, check := range checks {
		status := "pass"
		switch check.Status {
		case CheckWarn:
			status = "warn"
		case CheckFail:
			status = "fail"
		}

		jsonChecks = append(jsonChecks, DoctorCheck{
			Name:    check.Name,
			Status:  status,
			Message: check.Message,
			Fix:     check.Fix,
		})
	}

	data := DoctorData{
		Checks: jsonChecks,
		Summary: DoctorSummary{
			Passed:  passed,
			Warned:  warned,
			Failed:  failed,
			Healthy: failed == 0,
		},
	}

	resp := NewJSONResponse("doctor", data)

	// If there are failures, mark as unsuccessful but still output data
	if failed > 0 {
		errMsg := fmt.Sprintf("%d health check(s) failed", failed)
		resp.Success = false
		resp.Error = &errMsg
	}

	return resp.Print()
}

// =============================================================================
// HEALTH CHECK FUNCTIONS
// =============================================================================

// runAllChecks runs all health checks and returns the results.
func runAllChecks(args Args) []*HealthCheck {
	cfg, cfgCheck := checkConfigValid()

	var checks []*HealthCheck
	checks = append(checks, cfgCheck)
	checks = append(checks, checkConfigWritable())

	client := newBackendClient(cfg, args)
	backendCheck := checkBackendReachable(client.GetConfig().BaseURL, args)
	checks = append(checks, backendCheck)

	// Catalog probes only make sense with a live backend
	if backendCheck.Status == CheckPass {
		checks = append(checks, checkModelsListed(args))
		checks = append(checks, checkKnowledgeBasesListed(args))
	}

	checks = append(checks, checkStatsWritable(cfg))

	return checks
}

// checkConfigValid checks if the configuration file loads and validates.
// Returns the loaded config so later checks reuse it.
func checkConfigValid() (*Config, *HealthCheck) {
	check := &HealthCheck{
		Name: "Config Valid",
	}

	configPath := ConfigPath()
	if configPath == "" {
		check.Status = CheckWarn
		check.Message = "Could not determine config path"
		return DefaultConfig(), check
	}

	// A missing file means defaults, which is fine
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		check.Status = CheckPass
		check.Message = "Config valid (using defaults)"
		return DefaultConfig(), check
	}

	cfg, err := LoadConfig()
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Config invalid: %s", err)
		check.Fix = "Run: ragbench config reset"
		return DefaultConfig(), check
	}

	check.Status = CheckPass
	check.Message = "Config valid"
	return cfg, check
}

// checkConfigWritable checks the config directory permissions.
func checkConfigWritable() *HealthCheck {
	check := &HealthCheck{
		Name: "Config Writable",
	}

	dir, err := config.ConfigDir()
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Could not determine config directory: %s", err)
		return check
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Could not create config directory: %s", err)
		check.Fix = fmt.Sprintf("Create manually: mkdir -p %s", dir)
		return check
	}

	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Config directory not writable: %s", err)
		check.Fix = fmt.Sprintf("Check permissions: chmod 755 %s", dir)
		return check
	}
	os.Remove(testFile)

	check.Status = CheckPass
	check.Message = "Config directory writable"
	return check
}

// checkBackendReachable probes the workbench API root.
func checkBackendReachable(baseURL string, args Args) *HealthCheck {
	check := &HealthCheck{
		Name: "Backend Reachable",
	}

	client := newBackendClient(config.Global(), args)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.CheckHealth(ctx)
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Backend not reachable at %s", baseURL)
		check.Fix = "Start the workbench backend, or set: ragbench config set backend.base_url URL"
		return check
	}

	check.Status = CheckPass
	if health.Version != "" {
		check.Message = fmt.Sprintf("Backend reachable (v%s)", health.Version)
	} else {
		check.Message = "Backend reachable"
	}
	return check
}

// checkModelsListed checks the model catalog endpoint.
func checkModelsListed(args Args) *HealthCheck {
	check := &HealthCheck{
		Name: "Models Listed",
	}

	client := newBackendClient(config.Global(), args)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("Model listing failed: %s", err)
		return check
	}
	if len(models) == 0 {
		check.Status = CheckWarn
		check.Message = "Backend reports no models"
		return check
	}

	check.Status = CheckPass
	check.Message = fmt.Sprintf("%d model(s) available", len(models))
	return check
}

// checkKnowledgeBasesListed checks the knowledge base catalog endpoint.
func checkKnowledgeBasesListed(args Args) *HealthCheck {
	check := &HealthCheck{
		Name: "KBs Listed",
	}

	client := newBackendClient(config.Global(), args)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kbs, err := client.ListKnowledgeBases(ctx)
	if err != nil {
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("Knowledge base listing failed: %s", err)
		return check
	}
	if len(kbs) == 0 {
		check.Status = CheckWarn
		check.Message = "Backend reports no knowledge bases"
		return check
	}

	check.Status = CheckPass
	check.Message = fmt.Sprintf("%d knowledge base(s) available", len(kbs))
	return check
}

// checkStatsWritable opens the local statistics database.
func checkStatsWritable(cfg *Config) *HealthCheck {
	check := &HealthCheck{
		Name: "Stats Writable",
	}

	if !cfg.Telemetry.Enabled {
		check.Status = CheckPass
		check.Message = "Statistics recording disabled"
		return check
	}

	path, err := cfg.StatsDBPath()
	if err != nil {
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("Could not resolve stats database path: %s", err)
		return check
	}

	store, err := telemetry.OpenStore(path)
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Stats database not writable: %s", err)
		check.Fix = "Set telemetry.db_path to a writable location, or disable telemetry.enabled"
		return check
	}
	store.Close()

	check.Status = CheckPass
	check.Message = "Stats database writable"
	return check
}
