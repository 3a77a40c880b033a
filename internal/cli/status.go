// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation for ragbench.
//
// Command: status
// Short:   Display backend and configuration status
// Aliases: s
//
// Examples:
//   ragbench status                 Show backend status
//   ragbench s                      Show status (short alias)
//   ragbench status --json          Status in JSON format
//
// Status Sections:
//   Backend:   Base URL, reachability, API version
//   Defaults:  Configured model and knowledge base
//   Catalog:   Available models and knowledge bases
//   Stats:     Statistics database location and record count
//
// Flags:
//   --json              Output in JSON format
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragbench-tui/internal/backend"
	"github.com/jeranaias/ragbench-tui/internal/config"
	"github.com/jeranaias/ragbench-tui/internal/telemetry"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	// Title style for the header
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")). // Cyan
				MarginBottom(1)

	// Section header style
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")). // White
			MarginTop(1)

	// Label style for field names
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(14)

	// Value styles
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")) // White

	valueGreenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")) // Green

	valueYellowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("220")) // Yellow

	valueRedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // Red

	valueDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim

	// Separator line
	statusSeparatorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

// =============================================================================
// HANDLE STATUS
// =============================================================================

// HandleStatus handles the "status" command. Displays backend connectivity,
// configured defaults, the model/knowledge-base catalog, and the local
// statistics store.
func HandleStatus(args Args) error {
	cfg := config.Global()
	client := newBackendClient(cfg, args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// One health probe serves both output modes
	health, healthErr := client.CheckHealth(ctx)

	// JSON output mode
	if args.JSON {
		return handleStatusJSON(ctx, cfg, client, health, healthErr)
	}

	// Print header
	separator := strings.Repeat("=", 41)
	fmt.Println()
	fmt.Println(statusTitleStyle.Render("ragbench Status"))
	fmt.Println(statusSeparatorStyle.Render(separator))
	fmt.Println()

	// Backend section
	fmt.Println(sectionStyle.Render("Backend"))
	fmt.Printf("  %s%s\n",
		labelStyle.Render("URL:"),
		valueStyle.Render(client.GetConfig().BaseURL))
	if healthErr != nil {
		fmt.Printf("  %s%s\n",
			labelStyle.Render("Status:"),
			valueRedStyle.Render("Unreachable"))
		fmt.Printf("  %s%s\n",
			labelStyle.Render("Error:"),
			valueDimStyle.Render(healthErr.Error()))
	} else {
		fmt.Printf("  %s%s\n",
			labelStyle.Render("Status:"),
			valueGreenStyle.Render("Reachable"))
		if health.Version != "" {
			fmt.Printf("  %s%s\n",
				labelStyle.Render("Version:"),
				valueStyle.Render(health.Version))
		}
	}
	fmt.Println()

	// Defaults section
	fmt.Println(sectionStyle.Render("Defaults"))
	fmt.Printf("  %s%s\n",
		labelStyle.Render("Model:"),
		valueStyle.Render(client.DefaultModel()))
	fmt.Printf("  %s%s\n",
		labelStyle.Render("KB:"),
		valueStyle.Render(client.GetConfig().DefaultKnowledgeBase))
	fmt.Println()

	// Catalog section (skipped when the backend is down)
	if healthErr == nil {
		fmt.Println(sectionStyle.Render("Catalog"))
		if models, err := client.ListModels(ctx); err == nil {
			fmt.Printf("  %s%s\n",
				labelStyle.Render("Models:"),
				valueStyle.Render(fmt.Sprintf("%d available", len(models))))
		} else {
			fmt.Printf("  %s%s\n",
				labelStyle.Render("Models:"),
				valueYellowStyle.Render("listing failed"))
		}
		if kbs, err := client.ListKnowledgeBases(ctx); err == nil {
			fmt.Printf("  %s%s\n",
				labelStyle.Render("KBs:"),
				valueStyle.Render(fmt.Sprintf("%d available", len(kbs))))
		} else {
			fmt.Printf("  %s%s\n",
				labelStyle.Render("KBs:"),
				valueYellowStyle.Render("listing failed"))
		}
		fmt.Println()
	}

	// Stats section
	fmt.Println(sectionStyle.Render("Stats"))
	fmt.Println(formatStatsStatus(cfg))
	fmt.Println()

	return nil
}

// handleStatusJSON outputs status information in JSON format.
func handleStatusJSON(ctx context.Context, cfg *config.Config, client *backend.Client, health *backend.HealthResponse, healthErr error) error {
	data := StatusData{
		Backend: StatusBackendInfo{
			URL:       client.GetConfig().BaseURL,
			Reachable: healthErr == nil,
		},
		Defaults: StatusDefaultsInfo{
			Model:         client.DefaultModel(),
			KnowledgeBase: client.GetConfig().DefaultKnowledgeBase,
		},
	}
	if healthErr != nil {
		data.Backend.Error = healthErr.Error()
	} else if health != nil {
		data.Backend.Version = health.Version
	}

	if healthErr == nil {
		if models, err := client.ListModels(ctx); err == nil {
			data.Catalog.Models = len(models)
		}
		if kbs, err := client.ListKnowledgeBases(ctx); err == nil {
			data.Catalog.KnowledgeBases = len(kbs)
		}
	}

	data.Stats = collectStatsInfo(cfg)

	resp := NewJSONResponse("status", data)
	return resp.Print()
}

// collectStatsInfo gathers statistics store information for JSON output.
func collectStatsInfo(cfg *config.Config) StatusStatsInfo {
	info := StatusStatsInfo{Enabled: cfg.Telemetry.Enabled}
	if !cfg.Telemetry.Enabled {
		return info
	}

	path, err := cfg.StatsDBPath()
	if err != nil {
		return info
	}
	info.Path = path

	store, err := telemetry.OpenStore(path)
	if err != nil {
		return info
	}
	defer store.Close()

	if count, err := store.Count(); err == nil {
		info.Records = count
	}
	return info
}

// formatStatsStatus returns formatted statistics store status lines.
func formatStatsStatus(cfg *config.Config) string {
	var lines []string

	if !cfg.Telemetry.Enabled {
		lines = append(lines, fmt.Sprintf("  %s%s",
			labelStyle.Render("Recording:"),
			valueDimStyle.Render("Disabled")))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, fmt.Sprintf("  %s%s",
		labelStyle.Render("Recording:"),
		valueGreenStyle.Render("Enabled")))

	path, err := cfg.StatsDBPath()
	if err != nil {
		lines = append(lines, fmt.Sprintf("  %s%s",
			labelStyle.Render("Database:"),
			valueRedStyle.Render(err.Error())))
		return strings.Join(lines, "\n")
	}
	lines = append(lines, fmt.Sprintf("  %s%s",
		labelStyle.Render("Database:"),
		valueStyle.Render(path)))

	store, err := telemetry.OpenStore(path)
	if err != nil {
		lines = append(lines, fmt.Sprintf("  %s%s",
			labelStyle.Render("Records:"),
			valueYellowStyle.Render("unavailable")))
		return strings.Join(lines, "\n")
	}
	defer store.Close()

	if count, err := store.Count(); err == nil {
		lines = append(lines, fmt.Sprintf("  %s%s",
			labelStyle.Render("Records:"),
			valueStyle.Render(fmt.Sprintf("%d", count))))
	}

	return strings.Join(lines, "\n")
}

// =============================================================================
// MODEL AND KNOWLEDGE BASE LISTINGS
// =============================================================================

// HandleModels handles the "models" command.
func HandleModels(args Args) error {
	cfg := config.Global()
	client := newBackendClient(cfg, args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		if args.JSON {
			resp := NewJSONErrorResponse("models", err)
			resp.Print()
		}
		return fmt.Errorf("failed to list models: %w", err)
	}

	if args.JSON {
		resp := NewJSONResponse("models", ListingData{Entries: models})
		return resp.Print()
	}

	printListing("Available Models", models, client.DefaultModel())
	return nil
}

// HandleKnowledgeBases handles the "kb" command.
func HandleKnowledgeBases(args Args) error {
	cfg := config.Global()
	client := newBackendClient(cfg, args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kbs, err := client.ListKnowledgeBases(ctx)
	if err != nil {
		if args.JSON {
			resp := NewJSONErrorResponse("kb", err)
			resp.Print()
		}
		return fmt.Errorf("failed to list knowledge bases: %w", err)
	}

	if args.JSON {
		resp := NewJSONResponse("kb", ListingData{Entries: kbs})
		return resp.Print()
	}

	printListing("Knowledge Bases", kbs, client.GetConfig().DefaultKnowledgeBase)
	return nil
}

// printListing prints a model or knowledge base catalog, marking the default.
func printListing(title string, entries []backend.ListingEntry, defaultID string) {
	fmt.Println()
	fmt.Println(statusTitleStyle.Render(title))
	fmt.Println(statusSeparatorStyle.Render(strings.Repeat("=", 41)))
	fmt.Println()

	if len(entries) == 0 {
		fmt.Println(valueDimStyle.Render("  (none)"))
		fmt.Println()
		return
	}

	for _, entry := range entries {
		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		line := fmt.Sprintf("  %s%s",
			labelStyle.Render(entry.ID),
			valueStyle.Render(name))
		if entry.ID == defaultID {
			line += valueGreenStyle.Render("  (default)")
		}
		fmt.Println(line)
		if entry.Description != "" {
			fmt.Printf("  %s%s\n",
				labelStyle.Render(""),
				valueDimStyle.Render(entry.Description))
		}
	}
	fmt.Println()
}
