// ragbench - Terminal client for a multimodal RAG workbench.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragbench-tui/internal/backend"
	"github.com/jeranaias/ragbench-tui/internal/cli"
	"github.com/jeranaias/ragbench-tui/internal/config"
	"github.com/jeranaias/ragbench-tui/internal/telemetry"
	uichat "github.com/jeranaias/ragbench-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// Load config before anything else; every command reads the global.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.Default()
	}
	config.SetGlobal(cfg)

	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(cfg, args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdStatus:
		exitOnError(cli.HandleStatus(args), args)
	case cli.CmdModels:
		exitOnError(cli.HandleModels(args), args)
	case cli.CmdKnowledgeBases:
		exitOnError(cli.HandleKnowledgeBases(args), args)
	case cli.CmdStats:
		exitOnError(cli.HandleStats(args), args)
	case cli.CmdConfig:
		exitOnError(cli.HandleConfig(args), args)
	case cli.CmdDoctor:
		exitOnError(cli.HandleDoctor(args), args)
	case cli.CmdVersion:
		cli.HandleVersionWithJSON(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		runTUI(cfg, args)
	}
}

// exitOnError prints the error in the requested output mode and exits with
// the category-specific code.
func exitOnError(err error, args cli.Args) {
	if err == nil {
		return
	}
	cli.HandleErrorAndExit(err, args.JSON)
}

// runTUI starts the interactive Bubble Tea interface.
func runTUI(cfg *config.Config, args cli.Args) {
	client := buildClient(cfg, args)

	// Statistics are local-only; a missing store degrades to in-memory
	var store *telemetry.Store
	if cfg.Telemetry.Enabled {
		if path, err := cfg.StatsDBPath(); err == nil {
			store, _ = telemetry.OpenStore(path)
		}
	}
	if store != nil {
		defer store.Close()
	}
	tracker := telemetry.NewTracker(store)

	model := uichat.New(client, cfg, tracker)

	// CLI overrides beat config defaults
	conv := model.Controller().Conversation()
	if args.Model != "" {
		conv.Model = args.Model
	}
	if args.KnowledgeBase != "" {
		conv.KnowledgeBase = args.KnowledgeBase
	}

	// Pick up config file edits made while the TUI is running. Only the
	// global snapshot is swapped; the live conversation keeps its model
	// and knowledge base until the user changes them.
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		_ = config.Watch(watchCtx, func(updated *config.Config) {
			config.SetGlobal(updated)
		})
	}()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildClient builds a workbench client from config plus CLI overrides.
func buildClient(cfg *config.Config, args cli.Args) *backend.Client {
	clientCfg := &backend.ClientConfig{
		BaseURL:              cfg.Backend.BaseURL,
		Timeout:              time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		UploadTimeout:        time.Duration(cfg.Backend.UploadTimeoutSecs) * time.Second,
		DefaultModel:         cfg.Backend.DefaultModel,
		DefaultKnowledgeBase: cfg.Backend.DefaultKnowledgeBase,
		RequestsPerSecond:    cfg.Backend.RequestsPerSecond,
	}
	if args.BackendURL != "" {
		clientCfg.BaseURL = args.BackendURL
	}
	return backend.NewClientWithConfig(clientCfg)
}
