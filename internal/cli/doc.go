// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for ragbench.
//
// This package implements all CLI commands for the ragbench client,
// providing both interactive (chat REPL, TUI) and non-interactive
// (ask, status, stats) modes against a RAG workbench backend.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - ArgParser: Unified flag/subcommand parsing for command tails
//   - JSONResponse: Standardized JSON envelope for scripting output
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdAsk:
//	    cli.HandleAsk(args)
//	case cli.CmdChat:
//	    cli.HandleChat(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - ask: single question, streamed answer, optional attachments
//   - chat: interactive REPL with slash commands and attachment staging
//   - status: backend health, defaults, and catalog counts
//   - models / kbs: catalog listings
//   - stats: local stream telemetry (summary, recent, trends, prune)
//   - config: show/get/set/reset the TOML configuration
//   - doctor: environment health checks with suggested fixes
//
// All commands support the --json flag for machine-readable output.
package cli
