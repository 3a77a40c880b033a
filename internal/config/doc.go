// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for ragbench.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Workbench API connection settings
//   - AttachmentsConfig: Attachment staging limits and behavior
//   - UIConfig / TelemetryConfig: Presentation and local statistics
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RAGBENCH_*)
//   - ~/.ragbench/config.toml
//   - ~/.ragbench/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	base := cfg.Backend.BaseURL
//	model := cfg.Backend.DefaultModel
//
// Watch for on-disk changes:
//
//	go config.Watch(ctx, func(cfg *config.Config) {
//	    // apply the reloaded configuration
//	})
package config
