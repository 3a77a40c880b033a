// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for ragbench.
//
// Command: config [subcommand]
// Short:   View and modify configuration
// Aliases: (none)
//
// Subcommands:
//   show (default)      Display current configuration
//   get <key>           Get a single value (dot notation)
//   set <key> <value>   Set a configuration value
//   reset               Reset to default configuration
//   path                Show configuration file path
//
// Examples:
//   ragbench config                         Show current config (default)
//   ragbench config show --json             Config in JSON format
//   ragbench config get backend.base_url
//   ragbench config set backend.default_model gpt-4o-mini
//   ragbench config set backend.base_url http://10.0.0.5:8000
//   ragbench config set ui.render_markdown false
//   ragbench config set telemetry.enabled false
//   ragbench config reset                   Reset to defaults
//   ragbench config path                    Show config file location
//
// Keys use dot notation matching the TOML sections, for example
// backend.base_url, backend.default_model, backend.default_knowledge_base,
// attachments.max_document_mb, ui.theme, ui.show_references,
// telemetry.enabled, telemetry.db_path.
//
// Flags:
//   --json              Output in JSON format
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragbench-tui/internal/config"
)

// =============================================================================
// CONFIG STYLES
// =============================================================================

var (
	// Config title style
	configTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")). // Cyan
				MarginBottom(1)

	// Config section style
	configSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("255")). // White
				MarginTop(1)

	// Config key style
	configKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(24)

	// Config value style
	configValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")) // Green

	// Success style
	configSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	// Path style
	configPathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	// Dim style for notes
	configDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)

// =============================================================================
// CONFIG WRAPPER FUNCTIONS
// =============================================================================

// Config is an alias to the main config type.
type Config = config.Config

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	return path
}

// LoadConfig loads the configuration from the config file.
// Returns default config if file doesn't exist.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *Config) error {
	return config.Save(cfg)
}

// =============================================================================
// HANDLE CONFIG
// =============================================================================

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		if args.JSON {
			return handleConfigShowJSON()
		}
		return handleConfigShow()

	case "get":
		return handleConfigGet(args.ConfigKey, args.JSON)

	case "set":
		return handleConfigSet(args.ConfigKey, args.ConfigVal)

	case "reset":
		return handleConfigReset()

	case "path":
		if args.JSON {
			return handleConfigPathJSON()
		}
		return handleConfigPath()

	default:
		return &ValidationError{
			Field:  "subcommand",
			Value:  args.Subcommand,
			Reason: "expected one of: show, get, set, reset, path",
		}
	}
}

// handleConfigShowJSON outputs the full effective configuration as JSON.
func handleConfigShowJSON() error {
	cfg, err := LoadConfig()
	if err != nil {
		cfg = DefaultConfig()
	}

	data := ConfigData{
		Config: cfg,
		Path:   ConfigPath(),
	}

	resp := NewJSONResponse("config show", data)
	return resp.Print()
}

// handleConfigPathJSON outputs config path in JSON format.
func handleConfigPathJSON() error {
	path := ConfigPath()
	_, err := os.Stat(path)
	exists := !os.IsNotExist(err)

	data := map[string]interface{}{
		"path":   path,
		"exists": exists,
	}

	resp := NewJSONResponse("config path", data)
	return resp.Print()
}

// handleConfigShow displays the current configuration.
func handleConfigShow() error {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s (using defaults)\n", err)
		cfg = DefaultConfig()
	}

	separator := strings.Repeat("=", 41)
	fmt.Println()
	fmt.Println(configTitleStyle.Render("ragbench Configuration"))
	fmt.Println(separatorStyle.Render(separator))
	fmt.Println()

	// Backend section
	fmt.Println(configSectionStyle.Render("[backend]"))
	printConfigLine("base_url:", cfg.Backend.BaseURL)
	printConfigLine("timeout_secs:", fmt.Sprintf("%d", cfg.Backend.TimeoutSecs))
	printConfigLine("upload_timeout_secs:", fmt.Sprintf("%d", cfg.Backend.UploadTimeoutSecs))
	printConfigLine("default_model:", cfg.Backend.DefaultModel)
	printConfigLine("default_knowledge_base:", cfg.Backend.DefaultKnowledgeBase)
	printConfigLine("requests_per_second:", fmt.Sprintf("%g", cfg.Backend.RequestsPerSecond))
	fmt.Println()

	// Attachments section
	fmt.Println(configSectionStyle.Render("[attachments]"))
	printConfigLine("max_document_mb:", fmt.Sprintf("%d", cfg.Attachments.MaxDocumentMB))
	printConfigLine("process_on_attach:", boolString(cfg.Attachments.ProcessOnAttach))
	fmt.Println()

	// UI section
	fmt.Println(configSectionStyle.Render("[ui]"))
	printConfigLine("theme:", cfg.UI.Theme)
	printConfigLine("show_references:", boolString(cfg.UI.ShowReferences))
	printConfigLine("show_stats:", boolString(cfg.UI.ShowStats))
	printConfigLine("compact_mode:", boolString(cfg.UI.CompactMode))
	printConfigLine("render_markdown:", boolString(cfg.UI.RenderMarkdown))
	fmt.Println()

	// Telemetry section
	fmt.Println(configSectionStyle.Render("[telemetry]"))
	printConfigLine("enabled:", boolString(cfg.Telemetry.Enabled))
	dbPath := cfg.Telemetry.DBPath
	if dbPath == "" {
		dbPath = "(default: ~/.ragbench/stats.db)"
	}
	printConfigLine("db_path:", dbPath)
	fmt.Println()

	// Config file path
	fmt.Println(separatorStyle.Render(strings.Repeat("-", 41)))
	fmt.Printf("Config file: %s\n", configPathStyle.Render(ConfigPath()))
	fmt.Println()

	return nil
}

// printConfigLine prints one aligned key/value row.
func printConfigLine(key, value string) {
	fmt.Printf("  %s%s\n",
		configKeyStyle.Render(key),
		configValueStyle.Render(value))
}

// boolString renders a boolean as its TOML literal.
func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// handleConfigGet prints a single configuration value by dot-notation key.
func handleConfigGet(key string, jsonMode bool) error {
	if key == "" {
		return ErrMissingArgument("key", "ragbench config get backend.base_url")
	}

	cfg, err := LoadConfig()
	if err != nil {
		cfg = DefaultConfig()
	}

	value, err := cfg.Get(normalizeConfigKey(key))
	if err != nil {
		return &ValidationError{
			Field:   "key",
			Value:   key,
			Reason:  "unknown configuration key",
			Example: strings.Join(config.GetAllKeys()[:4], ", ") + ", ...",
		}
	}

	if jsonMode {
		resp := NewJSONResponse("config get", map[string]interface{}{
			"key":   key,
			"value": value,
		})
		return resp.Print()
	}

	fmt.Printf("%v\n", value)
	return nil
}

// handleConfigSet sets a configuration value and saves the file.
func handleConfigSet(key, value string) error {
	if key == "" {
		return ErrMissingArgument("key", "ragbench config set backend.default_model gpt-4o-mini")
	}
	if value == "" {
		return ErrMissingArgument("value", fmt.Sprintf("ragbench config set %s <value>", key))
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s (using defaults)\n", err)
		cfg = DefaultConfig()
	}

	if err := cfg.Set(normalizeConfigKey(key), value); err != nil {
		return &ValidationError{
			Field:   "key",
			Value:   key,
			Reason:  err.Error(),
			Example: "ragbench config set backend.base_url http://127.0.0.1:8000",
		}
	}

	// Validate before saving so a bad value never lands on disk
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration value: %w", err)
	}

	if err := SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s %s = %s\n",
		configSuccessStyle.Render("[OK]"),
		key,
		value)

	return nil
}

// handleConfigReset resets configuration to defaults.
func handleConfigReset() error {
	cfg := DefaultConfig()

	if err := SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s Configuration reset to defaults\n", configSuccessStyle.Render("[OK]"))
	fmt.Printf("Config file: %s\n", configPathStyle.Render(ConfigPath()))

	return nil
}

// handleConfigPath shows the config file path.
func handleConfigPath() error {
	path := ConfigPath()
	fmt.Println(path)

	// Also show if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "%s (file does not exist - will be created on first use)\n",
			configDimStyle.Render("Note"))
	}

	return nil
}

// normalizeConfigKey accepts underscore shorthand ("backend_base_url") in
// addition to the canonical dot notation.
func normalizeConfigKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if strings.Contains(key, ".") {
		return key
	}
	// Only the first underscore separates section from field
	if i := strings.Index(key, "_"); i > 0 {
		section := key[:i]
		switch section {
		case "backend", "attachments", "ui", "telemetry":
			return section + "." + key[i+1:]
		}
	}
	return key
}
