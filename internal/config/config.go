// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for ragbench.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.ragbench/config.toml
//   - ~/.ragbench/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/ragbench-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ragbench configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Backend connection configuration
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Attachment handling configuration
	Attachments AttachmentsConfig `toml:"attachments" json:"attachments"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Telemetry configuration
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`
}

// BackendConfig contains workbench API connection configuration.
type BackendConfig struct {
	// BaseURL is the workbench API base URL
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the request timeout for non-streaming calls
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// UploadTimeoutSecs is the timeout for attachment uploads
	UploadTimeoutSecs int `toml:"upload_timeout_secs" json:"upload_timeout_secs"`
	// DefaultModel is the model used when a conversation has none set
	DefaultModel string `toml:"default_model" json:"default_model"`
	// DefaultKnowledgeBase is the knowledge base used when none is set
	DefaultKnowledgeBase string `toml:"default_knowledge_base" json:"default_knowledge_base"`
	// RequestsPerSecond caps the client-side request rate (0 = default)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// AttachmentsConfig contains attachment staging configuration.
type AttachmentsConfig struct {
	// MaxDocumentMB is the largest document accepted for processing
	MaxDocumentMB int `toml:"max_document_mb" json:"max_document_mb"`
	// ProcessOnAttach starts document processing when the file is staged
	// rather than deferring it to send time
	ProcessOnAttach bool `toml:"process_on_attach" json:"process_on_attach"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowReferences displays the citation panel under completed answers
	ShowReferences bool `toml:"show_references" json:"show_references"`
	// ShowStats displays streaming statistics after each answer
	ShowStats bool `toml:"show_stats" json:"show_stats"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// RenderMarkdown renders assistant answers as markdown
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
}

// TelemetryConfig contains local usage statistics configuration.
type TelemetryConfig struct {
	// Enabled controls whether per-stream statistics are recorded
	Enabled bool `toml:"enabled" json:"enabled"`
	// DBPath is the statistics database path (empty = ~/.ragbench/stats.db)
	DBPath string `toml:"db_path" json:"db_path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			BaseURL:              "http://127.0.0.1:8000",
			TimeoutSecs:          30,
			UploadTimeoutSecs:    120,
			DefaultModel:         "gpt-4o",
			DefaultKnowledgeBase: "default",
			RequestsPerSecond:    5,
		},

		Attachments: AttachmentsConfig{
			MaxDocumentMB:   50,
			ProcessOnAttach: true,
		},

		UI: UIConfig{
			Theme:          "dark",
			ShowReferences: true,
			ShowStats:      true,
			CompactMode:    false,
			RenderMarkdown: true,
		},

		Telemetry: TelemetryConfig{
			Enabled: true,
			DBPath:  "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ragbench configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragbench"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				cfg.ApplyEnvOverrides()
				cfg.SetDefaults()
				if err := cfg.Validate(); err != nil {
					return nil, fmt.Errorf("invalid config: %w", err)
				}
				return cfg, nil
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				cfg.ApplyEnvOverrides()
				cfg.SetDefaults()
				if err := cfg.Validate(); err != nil {
					return nil, fmt.Errorf("invalid config: %w", err)
				}
				return cfg, nil
			}
		}
	}

	// Apply environment overrides to defaults
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	cfg.SetDefaults()
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	cfg.SetDefaults()
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# ragbench configuration file\n")
	sb.WriteString("# Generated by ragbench - edit with care\n")
	sb.WriteString("\n")

	encoder := toml.NewEncoder(&sb)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Validate backend URL
	if c.Backend.BaseURL != "" {
		parsed, err := url.Parse(c.Backend.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "backend.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Backend.BaseURL),
			})
		}
	}

	// Validate timeouts
	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: "must be non-negative",
		})
	}
	if c.Backend.UploadTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.upload_timeout_secs",
			Message: "must be non-negative",
		})
	}

	// Validate request rate
	if c.Backend.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.requests_per_second",
			Message: "must be non-negative",
		})
	}

	// Validate attachment limits (backend rejects documents above 50 MB)
	if c.Attachments.MaxDocumentMB < 1 || c.Attachments.MaxDocumentMB > 50 {
		errs = append(errs, ValidationError{
			Field:   "attachments.max_document_mb",
			Message: fmt.Sprintf("must be 1-50, got %d", c.Attachments.MaxDocumentMB),
		})
	}

	// Validate UI theme
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// Backend defaults
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if c.Backend.UploadTimeoutSecs == 0 {
		c.Backend.UploadTimeoutSecs = defaults.Backend.UploadTimeoutSecs
	}
	if c.Backend.DefaultModel == "" {
		c.Backend.DefaultModel = defaults.Backend.DefaultModel
	}
	if c.Backend.DefaultKnowledgeBase == "" {
		c.Backend.DefaultKnowledgeBase = defaults.Backend.DefaultKnowledgeBase
	}
	if c.Backend.RequestsPerSecond == 0 {
		c.Backend.RequestsPerSecond = defaults.Backend.RequestsPerSecond
	}

	// Attachment defaults
	if c.Attachments.MaxDocumentMB == 0 {
		c.Attachments.MaxDocumentMB = defaults.Attachments.MaxDocumentMB
	}

	// UI defaults
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RAGBENCH_BACKEND_URL: overrides backend.base_url
//   - RAGBENCH_MODEL: overrides backend.default_model
//   - RAGBENCH_KNOWLEDGE_BASE: overrides backend.default_knowledge_base
//   - RAGBENCH_THEME: overrides ui.theme
//   - RAGBENCH_TELEMETRY: set to "0" or "false" to disable telemetry
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("RAGBENCH_BACKEND_URL"); base != "" {
		c.Backend.BaseURL = base
	}

	if model := os.Getenv("RAGBENCH_MODEL"); model != "" {
		c.Backend.DefaultModel = model
	}

	if kb := os.Getenv("RAGBENCH_KNOWLEDGE_BASE"); kb != "" {
		c.Backend.DefaultKnowledgeBase = kb
	}

	if theme := os.Getenv("RAGBENCH_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if telemetry := os.Getenv("RAGBENCH_TELEMETRY"); telemetry != "" {
		c.Telemetry.Enabled = telemetry != "0" && strings.ToLower(telemetry) != "false"
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "backend.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		// If this is the last part, return the value
		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "backend.base_url").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		// If this is the last part, set the value
		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// Handle string input with type conversion
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	// Direct assignment for matching types
	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	// Type conversion for compatible types
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"backend.base_url",
		"backend.timeout_secs",
		"backend.upload_timeout_secs",
		"backend.default_model",
		"backend.default_knowledge_base",
		"backend.requests_per_second",
		"attachments.max_document_mb",
		"attachments.process_on_attach",
		"ui.theme",
		"ui.show_references",
		"ui.show_stats",
		"ui.compact_mode",
		"ui.render_markdown",
		"telemetry.enabled",
		"telemetry.db_path",
	}
}

// Merge merges another config into this one, overwriting only non-zero values.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Version != "" {
		c.Version = other.Version
	}

	// Backend
	if other.Backend.BaseURL != "" {
		c.Backend.BaseURL = other.Backend.BaseURL
	}
	if other.Backend.TimeoutSecs != 0 {
		c.Backend.TimeoutSecs = other.Backend.TimeoutSecs
	}
	if other.Backend.UploadTimeoutSecs != 0 {
		c.Backend.UploadTimeoutSecs = other.Backend.UploadTimeoutSecs
	}
	if other.Backend.DefaultModel != "" {
		c.Backend.DefaultModel = other.Backend.DefaultModel
	}
	if other.Backend.DefaultKnowledgeBase != "" {
		c.Backend.DefaultKnowledgeBase = other.Backend.DefaultKnowledgeBase
	}
	if other.Backend.RequestsPerSecond != 0 {
		c.Backend.RequestsPerSecond = other.Backend.RequestsPerSecond
	}

	// Attachments
	if other.Attachments.MaxDocumentMB != 0 {
		c.Attachments.MaxDocumentMB = other.Attachments.MaxDocumentMB
	}
	if other.Attachments.ProcessOnAttach {
		c.Attachments.ProcessOnAttach = true
	}

	// UI
	if other.UI.Theme != "" {
		c.UI.Theme = other.UI.Theme
	}
	if other.UI.ShowReferences {
		c.UI.ShowReferences = true
	}
	if other.UI.ShowStats {
		c.UI.ShowStats = true
	}
	if other.UI.CompactMode {
		c.UI.CompactMode = true
	}
	if other.UI.RenderMarkdown {
		c.UI.RenderMarkdown = true
	}

	// Telemetry
	if other.Telemetry.Enabled {
		c.Telemetry.Enabled = true
	}
	if other.Telemetry.DBPath != "" {
		c.Telemetry.DBPath = other.Telemetry.DBPath
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// StatsDBPath returns the telemetry database path, applying the default
// location when unset.
func (c *Config) StatsDBPath() (string, error) {
	if c.Telemetry.DBPath != "" {
		return c.Telemetry.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stats.db"), nil
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
