// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	// 50 writers using SetGlobal, 50 readers using Global
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Backend.DefaultModel = "test-model"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_GlobalInitialization tests that Global() properly initializes
// the config on first access.
func TestConfig_GlobalInitialization(t *testing.T) {
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Version == "" {
		t.Error("Config version should not be empty")
	}
	if cfg.Backend.BaseURL == "" {
		t.Error("Backend base URL should have a default")
	}
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults pass",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "bad backend URL",
			mutate:  func(c *Config) { c.Backend.BaseURL = "not a url" },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Backend.TimeoutSecs = -1 },
			wantErr: true,
		},
		{
			name:    "document limit above backend cap",
			mutate:  func(c *Config) { c.Attachments.MaxDocumentMB = 100 },
			wantErr: true,
		},
		{
			name:    "unknown theme",
			mutate:  func(c *Config) { c.UI.Theme = "sepia" },
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Backend.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d", cfg.Backend.TimeoutSecs)
	}
	if cfg.Attachments.MaxDocumentMB != 50 {
		t.Errorf("MaxDocumentMB = %d", cfg.Attachments.MaxDocumentMB)
	}
}

// =============================================================================
// LOAD / SAVE ROUND TRIP
// =============================================================================

func TestSaveTOML_LoadTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Backend.DefaultModel = "gpt-4o-mini"
	cfg.Backend.DefaultKnowledgeBase = "research"
	cfg.UI.Theme = "light"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	loaded := &Config{}
	if err := LoadTOML(loaded, path); err != nil {
		t.Fatalf("LoadTOML() error = %v", err)
	}

	if loaded.Backend.DefaultModel != "gpt-4o-mini" {
		t.Errorf("DefaultModel = %q", loaded.Backend.DefaultModel)
	}
	if loaded.Backend.DefaultKnowledgeBase != "research" {
		t.Errorf("DefaultKnowledgeBase = %q", loaded.Backend.DefaultKnowledgeBase)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("Theme = %q", loaded.UI.Theme)
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"backend": {"base_url": "http://10.0.0.5:8000", "default_model": "llama3"}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Backend.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	// Unset fields still get defaults
	if cfg.Backend.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, want default 30", cfg.Backend.TimeoutSecs)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RAGBENCH_BACKEND_URL", "http://envhost:9000")
	t.Setenv("RAGBENCH_MODEL", "env-model")
	t.Setenv("RAGBENCH_KNOWLEDGE_BASE", "env-kb")
	t.Setenv("RAGBENCH_TELEMETRY", "0")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.BaseURL != "http://envhost:9000" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.DefaultModel != "env-model" {
		t.Errorf("DefaultModel = %q", cfg.Backend.DefaultModel)
	}
	if cfg.Backend.DefaultKnowledgeBase != "env-kb" {
		t.Errorf("DefaultKnowledgeBase = %q", cfg.Backend.DefaultKnowledgeBase)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry should be disabled by RAGBENCH_TELEMETRY=0")
	}
}

// =============================================================================
// DOT NOTATION GET/SET
// =============================================================================

func TestGetSet_DotNotation(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("backend.default_model", "mistral"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := cfg.Get("backend.default_model")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "mistral" {
		t.Errorf("Get() = %v, want mistral", got)
	}

	if err := cfg.Set("backend.timeout_secs", "45"); err != nil {
		t.Fatalf("Set() string-to-int error = %v", err)
	}
	if cfg.Backend.TimeoutSecs != 45 {
		t.Errorf("TimeoutSecs = %d, want 45", cfg.Backend.TimeoutSecs)
	}

	if _, err := cfg.Get("backend.no_such_field"); err == nil {
		t.Error("Get() of unknown field should error")
	}
}

func TestGetAllKeys_AllResolvable(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) error = %v", key, err)
		}
	}
}
