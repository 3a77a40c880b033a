// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Tests for CLI parsing: Parse(), ArgParser, exit code mapping, and the
// small classification helpers the commands share.
package cli

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jeranaias/ragbench-tui/internal/model"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"recent"},
			wantSub: "recent",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"recent", "--limit", "50"},
			wantSub: "recent",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("limit") != "50" {
					t.Errorf("Flag(limit) = %q, want %q", p.Flag("limit"), "50")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"trends", "--days=30"},
			wantSub: "trends",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("days") != "30" {
					t.Errorf("Flag(days) = %q, want %q", p.Flag("days"), "30")
				}
			},
		},
		{
			name:    "boolean flag",
			args:    []string{"summary", "--json"},
			wantSub: "summary",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:    "explicit boolean flag value",
			args:    []string{"summary", "--json=false"},
			wantSub: "summary",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be false")
				}
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"what", "is", "vector", "search"},
			wantSub: "what",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 4 {
					t.Errorf("PositionalCount() = %d, want 4", p.PositionalCount())
				}
				joined := strings.Join(p.PositionalFrom(0), " ")
				if joined != "what is vector search" {
					t.Errorf("PositionalFrom(0) joined = %q, want %q", joined, "what is vector search")
				}
			},
		},
		{
			name:    "mixed flags and positional",
			args:    []string{"get", "--model", "gpt-4o-mini", "backend.base_url"},
			wantSub: "get",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("model") != "gpt-4o-mini" {
					t.Errorf("Flag(model) = %q, want %q", p.Flag("model"), "gpt-4o-mini")
				}
				if p.Positional(1) != "backend.base_url" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "backend.base_url")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			if parser.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", parser.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		flagName   string
		defaultVal int
		want       int
	}{
		{
			name:       "flag present",
			args:       []string{"recent", "--limit", "10"},
			flagName:   "limit",
			defaultVal: 20,
			want:       10,
		},
		{
			name:       "flag missing uses default",
			args:       []string{"recent"},
			flagName:   "limit",
			defaultVal: 20,
			want:       20,
		},
		{
			name:       "invalid int uses default",
			args:       []string{"recent", "--limit", "abc"},
			flagName:   "limit",
			defaultVal: 20,
			want:       20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			got := parser.FlagIntOrDefault(tt.flagName, tt.defaultVal)
			if got != tt.want {
				t.Errorf("FlagIntOrDefault(%q, %d) = %d, want %d", tt.flagName, tt.defaultVal, got, tt.want)
			}
		})
	}
}

func TestArgParser_HasFlag(t *testing.T) {
	parser := NewArgParser([]string{"recent", "--json", "--limit", "50"})

	if !parser.HasFlag("json") {
		t.Error("HasFlag(json) should be true")
	}
	if !parser.HasFlag("limit") {
		t.Error("HasFlag(limit) should be true")
	}
	if parser.HasFlag("nonexistent") {
		t.Error("HasFlag(nonexistent) should be false")
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	parser := NewArgParser([]string{})
	if parser.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", parser.Subcommand())
	}
	if parser.PositionalCount() != 0 {
		t.Errorf("PositionalCount() = %d, want 0", parser.PositionalCount())
	}
}

func TestArgParser_OnlyFlags(t *testing.T) {
	parser := NewArgParser([]string{"--verbose", "--json"})
	if parser.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", parser.Subcommand())
	}
	if !parser.BoolFlag("verbose") {
		t.Error("BoolFlag(verbose) should be true")
	}
	if !parser.BoolFlag("json") {
		t.Error("BoolFlag(json) should be true")
	}
}

func TestArgParser_FlagOrDefault(t *testing.T) {
	parser := NewArgParser([]string{"cmd", "--present", "value"})

	if parser.FlagOrDefault("present", "default") != "value" {
		t.Error("FlagOrDefault should return actual value when present")
	}
	if parser.FlagOrDefault("missing", "default") != "default" {
		t.Error("FlagOrDefault should return default when missing")
	}
}

// =============================================================================
// PARSE BOOL STRING TESTS
// =============================================================================

func TestParseBoolString(t *testing.T) {
	trueValues := []string{"true", "TRUE", "True", "yes", "YES", "y", "Y", "1", "on", "ON"}
	falseValues := []string{"false", "FALSE", "False", "no", "NO", "n", "N", "0", "off", "OFF"}

	for _, v := range trueValues {
		t.Run("true_"+v, func(t *testing.T) {
			got, err := ParseBoolString(v)
			if err != nil {
				t.Errorf("ParseBoolString(%q) error = %v", v, err)
			}
			if !got {
				t.Errorf("ParseBoolString(%q) = false, want true", v)
			}
		})
	}

	for _, v := range falseValues {
		t.Run("false_"+v, func(t *testing.T) {
			got, err := ParseBoolString(v)
			if err != nil {
				t.Errorf("ParseBoolString(%q) error = %v", v, err)
			}
			if got {
				t.Errorf("ParseBoolString(%q) = true, want false", v)
			}
		})
	}

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseBoolString("maybe")
		if err == nil {
			t.Error("ParseBoolString(maybe) should error")
		}
	})
}

// =============================================================================
// PARSE INT WITH VALIDATION TESTS
// =============================================================================

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		field   string
		want    int
		wantErr bool
	}{
		{"valid positive", "42", "count", 42, false},
		{"valid one", "1", "count", 1, false},
		{"zero is invalid", "0", "count", 0, true},
		{"negative is invalid", "-5", "count", 0, true},
		{"empty is invalid", "", "count", 0, true},
		{"non-numeric is invalid", "abc", "count", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntWithValidation(tt.input, tt.field)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseIntWithValidation(%q, %q) error = %v, wantErr %v", tt.input, tt.field, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseIntWithValidation(%q, %q) = %d, want %d", tt.input, tt.field, got, tt.want)
			}
		})
	}
}

// =============================================================================
// INTEGRATION-STYLE TESTS (testing Parse() with os.Args simulation)
// =============================================================================

// TestParse_Integration tests the actual Parse() function by temporarily
// modifying os.Args. This is an integration test of the full CLI parsing.
func TestParse_Integration(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	tests := []struct {
		name        string
		args        []string
		wantCommand Command
		validate    func(*testing.T, Args)
	}{
		{
			name:        "no args defaults to TUI",
			args:        []string{"ragbench"},
			wantCommand: CmdTUI,
		},
		{
			name:        "ask command",
			args:        []string{"ragbench", "ask", "What", "is", "vector", "search?"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Query != "What is vector search?" {
					t.Errorf("Query = %q, want %q", a.Query, "What is vector search?")
				}
			},
		},
		{
			name:        "ask with model flag",
			args:        []string{"ragbench", "ask", "--model", "gpt-4o-mini", "Hello"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Model != "gpt-4o-mini" {
					t.Errorf("Model = %q, want %q", a.Model, "gpt-4o-mini")
				}
				if a.Query != "Hello" {
					t.Errorf("Query = %q, want %q", a.Query, "Hello")
				}
			},
		},
		{
			name:        "ask with repeated file flags",
			args:        []string{"ragbench", "ask", "-f", "chart.png", "--file", "report.pdf", "Summarize"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if len(a.Files) != 2 {
					t.Fatalf("Files = %v, want 2 entries", a.Files)
				}
				if a.Files[0] != "chart.png" || a.Files[1] != "report.pdf" {
					t.Errorf("Files = %v, want [chart.png report.pdf]", a.Files)
				}
			},
		},
		{
			name:        "ask with kb override",
			args:        []string{"ragbench", "ask", "--kb=research", "Question"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.KnowledgeBase != "research" {
					t.Errorf("KnowledgeBase = %q, want %q", a.KnowledgeBase, "research")
				}
			},
		},
		{
			name:        "ask with quiet flag",
			args:        []string{"ragbench", "-q", "ask", "Question"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if !a.Quiet {
					t.Error("Quiet should be true")
				}
			},
		},
		{
			name:        "chat command",
			args:        []string{"ragbench", "chat"},
			wantCommand: CmdChat,
		},
		{
			name:        "chat with model",
			args:        []string{"ragbench", "chat", "--model", "gpt-4o-mini"},
			wantCommand: CmdChat,
			validate: func(t *testing.T, a Args) {
				if a.Model != "gpt-4o-mini" {
					t.Errorf("Model = %q, want %q", a.Model, "gpt-4o-mini")
				}
			},
		},
		{
			name:        "status command",
			args:        []string{"ragbench", "status"},
			wantCommand: CmdStatus,
		},
		{
			name:        "status alias",
			args:        []string{"ragbench", "s"},
			wantCommand: CmdStatus,
		},
		{
			name:        "models command",
			args:        []string{"ragbench", "models"},
			wantCommand: CmdModels,
		},
		{
			name:        "kb alias",
			args:        []string{"ragbench", "kbs"},
			wantCommand: CmdKnowledgeBases,
		},
		{
			name:        "stats with subcommand",
			args:        []string{"ragbench", "stats", "recent", "--limit", "5"},
			wantCommand: CmdStats,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "recent" {
					t.Errorf("Subcommand = %q, want %q", a.Subcommand, "recent")
				}
			},
		},
		{
			name:        "config set",
			args:        []string{"ragbench", "config", "set", "backend.default_model", "gpt-4o-mini"},
			wantCommand: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" {
					t.Errorf("Subcommand = %q, want %q", a.Subcommand, "set")
				}
				if a.ConfigKey != "backend.default_model" {
					t.Errorf("ConfigKey = %q, want %q", a.ConfigKey, "backend.default_model")
				}
				if a.ConfigVal != "gpt-4o-mini" {
					t.Errorf("ConfigVal = %q, want %q", a.ConfigVal, "gpt-4o-mini")
				}
			},
		},
		{
			name:        "doctor command",
			args:        []string{"ragbench", "doctor"},
			wantCommand: CmdDoctor,
		},
		{
			name:        "help command",
			args:        []string{"ragbench", "help"},
			wantCommand: CmdHelp,
		},
		{
			name:        "version flag",
			args:        []string{"ragbench", "--version"},
			wantCommand: CmdVersion,
		},
		{
			name:        "backend url override",
			args:        []string{"ragbench", "status", "--backend", "http://10.0.0.5:8000"},
			wantCommand: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if a.BackendURL != "http://10.0.0.5:8000" {
					t.Errorf("BackendURL = %q, want %q", a.BackendURL, "http://10.0.0.5:8000")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cmd, args := Parse()

			if cmd != tt.wantCommand {
				t.Errorf("Command = %v, want %v", cmd, tt.wantCommand)
			}

			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

// =============================================================================
// EXIT CODE TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},
		{"generic error", errors.New("something broke"), ExitGeneralError},
		{"validation error", &ValidationError{Field: "limit", Reason: "must be positive"}, ExitUsageError},
		{"wrapped validation error", WrapError(&ValidationError{Field: "days"}, "stats"), ExitUsageError},
		{"not found error", &NotFoundError{Resource: "attachment", ID: "3"}, ExitNotFoundError},
		{"config error", errors.New("failed to load configuration"), ExitConfigError},
		{"rejected by backend", errors.New("backend rejected the request: unsupported file type"), ExitRejectedError},
		{"file too large", errors.New("file size exceeds maximum of 50 MB"), ExitRejectedError},
		{"timed out", errors.New("request timed out after 120s"), ExitTimeoutError},
		{"deadline exceeded", errors.New("context deadline exceeded"), ExitTimeoutError},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8000: connection refused"), ExitNetworkError},
		{"unreachable", errors.New("backend unreachable"), ExitNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorTypes(t *testing.T) {
	t.Run("command error wraps", func(t *testing.T) {
		underlying := errors.New("boom")
		err := NewCommandError("stats", "prune", "delete failed", underlying)
		if !errors.Is(err, underlying) {
			t.Error("CommandError should unwrap to the underlying error")
		}
		if !strings.Contains(err.Error(), "stats prune failed") {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("validation error message", func(t *testing.T) {
		err := NewValidationErrorWithExample("keep-days", "0", "must be at least 1", "--keep-days 90")
		msg := err.Error()
		if !strings.Contains(msg, "invalid keep-days") {
			t.Errorf("unexpected message: %s", msg)
		}
		if !strings.Contains(msg, "--keep-days 90") {
			t.Errorf("example missing from message: %s", msg)
		}
	})

	t.Run("not found error message", func(t *testing.T) {
		err := NewNotFoundError("model", "gpt-9")
		if err.Error() != "model not found: gpt-9" {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})
}

// =============================================================================
// CONFIG KEY NORMALIZATION (config.go)
// =============================================================================

func TestNormalizeConfigKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"backend.base_url", "backend.base_url"},
		{"Backend.Base_URL", "backend.base_url"},
		{"backend_base_url", "backend.base_url"},
		{"attachments_max_document_mb", "attachments.max_document_mb"},
		{"ui_show_references", "ui.show_references"},
		{"telemetry_enabled", "telemetry.enabled"},
		{"  backend.default_model  ", "backend.default_model"},
		{"version", "version"},
		{"unknown_section_key", "unknown_section_key"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeConfigKey(tt.in); got != tt.want {
				t.Errorf("normalizeConfigKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// ATTACHMENT CLASSIFICATION (chat.go)
// =============================================================================

func TestClassifyAttachment(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"chart.png", "image"},
		{"photo.JPG", "image"},
		{"scan.webp", "image"},
		{"meeting.wav", "audio"},
		{"call.mp3", "audio"},
		{"demo.mp4", "audio"},
		{"report.pdf", "document"},
		{"notes.md", "document"},
		{"readme.TXT", "document"},
		{"archive.zip", ""},
		{"noextension", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := classifyAttachment(tt.path); got != tt.want {
				t.Errorf("classifyAttachment(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// =============================================================================
// FORMATTING HELPERS (helpers.go, ask.go)
// =============================================================================

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 bytes"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}

	for _, tt := range tests {
		if got := formatNumber(tt.n); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestReplListenerTracksSnapshotText(t *testing.T) {
	l := newReplListener()
	msg := model.NewAssistantMessage()

	msg.AppendDelta("hel")
	l.MessageUpdated(msg.StreamSnapshot())
	if got := l.snapshotText(); got != "hel" {
		t.Errorf("snapshotText() = %q, want %q", got, "hel")
	}

	msg.AppendDelta("lo")
	l.MessageUpdated(msg.StreamSnapshot())
	if got := l.snapshotText(); got != "hello" {
		t.Errorf("snapshotText() = %q, want %q", got, "hello")
	}

	l.reset()
	if got := l.snapshotText(); got != "" {
		t.Errorf("snapshotText() after reset = %q, want empty", got)
	}
}

func TestHandleAskCommandRequiresQuestion(t *testing.T) {
	err := HandleAskCommand(Args{})
	if err == nil {
		t.Fatal("expected error for empty question")
	}
	if !strings.Contains(err.Error(), "no question") {
		t.Errorf("error %q should explain the missing question", err)
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkArgParser_Simple(b *testing.B) {
	args := []string{"recent", "--limit", "20"}
	for i := 0; i < b.N; i++ {
		NewArgParser(args)
	}
}

func BenchmarkArgParser_ManyFlags(b *testing.B) {
	args := []string{
		"cmd",
		"--flag1", "value1",
		"--flag2", "value2",
		"--flag3", "value3",
		"--bool1",
		"--bool2",
		"positional1",
		"positional2",
	}
	for i := 0; i < b.N; i++ {
		NewArgParser(args)
	}
}
