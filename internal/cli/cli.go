// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for ragbench.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdStatus
	CmdModels
	CmdKnowledgeBases
	CmdStats
	CmdConfig
	CmdDoctor
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool // Output in JSON format

	// Backend selection overrides
	Model         string
	KnowledgeBase string
	BackendURL    string

	// Command-specific
	Query      string
	Files      []string // Attachments for ask/chat
	ConfigKey  string
	ConfigVal  string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string

	// Options holds command-specific named options (e.g., --days, --format)
	Options map[string]string
}

const usageText = `ragbench - terminal client for the RAG workbench

Ragbench is a terminal front-end for a retrieval-augmented chat backend.

It provides:
  - Streaming chat with inline [n] citations
  - Image, audio, and document attachments
  - Server-side document chunking with live progress
  - Local session statistics (never uploaded)

Usage:
  ragbench                    Start TUI (default)
  ragbench ask "question"     Ask a single question
  ragbench chat               Interactive chat
  ragbench status, s          Show backend status
  ragbench models             List available models
  ragbench kb, kbs            List knowledge bases
  ragbench stats [subcommand] Local usage statistics
  ragbench config [show|get|set|path] Configuration
  ragbench doctor             Connectivity and config diagnostics
  ragbench version            Show version

Ask Command:
  ragbench ask "question"           Single question, streamed answer
    -f, --file PATH                 Attach a file (repeatable; image,
                                    audio, or document by extension)
    -m, --model NAME                Override model
    -k, --kb NAME                   Override knowledge base
    --json                          Structured output with references

Stats Commands:
  ragbench stats                    Current session summary
  ragbench stats recent             Recent streams
    --limit N                       Show last N streams (default: 20)
  ragbench stats trends             Per-day throughput
    --days N                        Trailing window (default: 7)
  ragbench stats prune              Delete old records
    --keep-days N                   Retention window (default: 90)

Config Commands:
  ragbench config show              Show effective configuration
  ragbench config get KEY           Get one value (dot notation)
  ragbench config set KEY VALUE     Set and save one value
  ragbench config path              Show config file location

Global Flags:
  -q, --quiet     Minimal output
  -v, --verbose   Debug output
  --json          Output in JSON format
  --model NAME    Override default model
  --kb NAME       Override default knowledge base
  --backend URL   Override backend base URL

Interactive Commands (during chat):
  /help, /h           Show available commands
  /clear, /c          Clear conversation history
  /model [name]       Show or switch model
  /kb [name]          Show or switch knowledge base
  /attach PATH        Stage a file for the next message
  /detach N           Remove a staged attachment
  /attachments        List staged attachments
  /refs               Show citations from the last answer
  /stats, /s          Show session statistics
  /history            Show conversation history
  /quit, /q           Exit chat
  Ctrl+C              Cancel current stream
  Ctrl+D              Exit chat

Examples:
  ragbench                                  Start TUI interface
  ragbench ask "Summarize the Q3 report"    Single question
  ragbench ask "What does this show?" --file chart.png
  ragbench ask "Key findings?" --file report.pdf
  ragbench chat --model gpt-4o-mini         Chat with specific model
  ragbench chat --kb research               Chat against a knowledge base
  ragbench status                           Check backend connectivity
  ragbench stats trends --days 30           Monthly throughput
  ragbench config set backend.default_model gpt-4o-mini

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("ragbench version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	// Parse global flags first
	remaining, parsedArgs := parseGlobalFlags(args)

	// If no remaining args, default to TUI
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	// Check first argument for command
	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		parseChatArgs(&parsedArgs, remaining)
		return CmdChat, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "models", "model":
		return CmdModels, parsedArgs

	case "kb", "kbs", "knowledge-bases":
		return CmdKnowledgeBases, parsedArgs

	case "stats", "statistics":
		parseStatsArgs(&parsedArgs, remaining)
		return CmdStats, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "doctor":
		return CmdDoctor, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command - could be a direct prompt, default to TUI
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		return CmdTUI, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		case "--kb", "--knowledge-base":
			if i+1 < len(args) {
				i++
				parsedArgs.KnowledgeBase = args[i]
			}
		case "--backend":
			if i+1 < len(args) {
				i++
				parsedArgs.BackendURL = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--model="):
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--kb="):
				parsedArgs.KnowledgeBase = strings.TrimPrefix(arg, "--kb=")
			case strings.HasPrefix(arg, "--backend="):
				parsedArgs.BackendURL = strings.TrimPrefix(arg, "--backend=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "-f", "--file":
			if i+1 < len(remaining) {
				i++
				args.Files = append(args.Files, remaining[i])
			}
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		case "-k", "--kb":
			if i+1 < len(remaining) {
				i++
				args.KnowledgeBase = remaining[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--file="):
				args.Files = append(args.Files, strings.TrimPrefix(arg, "--file="))
			case strings.HasPrefix(arg, "--model="):
				args.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--kb="):
				args.KnowledgeBase = strings.TrimPrefix(arg, "--kb=")
			case !strings.HasPrefix(arg, "-"):
				query = append(query, arg)
			}
		}
		i++
	}

	args.Query = strings.Join(query, " ")
}

// parseChatArgs parses chat command specific arguments.
func parseChatArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		case "-k", "--kb":
			if i+1 < len(remaining) {
				i++
				args.KnowledgeBase = remaining[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--model="):
				args.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--kb="):
				args.KnowledgeBase = strings.TrimPrefix(arg, "--kb=")
			}
		}
	}
}

// parseStatsArgs parses stats command specific arguments.
// Detailed flag parsing is done in stats.go with ArgParser.
func parseStatsArgs(args *Args, remaining []string) {
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		args.Subcommand = remaining[0]
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = remaining[2]
		}
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleAsk handles the "ask" command.
// This delegates to the full implementation in ask.go.
func HandleAsk(args Args) {
	if err := HandleAskCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleChat handles the "chat" command.
// This delegates to the full implementation in chat.go.
func HandleChat(args Args) {
	if err := HandleChatCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// NOTE: HandleStatus, HandleModels, HandleKnowledgeBases are in status.go
// NOTE: HandleStats is implemented in stats.go
// NOTE: HandleConfig is implemented in config.go
// NOTE: HandleDoctor is implemented in doctor.go

// HandleVersion handles the "version" command.
func HandleVersion() {
	PrintVersion()
}

// HandleVersionWithJSON handles the "version" command with JSON output support.
func HandleVersionWithJSON(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		resp := NewJSONResponse("version", data)
		resp.Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
