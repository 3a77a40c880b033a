// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler for ragbench CLI.
//
// USABILITY: Markdown rendering for better CLI experience
//
// Handles the "ragbench ask" command which sends a single question to the
// workbench backend and streams the answer to stdout.
//
// Command: ask [question]
// Short:   Ask a single question
// Aliases: (none)
//
// Examples:
//   ragbench ask "Summarize the Q3 report"
//   ragbench ask "What does this chart show?" --file chart.png
//   ragbench ask "Key findings?" --file report.pdf
//   ragbench ask --json "List the action items"
//   cat notes.txt | ragbench ask
//
// Flags:
//   -f, --file PATH     Attach a file (repeatable; image, audio, or
//                       document by extension)
//   -m, --model NAME    Use specific model (overrides config)
//   -k, --kb NAME       Use specific knowledge base (overrides config)
//   --json              Output response as JSON
//   -v, --verbose       Verbose output
//   -q, --quiet         Minimal output
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragbench-tui/internal/chat"
	"github.com/jeranaias/ragbench-tui/internal/refs"
	"github.com/jeranaias/ragbench-tui/internal/telemetry"
	"github.com/jeranaias/ragbench-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for markdown output.
// USABILITY: Renders markdown responses with syntax highlighting and formatting.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse displays a response with markdown rendering when appropriate.
// Only renders markdown when stdout is a TTY to avoid corrupting piped output.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
	} else {
		fmt.Print(response)
	}
}

// =============================================================================
// STYLES
// =============================================================================

var (
	// Separator style
	separatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)

	// Summary label style
	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(styles.TextSecondary)

	// Summary value style
	summaryValueStyle = lipgloss.NewStyle().
				Foreground(styles.Emerald)

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	// Attachment notice style
	attachStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan)
)

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAskCommand handles the "ask" command: one question, streamed answer.
// Attachments are staged first so a failed file aborts before any send.
func HandleAskCommand(args Args) error {
	// The question comes from positional args, or from piped stdin
	question := args.Query
	if question == "" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			reader := bufio.NewReader(os.Stdin)
			stdinData, err := io.ReadAll(reader)
			if err == nil && len(stdinData) > 0 {
				question = strings.TrimSpace(string(stdinData))
				if !args.Quiet && !args.JSON {
					fmt.Fprintf(os.Stderr, "%s Read question from stdin (%d bytes)\n",
						attachStyle.Render("[+]"),
						len(stdinData))
				}
			}
		}
	}

	if question == "" && len(args.Files) == 0 {
		err := fmt.Errorf("no question provided. Usage: ragbench ask \"your question\"")
		if args.JSON {
			resp := NewJSONErrorResponse("ask", err)
			resp.Print()
		}
		return err
	}

	session := NewChatSession(args)
	if session.Store != nil {
		defer session.Store.Close()
	}
	if args.JSON {
		// Progress lines would corrupt the JSON document
		session.Pipeline.SetNotifier(&stagingNotifier{quiet: true})
	}

	ctx := context.Background()

	// Stage attachments up front. Audio is transcribed and documents are
	// chunked here, so backend failures surface before the question is sent.
	for _, path := range args.Files {
		kind, err := attachFile(ctx, session.Controller, path)
		if err != nil {
			if args.JSON {
				resp := NewJSONErrorResponse("ask", err)
				resp.Print()
			}
			return fmt.Errorf("failed to attach %s: %w", path, err)
		}
		if !args.Quiet && !args.JSON {
			fmt.Fprintf(os.Stderr, "%s Attached %s: %s\n",
				attachStyle.Render("[+]"),
				kind,
				path)
		}
	}

	// USABILITY: Render markdown on TTY for better formatting, stream plain
	// for pipes. JSON mode collects silently.
	useMarkdown := IsStdoutTTY() && !args.JSON
	attachments := session.Pipeline.Count()
	session.Listener.reset()

	if !args.Quiet && !args.JSON {
		fmt.Println() // Space before response
	}

	startTime := time.Now()
	if err := session.Controller.Send(ctx, question); err != nil {
		if args.JSON {
			resp := NewJSONErrorResponse("ask", err)
			resp.Print()
		}
		return err
	}

	var terminal chat.State
	if useMarkdown || args.JSON {
		terminal = <-session.Listener.done
	} else {
		terminal = echoDeltas(session)
	}
	duration := time.Since(startTime)

	conv := session.Controller.Conversation()
	msg := conv.GetLastAssistantMessage()
	if msg == nil {
		err := fmt.Errorf("stream produced no message")
		if args.JSON {
			resp := NewJSONErrorResponse("ask", err)
			resp.Print()
		}
		return err
	}

	session.Tracker.RecordStream(telemetry.StreamRecord{
		Model:         conv.Model,
		KnowledgeBase: conv.KnowledgeBase,
		Prompt:        question,
		Outcome:       outcomeForState(terminal),
		TTFTMs:        msg.TTFT.Milliseconds(),
		DurationMs:    msg.TotalDuration.Milliseconds(),
		Tokens:        msg.TokenCount,
		TokensPerS:    msg.TokensPerSec,
		Attachments:   attachments,
		References:    len(msg.References),
	})

	if terminal == chat.StateFailed {
		err := fmt.Errorf("%s", strings.TrimPrefix(msg.TextContent(), "Error: "))
		if args.JSON {
			resp := NewJSONErrorResponse("ask", err)
			resp.Print()
		}
		return err
	}

	// JSON output mode
	if args.JSON {
		text := msg.TextContent()
		spans := refs.Resolve(text, msg.References)
		data := AskData{
			Response:      text,
			Model:         conv.Model,
			KnowledgeBase: conv.KnowledgeBase,
			Tokens:        msg.TokenCount,
			TokensPerSec:  msg.TokensPerSec,
			TTFTMs:        msg.TTFT.Milliseconds(),
			DurationMs:    duration.Milliseconds(),
			Attachments:   attachments,
			References:    refs.Citations(spans),
		}
		if len(data.References) == 0 {
			data.References = msg.References
		}
		resp := NewJSONResponse("ask", data)
		return resp.Print()
	}

	// USABILITY: Display response with markdown rendering when on TTY
	if useMarkdown {
		displayAnswer(msg)
	} else if len(msg.References) > 0 {
		displayAnswerReferences(msg)
	}

	fmt.Println()

	// Show summary line (unless --quiet)
	if !args.Quiet {
		displayAskSummary(msg.TokenCount, msg.TokensPerSec, len(msg.References), duration)
	}

	return nil
}

// displayAskSummary shows the final summary after a response.
func displayAskSummary(tokens int, tokensPerSec float64, references int, duration time.Duration) {
	separator := strings.Repeat("─", 45)
	fmt.Fprintln(os.Stderr, separatorStyle.Render(separator))

	fmt.Fprintf(os.Stderr, "%s %s | %s %v",
		summaryLabelStyle.Render("Tokens:"),
		summaryValueStyle.Render(formatNumber(tokens)),
		summaryLabelStyle.Render("Time:"),
		duration.Round(time.Millisecond))

	if tokensPerSec > 0 {
		fmt.Fprintf(os.Stderr, " | %s %.1f tok/s",
			summaryLabelStyle.Render("Speed:"),
			tokensPerSec)
	}
	if references > 0 {
		fmt.Fprintf(os.Stderr, " | %s %d",
			summaryLabelStyle.Render("Refs:"),
			references)
	}

	fmt.Fprintln(os.Stderr)
}

// formatNumber formats an integer with commas for thousands.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Simple comma formatting
	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+len(s)/3)

	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}

	return string(result)
}
