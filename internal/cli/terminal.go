// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - TTY and capability detection for ragbench CLI.
//
// Commands behave differently depending on where their output goes:
// interactive terminals get colors and prompts, piped output gets
// plain text, and CI environments are honored via NO_COLOR. The
// helpers here centralize those decisions.

package cli

import (
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY reports whether stdin is a terminal, i.e. whether interactive
// prompts are possible.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is a terminal. Colored output is
// gated on this.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStderrTTY reports whether stderr is a terminal.
func IsStderrTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// =============================================================================
// TERMINAL WIDTH
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width used for wrapping
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the current terminal width, clamped to
// MinTerminalWidth, or DefaultTerminalWidth when detection fails.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// GetTerminalSize returns the terminal dimensions, or 80x24 when they
// cannot be determined.
func GetTerminalSize() (width, height int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return DefaultTerminalWidth, 24
	}
	return w, h
}

// WrapText word-wraps text to maxWidth columns, preserving existing
// newlines. A non-positive maxWidth falls back to the detected width.
func WrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = GetTerminalWidth()
	}

	// Margin so wrapped lines don't touch the right edge
	if maxWidth > 10 {
		maxWidth -= 2
	}

	var result strings.Builder
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}

		if len(line) <= maxWidth {
			result.WriteString(line)
			continue
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLine := words[0]
		for _, word := range words[1:] {
			if len(currentLine)+1+len(word) <= maxWidth {
				currentLine += " " + word
			} else {
				result.WriteString(currentLine)
				result.WriteString("\n")
				currentLine = word
			}
		}
		result.WriteString(currentLine)
	}

	return result.String()
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled reports whether colored output should be used. The
// decision follows https://no-color.org/: any non-empty NO_COLOR wins,
// then FORCE_COLOR, then stdout TTY detection. Computed once.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorsEnabled = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorsEnabled = true
			return
		}
		colorsEnabled = IsStdoutTTY()
	})
	return colorsEnabled
}

// ForceColorsEnabled overrides color detection. Test hook only.
func ForceColorsEnabled(enabled bool) {
	colorsEnabled = enabled
	colorsEnabledOnce = sync.Once{}
	colorsEnabledOnce.Do(func() {
		colorsEnabled = enabled
	})
}

// GetColorProfile returns the termenv profile to render with: Ascii
// when colors are disabled, otherwise whatever the terminal supports.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// =============================================================================
// INTERACTIVE INPUT
// =============================================================================

// CanPrompt reports whether interactive prompts are possible.
func CanPrompt() bool {
	return IsTTY()
}

// RequiresTTY returns an error naming the operation when stdin is not
// a terminal. Commands needing interactive input call this up front.
func RequiresTTY(operation string) error {
	if !IsTTY() {
		return &TTYRequiredError{Operation: operation}
	}
	return nil
}

// TTYRequiredError is returned when an operation needs a TTY and none
// is available.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	if e.Operation != "" {
		return "stdin is not a terminal; cannot " + e.Operation + " interactively"
	}
	return "stdin is not a terminal; interactive input not available"
}

// =============================================================================
// CAPABILITY SUMMARY
// =============================================================================

// TerminalCapabilities describes what the current terminal supports.
// The doctor command prints this.
type TerminalCapabilities struct {
	IsTTY             bool
	IsStdoutTTY       bool
	IsStderrTTY       bool
	ColorsEnabled     bool
	Width             int
	Height            int
	ColorProfile      termenv.Profile
	SupportsUnicode   bool
	Supports256Color  bool
	SupportsTrueColor bool
}

// GetTerminalCapabilities snapshots the current terminal environment.
func GetTerminalCapabilities() TerminalCapabilities {
	width, height := GetTerminalSize()
	profile := GetColorProfile()

	return TerminalCapabilities{
		IsTTY:             IsTTY(),
		IsStdoutTTY:       IsStdoutTTY(),
		IsStderrTTY:       IsStderrTTY(),
		ColorsEnabled:     ColorsEnabled(),
		Width:             width,
		Height:            height,
		ColorProfile:      profile,
		SupportsUnicode:   profile != termenv.Ascii,
		Supports256Color:  profile >= termenv.ANSI256,
		SupportsTrueColor: profile >= termenv.TrueColor,
	}
}
