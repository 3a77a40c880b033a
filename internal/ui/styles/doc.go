// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ragbench TUI.

This package defines the color palette, theme, and animation primitives
used throughout the application. All colors use Lip Gloss AdaptiveColor
for automatic light/dark terminal detection.

# Color System (colors.go)

Primary accent colors:

  - Purple - Primary accent for assistant messages
  - Cyan - Brand color for info, commands, and citation markers
  - Emerald - Success states and processed attachments
  - Amber - Warnings, pending attachments, unresolved citations
  - Rose - Errors and failed streams

Hierarchical text colors:

	TextPrimary   - Main content text
	TextSecondary - Supporting text
	TextMuted     - De-emphasized text
	TextInverse   - Text on colored backgrounds

# Theme System (theme.go)

The Theme struct provides runtime color adaptation and holds every style
the chat view renders with:

	theme := styles.NewTheme()
	if theme.IsDark {
		// Dark terminal detected
	}

# Animation System (animations.go)

Pre-defined spinner styles (LineSpinner, DotsSpinner, PulseSpinner) plus
RenderProgressBar for the document processing bar.

# Usage Example

	import "github.com/jeranaias/ragbench-tui/internal/ui/styles"

	headerStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary)
*/
package styles
