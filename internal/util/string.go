// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the ragbench application.
package util

// Rune-aware truncation helpers. Everything here counts characters or
// display columns, never bytes, so multi-byte UTF-8 text is never cut
// mid-character.

// TruncateRunes shortens s to at most maxRunes characters, appending
// "..." when something was removed. Very small budgets (3 or fewer)
// skip the ellipsis since it would swallow the whole result.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateRunesNoEllipsis is TruncateRunes without the trailing marker.
func TruncateRunesNoEllipsis(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// TruncateWidth shortens s to at most maxWidth display columns, where
// CJK characters occupy two. The UI layer uses go-runewidth for exact
// measurement; this covers the common ranges for plain CLI output.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	runes := []rune(s)
	width := 0
	for i, r := range runes {
		charWidth := runeWidth(r)
		if width+charWidth > maxWidth {
			if maxWidth >= 3 && width >= 3 {
				return string(runes[:i]) + "..."
			}
			return string(runes[:i])
		}
		width += charWidth
	}
	return s
}

// SafeSubstring slices s by rune indices. Out-of-range bounds are
// clamped instead of panicking.
func SafeSubstring(s string, start, end int) string {
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		return ""
	}
	if end < 0 || end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// StringWidth returns the display width of s in terminal columns.
func StringWidth(s string) int {
	width := 0
	for _, r := range s {
		width += runeWidth(r)
	}
	return width
}

// runeWidth returns 2 for characters in the common double-width
// Unicode blocks and 1 otherwise.
func runeWidth(r rune) int {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return 2
	case r >= 0x3400 && r <= 0x4DBF: // CJK Extension A
		return 2
	case r >= 0x3040 && r <= 0x309F: // Hiragana
		return 2
	case r >= 0x30A0 && r <= 0x30FF: // Katakana
		return 2
	case r >= 0xAC00 && r <= 0xD7AF: // Hangul Syllables
		return 2
	case r >= 0xFF00 && r <= 0xFFEF: // Fullwidth Forms
		return 2
	}
	return 1
}

// RuneLen counts characters rather than bytes.
func RuneLen(s string) int {
	return len([]rune(s))
}
