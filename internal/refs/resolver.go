// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package refs resolves inline citation markers against reference records.
package refs

import (
	"strconv"

	"github.com/jeranaias/ragbench-tui/internal/backend"
)

// =============================================================================
// SPAN TYPE
// =============================================================================

// SpanKind distinguishes plain text from citation markers.
type SpanKind int

const (
	// SpanText is a run of ordinary text.
	SpanText SpanKind = iota
	// SpanCitation is an inline [k] marker, resolved or not.
	SpanCitation
)

// Span is one segment of resolved message text. Concatenating the Text of
// all spans reproduces the input exactly.
type Span struct {
	Kind SpanKind
	Text string

	// Citation fields, set only for SpanCitation
	Index    int                // the k in [k]
	Resolved bool               // a matching reference record exists
	Ref      *backend.Reference // nil when unresolved
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve splits text into spans, turning each [k] marker into a citation
// span. Markers resolve against the reference whose ID equals k; markers
// with no matching record become unresolved citation spans but keep their
// literal text. Bracketed runs that are not positive integers ("[abc]",
// "[]", "[1.5]") stay plain text.
//
// Resolve is a pure function of its inputs and never mutates refs.
func Resolve(text string, references []backend.Reference) []Span {
	byID := make(map[int]*backend.Reference, len(references))
	for i := range references {
		byID[references[i].ID] = &references[i]
	}

	var spans []Span
	textStart := 0

	flush := func(end int) {
		if end > textStart {
			spans = append(spans, Span{Kind: SpanText, Text: text[textStart:end]})
		}
	}

	for i := 0; i < len(text); {
		if text[i] != '[' {
			i++
			continue
		}

		index, end, ok := parseMarker(text, i)
		if !ok {
			i++
			continue
		}

		flush(i)
		span := Span{
			Kind:  SpanCitation,
			Text:  text[i:end],
			Index: index,
		}
		if ref, found := byID[index]; found {
			span.Resolved = true
			span.Ref = ref
		}
		spans = append(spans, span)

		i = end
		textStart = end
	}

	flush(len(text))
	return spans
}

// parseMarker parses a [k] marker starting at the opening bracket.
// Returns the marker number, the index past the closing bracket, and
// whether the bracketed run is a well-formed positive integer.
func parseMarker(text string, start int) (index, end int, ok bool) {
	i := start + 1
	digitStart := i
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == digitStart || i >= len(text) || text[i] != ']' {
		return 0, 0, false
	}

	n, err := strconv.Atoi(text[digitStart:i])
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return n, i + 1, true
}

// =============================================================================
// HELPERS
// =============================================================================

// Citations returns the distinct resolved references in first-use order.
func Citations(spans []Span) []backend.Reference {
	seen := make(map[int]bool)
	var out []backend.Reference
	for _, s := range spans {
		if s.Kind != SpanCitation || !s.Resolved || seen[s.Index] {
			continue
		}
		seen[s.Index] = true
		out = append(out, *s.Ref)
	}
	return out
}

// Unresolved returns the marker numbers that had no matching reference,
// in first-use order.
func Unresolved(spans []Span) []int {
	seen := make(map[int]bool)
	var out []int
	for _, s := range spans {
		if s.Kind != SpanCitation || s.Resolved || seen[s.Index] {
			continue
		}
		seen[s.Index] = true
		out = append(out, s.Index)
	}
	return out
}

// PlainText reassembles the original text from spans.
func PlainText(spans []Span) string {
	n := 0
	for _, s := range spans {
		n += len(s.Text)
	}
	buf := make([]byte, 0, n)
	for _, s := range spans {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}
