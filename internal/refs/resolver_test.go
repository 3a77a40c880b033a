// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package refs resolves inline citation markers against reference records.
package refs

import (
	"testing"

	"github.com/jeranaias/ragbench-tui/internal/backend"
)

func sampleRefs() []backend.Reference {
	return []backend.Reference{
		{ID: 1, Source: "report.pdf", Page: 3, SourceInfo: "report.pdf - Page 3"},
		{ID: 2, Source: "notes.pdf", Page: 1, SourceInfo: "notes.pdf - Page 1"},
	}
}

// =============================================================================
// RESOLVE TESTS
// =============================================================================

func TestResolve_Basic(t *testing.T) {
	spans := Resolve("Revenue grew 12% [1] while costs fell [2].", sampleRefs())

	if len(spans) != 5 {
		t.Fatalf("len(spans) = %d, want 5: %+v", len(spans), spans)
	}
	if spans[0].Kind != SpanText || spans[0].Text != "Revenue grew 12% " {
		t.Errorf("spans[0] = %+v", spans[0])
	}
	if spans[1].Kind != SpanCitation || !spans[1].Resolved || spans[1].Index != 1 {
		t.Errorf("spans[1] = %+v", spans[1])
	}
	if spans[1].Ref == nil || spans[1].Ref.Source != "report.pdf" {
		t.Errorf("spans[1].Ref = %+v", spans[1].Ref)
	}
	if spans[3].Index != 2 || !spans[3].Resolved {
		t.Errorf("spans[3] = %+v", spans[3])
	}
	if spans[4].Text != "." {
		t.Errorf("spans[4] = %+v", spans[4])
	}
}

func TestResolve_Unresolved(t *testing.T) {
	spans := Resolve("Claim [7] has no source.", sampleRefs())

	if len(spans) != 3 {
		t.Fatalf("len(spans) = %d, want 3", len(spans))
	}
	cite := spans[1]
	if cite.Kind != SpanCitation || cite.Resolved || cite.Ref != nil {
		t.Errorf("citation = %+v, want unresolved", cite)
	}
	if cite.Text != "[7]" {
		t.Errorf("unresolved marker text = %q, want literal [7]", cite.Text)
	}
}

func TestResolve_NonNumericBracketsStayText(t *testing.T) {
	tests := []string{
		"array[i] indexing",
		"empty [] brackets",
		"decimal [1.5] value",
		"negative [-1] value",
		"spaced [ 1 ] marker",
		"unterminated [2",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			spans := Resolve(input, sampleRefs())
			for _, s := range spans {
				if s.Kind == SpanCitation {
					t.Errorf("Resolve(%q) produced citation span %+v", input, s)
				}
			}
			if got := PlainText(spans); got != input {
				t.Errorf("PlainText() = %q, want %q", got, input)
			}
		})
	}
}

func TestResolve_ZeroIsNotACitation(t *testing.T) {
	spans := Resolve("marker [0] here", sampleRefs())
	for _, s := range spans {
		if s.Kind == SpanCitation {
			t.Errorf("[0] should not be a citation span: %+v", s)
		}
	}
}

func TestResolve_AdjacentMarkers(t *testing.T) {
	spans := Resolve("see [1][2]", sampleRefs())

	if len(spans) != 3 {
		t.Fatalf("len(spans) = %d, want 3: %+v", len(spans), spans)
	}
	if spans[1].Index != 1 || spans[2].Index != 2 {
		t.Errorf("adjacent markers parsed as %+v, %+v", spans[1], spans[2])
	}
}

func TestResolve_EmptyReferences(t *testing.T) {
	spans := Resolve("text with [1]", nil)

	if len(spans) != 2 {
		t.Fatalf("len(spans) = %d, want 2", len(spans))
	}
	if spans[1].Resolved {
		t.Error("marker should be unresolved with no references")
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"no markers at all",
		"[1] leading and trailing [2]",
		"[1][1][1] repeated",
		"mixed [1] and [bad] and [99]",
	}
	for _, input := range inputs {
		spans := Resolve(input, sampleRefs())
		if got := PlainText(spans); got != input {
			t.Errorf("PlainText(Resolve(%q)) = %q", input, got)
		}
	}
}

func TestResolve_Idempotent(t *testing.T) {
	refs := sampleRefs()
	text := "Revenue [1] and [2] and [9]."

	first := Resolve(text, refs)
	second := Resolve(PlainText(first), refs)

	if len(first) != len(second) {
		t.Fatalf("span counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind != second[i].Kind || first[i].Text != second[i].Text ||
			first[i].Index != second[i].Index || first[i].Resolved != second[i].Resolved {
			t.Errorf("span %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestCitations_DistinctFirstUseOrder(t *testing.T) {
	spans := Resolve("[2] then [1] then [2] again, plus [9]", sampleRefs())

	cites := Citations(spans)
	if len(cites) != 2 {
		t.Fatalf("len(Citations()) = %d, want 2", len(cites))
	}
	if cites[0].ID != 2 || cites[1].ID != 1 {
		t.Errorf("Citations() order = %d, %d; want 2, 1", cites[0].ID, cites[1].ID)
	}
}

func TestUnresolved(t *testing.T) {
	spans := Resolve("[1] [8] [9] [8]", sampleRefs())

	missing := Unresolved(spans)
	if len(missing) != 2 || missing[0] != 8 || missing[1] != 9 {
		t.Errorf("Unresolved() = %v, want [8 9]", missing)
	}
}
