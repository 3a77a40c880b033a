// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestAdaptiveColorsDefined(t *testing.T) {
	colors := map[string]lipgloss.AdaptiveColor{
		"Purple":        Purple,
		"Cyan":          Cyan,
		"Emerald":       Emerald,
		"Rose":          Rose,
		"Amber":         Amber,
		"Surface":       Surface,
		"SurfaceDim":    SurfaceDim,
		"Overlay":       Overlay,
		"TextPrimary":   TextPrimary,
		"TextSecondary": TextSecondary,
		"TextMuted":     TextMuted,
		"TextInverse":   TextInverse,
	}

	for name, c := range colors {
		if c.Light == "" || c.Dark == "" {
			t.Errorf("%s must define both light and dark variants, got light=%q dark=%q", name, c.Light, c.Dark)
		}
		if !strings.HasPrefix(c.Light, "#") || !strings.HasPrefix(c.Dark, "#") {
			t.Errorf("%s variants should be hex colors, got light=%q dark=%q", name, c.Light, c.Dark)
		}
	}
}

func TestCitationColors(t *testing.T) {
	if CitationResolved != Cyan {
		t.Error("resolved citation markers should use the brand cyan")
	}
	if CitationUnresolved != Amber {
		t.Error("unresolved citation markers should use the warning amber")
	}
}

func TestStatusIndicatorsASCII(t *testing.T) {
	indicators := []string{
		StatusIndicators.Success,
		StatusIndicators.Error,
		StatusIndicators.Warning,
		StatusIndicators.Info,
		StatusIndicators.Pending,
		StatusIndicators.Active,
	}

	for _, ind := range indicators {
		if ind == "" {
			t.Error("status indicator must not be empty")
		}
		for _, r := range ind {
			if r > 127 {
				t.Errorf("status indicator %q must be ASCII-only", ind)
			}
		}
	}
}

func TestRenderHelpers(t *testing.T) {
	tests := []struct {
		name      string
		render    func(string) string
		indicator string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.render("message")
			if !strings.Contains(out, tt.indicator) {
				t.Errorf("rendered output %q should contain indicator %q", out, tt.indicator)
			}
			if !strings.Contains(out, "message") {
				t.Errorf("rendered output %q should contain the message", out)
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	ok := RenderStatus(true, "done")
	if !strings.Contains(ok, StatusIndicators.Success) {
		t.Errorf("success status should use success indicator, got %q", ok)
	}

	fail := RenderStatus(false, "broken")
	if !strings.Contains(fail, StatusIndicators.Error) {
		t.Errorf("failure status should use error indicator, got %q", fail)
	}
}

func TestRenderLink(t *testing.T) {
	out := RenderLink("https://example.com")
	if !strings.Contains(out, "https://example.com") {
		t.Errorf("link text should survive rendering, got %q", out)
	}
}
