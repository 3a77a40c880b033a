// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"
)

func TestSpinnerConfigs(t *testing.T) {
	spinners := map[string]SpinnerConfig{
		"LineSpinner":  LineSpinner,
		"DotsSpinner":  DotsSpinner,
		"PulseSpinner": PulseSpinner,
	}

	for name, s := range spinners {
		if len(s.Frames) == 0 {
			t.Errorf("%s must have at least one frame", name)
		}
		if s.FPS <= 0 {
			t.Errorf("%s FPS must be positive, got %d", name, s.FPS)
		}
		if s.Duration() != time.Second/time.Duration(s.FPS) {
			t.Errorf("%s Duration() inconsistent with FPS", name)
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		percent float64
	}{
		{"empty", 20, 0},
		{"half", 20, 50},
		{"full", 20, 100},
		{"over", 20, 150},
		{"negative", 20, -10},
		{"narrow", 5, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := RenderProgressBar(tt.width, tt.percent)
			if len(bar) != tt.width {
				t.Errorf("RenderProgressBar(%d, %f) length = %d, want %d", tt.width, tt.percent, len(bar), tt.width)
			}
		})
	}
}

func TestRenderProgressBarZeroWidth(t *testing.T) {
	if bar := RenderProgressBar(0, 50); bar != "" {
		t.Errorf("zero width should render empty, got %q", bar)
	}
	if bar := RenderProgressBar(-5, 50); bar != "" {
		t.Errorf("negative width should render empty, got %q", bar)
	}
}

func TestRenderProgressBarFillMonotonic(t *testing.T) {
	prev := -1
	for percent := 0; percent <= 100; percent += 10 {
		bar := RenderProgressBar(30, float64(percent))
		filled := strings.Count(bar, ProgressFull)
		if filled < prev {
			t.Errorf("fill count decreased at %d%%: %d < %d", percent, filled, prev)
		}
		prev = filled
	}
}
