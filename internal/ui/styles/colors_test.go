// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the advisor TUI.
package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// COLOR DEFINITION TESTS
// =============================================================================

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func TestAdaptiveColorsAreHexPairs(t *testing.T) {
	colors := map[string]lipgloss.AdaptiveColor{
		"Purple":              Purple,
		"PurpleDeep":          PurpleDeep,
		"Cyan":                Cyan,
		"CyanDeep":            CyanDeep,
		"Emerald":             Emerald,
		"EmeraldDeep":         EmeraldDeep,
		"Rose":                Rose,
		"RoseDeep":            RoseDeep,
		"Amber":               Amber,
		"AmberDeep":           AmberDeep,
		"Surface":             Surface,
		"SurfaceDim":          SurfaceDim,
		"SurfaceBright":       SurfaceBright,
		"Overlay":             Overlay,
		"OverlayDim":          OverlayDim,
		"TextPrimary":         TextPrimary,
		"TextSecondary":       TextSecondary,
		"TextMuted":           TextMuted,
		"TextInverse":         TextInverse,
		"UserBubbleBg":        UserBubbleBg,
		"UserBubbleFg":        UserBubbleFg,
		"UserBubbleBorder":    UserBubbleBorder,
		"AdvisorBubbleBg":     AdvisorBubbleBg,
		"AdvisorBubbleFg":     AdvisorBubbleFg,
		"AdvisorBubbleBorder": AdvisorBubbleBorder,
		"SystemBubbleBg":      SystemBubbleBg,
		"SystemBubbleFg":      SystemBubbleFg,
		"SystemBubbleBorder":  SystemBubbleBorder,
		"WidgetBorder":        WidgetBorder,
		"SelectionBg":         SelectionBg,
		"SuccessHighContrast": SuccessHighContrast,
		"ErrorHighContrast":   ErrorHighContrast,
		"WarningHighContrast": WarningHighContrast,
		"InfoHighContrast":    InfoHighContrast,
		"LinkColor":           LinkColor,
	}

	for name, c := range colors {
		if !isHexColor(c.Light) {
			t.Errorf("%s.Light = %q, not a hex color", name, c.Light)
		}
		if !isHexColor(c.Dark) {
			t.Errorf("%s.Dark = %q, not a hex color", name, c.Dark)
		}
	}
}

// =============================================================================
// CHART PALETTE TESTS
// =============================================================================

func TestDefaultChartPalette(t *testing.T) {
	if len(DefaultChartPalette) < 4 {
		t.Fatalf("palette has %d colors, want at least 4", len(DefaultChartPalette))
	}

	seen := make(map[string]bool)
	for i, hex := range DefaultChartPalette {
		if !isHexColor(hex) {
			t.Errorf("palette[%d] = %q, not a hex color", i, hex)
		}
		if seen[hex] {
			t.Errorf("palette[%d] = %q repeats an earlier color", i, hex)
		}
		seen[hex] = true
	}
}

func TestChartColor(t *testing.T) {
	n := len(DefaultChartPalette)

	if got := ChartColor(0, nil); got != lipgloss.Color(DefaultChartPalette[0]) {
		t.Errorf("ChartColor(0, nil) = %q, want first palette color", got)
	}
	// Series index wraps around the palette.
	if got := ChartColor(n, nil); got != lipgloss.Color(DefaultChartPalette[0]) {
		t.Errorf("ChartColor(%d, nil) = %q, want wrap to first color", n, got)
	}
	if got := ChartColor(-3, nil); got != lipgloss.Color(DefaultChartPalette[0]) {
		t.Errorf("ChartColor(-3, nil) = %q, want first color", got)
	}

	custom := []string{"#111111", "#222222"}
	if got := ChartColor(1, custom); got != lipgloss.Color("#222222") {
		t.Errorf("ChartColor(1, custom) = %q, want payload color", got)
	}
	if got := ChartColor(2, custom); got != lipgloss.Color("#111111") {
		t.Errorf("ChartColor(2, custom) = %q, want wrap within payload palette", got)
	}
}

// =============================================================================
// ACCESSIBILITY HELPER TESTS
// =============================================================================

func TestRenderHelpersIncludeIndicators(t *testing.T) {
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

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.render("message text")
			if !strings.Contains(out, tc.indicator) {
				t.Errorf("output %q missing shape indicator %q", out, tc.indicator)
			}
			if !strings.Contains(out, "message text") {
				t.Errorf("output %q missing the message", out)
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	if out := RenderStatus(true, "saved"); !strings.Contains(out, StatusIndicators.Success) {
		t.Errorf("RenderStatus(true) = %q, missing success indicator", out)
	}
	if out := RenderStatus(false, "failed"); !strings.Contains(out, StatusIndicators.Error) {
		t.Errorf("RenderStatus(false) = %q, missing error indicator", out)
	}
}

func TestRenderLink(t *testing.T) {
	if out := RenderLink("docs"); !strings.Contains(out, "docs") {
		t.Errorf("RenderLink = %q, missing link text", out)
	}
}
