// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the advisor TUI.
package styles

import (
	"strings"
	"testing"
)

// =============================================================================
// THEME CONSTRUCTION TESTS
// =============================================================================

func TestNewTheme_ForcedModes(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error(`NewTheme("dark").IsDark = false, want true`)
	}

	light := NewTheme("light")
	if light.IsDark {
		t.Error(`NewTheme("light").IsDark = true, want false`)
	}

	// Restore the dark default so sibling tests see a known state.
	NewTheme("dark")
}

func TestNewTheme_StylesRenderContent(t *testing.T) {
	theme := NewTheme("dark")

	// Styles must at minimum pass their content through; in a dumb
	// terminal they render as plain text.
	checks := map[string]func(...string) string{
		"HeaderTitle":    theme.HeaderTitle.Render,
		"UserBubble":     theme.UserBubble.Render,
		"AdvisorBubble":  theme.AdvisorBubble.Render,
		"SystemBubble":   theme.SystemBubble.Render,
		"StatusBar":      theme.StatusBar.Render,
		"WidgetTitle":    theme.WidgetTitle.Render,
		"ViewTabActive":  theme.ViewTabActive.Render,
		"TableHeader":    theme.TableHeader.Render,
		"SelectionBar":   theme.SelectionBar.Render,
		"SelectionName":  theme.SelectionName.Render,
		"Chip":           theme.Chip.Render,
		"ChipContextual": theme.ChipContextual.Render,
		"LoginTitle":     theme.LoginTitle.Render,
		"EmptyState":     theme.EmptyState.Render,
		"ErrorTitle":     theme.ErrorTitle.Render,
	}

	for name, render := range checks {
		if out := render("probe"); !strings.Contains(out, "probe") {
			t.Errorf("%s.Render dropped its content: %q", name, out)
		}
	}
}

// =============================================================================
// LAYOUT TESTS
// =============================================================================

func TestSetSize(t *testing.T) {
	theme := NewTheme("dark")
	theme.SetSize(120, 40)

	if theme.Width != 120 || theme.Height != 40 {
		t.Errorf("SetSize stored %dx%d, want 120x40", theme.Width, theme.Height)
	}
}

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	theme := NewTheme("dark")
	for _, tc := range tests {
		theme.SetSize(tc.width, 24)
		if got := theme.GetLayoutMode(); got != tc.want {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tc.width, got, tc.want)
		}
	}
}
