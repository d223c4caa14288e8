// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the advisor TUI.

This package defines the complete color palette, typography, and animation
system used throughout the application. All colors use Lip Gloss AdaptiveColor
for automatic light/dark terminal detection.

# Color System (colors.go)

## Primary Accent Colors

  - Purple - Primary accent for advisor messages and selections
  - Cyan - Brand color for info, commands, and user highlights
  - Emerald - Success states and healthy connection indicator
  - Amber - Warnings and the reconnecting state
  - Rose - Errors and critical warnings

## Semantic Colors

Message bubbles and UI elements use semantic color tokens:

	UserBubbleBg    - Background for user messages
	UserBubbleFg    - Text color for user messages
	AdvisorBubbleBg - Background for advisor messages
	AdvisorBubbleFg - Text color for advisor messages

## Chart Colors

Chart widgets draw series through the palette cycle:

	DefaultChartPalette - Series colors when the payload has none
	ChartColor(i, custom) - Resolve the color for series index i

## Surface Colors

Layered surface system for depth:

	Surface    - Main background
	SurfaceDim - Subtle backgrounds (headers, status bars)
	Overlay    - Borders and popups

## Text Colors

Hierarchical text color system:

	TextPrimary   - Main content text
	TextSecondary - Supporting text
	TextMuted     - De-emphasized text
	TextInverse   - Text on colored backgrounds

# Theme System (theme.go)

The Theme struct provides runtime color adaptation. The configured theme name
can force a palette side regardless of what the terminal reports:

	theme := styles.NewTheme(cfg.UI.Theme)
	if theme.IsDark {
		// Dark palette active
	}
	if theme.HasTrueColor {
		// Terminal supports 16M colors
	}

# Animation System (animations.go)

## Spinner Configurations

Pre-defined spinner styles:

	BrailleSpinner - Smooth 10-frame spinner
	DotsSpinner    - Classic three-dot animation
	LineSpinner    - Simple line rotation

## Status Indicators

ASCII indicators for various states:

	StatusIndicators.Success - [OK]
	StatusIndicators.Error   - [X]
	StatusIndicators.Warning - [!]
	StatusIndicators.Info    - [i]

## Chart Glyphs

ASCII drawing characters for the terminal chart renderers:

	ChartGlyphs.BarFill - bar body
	ChartGlyphs.Point   - line/area data point
	ChartGlyphs.AxisV   - vertical axis rule

# Usage Example

	import "github.com/jeranaias/advisor-tui/internal/ui/styles"

	// Use adaptive colors
	headerStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary)

	// Use theme for runtime detection
	theme := styles.NewTheme("dark")
	bar := theme.StatusBar.Render("ready")

	// Use spinner configuration
	spinner := styles.BrailleSpinner
	interval := spinner.Duration()
*/
package styles
