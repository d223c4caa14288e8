// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the advisor TUI.
package styles

import (
	"strings"
	"time"
)

// =============================================================================
// SPINNER ANIMATION
// =============================================================================

// LineSpinner drives the streaming/thinking indicator.
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	return time.Second / time.Duration(s.FPS)
}

// =============================================================================
// PROGRESS INDICATORS
// =============================================================================

// ProgressBar characters for the context-usage bar.
var (
	ProgressFull    = "#"
	ProgressEmpty   = "-"
	ProgressPartial = []string{".", ":", "+", "#", "#", "#", "#"}
)

// RenderProgressBar creates a progress bar string.
// width: total width of the bar in characters
// percent: 0-100 percentage complete
func RenderProgressBar(width int, percent float64) string {
	// Handle invalid width
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filledWidth := float64(width) * percent / 100
	fullBlocks := int(filledWidth)
	partialIndex := int((filledWidth - float64(fullBlocks)) * float64(len(ProgressPartial)))

	// PERFORMANCE: strings.Builder avoids quadratic allocations
	var sb strings.Builder
	sb.Grow(width * 3)

	for i := 0; i < fullBlocks && i < width; i++ {
		sb.WriteString(ProgressFull)
	}

	if fullBlocks < width && partialIndex > 0 {
		sb.WriteString(ProgressPartial[partialIndex-1])
		fullBlocks++
	}

	for i := fullBlocks; i < width; i++ {
		sb.WriteString(ProgressEmpty)
	}

	return sb.String()
}

// =============================================================================
// CHART GLYPHS (ASCII-safe)
// =============================================================================

// ChartGlyphs are the drawing characters for the terminal chart renderers.
// ASCII-only so charts survive limited fonts and copy/paste.
var ChartGlyphs = struct {
	BarFill    string // horizontal bar body
	BarEnd     string // bar cap
	Point      string // line/area data point
	LineFill   string // interpolated line segment
	AreaFill   string // area shading under the line
	AxisV      string // vertical axis
	AxisH      string // horizontal axis
	AxisCorner string // axis origin
	SliceFill  string // pie slice bar body
}{
	BarFill:    "#",
	BarEnd:     "|",
	Point:      "o",
	LineFill:   ".",
	AreaFill:   ":",
	AxisV:      "|",
	AxisH:      "-",
	AxisCorner: "+",
	SliceFill:  "#",
}
