// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// =============================================================================
// CHART RENDERING
// =============================================================================

const (
	plotHeight    = 6
	maxLabelWidth = 16
)

// renderChart draws the active chart shape for the current series.
func (m *Model) renderChart() string {
	points := m.series()
	if len(points) == 0 {
		return m.theme.EmptyState.Render("no numeric column to plot")
	}

	switch m.chartType {
	case chartdata.TypeLine:
		return m.renderGridChart(points, false)
	case chartdata.TypeArea:
		return m.renderGridChart(points, true)
	case chartdata.TypePie:
		return m.renderPie(points)
	default:
		return m.renderBars(points)
	}
}

// seriesStyle returns the lipgloss style for series index i.
func (m *Model) seriesStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(styles.ChartColor(i, m.desc.Options.Colors))
}

// =============================================================================
// BAR CHART
// =============================================================================

// renderBars draws one horizontal bar per point, scaled to the largest
// absolute value. Negative values keep their sign in the printed value; the
// bar length uses the magnitude.
func (m *Model) renderBars(points []chartdata.SeriesPoint) string {
	labelWidth := barLabelWidth(points)

	valueWidth := 0
	values := make([]string, len(points))
	for i, p := range points {
		values[i] = chartdata.Stringify(p.Value)
		if w := runewidth.StringWidth(values[i]); w > valueWidth {
			valueWidth = w
		}
	}

	barArea := m.innerWidth() - labelWidth - valueWidth - 5
	if barArea < 8 {
		barArea = 8
	}

	maxAbs := 0.0
	for _, p := range points {
		if a := math.Abs(p.Value); a > maxAbs {
			maxAbs = a
		}
	}

	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteString("\n")
		}

		marker := "  "
		label := truncateLabel(p.Name, labelWidth)
		if m.focused && i == m.cursor {
			marker = "> "
			label = m.theme.TableRowSelected.Render(label)
		} else {
			label = m.theme.AxisLabel.Render(label)
		}

		length := 0
		if maxAbs > 0 {
			length = int(math.Round(math.Abs(p.Value) / maxAbs * float64(barArea)))
			if length == 0 && p.Value != 0 {
				length = 1
			}
		}

		bar := m.seriesStyle(i).Render(strings.Repeat(styles.ChartGlyphs.BarFill, length))
		b.WriteString(fmt.Sprintf("%s%s %s%s %s",
			marker,
			padLabel(label, p.Name, labelWidth),
			styles.ChartGlyphs.AxisV,
			bar,
			m.theme.WidgetMeta.Render(values[i]),
		))
	}
	return b.String()
}

// barLabelWidth sizes the label gutter to the longest name, capped.
func barLabelWidth(points []chartdata.SeriesPoint) int {
	width := 0
	for _, p := range points {
		if w := runewidth.StringWidth(p.Name); w > width {
			width = w
		}
	}
	if width > maxLabelWidth {
		width = maxLabelWidth
	}
	if width < 2 {
		width = 2
	}
	return width
}

// =============================================================================
// LINE AND AREA CHARTS
// =============================================================================

// renderGridChart draws a line chart on a character grid, one column pair per
// point, with the area under the line shaded when area is true. When more
// points exist than columns, the chart windows around the cursor; the scale
// stays global so scrolling never rescales the plot.
func (m *Model) renderGridChart(points []chartdata.SeriesPoint, area bool) string {
	lo, hi := valueRange(points)

	gutter := axisGutterWidth(lo, hi)
	plotCols := m.innerWidth() - gutter - 2
	if plotCols < 8 {
		plotCols = 8
	}
	maxPoints := plotCols / 2
	start, end := windowAround(m.cursor, len(points), maxPoints)
	visible := points[start:end]

	levels := make([]int, len(visible))
	for i, p := range visible {
		levels[i] = scaleLevel(p.Value, lo, hi)
	}

	pointGlyph := styles.ChartGlyphs.Point
	var b strings.Builder
	for row := plotHeight - 1; row >= 0; row-- {
		b.WriteString(m.axisValueLabel(row, lo, hi, gutter))
		b.WriteString(styles.ChartGlyphs.AxisV)

		for i := range visible {
			// Data column.
			switch {
			case levels[i] == row:
				glyph := m.seriesStyle(0).Render(pointGlyph)
				if m.focused && start+i == m.cursor {
					glyph = m.theme.TableRowSelected.Render(pointGlyph)
				}
				b.WriteString(glyph)
			case area && levels[i] > row:
				b.WriteString(m.seriesStyle(0).Render(styles.ChartGlyphs.AreaFill))
			default:
				b.WriteString(" ")
			}

			// Spacer column carries the interpolated segment to the next point.
			if i == len(visible)-1 {
				continue
			}
			mid := (levels[i] + levels[i+1]) / 2
			switch {
			case mid == row && levels[i] != levels[i+1]:
				b.WriteString(m.seriesStyle(0).Render(styles.ChartGlyphs.LineFill))
			case area && mid > row:
				b.WriteString(m.seriesStyle(0).Render(styles.ChartGlyphs.AreaFill))
			default:
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}

	// X axis.
	b.WriteString(strings.Repeat(" ", gutter))
	b.WriteString(styles.ChartGlyphs.AxisCorner)
	b.WriteString(strings.Repeat(styles.ChartGlyphs.AxisH, len(visible)*2))
	b.WriteString("\n")

	// Edge labels plus the highlighted point.
	first := visible[0].Name
	last := visible[len(visible)-1].Name
	edge := truncateLabel(first, 12)
	if len(visible) > 1 {
		gap := len(visible)*2 - runewidth.StringWidth(edge) - runewidth.StringWidth(truncateLabel(last, 12))
		if gap < 1 {
			gap = 1
		}
		edge += strings.Repeat(" ", gap) + truncateLabel(last, 12)
	}
	b.WriteString(strings.Repeat(" ", gutter+1))
	b.WriteString(m.theme.AxisLabel.Render(edge))

	if m.focused && m.cursor < len(points) {
		p := points[m.cursor]
		b.WriteString("\n")
		b.WriteString(m.theme.Legend.Render(fmt.Sprintf("> %s: %s",
			truncateLabel(p.Name, maxLabelWidth), chartdata.Stringify(p.Value))))
	}
	return b.String()
}

// valueRange returns the series min and max.
func valueRange(points []chartdata.SeriesPoint) (lo, hi float64) {
	lo, hi = points[0].Value, points[0].Value
	for _, p := range points[1:] {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}
	return lo, hi
}

// scaleLevel maps a value onto a grid row. A flat series sits mid-plot.
func scaleLevel(v, lo, hi float64) int {
	if hi == lo {
		return plotHeight / 2
	}
	level := int(math.Round((v - lo) / (hi - lo) * float64(plotHeight-1)))
	if level < 0 {
		level = 0
	}
	if level > plotHeight-1 {
		level = plotHeight - 1
	}
	return level
}

// windowAround centers a window of size n on the cursor, clamped to bounds.
func windowAround(cursor, total, n int) (start, end int) {
	if total <= n {
		return 0, total
	}
	start = cursor - n/2
	if start < 0 {
		start = 0
	}
	if start+n > total {
		start = total - n
	}
	return start, start + n
}

// axisGutterWidth sizes the left gutter to the wider of the two bound labels.
func axisGutterWidth(lo, hi float64) int {
	w := runewidth.StringWidth(chartdata.Stringify(hi))
	if lw := runewidth.StringWidth(chartdata.Stringify(lo)); lw > w {
		w = lw
	}
	if w > 8 {
		w = 8
	}
	return w
}

// axisValueLabel prints the max at the top row, the min at the bottom row,
// and spaces elsewhere.
func (m *Model) axisValueLabel(row int, lo, hi float64, gutter int) string {
	var label string
	switch row {
	case plotHeight - 1:
		label = chartdata.Stringify(hi)
	case 0:
		label = chartdata.Stringify(lo)
	}
	label = truncateLabel(label, gutter)
	pad := gutter - runewidth.StringWidth(label)
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + m.theme.AxisLabel.Render(label)
}

// =============================================================================
// PIE CHART
// =============================================================================

// renderPie draws a proportional legend: one row per slice with a bar scaled
// to its share. Non-positive values cannot form a share and are skipped.
func (m *Model) renderPie(points []chartdata.SeriesPoint) string {
	var slices []chartdata.SeriesPoint
	total := 0.0
	for _, p := range points {
		if p.Value > 0 {
			slices = append(slices, p)
			total += p.Value
		}
	}
	if len(slices) == 0 {
		return m.theme.EmptyState.Render("no positive values to chart")
	}

	labelWidth := barLabelWidth(slices)
	barArea := m.innerWidth() - labelWidth - 18
	if barArea < 8 {
		barArea = 8
	}

	var b strings.Builder
	for i, p := range slices {
		if i > 0 {
			b.WriteString("\n")
		}

		marker := "  "
		label := truncateLabel(p.Name, labelWidth)
		if m.focused && i == m.cursor {
			marker = "> "
			label = m.theme.TableRowSelected.Render(label)
		} else {
			label = m.theme.Legend.Render(label)
		}

		share := p.Value / total
		length := int(math.Round(share * float64(barArea)))
		if length == 0 {
			length = 1
		}

		b.WriteString(fmt.Sprintf("%s%s %s %s",
			marker,
			padLabel(label, p.Name, labelWidth),
			m.seriesStyle(i).Render(strings.Repeat(styles.ChartGlyphs.SliceFill, length)),
			m.theme.WidgetMeta.Render(fmt.Sprintf("%.1f%% (%s)", share*100, chartdata.Stringify(p.Value))),
		))
	}
	return b.String()
}

// =============================================================================
// LABEL HELPERS
// =============================================================================

// truncateLabel cuts a label to width with an ellipsis dot.
func truncateLabel(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return "."
	}
	return runewidth.Truncate(s, width-1, "") + "."
}

// padLabel pads a styled label to the gutter width using the unstyled text
// for measurement; styling escape codes have no printable width.
func padLabel(styled, raw string, width int) string {
	pad := width - runewidth.StringWidth(truncateLabel(raw, width))
	if pad < 0 {
		pad = 0
	}
	return styled + strings.Repeat(" ", pad)
}
