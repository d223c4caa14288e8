// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widgets

import (
	"strings"
	"testing"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/selection"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// barLine returns the rendered line containing the given label.
func barLine(t *testing.T, view, label string) string {
	t.Helper()
	for _, line := range strings.Split(view, "\n") {
		if strings.Contains(line, label) {
			return line
		}
	}
	t.Fatalf("no line contains %q in:\n%s", label, view)
	return ""
}

// =============================================================================
// BAR CHART
// =============================================================================

func TestRenderBars(t *testing.T) {
	m, _ := newWidget(t, quarterlyDescriptor())
	m.SetWidth(80)
	m.Focus()

	view := m.View()
	for _, want := range []string{"Q1", "Q2", "Q3", "Q4", "10", "25", styles.ChartGlyphs.BarFill} {
		if !strings.Contains(view, want) {
			t.Errorf("bar view missing %q:\n%s", want, view)
		}
	}

	// Bars scale with the value: 25 draws more fill than 10.
	longest := strings.Count(barLine(t, view, "Q4"), styles.ChartGlyphs.BarFill)
	shortest := strings.Count(barLine(t, view, "Q1"), styles.ChartGlyphs.BarFill)
	if longest <= shortest {
		t.Errorf("Q4 bar (%d fills) should be longer than Q1 bar (%d fills)", longest, shortest)
	}

	// The focused cursor marks its row.
	if !strings.Contains(barLine(t, view, "Q1"), "> ") {
		t.Error("cursor row should carry the > marker")
	}
}

func TestRenderBars_ZeroAndNegative(t *testing.T) {
	desc := &chartdata.ChartDescriptor{
		Type:  chartdata.TypeBar,
		Title: "Net Flows",
		Data: []chartdata.Row{
			{"name": "in", "value": float64(40)},
			{"name": "flat", "value": float64(0)},
			{"name": "out", "value": float64(-12)},
		},
		Columns: []string{"name", "value"},
	}
	m, _ := newWidget(t, desc)
	view := m.View()

	if got := strings.Count(barLine(t, view, "flat"), styles.ChartGlyphs.BarFill); got != 0 {
		t.Errorf("zero value drew %d fills, want none", got)
	}
	outLine := barLine(t, view, "out")
	if strings.Count(outLine, styles.ChartGlyphs.BarFill) == 0 {
		t.Error("negative value should still draw a magnitude bar")
	}
	if !strings.Contains(outLine, "-12") {
		t.Error("negative value should print with its sign")
	}
}

func TestRenderChart_NoNumericColumn(t *testing.T) {
	desc := &chartdata.ChartDescriptor{
		Type:  chartdata.TypeBar,
		Title: "Tickers",
		Data: []chartdata.Row{
			{"symbol": "VTI"},
			{"symbol": "BND"},
		},
		Columns: []string{"symbol"},
	}
	m, _ := newWidget(t, desc)

	if !strings.Contains(m.View(), "no numeric column to plot") {
		t.Error("chart view without numeric data should render its empty state")
	}
}

// =============================================================================
// LINE AND AREA CHARTS
// =============================================================================

func TestRenderGrid_Line(t *testing.T) {
	m, _ := newWidget(t, quarterlyDescriptor())
	m.SetWidth(80)
	m.Focus()
	typeKeys(m, "t") // bar -> line

	view := m.View()
	for _, want := range []string{
		styles.ChartGlyphs.Point,
		styles.ChartGlyphs.AxisCorner,
		styles.ChartGlyphs.AxisH,
		"Q1", "Q4", // edge labels
		"> Q1: 10", // cursor readout
	} {
		if !strings.Contains(view, want) {
			t.Errorf("line view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderGrid_AreaShades(t *testing.T) {
	m, _ := newWidget(t, quarterlyDescriptor())
	m.SetWidth(80)
	typeKeys(m, "t") // bar -> line
	lineFills := strings.Count(m.View(), styles.ChartGlyphs.AreaFill)

	typeKeys(m, "t") // line -> area
	areaFills := strings.Count(m.View(), styles.ChartGlyphs.AreaFill)

	if areaFills <= lineFills {
		t.Errorf("area chart drew %d shade glyphs, line drew %d; area should shade under the line",
			areaFills, lineFills)
	}
}

func TestScaleLevel(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      int
	}{
		{"min maps to bottom", 0, 0, 100, 0},
		{"max maps to top", 100, 0, 100, plotHeight - 1},
		{"flat series sits mid-plot", 10, 10, 10, plotHeight / 2},
		{"midpoint rounds up", 50, 0, 100, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scaleLevel(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("scaleLevel(%v, %v, %v) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}

func TestWindowAround(t *testing.T) {
	tests := []struct {
		name               string
		cursor, total, n   int
		wantStart, wantEnd int
	}{
		{"everything fits", 2, 4, 10, 0, 4},
		{"centered on cursor", 10, 20, 6, 7, 13},
		{"clamped at start", 0, 20, 6, 0, 6},
		{"clamped at end", 19, 20, 6, 14, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := windowAround(tt.cursor, tt.total, tt.n)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("windowAround(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.cursor, tt.total, tt.n, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

// =============================================================================
// PIE CHART
// =============================================================================

func TestRenderPie(t *testing.T) {
	m, _ := newWidget(t, quarterlyDescriptor())
	m.SetWidth(80)
	typeKeys(m, "ttt") // bar -> line -> area -> pie

	view := m.View()
	// Shares of 10+20+15+25 = 70.
	for _, want := range []string{"14.3%", "35.7%", "(25)", styles.ChartGlyphs.SliceFill} {
		if !strings.Contains(view, want) {
			t.Errorf("pie view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderPie_SkipsNonPositive(t *testing.T) {
	desc := &chartdata.ChartDescriptor{
		Type:  chartdata.TypePie,
		Title: "Allocation Drift",
		Data: []chartdata.Row{
			{"name": "sold", "value": float64(-10)},
			{"name": "flat", "value": float64(0)},
			{"name": "held", "value": float64(30)},
		},
		Columns: []string{"name", "value"},
	}
	m, _ := newWidget(t, desc)

	view := m.View()
	if !strings.Contains(view, "100.0%") {
		t.Errorf("single positive slice should own the whole pie:\n%s", view)
	}
	if strings.Contains(view, "sold") || strings.Contains(view, "flat") {
		t.Error("non-positive slices should not render")
	}
}

func TestRenderPie_AllNonPositive(t *testing.T) {
	desc := &chartdata.ChartDescriptor{
		Type:  chartdata.TypePie,
		Title: "Losses",
		Data: []chartdata.Row{
			{"name": "a", "value": float64(-1)},
		},
		Columns: []string{"name", "value"},
	}
	m, _ := newWidget(t, desc)

	if !strings.Contains(m.View(), "no positive values") {
		t.Error("pie with nothing plottable should render its empty state")
	}
}

// =============================================================================
// HEADER AND LABELS
// =============================================================================

func TestView_ChartHeader(t *testing.T) {
	m, _ := newWidget(t, quarterlyDescriptor())
	view := m.View()

	for _, want := range []string{"Quarterly Revenue", "Chart", "Table", "bar | name vs value"} {
		if !strings.Contains(view, want) {
			t.Errorf("chart header missing %q:\n%s", want, view)
		}
	}
}

func TestView_FooterShowsSelection(t *testing.T) {
	m, bus := newWidget(t, quarterlyDescriptor())
	obs := observer(t, bus)

	if strings.Contains(m.View(), "selected:") {
		t.Error("no selection yet, footer should be empty")
	}

	obs.Select(selection.Point{Name: "Q2", Value: 20})
	if !strings.Contains(m.View(), "selected: Q2 (20)") {
		t.Errorf("footer should show the bus selection:\n%s", m.View())
	}
}

func TestTruncateLabel(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel."},
		{"hello", 1, "."},
		{"", 4, ""},
	}
	for _, tt := range tests {
		if got := truncateLabel(tt.in, tt.width); got != tt.want {
			t.Errorf("truncateLabel(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
