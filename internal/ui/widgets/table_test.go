// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widgets

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
)

// =============================================================================
// FILTER
// =============================================================================

func TestFilterRows(t *testing.T) {
	desc := gdpDescriptor()

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"empty query keeps all", "", 2},
		{"case-insensitive name match", "CHINA", 1},
		{"substring match", "us", 1},
		{"numeric cell match", "260", 1},
		{"no match", "zebra", 0},
		{"whitespace query keeps all", "   ", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterRows(desc, tt.query)
			if len(got) != tt.want {
				t.Errorf("filterRows(%q) kept %d rows, want %d", tt.query, len(got), tt.want)
			}
		})
	}
}

func TestFilterRows_SearchesRaggedRowKeys(t *testing.T) {
	// The second row carries a cell under a key the first row lacks, so the
	// key is absent from the derived columns. The filter must still see it.
	desc := &chartdata.ChartDescriptor{
		Type:  chartdata.TypeTable,
		Title: "Holdings",
		Data: []chartdata.Row{
			{"Asset": "Bonds", "Value": float64(40)},
			{"Asset": "Stocks", "Value": float64(60), "Note": "rebalanced"},
		},
		Columns: []string{"Asset", "Value"},
	}

	got := filterRows(desc, "rebalanced")
	if len(got) != 1 {
		t.Fatalf("filterRows(%q) kept %d rows, want 1", "rebalanced", len(got))
	}
	if got[0]["Asset"] != "Stocks" {
		t.Errorf("filter matched the wrong row: %v", got[0])
	}
}

func TestFilterRows_EmptyQueryReturnsCopy(t *testing.T) {
	desc := gdpDescriptor()
	rows := filterRows(desc, "")

	rows[0], rows[1] = rows[1], rows[0]
	if desc.Data[0]["Country"] != "USA" {
		t.Error("reordering the filtered slice must not touch the descriptor")
	}
}

// =============================================================================
// SORT
// =============================================================================

func TestSortRows(t *testing.T) {
	rows := []chartdata.Row{
		{"name": "b", "value": float64(30)},
		{"name": "a", "value": float64(10)},
		{"name": "c", "value": float64(20)},
	}

	sortRows(rows, "value", sortAsc)
	if rows[0]["value"] != float64(10) || rows[2]["value"] != float64(30) {
		t.Errorf("ascending sort wrong: %v", rows)
	}

	sortRows(rows, "value", sortDesc)
	if rows[0]["value"] != float64(30) || rows[2]["value"] != float64(10) {
		t.Errorf("descending sort wrong: %v", rows)
	}

	sortRows(rows, "name", sortAsc)
	if rows[0]["name"] != "a" || rows[2]["name"] != "c" {
		t.Errorf("string sort wrong: %v", rows)
	}
}

func TestSortRows_NoneIsNoOp(t *testing.T) {
	rows := []chartdata.Row{
		{"v": float64(2)},
		{"v": float64(1)},
	}
	sortRows(rows, "v", sortNone)
	if rows[0]["v"] != float64(2) {
		t.Error("sortNone must leave order untouched")
	}
}

func TestSortRows_MissingCellsSortFirst(t *testing.T) {
	rows := []chartdata.Row{
		{"name": "full", "value": float64(5)},
		{"name": "hole"},
	}
	sortRows(rows, "value", sortAsc)
	if rows[0]["name"] != "hole" {
		t.Errorf("missing cell should sort before values, got %v first", rows[0]["name"])
	}
}

func TestCompareCells(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"numeric less", float64(2), float64(10), -1},
		{"numeric greater", float64(10), float64(2), 1},
		{"numeric equal", float64(7), float64(7), 0},
		{"string order", "apple", "banana", -1},
		{"mixed falls back to string", float64(2), "10", 1}, // "2" > "10"
		{"nil before value", nil, float64(1), -1},
		{"bools as strings", false, true, -1}, // "false" < "true"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareCells(tt.a, tt.b)
			if (got < 0) != (tt.want < 0) || (got > 0) != (tt.want > 0) {
				t.Errorf("compareCells(%v, %v) = %d, want sign of %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

func TestBuildColumns_MarksActiveAndSorted(t *testing.T) {
	m, _ := newWidget(t, gdpDescriptor())

	view := m.View()
	if !strings.Contains(view, "[Country]") {
		t.Error("active column should render bracketed")
	}

	press(m, tea.KeyRight)
	typeKeys(m, "s")
	view = m.View()
	if !strings.Contains(view, "[2010 ^]") {
		t.Errorf("sorted active column should carry the ascending marker, got:\n%s", view)
	}

	typeKeys(m, "s")
	if view = m.View(); !strings.Contains(view, "[2010 v]") {
		t.Error("second activation should flip the marker to descending")
	}
}

func TestLayout_HeightTracksRows(t *testing.T) {
	small, _ := newWidget(t, gdpDescriptor())
	if got := small.table.Height(); got != 2 {
		t.Errorf("2-row table height = %d, want 2", got)
	}

	big := &chartdata.ChartDescriptor{
		Type:    chartdata.TypeTable,
		Title:   "Daily Closes",
		Columns: []string{"day", "close"},
	}
	for i := 0; i < 14; i++ {
		big.Data = append(big.Data, chartdata.Row{
			"day": string(rune('a' + i)), "close": float64(i),
		})
	}
	m, _ := newWidget(t, big)
	if got := m.table.Height(); got != maxTableRows {
		t.Errorf("14-row table height = %d, want cap %d", got, maxTableRows)
	}
}

func TestTableView_RendersCellsAndMeta(t *testing.T) {
	m, _ := newWidget(t, gdpDescriptor())
	view := m.View()

	for _, want := range []string{"USA", "China", "200", "450", "2 rows", "Chart", "Table"} {
		if !strings.Contains(view, want) {
			t.Errorf("table view missing %q:\n%s", want, view)
		}
	}
}

func TestTableView_FilterCount(t *testing.T) {
	m, _ := newWidget(t, gdpDescriptor())
	typeKeys(m, "/usa")

	view := m.View()
	if !strings.Contains(view, "1 of 2 rows match") {
		t.Errorf("filtered view missing match count:\n%s", view)
	}
	if strings.Contains(view, "China") {
		t.Error("filtered-out row still rendered")
	}
}

func TestTableView_FocusedShowsHints(t *testing.T) {
	m, _ := newWidget(t, gdpDescriptor())

	if strings.Contains(m.View(), "v=chart") {
		t.Error("unfocused widget should not render key hints")
	}
	m.Focus()
	if !strings.Contains(m.View(), "v=chart") {
		t.Error("focused table view should render its key hints")
	}
}
