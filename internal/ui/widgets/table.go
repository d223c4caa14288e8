// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widgets

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// =============================================================================
// TABLE VIEW
// =============================================================================

const (
	minColumnWidth = 4
	maxColumnWidth = 20
	maxTableRows   = 10
)

// newDataTable builds the bubbles table the widget renders rows with.
func newDataTable(theme *styles.Theme) table.Model {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(1),
	)
	ts := table.DefaultStyles()
	ts.Header = theme.TableHeader
	ts.Selected = theme.TableRowSelected
	t.SetStyles(ts)
	return t
}

// refreshTable recomputes the visible rows from the current filter and sort
// and pushes them into the table.
func (m *Model) refreshTable() {
	rows := filterRows(m.desc, m.search.Value())
	sortRows(rows, m.sortColumn, m.sortDir)
	m.visible = rows
	m.layoutTable()
}

// layoutTable rebuilds columns and geometry for the visible rows. Separate
// from refreshTable because width changes need a relayout without refiltering.
func (m *Model) layoutTable() {
	cols := m.buildColumns()
	rows := make([]table.Row, len(m.visible))
	for i, row := range m.visible {
		cells := make(table.Row, len(m.desc.Columns))
		for j, col := range m.desc.Columns {
			cells[j] = chartdata.Stringify(row[col])
		}
		rows[i] = cells
	}

	// SetColumns before SetRows: the table indexes cells by column count.
	m.table.SetColumns(cols)
	m.table.SetRows(rows)

	height := len(rows)
	if height > maxTableRows {
		height = maxTableRows
	}
	if height < 1 {
		height = 1
	}
	m.table.SetHeight(height)
	m.table.SetWidth(m.innerWidth())

	if cursor := m.table.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// buildColumns derives the header row: natural widths capped to a band, the
// active header bracketed, the sorted header marked with its direction.
func (m *Model) buildColumns() []table.Column {
	cols := make([]table.Column, len(m.desc.Columns))
	for i, name := range m.desc.Columns {
		width := runewidth.StringWidth(name)
		for _, row := range m.visible {
			if w := runewidth.StringWidth(chartdata.Stringify(row[name])); w > width {
				width = w
			}
		}
		if width < minColumnWidth {
			width = minColumnWidth
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}

		title := name
		if name == m.sortColumn {
			switch m.sortDir {
			case sortAsc:
				title += " ^"
			case sortDesc:
				title += " v"
			}
		}
		if i == m.activeCol {
			title = "[" + title + "]"
		}
		if w := runewidth.StringWidth(title); w > width {
			width = w
		}

		cols[i] = table.Column{Title: title, Width: width}
	}
	return cols
}

// =============================================================================
// FILTER AND SORT
// =============================================================================

// filterRows returns the rows whose stringified cells contain the query,
// case-insensitive. Every key the row itself carries is searched, not just
// the columns derived from the first row, so ragged rows still match on
// their extra cells. An empty query returns a copy of all rows; the copy is
// what sortRows is allowed to reorder.
func filterRows(desc *chartdata.ChartDescriptor, query string) []chartdata.Row {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		rows := make([]chartdata.Row, len(desc.Data))
		copy(rows, desc.Data)
		return rows
	}

	var rows []chartdata.Row
	for _, row := range desc.Data {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(chartdata.Stringify(cell)), query) {
				rows = append(rows, row)
				break
			}
		}
	}
	return rows
}

// sortRows orders rows by one column in place. Cells compare numerically
// when both are numbers and as strings otherwise; the sort is stable, so
// toggling back to ascending restores the exact earlier ascending order.
func sortRows(rows []chartdata.Row, column string, dir sortDirection) {
	if dir == sortNone || column == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareCells(rows[i][column], rows[j][column])
		if dir == sortDesc {
			return c > 0
		}
		return c < 0
	})
}

// compareCells orders two cell values: numeric comparison when both sides
// are numbers, string comparison otherwise.
func compareCells(a, b any) int {
	av, aok := chartdata.NumericValue(a)
	bv, bok := chartdata.NumericValue(b)
	if aok && bok {
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(chartdata.Stringify(a), chartdata.Stringify(b))
}
