// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the widget frame with the active chart or table inside it.
func (m *Model) View() string {
	frame := m.theme.WidgetBox
	if m.focused {
		frame = m.theme.WidgetBoxFocused
	}

	sections := []string{m.renderHeader()}
	switch {
	case len(m.desc.Data) == 0:
		sections = append(sections, m.theme.EmptyState.Render("no data rows"))
	case m.view == chartdata.ViewTable:
		sections = append(sections, m.renderTableBody())
	default:
		sections = append(sections, m.renderChart())
	}
	if footer := m.renderFooter(); footer != "" {
		sections = append(sections, footer)
	}

	return frame.Width(m.renderWidth() - 2).Render(strings.Join(sections, "\n"))
}

// renderHeader draws the title line and the view tabs with a short meta note.
func (m *Model) renderHeader() string {
	title := m.theme.WidgetTitle.Render(truncateLabel(m.desc.DisplayTitle(), m.innerWidth()))

	chartStyle, tableStyle := m.theme.ViewTab, m.theme.ViewTabActive
	if m.view == chartdata.ViewChart {
		chartStyle, tableStyle = tableStyle, chartStyle
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top,
		chartStyle.Render("Chart"),
		tableStyle.Render("Table"),
	)

	var meta string
	if m.view == chartdata.ViewChart {
		meta = fmt.Sprintf(" %s | %s vs %s", m.chartType, m.categoryCol, m.valueCol)
	} else {
		meta = fmt.Sprintf(" %d rows", len(m.desc.Data))
	}

	return title + "\n" + tabs + m.theme.WidgetMeta.Render(meta)
}

// renderTableBody draws the search bar when active, the table, and a filter
// count when the rows are filtered.
func (m *Model) renderTableBody() string {
	var b strings.Builder
	if m.searchFocused || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString(m.table.View())
	if m.search.Value() != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.WidgetMeta.Render(
			fmt.Sprintf("%d of %d rows match", len(m.visible), len(m.desc.Data))))
	}
	return b.String()
}

// renderFooter shows the live selection and, while focused, the key hints.
func (m *Model) renderFooter() string {
	var parts []string
	if cur := m.store.Current(); cur != nil {
		parts = append(parts, m.theme.Legend.Render(
			fmt.Sprintf("selected: %s (%s)", cur.Name, chartdata.Stringify(cur.Value))))
	}
	if m.focused {
		parts = append(parts, m.theme.WidgetHint.Render(m.keyHints()))
	}
	return strings.Join(parts, "\n")
}

// keyHints lists the bindings for the active view.
func (m *Model) keyHints() string {
	if m.view == chartdata.ViewTable {
		if m.searchFocused {
			return "Enter=apply | Esc=clear"
		}
		return "Enter=select | /=search | s=sort | Left/Right=column | v=chart | e=expand"
	}
	return "Enter=select | t=type | x/y=axes | Left/Right=point | v=table | e=expand"
}
