// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package widgets renders mounted chart payloads as interactive chart/table
// views inside the transcript.
package widgets

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/logging"
	"github.com/jeranaias/advisor-tui/internal/prefs"
	"github.com/jeranaias/advisor-tui/internal/selection"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// =============================================================================
// WIDGET MODEL
// =============================================================================

// collapsedWidth caps the widget frame until the user expands it.
const collapsedWidth = 64

// sortDirection is the cycle state for one sortable column.
type sortDirection int

const (
	sortNone sortDirection = iota
	sortAsc
	sortDesc
)

// Model is one mounted chart/table widget. It owns a selection store bound to
// the shared bus, restores its view state from the preference store by chart
// identity, and persists every view change back.
//
// The descriptor is immutable; all view state (filter, sort, cursor) lives
// here and operates on copies of the data rows.
type Model struct {
	desc      *chartdata.ChartDescriptor
	identity  string
	store     *selection.Store
	prefStore *prefs.Store
	theme     *styles.Theme

	view        chartdata.ViewMode
	chartType   chartdata.ChartType
	categoryCol string
	valueCol    string

	width    int
	expanded bool
	focused  bool

	// Table view state
	table         table.Model
	search        textinput.Model
	searchFocused bool
	visible       []chartdata.Row
	activeCol     int
	sortColumn    string
	sortDir       sortDirection

	// Chart view state
	cursor int
}

// New creates a widget for one descriptor. The preference store may be nil;
// the widget then runs with session-local state only.
func New(desc *chartdata.ChartDescriptor, store *selection.Store, prefStore *prefs.Store, theme *styles.Theme) (*Model, error) {
	if desc == nil {
		return nil, fmt.Errorf("nil chart descriptor")
	}
	if store == nil {
		return nil, fmt.Errorf("nil selection store")
	}
	if theme == nil {
		theme = styles.NewTheme("")
	}

	m := &Model{
		desc:        desc,
		identity:    chartdata.Identity(desc.Title, desc.Type),
		store:       store,
		prefStore:   prefStore,
		theme:       theme,
		view:        desc.DefaultView(),
		chartType:   defaultChartType(desc.Type),
		categoryCol: chartdata.DefaultCategoryKey(desc),
		valueCol:    chartdata.DefaultValueKey(desc),
		width:       collapsedWidth,
	}
	m.restorePrefs()

	search := textinput.New()
	search.Placeholder = "search rows..."
	search.CharLimit = 64
	search.Width = 24
	search.Prompt = "/ "
	search.PromptStyle = theme.SearchPrompt
	m.search = search

	m.table = newDataTable(theme)
	m.refreshTable()
	return m, nil
}

// defaultChartType maps the declared payload type onto the chart the widget
// draws when toggled to chart view. Table payloads plot as bars.
func defaultChartType(t chartdata.ChartType) chartdata.ChartType {
	if t == chartdata.TypeTable {
		return chartdata.ChartTypes()[0]
	}
	return t
}

// restorePrefs applies saved view state for this chart identity. Saved
// columns are dropped if the payload no longer carries them: identities key
// on title+type, so a re-titled dataset can change shape under the same key.
func (m *Model) restorePrefs() {
	if m.prefStore == nil {
		return
	}
	p, ok := m.prefStore.Get(m.identity)
	if !ok {
		return
	}
	if p.ViewMode.IsValid() {
		m.view = p.ViewMode
	}
	if p.ChartType.IsValid() && p.ChartType != chartdata.TypeTable {
		m.chartType = p.ChartType
	}
	if p.CategoryColumn != "" && hasColumn(m.desc, p.CategoryColumn) {
		m.categoryCol = p.CategoryColumn
	}
	if p.ValueColumn != "" && hasColumn(m.desc, p.ValueColumn) {
		m.valueCol = p.ValueColumn
	}
}

// persist writes the current view state under the chart identity. Best
// effort: a failed write costs the preference, not the widget.
func (m *Model) persist() {
	if m.prefStore == nil {
		return
	}
	err := m.prefStore.Put(m.identity, prefs.Prefs{
		ViewMode:       m.view,
		ChartType:      m.chartType,
		CategoryColumn: m.categoryCol,
		ValueColumn:    m.valueCol,
	})
	if err != nil {
		logging.L().Warn("chart preference not saved",
			zap.String("identity", m.identity), zap.Error(err))
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Descriptor returns the chart payload this widget renders.
func (m *Model) Descriptor() *chartdata.ChartDescriptor { return m.desc }

// Identity returns the preference key for this widget.
func (m *Model) Identity() string { return m.identity }

// Store returns the widget's selection store.
func (m *Model) Store() *selection.Store { return m.store }

// ViewMode returns the active view.
func (m *Model) ViewMode() chartdata.ViewMode { return m.view }

// ChartType returns the chart shape drawn in chart view.
func (m *Model) ChartType() chartdata.ChartType { return m.chartType }

// Columns returns the active category and value columns.
func (m *Model) Columns() (category, value string) { return m.categoryCol, m.valueCol }

// Expanded returns true when the widget uses the full transcript width.
func (m *Model) Expanded() bool { return m.expanded }

// Focused returns true when the widget holds input focus.
func (m *Model) Focused() bool { return m.focused }

// SearchActive reports whether the search input is focused or filtering.
// The chat layer routes Esc into the widget while this is true.
func (m *Model) SearchActive() bool {
	return m.searchFocused || m.search.Value() != ""
}

// Focus gives the widget input focus.
func (m *Model) Focus() {
	m.focused = true
	m.table.Focus()
}

// Blur removes input focus.
func (m *Model) Blur() {
	m.focused = false
	m.searchFocused = false
	m.search.Blur()
	m.table.Blur()
}

// SetWidth tells the widget how much transcript width is available.
func (m *Model) SetWidth(w int) {
	if w < 20 {
		w = 20
	}
	m.width = w
	m.layoutTable()
}

// renderWidth is the frame width actually used: capped while collapsed,
// everything available while expanded.
func (m *Model) renderWidth() int {
	if m.expanded || m.width < collapsedWidth {
		return m.width
	}
	return collapsedWidth
}

// innerWidth is the content width inside the frame border and padding.
func (m *Model) innerWidth() int {
	return m.renderWidth() - 4
}

// Teardown releases the widget's selection bus subscription.
func (m *Model) Teardown() error {
	m.store.Close()
	return nil
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles one input message. The chat layer only routes messages here
// while the widget is focused.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	if m.searchFocused {
		return m.updateSearch(key)
	}

	switch key.String() {
	case "v":
		m.toggleView()
	case "e":
		m.expanded = !m.expanded
		m.layoutTable()
	case "t":
		if m.view == chartdata.ViewChart {
			m.cycleChartType()
		}
	case "x":
		if m.view == chartdata.ViewChart {
			m.cycleCategoryColumn()
		}
	case "y":
		if m.view == chartdata.ViewChart {
			m.cycleValueColumn()
		}
	case "/":
		if m.view == chartdata.ViewTable {
			m.searchFocused = true
			return m.search.Focus()
		}
	case "s":
		if m.view == chartdata.ViewTable {
			m.cycleSort()
		}
	case "left", "h":
		m.moveHorizontal(-1)
	case "right", "l":
		m.moveHorizontal(1)
	case "enter":
		m.activateCurrent()
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.refreshTable()
		}
	default:
		if m.view == chartdata.ViewTable {
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return cmd
		}
	}
	return nil
}

// updateSearch routes keys into the search input with live filtering.
func (m *Model) updateSearch(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "esc":
		m.search.SetValue("")
		m.searchFocused = false
		m.search.Blur()
		m.refreshTable()
		return nil
	case "enter":
		// Keep the filter, return focus to the rows.
		m.searchFocused = false
		m.search.Blur()
		return nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(key)
	m.refreshTable()
	return cmd
}

// toggleView flips chart/table and persists the choice.
func (m *Model) toggleView() {
	if m.view == chartdata.ViewTable {
		m.view = chartdata.ViewChart
	} else {
		m.view = chartdata.ViewTable
	}
	m.persist()
}

// cycleChartType steps the drawn chart shape through bar, line, area, pie.
func (m *Model) cycleChartType() {
	types := chartdata.ChartTypes()
	next := types[0]
	for i, t := range types {
		if t == m.chartType {
			next = types[(i+1)%len(types)]
			break
		}
	}
	m.chartType = next
	m.clampCursor()
	m.persist()
}

// cycleCategoryColumn steps the category axis through every column.
func (m *Model) cycleCategoryColumn() {
	if next := nextIn(m.desc.Columns, m.categoryCol); next != "" {
		m.categoryCol = next
		m.clampCursor()
		m.persist()
	}
}

// cycleValueColumn steps the value axis through the numeric columns only.
func (m *Model) cycleValueColumn() {
	if next := nextIn(chartdata.NumericColumns(m.desc), m.valueCol); next != "" {
		m.valueCol = next
		m.clampCursor()
		m.persist()
	}
}

// moveHorizontal moves the active header in table view and the highlighted
// point in chart view.
func (m *Model) moveHorizontal(delta int) {
	if m.view == chartdata.ViewTable {
		n := len(m.desc.Columns)
		if n == 0 {
			return
		}
		m.activeCol = (m.activeCol + delta + n) % n
		m.layoutTable()
		return
	}

	points := m.series()
	if len(points) == 0 {
		return
	}
	m.cursor += delta
	m.clampCursor()
}

// cycleSort activates the current header: a new column starts ascending,
// repeated activation flips ascending and descending.
func (m *Model) cycleSort() {
	if m.activeCol >= len(m.desc.Columns) {
		return
	}
	col := m.desc.Columns[m.activeCol]
	if m.sortColumn != col {
		m.sortColumn = col
		m.sortDir = sortAsc
	} else {
		switch m.sortDir {
		case sortNone, sortDesc:
			m.sortDir = sortAsc
		case sortAsc:
			m.sortDir = sortDesc
		}
	}
	m.refreshTable()
}

// activateCurrent publishes the highlighted row or point on the selection
// bus.
func (m *Model) activateCurrent() {
	if m.view == chartdata.ViewTable {
		idx := m.table.Cursor()
		if idx < 0 || idx >= len(m.visible) {
			return
		}
		m.activateRow(m.visible[idx])
		return
	}

	points := m.series()
	if m.cursor < 0 || m.cursor >= len(points) {
		return
	}
	p := points[m.cursor]
	m.store.Select(selection.Point{
		Name:  p.Name,
		Value: p.Value,
		Extra: copyRow(p.Row),
	})
}

// activateRow resolves a table row to its (name, value) pair and publishes
// it. Rows without any numeric field are not selectable.
func (m *Model) activateRow(row chartdata.Row) {
	name, value, ok := chartdata.ResolvePoint(m.desc, row)
	if !ok {
		return
	}
	m.store.Select(selection.Point{
		Name:  name,
		Value: value,
		Extra: copyRow(row),
	})
}

// series projects the data onto the active category/value columns.
func (m *Model) series() []chartdata.SeriesPoint {
	return chartdata.Series(m.desc, m.categoryCol, m.valueCol)
}

func (m *Model) clampCursor() {
	n := len(m.series())
	if n == 0 {
		m.cursor = 0
		return
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// nextIn returns the element after cur, wrapping; the first element when cur
// is absent; "" for an empty list.
func nextIn(list []string, cur string) string {
	if len(list) == 0 {
		return ""
	}
	for i, s := range list {
		if s == cur {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}

func hasColumn(desc *chartdata.ChartDescriptor, name string) bool {
	for _, col := range desc.Columns {
		if col == name {
			return true
		}
	}
	return false
}

func copyRow(row chartdata.Row) map[string]any {
	extra := make(map[string]any, len(row))
	for k, v := range row {
		extra[k] = v
	}
	return extra
}
