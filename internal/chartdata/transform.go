// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chartdata parses chart payloads embedded in advisor replies.
package chartdata

import (
	"strconv"
	"strings"
)

// =============================================================================
// SERIES TRANSFORM
// =============================================================================

// SeriesPoint is one plottable point derived from a data row. Row keeps the
// full original row so a click can carry every field, not just the two that
// were plotted.
type SeriesPoint struct {
	Name  string
	Value float64
	Row   Row
}

// Series projects the descriptor's rows onto (name, value) pairs using the
// given category and value columns. Rows whose value cell is not numeric are
// skipped; row order is preserved.
func Series(d *ChartDescriptor, categoryKey, valueKey string) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(d.Data))
	for _, row := range d.Data {
		v, ok := NumericValue(row[valueKey])
		if !ok {
			continue
		}
		points = append(points, SeriesPoint{
			Name:  Stringify(row[categoryKey]),
			Value: v,
			Row:   row,
		})
	}
	return points
}

// =============================================================================
// COLUMN SELECTION
// =============================================================================

// NumericColumns returns the columns whose value in the first row is numeric,
// in column order.
func NumericColumns(d *ChartDescriptor) []string {
	if len(d.Data) == 0 {
		return nil
	}
	first := d.Data[0]
	var cols []string
	for _, col := range d.Columns {
		if _, ok := NumericValue(first[col]); ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// StringColumns returns the columns whose value in the first row is a string,
// in column order.
func StringColumns(d *ChartDescriptor) []string {
	if len(d.Data) == 0 {
		return nil
	}
	first := d.Data[0]
	var cols []string
	for _, col := range d.Columns {
		if _, ok := first[col].(string); ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// DefaultCategoryKey picks the category column for plotting a descriptor:
// the explicit xAxisKey when it names a real column, else the first column.
func DefaultCategoryKey(d *ChartDescriptor) string {
	if d.Options.XAxisKey != "" && hasColumn(d, d.Options.XAxisKey) {
		return d.Options.XAxisKey
	}
	if len(d.Columns) > 0 {
		return d.Columns[0]
	}
	return ""
}

// DefaultValueKey picks the value column for plotting a descriptor: the
// explicit yAxisKey when it is numeric in the first row, else the first
// numeric column.
func DefaultValueKey(d *ChartDescriptor) string {
	if d.Options.YAxisKey != "" && isNumericColumn(d, d.Options.YAxisKey) {
		return d.Options.YAxisKey
	}
	if numeric := NumericColumns(d); len(numeric) > 0 {
		return numeric[0]
	}
	return ""
}

// ResolvePoint derives the (name, value) pair a click on the given row should
// publish. Axis-key options win; otherwise the first string field names the
// point and the first numeric field values it. ok is false when the row has
// no numeric field at all.
func ResolvePoint(d *ChartDescriptor, row Row) (name string, value float64, ok bool) {
	nameKey := d.Options.XAxisKey
	if nameKey == "" || row[nameKey] == nil {
		if strs := StringColumns(d); len(strs) > 0 {
			nameKey = strs[0]
		} else if len(d.Columns) > 0 {
			nameKey = d.Columns[0]
		}
	}

	valueKey := d.Options.YAxisKey
	if _, numeric := NumericValue(row[valueKey]); valueKey == "" || !numeric {
		valueKey = ""
		for _, col := range d.Columns {
			if _, ok := NumericValue(row[col]); ok {
				valueKey = col
				break
			}
		}
	}
	if valueKey == "" {
		return "", 0, false
	}

	v, _ := NumericValue(row[valueKey])
	return Stringify(row[nameKey]), v, true
}

func hasColumn(d *ChartDescriptor, name string) bool {
	for _, col := range d.Columns {
		if col == name {
			return true
		}
	}
	return false
}

func isNumericColumn(d *ChartDescriptor, name string) bool {
	if len(d.Data) == 0 {
		return false
	}
	_, ok := NumericValue(d.Data[0][name])
	return ok
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

// NumericValue extracts a float64 from a cell value. Only genuine JSON
// numbers count; numeric-looking strings like "$185.50" or "28.4" do not.
func NumericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Stringify formats a cell value for display. Whole floats print without a
// fractional part ("10", not "10.00") and large values never switch to
// scientific notation.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		// Composite values stay JSON-ish without pulling in fmt verbs that
		// could produce Go syntax.
		var b strings.Builder
		writeAny(&b, x)
		return b.String()
	}
}

func writeAny(b *strings.Builder, v any) {
	switch x := v.(type) {
	case []any:
		b.WriteString("[")
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Stringify(e))
		}
		b.WriteString("]")
	case map[string]any:
		b.WriteString("{...}")
	default:
		b.WriteString("?")
	}
}
