// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chartdata parses chart payloads embedded in advisor replies.
//
// The advisor agent emits structured visualization data inside fenced
// ```chart-json code blocks. This package extracts those payloads into
// ChartDescriptor values, replaces the fences with positional placeholder
// tokens the renderer can splice widgets into, and provides the identity
// and series transforms shared by the widget and preference layers.
package chartdata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// CHART TYPE
// =============================================================================

// ChartType identifies how a payload wants to be visualized.
type ChartType string

const (
	TypePie   ChartType = "pie"
	TypeBar   ChartType = "bar"
	TypeLine  ChartType = "line"
	TypeArea  ChartType = "area"
	TypeTable ChartType = "table"
)

// String returns the string representation of the chart type.
func (t ChartType) String() string {
	return string(t)
}

// IsValid returns true if the chart type is one of the known values.
func (t ChartType) IsValid() bool {
	switch t {
	case TypePie, TypeBar, TypeLine, TypeArea, TypeTable:
		return true
	}
	return false
}

// ChartTypes lists the chart views a user can cycle through, in cycle order.
// Table is excluded: it is a view mode, not a chart shape.
func ChartTypes() []ChartType {
	return []ChartType{TypeBar, TypeLine, TypeArea, TypePie}
}

// =============================================================================
// VIEW MODE
// =============================================================================

// ViewMode selects between the chart rendering and the table rendering of
// one descriptor.
type ViewMode string

const (
	ViewChart ViewMode = "chart"
	ViewTable ViewMode = "table"
)

// IsValid returns true if the view mode is a known value.
func (v ViewMode) IsValid() bool {
	return v == ViewChart || v == ViewTable
}

// =============================================================================
// DESCRIPTOR
// =============================================================================

// Row is one data row of a chart payload. Values are the primitives JSON
// gives us: string, float64, bool, or nil.
type Row map[string]any

// Options carries the optional rendering hints of a payload.
type Options struct {
	Colors   []string `json:"colors,omitempty"`
	XAxisKey string   `json:"xAxisKey,omitempty"`
	YAxisKey string   `json:"yAxisKey,omitempty"`
}

// ChartDescriptor is the parsed form of one chart-json payload. Immutable
// once extracted: the parser builds it, everything downstream only reads it.
//
// Columns preserves the key order of the first data row as written in the
// payload. Go maps do not keep JSON object order, and the column pickers
// ("first column", "first numeric column") depend on it, so the order is
// captured separately during decoding.
type ChartDescriptor struct {
	Type    ChartType `json:"type"`
	Title   string    `json:"title,omitempty"`
	Data    []Row     `json:"data"`
	Options Options   `json:"options,omitempty"`
	Columns []string  `json:"-"`
}

// UnmarshalJSON decodes a descriptor while capturing first-row column order.
func (d *ChartDescriptor) UnmarshalJSON(b []byte) error {
	var shadow struct {
		Type    ChartType         `json:"type"`
		Title   string            `json:"title"`
		Data    []json.RawMessage `json:"data"`
		Options Options           `json:"options"`
	}
	if err := json.Unmarshal(b, &shadow); err != nil {
		return err
	}

	d.Type = shadow.Type
	d.Title = shadow.Title
	d.Options = shadow.Options

	if shadow.Data == nil {
		d.Data = nil
		d.Columns = nil
		return nil
	}

	d.Data = make([]Row, 0, len(shadow.Data))
	for i, raw := range shadow.Data {
		var row Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("data row %d: %w", i, err)
		}
		d.Data = append(d.Data, row)
	}

	if len(shadow.Data) > 0 {
		cols, err := objectKeyOrder(shadow.Data[0])
		if err != nil {
			return fmt.Errorf("data row 0 columns: %w", err)
		}
		d.Columns = cols
	}
	return nil
}

// Validate reports whether the descriptor meets the minimum payload contract:
// a known type and a data array. An empty data array is accepted; the widget
// renders an empty state for it.
func (d *ChartDescriptor) Validate() error {
	if !d.Type.IsValid() {
		return fmt.Errorf("unknown chart type %q", d.Type)
	}
	if d.Data == nil {
		return fmt.Errorf("missing data array")
	}
	return nil
}

// DefaultView returns the view a freshly mounted widget starts in: table when
// the payload is declared a table or the title asks for one, chart otherwise.
func (d *ChartDescriptor) DefaultView() ViewMode {
	if d.Type == TypeTable {
		return ViewTable
	}
	if strings.Contains(strings.ToLower(d.Title), "table format") {
		return ViewTable
	}
	return ViewChart
}

// DisplayTitle returns the title or a fallback for untitled payloads.
func (d *ChartDescriptor) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return "Chart"
}

// =============================================================================
// JSON KEY ORDER
// =============================================================================

// objectKeyOrder returns the keys of a JSON object in the order they appear
// in the encoded bytes.
func objectKeyOrder(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		keys = append(keys, key)

		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// skipValue consumes one complete JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil // Primitive, fully consumed.
	}
	if delim != '{' && delim != '[' {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
