// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/model"
)

// =============================================================================
// XLSX EXPORTER
// =============================================================================

// transcriptSheet is the name of the main sheet holding the message log.
const transcriptSheet = "Transcript"

// XLSXExporter exports sessions to an Excel workbook: one transcript sheet,
// plus one sheet per chart payload found in the conversation. Chart cells are
// written with native types, so the numbers stay numbers in the spreadsheet.
type XLSXExporter struct {
	options *Options
}

// NewXLSXExporter creates a new XLSX exporter.
func NewXLSXExporter(opts *Options) *XLSXExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &XLSXExporter{options: opts}
}

// Export converts a session to an XLSX workbook.
func (e *XLSXExporter) Export(sess *model.Session) ([]byte, error) {
	if err := validateSession(sess); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transcriptSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	w := &sheetWriter{f: f, sheet: transcriptSheet}

	if e.options.IncludeMetadata {
		w.append("Session", sess.GetTitle())
		if sess.Agent != "" {
			w.append("Agent", sess.Agent)
		}
		w.append("Thread", sess.ThreadID)
		w.append("Created", formatTimestamp(sess.CreatedAt))
		w.append("Messages", len(sess.Messages))
		w.skip()
	}

	if e.options.IncludeTimestamps {
		w.append("Time", "Role", "Message")
	} else {
		w.append("Role", "Message")
	}

	// Charts are numbered across the whole workbook, not per message, so
	// sheet names never collide.
	chartCount := 0

	for _, msg := range sess.Messages {
		result := chartdata.ExtractCharts(msg.GetDisplayContent())

		text := result.Text
		for i, desc := range result.Charts {
			chartCount++
			name := chartSheetName(chartCount, desc.DisplayTitle())
			if err := writeChartSheet(f, name, desc); err != nil {
				return nil, err
			}
			text = strings.ReplaceAll(text, chartdata.Placeholder(i),
				fmt.Sprintf("[see sheet %q]", name))
		}

		if e.options.IncludeTimestamps {
			w.append(formatShortTimestamp(msg.Timestamp), msg.Role.DisplayName(), strings.TrimSpace(text))
		} else {
			w.append(msg.Role.DisplayName(), strings.TrimSpace(text))
		}
	}
	if w.err != nil {
		return nil, fmt.Errorf("write transcript: %w", w.err)
	}

	if err := sizeTranscriptColumns(f, e.options.IncludeTimestamps); err != nil {
		return nil, fmt.Errorf("size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for XLSX.
func (e *XLSXExporter) FileExtension() string {
	return ".xlsx"
}

// MimeType returns the MIME type for XLSX.
func (e *XLSXExporter) MimeType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// =============================================================================
// SHEET HELPERS
// =============================================================================

// writeChartSheet writes one chart payload to its own sheet: caption rows,
// a header row, then the data with native cell types.
func writeChartSheet(f *excelize.File, name string, desc *chartdata.ChartDescriptor) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w := &sheetWriter{f: f, sheet: name}
	w.append(desc.DisplayTitle())
	w.append(fmt.Sprintf("type: %s", desc.Type))
	w.skip()

	header := make([]any, len(desc.Columns))
	for i, col := range desc.Columns {
		header[i] = col
	}
	w.append(header...)

	for _, row := range desc.Data {
		cells := make([]any, len(desc.Columns))
		for i, col := range desc.Columns {
			cells[i] = cellValue(row[col])
		}
		w.append(cells...)
	}

	if w.err != nil {
		return fmt.Errorf("write sheet %s: %w", name, w.err)
	}
	return nil
}

// chartSheetName builds a workbook-unique sheet name. Excel limits names to
// 31 characters and forbids : \ / ? * [ ]. The running number keeps truncated
// names unique.
func chartSheetName(n int, title string) string {
	var b strings.Builder
	for _, r := range fmt.Sprintf("Chart %d %s", n, title) {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	runes := []rune(b.String())
	if len(runes) > 31 {
		runes = runes[:31]
	}
	return strings.TrimSpace(string(runes))
}

// cellValue maps a payload value onto the native spreadsheet type.
func cellValue(v any) any {
	if n, ok := chartdata.NumericValue(v); ok {
		return n
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return chartdata.Stringify(v)
}

// sizeTranscriptColumns widens the message column so transcripts are readable
// without manual resizing.
func sizeTranscriptColumns(f *excelize.File, withTime bool) error {
	widths := []struct {
		col   string
		width float64
	}{
		{"A", 10},
		{"B", 12},
		{"C", 90},
	}
	if !withTime {
		widths = []struct {
			col   string
			width float64
		}{
			{"A", 12},
			{"B", 90},
		}
	}
	for _, c := range widths {
		if err := f.SetColWidth(transcriptSheet, c.col, c.col, c.width); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SHEET WRITER
// =============================================================================

// sheetWriter appends rows to one sheet, keeping the first error it hits so
// call sites stay flat.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

// append writes one row of values starting at column A and advances the row.
func (w *sheetWriter) append(values ...any) {
	w.row++
	if w.err != nil {
		return
	}
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			w.err = err
			return
		}
		if err := w.f.SetCellValue(w.sheet, cell, v); err != nil {
			w.err = err
			return
		}
	}
}

// skip leaves one row blank.
func (w *sheetWriter) skip() {
	w.row++
}
