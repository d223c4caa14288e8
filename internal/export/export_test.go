// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jeranaias/advisor-tui/internal/model"
)

const chartReply = "Here is the revenue comparison:\n\n" +
	"```chart-json\n" +
	`{"type": "bar", "title": "Quarterly Revenue", "data": [` +
	`{"quarter": "Q1", "revenue": 14000}, {"quarter": "Q2", "revenue": 16500}]}` + "\n" +
	"```\n\n" +
	"Revenue grew 18% quarter over quarter."

func testSession(t *testing.T) *model.Session {
	t.Helper()
	sess := model.NewSessionWithAgent("financial_advisor")
	sess.AddUserMessage("Compare quarterly revenue")
	sess.AddMessage(model.NewMessage(model.RoleAssistant, chartReply))
	return sess
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{format: "md", wantExt: ".md"},
		{format: "markdown", wantExt: ".md"},
		{format: "json", wantExt: ".json"},
		{format: "JSON", wantExt: ".json"},
		{format: "xlsx", wantExt: ".xlsx"},
		{format: "excel", wantExt: ".xlsx"},
		{format: "pdf", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exporter, err := ForFormat(tt.format, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ForFormat(%q) should fail", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForFormat(%q): %v", tt.format, err)
			}
			if got := exporter.FileExtension(); got != tt.wantExt {
				t.Errorf("extension = %q, want %q", got, tt.wantExt)
			}
			if exporter.MimeType() == "" {
				t.Error("empty MIME type")
			}
		})
	}
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownExport(t *testing.T) {
	sess := testSession(t)

	output, err := NewMarkdownExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	result := string(output)

	for _, want := range []string{
		"generator: advisor-tui",
		"agent: financial_advisor",
		"## Session Information",
		"## Conversation",
		"### [You]",
		"### [Advisor]",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("output missing %q", want)
		}
	}

	// The chart fence becomes a Markdown table.
	if strings.Contains(result, "```chart-json") {
		t.Error("chart fence left in Markdown output")
	}
	for _, want := range []string{
		"**Quarterly Revenue**",
		"| quarter | revenue |",
		"| Q1 | 14000 |",
		"| Q2 | 16500 |",
		"Revenue grew 18%",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	sess := testSession(t)

	output, err := NewMarkdownExporter(&Options{IncludeMetadata: false}).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	result := string(output)

	if strings.HasPrefix(result, "---\n") {
		t.Error("frontmatter present with IncludeMetadata=false")
	}
	if strings.Contains(result, "## Session Information") {
		t.Error("metadata section present with IncludeMetadata=false")
	}
}

func TestMarkdownRoleLabels(t *testing.T) {
	sess := model.NewSession()
	sess.AddMessage(model.NewMessage("tool", "ran a scan"))
	sess.AddMessage(model.NewMessage("", "mystery"))

	output, err := NewMarkdownExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	result := string(output)

	if !strings.Contains(result, "### Tool") {
		t.Error("unknown role not title-cased")
	}
	if !strings.Contains(result, "### Unknown") {
		t.Error("empty role not labeled Unknown")
	}
}

// TestMarkdownYAMLEscaping guards against newline injection through the
// session title into the frontmatter.
func TestMarkdownYAMLEscaping(t *testing.T) {
	sess := testSession(t)
	sess.SetTitle("Test\nInjection: malicious")

	output, err := NewMarkdownExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	result := string(output)

	if strings.Contains(result, "title: Test\nInjection") {
		t.Error("newline not escaped in YAML title")
	}
	if !strings.Contains(result, `title: "Test\nInjection: malicious"`) {
		t.Errorf("expected quoted escaped title, got frontmatter:\n%s",
			strings.SplitN(result, "---\n\n", 2)[0])
	}
}

func TestMarkdownBackslashEscaping(t *testing.T) {
	sess := testSession(t)
	sess.SetTitle(`Path\With\Backslashes`)

	output, err := NewMarkdownExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if strings.Contains(string(output), "title: Path\\With\\Backslashes\n") {
		t.Error("backslashes not quoted in YAML title")
	}
}

// =============================================================================
// JSON
// =============================================================================

func TestJSONExportRoundTrip(t *testing.T) {
	sess := testSession(t)

	output, err := NewJSONExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded model.Session
	if err := json.Unmarshal(output, &decoded); err != nil {
		t.Fatalf("exported JSON does not parse: %v", err)
	}
	if decoded.ID != sess.ID {
		t.Errorf("ID = %q, want %q", decoded.ID, sess.ID)
	}
	if decoded.Agent != "financial_advisor" {
		t.Errorf("Agent = %q", decoded.Agent)
	}
	if len(decoded.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(decoded.Messages))
	}
	// Chart fences survive untouched; JSON is the faithful format.
	if !strings.Contains(decoded.Messages[1].Content, "```chart-json") {
		t.Error("chart fence stripped from JSON export")
	}
}

func TestJSONExportFreezesStream(t *testing.T) {
	sess := testSession(t)
	msg := sess.AddAssistantMessage()
	msg.AppendToken("partial ")
	msg.AppendToken("reply")

	output, err := NewJSONExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded model.Session
	if err := json.Unmarshal(output, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	last := decoded.Messages[len(decoded.Messages)-1]
	if last.Content != "partial reply" {
		t.Errorf("streaming content = %q, want %q", last.Content, "partial reply")
	}
}

// =============================================================================
// XLSX
// =============================================================================

func TestXLSXExport(t *testing.T) {
	sess := testSession(t)

	output, err := NewXLSXExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(output))
	if err != nil {
		t.Fatalf("exported workbook does not open: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if sheets[0] != transcriptSheet {
		t.Errorf("first sheet = %q, want %q", sheets[0], transcriptSheet)
	}
	chartSheet := "Chart 1 Quarterly Revenue"
	if !containsString(sheets, chartSheet) {
		t.Fatalf("missing chart sheet, got %v", sheets)
	}

	// Chart sheet: caption, type, blank, header, data.
	rows, err := f.GetRows(chartSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) < 6 {
		t.Fatalf("chart sheet has %d rows, want 6", len(rows))
	}
	if rows[0][0] != "Quarterly Revenue" {
		t.Errorf("caption = %q", rows[0][0])
	}
	if rows[1][0] != "type: bar" {
		t.Errorf("type row = %q", rows[1][0])
	}
	if rows[3][0] != "quarter" || rows[3][1] != "revenue" {
		t.Errorf("header row = %v", rows[3])
	}
	if rows[4][0] != "Q1" || rows[4][1] != "14000" {
		t.Errorf("data row = %v", rows[4])
	}

	// Transcript: header row present, fence replaced by a sheet reference.
	transcript, err := f.GetRows(transcriptSheet)
	if err != nil {
		t.Fatalf("GetRows transcript: %v", err)
	}
	var sawHeader, sawRef bool
	for _, row := range transcript {
		if len(row) >= 3 && row[0] == "Time" && row[1] == "Role" && row[2] == "Message" {
			sawHeader = true
		}
		for _, cell := range row {
			if strings.Contains(cell, "[see sheet") {
				sawRef = true
			}
			if strings.Contains(cell, "```chart-json") {
				t.Error("chart fence left in transcript cell")
			}
		}
	}
	if !sawHeader {
		t.Error("transcript header row missing")
	}
	if !sawRef {
		t.Error("chart sheet reference missing from transcript")
	}
}

func TestXLSXExportMultipleCharts(t *testing.T) {
	second := "```chart-json\n" +
		`{"type": "pie", "title": "Allocation", "data": [{"class": "Stocks", "pct": 60}]}` + "\n```"

	sess := model.NewSession()
	sess.AddUserMessage("show revenue and allocation")
	sess.AddMessage(model.NewMessage(model.RoleAssistant, chartReply+"\n\n"+second))

	output, err := NewXLSXExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(output))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if !containsString(sheets, "Chart 1 Quarterly Revenue") {
		t.Errorf("missing first chart sheet, got %v", sheets)
	}
	if !containsString(sheets, "Chart 2 Allocation") {
		t.Errorf("missing second chart sheet, got %v", sheets)
	}
}

func TestChartSheetName(t *testing.T) {
	tests := []struct {
		n     int
		title string
		want  string
	}{
		{1, "Quarterly Revenue", "Chart 1 Quarterly Revenue"},
		{2, "P/E vs P[B]: ratios?", "Chart 2 P-E vs P-B-- ratios-"},
		{3, strings.Repeat("x", 40), "Chart 3 " + strings.Repeat("x", 23)},
	}

	for _, tt := range tests {
		got := chartSheetName(tt.n, tt.title)
		if got != tt.want {
			t.Errorf("chartSheetName(%d, %q) = %q, want %q", tt.n, tt.title, got, tt.want)
		}
		if len([]rune(got)) > 31 {
			t.Errorf("sheet name %q exceeds 31 runes", got)
		}
	}
}

// =============================================================================
// SHARED BEHAVIOR
// =============================================================================

func TestExportValidation(t *testing.T) {
	noMessages := model.NewSession()
	zeroCreated := &model.Session{
		ID:       "sess_x",
		Messages: []*model.Message{model.NewMessage(model.RoleUser, "hi")},
	}

	tests := []struct {
		name string
		sess *model.Session
		want string
	}{
		{name: "nil session", sess: nil, want: "session is nil"},
		{name: "no messages", sess: noMessages, want: "session has no messages"},
		{name: "zero created", sess: zeroCreated, want: "invalid creation timestamp"},
	}

	for _, format := range []string{"md", "json", "xlsx"} {
		exporter, err := ForFormat(format, nil)
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", format, err)
		}
		for _, tt := range tests {
			t.Run(format+"/"+tt.name, func(t *testing.T) {
				_, err := exporter.Export(tt.sess)
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tt.want) {
					t.Errorf("error = %q, want substring %q", err, tt.want)
				}
			})
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		mustNot  []string
		mustHave []string
	}{
		{
			input:    "Test/Path\\Name:With*Special?Chars",
			mustNot:  []string{"/", "\\", ":", "*", "?"},
			mustHave: []string{"-"},
		},
		{
			input:    "Test<HTML>Tags|Pipe",
			mustNot:  []string{"<", ">", "|"},
			mustHave: []string{"-"},
		},
		{
			input:    "Test With Spaces\tAnd\nNewlines\r",
			mustNot:  []string{" ", "\t", "\n", "\r"},
			mustHave: []string{"_"},
		},
		{
			input:    "Test\x00\x01\x1fControl\x7fChars",
			mustNot:  []string{"\x00", "\x01", "\x1f", "\x7f"},
			mustHave: []string{"-"},
		},
	}

	for _, tt := range tests {
		result := sanitizeFilename(tt.input)
		for _, char := range tt.mustNot {
			if strings.Contains(result, char) {
				t.Errorf("sanitizeFilename(%q) contains forbidden character %q, got %q", tt.input, char, result)
			}
		}
		for _, char := range tt.mustHave {
			if !strings.Contains(result, char) {
				t.Errorf("sanitizeFilename(%q) should contain %q, got %q", tt.input, char, result)
			}
		}
	}

	if got := sanitizeFilename(""); got != "session" {
		t.Errorf("empty title fallback = %q", got)
	}
}

func TestExportToFile(t *testing.T) {
	sess := testSession(t)
	dir := t.TempDir()

	opts := &Options{OutputDir: dir, IncludeMetadata: true, IncludeTimestamps: true}
	path, err := ExportToFile(sess, NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("file written to %q, want dir %q", path, dir)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "session_") || !strings.HasSuffix(base, ".md") {
		t.Errorf("unexpected filename %q", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if !strings.Contains(string(data), "## Conversation") {
		t.Error("exported file missing transcript")
	}
}

func TestExportToFileCreatesOutputDir(t *testing.T) {
	sess := testSession(t)
	dir := filepath.Join(t.TempDir(), "exports", "2026")

	opts := &Options{OutputDir: dir}
	if _, err := ExportToFile(sess, NewJSONExporter(opts), opts); err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := formatTimestamp(ts); got != "2026-03-14 09:26:53" {
		t.Errorf("formatTimestamp = %q", got)
	}
	if got := formatShortTimestamp(ts); got != "09:26:53" {
		t.Errorf("formatShortTimestamp = %q", got)
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
