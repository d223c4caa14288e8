// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown format. Chart payloads in
// assistant replies are rendered as Markdown tables in place of their fences,
// so the exported file reads as a report, not as raw JSON.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a session to Markdown format.
func (e *MarkdownExporter) Export(sess *model.Session) ([]byte, error) {
	if err := validateSession(sess); err != nil {
		return nil, err
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(sess.GetTitle())))
		if sess.Agent != "" {
			sb.WriteString(fmt.Sprintf("agent: %s\n", escapeYAML(sess.Agent)))
		}
		sb.WriteString(fmt.Sprintf("thread: %s\n", sess.ThreadID))
		sb.WriteString(fmt.Sprintf("date: %s\n", sess.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", sess.UpdatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(sess.Messages)))
		if sess.TokensUsed > 0 {
			sb.WriteString(fmt.Sprintf("tokens: %d\n", sess.TokensUsed))
		}
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: advisor-tui\n")
		sb.WriteString("---\n\n")
	}

	// Title
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(sess.GetTitle())))

	// Metadata section
	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		if sess.Agent != "" {
			sb.WriteString(fmt.Sprintf("- **Agent**: %s\n", sess.Agent))
		}
		sb.WriteString(fmt.Sprintf("- **Thread**: %s\n", sess.ThreadID))
		sb.WriteString(fmt.Sprintf("- **Created**: %s\n", formatTimestamp(sess.CreatedAt)))
		sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(sess.UpdatedAt)))
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(sess.Messages)))
		if sess.TokensUsed > 0 {
			sb.WriteString(fmt.Sprintf("- **Tokens Used**: %d\n", sess.TokensUsed))
		}
		sb.WriteString("\n---\n\n")
	}

	// Conversation messages
	sb.WriteString("## Conversation\n\n")

	for i, msg := range sess.Messages {
		// Role label with timestamp
		roleLabel := e.formatRoleLabel(msg.Role)
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n",
				roleLabel,
				formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", roleLabel))
		}

		sb.WriteString(e.formatMessageContent(msg.GetDisplayContent()))
		sb.WriteString("\n\n")

		// Statistics for assistant messages
		if msg.Role == model.RoleAssistant && e.options.IncludeMetadata {
			if stats := msg.FormatStats(); stats != "" {
				sb.WriteString(fmt.Sprintf("<sub>%s</sub>\n\n", stats))
			}
		}

		// Add separator between messages (except last)
		if i < len(sess.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	// Footer
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from advisor TUI on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatRoleLabel returns a formatted label for the message role.
func (e *MarkdownExporter) formatRoleLabel(role model.Role) string {
	if role == "" {
		return "Unknown"
	}

	switch role {
	case model.RoleUser:
		return "[You]"
	case model.RoleAssistant:
		return "[Advisor]"
	case model.RoleSystem:
		return "[System]"
	default:
		runes := []rune(string(role))
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

// formatMessageContent rewrites a message body for export: chart fences are
// replaced by Markdown tables of their data, everything else passes through.
// A fence that failed extraction stays in the text verbatim, same as the TUI.
func (e *MarkdownExporter) formatMessageContent(content string) string {
	content = strings.TrimSpace(content)

	result := chartdata.ExtractCharts(content)
	if !result.HasCharts() {
		return content
	}

	var sb strings.Builder
	for _, seg := range chartdata.SplitPlaceholders(result.Text, len(result.Charts)) {
		if seg.IsChart() {
			sb.WriteString(formatChartTable(result.Charts[seg.ChartIndex]))
		} else {
			sb.WriteString(seg.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// formatChartTable renders one extracted chart payload as a Markdown table
// with a bold caption line.
func formatChartTable(desc *chartdata.ChartDescriptor) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**%s** *(%s)*\n\n", escapeMarkdown(desc.DisplayTitle()), desc.Type))

	if len(desc.Columns) == 0 {
		sb.WriteString("*(no data)*\n")
		return sb.String()
	}

	headers := make([]string, len(desc.Columns))
	for i, col := range desc.Columns {
		headers[i] = escapeTableCell(col)
	}
	sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(desc.Columns)) + "\n")

	for _, row := range desc.Data {
		cells := make([]string, len(desc.Columns))
		for i, col := range desc.Columns {
			cells[i] = escapeTableCell(chartdata.Stringify(row[col]))
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeTableCell keeps cell text from breaking table structure.
func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	// Quote if contains special characters (including backslash)
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		// Escape special characters including newlines and backslashes
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
