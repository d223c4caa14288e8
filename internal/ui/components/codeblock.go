// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock renders one fenced code block from an advisor reply as a
// bordered panel with a language badge and line numbers. Chart payloads
// never reach this component while widgets are active; it only sees them
// in source view (Ctrl+O), where the raw fence is shown on purpose.
type CodeBlock struct {
	Language  string
	Code      string
	MaxWidth  int
	Highlight bool
}

// NewCodeBlock creates a code block with highlighting enabled.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language:  language,
		Code:      code,
		MaxWidth:  80,
		Highlight: true,
	}
}

// SetMaxWidth sets the maximum rendered width.
func (c *CodeBlock) SetMaxWidth(width int) {
	c.MaxWidth = width
}

// SetHighlight toggles chroma highlighting (ui.syntax_highlight).
func (c *CodeBlock) SetHighlight(on bool) {
	c.Highlight = on
}

// Render renders the block.
func (c CodeBlock) Render() string {
	code := strings.TrimSpace(c.Code)

	language := c.Language
	if language == "" {
		language = detectLanguage(code)
	}

	content := code
	if c.Highlight {
		content = highlightCode(code, language)
	}
	lines := strings.Split(content, "\n")

	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	var renderedLines []string
	for i, line := range lines {
		// Highlighted lines already carry ANSI styling from chroma.
		renderedLines = append(renderedLines, lineNumStyle.Render(strconv.Itoa(i+1))+line)
	}
	codeContent := strings.Join(renderedLines, "\n")

	var header string
	if c.Language != "" {
		langBadge := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Background(styles.OverlayDim).
			Padding(0, 1).
			Bold(true).
			Render(c.Language)
		header = langBadge + "\n"
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(1, 2).
		MaxWidth(maxWidth).
		Render(header + codeContent)
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode applies chroma terminal highlighting; failures fall back to
// the plain text rather than erroring.
func highlightCode(code, language string) string {
	// The advisor's chart fences carry a tag chroma does not know.
	if language == "chart-json" {
		language = "json"
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// detectLanguage guesses the language of an untagged block.
func detectLanguage(code string) string {
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
