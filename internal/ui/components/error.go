// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// ErrorDisplay is a blocking error banner: title, message, and recovery
// suggestions, rendered as a centered box. The chat model owns dismissal;
// this component only renders.
type ErrorDisplay struct {
	title       string
	message     string
	suggestions []string
	category    ErrorCategory

	width  int
	height int
}

// NewError creates a display with a title and message.
func NewError(title, message string) ErrorDisplay {
	return ErrorDisplay{
		title:    title,
		message:  message,
		category: CategoryUnknown,
	}
}

// NewErrorWithSuggestions creates a display with recovery suggestions.
func NewErrorWithSuggestions(title, message string, suggestions []string) ErrorDisplay {
	e := NewError(title, message)
	e.suggestions = suggestions
	return e
}

// NewEnhancedError creates a display from a matched pattern.
func NewEnhancedError(pattern ErrorPattern, message string) ErrorDisplay {
	return ErrorDisplay{
		title:       pattern.Title,
		message:     message,
		suggestions: pattern.Suggestions,
		category:    pattern.Category,
	}
}

// SetSize sets the area the box centers within.
func (e *ErrorDisplay) SetSize(width, height int) {
	e.width = width
	e.height = height
}

// GetTitle returns the display title.
func (e ErrorDisplay) GetTitle() string { return e.title }

// GetMessage returns the display message.
func (e ErrorDisplay) GetMessage() string { return e.message }

// GetSuggestions returns the recovery suggestions.
func (e ErrorDisplay) GetSuggestions() []string { return e.suggestions }

// GetCategory returns the error category.
func (e ErrorDisplay) GetCategory() ErrorCategory { return e.category }

// View renders the error box.
func (e ErrorDisplay) View() string {
	width := e.width
	if width == 0 {
		width = 60
	}

	maxWidth := width - 8
	if maxWidth < 30 {
		maxWidth = 30
	}
	if maxWidth > 80 {
		maxWidth = 80
	}

	var parts []string

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.ErrorHighContrast).
		Bold(true)
	parts = append(parts, titleStyle.Render(styles.StatusIndicators.Error+" "+e.title))
	parts = append(parts, "")

	if e.message != "" {
		messageStyle := lipgloss.NewStyle().
			Foreground(styles.TextPrimary).
			Width(maxWidth - 4)
		parts = append(parts, messageStyle.Render(e.message))
		parts = append(parts, "")
	}

	if len(e.suggestions) > 0 {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.InfoHighContrast).
			Bold(true).
			Render("Suggestions:"))

		bulletStyle := lipgloss.NewStyle().Foreground(styles.Cyan)
		textStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)
		for _, suggestion := range e.suggestions {
			parts = append(parts, bulletStyle.Render("  * ")+textStyle.Render(suggestion))
		}
		parts = append(parts, "")
	}

	hintStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)
	parts = append(parts, hintStyle.Render("[Enter] Dismiss"))

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	borderColor := styles.ErrorHighContrast
	switch e.category {
	case CategoryConfig, CategoryParse, CategoryResource:
		borderColor = styles.WarningHighContrast
	case CategoryTimeout:
		borderColor = styles.InfoHighContrast
	}

	categoryStr := string(e.category)
	if categoryStr == "" {
		categoryStr = string(CategoryUnknown)
	}

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		Width(maxWidth).
		Render(content)

	box = addTitleToBox(box, " "+categoryStr+" ", borderColor)

	if e.height > 0 {
		return lipgloss.Place(
			e.width, e.height,
			lipgloss.Center, lipgloss.Center,
			box,
		)
	}
	return box
}

// ErrorOverlay renders a centered, full-screen error box.
func ErrorOverlay(width, height int, title, message string, suggestions []string) string {
	e := NewErrorWithSuggestions(title, message, suggestions)
	e.SetSize(width, height)
	return e.View()
}

// =============================================================================
// INLINE MESSAGES
// =============================================================================

// InlineError renders a one-line error message for CLI output.
func InlineError(message string) string {
	style := lipgloss.NewStyle().Foreground(styles.ErrorHighContrast)
	return style.Bold(true).Render(styles.StatusIndicators.Error+" ") +
		style.Render(message)
}

// InlineWarning renders a one-line warning message.
func InlineWarning(message string) string {
	style := lipgloss.NewStyle().Foreground(styles.WarningHighContrast)
	return style.Bold(true).Render(styles.StatusIndicators.Warning+" ") +
		style.Render(message)
}

// InlineInfo renders a one-line info message.
func InlineInfo(message string) string {
	iconStyle := lipgloss.NewStyle().
		Foreground(styles.InfoHighContrast).
		Bold(true)
	messageStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary)
	return iconStyle.Render(styles.StatusIndicators.Info+" ") +
		messageStyle.Render(message)
}

// InlineSuccess renders a one-line success message.
func InlineSuccess(message string) string {
	style := lipgloss.NewStyle().Foreground(styles.SuccessHighContrast)
	return style.Bold(true).Render(styles.StatusIndicators.Success+" ") +
		style.Render(message)
}

// addTitleToBox overlays a category label on the top border of a box.
func addTitleToBox(box, title string, color lipgloss.AdaptiveColor) string {
	lines := strings.Split(box, "\n")
	if len(lines) == 0 || len(lines[0]) <= 4 {
		return box
	}

	styledTitle := lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Render(title)

	first := lines[0]
	cut := 2 + lipgloss.Width(styledTitle)
	if cut > len(first) {
		cut = len(first)
	}
	lines[0] = first[0:2] + styledTitle + first[cut:]
	return strings.Join(lines, "\n")
}
