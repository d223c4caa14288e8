// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the advisor TUI.
package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/advisor-tui/internal/commands"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// =============================================================================
// COMPLETION POPUP
// =============================================================================

// CompletionPopup renders the slash-command completion list above the
// composer. Selection state lives in commands.CompletionState; the popup is
// a passive view over it and is told which entry is highlighted.
type CompletionPopup struct {
	completions []commands.Completion
	selected    int
	maxVisible  int
	width       int
	theme       *styles.Theme
}

// NewCompletionPopup creates an empty completion popup.
func NewCompletionPopup(theme *styles.Theme) *CompletionPopup {
	return &CompletionPopup{
		maxVisible: 8,
		width:      50,
		theme:      theme,
	}
}

// SetCompletions replaces the list and resets the highlight to the top.
func (c *CompletionPopup) SetCompletions(completions []commands.Completion) {
	c.completions = completions
	c.selected = 0
}

// SetSelected moves the highlight. Out-of-range indexes are ignored.
func (c *CompletionPopup) SetSelected(index int) {
	if index < 0 || index >= len(c.completions) {
		return
	}
	c.selected = index
}

// HasCompletions reports whether there is anything to show.
func (c *CompletionPopup) HasCompletions() bool {
	return len(c.completions) > 0
}

// Clear empties the popup.
func (c *CompletionPopup) Clear() {
	c.completions = nil
	c.selected = 0
}

// SetWidth sets the popup width.
func (c *CompletionPopup) SetWidth(width int) {
	if width < 24 {
		width = 24
	}
	c.width = width
}

// View renders the popup box. Long lists scroll in a window centered on the
// highlighted entry.
func (c *CompletionPopup) View() string {
	if len(c.completions) == 0 {
		return ""
	}

	start := 0
	end := len(c.completions)
	if len(c.completions) > c.maxVisible {
		start = c.selected - c.maxVisible/2
		if start < 0 {
			start = 0
		}
		end = start + c.maxVisible
		if end > len(c.completions) {
			end = len(c.completions)
			start = end - c.maxVisible
			if start < 0 {
				start = 0
			}
		}
	}

	var items []string
	for i := start; i < end; i++ {
		items = append(items, c.renderItem(c.completions[i], i == c.selected))
	}
	content := strings.Join(items, "\n")

	if hidden := len(c.completions) - (end - start); hidden > 0 {
		more := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render("  ..." + strconv.Itoa(hidden) + " more")
		content += "\n" + more
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Cyan).
		Padding(0, 1).
		Width(c.width).
		MaxWidth(c.width).
		Render(content)
}

// renderItem renders one completion row: highlight marker, command, and its
// description.
func (c *CompletionPopup) renderItem(comp commands.Completion, isSelected bool) string {
	valueStyle := lipgloss.NewStyle().
		Width(20).
		Foreground(styles.TextPrimary)
	descStyle := lipgloss.NewStyle().
		Width(c.width - 24).
		Foreground(styles.TextSecondary)

	if isSelected {
		valueStyle = valueStyle.
			Background(styles.Cyan).
			Foreground(styles.Surface).
			Bold(true)
		descStyle = descStyle.
			Foreground(styles.TextPrimary)
	}

	value := comp.Display
	if value == "" {
		value = comp.Value
	}
	if runes := []rune(value); len(runes) > 20 {
		value = string(runes[:17]) + "..."
	}

	desc := comp.Description
	maxDescLen := c.width - 24
	if maxDescLen < 4 {
		maxDescLen = 4
	}
	if runes := []rune(desc); len(runes) > maxDescLen {
		desc = string(runes[:maxDescLen-3]) + "..."
	}

	indicator := " "
	if isSelected {
		indicator = ">"
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		lipgloss.NewStyle().Width(2).Foreground(styles.Cyan).Render(indicator),
		valueStyle.Render(value),
		descStyle.Render(desc),
	)
}
