// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Tab completion for slash commands. The popup opens on Tab, stays in sync
// while the command is typed, and Enter applies the highlighted entry.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// TAB COMPLETION
// =============================================================================

// isCompleting reports whether Tab should drive command completion rather
// than widget focus traversal.
func (m *Model) isCompleting() bool {
	return strings.HasPrefix(m.input.Value(), "/")
}

// handleTabCompletion opens the completion popup, or cycles it when it is
// already showing. A single match applies immediately.
func (m Model) handleTabCompletion(reverse bool) (tea.Model, tea.Cmd) {
	if m.completer == nil || m.completionState == nil {
		return m, nil
	}

	if m.completionState.Visible {
		if reverse {
			m.completionState.Prev()
		} else {
			m.completionState.Next()
		}
		m.completionPopup.SetSelected(m.completionState.Selected)
		return m, nil
	}

	input := m.input.Value()
	completions := m.completer.Complete(input, m.input.Position())
	if len(completions) == 0 {
		return m, nil
	}

	if len(completions) == 1 {
		return m.applyCompletionValue(completions[0].Value)
	}

	m.completionState.Update(input, completions)
	m.completionPopup.SetCompletions(completions)
	m.completionPopup.SetSelected(m.completionState.Selected)
	return m, nil
}

// applySelectedCompletion applies the highlighted popup entry.
func (m Model) applySelectedCompletion() (tea.Model, tea.Cmd) {
	if m.completionState == nil || !m.completionState.Visible {
		return m, nil
	}

	selected := m.completionState.GetSelected()
	if selected == nil {
		m.clearCompletions()
		return m, nil
	}
	return m.applyCompletionValue(selected.Value)
}

// applyCompletionValue splices a completion into the composer, replacing
// the word under the cursor. Commands that take arguments get a trailing
// space so the user can keep typing.
func (m Model) applyCompletionValue(value string) (tea.Model, tea.Cmd) {
	input := m.input.Value()
	start := findCompletionStart(input, m.input.Position())

	newInput := input[:start] + value
	if strings.HasPrefix(value, "/") {
		if cmd := m.completer.GetCommand(value); cmd != nil && len(cmd.Args) > 0 {
			newInput += " "
		}
	}

	m.input.SetValue(newInput)
	m.input.CursorEnd()
	m.clearCompletions()
	return m, textinput.Blink
}

// refreshCompletions keeps an already-visible popup in sync with the
// composer. It never opens the popup on its own; that is Tab's job, so
// Enter still submits a fully typed command.
func (m *Model) refreshCompletions() {
	if m.completionState == nil || !m.completionState.Visible {
		return
	}

	input := m.input.Value()
	if !strings.HasPrefix(input, "/") {
		m.clearCompletions()
		return
	}

	completions := m.completer.Complete(input, m.input.Position())
	if len(completions) == 0 {
		m.clearCompletions()
		return
	}

	m.completionState.Update(input, completions)
	m.completionPopup.SetCompletions(completions)
	m.completionPopup.SetSelected(m.completionState.Selected)
}

// clearCompletions hides the popup and resets its state.
func (m *Model) clearCompletions() {
	if m.completionState != nil {
		m.completionState.Clear()
	}
	if m.completionPopup != nil {
		m.completionPopup.Clear()
	}
}

// findCompletionStart locates the start of the token being completed: the
// leading slash for a command name, otherwise the word after the last
// space (command arguments).
func findCompletionStart(input string, cursorPos int) int {
	if cursorPos > len(input) {
		cursorPos = len(input)
	}

	if strings.HasPrefix(strings.TrimSpace(input[:cursorPos]), "/") {
		for i := cursorPos - 1; i >= 0; i-- {
			if input[i] == '/' {
				return i
			}
			if input[i] == ' ' {
				break
			}
		}
	}

	for i := cursorPos - 1; i >= 0; i-- {
		if input[i] == ' ' {
			return i + 1
		}
	}
	return 0
}
