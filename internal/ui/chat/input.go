// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file contains input submission: validation, the command check, and
// the handoff from composer text to a streaming agent run.
package chat

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jeranaias/advisor-tui/internal/agent"
	"github.com/jeranaias/advisor-tui/internal/model"
)

// =============================================================================
// INPUT SUBMISSION
// =============================================================================

// submitInput is the entry point for composer submission. Slash commands
// are dispatched to their handlers; everything else becomes a user message
// and starts a streaming run.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}

	m.clearCompletions()
	m.input.Reset()

	if strings.HasPrefix(content, "/") {
		return m.handleCommand(content)
	}

	return m.sendMessage(content)
}

// sendMessage appends the user turn, creates the streaming assistant
// placeholder, and starts the run. The stream pump delivers tokens back as
// messages; handleStreamStart arms the ticker and the first channel read.
func (m Model) sendMessage(content string) (tea.Model, tea.Cmd) {
	if m.state != StateReady {
		return m, nil
	}
	if m.agent == nil || !m.agent.IsConfigured() {
		err := SmartErrorMsg("Backend not configured", agent.ErrNotConfigured)
		return m, func() tea.Msg { return err }
	}

	// Typing a message while a widget held focus should feel like the
	// composer always had it.
	m.clearWidgetFocus()
	m.input.Focus()

	m.session.AddUserMessage(content)
	assistantMsg := m.session.AddAssistantMessage()

	m.streamingMsgID = assistantMsg.ID
	m.streamingStats = model.NewStatistics()
	m.streamTokens = 0
	m.state = StateStreaming
	m.isThinking = true
	m.thinkingStart = time.Now()
	m.streamingBuffer.Reset()
	m.chips = nil

	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	m.viewport.GotoBottom()

	m.stream = startRun(m.agent, m.buildRunInput(), assistantMsg.ID)

	start := NewStreamStartMsg(assistantMsg.ID)
	return m, func() tea.Msg { return start }
}

// buildRunInput assembles the run request from the session history. System
// messages are UI-local command output and never reach the backend; empty
// or still-streaming messages are skipped too.
func (m *Model) buildRunInput() agent.RunInput {
	history := m.session.GetHistory()
	msgs := make([]agent.InputMessage, 0, len(history))
	for _, h := range history {
		if h.Role == model.RoleSystem {
			continue
		}
		if h.IsStreaming || strings.TrimSpace(h.Content) == "" {
			continue
		}
		msgs = append(msgs, agent.InputMessage{
			ID:      h.ID,
			Role:    string(h.Role),
			Content: h.Content,
		})
	}

	return agent.RunInput{
		ThreadID: m.session.ThreadID,
		RunID:    "run_" + uuid.NewString(),
		Messages: msgs,
	}
}

// =============================================================================
// SUGGESTION CHIPS
// =============================================================================

// sendChip sends the chip at the given index as a regular message.
func (m Model) sendChip(idx int) (tea.Model, tea.Cmd) {
	if idx < 0 || idx >= len(m.chips) {
		return m, nil
	}
	return m.sendMessage(m.chips[idx].Text)
}

// askAboutSelection turns the active chart selection into a drill-down
// question and sends it.
func (m Model) askAboutSelection() (tea.Model, tea.Cmd) {
	if m.selStore == nil {
		return m, nil
	}
	q := m.selStore.QuestionText()
	if q == "" {
		return m, nil
	}
	return m.sendMessage(q)
}
