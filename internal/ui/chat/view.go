// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains all rendering logic for the chat interface, including:
//   - Main view rendering (renderChat)
//   - Message rendering (user, advisor, system messages)
//   - Chart widget splicing into advisor replies
//   - UI chrome (header, selection bar, chip row, input area, status bar)
//   - Code block processing
//
// Formatting and text utilities live in utils.go.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the chat view.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Login gate takes the whole screen until authentication succeeds.
	if m.state == StateLogin && m.login != nil {
		return m.login.View()
	}

	// Help overlay replaces the normal UI while visible.
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	// Blocking error banner. Dismiss returns to the chat.
	if m.state == StateError && m.lastError != nil {
		return components.ErrorOverlay(
			m.width, m.height,
			m.lastError.Title,
			m.lastError.Message,
			m.lastError.Suggestions,
		)
	}

	return m.renderChat()
}

// renderChat renders the complete chat layout.
// Layout: header (2) + messages (viewport) + selection bar (1) + chip row (1)
// + input area (4) + status area (2). Total height must equal m.height
// exactly to prevent overflow/underflow.
//
// COUPLING WARNING: the viewport height is pre-calculated in handleResize()
// (model.go) from the layout constants. This function measures actual
// heights with lipgloss.Height() and forces the viewport render to fit when
// they disagree (the completion popup temporarily growing the input area is
// the common case). If you change the height of any chrome component here,
// also update the constants in model.go.
func (m Model) renderChat() string {
	header := m.renderHeader()
	selectionBar := m.renderSelectionBar()
	chipRow := m.renderChipRow()
	input := m.renderInputWithCompletion()
	status := m.renderStatusArea()

	fixed := lipgloss.Height(header) +
		lipgloss.Height(selectionBar) +
		lipgloss.Height(chipRow) +
		lipgloss.Height(input) +
		lipgloss.Height(status)

	availableHeight := m.height - fixed
	if availableHeight < 1 {
		availableHeight = 1
	}

	// The viewport was sized in handleResize; force the rendered height when
	// the chrome grew or shrank since then so the stack stays exact.
	messages := m.viewport.View()
	if lipgloss.Height(messages) != availableHeight {
		messages = lipgloss.NewStyle().
			Height(availableHeight).
			MaxHeight(availableHeight).
			Width(m.width).
			Render(messages)
	}

	baseView := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		messages,
		selectionBar,
		chipRow,
		input,
		status,
	)

	// Non-blocking toasts overlay the bottom-right corner last.
	if m.toastManager != nil && m.toastManager.HasToasts() {
		toastView := components.RenderToastStack(m.toastManager.GetToasts(), m.width, 0)
		return m.overlayToasts(baseView, toastView)
	}

	return baseView
}

// overlayToasts splices the toast stack into the bottom-right corner of the
// base view without disturbing the rest of the layout.
func (m Model) overlayToasts(baseView, toastView string) string {
	baseLines := strings.Split(baseView, "\n")
	toastLines := strings.Split(toastView, "\n")

	toastHeight := len(toastLines)

	// Land the stack just above the two-line status area.
	startRow := m.height - toastHeight - 3
	if startRow < 0 {
		startRow = 0
	}

	result := make([]string, len(baseLines))
	for i, baseLine := range baseLines {
		result[i] = baseLine

		toastLineIdx := i - startRow
		if toastLineIdx < 0 || toastLineIdx >= len(toastLines) {
			continue
		}
		toastLine := toastLines[toastLineIdx]
		toastLineWidth := lipgloss.Width(toastLine)
		if toastLineWidth == 0 {
			continue
		}

		// Make room on the base line, padding or truncating as needed.
		avail := m.width - toastLineWidth - 1
		if avail < 0 {
			avail = 0
		}
		baseWidth := lipgloss.Width(baseLine)
		if baseWidth < avail {
			baseLine = baseLine + strings.Repeat(" ", avail-baseWidth)
		} else if baseWidth > avail {
			baseLine = truncateToWidth(baseLine, avail)
		}

		result[i] = baseLine + toastLine
	}

	return strings.Join(result, "\n")
}

// truncateToWidth truncates a string to fit within a given visible width.
func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}

	currentWidth := 0
	var result strings.Builder

	for _, r := range s {
		runeWidth := lipgloss.Width(string(r))
		if currentWidth+runeWidth > width {
			break
		}
		result.WriteRune(r)
		currentWidth += runeWidth
	}

	return result.String()
}

// =============================================================================
// HEADER
// =============================================================================

// renderHeader renders the title bar with session title, signed-in user, and
// backend connection state, followed by a spacer line. Always 2 lines high.
func (m Model) renderHeader() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Purple).
		Render("advisor")

	var sessionInfo string
	if m.session != nil && !m.session.IsEmpty() {
		sessionInfo = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(" | " + truncateRunes(m.session.GetTitle(), 36))
	}

	var conn string
	switch {
	case m.state == StateStreaming:
		conn = lipgloss.NewStyle().
			Foreground(styles.ConnChecking).
			Render(styles.StatusIndicators.Active + " streaming")
	case m.backendOK:
		name := m.backendInfo
		if name == "" {
			name = "online"
		}
		conn = lipgloss.NewStyle().
			Foreground(styles.ConnOnline).
			Render(styles.StatusIndicators.Active + " " + name)
	default:
		conn = lipgloss.NewStyle().
			Foreground(styles.ConnOffline).
			Render(styles.StatusIndicators.Error + " offline")
	}

	right := conn
	if m.authMgr != nil && m.authMgr.IsAuthenticated() {
		user := lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Render(m.authMgr.Username())
		sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")
		right = user + sep + conn
	}

	left := title + sessionInfo
	pad := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		// The session title gives way first on narrow terminals.
		left = title
		pad = width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
		if pad < 1 {
			pad = 1
		}
	}

	bar := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Width(width).
		MaxHeight(1).
		Padding(0, 1).
		Render(left + strings.Repeat(" ", pad) + right)

	return bar + "\n"
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the transcript with appropriate styling per role.
// Returns the empty state screen when the conversation has no messages.
func (m *Model) renderMessages() string {
	if m.session == nil || m.session.IsEmpty() {
		return m.renderEmptyState()
	}

	var parts []string
	messages := m.session.GetHistory()

	for i, msg := range messages {
		rendered := m.renderMessage(msg, i == len(messages)-1)
		if rendered == "" {
			continue
		}
		parts = append(parts, rendered)
	}

	// Thinking indicator while the stream has produced no tokens yet.
	if m.state == StateStreaming && m.isThinking {
		parts = append(parts, m.renderThinking())
	}

	return strings.Join(parts, "\n")
}

// renderMessage renders a single message based on its role.
func (m *Model) renderMessage(msg *model.Message, isLast bool) string {
	switch msg.Role {
	case model.RoleUser:
		return m.renderUserMessage(msg)
	case model.RoleAssistant:
		return m.renderAdvisorMessage(msg, isLast)
	case model.RoleSystem:
		return m.renderSystemMessage(msg)
	default:
		return msg.GetDisplayContent()
	}
}

// renderUserMessage renders a user message with blue styling, right-aligned.
func (m *Model) renderUserMessage(msg *model.Message) string {
	maxWidth := m.width - 8
	if maxWidth > m.width-2 {
		maxWidth = m.width - 2
	}
	if maxWidth < 10 {
		maxWidth = 10
	}

	content := msg.GetDisplayContent()

	bubble := lipgloss.NewStyle().
		Foreground(styles.UserBubbleFg).
		Background(styles.UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.UserBubbleBorder).
		Padding(0, 2).
		MaxWidth(maxWidth)

	wrapWidth := maxWidth - 4
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	rendered := bubble.Render(wrapText(content, wrapWidth))

	// Push right; alignment and color mark this as the user's side.
	marginLeft := m.width - lipgloss.Width(rendered) - 4
	if marginLeft < 0 {
		marginLeft = 0
	}

	return lipgloss.NewStyle().
		MarginLeft(marginLeft).
		MarginTop(1).
		MarginBottom(1).
		Render(rendered)
}

// renderAdvisorMessage renders an advisor reply. Finalized replies have their
// chart payloads spliced out and replaced by the mounted widgets in place;
// streaming replies and source view render the raw text with the fences
// visible as code blocks.
func (m *Model) renderAdvisorMessage(msg *model.Message, isLast bool) string {
	maxWidth := m.width - 8
	if maxWidth > m.width-2 {
		maxWidth = m.width - 2
	}
	if maxWidth < 10 {
		maxWidth = 10
	}

	content := msg.GetDisplayContent()

	// Skip empty finalized messages (prevents an empty bubble).
	if strings.TrimSpace(content) == "" && !msg.IsStreaming {
		return ""
	}

	// Streaming cursor on the live message.
	if msg.IsStreaming && m.state == StateStreaming {
		if content == "" {
			content = "_"
		} else {
			content += lipgloss.NewStyle().
				Foreground(styles.Purple).
				Blink(true).
				Render("_")
		}
	}

	var body string
	if msg.IsStreaming || m.showSource {
		// A streaming payload may be half-arrived; never splice widgets
		// until the message finalizes. Source view (C-o) keeps the fences
		// visible on purpose.
		body = m.renderProse(content, maxWidth)
	} else {
		body = m.renderAdvisorSegments(msg, content, maxWidth)
	}

	var statsLine string
	if !msg.IsStreaming && msg.TotalDuration > 0 {
		statsLine = "\n" + m.renderStats(msg)
	}

	return lipgloss.NewStyle().
		MarginTop(1).
		MarginBottom(1).
		MarginLeft(2).
		Render(body + statsLine)
}

// renderAdvisorSegments splits a finalized reply into prose and chart
// segments and renders them in document order. Chart segments resolve to the
// mounted widget for that transcript position; a chart the scanner has not
// mounted yet (or refused) renders as a muted placeholder line.
func (m *Model) renderAdvisorSegments(msg *model.Message, content string, maxWidth int) string {
	res := chartdata.ExtractCharts(content)
	if !res.HasCharts() {
		return m.renderProse(content, maxWidth)
	}

	var parts []string
	for _, seg := range chartdata.SplitPlaceholders(res.Text, len(res.Charts)) {
		if !seg.IsChart() {
			text := strings.Trim(seg.Text, "\n")
			if strings.TrimSpace(text) == "" {
				continue
			}
			parts = append(parts, m.renderProse(text, maxWidth))
			continue
		}

		if w := m.widgetFor(msg.ID, seg.ChartIndex); w != nil {
			parts = append(parts, w.View())
		} else {
			parts = append(parts, m.renderPendingChart(res.Charts[seg.ChartIndex]))
		}
	}

	return strings.Join(parts, "\n")
}

// renderPendingChart renders the stand-in line for a chart that has been
// extracted but not mounted: scan still debouncing, registry full, or the
// widget build failed.
func (m *Model) renderPendingChart(desc *chartdata.ChartDescriptor) string {
	return lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true).
		PaddingLeft(1).
		Render("[chart: " + desc.DisplayTitle() + "]")
}

// renderProse renders reply text in the advisor bubble, splitting out fenced
// code blocks into their own panels.
func (m *Model) renderProse(content string, maxWidth int) string {
	wrapWidth := maxWidth - 4
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	textBubble := lipgloss.NewStyle().
		Foreground(styles.AdvisorBubbleFg).
		Background(styles.AdvisorBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.AdvisorBubbleBorder).
		Padding(0, 2).
		MaxWidth(maxWidth)

	if !strings.Contains(content, "```") {
		return textBubble.Render(wrapText(content, wrapWidth))
	}

	// Split prose and code blocks.
	var parts []string
	var currentText []string
	var codeLines []string
	var language string
	var inCodeBlock bool

	flushText := func() {
		if len(currentText) == 0 {
			return
		}
		text := strings.Join(currentText, "\n")
		if strings.TrimSpace(text) != "" {
			parts = append(parts, textBubble.Render(wrapText(text, wrapWidth)))
		}
		currentText = nil
	}

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "```"):
			if inCodeBlock {
				flushText()
				cb := components.NewCodeBlock(language, strings.Join(codeLines, "\n"))
				cb.SetMaxWidth(maxWidth)
				cb.SetHighlight(m.cfg == nil || m.cfg.UI.SyntaxHighlight)
				parts = append(parts, cb.Render())
				codeLines = nil
				language = ""
				inCodeBlock = false
			} else {
				flushText()
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inCodeBlock = true
			}
		case inCodeBlock:
			codeLines = append(codeLines, line)
		default:
			currentText = append(currentText, line)
		}
	}

	flushText()

	// Unclosed code block: mid-stream, or the model just forgot the close.
	if inCodeBlock {
		if len(codeLines) > 0 {
			cb := components.NewCodeBlock(language, strings.Join(codeLines, "\n"))
			cb.SetMaxWidth(maxWidth)
			cb.SetHighlight(m.cfg == nil || m.cfg.UI.SyntaxHighlight)
			parts = append(parts, cb.Render())
		} else {
			parts = append(parts, textBubble.Render("```"+language))
		}
	}

	return strings.Join(parts, "\n")
}

// renderSystemMessage renders a system message with amber styling, centered.
func (m *Model) renderSystemMessage(msg *model.Message) string {
	maxWidth := m.width - 8
	if maxWidth > m.width-2 {
		maxWidth = m.width - 2
	}
	if maxWidth < 10 {
		maxWidth = 10
	}

	content := msg.GetDisplayContent()

	// Double border marks system output apart from the conversation.
	bubble := lipgloss.NewStyle().
		Foreground(styles.SystemBubbleFg).
		Background(styles.SystemBubbleBg).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.SystemBubbleBorder).
		Padding(0, 2).
		MaxWidth(maxWidth)

	wrapWidth := maxWidth - 4
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	rendered := bubble.Render(wrapText(content, wrapWidth))

	return lipgloss.NewStyle().
		MarginTop(1).
		MarginBottom(1).
		Render(rendered)
}

// renderStats renders the statistics line for a finalized advisor message.
func (m *Model) renderStats(msg *model.Message) string {
	stats := msg.FormatStats()
	if stats == "" {
		return ""
	}

	return lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true).
		PaddingLeft(2).
		Render(stats)
}

// renderThinking renders the animated waiting indicator shown between
// sending a message and the first token arriving.
func (m *Model) renderThinking() string {
	frame := m.spinner.View()
	if frame == "" {
		frames := styles.LineSpinner.Frames
		frame = frames[int(time.Now().UnixMilli()/100)%len(frames)]
	}

	label := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Render("Thinking")

	var elapsed string
	if !m.thinkingStart.IsZero() {
		if secs := int(time.Since(m.thinkingStart).Seconds()); secs >= 2 {
			elapsed = lipgloss.NewStyle().
				Foreground(styles.TextMuted).
				Render(fmt.Sprintf(" (%ds)", secs))
		}
	}

	accent := lipgloss.NewStyle().Foreground(styles.Purple)
	return "  " + accent.Render(frame) + " " + label + accent.Render("...") + elapsed
}

// renderEmptyState renders the welcome screen for an empty conversation.
func (m *Model) renderEmptyState() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	emptyWidth := width - 8
	if emptyWidth < 40 {
		emptyWidth = 40
	}
	if emptyWidth > 80 {
		emptyWidth = 80
	}

	var sb strings.Builder

	welcomeStyle := lipgloss.NewStyle().
		Foreground(styles.Purple).
		Bold(true).
		Align(lipgloss.Center).
		Width(emptyWidth)
	sb.WriteString(welcomeStyle.Render("Welcome to advisor"))
	sb.WriteString("\n\n")

	backendStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Align(lipgloss.Center).
		Width(emptyWidth)
	if m.backendOK {
		agentName := m.backendInfo
		if agentName == "" {
			agentName = "backend"
		}
		sb.WriteString(backendStyle.Render("Connected to " + agentName))
	} else {
		sb.WriteString(backendStyle.Render("Backend unreachable - check /health or run advisor doctor"))
	}
	sb.WriteString("\n\n")

	sepStyle := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Align(lipgloss.Center).
		Width(emptyWidth)
	sb.WriteString(sepStyle.Render(strings.Repeat("-", 40)))
	sb.WriteString("\n\n")

	tipsHeaderStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true)
	sb.WriteString(tipsHeaderStyle.Render("Quick Tips"))
	sb.WriteString("\n\n")

	tipStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted)
	keyStyle := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true)

	tips := []struct {
		key  string
		desc string
	}{
		{"Type a message", "Ask about your finances"},
		{"?", "Show keyboard shortcuts"},
		{"/help", "List available commands"},
		{"Tab", "Focus charts in a reply"},
		{"1-9", "Send a suggestion chip"},
	}

	for _, tip := range tips {
		line := fmt.Sprintf("  %s  %s",
			keyStyle.Render(fmt.Sprintf("%-16s", tip.key)),
			tipStyle.Render(tip.desc))
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")

	examplesHeaderStyle := lipgloss.NewStyle().
		Foreground(styles.Emerald).
		Bold(true)
	sb.WriteString(examplesHeaderStyle.Render("Try asking"))
	sb.WriteString("\n\n")

	exampleStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Italic(true)

	examples := []string{
		"\"How is my portfolio allocated?\"",
		"\"Show my spending by category this month\"",
		"\"Am I on track for my retirement goal?\"",
		"\"What were my three largest expenses last quarter?\"",
	}

	for _, example := range examples {
		sb.WriteString("  " + exampleStyle.Render(example))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")

	hintStyle := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Align(lipgloss.Center).
		Width(emptyWidth)
	sb.WriteString(hintStyle.Render("Press ? for help | Ctrl+Q to quit"))

	containerStyle := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(width - 4).
		Padding(2, 0)

	return containerStyle.Render(sb.String())
}

// =============================================================================
// SELECTION BAR
// =============================================================================

// renderSelectionBar renders the active chart selection, or a blank line
// when nothing is selected. Always exactly 1 line so the layout never jumps
// as selections come and go.
func (m Model) renderSelectionBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	blank := lipgloss.NewStyle().Width(width).MaxHeight(1).Render("")
	if m.selStore == nil {
		return blank
	}
	sel := m.selStore.Current()
	if sel == nil {
		return blank
	}

	label := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true).
		Render("Selection:")
	value := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Render(fmt.Sprintf(" %s = %s", sel.Name, formatFloat64(sel.Value)))
	hint := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Render("   C-a to ask about it")

	content := label + value
	if lipgloss.Width(content)+lipgloss.Width(hint) <= width-2 {
		content += hint
	}

	return lipgloss.NewStyle().
		Background(styles.SelectionBg).
		Width(width).
		MaxHeight(1).
		Padding(0, 1).
		Render(truncateToWidth(content, width-2))
}

// =============================================================================
// SUGGESTION CHIPS
// =============================================================================

// renderChipRow renders the numbered suggestion chips, or a blank line when
// none apply. Always exactly 1 line; chips that do not fit are dropped from
// the right.
func (m Model) renderChipRow() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	blank := lipgloss.NewStyle().Width(width).MaxHeight(1).Render("")
	if len(m.chips) == 0 || m.state != StateReady {
		return blank
	}

	numStyle := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true)
	chipStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary)
	contextualStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan)

	var row string
	for i, chip := range m.chips {
		style := chipStyle
		if chip.Contextual {
			style = contextualStyle
		}
		rendered := numStyle.Render(fmt.Sprintf("[%d]", i+1)) + " " +
			style.Render(truncateRunes(chip.Text, 38))

		candidate := rendered
		if row != "" {
			candidate = row + "  " + rendered
		}
		if lipgloss.Width(candidate) > width-2 {
			break
		}
		row = candidate
	}

	if row == "" {
		return blank
	}

	return lipgloss.NewStyle().
		Width(width).
		MaxHeight(1).
		Padding(0, 1).
		Render(row)
}

// =============================================================================
// INPUT AREA
// =============================================================================

// renderInputArea renders the composer: a focus-colored top border, the
// input line, and a meta line with the completion hint and character count.
// Forced to exactly 4 lines to prevent layout shift while typing.
func (m Model) renderInputArea() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	// Border color signals who owns the keyboard.
	var borderColor lipgloss.AdaptiveColor
	switch {
	case m.state == StateStreaming:
		borderColor = styles.Amber
	case m.focusKey != nil:
		borderColor = styles.OverlayDim
	default:
		borderColor = styles.FocusRing
	}

	borderLine := lipgloss.NewStyle().
		Foreground(borderColor).
		Render(strings.Repeat("─", width))

	var statusIndicator string
	switch {
	case m.state == StateStreaming:
		statusIndicator = lipgloss.NewStyle().
			Foreground(styles.Amber).
			Render(" (streaming... Esc to cancel)")
	case m.focusKey != nil:
		statusIndicator = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(" (chart focused - Esc returns here)")
	}

	inputLineWidth := width - 2
	if inputLineWidth < 10 {
		inputLineWidth = 10
	}
	inputLine := lipgloss.NewStyle().
		Width(inputLineWidth).
		MaxHeight(1).
		Render("  " + m.input.View() + statusIndicator)

	result := lipgloss.JoinVertical(
		lipgloss.Left,
		borderLine,
		inputLine,
		m.renderInputMeta(),
	)

	return lipgloss.NewStyle().
		Height(4).
		MaxHeight(4).
		Width(width).
		Render(result)
}

// renderInputMeta renders the line under the input: completion hint on the
// left, character count on the right.
func (m Model) renderInputMeta() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var hint string
	if m.isCompleting() && m.completionState != nil && !m.completionState.Visible {
		hint = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true).
			Render("Tab completes commands")
	}

	count := len([]rune(m.input.Value()))
	max := m.input.CharLimit
	if max <= 0 {
		max = 1
	}

	var countStyle lipgloss.Style
	percent := float64(count) / float64(max) * 100
	switch {
	case percent >= 90:
		countStyle = lipgloss.NewStyle().Foreground(styles.Rose)
	case percent >= 75:
		countStyle = lipgloss.NewStyle().Foreground(styles.Amber)
	default:
		countStyle = lipgloss.NewStyle().Foreground(styles.TextMuted)
	}
	countStr := countStyle.Render(formatInt(count) + " / " + formatInt(max))

	pad := width - 4 - lipgloss.Width(hint) - lipgloss.Width(countStr)
	if pad < 1 {
		hint = ""
		pad = width - 4 - lipgloss.Width(countStr)
		if pad < 1 {
			pad = 1
		}
	}

	return lipgloss.NewStyle().
		MaxHeight(1).
		Render("  " + hint + strings.Repeat(" ", pad) + countStr)
}

// renderInputWithCompletion stacks the completion popup above the input area
// when it is visible. renderChat measures the combined height, so the
// transcript shrinks to make room rather than the layout overflowing.
func (m Model) renderInputWithCompletion() string {
	base := m.renderInputArea()

	if m.completionState == nil || !m.completionState.Visible {
		return base
	}
	if m.completionPopup == nil || len(m.completionState.Completions) == 0 {
		return base
	}

	popup := m.completionPopup.View()
	if popup == "" {
		return base
	}

	return lipgloss.JoinVertical(lipgloss.Left, popup, base)
}

// =============================================================================
// STATUS AREA
// =============================================================================

// renderStatusArea renders the transient status message line and the
// persistent status bar. Always exactly 2 lines.
func (m Model) renderStatusArea() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderStatusMessage(),
		m.renderStatusBar(),
	)
}

// renderStatusMessage renders the one-line transient feedback ("Saved ...",
// "Resumed ...") or a blank line when there is none.
func (m Model) renderStatusMessage() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	if m.statusMsg == "" {
		return lipgloss.NewStyle().Width(width).MaxHeight(1).Render("")
	}

	msg := lipgloss.NewStyle().
		Foreground(styles.Emerald).
		Render(truncateToWidth(m.statusMsg, width-2))

	return lipgloss.NewStyle().
		Width(width).
		MaxHeight(1).
		Padding(0, 1).
		Render(msg)
}

// renderStatusBar renders the bottom status bar.
// Format: [*] ready | advisor-core | 3 charts ........ ~1,234 tok | ?=help
// Responsive: drops elements right-to-left on the shrinking side until the
// content fits; never overflows or wraps.
func (m Model) renderStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")

	maxContentWidth := width - 4
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}

	// State indicator.
	var stateStr string
	switch m.state {
	case StateStreaming:
		stateStr = lipgloss.NewStyle().
			Foreground(styles.Amber).
			Bold(true).
			Render(styles.StatusIndicators.Pending + " streaming")
	case StateError:
		stateStr = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true).
			Render(styles.StatusIndicators.Error + " error")
	default:
		if m.backendOK {
			stateStr = lipgloss.NewStyle().
				Foreground(styles.Emerald).
				Bold(true).
				Render(styles.StatusIndicators.Active + " ready")
		} else {
			stateStr = lipgloss.NewStyle().
				Foreground(styles.Rose).
				Bold(true).
				Render(styles.StatusIndicators.Error + " offline")
		}
	}

	var agentStr string
	if m.backendInfo != "" {
		agentStr = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Render(truncateRunes(m.backendInfo, 24))
	}

	var chartsStr string
	if n := len(m.orderedRoots()); n > 0 {
		noun := "charts"
		if n == 1 {
			noun = "chart"
		}
		chartsStr = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Render(fmt.Sprintf("%d %s", n, noun))
	}

	var tokenStr string
	if m.session != nil && !m.session.IsEmpty() {
		text := fmt.Sprintf("~%s tok", formatNumberWithCommas(m.session.EstimateTokens()))
		color := styles.TextMuted
		// Context pressure only becomes visible once it matters.
		if m.session.IsContextNearLimit() {
			text += " [" + styles.RenderProgressBar(8, m.session.GetContextPercent()) + "]"
			color = styles.Amber
			if m.session.IsContextCritical() {
				color = styles.Rose
			}
		}
		tokenStr = lipgloss.NewStyle().
			Foreground(color).
			Render(text)
	}

	shortcutsFull := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Render("?=help | Tab=charts | C-q=quit")
	shortcutsShort := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Render("? | ^Q")

	build := func(showAgent, showCharts, showTokens, fullShortcuts bool) (string, string, int) {
		left := stateStr
		if showAgent && agentStr != "" {
			left += sep + agentStr
		}
		if showCharts && chartsStr != "" {
			left += sep + chartsStr
		}

		var rightParts []string
		if showTokens && tokenStr != "" {
			rightParts = append(rightParts, tokenStr)
		}
		if fullShortcuts {
			rightParts = append(rightParts, shortcutsFull)
		} else {
			rightParts = append(rightParts, shortcutsShort)
		}
		right := strings.Join(rightParts, "  ")

		return left, right, lipgloss.Width(left) + lipgloss.Width(right) + 1
	}

	// Most complete first; each step drops one element.
	configurations := []struct {
		agent, charts, tokens, full bool
	}{
		{true, true, true, true},
		{true, true, true, false},
		{true, true, false, false},
		{false, true, false, false},
		{false, false, false, false},
	}

	var finalLeft, finalRight string
	for _, cfg := range configurations {
		left, right, total := build(cfg.agent, cfg.charts, cfg.tokens, cfg.full)
		if total <= maxContentWidth {
			finalLeft = left
			finalRight = right
			break
		}
	}
	if finalLeft == "" {
		finalLeft = stateStr
		finalRight = ""
	}

	padding := maxContentWidth - lipgloss.Width(finalLeft) - lipgloss.Width(finalRight)
	if padding < 0 {
		padding = 0
	}

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Width(width).
		MaxHeight(1).
		Padding(0, 1).
		Render(finalLeft + strings.Repeat(" ", padding) + finalRight)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

// renderHelpOverlay renders context-sensitive keyboard shortcut help. Only
// bindings that work in the context the user came from are shown.
func (m Model) renderHelpOverlay() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}

	// The context that was active before help opened.
	var activeContext HelpContext
	switch {
	case m.state == StateError:
		activeContext = ContextError
	case m.state == StateStreaming:
		activeContext = ContextStreaming
	case m.focusKey != nil:
		activeContext = ContextWidget
	default:
		activeContext = ContextNormal
	}

	groupedItems := GetHelpItemsByCategory(activeContext)
	categoryOrder := GetCategoryOrder()

	var sb strings.Builder

	contextName := GetContextDisplayName(activeContext)
	sb.WriteString(fmt.Sprintf("Keys available now (%s)\n", contextName))
	sb.WriteString(strings.Repeat("─", 35) + "\n\n")

	hasContent := false
	for _, category := range categoryOrder {
		items, exists := groupedItems[category]
		if !exists || len(items) == 0 {
			continue
		}

		hasContent = true
		categoryStyle := lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)
		sb.WriteString(categoryStyle.Render(string(category)) + "\n")

		for _, item := range items {
			keyStyle := lipgloss.NewStyle().Foreground(styles.Amber)
			descStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
			sb.WriteString(fmt.Sprintf("  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-14s", item.Key)),
				descStyle.Render(item.Desc)))
		}
		sb.WriteString("\n")
	}

	if !hasContent {
		sb.WriteString("  No specific keybindings for this mode.\n\n")
	}

	sb.WriteString(strings.Repeat("─", 35) + "\n")
	stateStyle := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)

	var modeInfo string
	switch activeContext {
	case ContextNormal:
		modeInfo = "Composer - type a message or /command"
	case ContextStreaming:
		modeInfo = "Streaming - Esc or C-c to cancel"
	case ContextWidget:
		modeInfo = "Chart focus - arrows move, Enter selects"
	case ContextError:
		modeInfo = "Error - Esc or Enter to dismiss"
	default:
		modeInfo = "Press ? to toggle help"
	}
	sb.WriteString(stateStyle.Render(modeInfo) + "\n")

	sb.WriteString("\n")
	closeStyle := lipgloss.NewStyle().Foreground(styles.Overlay)
	sb.WriteString(closeStyle.Render("Press ? or Esc to close"))

	content := sb.String()

	contentWidth := 55
	if contentWidth > width-4 {
		contentWidth = width - 4
	}

	contentLines := strings.Count(content, "\n") + 1
	contentHeight := contentLines + 2
	if contentHeight > height-4 {
		contentHeight = height - 4
	}

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Purple).
		Foreground(styles.TextPrimary).
		Background(styles.Surface).
		Padding(1, 2).
		Width(contentWidth).
		MaxHeight(contentHeight).
		Render(content)

	helpWidth := lipgloss.Width(helpBox)
	helpHeight := lipgloss.Height(helpBox)

	marginLeft := (width - helpWidth) / 2
	if marginLeft < 0 {
		marginLeft = 0
	}
	marginTop := (height - helpHeight) / 2
	if marginTop < 0 {
		marginTop = 0
	}

	return lipgloss.NewStyle().
		MarginLeft(marginLeft).
		MarginTop(marginTop).
		Render(helpBox)
}

// =============================================================================
// VIEWPORT PLUMBING
// =============================================================================

// updateViewport re-renders the transcript into the viewport. Call after any
// change that affects transcript content: new tokens, mounted widgets, focus
// moves, theme or width changes.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderMessages())
}

// contentWidth is the width available to transcript content and mounted
// widgets: the viewport width minus the message margins.
func (m Model) contentWidth() int {
	w := m.width - 6
	if w < 20 {
		w = 20
	}
	return w
}
