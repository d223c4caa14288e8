// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file routes slash commands through the command registry and handles
// the result messages their handlers send back to the UI loop.
package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/advisor-tui/internal/commands"
	"github.com/jeranaias/advisor-tui/internal/config"
	"github.com/jeranaias/advisor-tui/internal/export"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/selection"
	"github.com/jeranaias/advisor-tui/internal/storage"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// handleCommand parses a slash command and hands it to its registered
// handler. Unknown commands and missing arguments are reported in the
// transcript so the exchange stays visible in context.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	res := m.parser.Parse(content)
	if !res.IsCommand {
		return m.sendMessage(content)
	}

	if res.Command == nil {
		m.addSystemMessage("Unknown command: " + res.CommandName + "\nType /help to see available commands.")
		return m, nil
	}

	required := 0
	for _, a := range res.Command.Args {
		if a.Required {
			required++
		}
	}
	if len(res.Args) < required {
		m.addSystemMessage("Usage: " + res.Command.Usage)
		return m, nil
	}

	// The context's session pointer follows /new and /resume swaps.
	if m.cmdContext != nil {
		m.cmdContext.Session = m.session
	}

	return m, res.Command.Handler(m.cmdContext, res.Args)
}

// =============================================================================
// HELP AND SESSION RESULTS
// =============================================================================

// handleShowHelp prints command help into the transcript. Keyboard help
// lives on the "?" overlay instead.
func (m Model) handleShowHelp(msg commands.ShowHelpMsg) (tea.Model, tea.Cmd) {
	m.addSystemMessage(commands.FormatHelp(m.registry, msg.Topic))
	return m, nil
}

// handleNewSession saves the old conversation when auto-save is on, then
// swaps in a fresh one.
func (m Model) handleNewSession() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{textinput.Blink}
	if m.cfg != nil && m.cfg.Sessions.AutoSave && m.store != nil && !m.session.IsEmpty() {
		store, old := m.store, m.session
		cmds = append(cmds, func() tea.Msg {
			id, err := store.Save(old)
			return commands.SaveCompleteMsg{ID: id, Error: err}
		})
	}

	m.resetToSession(model.NewSession())
	m.statusMsg = "New session started"
	return m, tea.Batch(cmds...)
}

// handleSaveFallback fires when /save ran without a configured store.
func (m Model) handleSaveFallback() (tea.Model, tea.Cmd) {
	m.toastManager.AddWarning("No session storage configured")
	return m, components.ToastTickCmd()
}

// handleSaveComplete reports the save outcome. Auto-saves land here too,
// so success stays quiet in the status bar instead of raising a toast.
func (m Model) handleSaveComplete(msg commands.SaveCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.log.Warn("session save failed", zap.Error(msg.Error))
		m.toastManager.AddError("Save failed: " + cleanErrorText(msg.Error))
		return m, components.ToastTickCmd()
	}
	m.statusMsg = "Saved " + truncateRunes(msg.ID, 17)
	return m, nil
}

// handleSessionList renders the session listing into the transcript.
func (m Model) handleSessionList(msg commands.SessionListMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.toastManager.AddError("Session list failed: " + cleanErrorText(msg.Error))
		return m, components.ToastTickCmd()
	}

	if msg.Query != "" && len(msg.Sessions) == 0 {
		m.addSystemMessage("No sessions matching " + strconv.Quote(msg.Query) + ".")
		return m, nil
	}

	m.addSystemMessage(storage.FormatSessionList(msg.Sessions))
	return m, nil
}

// handleSessionLoaded swaps in a restored session. Chart payloads in the
// restored transcript mount through the normal scan path.
func (m Model) handleSessionLoaded(msg commands.SessionLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.toastManager.AddError("Resume failed: " + cleanErrorText(msg.Error))
		return m, components.ToastTickCmd()
	}
	if msg.Session == nil {
		m.toastManager.AddError("Resume failed: session is empty")
		return m, components.ToastTickCmd()
	}

	m.resetToSession(msg.Session)
	m.statusMsg = "Resumed " + truncateRunes(msg.Session.ID, 17)
	return m, textinput.Blink
}

// handleSessionDeleted reports the delete outcome.
func (m Model) handleSessionDeleted(msg commands.SessionDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.toastManager.AddError("Delete failed: " + cleanErrorText(msg.Error))
	} else {
		m.toastManager.AddSuccess("Deleted " + truncateRunes(msg.ID, 17))
	}
	return m, components.ToastTickCmd()
}

// =============================================================================
// EXPORT RESULTS
// =============================================================================

// handleExportSession runs the export off the UI loop.
func (m Model) handleExportSession(msg commands.ExportSessionMsg) (tea.Model, tea.Cmd) {
	if m.session.IsEmpty() {
		m.toastManager.AddStatus("Nothing to export yet")
		return m, components.ToastTickCmd()
	}

	sess := m.session
	format, dir := msg.Format, msg.OutputDir
	return m, func() tea.Msg {
		opts := export.DefaultOptions()
		if dir != "" {
			opts.OutputDir = dir
		}
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return commands.ExportCompleteMsg{Error: err}
		}
		path, err := export.ExportToFile(sess, exporter, opts)
		return commands.ExportCompleteMsg{Path: path, Error: err}
	}
}

// handleExportComplete reports the export outcome.
func (m Model) handleExportComplete(msg commands.ExportCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.toastManager.AddError("Export failed: " + cleanErrorText(msg.Error))
	} else {
		m.toastManager.AddSuccess("Exported to " + msg.Path)
	}
	return m, components.ToastTickCmd()
}

// =============================================================================
// CHART RESULTS
// =============================================================================

// handleListCharts describes the mounted chart widgets in transcript
// order.
func (m Model) handleListCharts() (tea.Model, tea.Cmd) {
	roots := m.orderedRoots()
	if len(roots) == 0 {
		m.addSystemMessage("No charts in this session yet. Charts appear automatically when the advisor includes them in a reply.")
		return m, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Mounted charts (%d):\n", len(roots))
	for i, root := range roots {
		desc := root.Descriptor()
		title := desc.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&sb, "  %d. %s [%s] in message %s\n",
			i+1, title, desc.Type, truncateRunes(root.Key().MessageID, 12))
	}
	sb.WriteString("Tab cycles focus through charts; v toggles chart and table view.")
	m.addSystemMessage(sb.String())
	return m, nil
}

// handleSelectionAction shows or clears the active chart selection.
func (m Model) handleSelectionAction(msg commands.SelectionActionMsg) (tea.Model, tea.Cmd) {
	if msg.Clear {
		if m.selStore != nil {
			m.selStore.Clear()
		}
		m.refreshChips()
		m.viewportOptimizer.ForceUpdate()
		m.updateViewport()
		m.statusMsg = "Selection cleared"
		return m, nil
	}

	var sel *selection.Point
	if m.selStore != nil {
		sel = m.selStore.Current()
	}
	if sel == nil {
		m.addSystemMessage("No active chart selection. Focus a chart with Tab and press Enter on a data point.")
		return m, nil
	}

	m.addSystemMessage(fmt.Sprintf("Active selection: %s = %s\nPress Ctrl+A to ask the advisor about it, or /selection clear to drop it.",
		sel.Name, formatFloat64(sel.Value)))
	return m, nil
}

// =============================================================================
// SETTINGS RESULTS
// =============================================================================

// handleThemeChanged rebuilds the theme in place so every component
// holding the shared pointer picks it up, then re-renders everything.
// "auto" re-detects the terminal background and is not persisted.
func (m Model) handleThemeChanged(msg commands.ThemeChangedMsg) (tea.Model, tea.Cmd) {
	mode := msg.Theme
	switch mode {
	case "dark", "light":
	case "auto":
		mode = ""
	default:
		m.toastManager.AddWarning("Unknown theme: " + msg.Theme + " (use dark, light, or auto)")
		return m, components.ToastTickCmd()
	}

	*m.theme = *styles.NewTheme(mode)
	m.theme.SetSize(m.width, m.height)

	if m.scan != nil {
		m.scan.OnRerender()
	}
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	m.statusMsg = "Theme: " + msg.Theme

	if m.cfg != nil && mode != "" {
		m.cfg.UI.Theme = mode
		cfg, log := m.cfg, m.log
		return m, func() tea.Msg {
			if err := config.Save(cfg); err != nil {
				log.Warn("persist theme", zap.Error(err))
			}
			return nil
		}
	}
	return m, nil
}

// handleConfigReloaded applies a configuration that changed on disk. The
// shared config pointer is overwritten in place so the command context and
// every component holding it see the new values, then the theme is rebuilt
// in case the mode changed.
func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}
	if m.cfg != nil {
		*m.cfg = *msg.Config
	} else {
		m.cfg = msg.Config
	}

	*m.theme = *styles.NewTheme(m.cfg.UI.Theme)
	m.theme.SetSize(m.width, m.height)

	if m.scan != nil {
		m.scan.OnRerender()
	}
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()

	m.toastManager.AddStatus("Configuration reloaded")
	return m, components.ToastTickCmd()
}

// handleShowConfig prints one key or the full addressable set.
func (m Model) handleShowConfig(msg commands.ShowConfigMsg) (tea.Model, tea.Cmd) {
	if m.cfg == nil {
		m.addSystemMessage("No configuration loaded.")
		return m, nil
	}

	if msg.Key != "" {
		v, err := m.cfg.Get(msg.Key)
		if err != nil {
			m.addSystemMessage("Unknown config key: " + msg.Key + "\nSee /config for the available keys.")
			return m, nil
		}
		m.addSystemMessage(fmt.Sprintf("%s = %v", msg.Key, v))
		return m, nil
	}

	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	for _, k := range config.Keys() {
		v, err := m.cfg.Get(k)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "  %-26s %v\n", k, v)
	}
	m.addSystemMessage(strings.TrimRight(sb.String(), "\n"))
	return m, nil
}

// handleHealthResult updates the status bar from a probe, raising a toast
// only when something is wrong.
func (m Model) handleHealthResult(msg commands.HealthResultMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.backendOK = false
		m.backendInfo = ""
		m.log.Warn("health probe failed", zap.Error(msg.Error))
		m.toastManager.AddError("Backend unreachable: " + cleanErrorText(msg.Error))
		return m, components.ToastTickCmd()
	}

	status := msg.Status
	m.backendOK = status != nil && status.Healthy()
	if status == nil {
		return m, nil
	}

	m.backendInfo = status.Agent
	if !m.backendOK {
		m.toastManager.AddWarning("Backend degraded: " + status.Status)
		return m, components.ToastTickCmd()
	}

	m.statusMsg = fmt.Sprintf("Backend healthy: %s, %d tools, %d active sessions",
		status.Agent, len(status.Tools), status.ActiveSessions)
	return m, nil
}

// =============================================================================
// AUTH RESULTS
// =============================================================================

// handleShowLogin switches to the login screen.
func (m Model) handleShowLogin() (tea.Model, tea.Cmd) {
	if m.authMgr == nil {
		m.toastManager.AddWarning("Authentication is not configured")
		return m, components.ToastTickCmd()
	}
	if m.state == StateStreaming {
		return m, nil
	}

	m.state = StateLogin
	if m.login != nil {
		m.login.Reset()
	}
	return m, nil
}

// handleLogout drops back to the login screen once the token is cleared.
func (m Model) handleLogout(msg commands.LogoutMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.toastManager.AddError("Logout failed: " + cleanErrorText(msg.Error))
		return m, components.ToastTickCmd()
	}

	m.toastManager.AddSuccess("Logged out")
	if m.authMgr != nil {
		m.state = StateLogin
		if m.login != nil {
			m.login.Reset()
		}
	}
	return m, components.ToastTickCmd()
}

// handleCommandError surfaces a command failure. During streaming it stays
// a toast so the error state cannot stall the stream handlers.
func (m Model) handleCommandError(msg commands.ErrorMsg) (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		m.toastManager.AddError(msg.Title + ": " + msg.Message)
		return m, components.ToastTickCmd()
	}

	banner := NewErrorMsg(msg.Title, msg.Message)
	if msg.Tip != "" {
		banner.Suggestions = []string{msg.Tip}
	}
	m.lastError = &banner
	m.state = StateError
	return m, nil
}
