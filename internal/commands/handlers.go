// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/advisor-tui/internal/agent"
	"github.com/jeranaias/advisor-tui/internal/model"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// These messages are produced by command handlers and consumed by the chat
// model's Update loop.

// ShowHelpMsg triggers the help display.
type ShowHelpMsg struct {
	Topic string // Optional command name for specific help
}

// NewSessionMsg starts a fresh session.
type NewSessionMsg struct{}

// SaveSessionMsg triggers saving the current session.
type SaveSessionMsg struct{}

// SaveCompleteMsg indicates save completion.
type SaveCompleteMsg struct {
	ID    string
	Error error
}

// SessionListMsg carries the session listing for display.
type SessionListMsg struct {
	Sessions []model.SessionMeta
	Query    string
	Error    error
}

// SessionLoadedMsg carries a loaded session to resume.
type SessionLoadedMsg struct {
	Session *model.Session
	Error   error
}

// SessionDeletedMsg indicates deletion completion.
type SessionDeletedMsg struct {
	ID    string
	Error error
}

// ClearTranscriptMsg clears the transcript and unmounts all chart widgets.
type ClearTranscriptMsg struct{}

// ExportSessionMsg triggers exporting the current session.
type ExportSessionMsg struct {
	Format    string // "md", "json", "xlsx"
	OutputDir string // Empty means current directory
}

// ExportCompleteMsg indicates export completion.
type ExportCompleteMsg struct {
	Path  string
	Error error
}

// ListChartsMsg asks the chat model to describe its mounted chart widgets.
type ListChartsMsg struct{}

// SelectionActionMsg shows or clears the active chart selection.
type SelectionActionMsg struct {
	Clear bool
}

// ThemeChangedMsg switches the color theme.
type ThemeChangedMsg struct {
	Theme string // "dark", "light", "auto"
}

// ShowConfigMsg displays configuration values.
type ShowConfigMsg struct {
	Key string // Optional specific key
}

// HealthResultMsg carries the backend health probe result.
type HealthResultMsg struct {
	Status *agent.HealthStatus
	Error  error
}

// ShowLoginMsg switches the UI to the login screen.
type ShowLoginMsg struct{}

// LogoutMsg indicates the local token was cleared.
type LogoutMsg struct {
	Error error
}

// SystemMessageMsg adds a system notice to the transcript.
type SystemMessageMsg struct {
	Content string
}

// ErrorMsg surfaces a command failure to the user.
type ErrorMsg struct {
	Title   string
	Message string
	Tip     string
}

// =============================================================================
// HANDLER IMPLEMENTATIONS
// =============================================================================

// HandleHelp shows help information.
func HandleHelp(ctx *Context, args []string) tea.Cmd {
	topic := ""
	if len(args) > 0 {
		topic = args[0]
	}
	return func() tea.Msg {
		return ShowHelpMsg{Topic: topic}
	}
}

// HandleQuit exits the application.
func HandleQuit(ctx *Context, args []string) tea.Cmd {
	return tea.Quit
}

// HandleNew starts a new session.
func HandleNew(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return NewSessionMsg{}
	}
}

// HandleSave saves the current session immediately.
func HandleSave(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Storage == nil || ctx.Session == nil {
		return func() tea.Msg {
			return SaveSessionMsg{}
		}
	}

	store, sess := ctx.Storage, ctx.Session
	return func() tea.Msg {
		id, err := store.Save(sess)
		return SaveCompleteMsg{ID: id, Error: err}
	}
}

// HandleSessions lists saved sessions, optionally filtered by a query that
// matches titles, previews, or message content.
func HandleSessions(ctx *Context, args []string) tea.Cmd {
	query := strings.Join(args, " ")

	if ctx == nil || ctx.Storage == nil {
		return func() tea.Msg {
			return SessionListMsg{Query: query}
		}
	}

	store := ctx.Storage
	return func() tea.Msg {
		var (
			metas []model.SessionMeta
			err   error
		)
		if query == "" {
			metas, err = store.List()
		} else {
			metas, err = store.SearchMessages(query)
		}
		return SessionListMsg{Sessions: metas, Query: query, Error: err}
	}
}

// HandleResume loads a saved session by ID or unique prefix.
func HandleResume(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return HandleSessions(ctx, nil)
	}
	if ctx == nil || ctx.Storage == nil {
		return nil
	}

	store := ctx.Storage
	ref := args[0]
	return func() tea.Msg {
		id, err := store.ResolveID(ref)
		if err != nil {
			return SessionLoadedMsg{Error: err}
		}
		sess, err := store.Load(id)
		return SessionLoadedMsg{Session: sess, Error: err}
	}
}

// HandleDelete removes a saved session by ID or unique prefix.
func HandleDelete(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 || ctx == nil || ctx.Storage == nil {
		return nil
	}

	store := ctx.Storage
	ref := args[0]
	return func() tea.Msg {
		id, err := store.ResolveID(ref)
		if err != nil {
			return SessionDeletedMsg{ID: ref, Error: err}
		}
		return SessionDeletedMsg{ID: id, Error: store.Delete(id)}
	}
}

// HandleClear clears the transcript.
func HandleClear(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ClearTranscriptMsg{}
	}
}

// HandleExport exports the current session.
func HandleExport(ctx *Context, args []string) tea.Cmd {
	format := "md"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
		if format == "markdown" {
			format = "md"
		}
	}

	switch format {
	case "md", "json", "xlsx":
	default:
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Invalid export format",
				Message: fmt.Sprintf("Unknown format: %s", format),
				Tip:     "Supported formats: md, json, xlsx",
			}
		}
	}

	outputDir := ""
	if len(args) > 1 {
		outputDir = args[1]
	}

	return func() tea.Msg {
		return ExportSessionMsg{Format: format, OutputDir: outputDir}
	}
}

// HandleCharts lists the mounted chart widgets.
func HandleCharts(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ListChartsMsg{}
	}
}

// HandleSelection shows or clears the active chart selection.
func HandleSelection(ctx *Context, args []string) tea.Cmd {
	clear := len(args) > 0 && strings.EqualFold(args[0], "clear")
	return func() tea.Msg {
		return SelectionActionMsg{Clear: clear}
	}
}

// HandleTheme switches the color theme.
func HandleTheme(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Missing theme",
				Message: "No theme given",
				Tip:     "Usage: /theme <dark|light|auto>",
			}
		}
	}

	theme := strings.ToLower(args[0])
	return func() tea.Msg {
		return ThemeChangedMsg{Theme: theme}
	}
}

// HandleConfig shows configuration values.
func HandleConfig(ctx *Context, args []string) tea.Cmd {
	key := ""
	if len(args) > 0 {
		key = args[0]
	}
	return func() tea.Msg {
		return ShowConfigMsg{Key: key}
	}
}

// healthProbeTimeout bounds the /health round trip so a dead backend
// cannot hang the UI loop's command goroutine.
const healthProbeTimeout = 5 * time.Second

// HandleHealth probes the advisor backend.
func HandleHealth(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Agent == nil {
		return func() tea.Msg {
			return HealthResultMsg{Error: agent.ErrNotConfigured}
		}
	}

	client := ctx.Agent
	return func() tea.Msg {
		probeCtx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
		defer cancel()

		status, err := client.Health(probeCtx)
		return HealthResultMsg{Status: status, Error: err}
	}
}

// HandleLogin switches to the login screen.
func HandleLogin(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ShowLoginMsg{}
	}
}

// HandleLogout clears the stored token and returns to the login screen.
func HandleLogout(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Auth == nil {
		return func() tea.Msg {
			return LogoutMsg{}
		}
	}

	mgr := ctx.Auth
	return func() tea.Msg {
		return LogoutMsg{Error: mgr.Logout()}
	}
}

// =============================================================================
// HELP TEXT
// =============================================================================

// categoryOrder fixes the help display order.
var categoryOrder = []string{"Navigation", "Session", "Charts", "Settings"}

// FormatHelp renders the command reference, either for one command or for
// the full visible set grouped by category.
func FormatHelp(registry *Registry, topic string) string {
	if topic != "" {
		name := topic
		if !strings.HasPrefix(name, "/") {
			name = "/" + name
		}
		cmd := registry.Get(name)
		if cmd == nil {
			return fmt.Sprintf("Unknown command: %s\nUse /help to list all commands.", name)
		}
		return formatCommandHelp(cmd)
	}

	byCategory := registry.ByCategory()

	var sb strings.Builder
	sb.WriteString("Available commands:\n")

	seen := make(map[string]bool)
	ordered := make([]string, 0, len(byCategory))
	for _, cat := range categoryOrder {
		if _, ok := byCategory[cat]; ok {
			ordered = append(ordered, cat)
			seen[cat] = true
		}
	}
	var rest []string
	for cat := range byCategory {
		if !seen[cat] {
			rest = append(rest, cat)
		}
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	for _, cat := range ordered {
		sb.WriteString("\n" + cat + ":\n")
		for _, cmd := range byCategory[cat] {
			sb.WriteString(fmt.Sprintf("  %-12s %s\n", cmd.Name, cmd.Description))
		}
	}

	sb.WriteString("\nUse /help <command> for details. Tab completes commands and arguments.")
	return sb.String()
}

// formatCommandHelp renders detailed help for a single command.
func formatCommandHelp(cmd *Command) string {
	var sb strings.Builder
	sb.WriteString(cmd.Name + " - " + cmd.Description + "\n")
	sb.WriteString("Usage: " + cmd.FormatUsage() + "\n")

	if len(cmd.Aliases) > 0 {
		sb.WriteString("Aliases: " + strings.Join(cmd.Aliases, ", ") + "\n")
	}
	if len(cmd.Args) > 0 {
		sb.WriteString("Arguments:\n")
		for _, arg := range cmd.Args {
			req := "optional"
			if arg.Required {
				req = "required"
			}
			sb.WriteString(fmt.Sprintf("  %-12s %s (%s)\n", arg.Name, arg.Description, req))
			if len(arg.Values) > 0 {
				sb.WriteString("               values: " + strings.Join(arg.Values, ", ") + "\n")
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
