// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the advisor TUI.
//
// This file defines keyboard bindings and shortcuts for the chat interface,
// along with help text generation for the help overlay.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
// Each binding supports multiple keys and includes help text for documentation.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	Home         key.Binding
	End          key.Binding
	Submit       key.Binding
	Cancel       key.Binding
	Help         key.Binding
	Quit         key.Binding
	Clear        key.Binding
	NextWidget   key.Binding
	PrevWidget   key.Binding
	AskSelection key.Binding
	ToggleSource key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/C-u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/C-d", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("Home", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("End", "go to bottom"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send message"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("Esc/C-c", "cancel streaming"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("C-q", "quit"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear transcript"),
		),
		NextWidget: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "focus next chart"),
		),
		PrevWidget: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-Tab", "focus previous chart"),
		),
		AskSelection: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("C-a", "ask about selection"),
		),
		ToggleSource: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "toggle chart source"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns a slice of key bindings to show in the short help view.
// These are the most commonly used shortcuts.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextWidget, k.Help, k.Quit}
}

// FullHelp returns a slice of key bindings to show in the full help view.
// This is organized into groups for better readability.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Navigation
		{k.Up, k.Down, k.PageUp, k.PageDown},
		// Charts
		{k.NextWidget, k.PrevWidget, k.AskSelection, k.ToggleSource},
		// Actions
		{k.Submit, k.Cancel, k.Clear},
		// Modes
		{k.Help, k.Quit},
	}
}

// =============================================================================
// HELP TEXT DATA
// =============================================================================

// HelpContext represents the UI context for filtering help items.
// Only bindings active in the current context are shown in the overlay.
type HelpContext string

const (
	// ContextNormal is the default state - composing or navigating
	ContextNormal HelpContext = "normal"
	// ContextStreaming is when receiving a streaming response
	ContextStreaming HelpContext = "streaming"
	// ContextWidget is when a chart widget holds focus
	ContextWidget HelpContext = "widget"
	// ContextError is when an error banner is displayed
	ContextError HelpContext = "error"
	// ContextLogin is when the login form is shown
	ContextLogin HelpContext = "login"
	// ContextHelp is when the help overlay is visible
	ContextHelp HelpContext = "help"
)

// HelpCategory represents action type grouping for help display.
type HelpCategory string

const (
	CategoryNavigation HelpCategory = "Navigation"
	CategoryCharts     HelpCategory = "Charts"
	CategoryCommands   HelpCategory = "Commands"
	CategoryActions    HelpCategory = "Actions"
)

// HelpItem represents a single help entry with key, description, and context.
type HelpItem struct {
	Key      string        // Key binding(s) displayed (e.g., "up", "C-c")
	Desc     string        // Human-readable description
	Contexts []HelpContext // Contexts where this binding is active
	Category HelpCategory  // Action type grouping for display
}

// GetHelpItems returns all help items for display in the help overlay.
func GetHelpItems() []HelpItem {
	all := []HelpContext{ContextNormal, ContextStreaming, ContextWidget, ContextError}
	navContexts := []HelpContext{ContextNormal, ContextStreaming}
	normalOnly := []HelpContext{ContextNormal}
	widgetOnly := []HelpContext{ContextWidget}
	streamingOnly := []HelpContext{ContextStreaming}
	errorOnly := []HelpContext{ContextError}
	normalAndWidget := []HelpContext{ContextNormal, ContextWidget}

	return []HelpItem{
		// Navigation - available in normal mode and during streaming
		{"up/down", "Scroll transcript", navContexts, CategoryNavigation},
		{"PgUp/C-u", "Page up", navContexts, CategoryNavigation},
		{"PgDn/C-d", "Page down", navContexts, CategoryNavigation},
		{"Home/End", "Jump to top/bottom", navContexts, CategoryNavigation},

		// Charts
		{"Tab", "Focus next chart", normalAndWidget, CategoryCharts},
		{"S-Tab", "Focus previous chart", normalAndWidget, CategoryCharts},
		{"Esc", "Return to composer", widgetOnly, CategoryCharts},
		{"v", "Cycle chart view", widgetOnly, CategoryCharts},
		{"t / c", "Table / chart view", widgetOnly, CategoryCharts},
		{"e", "Expand or collapse", widgetOnly, CategoryCharts},
		{"Enter/Space", "Select highlighted point", widgetOnly, CategoryCharts},
		{"x", "Clear selection", widgetOnly, CategoryCharts},
		{"/", "Search within table", widgetOnly, CategoryCharts},
		{"C-a", "Ask about current selection", normalOnly, CategoryCharts},
		{"C-o", "Toggle chart source view", normalAndWidget, CategoryCharts},

		// Actions - context-specific
		{"Enter", "Send message", normalOnly, CategoryActions},
		{"1-4", "Send suggestion chip", normalOnly, CategoryActions},
		{"C-c", "Cancel streaming", streamingOnly, CategoryActions},
		{"Esc", "Cancel / dismiss", []HelpContext{ContextStreaming, ContextError}, CategoryActions},

		// Commands
		{"/command", "Run slash command", normalOnly, CategoryCommands},
		{"Tab", "Complete slash command", normalOnly, CategoryCommands},
		{"C-l", "Clear transcript", normalOnly, CategoryCommands},
		{"?", "Toggle help", normalOnly, CategoryCommands},

		// Quit
		{"C-q", "Quit", all, CategoryActions},

		// Error mode specific
		{"Esc/Enter", "Dismiss error", errorOnly, CategoryActions},
	}
}

// GetHelpItemsForContext returns help items filtered for the given context.
func GetHelpItemsForContext(ctx HelpContext) []HelpItem {
	all := GetHelpItems()
	var filtered []HelpItem

	for _, item := range all {
		for _, itemCtx := range item.Contexts {
			if itemCtx == ctx {
				filtered = append(filtered, item)
				break
			}
		}
	}

	return filtered
}

// GetHelpItemsByCategory returns help items grouped by category for the
// given context. Returns a map of category -> items for organized display.
func GetHelpItemsByCategory(ctx HelpContext) map[HelpCategory][]HelpItem {
	items := GetHelpItemsForContext(ctx)
	grouped := make(map[HelpCategory][]HelpItem)

	for _, item := range items {
		grouped[item.Category] = append(grouped[item.Category], item)
	}

	return grouped
}

// GetCategoryOrder returns the preferred display order for categories.
func GetCategoryOrder() []HelpCategory {
	return []HelpCategory{
		CategoryNavigation,
		CategoryCharts,
		CategoryActions,
		CategoryCommands,
	}
}

// GetContextDisplayName returns a human-readable name for a context.
func GetContextDisplayName(ctx HelpContext) string {
	switch ctx {
	case ContextNormal:
		return "Composer"
	case ContextStreaming:
		return "Streaming"
	case ContextWidget:
		return "Chart Focus"
	case ContextError:
		return "Error"
	case ContextLogin:
		return "Login"
	case ContextHelp:
		return "Help"
	default:
		return string(ctx)
	}
}
