// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the advisor TUI.
//
// This file defines all Bubble Tea message types used by the chat interface.
// Messages are organized into the following categories:
//   - Streaming: stream start, token delivery, completion, and errors
//   - Charts: scanner notifications and widget mounting
//   - Health: backend connectivity probes
//   - Errors: error display and dismissal
//
// Session management messages (save, load, export) live in the commands
// package because the slash-command handlers produce them; the chat model
// only consumes them.
package chat

import (
	"strings"
	"time"

	"github.com/jeranaias/advisor-tui/internal/config"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that streaming has begun.
type StreamStartMsg struct {
	MessageID string
	StartTime time.Time
}

// StreamTokenMsg delivers a new token from the stream.
type StreamTokenMsg struct {
	MessageID string
	Token     string
	IsFirst   bool // True if this is the first token
}

// StreamCompleteMsg signals that streaming has finished.
type StreamCompleteMsg struct {
	MessageID string
	Stats     *model.Statistics
	Error     error
}

// StreamErrorMsg signals an error during streaming.
type StreamErrorMsg struct {
	MessageID string
	Error     error
}

// StreamTickMsg drives batched viewport updates during streaming.
// Sent at a fixed rate (30fps) to flush the streaming buffer.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// CHART MESSAGES
// =============================================================================

// WidgetsPendingMsg signals that the scanner registered chart roots that
// are waiting to be mounted. The scanner's notify callback fires on its
// scanning goroutine, so the CLI forwards it into the program as this
// message and the mount happens on the UI loop.
type WidgetsPendingMsg struct{}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg carries a configuration freshly read from disk. The
// watcher goroutine forwards it into the program so the reload is applied
// on the UI loop.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// HEALTH MESSAGES
// =============================================================================

// HealthCheckMsg requests a backend health probe.
type HealthCheckMsg struct{}

// =============================================================================
// LOGIN MESSAGES
// =============================================================================

// LoginResultMsg reports the outcome of a login attempt made off the UI
// loop. A nil Error means the user is authenticated.
type LoginResultMsg struct {
	Error error
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// ErrorMsg displays a blocking error banner.
type ErrorMsg struct {
	Title       string
	Message     string
	Suggestions []string
	Dismissible bool
}

// ErrorDismissMsg dismisses the current error banner.
type ErrorDismissMsg struct{}

// =============================================================================
// MESSAGE CONSTRUCTORS
// =============================================================================

// NewStreamStartMsg creates a stream start message.
func NewStreamStartMsg(messageID string) StreamStartMsg {
	return StreamStartMsg{
		MessageID: messageID,
		StartTime: time.Now(),
	}
}

// NewStreamTokenMsg creates a stream token message.
func NewStreamTokenMsg(messageID, token string, isFirst bool) StreamTokenMsg {
	return StreamTokenMsg{
		MessageID: messageID,
		Token:     token,
		IsFirst:   isFirst,
	}
}

// NewStreamCompleteMsg creates a stream completion message.
func NewStreamCompleteMsg(messageID string, stats *model.Statistics) StreamCompleteMsg {
	return StreamCompleteMsg{
		MessageID: messageID,
		Stats:     stats,
	}
}

// NewStreamErrorMsg creates a stream error message.
func NewStreamErrorMsg(messageID string, err error) StreamErrorMsg {
	return StreamErrorMsg{
		MessageID: messageID,
		Error:     err,
	}
}

// NewErrorMsg creates an error message with optional suggestions.
func NewErrorMsg(title, message string, suggestions ...string) ErrorMsg {
	return ErrorMsg{
		Title:       title,
		Message:     message,
		Suggestions: suggestions,
		Dismissible: true,
	}
}

// SmartErrorMsg creates an error message with pattern-matched suggestions.
// Known failure modes (backend unreachable, expired token, rate limits)
// get targeted recovery suggestions instead of the raw error text alone.
func SmartErrorMsg(title string, err error) ErrorMsg {
	if err == nil {
		return NewErrorMsg(title, "Unknown error")
	}

	display := components.SmartErrorFromError(title, err)
	return ErrorMsg{
		Title:       display.GetTitle(),
		Message:     display.GetMessage(),
		Suggestions: display.GetSuggestions(),
		Dismissible: true,
	}
}

// cleanErrorText strips redundant prefixes from wrapped error chains so
// the banner shows "connection refused" rather than four layers of
// "failed to X:" wrapping.
func cleanErrorText(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	parts := strings.Split(text, ": ")
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return strings.Join(parts, ": ")
}
