// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the TUI.
//
// This package handles parsing and executing slash commands in the chat
// interface, providing autocomplete and command registration.
//
// # Key Types
//
//   - Registry: Command registry with all available commands
//   - Parser: Splits input into command name and arguments
//   - ParseResult: Parsed command with name and arguments
//   - Completer: Tab completion for commands and arguments
//
// # Built-in Commands
//
//   - /help: Show available commands
//   - /sessions: List saved sessions
//   - /resume: Resume a saved session
//   - /export: Export the session (md, json, xlsx)
//   - /charts: List mounted chart widgets
//   - /selection: Show or clear the active chart selection
//
// # Usage
//
// Parse and execute a command:
//
//	result := parser.Parse(input)
//	if result.IsCommand && result.Command != nil {
//	    cmd := result.Command.Handler(ctx, result.Args)
//	}
//
// Get completions:
//
//	completions := completer.Complete("/re", 3)
//	// Returns /resume
package commands
