// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main conversation view for the advisor TUI.

The chat package implements a complete terminal-based chat interface using
the Bubble Tea framework. It connects to the advisor agent backend over the
streaming event protocol and renders responses, including inline chart
widgets, in real time.

# Key Components

## Model (model.go)

The Model struct is the central Bubble Tea model that maintains all chat
state:
  - Session history and message management
  - Composer input with slash-command completion
  - Viewport for transcript scrolling
  - Streaming state for real-time advisor responses
  - Login state when the backend requires authentication

## View Rendering (view.go)

Rendering logic for the complete chat interface:
  - Header with agent name and connection status
  - Message bubbles with role-specific styling (user, advisor, system)
  - Segment rendering: prose, highlighted code blocks, and mounted chart
    widgets spliced inline where the advisor emitted them
  - Selection bar showing the current chart selection
  - Suggestion chips and status bar

## Streaming (streaming.go)

Optimized streaming implementation for smooth advisor responses:
  - StreamingBuffer for batched token rendering
  - Flicker-free updates at capped frame rates
  - Channel pump converting agent events into Bubble Tea messages

## Charts (widgets.go)

Wiring between the transcript and the chart subsystem:
  - Transcript mirror the scanner reads from its debounce goroutine
  - Widget mounting when scans discover chart fences
  - Tab-order focus cycling across mounted widgets

## Commands (commands.go)

Slash command handling backed by the commands registry:
  - /help - Show available commands
  - /new, /save, /sessions, /resume - Session management
  - /charts, /selection - Chart subsystem introspection
  - /export - Export the session to markdown, JSON, or xlsx
  - /health, /login, /logout - Backend connection management

# Usage

Create a new chat model and run it as a Bubble Tea program:

	client := agent.NewClient(cfg.Agent.BaseURL)
	m := chat.New(chat.Options{
		Config:  cfg,
		Theme:   theme,
		Session: model.NewSession(),
		Agent:   client,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
