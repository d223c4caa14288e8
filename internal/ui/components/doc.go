// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable UI pieces of the advisor TUI:
// the login form, the slash-command completion popup, fenced code block
// rendering, and the error surfaces (blocking overlay, inline messages,
// and corner toasts).
package components
