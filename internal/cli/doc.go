// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli defines the advisor command tree.
//
// The root command launches the full-screen chat TUI. Subcommands cover
// everything that is useful without a TUI: one-shot questions (ask), a
// plain-terminal REPL (ask -i), login/logout for the demo auth flow,
// session listing and export, health diagnostics (doctor), and version
// information.
package cli
