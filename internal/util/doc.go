// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the advisor-tui application.
//
// String helpers are display-width aware (go-runewidth) because table and
// chart cells are measured in terminal columns. AtomicWriteFile is the
// crash-safe write primitive used by every on-disk store in the app.
package util
