// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes session transcripts to shareable files.
//
// This package supports exporting sessions to various formats with
// metadata, chart extraction, and optional opening in external applications.
//
// # Key Types
//
//   - Exporter: interface implemented by each format
//   - Options: export configuration options
//
// # Supported Formats
//
//   - Markdown: human-readable transcript; chart payloads become tables
//   - JSON: machine-readable with full session data
//   - XLSX: spreadsheet with a transcript sheet plus one sheet per chart
//
// # Usage
//
// Export a session:
//
//	exporter, err := export.ForFormat("md", nil)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(session, exporter, nil)
package export
