// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists per-chart view preferences keyed by chart identity.
package prefs

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for chart view preferences
const Schema = `
-- Metadata table for schema version
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Chart preferences: one row per chart identity
CREATE TABLE IF NOT EXISTS chart_prefs (
    identity        TEXT PRIMARY KEY,  -- chartdata.Identity key
    view_mode       TEXT NOT NULL DEFAULT '',
    chart_type      TEXT NOT NULL DEFAULT '',
    category_column TEXT NOT NULL DEFAULT '',
    value_column    TEXT NOT NULL DEFAULT '',
    updated_at      INTEGER NOT NULL   -- Unix timestamp
) WITHOUT ROWID;
`

// InitMetadata initializes the metadata table with default values
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
`
