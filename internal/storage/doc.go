// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides session persistence for advisor TUI.
//
// This package handles saving and loading chat sessions to/from disk,
// with support for search, listing, and pruning.
//
// # Key Types
//
//   - SessionStore: Main storage interface for sessions
//   - model.Session: Serializable session with metadata
//   - model.SessionMeta: Lightweight metadata for listing
//
// # Usage
//
// Create a store and save a session:
//
//	store, err := storage.NewSessionStore(dir)
//	id, err := store.Save(session)
//
// List and load sessions:
//
//	metas, err := store.List()
//	sess, err := store.Load(metas[0].ID)
//
// Search sessions:
//
//	results, err := store.Search("query text")
//
// # Storage Location
//
// Sessions are stored in ~/.advisor/sessions/ as JSON files.
package storage
