// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists per-chart view preferences keyed by chart identity.
//
// A chart that re-renders after a restart must come back the way the user
// left it: same view mode, same chart type, same axis columns. The key is
// chartdata.Identity (title + type), so identical charts across sessions
// resolve to one record, and two different charts that share a title and
// type deliberately share one record.
//
// Reads are served from an in-memory copy loaded at Open; writes go through
// to SQLite synchronously. Widgets read preferences on every render, so Get
// must never touch the database.
package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/logging"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("preference store closed")
	ErrDatabaseError = errors.New("preference database error")
)

// =============================================================================
// PREFERENCES
// =============================================================================

// Prefs is the saved view state for one chart identity. Zero-value fields
// mean "no preference recorded"; callers fall back to descriptor defaults.
type Prefs struct {
	ViewMode       chartdata.ViewMode
	ChartType      chartdata.ChartType
	CategoryColumn string
	ValueColumn    string
}

// IsZero returns true when no field carries a preference.
func (p Prefs) IsZero() bool {
	return p == Prefs{}
}

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite-backed preference store.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	cache  map[string]Prefs
	closed bool
}

// Open opens (creating if needed) the preference database at path and loads
// all records into memory.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create preference directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open preference database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize metadata: %w", err)
	}

	s := &Store{
		db:    db,
		cache: make(map[string]Prefs),
	}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// loadAll fills the cache from the database. Rows carrying values that no
// longer validate (written by an older or newer build) are skipped, not
// fatal: losing one chart's saved view beats refusing to start.
func (s *Store) loadAll() error {
	rows, err := s.db.Query(
		`SELECT identity, view_mode, chart_type, category_column, value_column FROM chart_prefs`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var identity string
		var p Prefs
		var view, typ string
		if err := rows.Scan(&identity, &view, &typ, &p.CategoryColumn, &p.ValueColumn); err != nil {
			logging.L().Warn("skipping unreadable chart preference row", zap.Error(err))
			continue
		}
		if view != "" && !chartdata.ViewMode(view).IsValid() {
			logging.L().Warn("skipping chart preference with unknown view mode",
				zap.String("identity", identity), zap.String("view_mode", view))
			continue
		}
		if typ != "" && !chartdata.ChartType(typ).IsValid() {
			logging.L().Warn("skipping chart preference with unknown chart type",
				zap.String("identity", identity), zap.String("chart_type", typ))
			continue
		}
		p.ViewMode = chartdata.ViewMode(view)
		p.ChartType = chartdata.ChartType(typ)
		s.cache[identity] = p
	}
	return rows.Err()
}

// Get returns the saved preferences for a chart identity. ok is false when
// nothing was ever saved for it.
func (s *Store) Get(identity string) (Prefs, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.cache[identity]
	return p, ok
}

// Put saves the preferences for a chart identity, replacing any previous
// record.
func (s *Store) Put(identity string, p Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO chart_prefs (identity, view_mode, chart_type, category_column, value_column, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			view_mode = excluded.view_mode,
			chart_type = excluded.chart_type,
			category_column = excluded.category_column,
			value_column = excluded.value_column,
			updated_at = excluded.updated_at`,
		identity, string(p.ViewMode), string(p.ChartType),
		p.CategoryColumn, p.ValueColumn, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	s.cache[identity] = p
	return nil
}

// Update applies fn to the current preferences for identity (zero Prefs when
// none exist yet) and saves the result. Saves widgets the read-modify-write
// dance when toggling one field.
func (s *Store) Update(identity string, fn func(Prefs) Prefs) error {
	s.mu.RLock()
	cur := s.cache[identity]
	s.mu.RUnlock()
	return s.Put(identity, fn(cur))
}

// Delete removes the saved preferences for a chart identity.
func (s *Store) Delete(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.Exec(`DELETE FROM chart_prefs WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	delete(s.cache, identity)
	return nil
}

// Count returns the number of saved preference records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Close closes the underlying database. Further writes fail with ErrClosed;
// cached reads keep working.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
