// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides session persistence for advisor TUI.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/util"
)

// =============================================================================
// SESSION STORE
// =============================================================================

// DefaultMaxSessions limits stored sessions before the oldest are pruned.
const DefaultMaxSessions = 100

// SessionStore handles session persistence as one JSON file per session.
type SessionStore struct {
	// BaseDir is the directory for storing sessions.
	BaseDir string

	// MaxSessions limits stored sessions (0 = unlimited).
	MaxSessions int
}

// NewSessionStore creates a store rooted at baseDir, creating it if needed.
func NewSessionStore(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &SessionStore{
		BaseDir:     baseDir,
		MaxSessions: DefaultMaxSessions,
	}, nil
}

// NewDefaultSessionStore creates a store at ~/.advisor/sessions/.
func NewDefaultSessionStore() (*SessionStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewSessionStore(filepath.Join(homeDir, ".advisor", "sessions"))
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a session and returns its ID. Streaming messages are
// snapshotted so a mid-stream save never loses the partial content.
func (s *SessionStore) Save(sess *model.Session) (string, error) {
	if sess.ID == "" {
		// model.NewSession always assigns one; cover hand-built sessions.
		sess.ID = model.NewSession().ID
	}

	sess.UpdatedAt = time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}

	// Clone freezes in-flight stream buffers into Content.
	data, err := json.MarshalIndent(sess.Clone(), "", "  ")
	if err != nil {
		return "", err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	filePath := s.filePath(sess.ID)
	if err := util.AtomicWriteFile(filePath, data, 0644); err != nil {
		return "", err
	}

	if s.MaxSessions > 0 {
		s.enforceLimit()
	}

	return sess.ID, nil
}

// enforceLimit removes the oldest sessions if over limit.
func (s *SessionStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxSessions {
		return
	}

	// Oldest first.
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})

	excess := len(metas) - s.MaxSessions
	for i := 0; i < excess; i++ {
		s.Delete(metas[i].ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a session by ID.
func (s *SessionStore) Load(id string) (*model.Session, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}

	return &sess, nil
}

// LoadByIndex loads a session by its position in the list (0 = most recent).
func (s *SessionStore) LoadByIndex(index int) (*model.Session, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(metas) {
		return nil, ErrSessionNotFound
	}

	return s.Load(metas[index].ID)
}

// LoadLatest loads the most recently updated session.
func (s *SessionStore) LoadLatest() (*model.Session, error) {
	return s.LoadByIndex(0)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns metadata for all saved sessions, most recent first.
// Corrupt files are skipped rather than failing the whole listing.
func (s *SessionStore) List() ([]model.SessionMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.SessionMeta{}, nil
		}
		return nil, err
	}

	var metas []model.SessionMeta

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		sess, err := s.Load(id)
		if err != nil {
			continue
		}

		metas = append(metas, sess.GetMeta())
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, nil
}

// Count returns the number of saved sessions.
func (s *SessionStore) Count() (int, error) {
	metas, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(metas), nil
}

// Search finds sessions whose title or preview matches the query
// (case-insensitive).
func (s *SessionStore) Search(query string) ([]model.SessionMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []model.SessionMeta

	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}

	return results, nil
}

// SearchMessages finds sessions where any message content contains the
// query string (case-insensitive). Empty query returns everything.
func (s *SessionStore) SearchMessages(query string) ([]model.SessionMeta, error) {
	if query == "" {
		return s.List()
	}

	query = strings.ToLower(query)
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []model.SessionMeta

	for _, meta := range all {
		sess, err := s.Load(meta.ID)
		if err != nil {
			continue
		}

		for _, msg := range sess.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}

	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a session by ID.
func (s *SessionStore) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// Clear removes all saved sessions.
func (s *SessionStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path for a session ID.
func (s *SessionStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// ResolveID expands a session ID prefix to a full ID. Returns
// ErrSessionNotFound when nothing matches and ErrAmbiguousID when the
// prefix matches more than one session.
func (s *SessionStore) ResolveID(prefix string) (string, error) {
	if prefix == "" {
		return "", ErrSessionNotFound
	}

	metas, err := s.List()
	if err != nil {
		return "", err
	}

	var match string
	for _, meta := range metas {
		if meta.ID == prefix {
			return meta.ID, nil
		}
		if strings.HasPrefix(meta.ID, prefix) {
			if match != "" {
				return "", ErrAmbiguousID
			}
			match = meta.ID
		}
	}

	if match == "" {
		return "", ErrSessionNotFound
	}
	return match, nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session doesn't exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &SessionError{Message: "session not found"}

// ErrAmbiguousID is returned when a session ID prefix matches more than
// one stored session.
var ErrAmbiguousID = &SessionError{Message: "session ID prefix is ambiguous"}

// SessionError represents a session storage error.
// It implements the error interface and can be compared using errors.Is.
type SessionError struct {
	Message string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList formats sessions for display in a table layout.
func FormatSessionList(sessions []model.SessionMeta) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString("Sessions:\n")
	sb.WriteString("------------------------------------------------------------\n")
	sb.WriteString(util.PadWidth("ID", 14) + " " + util.PadWidth("Updated", 17) + " " + util.PadWidth("Msgs", 5) + " Title\n")
	sb.WriteString("------------------------------------------------------------\n")

	for _, meta := range sessions {
		title := meta.Title
		if title == "" {
			title = meta.Preview
		}
		sb.WriteString(util.PadWidth(util.TruncateRunes(meta.ID, 14), 14) + " " +
			util.PadWidth(meta.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadWidth(strconv.Itoa(meta.MessageCount), 5) + " " +
			util.TruncateRunes(title, 40) + "\n")
	}
	return sb.String()
}
