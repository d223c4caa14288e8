// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package selection carries the "current clicked data point" across every
// mounted chart widget.
package selection

import (
	"fmt"
	"strconv"
	"sync"
)

// =============================================================================
// SELECTION STORE
// =============================================================================

// Store is the per-widget view of the shared selection. Each mounted widget
// owns one store; all stores on the same bus converge on the last published
// point. No store is privileged.
//
// Select updates local state and re-publishes so sibling stores follow.
// A point arriving FROM the bus updates local state without re-publishing,
// which is what stops two stores from echoing one selection back and forth
// forever.
type Store struct {
	mu          sync.Mutex
	current     *Point
	bus         Bus
	unsubscribe func()
}

// NewStore creates a store subscribed to the bus. The store starts with no
// selection regardless of what was published before it subscribed.
func NewStore(bus Bus) *Store {
	s := &Store{bus: bus}
	s.unsubscribe = bus.Subscribe(s.apply)
	return s
}

// apply handles a broadcast event: update local state only.
func (s *Store) apply(point *Point) {
	s.mu.Lock()
	s.current = point
	s.mu.Unlock()
}

// Select records a locally originated selection and broadcasts it.
func (s *Store) Select(point Point) {
	s.mu.Lock()
	s.current = &point
	s.mu.Unlock()
	s.bus.Publish(point)
}

// Clear drops the selection locally and broadcasts the clear signal.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.bus.Clear()
}

// Current returns the current selection, or nil when nothing is selected.
func (s *Store) Current() *Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// QuestionText derives the follow-up question for the current selection.
// Empty string when nothing is selected.
func (s *Store) QuestionText() string {
	s.mu.Lock()
	point := s.current
	s.mu.Unlock()

	if point == nil {
		return ""
	}
	return fmt.Sprintf("Tell me more about %s (value: %s)",
		point.Name, strconv.FormatFloat(point.Value, 'f', -1, 64))
}

// Close unsubscribes the store from the bus. The store keeps its last state
// but stops following broadcasts. Idempotent.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
