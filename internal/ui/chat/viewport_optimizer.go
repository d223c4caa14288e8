// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the advisor TUI.
//
// This file implements viewport optimization to reduce redundant viewport
// updates during streaming. The ViewportOptimizer tracks content changes and
// only triggers redraws when the content actually changes, preventing
// unnecessary CPU usage.
package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// =============================================================================
// VIEWPORT OPTIMIZER
// =============================================================================

// ViewportOptimizer reduces redundant viewport updates by tracking content
// changes. During streaming the tick handler re-renders the transcript at
// 30fps; when a tick lands between buffer flushes the content is unchanged
// and the redraw can be skipped. The optimizer uses a content hash to
// detect actual changes.
//
// Thread-safety: All operations are protected by a mutex.
type ViewportOptimizer struct {
	mu              sync.RWMutex
	lastContentHash string    // SHA-256 hash of last rendered content
	lastUpdateTime  time.Time // Time of last update
	dirty           bool      // Whether content has changed since last render
	updateCount     uint64    // Total update attempts
	skipCount       uint64    // Updates skipped due to no change
}

// NewViewportOptimizer creates a new viewport optimizer.
func NewViewportOptimizer() *ViewportOptimizer {
	return &ViewportOptimizer{
		lastUpdateTime: time.Now(),
		dirty:          true, // Start dirty to force initial render
	}
}

// ShouldUpdate returns true if the viewport needs to be redrawn.
// This performs a hash comparison to detect actual content changes; a
// length check alone would miss edits that keep the length stable.
// Thread-safe.
func (vo *ViewportOptimizer) ShouldUpdate(newContent string) bool {
	vo.mu.Lock()
	defer vo.mu.Unlock()

	vo.updateCount++

	// First update always proceeds
	if vo.updateCount == 1 {
		vo.lastContentHash = hashContent(newContent)
		vo.lastUpdateTime = time.Now()
		vo.dirty = true
		return true
	}

	newHash := hashContent(newContent)

	if newHash == vo.lastContentHash {
		// Content unchanged - skip update
		vo.skipCount++
		return false
	}

	vo.lastContentHash = newHash
	vo.lastUpdateTime = time.Now()
	vo.dirty = true

	return true
}

// MarkClean marks the viewport as up-to-date after a render.
// Thread-safe.
func (vo *ViewportOptimizer) MarkClean() {
	vo.mu.Lock()
	defer vo.mu.Unlock()
	vo.dirty = false
}

// IsDirty returns true if the viewport has pending changes.
// Thread-safe.
func (vo *ViewportOptimizer) IsDirty() bool {
	vo.mu.RLock()
	defer vo.mu.RUnlock()
	return vo.dirty
}

// Reset clears the optimizer state.
// Use this when starting a new session or clearing the transcript.
// Thread-safe.
func (vo *ViewportOptimizer) Reset() {
	vo.mu.Lock()
	defer vo.mu.Unlock()

	vo.lastContentHash = ""
	vo.lastUpdateTime = time.Now()
	vo.dirty = true
	// Don't reset counters - keep them for metrics
}

// GetStats returns optimizer statistics.
// Returns (totalUpdates, skippedUpdates, efficiency%)
// Thread-safe.
func (vo *ViewportOptimizer) GetStats() (total, skipped uint64, efficiency float64) {
	vo.mu.RLock()
	defer vo.mu.RUnlock()

	total = vo.updateCount
	skipped = vo.skipCount

	if total > 0 {
		efficiency = float64(skipped) / float64(total) * 100.0
	}

	return
}

// ForceUpdate forces the next update to proceed regardless of content
// changes. Use this when a redraw must happen even with identical text,
// such as after a resize or a widget mount.
// Thread-safe.
func (vo *ViewportOptimizer) ForceUpdate() {
	vo.mu.Lock()
	defer vo.mu.Unlock()

	vo.lastContentHash = ""
	vo.dirty = true
}

// GetLastUpdateTime returns the time of the last viewport update.
// Thread-safe.
func (vo *ViewportOptimizer) GetLastUpdateTime() time.Time {
	vo.mu.RLock()
	defer vo.mu.RUnlock()
	return vo.lastUpdateTime
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// hashContent computes a SHA-256 hash of the content for change detection.
// Fast enough for real-time use (~0.5ms for 100KB of transcript).
func hashContent(content string) string {
	if content == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
