// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scanner

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one trailing call. Streaming
// finalization and window re-renders can fire many triggers within a few
// milliseconds; only the last one inside the interval runs.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
}

// NewDebouncer creates a debouncer with the given trailing interval. A zero
// or negative interval disables coalescing and makes Trigger call fn
// synchronously, which keeps tests deterministic.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules fn to run after the interval. A trigger that arrives
// while one is pending resets the clock; only the latest fn runs.
func (d *Debouncer) Trigger(fn func()) {
	if d.interval <= 0 {
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

// Cancel drops any pending call without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
