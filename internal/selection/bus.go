// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package selection carries the "current clicked data point" across every
// mounted chart widget.
//
// Widgets mount in rendering roots that are detached from the main UI tree,
// so a click in one widget cannot reach the composer or a sibling widget
// through ordinary parent-to-child data flow. The broadcast bus is the one
// shared channel: every Store subscribes to the same Bus instance, a click
// anywhere publishes to it, and all stores converge on the last published
// value. The bus is handed to each store explicitly; nothing in this package
// is process-global, so tests can inject their own.
package selection

import (
	"sync"
)

// =============================================================================
// SELECTION POINT
// =============================================================================

// Point is the data point the user last clicked in any chart or table. Extra
// carries every field of the clicked row beyond the plotted pair. Points are
// treated as immutable once published; receivers must not mutate Extra.
type Point struct {
	Name  string
	Value float64
	Extra map[string]any
}

// =============================================================================
// BUS
// =============================================================================

// Listener receives selection broadcasts. A nil point is the clear signal.
type Listener func(point *Point)

// Bus is the publish/subscribe channel for selection events. Publish and
// Clear deliver synchronously to every subscribed listener before returning;
// there is no queue and no replay, so a new subscriber sees only future
// events. Last publish wins: the bus itself holds no current value.
type Bus interface {
	// Publish broadcasts a selected point to all listeners.
	Publish(point Point)

	// Clear broadcasts the no-selection signal to all listeners.
	Clear()

	// Subscribe registers a listener and returns its unsubscribe handle.
	// The handle is idempotent.
	Subscribe(l Listener) (unsubscribe func())
}

// Broadcast is the standard Bus implementation. Delivery order equals
// subscription order for any single publish.
//
// Listeners run outside the bus lock, so a listener may subscribe,
// unsubscribe, or publish re-entrantly without deadlock. A publish from
// inside a listener delivers before the outer publish call returns, which
// preserves "whichever publish executes last wins".
type Broadcast struct {
	mu      sync.Mutex
	nextID  int
	entries []busEntry
}

type busEntry struct {
	id int
	fn Listener
}

// NewBroadcast creates an empty broadcast bus.
func NewBroadcast() *Broadcast {
	return &Broadcast{}
}

// Publish broadcasts a selected point to all current listeners.
func (b *Broadcast) Publish(point Point) {
	b.deliver(&point)
}

// Clear broadcasts the no-selection signal to all current listeners.
func (b *Broadcast) Clear() {
	b.deliver(nil)
}

// Subscribe registers a listener for future events.
func (b *Broadcast) Subscribe(l Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.entries = append(b.entries, busEntry{id: id, fn: l})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(id)
		})
	}
}

// deliver snapshots the listener list under the lock and invokes each
// listener outside it. A listener removed mid-delivery may still see the
// in-flight event; removal is guaranteed only for subsequent publishes.
func (b *Broadcast) deliver(point *Point) {
	b.mu.Lock()
	snapshot := make([]busEntry, len(b.entries))
	copy(snapshot, b.entries)
	b.mu.Unlock()

	for _, e := range snapshot {
		e.fn(point)
	}
}

func (b *Broadcast) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of subscribed listeners. Useful for
// teardown assertions.
func (b *Broadcast) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
