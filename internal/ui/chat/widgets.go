// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the advisor TUI.
//
// This file wires the transcript to the chart subsystem: the scanner reads
// messages through a mirror that is safe to touch from its debounce
// goroutine, discovered chart roots are mounted into table/chart widgets on
// the UI loop, and Tab-order focus cycling walks the mounted widgets in
// transcript order.
package chat

import (
	"sync"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/scanner"
	"github.com/jeranaias/advisor-tui/internal/selection"
	"github.com/jeranaias/advisor-tui/internal/ui/widgets"
)

// =============================================================================
// TRANSCRIPT MIRROR
// =============================================================================

// transcriptMirror is the scanner's view of the session. The scanner runs
// scans on its debounce timer goroutine, so it must never touch the live
// Session the UI loop mutates; instead the chat model copies finalized
// advisor messages into the mirror after every transcript change and the
// scanner reads only the copy.
type transcriptMirror struct {
	mu   sync.RWMutex
	msgs []scanner.Message
	ids  map[string]bool
}

func newTranscriptMirror() *transcriptMirror {
	return &transcriptMirror{
		ids: make(map[string]bool),
	}
}

// Sync replaces the mirror contents with the session's finalized advisor
// messages, in transcript order. Call on the UI loop after a stream
// completes, a session loads, or history is cleared.
func (tm *transcriptMirror) Sync(sess *model.Session) {
	var msgs []scanner.Message
	if sess != nil {
		for _, msg := range sess.Messages {
			if msg.Role != model.RoleAssistant || msg.IsStreaming {
				continue
			}
			msgs = append(msgs, scanner.Message{
				ID:      msg.ID,
				Content: msg.Content,
			})
		}
	}

	ids := make(map[string]bool, len(msgs))
	for _, msg := range msgs {
		ids[msg.ID] = true
	}

	tm.mu.Lock()
	tm.msgs = msgs
	tm.ids = ids
	tm.mu.Unlock()
}

// Snapshot returns the mirrored messages. Safe from any goroutine.
func (tm *transcriptMirror) Snapshot() []scanner.Message {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	out := make([]scanner.Message, len(tm.msgs))
	copy(out, tm.msgs)
	return out
}

// HasMessage reports whether the message survived to the latest sync.
func (tm *transcriptMirror) HasMessage(id string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.ids[id]
}

// =============================================================================
// NOTIFY HOOK
// =============================================================================

// notifyHook relays the scanner's "roots pending" callback into the Bubble
// Tea program. The scanner is constructed before the program exists, so the
// callback goes through this indirection and the CLI installs the real
// program send once p := tea.NewProgram(...) returns.
type notifyHook struct {
	mu sync.Mutex
	fn func()
}

func newNotifyHook() *notifyHook {
	return &notifyHook{}
}

// Set installs the forwarding function. Safe to call at any time.
func (h *notifyHook) Set(fn func()) {
	h.mu.Lock()
	h.fn = fn
	h.mu.Unlock()
}

// Call invokes the installed function, if any. Runs on the scanner's
// scanning goroutine.
func (h *notifyHook) Call() {
	h.mu.Lock()
	fn := h.fn
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// WIDGET MOUNTING
// =============================================================================

// newMountFunc builds the scanner's mount callback. Each discovered chart
// payload becomes an interactive widget with its own selection store on the
// shared bus, so tearing one root down releases only that root's
// subscription. The chat view's store stays out of every widget and keeps
// following the bus across session switches and clears.
func (m *Model) newMountFunc() scanner.MountFunc {
	bus := m.bus
	prefStore := m.prefStore
	theme := m.theme
	return func(desc *chartdata.ChartDescriptor) (scanner.Widget, error) {
		return widgets.New(desc, selection.NewStore(bus), prefStore, theme)
	}
}

// drainMounts mounts every pending root and propagates the current width
// to the new widgets. Runs on the UI loop. Returns the number of widgets
// mounted so callers can skip a re-render when nothing changed.
func (m *Model) drainMounts() int {
	if m.scan == nil {
		return 0
	}

	mounted := m.scan.MountPending()
	for _, root := range mounted {
		if w, ok := root.Widget().(*widgets.Model); ok && w != nil {
			w.SetWidth(m.contentWidth())
		}
	}

	if len(mounted) > 0 {
		// Placeholders in the transcript just resolved to live widgets.
		m.viewportOptimizer.ForceUpdate()
		m.updateViewport()
	}

	return len(mounted)
}

// widgetFor returns the mounted widget for a transcript position, or nil
// when the position has no mounted chart (not yet scanned, rejected, or
// still pending).
func (m *Model) widgetFor(messageID string, fenceIndex int) *widgets.Model {
	if m.scan == nil {
		return nil
	}
	root, ok := m.scan.RootByKey(scanner.NodeKey{MessageID: messageID, FenceIndex: fenceIndex})
	if !ok {
		return nil
	}
	w, ok := root.Widget().(*widgets.Model)
	if !ok {
		return nil
	}
	return w
}

// orderedRoots returns mounted roots in transcript order: messages in
// session order, fences in index order within each message. The scanner's
// own Roots() sorts by key string, which interleaves random message IDs;
// focus traversal needs reading order instead.
func (m *Model) orderedRoots() []*scanner.Root {
	if m.scan == nil || m.session == nil {
		return nil
	}

	var ordered []*scanner.Root
	for _, msg := range m.session.Messages {
		if msg.Role != model.RoleAssistant {
			continue
		}
		for i := 0; ; i++ {
			root, ok := m.scan.RootByKey(scanner.NodeKey{MessageID: msg.ID, FenceIndex: i})
			if !ok {
				break
			}
			if root.Widget() != nil {
				ordered = append(ordered, root)
			}
		}
	}
	return ordered
}

// =============================================================================
// FOCUS CYCLING
// =============================================================================

// focusedWidget returns the widget currently holding focus, or nil when
// the composer has it.
func (m *Model) focusedWidget() *widgets.Model {
	if m.focusKey == nil {
		return nil
	}
	return m.widgetFor(m.focusKey.MessageID, m.focusKey.FenceIndex)
}

// cycleWidgetFocus moves focus to the next (delta=1) or previous (delta=-1)
// mounted widget in transcript order, wrapping past the ends back to the
// composer. With no widgets mounted it leaves focus on the composer.
func (m *Model) cycleWidgetFocus(delta int) {
	roots := m.orderedRoots()
	if len(roots) == 0 {
		m.blurWidget()
		return
	}

	// Locate the current position in the cycle. -1 means composer.
	current := -1
	if m.focusKey != nil {
		for i, root := range roots {
			if root.Key() == *m.focusKey {
				current = i
				break
			}
		}
	}

	next := current + delta
	if next < -1 {
		next = len(roots) - 1
	}
	if next >= len(roots) {
		next = -1
	}

	if next == -1 {
		m.blurWidget()
		return
	}

	m.focusWidget(roots[next].Key())
}

// focusWidget gives keyboard focus to the widget at key, blurring the
// composer and any previously focused widget.
func (m *Model) focusWidget(key scanner.NodeKey) {
	if prev := m.focusedWidget(); prev != nil {
		prev.Blur()
	}

	m.focusKey = &key
	if w := m.widgetFor(key.MessageID, key.FenceIndex); w != nil {
		w.Focus()
	}
	m.input.Blur()
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
}

// blurWidget returns focus to the composer.
func (m *Model) blurWidget() {
	if w := m.focusedWidget(); w != nil {
		w.Blur()
	}
	m.focusKey = nil
	m.input.Focus()
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
}

// clearWidgetFocus drops focus state without touching widgets, for paths
// that tear the widgets down anyway (reset, session switch).
func (m *Model) clearWidgetFocus() {
	m.focusKey = nil
	m.input.Focus()
}

// propagateWidth pushes the current content width to all mounted widgets
// after a resize.
func (m *Model) propagateWidth() {
	if m.scan == nil {
		return
	}
	for _, root := range m.scan.Roots() {
		if w, ok := root.Widget().(*widgets.Model); ok && w != nil {
			w.SetWidth(m.contentWidth())
		}
	}
}

// syncAndScan refreshes the scanner's mirror from the session and triggers
// a debounced scan. Call after any transcript change that could add or
// remove chart fences.
func (m *Model) syncAndScan() {
	if m.mirror == nil || m.scan == nil {
		return
	}
	m.mirror.Sync(m.session)
	m.scan.OnMessage()
}
