// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/scanner"
	"github.com/jeranaias/advisor-tui/internal/selection"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// testChartFence is a minimal valid chart payload as the agent would embed
// it in a reply.
const testChartFence = "```chart-json\n" +
	`{"type":"bar","title":"Quarterly Sales","data":[{"name":"Q1","value":10},{"name":"Q2","value":20}]}` +
	"\n```"

// newSizedModel builds a chat model with an empty session at a fixed
// terminal size. Starting empty means the constructor schedules no scan,
// so tests control scanning explicitly.
func newSizedModel(t *testing.T, width, height int) Model {
	t.Helper()
	m := New(Options{Theme: styles.NewTheme("dark")})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	return updated.(Model)
}

// addFinalizedReply appends a user turn and a finalized advisor reply.
func addFinalizedReply(sess *model.Session, content string) *model.Message {
	sess.AddUserMessage("show me")
	msg := sess.AddAssistantMessage()
	sess.AppendToLast(content)
	sess.FinalizeLast(nil)
	return msg
}

// mountCharts syncs the mirror, runs one synchronous scan, and mounts
// whatever it registered.
func mountCharts(t *testing.T, m *Model) {
	t.Helper()
	m.mirror.Sync(m.session)
	if !m.scan.Scan() {
		t.Fatal("scan did not run")
	}
	m.drainMounts()
}

// =============================================================================
// TRANSCRIPT MIRROR
// =============================================================================

func TestTranscriptMirrorSkipsStreamingMessages(t *testing.T) {
	sess := model.NewSession()
	sess.AddUserMessage("hello")
	sess.AddAssistantMessage() // still streaming

	mirror := newTranscriptMirror()
	mirror.Sync(sess)

	if got := len(mirror.Snapshot()); got != 0 {
		t.Errorf("Expected 0 mirrored messages while streaming, got %d", got)
	}

	sess.AppendToLast("done")
	sess.FinalizeLast(nil)
	mirror.Sync(sess)

	snap := mirror.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Expected 1 mirrored message after finalize, got %d", len(snap))
	}
	if snap[0].Content != "done" {
		t.Errorf("Expected mirrored content 'done', got '%s'", snap[0].Content)
	}
}

func TestTranscriptMirrorSkipsUserMessages(t *testing.T) {
	sess := model.NewSession()
	sess.AddUserMessage("only me here")

	mirror := newTranscriptMirror()
	mirror.Sync(sess)

	if got := len(mirror.Snapshot()); got != 0 {
		t.Errorf("User messages should not be mirrored, got %d", got)
	}
}

func TestTranscriptMirrorHasMessage(t *testing.T) {
	sess := model.NewSession()
	msg := addFinalizedReply(sess, "reply text")

	mirror := newTranscriptMirror()
	mirror.Sync(sess)

	if !mirror.HasMessage(msg.ID) {
		t.Error("Expected HasMessage true for a synced message")
	}
	if mirror.HasMessage("no-such-id") {
		t.Error("Expected HasMessage false for an unknown ID")
	}

	// A cleared transcript drops the message on the next sync.
	sess.ClearHistory()
	mirror.Sync(sess)
	if mirror.HasMessage(msg.ID) {
		t.Error("Expected HasMessage false after the message was cleared")
	}
}

func TestTranscriptMirrorSnapshotIsCopy(t *testing.T) {
	sess := model.NewSession()
	addFinalizedReply(sess, "original")

	mirror := newTranscriptMirror()
	mirror.Sync(sess)

	snap := mirror.Snapshot()
	snap[0].Content = "mutated"

	if mirror.Snapshot()[0].Content != "original" {
		t.Error("Mutating a snapshot should not affect the mirror")
	}
}

// =============================================================================
// NOTIFY HOOK
// =============================================================================

func TestNotifyHook(t *testing.T) {
	hook := newNotifyHook()

	// Call before Set must be a no-op, not a panic.
	hook.Call()

	calls := 0
	hook.Set(func() { calls++ })
	hook.Call()
	hook.Call()

	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}

	hook.Set(nil)
	hook.Call()
	if calls != 2 {
		t.Errorf("Call after Set(nil) should be a no-op, got %d calls", calls)
	}
}

// =============================================================================
// SCANNING AND MOUNTING
// =============================================================================

func TestScanMountsChartWidget(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	msg := addFinalizedReply(m.session, "Here you go:\n"+testChartFence+"\nEnjoy.")

	mountCharts(t, &m)

	w := m.widgetFor(msg.ID, 0)
	if w == nil {
		t.Fatal("Expected a mounted widget for fence 0")
	}
	if w.Descriptor().DisplayTitle() != "Quarterly Sales" {
		t.Errorf("Widget mounted for wrong payload: %s", w.Descriptor().DisplayTitle())
	}
	if m.widgetFor(msg.ID, 1) != nil {
		t.Error("Expected no widget for a fence index that does not exist")
	}
	if m.widgetFor("unknown-message", 0) != nil {
		t.Error("Expected no widget for an unknown message")
	}
}

func TestWidgetsPendingMountsOnUpdate(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	msg := addFinalizedReply(m.session, testChartFence)

	// Register without mounting, as the scan goroutine would.
	m.mirror.Sync(m.session)
	if !m.scan.Scan() {
		t.Fatal("scan did not run")
	}
	if m.widgetFor(msg.ID, 0) != nil {
		t.Fatal("Widget should not mount before WidgetsPendingMsg is processed")
	}

	updated, _ := m.Update(WidgetsPendingMsg{})
	m = updated.(Model)

	if m.widgetFor(msg.ID, 0) == nil {
		t.Error("Expected the widget to mount when WidgetsPendingMsg arrives")
	}
}

func TestOrderedRootsFollowTranscriptOrder(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	first := addFinalizedReply(m.session, "First:\n"+testChartFence)
	second := addFinalizedReply(m.session, "Second:\n"+testChartFence+"\nand\n"+testChartFence)

	mountCharts(t, &m)

	roots := m.orderedRoots()
	if len(roots) != 3 {
		t.Fatalf("Expected 3 mounted roots, got %d", len(roots))
	}

	want := []scanner.NodeKey{
		{MessageID: first.ID, FenceIndex: 0},
		{MessageID: second.ID, FenceIndex: 0},
		{MessageID: second.ID, FenceIndex: 1},
	}
	for i, root := range roots {
		if root.Key() != want[i] {
			t.Errorf("Root %d: expected key %v, got %v", i, want[i], root.Key())
		}
	}
}

// =============================================================================
// FOCUS CYCLING
// =============================================================================

func TestCycleWidgetFocus(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	first := addFinalizedReply(m.session, testChartFence)
	second := addFinalizedReply(m.session, testChartFence)

	mountCharts(t, &m)

	if m.focusKey != nil {
		t.Fatal("Focus should start on the composer")
	}

	m.cycleWidgetFocus(1)
	if m.focusKey == nil || m.focusKey.MessageID != first.ID {
		t.Fatal("First cycle should focus the first widget")
	}
	if w := m.focusedWidget(); w == nil || !w.Focused() {
		t.Error("Focused widget should report Focused()")
	}
	if m.input.Focused() {
		t.Error("Composer should blur while a widget has focus")
	}

	m.cycleWidgetFocus(1)
	if m.focusKey == nil || m.focusKey.MessageID != second.ID {
		t.Fatal("Second cycle should focus the second widget")
	}

	// Past the last widget, focus returns to the composer.
	m.cycleWidgetFocus(1)
	if m.focusKey != nil {
		t.Error("Cycling past the last widget should return to the composer")
	}
	if !m.input.Focused() {
		t.Error("Composer should be focused again")
	}

	// Reverse from the composer wraps to the last widget.
	m.cycleWidgetFocus(-1)
	if m.focusKey == nil || m.focusKey.MessageID != second.ID {
		t.Error("Reverse cycle from composer should focus the last widget")
	}
}

func TestCycleWidgetFocusNoWidgets(t *testing.T) {
	m := newSizedModel(t, 100, 40)

	m.cycleWidgetFocus(1)
	if m.focusKey != nil {
		t.Error("Cycling with no widgets should leave focus on the composer")
	}
	if !m.input.Focused() {
		t.Error("Composer should stay focused")
	}
}

func TestTabKeyCyclesWidgetFocus(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	msg := addFinalizedReply(m.session, testChartFence)
	mountCharts(t, &m)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)

	if m.focusKey == nil || m.focusKey.MessageID != msg.ID {
		t.Fatal("Tab should focus the first mounted widget")
	}

	// Esc returns focus to the composer.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)

	if m.focusKey != nil {
		t.Error("Esc should release widget focus")
	}
	if !m.input.Focused() {
		t.Error("Composer should regain focus after Esc")
	}
}

func TestClearTranscriptTearsDownWidgets(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	addFinalizedReply(m.session, testChartFence)
	mountCharts(t, &m)

	if len(m.orderedRoots()) != 1 {
		t.Fatal("Expected one mounted widget before clear")
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = updated.(Model)

	if !m.session.IsEmpty() {
		t.Error("Clear should empty the transcript")
	}
	if len(m.orderedRoots()) != 0 {
		t.Error("Clear should tear down all mounted widgets")
	}
	if m.selStore.Current() != nil {
		t.Error("Clear should drop the active selection")
	}
}

// =============================================================================
// SELECTION STORE LIFECYCLE
// =============================================================================

func TestEachMountedWidgetGetsOwnStore(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	first := addFinalizedReply(m.session, testChartFence)
	second := addFinalizedReply(m.session, testChartFence)
	mountCharts(t, &m)

	a := m.widgetFor(first.ID, 0)
	b := m.widgetFor(second.ID, 0)
	if a == nil || b == nil {
		t.Fatal("Expected both widgets to mount")
	}
	if a.Store() == b.Store() {
		t.Error("Sibling widgets must not share a selection store")
	}
	if a.Store() == m.selStore || b.Store() == m.selStore {
		t.Error("Widget stores must be distinct from the chat view's store")
	}
	// Chat store plus one per widget.
	if got := m.bus.ListenerCount(); got != 3 {
		t.Errorf("Expected 3 bus listeners, got %d", got)
	}
}

func TestWidgetTeardownKeepsSiblingsSubscribed(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	first := addFinalizedReply(m.session, testChartFence)
	second := addFinalizedReply(m.session, testChartFence)
	mountCharts(t, &m)

	a := m.widgetFor(first.ID, 0)
	b := m.widgetFor(second.ID, 0)
	if a == nil || b == nil {
		t.Fatal("Expected both widgets to mount")
	}

	if err := a.Teardown(); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}
	if got := m.bus.ListenerCount(); got != 2 {
		t.Errorf("Expected 2 bus listeners after teardown, got %d", got)
	}

	// The surviving widget and the chat view must still follow the bus.
	m.bus.Publish(selection.Point{Name: "Q1", Value: 10})

	want := "Tell me more about Q1 (value: 10)"
	if got := b.Store().QuestionText(); got != want {
		t.Errorf("Surviving widget store: expected %q, got %q", want, got)
	}
	if m.selStore.Current() == nil {
		t.Error("Chat view store must still receive broadcasts")
	}
	if got := m.selStore.QuestionText(); got != want {
		t.Errorf("Chat view store: expected %q, got %q", want, got)
	}
}

func TestResetKeepsChatViewSubscribed(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	addFinalizedReply(m.session, testChartFence)
	mountCharts(t, &m)

	// Reset releases widgets off the caller's goroutine; wait for it so the
	// publish below races nothing.
	<-m.scan.Reset()

	m.bus.Publish(selection.Point{Name: "Q2", Value: 20})
	if m.selStore.Current() == nil {
		t.Fatal("Chat view store must survive a scanner reset")
	}
	if got := m.selStore.QuestionText(); got != "Tell me more about Q2 (value: 20)" {
		t.Errorf("Unexpected question text after reset: %q", got)
	}
}

func TestPropagateWidthAfterResize(t *testing.T) {
	m := newSizedModel(t, 100, 40)
	msg := addFinalizedReply(m.session, testChartFence)
	mountCharts(t, &m)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	m = updated.(Model)

	w := m.widgetFor(msg.ID, 0)
	if w == nil {
		t.Fatal("Widget should survive a resize")
	}
	// The widget rewraps to the new content width; its render must not
	// exceed the terminal.
	view := w.View()
	if view == "" {
		t.Fatal("Widget view should not be empty after resize")
	}
}
