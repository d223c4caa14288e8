// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scanner

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSource struct {
	mu        sync.Mutex
	msgs      []Message
	missing   map[string]bool
	snapshots atomic.Int32
}

func (f *fakeSource) setMessages(msgs ...Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = msgs
}

// setMissing makes HasMessage deny an ID that Snapshot still returns,
// simulating a message removed between the snapshot and the insert.
func (f *fakeSource) setMissing(id string, gone bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing == nil {
		f.missing = make(map[string]bool)
	}
	f.missing[id] = gone
}

func (f *fakeSource) Snapshot() []Message {
	f.snapshots.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeSource) HasMessage(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[id] {
		return false
	}
	for _, m := range f.msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}

// blockingSource parks the first Snapshot call until released, so a test can
// hold one scan open while probing the re-entrancy guard.
type blockingSource struct {
	fakeSource
	gate    sync.Once
	started chan struct{}
	release chan struct{}
}

func newBlockingSource(msgs ...Message) *blockingSource {
	b := &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	b.setMessages(msgs...)
	return b
}

func (b *blockingSource) Snapshot() []Message {
	b.gate.Do(func() {
		close(b.started)
		<-b.release
	})
	return b.fakeSource.Snapshot()
}

type fakeWidget struct {
	torn        atomic.Bool
	teardownErr error
}

func (w *fakeWidget) Teardown() error {
	w.torn.Store(true)
	return w.teardownErr
}

type mountRecorder struct {
	mu      sync.Mutex
	calls   int
	widgets []*fakeWidget
	err     error
	panics  bool
}

func (m *mountRecorder) mount(_ *chartdata.ChartDescriptor) (Widget, error) {
	m.mu.Lock()
	m.calls++
	shouldPanic := m.panics
	err := m.err
	m.mu.Unlock()

	if shouldPanic {
		panic("widget constructor exploded")
	}
	if err != nil {
		return nil, err
	}

	w := &fakeWidget{}
	m.mu.Lock()
	m.widgets = append(m.widgets, w)
	m.mu.Unlock()
	return w, nil
}

func (m *mountRecorder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// chartMessage builds a message containing n valid chart payloads.
func chartMessage(id string, n int) Message {
	var b strings.Builder
	b.WriteString("Quarterly numbers:\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b,
			"```chart-json\n{\"type\":\"bar\",\"title\":\"Chart %d\",\"data\":[{\"name\":\"Q1\",\"value\":%d}]}\n```\n",
			i, i+1)
	}
	return Message{ID: id, Content: b.String()}
}

func testConfig() Config {
	// Zero debounce makes OnMessage/OnRerender scan synchronously.
	return Config{Debounce: 0, MaxWidgets: 8}
}

// =============================================================================
// SCAN AND MOUNT
// =============================================================================

func TestScanner_MountsOneWidgetPerPayload(t *testing.T) {
	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 2))
	rec := &mountRecorder{}
	var notifies atomic.Int32

	sc := New(testConfig(), src, rec.mount, func() { notifies.Add(1) })

	if !sc.Scan() {
		t.Fatal("Scan() = false, want true")
	}

	// The scan only registers roots; the constructor runs in a later turn.
	if got := rec.callCount(); got != 0 {
		t.Fatalf("mount ran during scan: %d calls, want 0", got)
	}
	if got := sc.PendingCount(); got != 2 {
		t.Fatalf("PendingCount() = %d, want 2", got)
	}
	if got := notifies.Load(); got != 1 {
		t.Errorf("notify fired %d times, want 1", got)
	}

	mounted := sc.MountPending()
	if len(mounted) != 2 {
		t.Fatalf("MountPending() mounted %d, want 2", len(mounted))
	}
	if got := rec.callCount(); got != 2 {
		t.Errorf("mount calls = %d, want 2", got)
	}
	if got := sc.WidgetCount(); got != 2 {
		t.Errorf("WidgetCount() = %d, want 2", got)
	}

	for _, root := range mounted {
		if root.Widget() == nil {
			t.Errorf("root %s has no widget after mount", root.InstanceID())
		}
		if root.InstanceID() == "" {
			t.Error("root has empty instance ID")
		}
	}
	if mounted[0].InstanceID() == mounted[1].InstanceID() {
		t.Error("instance IDs are not unique")
	}
}

func TestScanner_RescanIsIdempotent(t *testing.T) {
	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 1))
	rec := &mountRecorder{}
	var notifies atomic.Int32

	sc := New(testConfig(), src, rec.mount, func() { notifies.Add(1) })

	sc.Scan()
	sc.MountPending()
	// Re-render triggers another full scan over the same transcript.
	sc.Scan()
	sc.MountPending()
	sc.Scan()

	if got := sc.WidgetCount(); got != 1 {
		t.Errorf("WidgetCount() = %d after rescans, want 1", got)
	}
	if got := rec.callCount(); got != 1 {
		t.Errorf("mount calls = %d after rescans, want 1", got)
	}
	if got := notifies.Load(); got != 1 {
		t.Errorf("notify fired %d times, want 1", got)
	}
}

func TestScanner_IgnoresPlainAndRejectedContent(t *testing.T) {
	src := &fakeSource{}
	src.setMessages(
		Message{ID: "m1", Content: "plain prose with no fences"},
		Message{ID: "m2", Content: "```chart-json\nnot json at all\n```"},
		Message{ID: "m3", Content: "```python\nprint({\"type\": 1, \"data\": 2})\n```"},
	)
	rec := &mountRecorder{}

	sc := New(testConfig(), src, rec.mount, nil)
	sc.Scan()
	sc.MountPending()

	if got := sc.WidgetCount(); got != 0 {
		t.Errorf("WidgetCount() = %d, want 0", got)
	}
	if got := rec.callCount(); got != 0 {
		t.Errorf("mount calls = %d, want 0", got)
	}
}

func TestScanner_RootsInTranscriptOrder(t *testing.T) {
	src := &fakeSource{}
	src.setMessages(chartMessage("a", 2), chartMessage("b", 1))
	rec := &mountRecorder{}

	sc := New(testConfig(), src, rec.mount, nil)
	sc.Scan()
	sc.MountPending()

	roots := sc.Roots()
	if len(roots) != 3 {
		t.Fatalf("Roots() returned %d, want 3", len(roots))
	}
	want := []NodeKey{
		{MessageID: "a", FenceIndex: 0},
		{MessageID: "a", FenceIndex: 1},
		{MessageID: "b", FenceIndex: 0},
	}
	for i, root := range roots {
		if root.Key() != want[i] {
			t.Errorf("Roots()[%d].Key() = %v, want %v", i, root.Key(), want[i])
		}
	}

	if _, ok := sc.RootByKey(NodeKey{MessageID: "a", FenceIndex: 1}); !ok {
		t.Error("RootByKey() did not find a registered node")
	}
	if _, ok := sc.RootByKey(NodeKey{MessageID: "a", FenceIndex: 9}); ok {
		t.Error("RootByKey() found a node that was never registered")
	}
}

// =============================================================================
// FAILURE HANDLING
// =============================================================================

func TestScanner_VanishedAnchorIsRetried(t *testing.T) {
	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 1))
	src.setMissing("m1", true)
	rec := &mountRecorder{}

	sc := New(testConfig(), src, rec.mount, nil)
	key := NodeKey{MessageID: "m1", FenceIndex: 0}

	sc.Scan()
	if got := sc.WidgetCount(); got != 0 {
		t.Fatalf("WidgetCount() = %d after failed insert, want 0", got)
	}
	if sc.IsProcessed(key) {
		t.Fatal("failed insert left the node marked processed")
	}

	// The anchor is back on the next scan; the node must mount this time.
	src.setMissing("m1", false)
	sc.Scan()
	mounted := sc.MountPending()

	if len(mounted) != 1 {
		t.Fatalf("MountPending() mounted %d after retry, want 1", len(mounted))
	}
	if !sc.IsProcessed(key) {
		t.Error("mounted node is not marked processed")
	}
}

func TestScanner_RegistryCapDefersOverflow(t *testing.T) {
	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 2))
	rec := &mountRecorder{}

	cfg := testConfig()
	cfg.MaxWidgets = 1
	sc := New(cfg, src, rec.mount, nil)

	sc.Scan()
	sc.MountPending()

	if got := sc.WidgetCount(); got != 1 {
		t.Fatalf("WidgetCount() = %d, want 1 (capped)", got)
	}
	if !sc.IsProcessed(NodeKey{MessageID: "m1", FenceIndex: 0}) {
		t.Error("first node not marked processed")
	}
	// The overflow node keeps its retry eligibility for when capacity frees.
	if sc.IsProcessed(NodeKey{MessageID: "m1", FenceIndex: 1}) {
		t.Error("capped node marked processed; it can never mount")
	}
}

func TestScanner_MountFailureIsTerminal(t *testing.T) {
	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 1))
	rec := &mountRecorder{err: errors.New("renderer rejected payload")}

	sc := New(testConfig(), src, rec.mount, nil)
	key := NodeKey{MessageID: "m1", FenceIndex: 0}

	sc.Scan()
	mounted := sc.MountPending()

	if len(mounted) != 0 {
		t.Fatalf("MountPending() mounted %d, want 0", len(mounted))
	}
	if got := sc.WidgetCount(); got != 0 {
		t.Errorf("WidgetCount() = %d after mount failure, want 0", got)
	}
	// Stays processed: the same payload would fail the same way forever.
	if !sc.IsProcessed(key) {
		t.Error("mount failure cleared the processed mark; node would retry in a loop")
	}

	sc.Scan()
	if got := sc.PendingCount(); got != 0 {
		t.Errorf("PendingCount() = %d after rescan, want 0", got)
	}
	if got := rec.callCount(); got != 1 {
		t.Errorf("mount calls = %d, want 1 (no retry)", got)
	}
}

func TestScanner_MountPanicIsIsolated(t *testing.T) {
	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 1))
	rec := &mountRecorder{panics: true}

	sc := New(testConfig(), src, rec.mount, nil)

	sc.Scan()
	mounted := sc.MountPending()

	if len(mounted) != 0 {
		t.Fatalf("MountPending() mounted %d after panic, want 0", len(mounted))
	}
	if !sc.IsProcessed(NodeKey{MessageID: "m1", FenceIndex: 0}) {
		t.Error("panicking mount cleared the processed mark")
	}
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestScanner_OverlappingScanIsSkipped(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := newBlockingSource(chartMessage("m1", 1))
	rec := &mountRecorder{}
	sc := New(testConfig(), src, rec.mount, nil)

	results := make(chan bool, 1)
	go func() { results <- sc.Scan() }()
	<-src.started

	// A trigger landing mid-scan is dropped, not queued.
	if sc.Scan() {
		t.Error("overlapping Scan() = true, want false")
	}

	close(src.release)
	if !<-results {
		t.Error("blocked Scan() = false, want true")
	}

	sc.MountPending()
	if got := sc.WidgetCount(); got != 1 {
		t.Errorf("WidgetCount() = %d, want 1", got)
	}
}

func TestScanner_DebounceCoalescesTriggers(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 1))
	rec := &mountRecorder{}

	cfg := Config{Debounce: 25 * time.Millisecond, MaxWidgets: 8}
	sc := New(cfg, src, rec.mount, nil)

	for i := 0; i < 5; i++ {
		sc.OnMessage()
	}
	sc.OnRerender()

	time.Sleep(150 * time.Millisecond)

	if got := src.snapshots.Load(); got != 1 {
		t.Errorf("%d scans ran for 6 rapid triggers, want 1", got)
	}

	<-sc.Shutdown()
}

// =============================================================================
// TEARDOWN
// =============================================================================

func TestScanner_TeardownIsolatesFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 2))
	rec := &mountRecorder{}

	sc := New(testConfig(), src, rec.mount, nil)
	sc.Scan()
	sc.MountPending()

	rec.mu.Lock()
	if len(rec.widgets) != 2 {
		rec.mu.Unlock()
		t.Fatalf("mounted %d widgets, want 2", len(rec.widgets))
	}
	rec.widgets[0].teardownErr = errors.New("unmount exploded")
	rec.mu.Unlock()

	<-sc.Shutdown()

	// The failing widget must not block its sibling's release.
	for i, w := range rec.widgets {
		if !w.torn.Load() {
			t.Errorf("widget %d not torn down", i)
		}
	}
	if got := sc.WidgetCount(); got != 0 {
		t.Errorf("WidgetCount() = %d after shutdown, want 0", got)
	}
}

func TestScanner_ShutdownStopsScanning(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 1))
	rec := &mountRecorder{}

	sc := New(testConfig(), src, rec.mount, nil)
	<-sc.Shutdown()

	if sc.Scan() {
		t.Error("Scan() = true after Shutdown, want false")
	}
	sc.OnMessage()
	if got := sc.WidgetCount(); got != 0 {
		t.Errorf("WidgetCount() = %d after Shutdown, want 0", got)
	}
}

func TestScanner_ResetAllowsRemount(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{}
	src.setMessages(chartMessage("m1", 1))
	rec := &mountRecorder{}

	sc := New(testConfig(), src, rec.mount, nil)
	sc.Scan()
	sc.MountPending()
	<-sc.Reset()

	if got := sc.WidgetCount(); got != 0 {
		t.Fatalf("WidgetCount() = %d after Reset, want 0", got)
	}

	// Same transcript, fresh processed set: the payload mounts again.
	sc.Scan()
	mounted := sc.MountPending()
	if len(mounted) != 1 {
		t.Fatalf("MountPending() mounted %d after Reset, want 1", len(mounted))
	}
	if got := rec.callCount(); got != 2 {
		t.Errorf("mount calls = %d, want 2", got)
	}
}
