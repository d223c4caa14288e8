// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scanner finds chart payloads in finalized transcript messages and
// mounts interactive widgets for them.
//
// The transcript is re-rendered wholesale as messages stream in, so widgets
// cannot live inside the message text itself. Instead the scanner walks the
// finalized messages, extracts chart payloads, and registers a widget root
// for each one; the transcript view splices the widget's rendering in at the
// payload's placeholder. The original fence text is never removed from the
// message, so exports and session files keep the raw payload.
//
// Mounting is split across two turns. A scan (usually on a timer goroutine,
// behind the debouncer) only registers roots and queues them; the UI loop is
// then notified and calls MountPending on its own goroutine, which runs the
// widget constructor. Widget code therefore always executes on the loop that
// will render it.
//
// The scanner owns every root it mounts and releases them all on Reset or
// Shutdown. Teardown is asynchronous and isolates failures per root, so one
// broken widget cannot keep its siblings mounted.
package scanner

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/advisor-tui/internal/chartdata"
	"github.com/jeranaias/advisor-tui/internal/logging"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrScannerClosed is returned when a scan or insert races Shutdown.
	ErrScannerClosed = errors.New("scanner is shut down")

	// ErrRegistryFull is returned when mounting would exceed MaxWidgets.
	// The node stays unprocessed and is retried once capacity frees up.
	ErrRegistryFull = errors.New("widget registry is full")

	// ErrMessageGone is returned when the anchor message disappeared between
	// the snapshot and the insert, e.g. the session was cleared mid-scan.
	ErrMessageGone = errors.New("anchor message no longer present")
)

// =============================================================================
// SCAN INPUT
// =============================================================================

// Message is one finalized transcript entry as seen by a scan pass.
type Message struct {
	ID      string
	Content string
}

// Source supplies the messages to scan. Implementations must be safe to call
// from the debounce timer goroutine.
type Source interface {
	// Snapshot returns the finalized messages in transcript order.
	// Streaming messages are excluded; their payload may be truncated.
	Snapshot() []Message

	// HasMessage reports whether the message still exists. An insert is
	// abandoned when its anchor vanished after the snapshot.
	HasMessage(id string) bool
}

// NodeKey identifies one chart payload by its position in the transcript:
// the message it lives in and the payload's index within that message. The
// key is stable across re-renders, which is what makes the processed set
// reliable.
type NodeKey struct {
	MessageID  string
	FenceIndex int
}

func (k NodeKey) String() string {
	return fmt.Sprintf("%s#%d", k.MessageID, k.FenceIndex)
}

// =============================================================================
// WIDGET ROOTS
// =============================================================================

// Widget is the mounted view for one chart payload. The scanner only needs
// to release it; rendering and input are the UI layer's business.
type Widget interface {
	// Teardown releases the widget's resources, in particular its
	// selection bus subscription.
	Teardown() error
}

// MountFunc constructs the widget for a descriptor. The UI layer supplies
// it, closing over the theme, the selection bus, and the preference store.
// MountFunc runs on the goroutine that calls MountPending.
type MountFunc func(desc *chartdata.ChartDescriptor) (Widget, error)

// Root is the handle for one registered widget. The instance ID tags the
// widget in logs and exports; the key ties it back to its transcript node.
// A root exists from insert time, but Widget returns nil until MountPending
// has run the constructor.
type Root struct {
	instanceID string
	key        NodeKey
	desc       *chartdata.ChartDescriptor

	mu     sync.RWMutex
	widget Widget
}

// InstanceID returns the unique identifier assigned at insert time.
func (r *Root) InstanceID() string { return r.instanceID }

// Key returns the transcript node this root was mounted for.
func (r *Root) Key() NodeKey { return r.key }

// Descriptor returns the parsed chart payload.
func (r *Root) Descriptor() *chartdata.ChartDescriptor { return r.desc }

// Widget returns the mounted widget, or nil while the mount is pending.
func (r *Root) Widget() Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.widget
}

func (r *Root) setWidget(w Widget) {
	r.mu.Lock()
	r.widget = w
	r.mu.Unlock()
}

// =============================================================================
// SCANNER
// =============================================================================

// DefaultMaxWidgets caps mounted widgets when the config does not.
const DefaultMaxWidgets = 64

// Config carries the scanner settings, resolved from the charts section of
// the application config.
type Config struct {
	// Debounce is the trailing delay applied to scan triggers.
	Debounce time.Duration
	// MaxWidgets caps simultaneously mounted widgets.
	MaxWidgets int
}

// Scanner watches the transcript for chart payloads and manages the widget
// roots mounted for them. One scanner serves one chat session view.
type Scanner struct {
	cfg    Config
	source Source
	mount  MountFunc
	notify func()
	log    *zap.Logger

	debounce *Debouncer
	scanning atomic.Bool

	mu        sync.Mutex
	closed    bool
	processed map[NodeKey]bool
	registry  map[NodeKey]*Root
	pending   []*Root
}

// New creates a scanner over the given source. notify is called after a scan
// that registered new roots, from the scanning goroutine; the UI layer wires
// it to a program send so MountPending runs on the next update. It may be
// nil when the caller drains pending mounts on its own schedule.
func New(cfg Config, source Source, mount MountFunc, notify func()) *Scanner {
	if cfg.MaxWidgets <= 0 {
		cfg.MaxWidgets = DefaultMaxWidgets
	}
	return &Scanner{
		cfg:       cfg,
		source:    source,
		mount:     mount,
		notify:    notify,
		log:       logging.Named("scanner"),
		debounce:  NewDebouncer(cfg.Debounce),
		processed: make(map[NodeKey]bool),
		registry:  make(map[NodeKey]*Root),
	}
}

// OnMessage signals that a message finished streaming or history was loaded.
func (s *Scanner) OnMessage() {
	s.debounce.Trigger(func() { s.Scan() })
}

// OnRerender signals a structural re-render of the transcript, e.g. a resize
// or theme switch. Shares the debounce window with OnMessage; a re-render
// scan also sweeps up anything a skipped scan missed.
func (s *Scanner) OnRerender() {
	s.debounce.Trigger(func() { s.Scan() })
}

// Scan walks the source once and registers a root for every chart payload
// not yet processed. Returns false if it did nothing because another scan
// was already running or the scanner is shut down. An overlapping trigger is
// skipped, not queued; the next trigger covers whatever this one missed.
func (s *Scanner) Scan() bool {
	if !s.scanning.CompareAndSwap(false, true) {
		return false
	}
	defer s.scanning.Store(false)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	added := 0
	for _, msg := range s.source.Snapshot() {
		if !chartdata.LooksLikeChart(msg.Content) {
			continue
		}
		res := chartdata.ExtractCharts(msg.Content)
		if res.Rejected > 0 {
			// Not a chart after all. Leave the fence as literal text.
			s.log.Debug("chart fences rejected",
				zap.String("message_id", msg.ID),
				zap.Int("count", res.Rejected))
		}
		for i, desc := range res.Charts {
			key := NodeKey{MessageID: msg.ID, FenceIndex: i}

			// Mark before inserting, so a scan racing in behind the
			// debouncer cannot double-mount the same node.
			s.mu.Lock()
			if s.processed[key] {
				s.mu.Unlock()
				continue
			}
			s.processed[key] = true
			s.mu.Unlock()

			if err := s.insert(key, desc); err != nil {
				// Clear the mark so a later scan retries the node.
				s.mu.Lock()
				delete(s.processed, key)
				s.mu.Unlock()
				s.log.Warn("widget insert failed",
					zap.String("node", key.String()),
					zap.Error(err))
				continue
			}
			added++
		}
	}

	if added > 0 {
		s.log.Debug("scan registered widgets", zap.Int("count", added))
		if s.notify != nil {
			s.notify()
		}
	}
	return true
}

// insert registers a root for the node and queues it for mounting.
func (s *Scanner) insert(key NodeKey, desc *chartdata.ChartDescriptor) error {
	if !s.source.HasMessage(key.MessageID) {
		return ErrMessageGone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrScannerClosed
	}
	if len(s.registry) >= s.cfg.MaxWidgets {
		return ErrRegistryFull
	}

	root := &Root{
		instanceID: "chart-widget-" + uuid.NewString(),
		key:        key,
		desc:       desc,
	}
	s.registry[key] = root
	s.pending = append(s.pending, root)
	return nil
}

// MountPending runs the widget constructor for every root queued since the
// last call and returns the roots that mounted. Call it from the UI loop, in
// the turn after the scan that queued them.
//
// A constructor failure is terminal for its node: the root is dropped but
// the processed mark stays, because a mount that failed once would fail the
// same way on every retry.
func (s *Scanner) MountPending() []*Root {
	s.mu.Lock()
	queue := s.pending
	s.pending = nil
	s.mu.Unlock()

	mounted := make([]*Root, 0, len(queue))
	for _, root := range queue {
		w, err := s.mountOne(root)
		if err != nil {
			s.mu.Lock()
			if s.registry[root.key] == root {
				delete(s.registry, root.key)
			}
			s.mu.Unlock()
			s.log.Error("widget mount failed",
				zap.String("instance", root.instanceID),
				zap.String("node", root.key.String()),
				zap.Error(err))
			continue
		}

		root.setWidget(w)

		// A Reset may have swept the registry while the constructor ran.
		// The root is an orphan then; release it immediately.
		s.mu.Lock()
		live := s.registry[root.key] == root
		s.mu.Unlock()
		if !live {
			if terr := s.teardownRoot(root); terr != nil {
				s.log.Error("orphaned widget teardown failed",
					zap.String("instance", root.instanceID),
					zap.Error(terr))
			}
			continue
		}

		mounted = append(mounted, root)
		s.log.Debug("widget mounted",
			zap.String("instance", root.instanceID),
			zap.String("node", root.key.String()),
			zap.String("type", string(root.desc.Type)))
	}
	return mounted
}

// mountOne runs the constructor with panic isolation. Widget construction
// renders user-controlled payload data; a panic there must not take down the
// scan loop.
func (s *Scanner) mountOne(root *Root) (w Widget, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mount panic: %v", r)
		}
	}()
	return s.mount(root.desc)
}

// =============================================================================
// REGISTRY ACCESS
// =============================================================================

// RootByKey returns the root registered for a transcript node, if any.
func (s *Scanner) RootByKey(key NodeKey) (*Root, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, ok := s.registry[key]
	return root, ok
}

// Roots returns all registered roots in transcript order.
func (s *Scanner) Roots() []*Root {
	s.mu.Lock()
	roots := make([]*Root, 0, len(s.registry))
	for _, r := range s.registry {
		roots = append(roots, r)
	}
	s.mu.Unlock()

	sort.Slice(roots, func(i, j int) bool {
		if roots[i].key.MessageID != roots[j].key.MessageID {
			return roots[i].key.MessageID < roots[j].key.MessageID
		}
		return roots[i].key.FenceIndex < roots[j].key.FenceIndex
	})
	return roots
}

// WidgetCount returns the number of registered roots.
func (s *Scanner) WidgetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registry)
}

// PendingCount returns the number of roots awaiting MountPending.
func (s *Scanner) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// IsProcessed reports whether the node has been claimed by a scan.
func (s *Scanner) IsProcessed(key NodeKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[key]
}

// =============================================================================
// TEARDOWN
// =============================================================================

// Reset releases every root and forgets every processed node, leaving the
// scanner ready for a fresh transcript. Call it on session switch or /clear.
// The returned channel closes when all widgets are released; callers may
// ignore it.
func (s *Scanner) Reset() <-chan struct{} {
	return s.teardownAll(false)
}

// Shutdown cancels any pending scan, releases every root, and stops the
// scanner for good. The returned channel closes when all widgets are
// released; callers may ignore it.
func (s *Scanner) Shutdown() <-chan struct{} {
	s.debounce.Cancel()
	return s.teardownAll(true)
}

// teardownAll empties the registry under the lock, then releases the swept
// roots on a separate goroutine so the caller never waits on widget code.
func (s *Scanner) teardownAll(markClosed bool) <-chan struct{} {
	s.mu.Lock()
	if markClosed {
		s.closed = true
	}
	roots := make([]*Root, 0, len(s.registry))
	for _, r := range s.registry {
		roots = append(roots, r)
	}
	s.registry = make(map[NodeKey]*Root)
	s.pending = nil
	s.processed = make(map[NodeKey]bool)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, root := range roots {
			if err := s.teardownRoot(root); err != nil {
				// One bad widget must not keep its siblings mounted.
				s.log.Error("widget teardown failed",
					zap.String("instance", root.instanceID),
					zap.Error(err))
			}
		}
	}()
	return done
}

// teardownRoot releases one root with panic isolation.
func (s *Scanner) teardownRoot(root *Root) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("teardown panic: %v", r)
		}
	}()
	w := root.Widget()
	if w == nil {
		return nil
	}
	return w.Teardown()
}
