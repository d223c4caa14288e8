// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package selection carries the "current clicked data point" across every
// mounted chart widget.
package selection

import (
	"sync"
	"testing"

	"go.uber.org/goleak"
)

// =============================================================================
// BROADCAST TESTS
// =============================================================================

func TestBroadcast_DeliversToAllListeners(t *testing.T) {
	bus := NewBroadcast()

	var got []string
	for i := 0; i < 3; i++ {
		bus.Subscribe(func(p *Point) {
			if p != nil {
				got = append(got, p.Name)
			}
		})
	}

	bus.Publish(Point{Name: "Q1", Value: 10})

	if len(got) != 3 {
		t.Fatalf("delivered to %d listeners, want 3", len(got))
	}
}

func TestBroadcast_DeliveryOrderFollowsSubscriptionOrder(t *testing.T) {
	bus := NewBroadcast()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(func(*Point) {
			order = append(order, i)
		})
	}

	bus.Publish(Point{Name: "x"})

	for i, v := range order {
		if v != i {
			t.Fatalf("delivery order %v does not follow subscription order", order)
		}
	}
}

func TestBroadcast_NoReplayForNewSubscribers(t *testing.T) {
	bus := NewBroadcast()
	bus.Publish(Point{Name: "before", Value: 1})

	called := false
	bus.Subscribe(func(*Point) { called = true })

	if called {
		t.Error("new subscriber must not receive past events")
	}
}

func TestBroadcast_ClearDeliversNil(t *testing.T) {
	bus := NewBroadcast()

	var events []*Point
	bus.Subscribe(func(p *Point) { events = append(events, p) })

	bus.Publish(Point{Name: "a", Value: 1})
	bus.Clear()

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0] == nil || events[1] != nil {
		t.Error("clear must deliver nil after a non-nil publish")
	}
}

func TestBroadcast_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBroadcast()

	calls := 0
	unsubA := bus.Subscribe(func(*Point) { calls++ })
	bus.Subscribe(func(*Point) {})

	unsubA()
	unsubA() // Second call must not remove anyone else.

	if got := bus.ListenerCount(); got != 1 {
		t.Fatalf("ListenerCount() = %d after double unsubscribe, want 1", got)
	}

	bus.Publish(Point{Name: "x"})
	if calls != 0 {
		t.Error("unsubscribed listener must not be called")
	}
}

func TestBroadcast_ReentrantPublishDoesNotDeadlock(t *testing.T) {
	bus := NewBroadcast()

	republished := false
	bus.Subscribe(func(p *Point) {
		if p != nil && p.Name == "outer" && !republished {
			republished = true
			bus.Publish(Point{Name: "inner"})
		}
	})

	var last string
	bus.Subscribe(func(p *Point) {
		if p != nil {
			last = p.Name
		}
	})

	bus.Publish(Point{Name: "outer"})

	// The nested publish delivers before the outer call returns, so the
	// outer event is the one every listener saw last.
	if last != "outer" {
		t.Errorf("last delivered = %q, want outer", last)
	}
}

func TestBroadcast_SubscribeDuringDeliveryAffectsNextPublishOnly(t *testing.T) {
	bus := NewBroadcast()

	lateCalls := 0
	bus.Subscribe(func(p *Point) {
		if p != nil && p.Name == "first" {
			bus.Subscribe(func(*Point) { lateCalls++ })
		}
	})

	bus.Publish(Point{Name: "first"})
	if lateCalls != 0 {
		t.Fatal("listener added during delivery must not see the in-flight event")
	}

	bus.Publish(Point{Name: "second"})
	if lateCalls != 1 {
		t.Errorf("late listener calls = %d after second publish, want 1", lateCalls)
	}
}

func TestBroadcast_ConcurrentPublishers(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewBroadcast()

	var mu sync.Mutex
	received := 0
	bus.Subscribe(func(*Point) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				bus.Publish(Point{Name: "p", Value: float64(i)})
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if received != 200 {
		t.Errorf("received %d events, want 200", received)
	}
}
