// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"
)

func TestToastConstructors(t *testing.T) {
	tests := []struct {
		name     string
		toast    ErrorToast
		kind     ToastKind
		duration time.Duration
	}{
		{"error", NewErrorToast("boom"), ToastKindError, ErrorToastDuration},
		{"warning", NewWarningToast("careful"), ToastKindWarning, WarningToastDuration},
		{"status", NewStatusToast("saved"), ToastKindStatus, DefaultToastDuration},
		{"success", NewSuccessToast("done"), ToastKindSuccess, DefaultToastDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.toast.Kind != tt.kind {
				t.Errorf("kind = %d, want %d", tt.toast.Kind, tt.kind)
			}
			if tt.toast.Duration != tt.duration {
				t.Errorf("duration = %v, want %v", tt.toast.Duration, tt.duration)
			}
			if tt.toast.ID == 0 {
				t.Error("toast did not get an ID")
			}
			if tt.toast.IsExpired() {
				t.Error("fresh toast reports expired")
			}
		})
	}
}

func TestToastManagerAddRemove(t *testing.T) {
	m := NewToastManager()

	if m.HasToasts() {
		t.Error("new manager has toasts")
	}

	id := m.AddError("first")
	m.AddStatus("second")

	if got := len(m.GetToasts()); got != 2 {
		t.Fatalf("len(GetToasts()) = %d, want 2", got)
	}
	// Newest first.
	if m.GetToasts()[0].Message != "second" {
		t.Errorf("GetToasts()[0].Message = %q, want %q", m.GetToasts()[0].Message, "second")
	}

	m.RemoveToast(id)
	if got := len(m.GetToasts()); got != 1 {
		t.Errorf("after remove, len = %d, want 1", got)
	}

	m.Clear()
	if m.HasToasts() {
		t.Error("Clear left toasts behind")
	}
}

func TestToastManagerCap(t *testing.T) {
	m := NewToastManager()
	for i := 0; i < 10; i++ {
		m.AddStatus("toast")
	}
	if got := len(m.GetToasts()); got != 5 {
		t.Errorf("len = %d, want cap of 5", got)
	}
}

func TestTickToastsDropsExpired(t *testing.T) {
	m := NewToastManager()

	expired := NewStatusToast("old")
	expired.CreatedAt = time.Now().Add(-time.Minute)
	m.AddToast(expired)
	m.AddStatus("fresh")

	remaining := m.TickToasts()
	if len(remaining) != 1 {
		t.Fatalf("len(remaining) = %d, want 1", len(remaining))
	}
	if remaining[0].Message != "fresh" {
		t.Errorf("remaining toast = %q, want %q", remaining[0].Message, "fresh")
	}
}

func TestRenderToastStack(t *testing.T) {
	toasts := []ErrorToast{
		NewErrorToast("stream failed"),
		NewSuccessToast("session saved"),
	}

	out := RenderToastStack(toasts, 100, 0)
	if !strings.Contains(out, "stream failed") {
		t.Error("stack missing error toast text")
	}
	if !strings.Contains(out, "session saved") {
		t.Error("stack missing success toast text")
	}

	if RenderToastStack(nil, 100, 0) != "" {
		t.Error("empty stack should render empty")
	}
}
