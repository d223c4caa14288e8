// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/advisor-tui/internal/model"
)

// =============================================================================
// COMPLETER TESTS
// =============================================================================

func TestCompleterComplete(t *testing.T) {
	completer := NewCompleter(NewRegistry())

	tests := []struct {
		name        string
		input       string
		cursorPos   int
		wantMinimum int    // minimum expected completions
		wantFirst   string // expected first completion value
	}{
		{
			name:        "bare slash lists everything",
			input:       "/",
			cursorPos:   1,
			wantMinimum: 10,
		},
		{
			name:        "partial command",
			input:       "/se",
			cursorPos:   3,
			wantMinimum: 2, // /sessions and /selection
		},
		{
			name:        "theme enum values",
			input:       "/theme ",
			cursorPos:   7,
			wantMinimum: 3,
			wantFirst:   "auto",
		},
		{
			name:        "theme enum partial",
			input:       "/theme d",
			cursorPos:   8,
			wantMinimum: 1,
			wantFirst:   "dark",
		},
		{
			name:        "export format enum",
			input:       "/export x",
			cursorPos:   9,
			wantMinimum: 1,
			wantFirst:   "xlsx",
		},
		{
			name:        "no match",
			input:       "/xyz",
			cursorPos:   4,
			wantMinimum: 0,
		},
		{
			name:        "plain text is not completed",
			input:       "tell me about bonds",
			cursorPos:   19,
			wantMinimum: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completions := completer.Complete(tt.input, tt.cursorPos)
			if len(completions) < tt.wantMinimum {
				t.Errorf("Complete() got %d completions, want at least %d", len(completions), tt.wantMinimum)
			}
			if tt.wantFirst != "" && len(completions) > 0 && completions[0].Value != tt.wantFirst {
				t.Errorf("first completion = %q, want %q", completions[0].Value, tt.wantFirst)
			}
			if tt.wantMinimum == 0 && len(completions) != 0 {
				t.Errorf("expected no completions, got %v", completions)
			}
		})
	}
}

func TestCompleterCursorMidInput(t *testing.T) {
	completer := NewCompleter(NewRegistry())

	// Only the text before the cursor matters.
	completions := completer.Complete("/he trailing garbage", 3)
	if len(completions) == 0 || completions[0].Value != "/health" && completions[0].Value != "/help" {
		t.Errorf("mid-input completion = %v", completions)
	}
}

func TestCompleterSessions(t *testing.T) {
	completer := NewCompleter(NewRegistry())
	completer.SessionsFn = func() []model.SessionMeta {
		return []model.SessionMeta{
			{ID: "sess_aaaa1111", Title: "AAPL deep dive", Preview: "Show me AAPL", UpdatedAt: time.Now()},
			{ID: "sess_bbbb2222", Title: "Bond ladder", Preview: "Build a ladder", UpdatedAt: time.Now()},
		}
	}

	t.Run("all sessions after command", func(t *testing.T) {
		completions := completer.Complete("/resume ", 8)
		if len(completions) != 2 {
			t.Fatalf("got %d completions, want 2", len(completions))
		}
	})

	t.Run("id prefix filter", func(t *testing.T) {
		completions := completer.Complete("/resume sess_aa", 15)
		if len(completions) != 1 || completions[0].Value != "sess_aaaa1111" {
			t.Errorf("completions = %v", completions)
		}
		if !strings.Contains(completions[0].Display, "AAPL deep dive") {
			t.Errorf("display should carry title: %q", completions[0].Display)
		}
	})

	t.Run("title substring match", func(t *testing.T) {
		completions := completer.Complete("/resume bond", 12)
		if len(completions) != 1 || completions[0].Value != "sess_bbbb2222" {
			t.Errorf("completions = %v", completions)
		}
	})

	t.Run("delete uses session completion too", func(t *testing.T) {
		completions := completer.Complete("/delete sess_", 13)
		if len(completions) != 2 {
			t.Errorf("got %d completions, want 2", len(completions))
		}
	})
}

func TestCompleterConfigKeys(t *testing.T) {
	completer := NewCompleter(NewRegistry())
	completer.ConfigFn = func() []string {
		return []string{"ui.theme", "ui.suggestions", "agent.base_url"}
	}

	completions := completer.Complete("/config ui.", 11)
	if len(completions) != 2 {
		t.Fatalf("got %d completions, want 2", len(completions))
	}
	for _, comp := range completions {
		if !strings.HasPrefix(comp.Value, "ui.") {
			t.Errorf("unexpected completion %q", comp.Value)
		}
	}
}

func TestCompleterFiles(t *testing.T) {
	completer := NewCompleter(NewRegistry())
	completer.FilesFn = func(prefix string) []string {
		return []string{"exports/", "exports/q1.xlsx"}
	}

	completions := completer.Complete("/export md exp", 14)
	if len(completions) != 2 {
		t.Fatalf("got %d completions, want 2", len(completions))
	}
	if completions[0].Value != "exports/" {
		t.Errorf("first completion = %q", completions[0].Value)
	}
}

// =============================================================================
// SCORING TESTS
// =============================================================================

func TestCalculateScore(t *testing.T) {
	t.Run("exact match ranks highest", func(t *testing.T) {
		exact := calculateScore("/help", "/help")
		prefix := calculateScore("/health", "/help"[:3])
		if exact <= prefix {
			t.Errorf("exact %d should beat prefix %d", exact, prefix)
		}
	})

	t.Run("shorter completions rank higher", func(t *testing.T) {
		short := calculateScore("/new", "/n")
		long := calculateScore("/newlongcommand", "/n")
		if short <= long {
			t.Errorf("short %d should beat long %d", short, long)
		}
	})
}

func TestSortCompletions(t *testing.T) {
	completions := []Completion{
		{Value: "b", Score: 10},
		{Value: "a", Score: 10},
		{Value: "c", Score: 50},
	}
	sortCompletions(completions)

	want := []string{"c", "a", "b"}
	for i, w := range want {
		if completions[i].Value != w {
			t.Errorf("completions[%d] = %q, want %q", i, completions[i].Value, w)
		}
	}
}

// =============================================================================
// COMPLETION STATE TESTS
// =============================================================================

func TestCompletionState(t *testing.T) {
	cs := NewCompletionState()
	if cs.Visible {
		t.Error("new state should not be visible")
	}

	completions := []Completion{
		{Value: "/health"},
		{Value: "/help"},
	}
	cs.Update("/he", completions)

	if !cs.Visible {
		t.Error("state should be visible after update")
	}
	if cs.Selected != 0 {
		t.Errorf("Selected = %d, want 0 (auto-select first)", cs.Selected)
	}
	if cs.Accept() != "/health" {
		t.Errorf("Accept() = %q", cs.Accept())
	}

	cs.Next()
	if cs.Accept() != "/help" {
		t.Errorf("after Next, Accept() = %q", cs.Accept())
	}

	cs.Next() // wraps
	if cs.Accept() != "/health" {
		t.Errorf("after wrap, Accept() = %q", cs.Accept())
	}

	cs.Prev() // wraps backward
	if cs.Accept() != "/help" {
		t.Errorf("after Prev wrap, Accept() = %q", cs.Accept())
	}

	if sel := cs.GetSelected(); sel == nil || sel.Value != "/help" {
		t.Errorf("GetSelected() = %v", sel)
	}

	cs.Clear()
	if cs.Visible || cs.Selected != -1 || len(cs.Completions) != 0 {
		t.Errorf("Clear left state: %+v", cs)
	}
	if cs.GetSelected() != nil {
		t.Error("GetSelected after Clear should be nil")
	}
}
