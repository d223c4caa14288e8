// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

func TestNewLoginForm(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)

	if len(form.inputs) != 2 {
		t.Errorf("Expected 2 fields without TOTP, got %d", len(form.inputs))
	}
	if form.focusIndex != 0 {
		t.Errorf("Expected focus on username field, got index %d", form.focusIndex)
	}
	if !form.inputs[0].Focused() {
		t.Error("Username field should start focused")
	}
	if form.inputs[1].Focused() {
		t.Error("Password field should start blurred")
	}
}

func TestNewLoginFormWithTOTP(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), true)

	if len(form.inputs) != 3 {
		t.Errorf("Expected 3 fields with TOTP, got %d", len(form.inputs))
	}
	if form.labels[2] != "Authenticator code" {
		t.Errorf("Expected TOTP label, got '%s'", form.labels[2])
	}
}

func TestLoginFormFocusCycle(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)

	form.Update(tea.KeyMsg{Type: tea.KeyTab})
	if form.focusIndex != 1 {
		t.Errorf("Tab should move focus to password, got index %d", form.focusIndex)
	}
	if !form.inputs[1].Focused() || form.inputs[0].Focused() {
		t.Error("Focus flags should follow focusIndex")
	}

	// Wraps around from the last field.
	form.Update(tea.KeyMsg{Type: tea.KeyTab})
	if form.focusIndex != 0 {
		t.Errorf("Tab from last field should wrap to username, got index %d", form.focusIndex)
	}

	// Shift+tab wraps backwards.
	form.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if form.focusIndex != 1 {
		t.Errorf("Shift+tab from first field should wrap to last, got index %d", form.focusIndex)
	}
}

func TestLoginFormEnterAdvances(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)

	cmd := form.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if form.focusIndex != 1 {
		t.Errorf("Enter on username should advance to password, got index %d", form.focusIndex)
	}
	// Advancing returns a blink command, never a submit.
	if cmd == nil {
		t.Error("Expected blink command when advancing fields")
	}
}

func TestLoginFormSubmitEmpty(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)

	// Move to the last field and confirm with everything blank.
	form.Update(tea.KeyMsg{Type: tea.KeyTab})
	cmd := form.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if cmd != nil {
		t.Error("Empty submit should not produce a command")
	}
	if form.errMsg == "" {
		t.Error("Empty submit should set an inline error")
	}
	if form.busy {
		t.Error("Failed validation should not lock the form")
	}
}

func TestLoginFormSubmit(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)
	form.inputs[0].SetValue("  jesse  ")
	form.inputs[1].SetValue("hunter2")

	form.Update(tea.KeyMsg{Type: tea.KeyTab})
	cmd := form.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Expected a submit command")
	}

	msg, ok := cmd().(LoginSubmitMsg)
	if !ok {
		t.Fatalf("Expected LoginSubmitMsg, got %T", cmd())
	}
	if msg.Username != "jesse" {
		t.Errorf("Username should be trimmed, got '%s'", msg.Username)
	}
	if msg.Password != "hunter2" {
		t.Errorf("Expected password 'hunter2', got '%s'", msg.Password)
	}
	if msg.TOTPCode != "" {
		t.Errorf("Expected empty TOTP code, got '%s'", msg.TOTPCode)
	}

	// Form locks while the attempt is in flight.
	if !form.busy {
		t.Error("Form should be busy after submit")
	}
	if again := form.Update(tea.KeyMsg{Type: tea.KeyEnter}); again != nil {
		t.Error("Busy form should swallow enter")
	}
}

func TestLoginFormSubmitRequiresTOTP(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), true)
	form.inputs[0].SetValue("jesse")
	form.inputs[1].SetValue("hunter2")

	form.focusIndex = 2
	cmd := form.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("Submit without TOTP code should not produce a command")
	}
	if form.errMsg == "" {
		t.Error("Missing TOTP code should set an inline error")
	}

	form.inputs[2].SetValue("123456")
	cmd = form.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Expected a submit command with all fields filled")
	}
	msg := cmd().(LoginSubmitMsg)
	if msg.TOTPCode != "123456" {
		t.Errorf("Expected TOTP code '123456', got '%s'", msg.TOTPCode)
	}
}

func TestLoginFormSetError(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)
	form.busy = true

	form.SetError("invalid credentials")

	if form.errMsg != "invalid credentials" {
		t.Errorf("Expected error message set, got '%s'", form.errMsg)
	}
	if form.busy {
		t.Error("SetError should unlock the form for another attempt")
	}
}

func TestLoginFormTypingClearsError(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)
	form.SetError("invalid credentials")

	form.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})

	if form.errMsg != "" {
		t.Error("Typing should clear the previous error")
	}
	if form.inputs[0].Value() != "j" {
		t.Errorf("Keystroke should reach the focused field, got '%s'", form.inputs[0].Value())
	}
}

func TestLoginFormReset(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)
	form.inputs[0].SetValue("jesse")
	form.inputs[1].SetValue("hunter2")
	form.focusIndex = 1
	form.errMsg = "stale"
	form.busy = true

	form.Reset()

	if form.inputs[0].Value() != "" || form.inputs[1].Value() != "" {
		t.Error("Reset should clear all field values")
	}
	if form.focusIndex != 0 {
		t.Errorf("Reset should focus the username field, got index %d", form.focusIndex)
	}
	if !form.inputs[0].Focused() {
		t.Error("Username field should be focused after reset")
	}
	if form.errMsg != "" || form.busy {
		t.Error("Reset should clear error and busy state")
	}
}

func TestLoginFormView(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)
	form.SetSize(100, 40)

	view := form.View()
	if view == "" {
		t.Fatal("View should not be empty")
	}
	if !strings.Contains(view, "Username") {
		t.Error("View should show the username label")
	}
	if !strings.Contains(view, "Password") {
		t.Error("View should show the password label")
	}
}

func TestLoginFormViewShowsError(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)
	form.SetError("invalid credentials")

	if !strings.Contains(form.View(), "invalid credentials") {
		t.Error("View should show the inline error")
	}
}

func TestLoginFormViewMasksPassword(t *testing.T) {
	form := NewLoginForm(styles.NewTheme("dark"), false)
	form.inputs[1].SetValue("hunter2")

	view := form.View()
	if strings.Contains(view, "hunter2") {
		t.Error("Password value should never appear in the view")
	}
}
