// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// loginFieldWidth is the visible width of the credential inputs and the
// wrap width for inline error text.
const loginFieldWidth = 36

// LoginForm collects credentials for the agent backend. It owns the whole
// screen until authentication succeeds: the chat model routes every key
// here while in the login state and renders View directly.
type LoginForm struct {
	theme  *styles.Theme
	width  int
	height int

	inputs     []textinput.Model
	labels     []string
	focusIndex int
	showTOTP   bool

	errMsg string
	busy   bool
}

// NewLoginForm creates the form with the username field focused. When
// showTOTP is set a third field collects the one-time authenticator code.
func NewLoginForm(theme *styles.Theme, showTOTP bool) *LoginForm {
	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = "> "
	username.CharLimit = 64
	username.Width = loginFieldWidth - 4
	username.PromptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	username.TextStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	username.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "> "
	password.CharLimit = 128
	password.Width = loginFieldWidth - 4
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.PromptStyle = username.PromptStyle
	password.TextStyle = username.TextStyle
	password.PlaceholderStyle = username.PlaceholderStyle

	f := &LoginForm{
		theme:    theme,
		inputs:   []textinput.Model{username, password},
		labels:   []string{"Username", "Password"},
		showTOTP: showTOTP,
	}

	if showTOTP {
		code := textinput.New()
		code.Placeholder = "123456"
		code.Prompt = "> "
		code.CharLimit = 6
		code.Width = loginFieldWidth - 4
		code.PromptStyle = username.PromptStyle
		code.TextStyle = username.TextStyle
		code.PlaceholderStyle = username.PlaceholderStyle
		f.inputs = append(f.inputs, code)
		f.labels = append(f.labels, "Authenticator code")
	}

	return f
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles key input while the form owns the screen. The returned
// command emits LoginSubmitMsg once the last field is confirmed; the
// credential check itself runs elsewhere.
func (f *LoginForm) Update(msg tea.Msg) tea.Cmd {
	keyMsg, isKey := msg.(tea.KeyMsg)
	if !isKey {
		// Cursor blink and friends go to the focused field.
		return f.updateFocused(msg)
	}

	switch keyMsg.String() {
	case "tab", "down":
		return f.cycleFocus(1)

	case "shift+tab", "up":
		return f.cycleFocus(-1)

	case "esc":
		f.errMsg = ""
		return nil

	case "enter":
		if f.busy {
			return nil
		}
		if f.focusIndex < len(f.inputs)-1 {
			return f.cycleFocus(1)
		}
		return f.submit()

	default:
		// Editing any field retires the previous failure message.
		f.errMsg = ""
		return f.updateFocused(msg)
	}
}

// updateFocused routes a message to whichever field holds focus.
func (f *LoginForm) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focusIndex], cmd = f.inputs[f.focusIndex].Update(msg)
	return cmd
}

// cycleFocus moves focus by delta with wraparound.
func (f *LoginForm) cycleFocus(delta int) tea.Cmd {
	f.inputs[f.focusIndex].Blur()
	f.focusIndex = (f.focusIndex + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focusIndex].Focus()
	return textinput.Blink
}

// submit validates the fields and returns the command that hands the
// credentials to the model. The form locks until SetError or Reset.
func (f *LoginForm) submit() tea.Cmd {
	username := strings.TrimSpace(f.inputs[0].Value())
	password := f.inputs[1].Value()
	if username == "" || password == "" {
		f.errMsg = "Username and password are required"
		return nil
	}

	var code string
	if f.showTOTP {
		code = strings.TrimSpace(f.inputs[2].Value())
		if code == "" {
			f.errMsg = "Authenticator code is required"
			return nil
		}
	}

	f.errMsg = ""
	f.busy = true
	return func() tea.Msg {
		return LoginSubmitMsg{
			Username: username,
			Password: password,
			TOTPCode: code,
		}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the login box centered on the stored screen dimensions.
func (f *LoginForm) View() string {
	var lines []string

	title := f.theme.LoginTitle.Render("advisor")
	lines = append(lines, lipgloss.PlaceHorizontal(loginFieldWidth, lipgloss.Center, title))

	subtitle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true).
		Render("Sign in to your advisor")
	lines = append(lines, lipgloss.PlaceHorizontal(loginFieldWidth, lipgloss.Center, subtitle))
	lines = append(lines, "")

	for i := range f.inputs {
		lines = append(lines, f.theme.LoginLabel.Render(f.labels[i]))
		lines = append(lines, f.inputs[i].View())
	}

	lines = append(lines, "")
	switch {
	case f.busy:
		lines = append(lines, lipgloss.NewStyle().
			Foreground(styles.Amber).
			Render("Signing in..."))
	case f.errMsg != "":
		lines = append(lines, f.theme.LoginError.
			Width(loginFieldWidth).
			Render(f.errMsg))
	default:
		lines = append(lines, lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render("Tab next field | Enter sign in"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	box := f.theme.LoginBox.Render(content)

	if f.width <= 0 || f.height <= 0 {
		return box
	}
	return lipgloss.Place(
		f.width, f.height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(styles.SurfaceDim),
	)
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// SetSize stores the screen dimensions used to center the form.
func (f *LoginForm) SetSize(width, height int) {
	f.width = width
	f.height = height
}

// SetError shows a failure inline and unlocks the form for another attempt.
func (f *LoginForm) SetError(msg string) {
	f.errMsg = msg
	f.busy = false
}

// Reset clears every field and returns focus to the username input.
func (f *LoginForm) Reset() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
		f.inputs[i].Blur()
	}
	f.focusIndex = 0
	f.inputs[0].Focus()
	f.errMsg = ""
	f.busy = false
}

// =============================================================================
// MESSAGES
// =============================================================================

// LoginSubmitMsg carries the entered credentials out of the form. The chat
// model picks it up and runs the authentication round trip off the UI loop.
type LoginSubmitMsg struct {
	Username string
	Password string
	TOTPCode string
}
