// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/advisor-tui/internal/agent"
	"github.com/jeranaias/advisor-tui/internal/auth"
	"github.com/jeranaias/advisor-tui/internal/commands"
	"github.com/jeranaias/advisor-tui/internal/config"
	"github.com/jeranaias/advisor-tui/internal/logging"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/prefs"
	"github.com/jeranaias/advisor-tui/internal/scanner"
	"github.com/jeranaias/advisor-tui/internal/selection"
	"github.com/jeranaias/advisor-tui/internal/storage"
	"github.com/jeranaias/advisor-tui/internal/suggest"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
	"github.com/jeranaias/advisor-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	// StateReady - composer focused, accepting input
	StateReady State = iota

	// StateStreaming - a reply is streaming in
	StateStreaming

	// StateError - a blocking error banner is shown
	StateError

	// StateLogin - the login form owns the screen
	StateLogin
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	case StateLogin:
		return "login"
	default:
		return "unknown"
	}
}

// Layout constants. The viewport gets whatever the fixed chrome leaves
// over; the selection bar and chip row always occupy their line (rendered
// empty when inactive) so the layout does not jump as they appear.
const (
	headerHeight       = 2
	selectionBarHeight = 1
	chipRowHeight      = 1
	inputAreaHeight    = 4
	statusBarHeight    = 2
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options carries the dependencies for a chat model. Config, Theme and
// Session are expected in practice; the rest degrade gracefully when nil
// (no persistence, no auth gate, no saved chart preferences).
type Options struct {
	Config  *config.Config
	Theme   *styles.Theme
	Session *model.Session
	Agent   *agent.Client
	Store   *storage.SessionStore
	Auth    *auth.Manager
	Prefs   *prefs.Store
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Core state
	state  State
	theme  *styles.Theme
	cfg    *config.Config
	width  int
	height int
	log    *zap.Logger

	// Conversation
	session *model.Session

	// Streaming
	streamingMsgID    string
	streamingStats    *model.Statistics
	streamTokens      int
	stream            *runStream
	streamingBuffer   *StreamingBuffer
	viewportOptimizer *ViewportOptimizer

	// Backend clients
	agent   *agent.Client
	store   *storage.SessionStore
	authMgr *auth.Manager

	// Chart subsystem
	bus        *selection.Broadcast
	selStore   *selection.Store
	prefStore  *prefs.Store
	mirror     *transcriptMirror
	scan       *scanner.Scanner
	hook       *notifyHook
	focusKey   *scanner.NodeKey
	showSource bool

	// Suggestion chips
	suggester *suggest.Engine
	chips     []suggest.Chip

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	login    *components.LoginForm
	keyMap   KeyMap

	// Error banner
	lastError *ErrorMsg

	// Thinking indicator (stream started, no tokens yet)
	isThinking    bool
	thinkingStart time.Time

	// Slash commands and completion
	registry        *commands.Registry
	parser          *commands.Parser
	completer       *commands.Completer
	completionState *commands.CompletionState
	completionPopup *components.CompletionPopup
	cmdContext      *commands.Context

	// Status bar
	backendOK   bool
	backendInfo string
	statusMsg   string

	// Help overlay
	showHelp bool

	// Toast notifications
	toastManager *components.ToastManager
}

// New creates a chat model wired to the given dependencies.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("")
	}

	sess := opts.Session
	if sess == nil {
		sess = model.NewSession()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about your portfolio, spending, or goals..."
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}

	// Selection plumbing: one bus for the view; every mounted widget gets
	// its own store on it (see newMountFunc), and this store tracks the
	// current selection for the selection bar and slash commands.
	bus := selection.NewBroadcast()
	selStore := selection.NewStore(bus)

	debounce := 100 * time.Millisecond
	maxWidgets := scanner.DefaultMaxWidgets
	if opts.Config != nil {
		if opts.Config.Charts.ScanDebounceMs > 0 {
			debounce = time.Duration(opts.Config.Charts.ScanDebounceMs) * time.Millisecond
		}
		if opts.Config.Charts.MaxWidgets > 0 {
			maxWidgets = opts.Config.Charts.MaxWidgets
		}
	}

	var suggester *suggest.Engine
	if opts.Config == nil || opts.Config.UI.Suggestions {
		if eng, err := suggest.NewEngine(selStore); err == nil {
			suggester = eng
		}
	}

	registry := commands.NewRegistry()
	completer := commands.NewCompleter(registry)
	if opts.Store != nil {
		store := opts.Store
		completer.SessionsFn = func() []model.SessionMeta {
			metas, err := store.List()
			if err != nil {
				return nil
			}
			return metas
		}
	}
	completer.ConfigFn = config.Keys

	cmdCtx := commands.NewContext(opts.Config, opts.Store, sess).
		WithAgent(opts.Agent).
		WithAuth(opts.Auth).
		WithSelection(selStore)

	state := StateReady
	if opts.Config != nil && opts.Config.Auth.Required && opts.Auth != nil && !opts.Auth.IsAuthenticated() {
		state = StateLogin
	}

	showTOTP := opts.Auth != nil && opts.Auth.TOTPEnrolled()

	m := Model{
		state:             state,
		theme:             theme,
		cfg:               opts.Config,
		log:               logging.Named("chat"),
		session:           sess,
		streamingBuffer:   NewStreamingBuffer(),
		viewportOptimizer: NewViewportOptimizer(),
		agent:             opts.Agent,
		store:             opts.Store,
		authMgr:           opts.Auth,
		bus:               bus,
		selStore:          selStore,
		prefStore:         opts.Prefs,
		mirror:            newTranscriptMirror(),
		hook:              newNotifyHook(),
		suggester:         suggester,
		viewport:          vp,
		input:             ti,
		spinner:           sp,
		login:             components.NewLoginForm(theme, showTOTP),
		keyMap:            DefaultKeyMap(),
		registry:          registry,
		parser:            commands.NewParser(registry),
		completer:         completer,
		completionState:   commands.NewCompletionState(),
		completionPopup:   components.NewCompletionPopup(theme),
		cmdContext:        cmdCtx,
		toastManager:      components.NewToastManager(),
	}

	m.scan = scanner.New(
		scanner.Config{Debounce: debounce, MaxWidgets: maxWidgets},
		m.mirror,
		m.newMountFunc(),
		m.hook.Call,
	)

	// A restored session may already contain chart payloads; prime the
	// mirror and kick off the first scan so they mount on startup.
	if !sess.IsEmpty() {
		m.mirror.Sync(sess)
		m.scan.OnMessage()
	}

	m.refreshChips()
	m.updateViewport()

	return m
}

// Init returns the initial commands for the chat view.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.probeHealth(),
	)
}

// probeHealth checks backend reachability off the UI loop. The result
// feeds the status bar through the same message the /health command uses.
func (m Model) probeHealth() tea.Cmd {
	client := m.agent
	return func() tea.Msg {
		if client == nil || !client.IsConfigured() {
			return commands.HealthResultMsg{Error: agent.ErrNotConfigured}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		status, err := client.Health(ctx)
		return commands.HealthResultMsg{Status: status, Error: err}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case WidgetsPendingMsg:
		atBottom := m.viewport.AtBottom()
		if n := m.drainMounts(); n > 0 && atBottom {
			m.viewport.GotoBottom()
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case ErrorMsg:
		m.lastError = &msg
		m.state = StateError
		return m, nil

	case ErrorDismissMsg:
		return m.dismissError()

	case components.LoginSubmitMsg:
		return m.handleLoginSubmit(msg)

	case LoginResultMsg:
		return m.handleLoginResult(msg)

	case spinner.TickMsg:
		if m.isThinking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case components.ToastTickMsg:
		m.toastManager.TickToasts()
		if m.toastManager.HasToasts() {
			return m, components.ToastTickCmd()
		}
		return m, nil

	case components.ToastDismissMsg:
		m.toastManager.RemoveToast(msg.ID)
		return m, nil

	// Slash command results. The handlers run off the UI loop and report
	// back through these messages.
	case commands.ShowHelpMsg:
		return m.handleShowHelp(msg)
	case commands.NewSessionMsg:
		return m.handleNewSession()
	case commands.SaveSessionMsg:
		return m.handleSaveFallback()
	case commands.SaveCompleteMsg:
		return m.handleSaveComplete(msg)
	case commands.SessionListMsg:
		return m.handleSessionList(msg)
	case commands.SessionLoadedMsg:
		return m.handleSessionLoaded(msg)
	case commands.SessionDeletedMsg:
		return m.handleSessionDeleted(msg)
	case commands.ClearTranscriptMsg:
		return m.clearTranscript()
	case commands.ExportSessionMsg:
		return m.handleExportSession(msg)
	case commands.ExportCompleteMsg:
		return m.handleExportComplete(msg)
	case commands.ListChartsMsg:
		return m.handleListCharts()
	case commands.SelectionActionMsg:
		return m.handleSelectionAction(msg)
	case commands.ThemeChangedMsg:
		return m.handleThemeChanged(msg)
	case commands.ShowConfigMsg:
		return m.handleShowConfig(msg)
	case commands.HealthResultMsg:
		return m.handleHealthResult(msg)
	case commands.ShowLoginMsg:
		return m.handleShowLogin()
	case commands.LogoutMsg:
		return m.handleLogout(msg)
	case commands.SystemMessageMsg:
		m.addSystemMessage(msg.Content)
		return m, nil
	case commands.ErrorMsg:
		return m.handleCommandError(msg)

	default:
		return m.handlePassthrough(msg)
	}
}

// handlePassthrough routes messages no handler claimed (cursor blinks and
// the like) to the component that currently owns the keyboard.
func (m Model) handlePassthrough(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == StateLogin {
		if m.login != nil {
			return m, m.login.Update(msg)
		}
		return m, nil
	}

	var cmds []tea.Cmd
	if m.state == StateReady && m.focusKey == nil {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE
// =============================================================================

// handleResize recalculates the layout for a new terminal size.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	reserved := headerHeight + selectionBarHeight + chipRowHeight + inputAreaHeight + statusBarHeight
	viewportHeight := m.height - reserved
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = viewportHeight

	inputWidth := m.width - 6 - len(m.input.Prompt)
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	if m.theme != nil {
		m.theme.SetSize(m.width, m.height)
	}
	if m.login != nil {
		m.login.SetSize(m.width, m.height)
	}
	if m.completionPopup != nil {
		m.completionPopup.SetWidth(inputWidth + 4)
	}

	// Widgets rewrap their tables and bars to the new content width, then
	// a rerender scan picks up anything the width change uncovered.
	m.propagateWidth()
	if m.scan != nil {
		m.scan.OnRerender()
	}

	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKey processes keyboard input, layered by who owns the keyboard:
// emergency quit, login form, help overlay, global chords, error banner,
// widget traversal, the focused widget, streaming, and finally the
// composer.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		return m, tea.Quit
	}

	if m.state == StateLogin {
		return m.handleLoginKey(msg)
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q", "enter":
			m.showHelp = false
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		if m.state == StateStreaming {
			return m.cancelStream()
		}
		return m, tea.Quit

	case "ctrl+l":
		if m.state == StateReady {
			return m.clearTranscript()
		}
		return m, nil

	case "ctrl+y":
		return m.copyLastReply()

	case "ctrl+o":
		m.showSource = !m.showSource
		m.viewportOptimizer.ForceUpdate()
		m.updateViewport()
		return m, nil

	case "ctrl+a":
		if m.state == StateReady && m.selStore != nil && m.selStore.Current() != nil {
			return m.askAboutSelection()
		}
		return m, nil

	case "?":
		if m.state == StateReady && m.focusKey == nil && m.input.Value() == "" {
			m.showHelp = true
			return m, nil
		}
		// Otherwise "?" is just a character being typed.
	}

	if m.state == StateError {
		switch msg.String() {
		case "esc", "enter", " ":
			return m.dismissError()
		}
		return m, nil
	}

	if m.state == StateReady {
		switch {
		case key.Matches(msg, m.keyMap.NextWidget):
			if m.focusKey == nil && m.isCompleting() {
				return m.handleTabCompletion(false)
			}
			m.cycleWidgetFocus(1)
			return m, nil

		case key.Matches(msg, m.keyMap.PrevWidget):
			if m.focusKey == nil && m.isCompleting() {
				return m.handleTabCompletion(true)
			}
			m.cycleWidgetFocus(-1)
			return m, nil
		}
	}

	if m.state == StateReady && m.focusKey != nil {
		return m.handleWidgetKey(msg)
	}

	if m.state == StateStreaming {
		switch msg.String() {
		case "esc":
			return m.cancelStream()
		case "up", "down", "pgup", "pgdown", "home", "end", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.handleComposerKey(msg)
}

// handleWidgetKey forwards keys to the focused chart widget. Esc releases
// focus unless the widget's table search is active, in which case the
// widget consumes it to close the search first.
func (m Model) handleWidgetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w := m.focusedWidget()
	if w == nil {
		m.blurWidget()
		return m, textinput.Blink
	}

	if msg.String() == "esc" && !w.SearchActive() {
		m.blurWidget()
		return m, textinput.Blink
	}

	cmd := w.Update(msg)
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	m.refreshChips()
	return m, cmd
}

// handleComposerKey processes keys while the composer owns the keyboard.
func (m Model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Digit shortcuts send a suggestion chip when the composer is empty.
	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' && m.input.Value() == "" {
		idx := int(s[0] - '1')
		if idx < len(m.chips) {
			return m.sendChip(idx)
		}
	}

	switch msg.String() {
	case "enter":
		if m.completionState.Visible {
			return m.applySelectedCompletion()
		}
		return m.submitInput()

	case "esc":
		if m.completionState.Visible {
			m.clearCompletions()
		}
		return m, nil

	case "up":
		if m.completionState.Visible {
			m.completionState.Prev()
			m.completionPopup.SetSelected(m.completionState.Selected)
			return m, nil
		}
		if m.input.Value() == "" {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case "down":
		if m.completionState.Visible {
			m.completionState.Next()
			m.completionPopup.SetSelected(m.completionState.Selected)
			return m, nil
		}
		if m.input.Value() == "" {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refreshCompletions()
	return m, cmd
}

// =============================================================================
// STREAMING
// =============================================================================

// handleStreamStart arms the spinner, the flush ticker, and the first
// channel read for the stream sendMessage just created.
func (m Model) handleStreamStart(msg StreamStartMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID || m.stream == nil {
		return m, nil
	}
	return m, tea.Batch(
		m.spinner.Tick,
		streamTickCmd(),
		m.stream.next(),
	)
}

// handleStreamToken buffers one token and re-arms the channel read. Tokens
// from a superseded stream are dropped without re-arming: their pump was
// cancelled and must not race the current one.
func (m Model) handleStreamToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID || m.stream == nil {
		return m, nil
	}

	if msg.IsFirst {
		if m.streamingStats != nil {
			m.streamingStats.RecordFirstToken()
		}
		m.isThinking = false
	}

	m.streamingBuffer.Write(msg.Token)
	m.streamTokens++

	return m, m.stream.next()
}

// handleStreamTick flushes buffered tokens into the transcript at the
// display frame rate. The optimizer skips the viewport rebuild when the
// rendered content has not changed.
func (m Model) handleStreamTick(msg StreamTickMsg) (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}

	if content, ok := m.streamingBuffer.Flush(); ok {
		m.session.AppendToLast(content)
		rendered := m.renderMessages()
		if m.viewportOptimizer.ShouldUpdate(rendered) {
			m.viewport.SetContent(rendered)
			m.viewport.GotoBottom()
			m.viewportOptimizer.MarkClean()
		}
	}

	return m, streamTickCmd()
}

// handleStreamComplete finalizes the reply: drains the buffer, records the
// statistics, hands the finished message to the chart scanner, and saves
// the session when auto-save is on.
func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	if content, ok := m.streamingBuffer.ForceFlush(); ok {
		m.session.AppendToLast(content)
	}

	if m.stream != nil {
		m.stream.stop()
		m.stream = nil
	}

	stats := msg.Stats
	if stats == nil {
		stats = m.streamingStats
	}
	if stats != nil {
		stats.Finalize(m.streamTokens)
	}
	m.session.FinalizeLast(stats)

	m.state = StateReady
	m.streamingMsgID = ""
	m.streamingStats = nil
	m.isThinking = false
	m.input.Focus()

	m.syncAndScan()
	m.refreshChips()

	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	m.viewport.GotoBottom()

	cmds := []tea.Cmd{textinput.Blink}
	if m.cfg != nil && m.cfg.Sessions.AutoSave && m.store != nil && !m.session.IsEmpty() {
		store, sess := m.store, m.session
		cmds = append(cmds, func() tea.Msg {
			id, err := store.Save(sess)
			return commands.SaveCompleteMsg{ID: id, Error: err}
		})
	}

	return m, tea.Batch(cmds...)
}

// handleStreamError keeps whatever partial reply arrived, finalizes it,
// and surfaces the failure as a toast rather than a blocking banner.
func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID || m.stream == nil {
		return m, nil
	}

	m.stream.stop()
	m.stream = nil

	if content, ok := m.streamingBuffer.ForceFlush(); ok {
		m.session.AppendToLast(content)
	}

	stats := m.streamingStats
	if stats != nil {
		stats.Finalize(m.streamTokens)
	}
	m.session.FinalizeLast(stats)

	m.state = StateReady
	m.streamingMsgID = ""
	m.streamingStats = nil
	m.isThinking = false
	m.input.Focus()

	m.syncAndScan()
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()

	m.log.Warn("stream failed", zap.Error(msg.Error))
	m.toastManager.AddError(cleanErrorText(msg.Error))

	return m, tea.Batch(textinput.Blink, components.ToastTickCmd())
}

// cancelStream aborts the in-flight run and keeps the partial reply with a
// marker. Late messages from the cancelled pump are dropped by the
// message-ID gate.
func (m Model) cancelStream() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}

	if m.stream != nil {
		m.stream.stop()
		m.stream = nil
	}

	if content, ok := m.streamingBuffer.ForceFlush(); ok {
		m.session.AppendToLast(content)
	}
	m.session.AppendToLast(" [incomplete - cancelled]")

	stats := m.streamingStats
	if stats != nil {
		stats.Finalize(m.streamTokens)
	}
	m.session.FinalizeLast(stats)

	m.state = StateReady
	m.streamingMsgID = ""
	m.streamingStats = nil
	m.isThinking = false
	m.input.Focus()

	m.syncAndScan()
	m.refreshChips()
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	m.viewport.GotoBottom()

	return m, textinput.Blink
}

// =============================================================================
// TRANSCRIPT ACTIONS
// =============================================================================

// dismissError clears the error banner and returns focus to the composer.
func (m Model) dismissError() (tea.Model, tea.Cmd) {
	m.lastError = nil
	if m.state == StateError {
		m.state = StateReady
	}
	m.input.Focus()
	return m, textinput.Blink
}

// clearTranscript wipes the conversation and tears down every mounted
// widget. The session itself (and its thread ID) survives.
func (m Model) clearTranscript() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, nil
	}

	m.session.ClearHistory()
	m.clearWidgetFocus()
	m.input.Focus()
	if m.selStore != nil {
		m.selStore.Clear()
	}
	if m.scan != nil {
		m.scan.Reset()
	}
	m.mirror.Sync(m.session)
	m.refreshChips()
	m.viewportOptimizer.Reset()
	m.updateViewport()
	m.statusMsg = "Transcript cleared"

	return m, textinput.Blink
}

// copyLastReply copies the most recent advisor reply to the clipboard.
func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	last := m.session.GetLastAssistantMessage()
	if last == nil || last.Content == "" {
		m.toastManager.AddStatus("Nothing to copy yet")
		return m, components.ToastTickCmd()
	}

	if err := copyToClipboard(last.Content); err != nil {
		m.toastManager.AddWarning("Clipboard unavailable: " + err.Error())
	} else {
		m.toastManager.AddSuccess("Copied last reply")
	}
	return m, components.ToastTickCmd()
}

// addSystemMessage appends an informational message to the transcript and
// scrolls it into view. System messages never reach the backend.
func (m *Model) addSystemMessage(content string) {
	m.session.AddSystemMessage(content)
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	m.viewport.GotoBottom()
}

// resetToSession swaps the active session, tearing down the chart state of
// the old one and scanning the new transcript for payloads.
func (m *Model) resetToSession(sess *model.Session) {
	m.clearWidgetFocus()
	m.input.Focus()
	if m.selStore != nil {
		m.selStore.Clear()
	}
	if m.scan != nil {
		m.scan.Reset()
	}

	m.session = sess
	if m.cmdContext != nil {
		m.cmdContext.Session = sess
	}

	m.mirror.Sync(sess)
	if m.scan != nil && !sess.IsEmpty() {
		m.scan.OnMessage()
	}

	m.refreshChips()
	m.viewportOptimizer.Reset()
	m.updateViewport()
	m.viewport.GotoBottom()
}

// refreshChips recomputes the suggestion chips from the last finished
// reply and the active chart selection.
func (m *Model) refreshChips() {
	if m.suggester == nil {
		m.chips = nil
		return
	}
	lastReply := ""
	if last := m.session.GetLastAssistantMessage(); last != nil && !last.IsStreaming {
		lastReply = last.Content
	}
	m.chips = m.suggester.Suggest(lastReply)
}

// =============================================================================
// LOGIN
// =============================================================================

// handleLoginKey routes keys to the login form while it owns the screen.
func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.authMgr == nil || m.login == nil {
		m.state = StateReady
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, m.login.Update(msg)
}

// handleLoginSubmit runs the credential check off the UI loop.
func (m Model) handleLoginSubmit(msg components.LoginSubmitMsg) (tea.Model, tea.Cmd) {
	if m.authMgr == nil {
		m.state = StateReady
		m.input.Focus()
		return m, textinput.Blink
	}

	mgr := m.authMgr
	creds := auth.Credentials{
		Username: msg.Username,
		Password: msg.Password,
		TOTPCode: msg.TOTPCode,
	}
	return m, func() tea.Msg {
		_, err := mgr.Login(creds)
		return LoginResultMsg{Error: err}
	}
}

// handleLoginResult either admits the user or shows the failure inline on
// the form.
func (m Model) handleLoginResult(msg LoginResultMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.log.Warn("login failed", zap.Error(msg.Error))
		if m.login != nil {
			m.login.SetError(msg.Error.Error())
		}
		return m, nil
	}

	m.state = StateReady
	if m.login != nil {
		m.login.Reset()
	}
	if m.authMgr != nil {
		m.statusMsg = "Logged in as " + m.authMgr.Username()
	}
	m.input.Focus()
	return m, textinput.Blink
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Session returns the active session.
func (m Model) Session() *model.Session {
	return m.session
}

// Scanner returns the chart scanner, so the caller can drain its teardown
// on shutdown.
func (m Model) Scanner() *scanner.Scanner {
	return m.scan
}

// SelectionStore returns the selection store shared by mounted widgets.
func (m Model) SelectionStore() *selection.Store {
	return m.selStore
}

// State returns the current view state.
func (m Model) State() State {
	return m.state
}

// SetNotify wires the scanner's mount notifications to the running
// program. Call it after tea.NewProgram with a closure that sends
// WidgetsPendingMsg.
func (m Model) SetNotify(fn func()) {
	m.hook.Set(fn)
}

// IsStreaming reports whether a reply is currently streaming in.
func (m Model) IsStreaming() bool {
	return m.state == StateStreaming
}
