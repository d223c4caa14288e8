// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/util"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// Callbacks for dynamic completion, set by the application.
	SessionsFn func() []model.SessionMeta   // Returns saved sessions
	ConfigFn   func() []string              // Returns config keys
	FilesFn    func(prefix string) []string // Returns matching paths
}

// NewCompleter creates a completer backed by the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{
		registry: registry,
	}
}

// GetCommand returns a command by name from the completer's registry.
func (c *Completer) GetCommand(name string) *Command {
	if c.registry == nil {
		return nil
	}
	return c.registry.Get(name)
}

// Complete returns completions for the given input at the cursor position.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	if cursorPos < len(input) {
		input = input[:cursorPos]
	}

	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return nil
	}

	parts := splitCommandLine(trimmed)
	if len(parts) == 0 {
		return c.completeCommands("")
	}

	// Still typing the command name?
	if len(parts) == 1 && !strings.HasSuffix(input, " ") {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}

	// Determine which argument we're completing.
	argIndex := len(parts) - 2
	if strings.HasSuffix(input, " ") {
		argIndex++
	}

	partial := ""
	if !strings.HasSuffix(input, " ") && len(parts) > 1 {
		partial = parts[len(parts)-1]
	}

	return c.completeArg(cmd, argIndex, partial)
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

// completeCommands returns completions for command names.
func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion

	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}

		if strings.HasPrefix(strings.ToLower(cmd.Name), partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}

		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(strings.ToLower(alias), partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					// Aliases rank below their canonical command.
					Score: calculateScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

// completeArg returns completions for a command argument.
func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	arg := cmd.Args[argIndex]

	switch arg.Type {
	case ArgTypeSession:
		return c.completeSessions(partial)
	case ArgTypeFile:
		return c.completeFiles(partial)
	case ArgTypeEnum:
		return c.completeFromList(arg.Values, partial)
	case ArgTypeConfig:
		return c.completeConfig(partial)
	case ArgTypeString:
		if arg.Completer != nil {
			return c.completeFromList(arg.Completer(), partial)
		}
		return nil
	default:
		return nil
	}
}

// completeSessions returns completions for session IDs, matching either the
// ID prefix or text in the title.
func (c *Completer) completeSessions(partial string) []Completion {
	if c.SessionsFn == nil {
		return nil
	}

	sessions := c.SessionsFn()
	var completions []Completion

	partial = strings.ToLower(partial)

	for _, sess := range sessions {
		idMatch := strings.HasPrefix(strings.ToLower(sess.ID), partial)
		titleMatch := strings.Contains(strings.ToLower(sess.Title), partial)

		if idMatch || titleMatch {
			score := calculateScore(sess.ID, partial)
			if titleMatch && !idMatch {
				score -= 5
			}

			display := sess.ID
			if sess.Title != "" {
				display = sess.ID + " - " + util.TruncateRunes(sess.Title, 30)
			}

			completions = append(completions, Completion{
				Value:       sess.ID,
				Display:     display,
				Description: sess.Preview,
				Score:       score,
			})
		}
	}

	sortCompletions(completions)
	return completions
}

// completeFiles returns completions for file paths.
func (c *Completer) completeFiles(partial string) []Completion {
	if c.FilesFn != nil {
		return c.completeFromList(c.FilesFn(partial), partial)
	}
	return c.defaultFileCompletion(partial)
}

// defaultFileCompletion provides basic file path completion.
func (c *Completer) defaultFileCompletion(partial string) []Completion {
	var completions []Completion

	if partial == "" {
		partial = "."
	}

	dir := filepath.Dir(partial)
	prefix := filepath.Base(partial)
	if strings.HasSuffix(partial, string(os.PathSeparator)) {
		dir = partial
		prefix = ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	prefix = strings.ToLower(prefix)

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), prefix) {
			continue
		}

		// Hidden entries only when explicitly asked for.
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		score := calculateScore(name, prefix)
		desc := ""
		if entry.IsDir() {
			path += string(os.PathSeparator)
			score += 5
			desc = "directory"
		}

		completions = append(completions, Completion{
			Value:       path,
			Display:     name,
			Description: desc,
			Score:       score,
		})
	}

	sortCompletions(completions)

	if len(completions) > 20 {
		completions = completions[:20]
	}
	return completions
}

// completeConfig returns completions for config keys.
func (c *Completer) completeConfig(partial string) []Completion {
	var keys []string
	if c.ConfigFn != nil {
		keys = c.ConfigFn()
	} else {
		keys = []string{
			"agent.base_url", "agent.timeout_secs", "agent.max_retries",
			"ui.theme", "ui.suggestions", "charts.max_widgets",
			"charts.scan_debounce_ms", "sessions.auto_save", "logging.level",
		}
	}

	return c.completeFromList(keys, partial)
}

// completeFromList returns prefix-matched completions from a value list.
func (c *Completer) completeFromList(values []string, partial string) []Completion {
	var completions []Completion

	partial = strings.ToLower(partial)

	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   calculateScore(value, partial),
			})
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// calculateScore calculates a match score for completion ranking.
// Higher score = better match.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100

	if value == partial {
		return score + 100
	}

	if strings.HasPrefix(value, partial) {
		score += 50
		// Shorter completions first.
		score += 20 - len(value)
	}

	score -= len(value) / 2

	return score
}

// sortCompletions sorts by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState holds the state for navigating completions in the popup.
type CompletionState struct {
	// OriginalInput is the input before completion started
	OriginalInput string

	// Completions currently offered
	Completions []Completion

	// Selected index (-1 for none)
	Selected int

	// Visible indicates if the popup should be shown
	Visible bool
}

// NewCompletionState creates an empty completion state.
func NewCompletionState() *CompletionState {
	return &CompletionState{
		Selected: -1,
	}
}

// Update replaces the completion set, auto-selecting the first entry.
func (cs *CompletionState) Update(input string, completions []Completion) {
	cs.OriginalInput = input
	cs.Completions = completions
	cs.Selected = 0
	cs.Visible = len(completions) > 0
}

// Next moves to the next completion, wrapping around.
func (cs *CompletionState) Next() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected = (cs.Selected + 1) % len(cs.Completions)
}

// Prev moves to the previous completion, wrapping around.
func (cs *CompletionState) Prev() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected--
	if cs.Selected < 0 {
		cs.Selected = len(cs.Completions) - 1
	}
}

// Accept returns the selected completion value, or empty if none.
func (cs *CompletionState) Accept() string {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		if len(cs.Completions) > 0 {
			return cs.Completions[0].Value
		}
		return ""
	}
	return cs.Completions[cs.Selected].Value
}

// Clear resets the completion state.
func (cs *CompletionState) Clear() {
	cs.OriginalInput = ""
	cs.Completions = nil
	cs.Selected = -1
	cs.Visible = false
}

// GetSelected returns the currently selected completion, or nil.
func (cs *CompletionState) GetSelected() *Completion {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		return nil
	}
	return &cs.Completions[cs.Selected]
}
