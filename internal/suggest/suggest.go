// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package suggest produces the follow-up suggestion chips shown under the
// chat composer. Chips come from three sources, in priority order: the
// active chart selection (a drill-down question), patterns matched against
// the last assistant reply, and static defaults for an empty session.
package suggest

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/advisor-tui/internal/selection"
)

//go:embed patterns.yaml
var patternsYAML []byte

// MaxChips caps the number of chips shown at once.
const MaxChips = 4

// =============================================================================
// TYPES
// =============================================================================

// Chip is one suggestion the user can send with a single keypress.
type Chip struct {
	// Text is the message sent when the chip is activated.
	Text string

	// Contextual marks chips derived from the active chart selection.
	Contextual bool
}

// Pattern maps trigger substrings to follow-up suggestions.
type Pattern struct {
	Match       []string `yaml:"match"`
	Suggestions []string `yaml:"suggestions"`
}

// table is the embedded YAML document.
type table struct {
	Defaults []string  `yaml:"defaults"`
	Patterns []Pattern `yaml:"patterns"`
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes suggestion chips. Safe for use from the UI loop only;
// it holds no locks.
type Engine struct {
	defaults  []string
	patterns  []Pattern
	selection *selection.Store
}

// NewEngine parses the embedded pattern table. The selection store may be
// nil, which disables contextual chips.
func NewEngine(store *selection.Store) (*Engine, error) {
	var tbl table
	if err := yaml.Unmarshal(patternsYAML, &tbl); err != nil {
		return nil, fmt.Errorf("parse suggestion patterns: %w", err)
	}
	return &Engine{
		defaults:  tbl.Defaults,
		patterns:  tbl.Patterns,
		selection: store,
	}, nil
}

// NewEngineFromYAML parses a caller-supplied pattern table. Used by tests
// and by users overriding the built-in patterns.
func NewEngineFromYAML(data []byte, store *selection.Store) (*Engine, error) {
	var tbl table
	if err := yaml.Unmarshal(data, &tbl); err != nil {
		return nil, fmt.Errorf("parse suggestion patterns: %w", err)
	}
	return &Engine{
		defaults:  tbl.Defaults,
		patterns:  tbl.Patterns,
		selection: store,
	}, nil
}

// Suggest returns up to MaxChips chips for the given last assistant reply.
// An empty reply yields the defaults. When a chart selection is active its
// drill-down question is always the first chip.
func (e *Engine) Suggest(lastReply string) []Chip {
	var chips []Chip
	seen := make(map[string]bool)

	add := func(text string, contextual bool) {
		if len(chips) >= MaxChips || text == "" || seen[text] {
			return
		}
		seen[text] = true
		chips = append(chips, Chip{Text: text, Contextual: contextual})
	}

	if e.selection != nil {
		if q := e.selection.QuestionText(); q != "" {
			add(q, true)
		}
	}

	if strings.TrimSpace(lastReply) == "" {
		for _, text := range e.defaults {
			add(text, false)
		}
		return chips
	}

	reply := strings.ToLower(lastReply)
	for _, pattern := range e.patterns {
		if !pattern.matches(reply) {
			continue
		}
		for _, text := range pattern.Suggestions {
			add(text, false)
		}
	}

	return chips
}

// matches reports whether any trigger substring occurs in the reply.
// The reply must already be lowercased.
func (p *Pattern) matches(reply string) bool {
	for _, m := range p.Match {
		if m != "" && strings.Contains(reply, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
