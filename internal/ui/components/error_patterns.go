// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"
)

// =============================================================================
// ERROR CATEGORIES
// =============================================================================

// ErrorCategory classifies an error for display grouping.
type ErrorCategory string

const (
	// CategoryBackend covers advisor agent connectivity and run failures.
	CategoryBackend ErrorCategory = "Backend"
	// CategoryAuth covers login, token expiry and TOTP failures.
	CategoryAuth ErrorCategory = "Auth"
	// CategorySession covers session store failures.
	CategorySession ErrorCategory = "Session"
	// CategoryConfig covers configuration errors.
	CategoryConfig ErrorCategory = "Config"
	// CategoryTimeout covers deadline and timeout errors.
	CategoryTimeout ErrorCategory = "Timeout"
	// CategoryResource covers disk and storage exhaustion.
	CategoryResource ErrorCategory = "Resource"
	// CategoryParse covers payload and format errors.
	CategoryParse ErrorCategory = "Parse"
	// CategoryUnknown is the fallback for unclassified errors.
	CategoryUnknown ErrorCategory = "Error"
)

// =============================================================================
// ERROR PATTERN MATCHER
// =============================================================================

// ErrorPattern maps error-text keywords to a title and recovery suggestions.
type ErrorPattern struct {
	// Keywords matched case-insensitively; any hit selects the pattern.
	Keywords []string

	Category    ErrorCategory
	Title       string
	Suggestions []string
}

// ErrorPatternMatcher turns raw error strings into displays with targeted
// recovery suggestions. Patterns are tried in registration order, most
// specific first.
type ErrorPatternMatcher struct {
	mu       sync.RWMutex
	patterns []ErrorPattern
}

var (
	defaultMatcher     *ErrorPatternMatcher
	defaultMatcherOnce sync.Once
)

// GetDefaultMatcher returns the shared matcher instance.
func GetDefaultMatcher() *ErrorPatternMatcher {
	defaultMatcherOnce.Do(func() {
		defaultMatcher = NewErrorPatternMatcher()
	})
	return defaultMatcher
}

// NewErrorPatternMatcher creates a matcher with the default pattern set.
func NewErrorPatternMatcher() *ErrorPatternMatcher {
	matcher := &ErrorPatternMatcher{}
	matcher.registerDefaultPatterns()
	return matcher
}

// registerDefaultPatterns registers the advisor failure modes. Order
// matters: the first matching pattern wins, so specific patterns precede
// general ones.
func (m *ErrorPatternMatcher) registerDefaultPatterns() {
	// Backend not configured (before general connection errors).
	m.AddPattern(ErrorPattern{
		Keywords: []string{
			"backend not configured", "no backend url", "base url is empty",
		},
		Category: CategoryBackend,
		Title:    "Backend Not Configured",
		Suggestions: []string{
			"Set agent.base_url in ~/.advisor/config.toml",
			"Or export ADVISOR_AGENT_URL before starting",
			"Check the current value: /config agent.base_url",
		},
	})

	// Rate limiting (before general backend errors).
	m.AddPattern(ErrorPattern{
		Keywords: []string{
			"rate limit", "too many requests", "429", "throttled",
		},
		Category: CategoryBackend,
		Title:    "Rate Limit Exceeded",
		Suggestions: []string{
			"Wait a moment and retry",
			"Lower agent.requests_per_minute in config",
		},
	})

	// Login token expiry and TOTP.
	m.AddPattern(ErrorPattern{
		Keywords: []string{
			"login expired", "not logged in", "totp code required",
			"invalid totp", "token expired",
		},
		Category: CategoryAuth,
		Title:    "Login Required",
		Suggestions: []string{
			"Log in again: /login",
			"Tokens expire after auth.token_ttl_hours",
		},
	})

	// Request timeout (before general connection errors).
	m.AddPattern(ErrorPattern{
		Keywords: []string{
			"request timeout", "operation timed out",
			"context deadline exceeded",
		},
		Category: CategoryTimeout,
		Title:    "Request Timeout",
		Suggestions: []string{
			"Try again - the advisor may be busy",
			"Raise agent.timeout_secs in config",
		},
	})

	// Session store failures.
	m.AddPattern(ErrorPattern{
		Keywords: []string{
			"session not found", "ambiguous", "no sessions",
		},
		Category: CategorySession,
		Title:    "Session Error",
		Suggestions: []string{
			"List saved sessions: /sessions",
			"Use a longer ID prefix to disambiguate",
		},
	})

	// Disk exhaustion.
	m.AddPattern(ErrorPattern{
		Keywords: []string{
			"no space left", "disk full", "enospc",
		},
		Category: CategoryResource,
		Title:    "Disk Space Error",
		Suggestions: []string{
			"Free up disk space",
			"Prune old sessions: /sessions then /delete",
		},
	})

	// Configuration errors.
	m.AddPattern(ErrorPattern{
		Keywords: []string{
			"invalid config", "missing config", "configuration error",
			"config key not found",
		},
		Category: CategoryConfig,
		Title:    "Configuration Error",
		Suggestions: []string{
			"Check ~/.advisor/config.toml syntax",
			"Delete the file to regenerate defaults",
		},
	})

	// Payload and format errors.
	m.AddPattern(ErrorPattern{
		Keywords: []string{
			"unmarshal", "parse error", "invalid json", "syntax error",
			"not chart data",
		},
		Category: CategoryParse,
		Title:    "Parse Error",
		Suggestions: []string{
			"The reply contained a malformed payload",
			"View the raw text with Ctrl+O",
		},
	})

	// General connection errors (fallback, last).
	m.AddPattern(ErrorPattern{
		Keywords: []string{
			"connection refused", "dial tcp", "no such host",
			"network unreachable", "connection reset", "broken pipe",
			"backend unavailable", "cannot connect", "failed to connect",
		},
		Category: CategoryBackend,
		Title:    "Backend Unreachable",
		Suggestions: []string{
			"Check the advisor agent is running",
			"Verify agent.base_url points at it",
			"Probe it: /health",
		},
	})
}

// AddPattern appends a pattern. Thread-safe.
func (m *ErrorPatternMatcher) AddPattern(pattern ErrorPattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
}

// Match returns a display for the first matching pattern, or nil.
func (m *ErrorPatternMatcher) Match(errMsg string) *ErrorDisplay {
	if errMsg == "" {
		return nil
	}

	errLower := strings.ToLower(errMsg)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, pattern := range m.patterns {
		if matchesPattern(errLower, pattern) {
			display := NewEnhancedError(pattern, errMsg)
			return &display
		}
	}
	return nil
}

// MatchOrDefault matches against the registered patterns, falling back to a
// plain display with the given title when nothing matches.
func (m *ErrorPatternMatcher) MatchOrDefault(title, errMsg string) ErrorDisplay {
	if matched := m.Match(errMsg); matched != nil {
		return *matched
	}
	return NewError(title, errMsg)
}

func matchesPattern(errMsg string, pattern ErrorPattern) bool {
	for _, keyword := range pattern.Keywords {
		if strings.Contains(errMsg, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// =============================================================================
// SMART ERROR CREATION
// =============================================================================

// SmartError creates an error display with pattern-matched suggestions.
func SmartError(title, message string) ErrorDisplay {
	return GetDefaultMatcher().MatchOrDefault(title, message)
}

// SmartErrorFromError is SmartError over a Go error.
func SmartErrorFromError(title string, err error) ErrorDisplay {
	if err == nil {
		return NewError(title, "Unknown error")
	}
	return SmartError(title, err.Error())
}
