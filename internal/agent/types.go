// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent provides the streaming client for the advisor agent backend.
// The backend speaks an SSE event protocol: each run is a single POST whose
// response body is a stream of typed JSON events terminated by RUN_FINISHED
// (or a bare [DONE] sentinel from older builds).
package agent

import (
	"encoding/json"
	"errors"
	"fmt"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType discriminates the JSON events on the SSE stream.
type EventType string

const (
	// EventRunStarted marks the beginning of a run.
	EventRunStarted EventType = "RUN_STARTED"

	// EventTextMessageStart opens a streamed assistant message.
	EventTextMessageStart EventType = "TEXT_MESSAGE_START"

	// EventTextMessageContent carries a content delta for the open message.
	EventTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"

	// EventTextMessageEnd closes the streamed assistant message.
	EventTextMessageEnd EventType = "TEXT_MESSAGE_END"

	// EventRunFinished marks successful completion of a run.
	EventRunFinished EventType = "RUN_FINISHED"

	// EventRunError reports a failure raised by the agent mid-run.
	EventRunError EventType = "RUN_ERROR"
)

// Event is a single decoded event from the agent's SSE stream.
type Event struct {
	Type      EventType `json:"type"`
	ThreadID  string    `json:"threadId,omitempty"`
	RunID     string    `json:"runId,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Role      string    `json:"role,omitempty"`
	Delta     string    `json:"delta,omitempty"`
	Message   string    `json:"message,omitempty"`

	// Err carries transport-level failures on channel-based streams.
	Err error `json:"-"`
}

// IsTerminal reports whether the event ends the stream.
func (e *Event) IsTerminal() bool {
	return e.Type == EventRunFinished || e.Type == EventRunError
}

// =============================================================================
// RUN INPUT
// =============================================================================

// InputMessage is one entry of the conversation history sent to the agent.
type InputMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RunInput is the request envelope for a single agent run. The backend keys
// per-thread state off ThreadID (also mirrored in the X-Thread-ID header) and
// uses RunID only for event correlation.
type RunInput struct {
	ThreadID string         `json:"threadId"`
	RunID    string         `json:"runId"`
	Messages []InputMessage `json:"messages"`
}

// Validate checks that the input is well-formed enough to send.
func (in *RunInput) Validate() error {
	if in.ThreadID == "" {
		return errors.New("run input: missing thread ID")
	}
	if len(in.Messages) == 0 {
		return errors.New("run input: no messages")
	}
	return nil
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthStatus is the response of the backend's GET /health probe.
type HealthStatus struct {
	Status         string   `json:"status"`
	Agent          string   `json:"agent"`
	Tools          []string `json:"tools"`
	ActiveSessions int      `json:"active_sessions"`
}

// Healthy reports whether the backend declared itself operational.
func (h *HealthStatus) Healthy() bool {
	return h.Status == "ok" || h.Status == "healthy"
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// Sentinel errors returned by the client. Callers match with errors.Is.
var (
	// ErrNotConfigured indicates no backend URL is set.
	ErrNotConfigured = errors.New("agent backend not configured")

	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("agent backend unavailable")

	// ErrRateLimited indicates the backend rejected the run with 429.
	ErrRateLimited = errors.New("agent rate limit exceeded")

	// ErrRunFailed indicates the agent reported RUN_ERROR mid-stream.
	ErrRunFailed = errors.New("agent run failed")
)

// APIError is a non-2xx response from the backend, decoded when possible.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"detail"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("agent API error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("agent API error (status %d)", e.Status)
}

// Is maps common statuses onto the sentinel errors so callers can use
// errors.Is without inspecting status codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Status == 429
	case ErrUnavailable:
		return e.Status >= 500
	}
	return false
}

// decodeAPIError builds an APIError from a response body, tolerating bodies
// that are not JSON.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if len(body) > 0 {
		if err := json.Unmarshal(body, apiErr); err != nil {
			// Plain-text error bodies are kept verbatim, truncated for logs.
			msg := string(body)
			if len(msg) > 200 {
				msg = msg[:200]
			}
			apiErr.Message = msg
		}
	}
	apiErr.Status = status
	return apiErr
}

// StreamError wraps a mid-stream failure while preserving any content that
// arrived before the failure, so the UI can keep the partial answer.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream interrupted after %d bytes: %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream failed: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *StreamError) Unwrap() error {
	return e.Err
}
