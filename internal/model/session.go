// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for advisor sessions and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxMessages is the maximum number of messages to keep in session history.
// When exceeded, old messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds a complete advisor chat session with history and metadata.
//
// ThreadID binds the session to a server-side agent thread. The agent backend
// keys its own memory off this value, so it must stay stable for the lifetime
// of the session even across client restarts.
type Session struct {
	// Identity
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages
	Messages []*Message `json:"messages"`

	// Agent is the name of the backend agent this session talks to.
	Agent string `json:"agent,omitempty"`

	// Context tracking
	TokensUsed     int     `json:"tokens_used"`
	MaxTokens      int     `json:"max_tokens"`
	ContextPercent float64 `json:"-"` // Computed, not persisted
}

// NewSession creates a new session with generated IDs.
func NewSession() *Session {
	return &Session{
		ID:        generateSessionID(),
		ThreadID:  uuid.NewString(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  make([]*Message, 0),
		MaxTokens: 128000, // Default context window
	}
}

// NewSessionWithAgent creates a new session bound to a specific agent.
func NewSessionWithAgent(agent string) *Session {
	sess := NewSession()
	sess.Agent = agent
	return sess
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage adds a message to the session.
func (s *Session) AddMessage(msg *Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
	s.updateTokenEstimate()
	s.updateTitle()
	s.pruneOldMessages()
}

// AddUserMessage creates and adds a user message.
func (s *Session) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	s.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and adds a streaming assistant message.
func (s *Session) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	s.AddMessage(msg)
	return msg
}

// AddSystemMessage creates and adds a system message.
func (s *Session) AddSystemMessage(content string) *Message {
	msg := NewSystemMessage(content)
	s.AddMessage(msg)
	return msg
}

// GetLastMessage returns the most recent message, or nil if empty.
func (s *Session) GetLastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// GetLastAssistantMessage returns the most recent assistant message.
func (s *Session) GetLastAssistantMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i]
		}
	}
	return nil
}

// GetLastUserMessage returns the most recent user message.
func (s *Session) GetLastUserMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i]
		}
	}
	return nil
}

// AppendToLast appends a token to the last (streaming) message.
func (s *Session) AppendToLast(token string) {
	last := s.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.AppendToken(token)
	}
}

// FinalizeLast finalizes the last streaming message with statistics.
func (s *Session) FinalizeLast(stats *Statistics) {
	last := s.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.FinalizeStream(stats)
		s.updateTokenEstimate()
	}
}

// ClearHistory removes all messages from the session.
func (s *Session) ClearHistory() {
	s.Messages = make([]*Message, 0)
	s.TokensUsed = 0
	s.ContextPercent = 0
	s.UpdatedAt = time.Now()
}

// RemoveMessage removes a message by ID.
func (s *Session) RemoveMessage(id string) bool {
	for i, msg := range s.Messages {
		if msg.ID == id {
			s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
			s.UpdatedAt = time.Now()
			s.updateTokenEstimate()
			return true
		}
	}
	return false
}

// GetMessageByID returns a message by its ID.
func (s *Session) GetMessageByID(id string) *Message {
	for _, msg := range s.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty returns true if there are no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// GetHistory returns the message history for display.
func (s *Session) GetHistory() []*Message {
	return s.Messages
}

// =============================================================================
// TOKEN TRACKING
// =============================================================================

// EstimateTokens estimates the total token count of the session.
func (s *Session) EstimateTokens() int {
	total := 0

	for _, msg := range s.Messages {
		total += msg.EstimateTokens()
		// Add overhead for message structure (~4 tokens per message)
		total += 4
	}

	return total
}

// updateTokenEstimate updates the token usage and context percentage.
func (s *Session) updateTokenEstimate() {
	s.TokensUsed = s.EstimateTokens()
	if s.MaxTokens > 0 {
		s.ContextPercent = float64(s.TokensUsed) / float64(s.MaxTokens) * 100
	}
}

// GetContextPercent returns the percentage of context window used.
func (s *Session) GetContextPercent() float64 {
	return s.ContextPercent
}

// IsContextNearLimit returns true if context usage is above 75%.
func (s *Session) IsContextNearLimit() bool {
	return s.ContextPercent >= 75
}

// IsContextCritical returns true if context usage is above 90%.
func (s *Session) IsContextCritical() bool {
	return s.ContextPercent >= 90
}

// SetMaxTokens updates the maximum context window.
func (s *Session) SetMaxTokens(max int) {
	s.MaxTokens = max
	s.updateTokenEstimate()
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (s *Session) updateTitle() {
	if s.Title != "" {
		return
	}

	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			s.Title = msg.Preview(50)
			return
		}
	}
}

// SetTitle manually sets the session title.
func (s *Session) SetTitle(title string) {
	s.Title = title
	s.UpdatedAt = time.Now()
}

// GetTitle returns the session title or a default.
func (s *Session) GetTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return "New Session"
}

// =============================================================================
// SERIALIZATION HELPERS
// =============================================================================

// Preview returns a short preview of the session.
func (s *Session) Preview() string {
	if len(s.Messages) == 0 {
		return "Empty session"
	}

	first := s.GetLastUserMessage()
	if first == nil {
		first = s.Messages[0]
	}

	return first.Preview(100)
}

// GetMeta returns metadata about the session.
func (s *Session) GetMeta() SessionMeta {
	return SessionMeta{
		ID:           s.ID,
		ThreadID:     s.ThreadID,
		Title:        s.GetTitle(),
		Agent:        s.Agent,
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Preview:      s.Preview(),
	}
}

// SessionMeta holds lightweight metadata for listing.
type SessionMeta struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"thread_id"`
	Title        string    `json:"title"`
	Agent        string    `json:"agent,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}

// Clone creates a deep copy of the session.
// Streaming content is snapshotted into Content so the copy never shares
// a strings.Builder with the original.
func (s *Session) Clone() *Session {
	clone := &Session{
		ID:         s.ID,
		ThreadID:   s.ThreadID,
		Title:      s.Title,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		Agent:      s.Agent,
		TokensUsed: s.TokensUsed,
		MaxTokens:  s.MaxTokens,
		Messages:   make([]*Message, len(s.Messages)),
	}

	for i, msg := range s.Messages {
		msgCopy := &Message{
			ID:            msg.ID,
			Role:          msg.Role,
			Timestamp:     msg.Timestamp,
			Content:       msg.GetDisplayContent(),
			TokenCount:    msg.TokenCount,
			TTFT:          msg.TTFT,
			TotalDuration: msg.TotalDuration,
			TokensPerSec:  msg.TokensPerSec,
		}
		clone.Messages[i] = msgCopy
	}

	return clone
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateSessionID creates a unique session ID.
func generateSessionID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "sess_" + hex.EncodeToString(bytes)
}

// pruneOldMessages removes old messages when session history exceeds MaxMessages.
// Keeps system messages (if any) and the most recent MaxMessages messages.
func (s *Session) pruneOldMessages() {
	if len(s.Messages) <= MaxMessages {
		return
	}

	var systemMessages []*Message
	var otherMessages []*Message
	for _, msg := range s.Messages {
		if msg.Role == RoleSystem {
			systemMessages = append(systemMessages, msg)
		} else {
			otherMessages = append(otherMessages, msg)
		}
	}

	if len(otherMessages) > MaxMessages {
		startIdx := len(otherMessages) - MaxMessages
		otherMessages = otherMessages[startIdx:]
	}

	s.Messages = make([]*Message, 0, len(systemMessages)+len(otherMessages))
	s.Messages = append(s.Messages, systemMessages...)
	s.Messages = append(s.Messages, otherMessages...)
}

// ValidateThreadID reports whether a thread ID is usable as an agent thread
// key. Old sessions saved before thread binding may have an empty value.
func ValidateThreadID(id string) bool {
	if id == "" {
		return false
	}
	return strings.TrimSpace(id) == id
}
