// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for advisor sessions and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat sessions with the advisor agent and the messages that
// make up a transcript.
//
// # Key Types
//
//   - Session: Container for an advisor chat with messages and metadata,
//     bound to a server-side agent thread via ThreadID
//   - Message: Single message with role, content, timestamp, and streaming state
//   - Statistics: Timing and token metrics for one generation
//   - Role: Message role enumeration (user, assistant, system)
//
// # Usage
//
// Create a new session and stream a reply into it:
//
//	sess := model.NewSession()
//	sess.AddUserMessage("How is my portfolio doing?")
//	sess.AddAssistantMessage()
//	sess.AppendToLast("Your portfolio ")
//	sess.AppendToLast("is up 4% this quarter.")
//	sess.FinalizeLast(stats)
package model
