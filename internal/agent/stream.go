// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// STREAMING: Robust SSE parsing with error handling

// MaxEventSize is the maximum allowed size for a single SSE event (64KB).
const MaxEventSize = 64 * 1024

// doneSentinel terminates streams from older backend builds that emit the
// OpenAI-style marker instead of a RUN_FINISHED event.
var doneSentinel = []byte("[DONE]")

// EventCallback is invoked for each decoded event on the stream.
type EventCallback func(ev Event)

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a response body.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event and returns its event field and joined
// data payload. The backend leaves the event field empty and carries the
// typed envelope in data. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	var total int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Flush a final event that was not newline-terminated.
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line ends the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := bytes.TrimSpace(line[5:])
			total += len(data)
			if total > MaxEventSize {
				return "", nil, errors.New("sse event exceeds size limit")
			}
			dataLines = append(dataLines, data)
		}
		// id:, retry: and comment lines are ignored.
	}
}

// =============================================================================
// STREAM PROCESSING
// =============================================================================

// processStream decodes events off the SSE body until a terminal event, the
// [DONE] sentinel, EOF, or context cancellation. Malformed events are skipped
// rather than failing the whole run.
func processStream(ctx context.Context, body io.Reader, callback EventCallback) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if bytes.Equal(data, doneSentinel) {
			return nil
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if ev.Type == "" {
			continue
		}

		callback(ev)

		if ev.IsTerminal() {
			return nil
		}
	}
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator collects content deltas into a full message. Not safe for
// concurrent use; each stream owns one.
type Accumulator struct {
	content   strings.Builder
	messageID string
	finished  bool
	runErr    string
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add folds one event into the accumulated state.
func (a *Accumulator) Add(ev Event) {
	switch ev.Type {
	case EventTextMessageStart:
		a.messageID = ev.MessageID
	case EventTextMessageContent:
		a.content.WriteString(ev.Delta)
		if a.messageID == "" {
			a.messageID = ev.MessageID
		}
	case EventRunFinished:
		a.finished = true
	case EventRunError:
		a.runErr = ev.Message
	}
}

// Content returns the accumulated message content so far.
func (a *Accumulator) Content() string {
	return a.content.String()
}

// MessageID returns the backend's ID for the streamed message, if any.
func (a *Accumulator) MessageID() string {
	return a.messageID
}

// Finished reports whether a RUN_FINISHED event was seen.
func (a *Accumulator) Finished() bool {
	return a.finished
}

// RunError returns the RUN_ERROR message, or empty if the run succeeded.
func (a *Accumulator) RunError() string {
	return a.runErr
}
