// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chartdata parses chart payloads embedded in advisor replies.
package chartdata

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FenceTag is the code fence language identifier the agent uses for chart
// payloads.
const FenceTag = "chart-json"

// =============================================================================
// EXTRACTION
// =============================================================================

// ExtractResult is the output of ExtractCharts: the message text with each
// accepted payload replaced by a positional placeholder, plus the descriptors
// in order of appearance. Rejected counts chart-tagged fences that failed to
// parse or validate and were left in the text; the scanner logs them.
type ExtractResult struct {
	Text     string
	Charts   []*ChartDescriptor
	Rejected int
}

// HasCharts returns true if at least one payload was extracted.
func (r ExtractResult) HasCharts() bool {
	return len(r.Charts) > 0
}

// ExtractCharts scans one message for fenced chart-json blocks and replaces
// each accepted block with a {{chart:N}} placeholder. N indexes the returned
// Charts slice.
//
// A block is accepted only if its body parses as JSON with a known type and a
// data array. Anything else, including malformed JSON, an unknown type, or a
// fence left unclosed at end of input, stays in the text verbatim. The agent
// sometimes nests fences inside indented report sections, so up to three
// leading spaces on a fence line are tolerated.
func ExtractCharts(text string) ExtractResult {
	lines := strings.Split(text, "\n")
	var out []string
	var charts []*ChartDescriptor

	var inFence bool
	var fenceIsChart bool
	var fenceOpen string
	var body []string
	var rejected int

	flushLiteral := func() {
		// Rejected or unclosed block: put the fence back untouched.
		out = append(out, fenceOpen)
		out = append(out, body...)
	}

	for _, line := range lines {
		tag, isFence := fenceLine(line)
		if isFence {
			if inFence {
				if fenceIsChart {
					desc, err := parsePayload(strings.Join(body, "\n"))
					if err != nil {
						flushLiteral()
						out = append(out, line)
						rejected++
					} else {
						out = append(out, Placeholder(len(charts)))
						charts = append(charts, desc)
					}
				} else {
					// Not a chart fence; pass the whole block through.
					flushLiteral()
					out = append(out, line)
				}
				inFence = false
				fenceIsChart = false
				fenceOpen = ""
				body = nil
			} else {
				inFence = true
				fenceIsChart = strings.EqualFold(tag, FenceTag)
				fenceOpen = line
			}
		} else if inFence {
			body = append(body, line)
		} else {
			out = append(out, line)
		}
	}

	// Unclosed fence at end of input is never treated as chart data: the
	// payload may be truncated mid-stream.
	if inFence {
		flushLiteral()
		if fenceIsChart {
			rejected++
		}
	}

	return ExtractResult{
		Text:     strings.Join(out, "\n"),
		Charts:   charts,
		Rejected: rejected,
	}
}

// fenceLine reports whether a line opens or closes a code fence and returns
// the language tag (empty for a closing fence).
func fenceLine(line string) (tag string, ok bool) {
	trimmed := line
	for i := 0; i < 3 && strings.HasPrefix(trimmed, " "); i++ {
		trimmed = trimmed[1:]
	}
	if !strings.HasPrefix(trimmed, "```") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, "```")), true
}

// parsePayload decodes and validates one fence body.
func parsePayload(body string) (*ChartDescriptor, error) {
	var desc ChartDescriptor
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &desc); err != nil {
		return nil, fmt.Errorf("decode chart payload: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("validate chart payload: %w", err)
	}
	return &desc, nil
}

// =============================================================================
// PLACEHOLDERS
// =============================================================================

var placeholderRe = regexp.MustCompile(`\{\{chart:(\d+)\}\}`)

// Placeholder returns the literal token that stands in for chart i in
// extracted text. The token contains no markdown metacharacters, so it
// survives downstream rendering as a plain substring.
func Placeholder(i int) string {
	return "{{chart:" + strconv.Itoa(i) + "}}"
}

// Segment is one piece of split text: either literal text or a reference to
// an extracted chart.
type Segment struct {
	Text       string
	ChartIndex int // -1 for text segments
}

// IsChart returns true if the segment references an extracted chart.
func (s Segment) IsChart() bool {
	return s.ChartIndex >= 0
}

// SplitPlaceholders splits extracted text into literal and chart segments in
// document order. Tokens referencing charts outside [0,n) are left as text;
// they were not produced by this extraction.
func SplitPlaceholders(text string, n int) []Segment {
	var segs []Segment
	rest := text
	for {
		loc := placeholderRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		idx, err := strconv.Atoi(rest[loc[2]:loc[3]])
		if err != nil || idx < 0 || idx >= n {
			if rest[:loc[1]] != "" {
				segs = append(segs, Segment{Text: rest[:loc[1]], ChartIndex: -1})
			}
			rest = rest[loc[1]:]
			continue
		}
		if rest[:loc[0]] != "" {
			segs = append(segs, Segment{Text: rest[:loc[0]], ChartIndex: -1})
		}
		segs = append(segs, Segment{ChartIndex: idx})
		rest = rest[loc[1]:]
	}
	if rest != "" {
		segs = append(segs, Segment{Text: rest, ChartIndex: -1})
	}
	return segs
}

// StripPlaceholders removes all placeholder tokens from text. Used when
// exporting plain transcripts where widgets cannot be rendered.
func StripPlaceholders(text string) string {
	return placeholderRe.ReplaceAllString(text, "")
}
