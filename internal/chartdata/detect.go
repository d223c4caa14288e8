// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chartdata parses chart payloads embedded in advisor replies.
package chartdata

import "strings"

// LooksLikeChart is the cheap pre-filter the transcript scanner runs before
// paying for a full JSON parse: the text must mention both a "type" key and a
// "data" key. False positives are fine (the parse settles it); false
// negatives are not, so the check stays loose.
func LooksLikeChart(text string) bool {
	return strings.Contains(text, `"type"`) && strings.Contains(text, `"data"`)
}

// ContainsChartFence is a cheap message-level pre-filter: true when the text
// has at least one chart-json fence opener.
func ContainsChartFence(text string) bool {
	return strings.Contains(text, "```"+FenceTag)
}
