// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chartdata parses chart payloads embedded in advisor replies.
package chartdata

import (
	"fmt"
	"hash/fnv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CHART IDENTITY
// =============================================================================

// Identity derives the durable preference key for a chart from its title and
// type. The same title and type must produce the same key across restarts so
// saved view preferences reattach to re-rendered charts.
//
// Two distinct charts that share a title and type share a key and therefore
// alias each other's preferences. The payload carries nothing else stable
// enough to disambiguate them (data changes between refreshes), so the
// aliasing stands; the tests pin it down as intended behavior.
//
// UNICODE: titles come from LLM output and may mix full-width, composed, and
// decomposed forms of the same text. NFKC folding keeps those variants on one
// key.
func Identity(title string, typ ChartType) string {
	key := NormalizeTitle(title) + "|" + string(typ)

	h := fnv.New64a()
	h.Write([]byte(key))
	return fmt.Sprintf("chart_%016x", h.Sum64())
}

// NormalizeTitle canonicalizes a chart title for identity derivation:
// NFKC fold, lowercase, whitespace collapsed to single spaces.
func NormalizeTitle(title string) string {
	s := norm.NFKC.String(title)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
