// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/jeranaias/advisor-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports sessions to JSON format.
// NOTE: JSON exports always include the complete session data structure and
// do not respect filtering options. Chart fences stay embedded in message
// content, so the exported JSON is a faithful copy of the stored session that
// can be re-imported.
type JSONExporter struct {
	// Options are accepted but currently not used for filtering.
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
// The options parameter is accepted for consistency with other exporters,
// but JSON exports always include complete session data.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a session to JSON format.
func (e *JSONExporter) Export(sess *model.Session) ([]byte, error) {
	if err := validateSession(sess); err != nil {
		return nil, err
	}

	// Clone freezes any in-flight stream buffer into Content.
	return json.MarshalIndent(sess.Clone(), "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
