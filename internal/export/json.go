// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the stored document form, so an export can be copied
// back into the sessions directory.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a session to JSON.
func (e *JSONExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	data, err := json.MarshalIndent(storage.NewDocument(sess), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
