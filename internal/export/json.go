// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jeranaias/liquidgpt/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations in the stored record layout.
// Options do not filter JSON output, so exports stay importable.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(_ *Options) *JSONExporter {
	return &JSONExporter{}
}

// Export converts a conversation to JSON format.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}
	out := *conv
	if out.Messages == nil {
		out.Messages = []model.Message{}
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// MarshalAll encodes a list of conversations for bulk export.
func MarshalAll(convs []model.Conversation) ([]byte, error) {
	if convs == nil {
		convs = []model.Conversation{}
	}
	return json.MarshalIndent(convs, "", "  ")
}

// ParseImport decodes a JSON export. It accepts a single conversation
// object or a list of them.
func ParseImport(data []byte) ([]model.Conversation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("import file is empty")
	}

	if trimmed[0] == '{' {
		var conv model.Conversation
		if err := json.Unmarshal(trimmed, &conv); err != nil {
			return nil, fmt.Errorf("invalid conversation JSON: %w", err)
		}
		return []model.Conversation{conv}, nil
	}

	var convs []model.Conversation
	if err := json.Unmarshal(trimmed, &convs); err != nil {
		return nil, fmt.Errorf("invalid conversation list JSON: %w", err)
	}
	return convs, nil
}
