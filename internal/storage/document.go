// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/morales-javx/javxseek/internal/model"
)

// Document is the persisted form of a session, read and written whole.
type Document struct {
	Style         string              `json:"style"`
	Messages      []model.Message     `json:"messages"`
	LastTalkTime  string              `json:"last_talk_time"`
	Memories      []model.MemoryEntry `json:"memories"`
	ThinkingLevel string              `json:"thinking_level"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// NewDocument snapshots a session.
func NewDocument(s *model.Session) *Document {
	doc := &Document{
		Style:         string(s.Style),
		Messages:      slices.Clone(s.Messages),
		LastTalkTime:  s.LastTalkTime,
		Memories:      slices.Clone(s.Memories),
		ThinkingLevel: string(s.ThinkingLevel),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if doc.Messages == nil {
		doc.Messages = []model.Message{}
	}
	if doc.Memories == nil {
		doc.Memories = []model.MemoryEntry{}
	}
	return doc
}

// Session rebuilds a session for id. Advisory fields are kept as stored;
// empty ones take their defaults.
func (d *Document) Session(id string) *model.Session {
	s := &model.Session{
		ID:            id,
		Messages:      slices.Clone(d.Messages),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		Style:         model.Style(d.Style),
		LastTalkTime:  d.LastTalkTime,
		Memories:      slices.Clone(d.Memories),
		ThinkingLevel: model.ThinkingMode(d.ThinkingLevel),
	}
	if s.Style == "" {
		s.Style = model.DefaultStyle
	}
	return s
}

// Validate rejects documents holding roles the chat API does not accept.
func (d *Document) Validate() error {
	for i, m := range d.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d has unknown role %q", i, m.Role)
		}
	}
	return nil
}

// encodeDocument renders the indented JSON form used on disk. HTML
// escaping is off so code snippets in replies stay readable.
func encodeDocument(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeDocument parses and validates a document. Failures wrap ErrCorrupt.
func decodeDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &d, nil
}
