// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"slices"
	"time"
)

// =============================================================================
// MEMORY SUMMARY
// =============================================================================

// MemoryEntry is a one-line recall of a finished turn. Entries are kept for
// display only and never fed back to the model.
type MemoryEntry struct {
	Time    string `json:"time"`
	Content string `json:"content"`
}

// Turn is a completed user/assistant exchange.
type Turn struct {
	User      string
	Assistant string
	Partial   bool
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one conversational identity with its bounded history.
//
// A Session is not safe for concurrent use; callers serialize access per id.
type Session struct {
	ID        string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time

	// Advisory copies persisted for display. Style is always recomputed
	// from Messages before use.
	Style         Style
	LastTalkTime  string
	Memories      []MemoryEntry
	ThinkingLevel ThinkingMode

	// Stored is set when the session was read from a saved record.
	Stored bool

	// pending is the turn appended since the last save
	pending *Turn
}

// NewSession creates a session holding only the given system prompt.
func NewSession(id, systemPrompt string, now time.Time) *Session {
	s := &Session{
		ID:            id,
		CreatedAt:     now,
		UpdatedAt:     now,
		Style:         DefaultStyle,
		ThinkingLevel: DefaultThinkingMode,
	}
	if systemPrompt != "" {
		s.Messages = []Message{NewSystemMessage(systemPrompt)}
	}
	return s
}

// UserCount returns the number of user messages in history.
func (s *Session) UserCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// CurrentStyle derives the style tier from history.
func (s *Session) CurrentStyle() Style {
	return StyleFor(s.UserCount())
}

// HasLeadingSystem reports whether message[0] is a system message.
func (s *Session) HasLeadingSystem() bool {
	return len(s.Messages) > 0 && s.Messages[0].IsSystem()
}

// SetSystemPrompt rewrites the leading system message, inserting one if the
// history does not start with a system message.
func (s *Session) SetSystemPrompt(content string) {
	if s.HasLeadingSystem() {
		s.Messages[0] = NewSystemMessage(content)
		return
	}
	s.Messages = slices.Insert(s.Messages, 0, NewSystemMessage(content))
}

// AppendTurn appends the user message and the (possibly partial) assistant
// reply and marks the turn for summarizing on the next save.
func (s *Session) AppendTurn(user, assistant string, partial bool) {
	s.Messages = append(s.Messages, NewUserMessage(user), NewAssistantMessage(assistant))
	s.pending = &Turn{User: user, Assistant: assistant, Partial: partial}
}

// PendingTurn returns the turn appended since the last save, if any.
func (s *Session) PendingTurn() (Turn, bool) {
	if s.pending == nil {
		return Turn{}, false
	}
	return *s.pending, true
}

// ClearPendingTurn forgets the pending turn.
func (s *Session) ClearPendingTurn() {
	s.pending = nil
}

// LastAssistant returns the most recent assistant message.
func (s *Session) LastAssistant() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// RecentMemories returns up to n of the newest memory entries, oldest first.
func (s *Session) RecentMemories(n int) []MemoryEntry {
	if n <= 0 || len(s.Memories) == 0 {
		return nil
	}
	start := max(len(s.Memories)-n, 0)
	return slices.Clone(s.Memories[start:])
}

// Clone returns a deep copy of the session, pending turn included.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = slices.Clone(s.Messages)
	c.Memories = slices.Clone(s.Memories)
	if s.pending != nil {
		p := *s.pending
		c.pending = &p
	}
	return &c
}
