// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/util"
)

// Policy defaults.
const (
	// DefaultCap is the history cap applied when Options.Cap is unset. It
	// holds the system prompt and 40 full turns, enough for the top style tier.
	DefaultCap = 81

	// MaxMemories bounds the memory summary list.
	MaxMemories = 10

	// ExcerptRunes is the length each side of a turn is cut to in a summary.
	ExcerptRunes = 30

	// TalkTimeLayout formats last_talk_time and memory timestamps.
	TalkTimeLayout = "15:04:05"
)

// DefaultSystemPrompt seeds fresh sessions when no prompt is configured.
const DefaultSystemPrompt = "You are Javx Seek, a sharp assistant who thinks problems through " +
	"from several angles. You are best at programming: read what the user needs and " +
	"deliver complete, idiomatic code that follows the conventions of its language."

// Options configures a Store.
type Options struct {
	// Cap is the maximum history length kept after a save.
	Cap int

	// SystemPrompt seeds fresh sessions.
	SystemPrompt string

	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// Store applies the bounded-history policy over a Backend.
// A Store is safe for concurrent use if its Backend is; callers still
// serialize access to any one Session.
type Store struct {
	backend      Backend
	cap          int
	systemPrompt string
	now          func() time.Time
}

// NewStore creates a store over backend.
func NewStore(backend Backend, opts Options) *Store {
	s := &Store{
		backend:      backend,
		cap:          opts.Cap,
		systemPrompt: opts.SystemPrompt,
		now:          opts.Now,
	}
	if s.cap <= 0 {
		s.cap = DefaultCap
	}
	if s.systemPrompt == "" {
		s.systemPrompt = DefaultSystemPrompt
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Cap returns the history cap.
func (s *Store) Cap() int {
	return s.cap
}

// Fresh returns a new session for id holding only the system prompt.
func (s *Store) Fresh(id string) *model.Session {
	return model.NewSession(id, s.systemPrompt, s.now())
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load returns the stored session for id, trimmed to the cap. A missing
// record yields a fresh session and no error. An unreadable or corrupt
// record yields a fresh session and an error wrapping ErrLoadDegraded;
// the session is always usable.
func (s *Store) Load(ctx context.Context, id string) (*model.Session, error) {
	doc, err := s.backend.Read(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.Fresh(id), nil
		}
		return s.Fresh(id), &StoreError{Op: "load", ID: id, Kind: ErrLoadDegraded, Err: err}
	}

	sess := doc.Session(id)
	sess.Stored = true
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	s.Trim(sess)
	return sess, nil
}

// Save trims the session, stamps it, folds the pending turn into the memory
// summaries and writes the whole document. Failures wrap ErrSaveFailed and
// leave the in-memory session intact.
func (s *Store) Save(ctx context.Context, sess *model.Session) error {
	now := s.now()

	s.Trim(sess)
	sess.UpdatedAt = now
	sess.LastTalkTime = now.Format(TalkTimeLayout)
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}

	if turn, ok := sess.PendingTurn(); ok {
		sess.Memories = append(sess.Memories, model.MemoryEntry{
			Time:    sess.LastTalkTime,
			Content: Summarize(turn),
		})
		if len(sess.Memories) > MaxMemories {
			sess.Memories = sess.Memories[len(sess.Memories)-MaxMemories:]
		}
		sess.ClearPendingTurn()
	}

	if err := s.backend.Write(ctx, sess.ID, NewDocument(sess)); err != nil {
		return &StoreError{Op: "save", ID: sess.ID, Kind: ErrSaveFailed, Err: err}
	}
	return nil
}

// Trim enforces the history cap: a leading system message is kept along with
// the most recent cap-1 messages; without one the most recent cap messages
// are kept. It reports whether anything was dropped.
func (s *Store) Trim(sess *model.Session) bool {
	n := len(sess.Messages)
	if n <= s.cap {
		return false
	}

	if sess.HasLeadingSystem() {
		kept := make([]model.Message, 0, s.cap)
		kept = append(kept, sess.Messages[0])
		kept = append(kept, sess.Messages[n-(s.cap-1):]...)
		sess.Messages = kept
		return true
	}

	sess.Messages = append([]model.Message(nil), sess.Messages[n-s.cap:]...)
	return true
}

// Clear deletes the stored state for id. The next Load returns a fresh
// session.
func (s *Store) Clear(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, id); err != nil {
		return &StoreError{Op: "clear", ID: id, Kind: ErrSaveFailed, Err: err}
	}
	return nil
}

// Sessions lists stored session ids.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	ids, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

// Close releases the backend if it holds resources.
func (s *Store) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Summarize renders the one-line memory of a turn:
// "<first 30 runes of user> → <first 30 runes of reply>...".
func Summarize(turn model.Turn) string {
	return util.Excerpt(turn.User, ExcerptRunes) + " → " + util.Excerpt(turn.Assistant, ExcerptRunes) + "..."
}
