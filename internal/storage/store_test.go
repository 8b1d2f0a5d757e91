// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morales-javx/javxseek/internal/model"
)

var fixedNow = time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)

func newTestStore(t *testing.T, b Backend, cap int) *Store {
	t.Helper()
	return NewStore(b, Options{
		Cap:          cap,
		SystemPrompt: "You are a test assistant.",
		Now:          func() time.Time { return fixedNow },
	})
}

// failingBackend fails every call with err.
type failingBackend struct{ err error }

func (f failingBackend) Read(context.Context, string) (*Document, error) { return nil, f.err }
func (f failingBackend) Write(context.Context, string, *Document) error  { return f.err }
func (f failingBackend) Delete(context.Context, string) error            { return f.err }
func (f failingBackend) List(context.Context) ([]string, error)          { return nil, f.err }

// =============================================================================
// LOAD
// =============================================================================

func TestStore_LoadMissingIsFresh(t *testing.T) {
	st := newTestStore(t, NewMemoryBackend(), 20)

	sess, err := st.Load(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, model.RoleSystem, sess.Messages[0].Role)
	assert.Equal(t, "You are a test assistant.", sess.Messages[0].Content)
	assert.Equal(t, model.StyleCasual, sess.Style)
	assert.Equal(t, model.ModeDeep, sess.ThinkingLevel)
	assert.Empty(t, sess.Memories)
}

func TestStore_LoadCorruptIsDegraded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob.json"), []byte("{not json"), 0600))

	fb, err := NewFileBackend(dir)
	require.NoError(t, err)
	st := newTestStore(t, fb, 20)

	sess, err := st.Load(context.Background(), "bob")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadDegraded)
	assert.ErrorIs(t, err, ErrCorrupt)
	require.NotNil(t, sess)
	assert.Len(t, sess.Messages, 1)

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load", se.Op)
	assert.Equal(t, "bob", se.ID)
}

func TestStore_LoadUnreadableIsDegraded(t *testing.T) {
	st := newTestStore(t, failingBackend{err: errors.New("disk on fire")}, 20)

	sess, err := st.Load(context.Background(), "x")
	assert.ErrorIs(t, err, ErrLoadDegraded)
	require.NotNil(t, sess)
	assert.True(t, sess.HasLeadingSystem())
}

func TestStore_LoadTrimsOversizedHistory(t *testing.T) {
	mb := NewMemoryBackend()
	doc := &Document{Style: "casual", ThinkingLevel: "deep"}
	doc.Messages = append(doc.Messages, model.NewSystemMessage("sys"))
	for i := range 30 {
		doc.Messages = append(doc.Messages, model.NewUserMessage(fmt.Sprintf("u%d", i)))
	}
	require.NoError(t, mb.Write(context.Background(), "big", doc))

	st := newTestStore(t, mb, 20)
	sess, err := st.Load(context.Background(), "big")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 20)
	assert.Equal(t, "sys", sess.Messages[0].Content)
	assert.Equal(t, "u29", sess.Messages[19].Content)
}

// =============================================================================
// SAVE
// =============================================================================

func TestStore_SaveAppendsMemoryForPendingTurn(t *testing.T) {
	mb := NewMemoryBackend()
	st := newTestStore(t, mb, 20)
	ctx := context.Background()

	sess, err := st.Load(ctx, "alice")
	require.NoError(t, err)
	sess.AppendTurn("hello there", "Hi! How can I help you today?", false)
	require.NoError(t, st.Save(ctx, sess))

	require.Len(t, sess.Memories, 1)
	assert.Equal(t, "09:26:53", sess.Memories[0].Time)
	assert.Equal(t, "hello there → Hi! How can I help you today?...", sess.Memories[0].Content)
	assert.Equal(t, "09:26:53", sess.LastTalkTime)

	_, pending := sess.PendingTurn()
	assert.False(t, pending)

	got, err := st.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sess.Messages, got.Messages)
	assert.Equal(t, sess.Memories, got.Memories)
}

func TestStore_SaveOfLoadIsIdempotent(t *testing.T) {
	mb := NewMemoryBackend()
	st := newTestStore(t, mb, 20)
	ctx := context.Background()

	sess := st.Fresh("id")
	sess.AppendTurn("q", "a", false)
	require.NoError(t, st.Save(ctx, sess))

	first, err := mb.Read(ctx, "id")
	require.NoError(t, err)

	loaded, err := st.Load(ctx, "id")
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, loaded))

	second, err := mb.Read(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_MemoriesCappedAtTen(t *testing.T) {
	st := newTestStore(t, NewMemoryBackend(), 100)
	ctx := context.Background()
	sess := st.Fresh("m")

	for i := range 15 {
		sess.AppendTurn(fmt.Sprintf("question %d", i), "answer", false)
		require.NoError(t, st.Save(ctx, sess))
	}

	require.Len(t, sess.Memories, MaxMemories)
	assert.True(t, strings.HasPrefix(sess.Memories[0].Content, "question 5 "))
	assert.True(t, strings.HasPrefix(sess.Memories[9].Content, "question 14 "))
}

func TestStore_SaveFailureWrapsSaveFailed(t *testing.T) {
	st := newTestStore(t, failingBackend{err: errors.New("read-only fs")}, 20)
	sess := st.Fresh("x")
	sess.AppendTurn("q", "a", false)
	before := len(sess.Messages)

	err := st.Save(context.Background(), sess)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Len(t, sess.Messages, before)
}

func TestStore_HistoryCapHeldAcrossTurns(t *testing.T) {
	st := newTestStore(t, NewMemoryBackend(), 20)
	ctx := context.Background()
	sess := st.Fresh("cap")

	for i := range 25 {
		sess.AppendTurn(fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i), false)
		require.NoError(t, st.Save(ctx, sess))
		assert.LessOrEqual(t, len(sess.Messages), 20)
	}
	assert.True(t, sess.HasLeadingSystem())
	assert.Equal(t, "You are a test assistant.", sess.Messages[0].Content)
	assert.Equal(t, "a24", sess.Messages[19].Content)
}

// =============================================================================
// TRIM
// =============================================================================

func TestStore_Trim(t *testing.T) {
	st := newTestStore(t, NewMemoryBackend(), 3)

	tests := []struct {
		name     string
		messages []model.Message
		want     []string
		trimmed  bool
	}{
		{
			name:     "under cap",
			messages: []model.Message{model.NewSystemMessage("s"), model.NewUserMessage("u1")},
			want:     []string{"s", "u1"},
		},
		{
			name: "keeps leading system",
			messages: []model.Message{
				model.NewSystemMessage("s"), model.NewUserMessage("u1"), model.NewAssistantMessage("a1"),
				model.NewUserMessage("u2"), model.NewAssistantMessage("a2"),
			},
			want:    []string{"s", "u2", "a2"},
			trimmed: true,
		},
		{
			name: "no system keeps newest",
			messages: []model.Message{
				model.NewUserMessage("u1"), model.NewAssistantMessage("a1"),
				model.NewUserMessage("u2"), model.NewAssistantMessage("a2"),
			},
			want:    []string{"a1", "u2", "a2"},
			trimmed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &model.Session{Messages: tt.messages}
			if got := st.Trim(sess); got != tt.trimmed {
				t.Errorf("Trim() = %v, want %v", got, tt.trimmed)
			}
			var contents []string
			for _, m := range sess.Messages {
				contents = append(contents, m.Content)
			}
			assert.Equal(t, tt.want, contents)
		})
	}
}

// =============================================================================
// CLEAR / LIST
// =============================================================================

func TestStore_ClearThenLoadIsFresh(t *testing.T) {
	st := newTestStore(t, NewMemoryBackend(), 20)
	ctx := context.Background()

	sess := st.Fresh("gone")
	sess.AppendTurn("q", "a", false)
	require.NoError(t, st.Save(ctx, sess))

	require.NoError(t, st.Clear(ctx, "gone"))
	require.NoError(t, st.Clear(ctx, "gone"))

	got, err := st.Load(ctx, "gone")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
	assert.Empty(t, got.Memories)
}

func TestStore_Sessions(t *testing.T) {
	st := newTestStore(t, NewMemoryBackend(), 20)
	ctx := context.Background()
	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, st.Save(ctx, st.Fresh(id)))
	}

	ids, err := st.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestStore_FileSessionsStaySeparate(t *testing.T) {
	st := newTestStore(t, mustFileBackend(t, t.TempDir()), 20)
	ctx := context.Background()

	sess := st.Fresh("alice:1")
	sess.AppendTurn("secret from alice", "noted", false)
	require.NoError(t, st.Save(ctx, sess))

	other, err := st.Load(ctx, "alice_1")
	require.NoError(t, err)
	assert.Len(t, other.Messages, 1, "a different id loads fresh")
	assert.False(t, other.Stored)

	mine, err := st.Load(ctx, "alice:1")
	require.NoError(t, err)
	assert.True(t, mine.Stored)
	assert.Equal(t, "noted", mine.Messages[len(mine.Messages)-1].Content)

	ids, err := st.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:1"}, ids)
}

func TestSummarize(t *testing.T) {
	turn := model.Turn{
		User:      "Please explain goroutines and channels in detail",
		Assistant: "Goroutines are lightweight threads\nmanaged by the runtime.",
	}
	got := Summarize(turn)
	want := "Please explain goroutines and  → Goroutines are lightweight thr..."
	if got != want {
		t.Errorf("Summarize() = %q, want %q", got, want)
	}
}
