// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morales-javx/javxseek/internal/model"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	fb, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	sb, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sb.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   fb,
		"sqlite": sb,
	}
}

func sampleDocument() *Document {
	return &Document{
		Style: "witty",
		Messages: []model.Message{
			model.NewSystemMessage("sys"),
			model.NewUserMessage("what is <b>bold</b> & why?"),
			model.NewAssistantMessage("Markup 😀 explained"),
		},
		LastTalkTime:  "10:00:00",
		Memories:      []model.MemoryEntry{{Time: "10:00:00", Content: "what → Markup..."}},
		ThinkingLevel: "creative",
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}
}

func TestBackends_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Read(ctx, "nobody")
			assert.ErrorIs(t, err, ErrNotFound)

			want := sampleDocument()
			require.NoError(t, b.Write(ctx, "alice", want))

			got, err := b.Read(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, want.Messages, got.Messages)
			assert.Equal(t, want.Memories, got.Memories)
			assert.Equal(t, want.Style, got.Style)
			assert.Equal(t, want.ThinkingLevel, got.ThinkingLevel)
			assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))

			// Overwrite replaces the whole document
			want.Messages = want.Messages[:1]
			require.NoError(t, b.Write(ctx, "alice", want))
			got, err = b.Read(ctx, "alice")
			require.NoError(t, err)
			assert.Len(t, got.Messages, 1)
		})
	}
}

func TestBackends_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ids, err := b.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, ids)

			require.NoError(t, b.Write(ctx, "one", sampleDocument()))
			require.NoError(t, b.Write(ctx, "two", sampleDocument()))

			ids, err = b.List(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"one", "two"}, ids)

			require.NoError(t, b.Delete(ctx, "one"))
			require.NoError(t, b.Delete(ctx, "one"), "deleting a missing id is not an error")

			_, err = b.Read(ctx, "one")
			assert.ErrorIs(t, err, ErrNotFound)

			ids, err = b.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"two"}, ids)
		})
	}
}

func TestBackends_DistinctIDsNeverShare(t *testing.T) {
	ids := []string{"alice:1", "alice_1", "Alice_1", "alice.1", "../alice_1"}
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range ids {
				doc := sampleDocument()
				doc.LastTalkTime = id
				require.NoError(t, b.Write(ctx, id, doc))
			}

			for _, id := range ids {
				got, err := b.Read(ctx, id)
				require.NoError(t, err, id)
				assert.Equal(t, id, got.LastTalkTime, "document for %q", id)
			}

			listed, err := b.List(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, ids, listed)

			require.NoError(t, b.Delete(ctx, "alice:1"))
			_, err = b.Read(ctx, "alice_1")
			assert.NoError(t, err, "deleting one id leaves its neighbours")
		})
	}
}

func TestFileBackend_Layout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sessions")
	fb, err := NewFileBackend(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ids, err := fb.List(ctx)
	require.NoError(t, err, "missing directory lists as empty")
	assert.Empty(t, ids)

	require.NoError(t, fb.Write(ctx, "../escape", sampleDocument()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	assert.True(t, strings.HasSuffix(name, ".json"))
	assert.NotContains(t, name, "/")

	info, err := entries[0].Info()
	require.NoError(t, err)
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	for _, key := range []string{`"style"`, `"messages"`, `"last_talk_time"`, `"memories"`, `"thinking_level"`} {
		assert.Contains(t, string(data), key)
	}
	assert.Contains(t, string(data), "<b>bold</b> & why?", "html is not escaped")
}

func TestFileBackend_RejectsUnknownRole(t *testing.T) {
	dir := t.TempDir()
	doc := `{"style":"casual","messages":[{"role":"tool","content":"x"}],"last_talk_time":"","memories":[],"thinking_level":"deep"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(doc), 0600))

	fb, err := NewFileBackend(dir)
	require.NoError(t, err)

	_, err = fb.Read(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileBackend_ReadsLegacyDocument(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
  "style": "sarcastic",
  "messages": [{"role": "system", "content": "sys"}, {"role": "user", "content": "hi"}],
  "last_talk_time": "08:15:00",
  "memories": [],
  "thinking_level": "analytical"
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte(legacy), 0600))

	st := NewStore(mustFileBackend(t, dir), Options{})
	sess, err := st.Load(context.Background(), "old")
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 2)
	assert.Equal(t, model.ModeAnalytical, sess.ThinkingLevel)
	assert.Equal(t, "08:15:00", sess.LastTalkTime)
	assert.False(t, sess.CreatedAt.IsZero())
}

func mustFileBackend(t *testing.T, dir string) *FileBackend {
	t.Helper()
	fb, err := NewFileBackend(dir)
	require.NoError(t, err)
	return fb
}
