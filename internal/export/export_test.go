// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/storage"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testSession() *model.Session {
	s := model.NewSession("alice", "be nice", fixedNow)
	s.AppendTurn("hi", "Hello **there**", false)
	s.LastTalkTime = "09:26:53"
	s.Memories = []model.MemoryEntry{{Time: "09:26:53", Content: "hi → Hello..."}}
	return s
}

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func TestNew(t *testing.T) {
	for _, f := range []Format{FormatMarkdown, "markdown", "MD", FormatJSON} {
		exp, err := New(f, nil)
		require.NoError(t, err, "format %q", f)
		assert.NotNil(t, exp)
	}
	_, err := New("html", nil)
	assert.Error(t, err)
}

func TestMarkdownExporter(t *testing.T) {
	data, err := NewMarkdownExporter(testOptions()).Export(testSession())
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "---\nsession: alice\n"))
	assert.Contains(t, out, "style: casual\n")
	assert.Contains(t, out, "thinking_mode: deep\n")
	assert.Contains(t, out, "exported: 2025-03-14T09:26:53Z\n")
	assert.Contains(t, out, "  - `09:26:53` hi → Hello...\n")
	assert.Contains(t, out, "### You\n\nhi\n\n---\n\n### Javx Seek\n\nHello **there**\n")
	assert.NotContains(t, out, "be nice", "system prompt is left out by default")
}

func TestMarkdownExporter_SystemAndNoMetadata(t *testing.T) {
	opts := testOptions()
	opts.IncludeMetadata = false
	opts.IncludeSystem = true

	data, err := NewMarkdownExporter(opts).Export(testSession())
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "# alice\n\n## Conversation\n\n### System\n\nbe nice\n"))
	assert.NotContains(t, out, "generator:")
}

func TestMarkdownExporter_Rejects(t *testing.T) {
	exp := NewMarkdownExporter(nil)

	_, err := exp.Export(nil)
	assert.Error(t, err)

	_, err = exp.Export(model.NewSession("empty", "sys", fixedNow))
	assert.Error(t, err)
}

func TestJSONExporter_StoredDocument(t *testing.T) {
	data, err := NewJSONExporter(nil).Export(testSession())
	require.NoError(t, err)

	var doc storage.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Messages, 3)
	assert.Equal(t, "09:26:53", doc.LastTalkTime)
	assert.Equal(t, "deep", doc.ThinkingLevel)
	require.NoError(t, doc.Validate())
}

func TestToFile(t *testing.T) {
	opts := testOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "exports")

	path, err := ToFile(testSession(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(opts.OutputDir, "javxseek_alice_20250314_092653.md"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"alice":         "alice",
		"a/b\\c":        "a-b-c",
		"two words":     "two_words",
		"10.0.0.1:5000": "10.0.0.1-5000",
		"":              "session",
		"bell\x07":      "bell-",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), "input %q", in)
	}
}
