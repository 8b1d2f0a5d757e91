// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morales-javx/javxseek/internal/cloud"
	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/session"
	"github.com/morales-javx/javxseek/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// fakeStreamer serves the same fragments for every turn unless err is set.
type fakeStreamer struct {
	mu        sync.Mutex
	fragments []string
	err       error
}

func (f *fakeStreamer) OpenStream(_ context.Context, _ cloud.Payload) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var b strings.Builder
	for _, frag := range f.fragments {
		fmt.Fprintf(&b, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", frag)
	}
	b.WriteString("data: [DONE]\n\n")
	return io.NopCloser(strings.NewReader(b.String())), nil
}

// step is one scripted Prompt result.
type step struct {
	line string
	err  error
}

// scriptedReader replays steps, then reports end of input.
type scriptedReader struct {
	steps   []step
	prompts []string
}

func lines(ss ...string) *scriptedReader {
	r := &scriptedReader{}
	for _, s := range ss {
		r.steps = append(r.steps, step{line: s})
	}
	return r
}

func (r *scriptedReader) Prompt(p string) (string, error) {
	r.prompts = append(r.prompts, p)
	if len(r.steps) == 0 {
		return "", io.EOF
	}
	s := r.steps[0]
	r.steps = r.steps[1:]
	return s.line, s.err
}

type replEnv struct {
	chat     *session.Chat
	streamer *fakeStreamer
	out      *bytes.Buffer
}

func newReplEnv(t *testing.T, historyCap int) *replEnv {
	t.Helper()
	ApplyColorMode(ColorNever)

	store := storage.NewStore(storage.NewMemoryBackend(), storage.Options{
		Cap: historyCap,
		Now: func() time.Time { return fixedNow },
	})
	streamer := &fakeStreamer{fragments: []string{"Hel", "lo"}}
	chat := session.NewChat("cli", store, nil, streamer, session.Options{
		Models: []string{"m1", "m2"},
		Now:    func() time.Time { return fixedNow },
	})
	return &replEnv{chat: chat, streamer: streamer, out: &bytes.Buffer{}}
}

func (e *replEnv) run(t *testing.T, in lineReader) string {
	t.Helper()
	r := newREPL(e.chat, in, NewRenderer(e.out, 80, termenv.Ascii, false), nil)
	r.interruptible = func(ctx context.Context) (context.Context, context.CancelFunc) {
		return context.WithCancel(ctx)
	}
	r.now = func() time.Time { return fixedNow }

	require.NoError(t, r.Run(context.Background()))
	return e.out.String()
}

// =============================================================================
// REPL TESTS
// =============================================================================

func TestREPL_TurnStreamsAndPersists(t *testing.T) {
	env := newReplEnv(t, 20)
	in := lines("hi")

	out := env.run(t, in)

	assert.Contains(t, out, "09:26:53 m1")
	assert.Contains(t, out, "  Hello\n")
	assert.Contains(t, out, "see you next time")
	assert.Equal(t, PromptUser, in.prompts[0])

	history := env.chat.History(context.Background())
	require.Len(t, history, 3)
	assert.Equal(t, "hi", history[1].Content)
	assert.Equal(t, "Hello", history[2].Content)
}

func TestREPL_ExitCommandStops(t *testing.T) {
	env := newReplEnv(t, 20)
	in := lines("/EXIT", "hi")

	out := env.run(t, in)

	assert.Contains(t, out, "see you next time")
	assert.Len(t, in.steps, 1, "input after exit must not be read")
	assert.Len(t, env.chat.History(context.Background()), 1)
}

func TestREPL_EmptyInputAndInterrupt(t *testing.T) {
	env := newReplEnv(t, 20)
	in := &scriptedReader{steps: []step{
		{line: "   "},
		{err: liner.ErrPromptAborted},
	}}

	out := env.run(t, in)

	assert.Contains(t, out, "say something first")
	assert.Contains(t, out, "type exit to quit")
	assert.Contains(t, out, "see you next time")
}

func TestREPL_StyleAndMemory(t *testing.T) {
	env := newReplEnv(t, 20)

	out := env.run(t, lines("memory", "style", "hi", "memory"))

	assert.Contains(t, out, "our story is just beginning")
	assert.Contains(t, out, "0/10")
	assert.Contains(t, out, model.StyleSarcastic.Label())
	assert.Contains(t, out, "09:26:53 hi → Hello...")
}

func TestREPL_ResetAsksFirst(t *testing.T) {
	env := newReplEnv(t, 20)
	in := lines("hi", "reset", "n")

	out := env.run(t, in)

	assert.Contains(t, out, "kept")
	assert.Contains(t, in.prompts, PromptConfirm)
	assert.Len(t, env.chat.History(context.Background()), 3)

	env.out.Reset()
	out = env.run(t, lines("reset", "y"))

	assert.Contains(t, out, "session cleared")
	assert.Len(t, env.chat.History(context.Background()), 1)
}

func TestREPL_ModelModeHumor(t *testing.T) {
	env := newReplEnv(t, 20)

	out := env.run(t, lines("model", "creative", "humor"))

	assert.Contains(t, out, "model → m2")
	assert.Contains(t, out, "thinking mode → creative")
	assert.Contains(t, out, "humor on")
	assert.Equal(t, "m2", env.chat.Model())
	assert.Equal(t, model.ModeCreative, env.chat.ThinkingMode())
	assert.True(t, env.chat.Humor())
}

func TestREPL_TurnError(t *testing.T) {
	env := newReplEnv(t, 20)
	env.streamer.err = cloud.ErrAuthFailed

	out := env.run(t, lines("hi"))

	assert.Contains(t, out, session.Describe(cloud.ErrAuthFailed))
	assert.Len(t, env.chat.History(context.Background()), 1)
}

func TestREPL_StyleUpgradeNotice(t *testing.T) {
	env := newReplEnv(t, storage.DefaultCap)
	ctx := context.Background()
	for i := 0; i < 9; i++ {
		_, err := env.chat.Turn(ctx, "warm up", session.TurnOptions{}, nil)
		require.NoError(t, err)
	}

	out := env.run(t, lines("one more"))

	assert.Contains(t, out, "✨ style upgrade: "+model.StyleSarcastic.Label()+" ✨")
}

func TestREPL_WelcomeRecapsLastReply(t *testing.T) {
	env := newReplEnv(t, 20)
	_, err := env.chat.Turn(context.Background(), "hi", session.TurnOptions{}, nil)
	require.NoError(t, err)

	out := env.run(t, lines())

	assert.Contains(t, out, "last talk")
	assert.Contains(t, out, "last time:")
	assert.Contains(t, out, "  Hello")
}

func TestHistoryPath(t *testing.T) {
	assert.Empty(t, historyPath(""))
	assert.Equal(t, filepath.Join("home", historyFileName), historyPath("home"))
}

func TestTurnMode(t *testing.T) {
	mode, err := turnMode("")
	require.NoError(t, err)
	assert.Empty(t, mode)

	mode, err = turnMode("analytical")
	require.NoError(t, err)
	assert.Equal(t, model.ModeAnalytical, mode)

	_, err = turnMode("sleepy")
	assert.Error(t, err)
}
