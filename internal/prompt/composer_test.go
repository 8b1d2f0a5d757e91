// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morales-javx/javxseek/internal/model"
)

var fixedNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func testComposer() *Composer {
	c := NewComposer()
	c.Now = func() time.Time { return fixedNow }
	return c
}

func sessionWithTurns(n int) *model.Session {
	s := model.NewSession("t", "stored system prompt", fixedNow)
	for i := 0; i < n; i++ {
		s.AppendTurn(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), false)
	}
	return s
}

func TestCompose_Order(t *testing.T) {
	c := testComposer()
	msgs := c.Compose(Request{
		Session:  sessionWithTurns(2),
		Mode:     model.ModeCreative,
		Style:    model.StyleWitty,
		UserText: "next question",
	})

	require.Len(t, msgs, 6)
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.NotContains(t, msgs[0].Content, "stored system prompt")
	assert.Equal(t, []string{"q0", "a0", "q1", "a1"}, contents(msgs[1:5]))
	assert.Equal(t, model.NewUserMessage("next question"), msgs[5])
}

func TestCompose_NilSession(t *testing.T) {
	msgs := testComposer().Compose(Request{Mode: model.ModeDeep, UserText: "hi"})
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.Equal(t, "hi", msgs[1].Content)
}

func TestCompose_UnknownModeMatchesDeep(t *testing.T) {
	c := testComposer()
	s := sessionWithTurns(3)

	deep := c.Compose(Request{Session: s, Mode: model.ModeDeep, Style: model.StyleCasual, Humor: true, UserText: "x"})
	unknown := c.Compose(Request{Session: s, Mode: model.ThinkingMode("xyz"), Style: model.StyleCasual, Humor: true, UserText: "x"})

	assert.Equal(t, deep, unknown)
}

func TestCompose_UnknownStyleMatchesCasual(t *testing.T) {
	c := testComposer()
	casual := c.SystemPrompt(model.ModeAnalytical, model.StyleCasual, false, "")
	unknown := c.SystemPrompt(model.ModeAnalytical, model.Style("professional"), false, "")
	assert.Equal(t, casual, unknown)
}

func TestSystemPrompt_HumorSuppressedInDeep(t *testing.T) {
	c := testComposer()
	const humorLine = "Add some humor"

	assert.NotContains(t, c.SystemPrompt(model.ModeDeep, model.StyleCasual, true, ""), humorLine)
	assert.Contains(t, c.SystemPrompt(model.ModeCreative, model.StyleCasual, true, ""), humorLine)
	assert.NotContains(t, c.SystemPrompt(model.ModeCreative, model.StyleCasual, false, ""), humorLine)
}

func TestSystemPrompt_Contents(t *testing.T) {
	p := testComposer().SystemPrompt(model.ModeDeep, model.StyleSarcastic, false, "")

	assert.Contains(t, p, "Javx Seek")
	assert.Contains(t, p, "2025-03-14")
	assert.Contains(t, p, monthEvent(time.March))
	assert.Contains(t, p, modeDescription(model.ModeDeep))
	assert.Contains(t, p, styleDescription(model.StyleSarcastic))
	assert.Contains(t, p, deepDetail)
	assert.Contains(t, p, "fenced code blocks")
}

func TestSystemPrompt_DeepDetailOnlyInDeep(t *testing.T) {
	c := testComposer()
	assert.NotContains(t, c.SystemPrompt(model.ModeAnalytical, model.StyleCasual, false, ""), deepDetail)
}

func TestSystemPrompt_RebuiltEachTurn(t *testing.T) {
	c := testComposer()
	first := c.SystemPrompt(model.ModeDeep, model.StyleCasual, false, "")

	c.Now = func() time.Time { return fixedNow.AddDate(0, 1, 0) }
	second := c.SystemPrompt(model.ModeDeep, model.StyleCasual, false, "")

	assert.NotEqual(t, first, second)
	assert.Contains(t, second, "2025-04-14")
	assert.Contains(t, second, monthEvent(time.April))
}

func TestDisclosureRule_Gated(t *testing.T) {
	c := testComposer()

	quiet := c.SystemPrompt(model.ModeDeep, model.StyleCasual, false, "what is a mutex?")
	assert.NotContains(t, quiet, DefaultDeveloper)
	assert.Contains(t, quiet, "Do not bring up your developer")

	asked := c.SystemPrompt(model.ModeDeep, model.StyleCasual, false, "Who made you, anyway?")
	assert.Contains(t, asked, DefaultDeveloper)
}

func TestTriggered_Normalization(t *testing.T) {
	c := testComposer()
	tests := []struct {
		text string
		want bool
	}{
		{"Tell me about your DEVELOPER", true},
		{"ｄｅｖｅｌｏｐｅｒ", true},
		{"你的开发者是谁", true},
		{"how do I develop apps", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.Triggered(tt.text); got != tt.want {
			t.Errorf("Triggered(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestHistory_Window(t *testing.T) {
	c := testComposer()
	c.HistoryWindow = 4

	got := contents(c.History(sessionWithTurns(5)))
	assert.Equal(t, []string{"q3", "a3", "q4", "a4"}, got)
}

func TestHistory_WindowNeverOpensOnAssistant(t *testing.T) {
	c := testComposer()
	c.HistoryWindow = 3

	got := contents(c.History(sessionWithTurns(5)))
	assert.Equal(t, []string{"q4", "a4"}, got)
}

func TestHistory_DropsSystemMessages(t *testing.T) {
	s := sessionWithTurns(1)
	s.Messages = append(s.Messages, model.NewSystemMessage("interleaved"))

	got := contents(testComposer().History(s))
	assert.Equal(t, []string{"q0", "a0"}, got)
}

func TestSamplingFor(t *testing.T) {
	assert.Equal(t, Sampling{Temperature: 0.7, MaxTokens: 2048}, SamplingFor(model.ModeDeep))
	assert.Equal(t, Sampling{Temperature: 0.9, MaxTokens: 1024}, SamplingFor(model.ModeCreative))
	assert.Equal(t, Sampling{Temperature: 0.9, MaxTokens: 1024}, SamplingFor(model.ModeAnalytical))
	assert.Equal(t, SamplingFor(model.ModeDeep), SamplingFor(model.ThinkingMode("xyz")))
}

func TestMonthEvents_Complete(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		if monthEvent(m) == defaultEvent {
			t.Errorf("month %v has no event", m)
		}
	}
	if monthEvent(time.Month(13)) != defaultEvent {
		t.Error("out-of-range month should use default event")
	}
}

func TestDescriptions_Exhaustive(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range model.Styles() {
		d := styleDescription(s)
		if seen[d] {
			t.Errorf("style %q shares a description", s)
		}
		seen[d] = true
	}
	if !strings.Contains(modeDescription(model.ModeCreative), "inventive") {
		t.Error("creative description missing")
	}
}

func contents(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
