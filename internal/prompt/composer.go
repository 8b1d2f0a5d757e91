// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/morales-javx/javxseek/internal/model"
)

// Defaults for a Composer built by NewComposer.
const (
	DefaultIdentity  = "Javx Seek"
	DefaultDeveloper = "Morales-Javx"
)

// DefaultTriggers are the phrases that unlock the persona-disclosure answer.
var DefaultTriggers = []string{
	"developer", "author", "creator", "who made you", "who built you",
	"who created you", "开发者", "作者", "javx",
}

// Request is the input for one composed turn.
type Request struct {
	Session  *model.Session
	Mode     model.ThinkingMode
	Style    model.Style
	Humor    bool
	UserText string
}

// Composer builds the submitted message list. The zero value is usable; the
// exported fields only override defaults.
type Composer struct {
	// Identity is the assistant's name.
	Identity string

	// Developer is named by the persona-disclosure answer.
	Developer string

	// Triggers are matched case-insensitively after NFKC normalization.
	Triggers []string

	// HistoryWindow bounds how many prior messages are sent. Zero sends
	// the whole stored history.
	HistoryWindow int

	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// NewComposer returns a Composer with the default identity and triggers.
func NewComposer() *Composer {
	return &Composer{
		Identity:  DefaultIdentity,
		Developer: DefaultDeveloper,
		Triggers:  DefaultTriggers,
	}
}

// Compose returns the synthesized system message, the bounded history window
// and the new user message, in that order.
func (c *Composer) Compose(req Request) []model.Message {
	var history []model.Message
	if req.Session != nil {
		history = c.History(req.Session)
	}

	msgs := make([]model.Message, 0, len(history)+2)
	msgs = append(msgs, model.NewSystemMessage(c.SystemPrompt(req.Mode, req.Style, req.Humor, req.UserText)))
	msgs = append(msgs, history...)
	msgs = append(msgs, model.NewUserMessage(req.UserText))
	return msgs
}

// SystemPrompt renders the system message. Unknown modes render as deep and
// unknown styles as casual; humor is dropped in deep mode.
func (c *Composer) SystemPrompt(mode model.ThinkingMode, style model.Style, humor bool, userText string) string {
	mode, _ = model.ParseThinkingMode(string(mode))
	style, _ = model.ParseStyle(string(style))

	now := c.now()
	date := now.Format("2006-01-02 (Monday)")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Your name is %s. Today is %s. Current background: %s.\n\n", c.identity(), date, monthEvent(now.Month()))

	fmt.Fprintf(&sb, "Thinking mode: %s. Conversation style: %s.\n", mode, style)
	fmt.Fprintf(&sb, "- Thinking mode: %s\n", modeDescription(mode))
	fmt.Fprintf(&sb, "- Conversation style: %s\n", styleDescription(style))

	if mode == model.ModeDeep {
		sb.WriteString("\n")
		sb.WriteString(deepDetail)
		sb.WriteString("\n")
	}
	if humor && mode.AllowsHumor() {
		sb.WriteString("\nAdd some humor to the answer to make it more fun.\n")
	}

	sb.WriteString("\nWhen showing code, use fenced code blocks with correct indentation and line breaks. ")
	sb.WriteString("Label HTML code blocks as html.\n")

	sb.WriteString("\nSpecific answers:\n")
	sb.WriteString("1. ")
	sb.WriteString(c.disclosureRule(userText))
	sb.WriteString("\n")

	sb.WriteString("\nAnswer format:\n")
	sb.WriteString("1. When answering in points, put each point on its own line\n")
	sb.WriteString("2. Explain complex problems step by step\n")
	sb.WriteString("3. Give concrete examples for technical concepts\n")
	fmt.Fprintf(&sb, "4. Keep answers current (today is %s)", date)

	return sb.String()
}

// History returns the bounded window of prior messages. System messages are
// left out because the synthesized one replaces them, and a window that
// would open on an assistant reply is advanced to the next user message.
func (c *Composer) History(s *model.Session) []model.Message {
	convo := make([]model.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if !m.IsSystem() {
			convo = append(convo, m)
		}
	}

	if c.HistoryWindow > 0 && len(convo) > c.HistoryWindow {
		convo = convo[len(convo)-c.HistoryWindow:]
	}
	for len(convo) > 0 && convo[0].Role == model.RoleAssistant {
		convo = convo[1:]
	}
	return convo
}

// Triggered reports whether userText mentions one of the disclosure triggers.
func (c *Composer) Triggered(userText string) bool {
	text := normalize(userText)
	if text == "" {
		return false
	}
	triggers := c.Triggers
	if triggers == nil {
		triggers = DefaultTriggers
	}
	for _, t := range triggers {
		if t = normalize(t); t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// disclosureRule is the canned persona answer, released only on a trigger.
func (c *Composer) disclosureRule(userText string) string {
	if c.Triggered(userText) {
		return fmt.Sprintf("The user is asking who built you. Answer along these lines: "+
			"\"You mean %s? A programmer with a wildly abstract sense of humor and "+
			"far too many ideas.\" Feel free to add a playful touch.", c.developer())
	}
	return "Do not bring up your developer or author unless the user asks about them."
}

func (c *Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Composer) identity() string {
	if c.Identity == "" {
		return DefaultIdentity
	}
	return c.Identity
}

func (c *Composer) developer() string {
	if c.Developer == "" {
		return DefaultDeveloper
	}
	return c.Developer
}

// normalize folds width and case so "ＤＥＶＥＬＯＰＥＲ" matches "developer".
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}
