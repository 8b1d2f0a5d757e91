// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/morales-javx/javxseek/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a session to Markdown.
func (e *MarkdownExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if sess.UserCount() == 0 {
		return nil, fmt.Errorf("session %q has no conversation yet", sess.ID)
	}

	var sb strings.Builder
	style := sess.CurrentStyle()

	// YAML front matter
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "session: %s\n", escapeYAML(sess.ID))
		fmt.Fprintf(&sb, "style: %s\n", style)
		fmt.Fprintf(&sb, "thinking_mode: %s\n", sess.ThinkingLevel)
		fmt.Fprintf(&sb, "messages: %d\n", len(sess.Messages))
		if !sess.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "created: %s\n", sess.CreatedAt.Format(time.RFC3339))
		}
		if sess.LastTalkTime != "" {
			fmt.Fprintf(&sb, "last_talk_time: \"%s\"\n", sess.LastTalkTime)
		}
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("generator: javxseek\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(sess.ID))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session\n\n")
		fmt.Fprintf(&sb, "- **Style**: %s, %d messages from you\n", style.Label(), sess.UserCount())
		fmt.Fprintf(&sb, "- **Thinking mode**: %s\n", sess.ThinkingLevel)
		if len(sess.Memories) > 0 {
			sb.WriteString("- **Recent memories**:\n")
			for _, m := range sess.Memories {
				fmt.Fprintf(&sb, "  - `%s` %s\n", m.Time, m.Content)
			}
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")

	first := true
	for _, msg := range sess.Messages {
		if msg.IsSystem() && !e.options.IncludeSystem {
			continue
		}
		if !first {
			sb.WriteString("---\n\n")
		}
		first = false

		fmt.Fprintf(&sb, "### %s\n\n", msg.Role.DisplayName())
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes values holding YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
