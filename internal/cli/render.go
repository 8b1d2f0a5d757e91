// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// =============================================================================
// TEXT WRAPPING
// =============================================================================

// WrapText wraps text to width display columns. Wide runes count as two
// columns, words longer than a line are broken, and existing newlines are
// kept. A width of zero or less returns text unchanged.
func WrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		if runewidth.StringWidth(line) <= width {
			b.WriteString(line)
			continue
		}
		wrapLine(&b, line, width)
	}
	return b.String()
}

func wrapLine(b *strings.Builder, line string, width int) {
	col := 0
	for _, word := range strings.Fields(line) {
		ww := runewidth.StringWidth(word)
		if col > 0 {
			switch {
			case col+1+ww <= width:
				b.WriteByte(' ')
				col++
			case ww <= width || col+1 >= width:
				b.WriteByte('\n')
				col = 0
			default:
				b.WriteByte(' ')
				col++
			}
		}
		for _, r := range word {
			rw := runewidth.RuneWidth(r)
			if col+rw > width && col > 0 {
				b.WriteByte('\n')
				col = 0
			}
			b.WriteRune(r)
			col += rw
		}
	}
}

// =============================================================================
// RENDERER
// =============================================================================

// replyIndent prefixes every line of a streamed reply.
const replyIndent = "  "

// Renderer writes the terminal presentation: colored lines, wrapped text,
// streamed replies and markdown.
type Renderer struct {
	out     io.Writer
	width   int
	profile termenv.Profile
	md      *glamour.TermRenderer
}

// NewRenderer creates a renderer writing to out. Markdown rendering is
// enabled when markdown is set and glamour initializes.
func NewRenderer(out io.Writer, width int, profile termenv.Profile, markdown bool) *Renderer {
	r := &Renderer{out: out, width: clampWidth(width, 0), profile: profile}
	if markdown {
		style := "dark"
		if profile == termenv.Ascii {
			style = "notty"
		}
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(r.width-len(replyIndent)),
		)
		if err == nil {
			r.md = md
		}
	}
	return r
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Println writes a line.
func (r *Renderer) Println(s string) {
	fmt.Fprintln(r.out, s)
}

// Printf writes formatted text.
func (r *Renderer) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Wrapped writes s wrapped to the renderer width.
func (r *Renderer) Wrapped(s string) {
	fmt.Fprintln(r.out, WrapText(s, r.width))
}

// Separator writes a full-width rule.
func (r *Renderer) Separator() {
	fmt.Fprintln(r.out, RenderSeparator(r.width))
}

// Markdown renders s through glamour, or wraps it when markdown is off or
// rendering fails.
func (r *Renderer) Markdown(s string) string {
	if r.md != nil {
		if out, err := r.md.Render(s); err == nil {
			return out
		}
	}
	return indentLines(WrapText(s, r.width-len(replyIndent)), replyIndent) + "\n"
}

// Stream returns a printer for one streamed reply. pacer may be nil.
func (r *Renderer) Stream(ctx context.Context, pacer *Pacer) *StreamPrinter {
	return &StreamPrinter{
		ctx:    ctx,
		w:      r.out,
		width:  r.width,
		indent: replyIndent,
		paint:  paintFunc(r.profile, "75"),
		pacer:  pacer,
	}
}

func indentLines(s, indent string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = indent + l
		}
	}
	return strings.Join(lines, "\n")
}

// paintFunc colors text with a termenv foreground, or not at all for Ascii.
func paintFunc(profile termenv.Profile, color string) func(string) string {
	if profile == termenv.Ascii {
		return func(s string) string { return s }
	}
	c := profile.Color(color)
	return func(s string) string {
		return termenv.String(s).Foreground(c).String()
	}
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

// StreamPrinter writes reply fragments as they arrive, wrapping by display
// width and pacing each character.
type StreamPrinter struct {
	ctx    context.Context
	w      io.Writer
	width  int
	indent string
	paint  func(string) string
	pacer  *Pacer

	col     int
	wrapped bool
}

// Write prints one fragment.
func (p *StreamPrinter) Write(fragment string) {
	indentWidth := runewidth.StringWidth(p.indent)
	for _, r := range fragment {
		switch r {
		case '\r':
			continue
		case '\n':
			p.newline()
			p.wrapped = false
			p.pacer.Wait(p.ctx, r)
			continue
		}

		if p.col == 0 {
			io.WriteString(p.w, p.indent)
			p.col = indentWidth
		}

		rw := runewidth.RuneWidth(r)
		if p.col+rw > p.width && p.col > indentWidth {
			p.newline()
			io.WriteString(p.w, p.indent)
			p.col = indentWidth
			p.wrapped = true
		}
		if r == ' ' && p.wrapped && p.col == indentWidth {
			continue
		}
		p.wrapped = false

		io.WriteString(p.w, p.paint(string(r)))
		p.col += rw
		p.pacer.Wait(p.ctx, r)
	}
}

func (p *StreamPrinter) newline() {
	io.WriteString(p.w, "\n")
	p.col = 0
}

// Finish ends the current line.
func (p *StreamPrinter) Finish() {
	if p.col > 0 {
		p.newline()
	}
}
