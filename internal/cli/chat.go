// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/morales-javx/javxseek/internal/cloud"
	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/session"
	"github.com/morales-javx/javxseek/internal/storage"
	"github.com/morales-javx/javxseek/internal/util"
)

// Prompts.
const (
	PromptUser    = "you → "
	PromptConfirm = "clear this session? (y/n) "
)

// historyFileName is the input history file under the config dir.
const historyFileName = "input_history"

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of input.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// ChatCLI provides input history and line editing for the chat REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor and loads history from historyFile.
// An empty historyFile disables persistence.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads a line, adding non-empty input to history.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history, owner read/write only.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.historyFile), util.DefaultDirPerm); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// repl drives one terminal chat session.
type repl struct {
	chat  *session.Chat
	in    lineReader
	out   *Renderer
	pacer *Pacer

	// interruptible returns a context cancelled by the first Ctrl+C.
	interruptible func(context.Context) (context.Context, context.CancelFunc)

	now func() time.Time
}

func newREPL(chat *session.Chat, in lineReader, out *Renderer, pacer *Pacer) *repl {
	return &repl{
		chat:  chat,
		in:    in,
		out:   out,
		pacer: pacer,
		interruptible: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
		now: time.Now,
	}
}

// Run reads input until exit or end of input.
func (r *repl) Run(ctx context.Context) error {
	r.welcome(ctx)

	for {
		if ctx.Err() != nil {
			return r.exit(ctx)
		}

		input, err := r.in.Prompt(PromptUser)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			r.out.Println(WarningStyle.Render("type exit to quit"))
			continue
		case errors.Is(err, io.EOF):
			r.out.Println("")
			return r.exit(ctx)
		case err != nil:
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			r.out.Println(WarningStyle.Render("say something first"))
			continue
		}

		if cmd, ok := ParseCommand(input); ok {
			if cmd.Kind == CmdExit {
				return r.exit(ctx)
			}
			r.command(ctx, cmd)
			continue
		}

		r.turn(ctx, input)
	}
}

// welcome prints the banner, the command list and a recap of the last
// reply when the session is resumed.
func (r *repl) welcome(ctx context.Context) {
	sess := r.chat.Session(ctx)

	r.out.Println("")
	r.out.Println(TitleStyle.Render("javxseek"))
	r.out.Separator()
	r.out.Println(RenderField("style", sess.CurrentStyle().Label()))
	r.out.Println(RenderField("mode", string(r.chat.ThinkingMode())))
	r.out.Println(RenderField("model", r.chat.Model()))
	if sess.LastTalkTime != "" {
		r.out.Println(RenderField("last talk", sess.LastTalkTime))
	}
	r.out.Println("")
	r.help()

	if last, ok := sess.LastAssistant(); ok && sess.UserCount() > 0 {
		r.out.Println(DimStyle.Render("last time:"))
		r.out.Printf("%s", r.out.Markdown(last.Content))
		r.out.Separator()
	}
}

func (r *repl) help() {
	for _, c := range commandHelp {
		r.out.Println("  " + AccentStyle.Render(fmt.Sprintf("%-30s", c.name)) + DimStyle.Render(c.desc))
	}
	r.out.Println("")
}

func (r *repl) exit(ctx context.Context) error {
	if err := r.chat.Flush(context.WithoutCancel(ctx)); err != nil {
		r.out.Println(WarningStyle.Render("session could not be saved: " + err.Error()))
	}
	r.out.Println(SuccessStyle.Render("see you next time"))
	return nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func (r *repl) command(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case CmdReset:
		r.reset(ctx)
	case CmdStyle:
		r.style(ctx)
	case CmdMemory:
		r.memory(ctx)
	case CmdModel:
		r.out.Println(SuccessStyle.Render("model → " + r.chat.RotateModel()))
	case CmdMode:
		if err := r.chat.SetThinkingMode(ctx, cmd.Mode); err != nil {
			r.out.Println(WarningStyle.Render("mode set, but not saved: " + err.Error()))
		}
		r.out.Println(SuccessStyle.Render("thinking mode → " + string(cmd.Mode)))
	case CmdHumor:
		on := !r.chat.Humor()
		r.chat.SetHumor(on)
		state := "off"
		if on {
			state = "on"
		}
		r.out.Println(SuccessStyle.Render("humor " + state))
	case CmdHelp:
		r.help()
	}
}

func (r *repl) reset(ctx context.Context) {
	answer, err := r.in.Prompt(PromptConfirm)
	if err != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
		r.out.Println(DimStyle.Render("kept"))
		return
	}
	if err := r.chat.Reset(ctx); err != nil {
		r.out.Println(WarningStyle.Render("cleared here, but the stored copy remains: " + err.Error()))
		return
	}
	r.out.Println(SuccessStyle.Render("session cleared, starting over"))
}

func (r *repl) style(ctx context.Context) {
	info := r.chat.StyleInfo(ctx)
	r.out.Println(RenderField("style", info.Style.Label()))
	if info.HasNext {
		r.out.Println(RenderField("progress", fmt.Sprintf("%d/%d", info.UserCount, info.NextAt)))
		r.out.Println(RenderField("next", info.Next.Label()))
	} else {
		r.out.Println(RenderField("progress", fmt.Sprintf("%d (top tier)", info.UserCount)))
	}
}

func (r *repl) memory(ctx context.Context) {
	entries := r.chat.Memories(ctx, 5)
	if len(entries) == 0 {
		r.out.Println(DimStyle.Render("our story is just beginning"))
		return
	}
	for _, e := range entries {
		r.out.Wrapped(DimStyle.Render(e.Time) + " " + e.Content)
	}
}

// =============================================================================
// TURNS
// =============================================================================

func (r *repl) turn(ctx context.Context, input string) {
	turnCtx, stop := r.interruptible(ctx)
	defer stop()

	r.out.Println(DimStyle.Render(r.now().Format(storage.TalkTimeLayout)) + " " +
		AssistantStyle.Render(r.chat.Model()))

	printer := r.out.Stream(turnCtx, r.pacer)
	res, err := r.chat.Turn(turnCtx, input, session.TurnOptions{}, printer.Write)
	printer.Finish()

	if err != nil {
		r.out.Println(ErrorStyle.Render(session.Describe(err)))
		var se *cloud.StreamError
		if errors.As(err, &se) && se.Partial != "" {
			r.out.Println(DimStyle.Render("the partial reply above was not saved"))
		}
		return
	}

	if res.Partial {
		r.out.Println(WarningStyle.Render("[interrupted, partial reply saved]"))
	}
	if res.SaveErr != nil {
		r.out.Println(WarningStyle.Render(session.Describe(res.SaveErr)))
	}
	if res.StyleChanged {
		r.out.Println(AccentStyle.Render("✨ style upgrade: " + res.Style.Label() + " ✨"))
	}
	r.out.Println("")
}

// historyPath returns the input history file for dir, or "" when dir is empty.
func historyPath(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, historyFileName)
}

// runChat starts the REPL for the --session id.
func runChat(ctx context.Context, a *app, id string, in lineReader, out io.Writer) error {
	ui := a.cfg.UI
	ApplyColorMode(ui.Color)
	profile := ColorProfile(ui.Color)

	var pacer *Pacer
	if ui.TypingEffect {
		pacer = NewPacer()
	}

	r := newREPL(a.newChat(id), in, NewRenderer(out, TerminalWidth(ui.MaxWidth), profile, ui.Markdown), pacer)
	return r.Run(ctx)
}

// turnMode is a command-line mode override, "" when unset.
func turnMode(s string) (model.ThinkingMode, error) {
	if s == "" {
		return "", nil
	}
	mode, ok := model.ParseThinkingMode(s)
	if !ok {
		return "", fmt.Errorf("unknown thinking mode %q", s)
	}
	return mode, nil
}
