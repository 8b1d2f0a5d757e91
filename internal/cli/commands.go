// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/morales-javx/javxseek/internal/model"
)

// =============================================================================
// CONTROL COMMANDS
// =============================================================================

// CommandKind identifies a REPL control command.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdExit
	CmdReset
	CmdStyle
	CmdMemory
	CmdModel
	CmdMode
	CmdHumor
	CmdHelp
)

// Command is a parsed control command.
type Command struct {
	Kind CommandKind

	// Mode is set for CmdMode.
	Mode model.ThinkingMode
}

var commandWords = map[string]CommandKind{
	"exit":   CmdExit,
	"quit":   CmdExit,
	"reset":  CmdReset,
	"style":  CmdStyle,
	"memory": CmdMemory,
	"model":  CmdModel,
	"humor":  CmdHumor,
	"humour": CmdHumor,
	"help":   CmdHelp,
	"?":      CmdHelp,
}

// normalizeCommand folds input for command matching: NFKC, trimmed, lower
// case, one optional leading slash removed.
func normalizeCommand(input string) string {
	s := norm.NFKC.String(input)
	s = strings.TrimFunc(s, unicode.IsSpace)
	s = strings.ToLower(s)
	s = strings.TrimPrefix(s, "/")
	return strings.TrimFunc(s, unicode.IsSpace)
}

// ParseCommand reports whether input is a control command. Anything else,
// including a command word followed by more text, is a chat message.
func ParseCommand(input string) (Command, bool) {
	word := normalizeCommand(input)
	if word == "" {
		return Command{}, false
	}
	if kind, ok := commandWords[word]; ok {
		return Command{Kind: kind}, true
	}
	if mode, ok := model.ParseThinkingMode(word); ok {
		return Command{Kind: CmdMode, Mode: mode}, true
	}
	return Command{}, false
}

// commandHelp is printed by the banner and the help command.
var commandHelp = []struct{ name, desc string }{
	{"exit", "save and quit"},
	{"reset", "clear this session (asks first)"},
	{"style", "show the style tier and progress"},
	{"memory", "show recent turn summaries"},
	{"model", "switch to the next model"},
	{"deep | creative | analytical", "set the thinking mode"},
	{"humor", "toggle the humor line"},
	{"help", "show this list"},
}
