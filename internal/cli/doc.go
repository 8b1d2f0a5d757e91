// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the javxseek command tree and the interactive
// terminal chat.
//
// The terminal client reads input with line editing and history, streams
// replies with a typing effect paced per character class, and wraps output
// by display width so CJK text lines up.
//
// # Key Types
//
//   - ChatCLI: liner-backed line editor with persistent input history
//   - Renderer: colored, wrapped and markdown output
//   - StreamPrinter: writes reply fragments as they arrive
//   - Pacer: per-character typing delays with jitter
//   - Command: a parsed REPL control command
//
// # Usage
//
//	if err := cli.Execute(); err != nil {
//	    fmt.Fprintln(os.Stderr, err)
//	    os.Exit(1)
//	}
//
// # Commands Overview
//
//   - chat: interactive chat (default)
//   - ask: one message, reply on stdout
//   - serve: web backend with SSE streaming
//   - reset, memory, style, sessions: session management
//   - export: session transcript as Markdown or JSON
//   - config: show, path, keys, get and set
//   - version: build information
package cli
