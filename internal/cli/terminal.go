// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// TERMINAL WIDTH DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 20
)

// TerminalWidth returns the stdout width capped at maxWidth. A maxWidth of
// zero or less means no cap.
func TerminalWidth(maxWidth int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = DefaultTerminalWidth
	}
	return clampWidth(width, maxWidth)
}

func clampWidth(width, maxWidth int) int {
	if maxWidth > 0 && width > maxWidth {
		width = maxWidth
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

// Color modes accepted by ui.color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ColorsEnabled reports whether colored output should be used for mode.
// In auto mode NO_COLOR disables colors, FORCE_COLOR enables them, and
// otherwise stdout must be a terminal. See https://no-color.org/.
func ColorsEnabled(mode string) bool {
	switch strings.ToLower(mode) {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return IsStdoutTTY()
}

// ColorProfile returns the termenv profile for mode: Ascii when colors are
// off, otherwise what the terminal reports.
func ColorProfile(mode string) termenv.Profile {
	if !ColorsEnabled(mode) {
		return termenv.Ascii
	}
	if p := termenv.ColorProfile(); p != termenv.Ascii {
		return p
	}
	// Forced on a terminal that reports nothing
	return termenv.ANSI256
}
