// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for the banner and section titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// UserStyle colors the user's prompt and echoed messages
	UserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	// AssistantStyle colors streamed replies
	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")) // Blue

	// AccentStyle highlights commands and style upgrades
	AccentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")) // Pink

	// SuccessStyle is used for confirmations
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	// ErrorStyle is used for error messages and failures
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// WarningStyle is used for warnings and hints
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	// DimStyle is used for timestamps and secondary information
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	// SeparatorStyle is used for visual separators
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // Dark gray

	// LabelStyle is used for field labels in listings
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)
)

// ApplyColorMode sets the lipgloss color profile for mode.
func ApplyColorMode(mode string) {
	lipgloss.SetColorProfile(ColorProfile(mode))
}

// RenderSeparator renders a horizontal rule of the given width.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = DefaultTerminalWidth
	}
	return SeparatorStyle.Render(strings.Repeat("─", width))
}

// RenderField renders "label value" with an aligned label.
func RenderField(label, value string) string {
	return LabelStyle.Render(label) + value
}
