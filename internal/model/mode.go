// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// THINKING MODE
// =============================================================================

// ThinkingMode selects how the assistant is asked to reason.
type ThinkingMode string

const (
	ModeDeep       ThinkingMode = "deep"
	ModeCreative   ThinkingMode = "creative"
	ModeAnalytical ThinkingMode = "analytical"
)

// DefaultThinkingMode is used for fresh sessions and unknown mode keys.
const DefaultThinkingMode = ModeDeep

// ThinkingModes lists every mode.
func ThinkingModes() []ThinkingMode {
	return []ThinkingMode{ModeDeep, ModeCreative, ModeAnalytical}
}

// ParseThinkingMode resolves a mode key. Unknown keys resolve to
// DefaultThinkingMode with ok set to false.
func ParseThinkingMode(s string) (ThinkingMode, bool) {
	switch ThinkingMode(s) {
	case ModeDeep, ModeCreative, ModeAnalytical:
		return ThinkingMode(s), true
	default:
		return DefaultThinkingMode, false
	}
}

// Valid reports whether m is a known mode.
func (m ThinkingMode) Valid() bool {
	_, ok := ParseThinkingMode(string(m))
	return ok
}

// AllowsHumor reports whether humor may be injected in this mode.
// Deep mode never jokes.
func (m ThinkingMode) AllowsHumor() bool {
	return m != ModeDeep
}

// String returns the mode key.
func (m ThinkingMode) String() string {
	return string(m)
}
