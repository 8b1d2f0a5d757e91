// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// STYLE TIERS
// =============================================================================

// Style is the reply tone unlocked by how much the user has talked.
type Style string

const (
	StyleCasual    Style = "casual"
	StyleSarcastic Style = "sarcastic"
	StyleWitty     Style = "witty"
	StyleAbsurd    Style = "absurd"
	StyleDeadpan   Style = "deadpan"
)

// DefaultStyle is used for fresh sessions and unknown style keys.
const DefaultStyle = StyleCasual

type tier struct {
	style    Style
	minUsers int
	label    string
}

// tiers is ordered by threshold; StyleFor walks it from the top.
var tiers = []tier{
	{StyleCasual, 0, "😜 casual"},
	{StyleSarcastic, 10, "😏 sarcastic"},
	{StyleWitty, 20, "🤓 witty"},
	{StyleAbsurd, 30, "🤪 absurd"},
	{StyleDeadpan, 40, "😐 deadpan"},
}

// MaxStyleThreshold is the user message count that unlocks the last tier.
var MaxStyleThreshold = tiers[len(tiers)-1].minUsers

// StyleFor maps a count of user messages onto its tier.
func StyleFor(userCount int) Style {
	for i := len(tiers) - 1; i >= 0; i-- {
		if userCount >= tiers[i].minUsers {
			return tiers[i].style
		}
	}
	return DefaultStyle
}

// NextStyleAt returns the next tier above userCount and the count that
// unlocks it. ok is false once the last tier is reached.
func NextStyleAt(userCount int) (next Style, at int, ok bool) {
	for _, t := range tiers {
		if t.minUsers > userCount {
			return t.style, t.minUsers, true
		}
	}
	return "", 0, false
}

// ParseStyle resolves a style key. Unknown keys resolve to DefaultStyle
// with ok set to false.
func ParseStyle(s string) (Style, bool) {
	for _, t := range tiers {
		if string(t.style) == s {
			return t.style, true
		}
	}
	return DefaultStyle, false
}

// Valid reports whether s is a known tier.
func (s Style) Valid() bool {
	_, ok := ParseStyle(string(s))
	return ok
}

// Label returns the display label for the style.
func (s Style) Label() string {
	for _, t := range tiers {
		if t.style == s {
			return t.label
		}
	}
	return tiers[0].label
}

// String returns the style key.
func (s Style) String() string {
	return string(s)
}

// Styles returns every tier in threshold order.
func Styles() []Style {
	out := make([]Style, len(tiers))
	for i, t := range tiers {
		out[i] = t.style
	}
	return out
}

// Rank returns the tier index of s, or -1 for an unknown style.
func (s Style) Rank() int {
	for i, t := range tiers {
		if t.style == s {
			return i
		}
	}
	return -1
}
