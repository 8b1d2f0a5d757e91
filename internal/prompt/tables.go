// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"time"

	"github.com/morales-javx/javxseek/internal/model"
)

// =============================================================================
// THINKING MODES
// =============================================================================

// modeDescription returns the reasoning directive for a mode.
func modeDescription(mode model.ThinkingMode) string {
	switch mode {
	case model.ModeCreative:
		return "Offer inventive, unconventional solutions. Step outside the usual " +
			"frame, combine ideas from different fields and be bold but practical."
	case model.ModeAnalytical:
		return "Reason rigorously from data and logic. Break the problem into its " +
			"parts, support every claim with facts or evidence and give a " +
			"structured analysis with a clear conclusion."
	default:
		return "You are in deep thinking mode. Give a thorough, in-depth analysis " +
			"that weighs the possibilities and the factors involved. Structure " +
			"the answer as:\n1) Background\n2) Key factors\n3) Solution\n" +
			"4) Potential challenges\n5) Final recommendation\n" +
			"Put each point on its own line."
	}
}

// deepDetail is appended in deep mode only.
const deepDetail = "Make the answer complete: cover at least five key points and " +
	"explain and justify each one."

// =============================================================================
// STYLES
// =============================================================================

// styleDescription returns the tone directive for a style tier.
func styleDescription(style model.Style) string {
	switch style {
	case model.StyleSarcastic:
		return "Playful with a light sarcastic edge. Tease gently, never insult."
	case model.StyleWitty:
		return "Witty and clever. Use wordplay and quick jokes to keep answers lively."
	case model.StyleAbsurd:
		return "Wildly imaginative. Reach for absurd analogies and surprising " +
			"angles while keeping the facts straight."
	case model.StyleDeadpan:
		return "Deadpan and formal. Deliver everything with a straight face and " +
			"precise, professional wording."
	default:
		return "Natural, relaxed and friendly, like an everyday conversation in " +
			"plain language."
	}
}

// =============================================================================
// SAMPLING
// =============================================================================

// Sampling holds the generation parameters sent with a turn.
type Sampling struct {
	Temperature float64
	MaxTokens   int
}

// SamplingFor returns the parameters for a mode. Deep mode runs cooler with
// a larger budget.
func SamplingFor(mode model.ThinkingMode) Sampling {
	switch mode {
	case model.ModeCreative, model.ModeAnalytical:
		return Sampling{Temperature: 0.9, MaxTokens: 1024}
	default:
		return Sampling{Temperature: 0.7, MaxTokens: 2048}
	}
}

// =============================================================================
// MONTH EVENTS
// =============================================================================

// monthEvents is indexed by time.Month; slot 0 is unused.
var monthEvents = [...]string{
	time.January:   "the new year is starting and people are drawing up annual plans",
	time.February:  "early-year technology forecasts and industry outlooks are hot topics",
	time.March:     "spring is peak season for product launches and hiring",
	time.April:     "green technology and sustainability are in focus",
	time.May:       "mid-year reviews of project progress are under way",
	time.June:      "technical conferences and product releases are clustered this month",
	time.July:      "summer is a good time for innovation and experiments",
	time.August:    "holiday season means work rhythms shift",
	time.September: "autumn is the high season for academic and technical events",
	time.October:   "the year end is approaching and projects are wrapping up",
	time.November:  "teams are preparing year-end reviews and next year's plans",
	time.December:  "year-end summaries and new-year plans dominate",
}

// defaultEvent is used if the month lookup ever comes back empty.
const defaultEvent = "technology keeps moving fast, especially in AI and data"

// monthEvent returns the background blurb for the given month.
func monthEvent(m time.Month) string {
	if m < time.January || m > time.December {
		return defaultEvent
	}
	if e := monthEvents[m]; e != "" {
		return e
	}
	return defaultEvent
}
