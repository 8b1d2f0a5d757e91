// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"
)

// =============================================================================
// TYPING PACER
// =============================================================================

// Typing delays per character class.
const (
	DelayNormal     = 15 * time.Millisecond
	DelayCJK        = 20 * time.Millisecond
	DelayShortPunct = 50 * time.Millisecond
	DelayLongPunct  = 100 * time.Millisecond

	// PaceJitter is the +/- fraction applied to every delay.
	PaceJitter = 0.10
)

const (
	longPunct  = ".!?。！？"
	shortPunct = ",;:，；："
)

// Pacer spaces out streamed characters so replies read like typing.
// A nil *Pacer never waits.
type Pacer struct {
	// random returns a value in [0, 1); nil means math/rand/v2.
	random func() float64
}

// NewPacer creates a pacer with the package delays.
func NewPacer() *Pacer {
	return &Pacer{}
}

// BaseDelay returns the unjittered delay after r.
func BaseDelay(r rune) time.Duration {
	switch {
	case strings.ContainsRune(longPunct, r):
		return DelayLongPunct
	case strings.ContainsRune(shortPunct, r):
		return DelayShortPunct
	case unicode.Is(unicode.Han, r):
		return DelayCJK
	case r == '\n' || r == ' ':
		return 0
	default:
		return DelayNormal
	}
}

// Delay returns the jittered delay after r.
func (p *Pacer) Delay(r rune) time.Duration {
	base := BaseDelay(r)
	if p == nil || base == 0 {
		return 0
	}
	rnd := rand.Float64
	if p.random != nil {
		rnd = p.random
	}
	factor := 1 - PaceJitter + 2*PaceJitter*rnd()
	return time.Duration(float64(base) * factor)
}

// Wait sleeps for the delay after r, returning early when ctx is done.
func (p *Pacer) Wait(ctx context.Context, r rune) {
	d := p.Delay(r)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
