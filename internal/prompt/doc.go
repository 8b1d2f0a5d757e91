// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt builds the message list submitted for each chat turn.
//
// The system message is synthesized from scratch on every turn out of the
// assistant identity, the current date, a month-of-year blurb, the thinking
// mode and style descriptions, formatting rules and the persona-disclosure
// rule. A bounded window of prior history and the new user message follow.
//
// # Key Types
//
//   - Composer: turns a Request into []model.Message
//   - Request: session, thinking mode, style, humor flag and user text
//   - Sampling: temperature and max_tokens for a thinking mode
//
// # Usage
//
//	c := prompt.NewComposer()
//	msgs := c.Compose(prompt.Request{
//	    Session:  sess,
//	    Mode:     model.ModeCreative,
//	    Style:    sess.CurrentStyle(),
//	    Humor:    true,
//	    UserText: "explain goroutines",
//	})
//	sampling := prompt.SamplingFor(model.ModeCreative)
package prompt
