// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// # Key Types
//
//   - Session: one conversational identity with bounded history and memories
//   - Message: a role and content pair, treated as an immutable value
//   - Style: reply tone tier derived from the number of user messages
//   - ThinkingMode: deep, creative or analytical reasoning directive
//
// # Usage
//
//	s := model.NewSession("default", "You are Javx Seek.", time.Now())
//	s.AppendTurn("hello", "hi there", false)
//	fmt.Println(s.CurrentStyle().Label())
package model
