// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs chat turns against a streaming completion API.
//
// A Chat owns one session id and drives each turn through the states
// Idle, Composing, Streaming and Finalizing. At most one turn is in flight
// per Chat; turns on different Chats run in parallel.
//
// # Key Types
//
//   - Chat: turn state machine plus the session control operations
//   - Result: reply, partial flag, style transition and save outcome
//   - Registry: one Chat per session id, with idle eviction
//   - Streamer: the transport seam, satisfied by *cloud.Client
//
// # Usage
//
//	chat := session.NewChat("default", store, composer, client, session.Options{
//	    Models: cfg.API.Models,
//	    Logger: logger,
//	})
//	res, err := chat.Turn(ctx, "hello", session.TurnOptions{}, func(s string) {
//	    fmt.Print(s)
//	})
//
// # Cancellation
//
// Cancelling ctx while the reply streams stops consumption at once. The
// partial reply is still appended to history and saved, and Result.Partial
// is set. Cancelling before the first byte leaves history untouched.
package session
