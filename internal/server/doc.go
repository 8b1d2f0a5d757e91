// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the javxseek web backend.
//
// Each request resolves a session id and runs against that session's Chat
// in a session.Registry, so turns for one id are serialized while distinct
// ids stream concurrently.
//
// # Endpoints
//
//   - POST /api/chat/stream    - Run a turn, streamed as server-sent events
//   - GET  /api/status         - Liveness, session count and turn totals
//   - POST /api/session/reset  - Clear the session
//   - GET  /api/session/style  - Current style tier and next threshold
//   - GET  /api/session/memory - Recent turn summaries (?n=5)
//   - POST /api/session/model  - Rotate to the next model
//   - POST /api/session/mode   - Set the thinking mode
//   - GET  /metrics            - Prometheus metrics
//   - GET  /                   - Static page from server.static_dir
//
// # Stream Format
//
// Fragments arrive as `data: {"content": "..."}`. A finalized turn ends
// with `event: done`, a failed one with `event: error` carrying
// {error, kind}. Every stream closes with `data: [DONE]`.
//
// # Session Identity
//
// The X-Session-ID header wins, then the javxseek_session cookie. Without
// either a uuid is issued as a cookie. With server.session_key set to
// "remote_addr" the client IP is the session.
//
// # Key Types
//
//   - Server: routes, middleware and lifecycle
//   - RateLimiter: per-IP token buckets
//   - IPResolver: client IP extraction behind trusted proxies
//
// # Usage
//
//	srv, err := server.New(server.Options{
//		Config:   cfg.Server,
//		Registry: registry,
//		Recorder: rec,
//		Gatherer: prometheus.DefaultGatherer,
//		Logger:   logger,
//	})
//	if err != nil {
//		return err
//	}
//	return srv.Run(ctx)
package server
