// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records chat turn metrics for javxseek.
//
// Metrics are exported through Prometheus collectors and mirrored into
// process-local totals for the status endpoint.
//
// # Key Types
//
//   - Recorder: turn, fragment, latency and storage counters
//   - Totals: point-in-time copy of the local counters
//
// # Usage
//
//	rec := telemetry.NewRecorder(prometheus.DefaultRegisterer)
//	rec.ObserveTurn("deepseek-chat", telemetry.OutcomeComplete, elapsed, fragments)
//	fmt.Println(rec.Totals().Turns)
//
// # Privacy
//
// Only counts and durations are recorded. Message content is never
// observed.
package telemetry
