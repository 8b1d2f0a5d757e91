// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat sessions under a bounded history policy.
//
// A Store applies the policy (trim to cap, memory summaries, degraded load)
// on top of a Backend that reads and writes whole documents. Backends never
// perform partial updates.
//
// # Key Types
//
//   - Store: load, save, trim and clear sessions
//   - Document: the persisted layout {style, messages, last_talk_time, memories, thinking_level}
//   - FileBackend: one JSON file per session id
//   - SQLiteBackend: one row per session id (modernc.org/sqlite, pure Go)
//   - MemoryBackend: process-local map; sessions vanish at exit
//
// # Usage
//
//	backend, _ := storage.NewFileBackend(filepath.Join(dir, "sessions"))
//	store := storage.NewStore(backend, storage.Options{Cap: 20, SystemPrompt: prompt})
//	sess, err := store.Load(ctx, "default")
//	if errors.Is(err, storage.ErrLoadDegraded) {
//	    logger.Warn("starting fresh", zap.Error(err))
//	}
package storage
