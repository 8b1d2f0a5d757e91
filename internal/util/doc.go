// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across javxseek.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - Excerpt: fixed-length rune prefix used for memory summaries
//   - EscapeKey / UnescapeKey: reversible session id to file name mapping
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	summary := util.Excerpt(userText, 30)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
