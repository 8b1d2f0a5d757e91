// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders a stored session for reading outside javxseek.
//
// # Key Types
//
//   - Exporter: renders a session in one format
//   - Options: metadata and output directory settings
//
// # Supported Formats
//
//   - Markdown: the conversation as headed sections, system prompt optional
//   - JSON: the same document the file backend stores
//
// # Usage
//
//	exp, err := export.New(export.FormatMarkdown, export.DefaultOptions())
//	path, err := export.ToFile(sess, exp, opts)
package export
