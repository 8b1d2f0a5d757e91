// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for javxseek.
//
// TOML, YAML and JSON files are supported, chosen by extension, with
// defaults, environment variable overrides and validation.
//
// Configuration file locations (in order of precedence):
//   - the --config flag
//   - $JAVXSEEK_HOME/config.{toml,yaml,yml,json} (default ~/.javxseek)
//   - Built-in defaults
//
// # Key Types
//
//   - Config: sections api, chat, storage, server, ui, logging
//   - ValidateErrors: every field that failed validation
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	cap := cfg.Chat.HistoryCap
//
// Watch a file and apply changes:
//
//	go config.Watch(ctx, path, config.DefaultDebounce, func(cfg *config.Config, err error) {
//	    if err == nil {
//	        level.SetLevel(logging.ParseLevel(cfg.Logging.Level))
//	    }
//	})
//
// # Secrets
//
// The API key is read from JAVXSEEK_API_KEY or DEEPSEEK_API_KEY when not in
// the file. String and Redacted never expose it. Files are written 0600.
package config
