// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// History cap bounds. Below 3 a turn cannot fit beside the system prompt.
const (
	MinHistoryCap = 3
	MaxHistoryCap = 1000
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// oneOf reports whether v is among allowed.
func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// API
	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api.base_url", "invalid URL '%s', must be http(s)://host", c.API.BaseURL)
	}
	if len(c.API.Models) == 0 {
		add("api.models", "at least one model is required")
	}
	for i, m := range c.API.Models {
		if strings.TrimSpace(m) == "" {
			add(fmt.Sprintf("api.models[%d]", i), "model name is empty")
		}
	}
	if c.API.TimeoutSecs < 0 {
		add("api.timeout_secs", "must not be negative, got %d", c.API.TimeoutSecs)
	}
	if c.API.IdleTimeoutSecs < 0 {
		add("api.idle_timeout_secs", "must not be negative, got %d", c.API.IdleTimeoutSecs)
	}
	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		add("api.max_retries", "must be between 0 and 10, got %d", c.API.MaxRetries)
	}

	// Chat
	if c.Chat.HistoryCap < MinHistoryCap || c.Chat.HistoryCap > MaxHistoryCap {
		add("chat.history_cap", "must be between %d and %d, got %d", MinHistoryCap, MaxHistoryCap, c.Chat.HistoryCap)
	}
	if c.Chat.HistoryWindow < 0 {
		add("chat.history_window", "must not be negative, got %d", c.Chat.HistoryWindow)
	}
	if !oneOf(c.Chat.DefaultMode, "deep", "creative", "analytical") {
		add("chat.default_mode", "invalid mode '%s', must be one of: deep, creative, analytical", c.Chat.DefaultMode)
	}

	// Storage
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			add("storage.dir", "required for the file backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			add("storage.sqlite_path", "required for the sqlite backend")
		}
	case BackendMemory:
	default:
		add("storage.backend", "invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend)
	}

	// Server
	if c.Server.Addr == "" {
		add("server.addr", "listen address is required")
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		add("server.rate_burst", "must be at least 1 when rate_limit is set, got %d", c.Server.RateBurst)
	}
	if c.Server.IdleTimeoutMins < 0 {
		add("server.idle_timeout_mins", "must not be negative, got %d", c.Server.IdleTimeoutMins)
	}
	if !oneOf(c.Server.SessionKey, SessionKeyCookie, SessionKeyRemoteAddr) {
		add("server.session_key", "invalid key '%s', must be one of: cookie, remote_addr", c.Server.SessionKey)
	}

	// UI
	if c.UI.MaxWidth < 20 || c.UI.MaxWidth > 400 {
		add("ui.max_width", "must be between 20 and 400, got %d", c.UI.MaxWidth)
	}
	if !oneOf(c.UI.Color, "auto", "always", "never") {
		add("ui.color", "invalid value '%s', must be one of: auto, always, never", c.UI.Color)
	}

	// Logging
	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		add("logging.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	if !oneOf(c.Logging.Format, "console", "json") {
		add("logging.format", "invalid format '%s', must be one of: console, json", c.Logging.Format)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		add("logging", "rotation limits must not be negative")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty values with defaults. Numeric zeros that are
// meaningful (history_window, max_retries, rate_limit) are left alone.
func (c *Config) SetDefaults() {
	d := Default()

	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/")
	if len(c.API.Models) == 0 {
		c.API.Models = d.API.Models
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}

	if c.Chat.HistoryCap == 0 {
		c.Chat.HistoryCap = d.Chat.HistoryCap
	}
	c.Chat.DefaultMode = strings.ToLower(strings.TrimSpace(c.Chat.DefaultMode))
	if c.Chat.DefaultMode == "" {
		c.Chat.DefaultMode = d.Chat.DefaultMode
	}
	if c.Chat.Identity == "" {
		c.Chat.Identity = d.Chat.Identity
	}
	if c.Chat.Developer == "" {
		c.Chat.Developer = d.Chat.Developer
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = d.Storage.Dir
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = d.Storage.SQLitePath
	}

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = d.Server.AllowedOrigins
	}
	if c.Server.SessionKey == "" {
		c.Server.SessionKey = d.Server.SessionKey
	}

	if c.UI.MaxWidth == 0 {
		c.UI.MaxWidth = d.UI.MaxWidth
	}
	if c.UI.Color == "" {
		c.UI.Color = d.UI.Color
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}
