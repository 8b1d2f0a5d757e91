// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete javxseek configuration.
type Config struct {
	// Completion API
	API APIConfig `toml:"api" yaml:"api" json:"api"`

	// Turn and prompt behaviour
	Chat ChatConfig `toml:"chat" yaml:"chat" json:"chat"`

	// Session persistence
	Storage StorageConfig `toml:"storage" yaml:"storage" json:"storage"`

	// Web backend
	Server ServerConfig `toml:"server" yaml:"server" json:"server"`

	// Terminal client
	UI UIConfig `toml:"ui" yaml:"ui" json:"ui"`

	// Log output
	Logging LoggingConfig `toml:"logging" yaml:"logging" json:"logging"`
}

// APIConfig configures the OpenAI-compatible completion endpoint.
type APIConfig struct {
	BaseURL string `toml:"base_url" yaml:"base_url" json:"base_url"`

	// Key is the bearer token. Prefer JAVXSEEK_API_KEY or DEEPSEEK_API_KEY
	// over storing it in the file.
	Key string `toml:"key" yaml:"key" json:"key"`

	// Models is the rotation list; the first entry is used at start.
	Models []string `toml:"models" yaml:"models" json:"models"`

	TimeoutSecs     int `toml:"timeout_secs" yaml:"timeout_secs" json:"timeout_secs"`
	IdleTimeoutSecs int `toml:"idle_timeout_secs" yaml:"idle_timeout_secs" json:"idle_timeout_secs"`
	MaxRetries      int `toml:"max_retries" yaml:"max_retries" json:"max_retries"`
}

// ChatConfig configures history bounds and prompt composition.
type ChatConfig struct {
	// HistoryCap is the most messages kept per session, the leading system
	// message included.
	HistoryCap int `toml:"history_cap" yaml:"history_cap" json:"history_cap"`

	// HistoryWindow limits the prior messages sent with each turn.
	// 0 sends the whole trimmed history.
	HistoryWindow int `toml:"history_window" yaml:"history_window" json:"history_window"`

	DefaultMode string `toml:"default_mode" yaml:"default_mode" json:"default_mode"`
	Humor       bool   `toml:"humor" yaml:"humor" json:"humor"`

	Identity  string `toml:"identity" yaml:"identity" json:"identity"`
	Developer string `toml:"developer" yaml:"developer" json:"developer"`

	// SystemPrompt seeds fresh sessions.
	SystemPrompt string `toml:"system_prompt" yaml:"system_prompt" json:"system_prompt"`

	// DisclosureTriggers are the keywords that unlock the canned developer
	// answer. Empty uses the built-in list.
	DisclosureTriggers []string `toml:"disclosure_triggers" yaml:"disclosure_triggers" json:"disclosure_triggers"`
}

// StorageConfig selects and locates the session backend.
type StorageConfig struct {
	// Backend is one of file, sqlite, memory.
	Backend    string `toml:"backend" yaml:"backend" json:"backend"`
	Dir        string `toml:"dir" yaml:"dir" json:"dir"`
	SQLitePath string `toml:"sqlite_path" yaml:"sqlite_path" json:"sqlite_path"`
}

// ServerConfig configures `javxseek serve`.
type ServerConfig struct {
	Addr           string   `toml:"addr" yaml:"addr" json:"addr"`
	StaticDir      string   `toml:"static_dir" yaml:"static_dir" json:"static_dir"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`

	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" yaml:"rate_burst" json:"rate_burst"`

	// IdleTimeoutMins evicts in-memory chats unused this long.
	IdleTimeoutMins int `toml:"idle_timeout_mins" yaml:"idle_timeout_mins" json:"idle_timeout_mins"`

	// SessionKey is "cookie" (header or cookie token) or "remote_addr".
	SessionKey string `toml:"session_key" yaml:"session_key" json:"session_key"`

	// TrustedProxies may set X-Forwarded-For / X-Real-IP.
	TrustedProxies []string `toml:"trusted_proxies" yaml:"trusted_proxies" json:"trusted_proxies"`
}

// UIConfig configures the terminal client.
type UIConfig struct {
	MaxWidth     int  `toml:"max_width" yaml:"max_width" json:"max_width"`
	TypingEffect bool `toml:"typing_effect" yaml:"typing_effect" json:"typing_effect"`
	Markdown     bool `toml:"markdown" yaml:"markdown" json:"markdown"`

	// Color is auto, always or never.
	Color string `toml:"color" yaml:"color" json:"color"`
}

// LoggingConfig configures the zap logger and its rotating file.
type LoggingConfig struct {
	Level      string `toml:"level" yaml:"level" json:"level"`
	Format     string `toml:"format" yaml:"format" json:"format"`
	File       string `toml:"file" yaml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `toml:"compress" yaml:"compress" json:"compress"`

	// Console also writes log lines to stderr.
	Console bool `toml:"console" yaml:"console" json:"console"`
}

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Session key sources for the web backend.
const (
	SessionKeyCookie     = "cookie"
	SessionKeyRemoteAddr = "remote_addr"
)

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a configuration with all default values.
func Default() *Config {
	dir, err := Dir()
	if err != nil {
		dir = ".javxseek"
	}

	return &Config{
		API: APIConfig{
			BaseURL:         "https://api.deepseek.com/v1",
			Models:          []string{"deepseek-chat", "deepseek-vl", "deepseek-math"},
			TimeoutSecs:     90,
			IdleTimeoutSecs: 120,
			MaxRetries:      3,
		},
		Chat: ChatConfig{
			HistoryCap:    81,
			HistoryWindow: 0,
			DefaultMode:   "deep",
			Humor:         true,
			Identity:      "Javx Seek",
			Developer:     "Morales-Javx",
		},
		Storage: StorageConfig{
			Backend:    BackendFile,
			Dir:        filepath.Join(dir, "sessions"),
			SQLitePath: filepath.Join(dir, "sessions.db"),
		},
		Server: ServerConfig{
			Addr:            ":5000",
			AllowedOrigins:  []string{"*"},
			RateLimit:       2,
			RateBurst:       10,
			IdleTimeoutMins: 30,
			SessionKey:      SessionKeyCookie,
		},
		UI: UIConfig{
			MaxWidth:     80,
			TypingEffect: true,
			Markdown:     true,
			Color:        "auto",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			File:       filepath.Join(dir, "logs", "javxseek.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the javxseek home directory: $JAVXSEEK_HOME or ~/.javxseek.
func Dir() (string, error) {
	if home := os.Getenv("JAVXSEEK_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".javxseek"), nil
}

// candidateNames are tried in order when no path is given.
var candidateNames = []string{"config.toml", "config.yaml", "config.yml", "config.json"}

// Resolve returns the config file Load would read. An explicit path is
// returned as is. Otherwise the first existing candidate in Dir() is
// returned, or "" when none exists.
func Resolve(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	for _, name := range candidateNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// DefaultPath is where Save writes when no file exists yet.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.API.Models = slices.Clone(c.API.Models)
	clone.Chat.DisclosureTriggers = slices.Clone(c.Chat.DisclosureTriggers)
	clone.Server.AllowedOrigins = slices.Clone(c.Server.AllowedOrigins)
	clone.Server.TrustedProxies = slices.Clone(c.Server.TrustedProxies)
	return &clone
}

// Redacted returns a copy safe to print or log.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.API.Key != "" {
		safe.API.Key = "[REDACTED]"
	}
	return safe
}

// String returns a redacted JSON rendering for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
