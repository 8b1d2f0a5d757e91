// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - JAVXSEEK_API_KEY: overrides api.key (DEEPSEEK_API_KEY is the fallback)
//   - JAVXSEEK_BASE_URL: overrides api.base_url
//   - JAVXSEEK_MODELS: comma-separated api.models
//   - JAVXSEEK_HISTORY_CAP: overrides chat.history_cap
//   - JAVXSEEK_STORAGE: overrides storage.backend
//   - JAVXSEEK_ADDR: overrides server.addr
//   - JAVXSEEK_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("JAVXSEEK_API_KEY"); key != "" {
		c.API.Key = key
	} else if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" && c.API.Key == "" {
		c.API.Key = key
	}

	if url := os.Getenv("JAVXSEEK_BASE_URL"); url != "" {
		c.API.BaseURL = url
	}

	if models := os.Getenv("JAVXSEEK_MODELS"); models != "" {
		var list []string
		for _, m := range strings.Split(models, ",") {
			if m = strings.TrimSpace(m); m != "" {
				list = append(list, m)
			}
		}
		if len(list) > 0 {
			c.API.Models = list
		}
	}

	if capStr := os.Getenv("JAVXSEEK_HISTORY_CAP"); capStr != "" {
		if n, err := strconv.Atoi(capStr); err == nil {
			c.Chat.HistoryCap = n
		}
	}

	if backend := os.Getenv("JAVXSEEK_STORAGE"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}

	if addr := os.Getenv("JAVXSEEK_ADDR"); addr != "" {
		c.Server.Addr = addr
	}

	if level := os.Getenv("JAVXSEEK_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}
