// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/morales-javx/javxseek/internal/util"
)

// Format is a config file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the encoding from a file extension. Unknown extensions
// are treated as TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatTOML
	}
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the configuration at path, or the first config file found in
// Dir() when path is empty. With no file the defaults are used. Environment
// overrides, defaults and validation are applied in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, err := Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("could not determine config directory: %w", err)
	}

	if resolved != "" {
		if err := LoadFile(cfg, resolved); err != nil {
			// An explicit path must exist; a searched one was found by Stat
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile decodes the file at path over cfg. Fields absent from the file
// keep their current values.
func LoadFile(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch format := FormatFor(path); format {
	case FormatYAML:
		err = yaml.Unmarshal(data, cfg)
	case FormatJSON:
		err = json.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s config %s: %w", FormatFor(path), path, err)
	}
	return nil
}

// ensureSecurePermissions tightens a config file to 0600 since it may hold
// the API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

const tomlHeader = "# javxseek configuration file\n# Generated by javxseek - edit with care\n\n"

// Marshal encodes the configuration in the given format.
func (c *Config) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(c)
	case FormatJSON:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		var buf bytes.Buffer
		buf.WriteString(tomlHeader)
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// Save writes the configuration to path, encoded by extension, with 0600
// permissions. An empty path means DefaultPath().
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	data, err := cfg.Marshal(FormatFor(path))
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
