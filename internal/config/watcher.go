// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// Watch reloads the config at path whenever it changes and passes the
// result to onChange, until ctx is done. The parent directory is watched
// so editors that save by rename are still seen. A reload that fails
// validation is reported through onChange with a nil config.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(*Config, error)) error {
	if path == "" {
		return fmt.Errorf("watch: no config file")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	// Stopped until the first relevant event
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onChange(nil, fmt.Errorf("watch: %w", err))

		case <-timer.C:
			cfg, err := Load(abs)
			if err != nil {
				onChange(nil, err)
				continue
			}
			onChange(cfg, nil)
		}
	}
}
