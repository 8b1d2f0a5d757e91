// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap logger used across javxseek.
//
// Log lines go to a size-rotated file (lumberjack) and optionally to
// stderr. The level is held in a zap.AtomicLevel so a config reload can
// change it without rebuilding the logger.
//
// # Usage
//
//	lg, err := logging.New(logging.FromConfig(cfg.Logging))
//	if err != nil {
//	    return err
//	}
//	defer lg.Close()
//	lg.Info("serving", zap.String("addr", addr))
package logging
