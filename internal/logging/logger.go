// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/morales-javx/javxseek/internal/config"
	"github.com/morales-javx/javxseek/internal/util"
)

const timeLayout = "2006-01-02 15:04:05.000"

// Options configures New.
type Options struct {
	Level  string
	Format string // console or json

	// File is the rotated log file; empty disables the file sink.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Console echoes log lines to ConsoleWriter.
	Console       bool
	ConsoleWriter io.Writer
}

// FromConfig maps the logging section onto Options.
func FromConfig(c config.LoggingConfig) Options {
	return Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Console:    c.Console,
	}
}

// Logger is a zap logger with an adjustable level and an owned file sink.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel

	file *lumberjack.Logger
}

// ParseLevel maps a level name to a zap level. Unknown names are info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// New builds a logger from opts. With neither a file nor console sink the
// logger discards everything.
func New(opts Options) (*Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	l := &Logger{Level: level}

	var sinks []zapcore.WriteSyncer
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), util.DefaultDirPerm); err != nil {
			return nil, err
		}
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
			LocalTime:  true,
		}
		sinks = append(sinks, zapcore.AddSync(l.file))
	}
	if opts.Console {
		w := opts.ConsoleWriter
		if w == nil {
			w = os.Stderr
		}
		sinks = append(sinks, zapcore.AddSync(w))
	}
	if len(sinks) == 0 {
		l.Logger = zap.NewNop()
		return l, nil
	}

	core := zapcore.NewCore(encoder(opts.Format), zapcore.NewMultiWriteSyncer(sinks...), level)
	l.Logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	return l, nil
}

// SetLevel changes the level in place.
func (l *Logger) SetLevel(name string) {
	l.Level.SetLevel(ParseLevel(name))
}

// Close flushes and closes the file sink.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func encoder(format string) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(timeLayout))
}
