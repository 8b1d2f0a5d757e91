// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/morales-javx/javxseek/internal/cloud"
	"github.com/morales-javx/javxseek/internal/config"
	"github.com/morales-javx/javxseek/internal/logging"
	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/prompt"
	"github.com/morales-javx/javxseek/internal/session"
	"github.com/morales-javx/javxseek/internal/storage"
	"github.com/morales-javx/javxseek/internal/telemetry"
)

// DefaultSessionID is the terminal session when --session is not given.
const DefaultSessionID = "default"

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds the components every command is built from.
type app struct {
	cfg     *config.Config
	cfgPath string

	log      *logging.Logger
	rec      *telemetry.Recorder
	store    *storage.Store
	composer *prompt.Composer
	client   *cloud.Client
}

// appOptions selects per-command wiring.
type appOptions struct {
	// consoleLog echoes logs to stderr; the REPL keeps them in the file.
	consoleLog bool

	// consoleWriter overrides stderr for console logs.
	consoleWriter io.Writer

	// recorder is used instead of a local one.
	recorder *telemetry.Recorder
}

// newApp loads configuration and builds the logger, store, composer and
// completion client.
func newApp(g *globalFlags, opts appOptions) (*app, error) {
	path, err := config.Resolve(g.configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}

	logOpts := logging.FromConfig(cfg.Logging)
	logOpts.Console = cfg.Logging.Console || opts.consoleLog
	logOpts.ConsoleWriter = opts.consoleWriter
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	backend, err := openBackend(cfg.Storage)
	if err != nil {
		logger.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		cfgPath: path,
		log:     logger,
		rec:     opts.recorder,
	}
	if a.rec == nil {
		a.rec = telemetry.NewRecorder(nil)
	}
	a.store = storage.NewStore(backend, storage.Options{
		Cap:          cfg.Chat.HistoryCap,
		SystemPrompt: cfg.Chat.SystemPrompt,
	})
	a.composer = &prompt.Composer{
		Identity:      cfg.Chat.Identity,
		Developer:     cfg.Chat.Developer,
		Triggers:      cfg.Chat.DisclosureTriggers,
		HistoryWindow: cfg.Chat.HistoryWindow,
	}
	a.client = cloud.NewClient(cfg.API.Key).
		WithBaseURL(cfg.API.BaseURL).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs) * time.Second).
		WithIdleTimeout(time.Duration(cfg.API.IdleTimeoutSecs) * time.Second).
		WithMaxRetries(cfg.API.MaxRetries).
		WithLogger(logger.Logger)

	logger.Info("javxseek starting",
		zap.String("version", Version),
		zap.String("config", path),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("base_url", a.client.BaseURL()),
		zap.String("key_fingerprint", a.client.KeyFingerprint()),
		zap.Bool("key_configured", a.client.IsConfigured()))

	return a, nil
}

// openBackend builds the configured session backend.
func openBackend(c config.StorageConfig) (storage.Backend, error) {
	switch c.Backend {
	case config.BackendMemory:
		return storage.NewMemoryBackend(), nil
	case config.BackendSQLite:
		b, err := storage.OpenSQLite(c.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return b, nil
	case config.BackendFile, "":
		b, err := storage.NewFileBackend(c.Dir)
		if err != nil {
			return nil, fmt.Errorf("open session dir: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Backend)
	}
}

// newChat builds the Chat for id; it is also the registry factory.
func (a *app) newChat(id string) *session.Chat {
	mode, _ := model.ParseThinkingMode(a.cfg.Chat.DefaultMode)
	return session.NewChat(id, a.store, a.composer, a.client, session.Options{
		Models:   a.cfg.API.Models,
		Mode:     mode,
		Humor:    a.cfg.Chat.Humor,
		Logger:   a.log.Logger,
		Recorder: a.rec,
	})
}

// Close releases the store and flushes the log.
func (a *app) Close() error {
	return errors.Join(a.store.Close(), a.log.Close())
}
