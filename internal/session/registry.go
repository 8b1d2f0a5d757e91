// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/morales-javx/javxseek/internal/telemetry"
)

// =============================================================================
// REGISTRY
// =============================================================================

// Factory builds the Chat for a session id.
type Factory func(id string) *Chat

// RegistryConfig holds idle eviction settings.
type RegistryConfig struct {
	// IdleTimeout evicts chats unused for this long (default: 30 minutes).
	// Zero disables eviction.
	IdleTimeout time.Duration

	// SweepInterval is how often Run sweeps (default: 1 minute)
	SweepInterval time.Duration
}

// DefaultRegistryConfig returns the default registry configuration.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		IdleTimeout:   30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// Registry hands out exactly one Chat per session id. Evicting a chat
// drops only its in-memory copy; the session stays in the store.
type Registry struct {
	mu    sync.Mutex
	chats map[string]*Chat

	factory Factory
	cfg     RegistryConfig
	logger  *zap.Logger
	rec     *telemetry.Recorder
	now     func() time.Time
}

// NewRegistry creates a registry that builds chats with factory.
func NewRegistry(factory Factory, cfg RegistryConfig, logger *zap.Logger, rec *telemetry.Recorder) *Registry {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultRegistryConfig().SweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		chats:   make(map[string]*Chat),
		factory: factory,
		cfg:     cfg,
		logger:  logger,
		rec:     rec,
		now:     time.Now,
	}
}

// Get returns the chat for id, creating it on first use.
func (r *Registry) Get(id string) *Chat {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chats[id]
	if !ok {
		c = r.factory(id)
		r.chats[id] = c
		r.rec.SetActiveSessions(len(r.chats))
		r.logger.Debug("chat created", zap.String("session", id))
	}
	c.touch()
	return c
}

// Len returns the number of chats held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}

// =============================================================================
// IDLE EVICTION
// =============================================================================

// Sweep evicts idle chats unused for longer than idle and returns how many
// were removed. Chats with a turn in flight are never evicted.
func (r *Registry) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}

	r.mu.Lock()
	now := r.now()
	var evicted []string
	for id, c := range r.chats {
		if c.State() != StateIdle || now.Sub(c.LastActive()) < idle {
			continue
		}
		if !c.mu.TryLock() {
			continue
		}
		delete(r.chats, id)
		c.mu.Unlock()
		evicted = append(evicted, id)
	}
	r.rec.SetActiveSessions(len(r.chats))
	r.mu.Unlock()

	for _, id := range evicted {
		r.logger.Debug("chat evicted", zap.String("session", id))
	}
	return len(evicted)
}

// Run sweeps on the configured interval until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if r.cfg.IdleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(r.cfg.IdleTimeout); n > 0 {
				r.logger.Info("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}
