// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morales-javx/javxseek/internal/storage"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store := storage.NewStore(storage.NewMemoryBackend(), storage.Options{Cap: 20})
	fs := &fakeStreamer{open: replying("ok")}
	return NewRegistry(func(id string) *Chat {
		return NewChat(id, store, nil, fs, Options{})
	}, DefaultRegistryConfig(), nil, nil)
}

func TestDefaultRegistryConfig(t *testing.T) {
	cfg := DefaultRegistryConfig()
	if cfg.IdleTimeout != 30*time.Minute {
		t.Errorf("Default IdleTimeout = %v, want 30m", cfg.IdleTimeout)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("Default SweepInterval = %v, want 1m", cfg.SweepInterval)
	}
}

func TestRegistry_GetReturnsSameChat(t *testing.T) {
	r := newTestRegistry(t)

	a := r.Get("alice")
	assert.Same(t, a, r.Get("alice"))
	assert.NotSame(t, a, r.Get("bob"))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ConcurrentGet(t *testing.T) {
	r := newTestRegistry(t)

	chats := make([]*Chat, 32)
	var wg sync.WaitGroup
	for i := range chats {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chats[i] = r.Get("shared")
		}()
	}
	wg.Wait()

	for _, c := range chats {
		assert.Same(t, chats[0], c)
	}
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Sweep(t *testing.T) {
	r := newTestRegistry(t)
	r.Get("old")
	r.Get("new")

	assert.Equal(t, 0, r.Sweep(time.Hour), "nothing idle yet")
	assert.Equal(t, 0, r.Sweep(0), "zero idle disables eviction")

	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 2, r.Sweep(time.Hour))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_EvictedStateSurvivesInStore(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Get("alice").Turn(context.Background(), "remember me", TurnOptions{}, nil)
	require.NoError(t, err)

	r.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.Equal(t, 1, r.Sweep(time.Minute))

	history := r.Get("alice").History(context.Background())
	require.Len(t, history, 3)
	assert.Equal(t, "remember me", history[1].Content)
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	r := newTestRegistry(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
