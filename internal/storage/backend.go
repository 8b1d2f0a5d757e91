// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sort"
	"sync"
)

// Backend reads and writes whole session documents.
type Backend interface {
	// Read returns the document for id or an error wrapping ErrNotFound.
	Read(ctx context.Context, id string) (*Document, error)

	// Write replaces the document for id.
	Write(ctx context.Context, id string, doc *Document) error

	// Delete removes the document for id. A missing id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the stored ids.
	List(ctx context.Context) ([]string, error)
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryBackend keeps encoded documents in a map. Each Read decodes a fresh
// copy so callers never share state with the map.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

// Read implements Backend.
func (b *MemoryBackend) Read(_ context.Context, id string) (*Document, error) {
	b.mu.RLock()
	data, ok := b.docs[id]
	b.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeDocument(data)
}

// Write implements Backend.
func (b *MemoryBackend) Write(_ context.Context, id string, doc *Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.docs[id] = data
	b.mu.Unlock()
	return nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	delete(b.docs, id)
	b.mu.Unlock()
	return nil
}

// List implements Backend.
func (b *MemoryBackend) List(_ context.Context) ([]string, error) {
	b.mu.RLock()
	ids := make([]string, 0, len(b.docs))
	for id := range b.docs {
		ids = append(ids, id)
	}
	b.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}
