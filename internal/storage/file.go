// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/morales-javx/javxseek/internal/util"
)

const documentExt = ".json"

// FileBackend stores one JSON document per session id under BaseDir.
// Ids are escaped into file names with util.EscapeKey, so distinct ids
// never share a document.
type FileBackend struct {
	// BaseDir is the directory holding the documents.
	// Default: ~/.javxseek/sessions/
	BaseDir string
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend creates a backend rooted at dir. The directory is created
// lazily on first write, so a missing directory reads as empty.
func NewFileBackend(dir string) (*FileBackend, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &FileBackend{BaseDir: abs}, nil
}

// Read implements Backend.
func (b *FileBackend) Read(ctx context.Context, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.filePath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeDocument(data)
}

// Write implements Backend.
func (b *FileBackend) Write(ctx context.Context, id string, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(b.filePath(id), data, 0600)
}

// Delete implements Backend.
func (b *FileBackend) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(b.filePath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List implements Backend. File names EscapeKey could not have produced
// are skipped.
func (b *FileBackend) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(b.BaseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, documentExt) {
			continue
		}
		id, ok := util.UnescapeKey(strings.TrimSuffix(name, documentExt))
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// filePath returns the document path for a session id.
func (b *FileBackend) filePath(id string) string {
	return filepath.Join(b.BaseDir, util.EscapeKey(id)+documentExt)
}
