// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`

// SQLiteBackend stores each session document as one row.
type SQLiteBackend struct {
	db *sql.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway, and ":memory:"
	// databases exist per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Read implements Backend.
func (b *SQLiteBackend) Read(ctx context.Context, id string) (*Document, error) {
	var data string
	err := b.db.QueryRowContext(ctx, `SELECT document FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDocument([]byte(data))
}

// Write implements Backend.
func (b *SQLiteBackend) Write(ctx context.Context, id string, doc *Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO sessions (id, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		id, string(data), updated.UnixNano())
	return err
}

// Delete implements Backend.
func (b *SQLiteBackend) Delete(ctx context.Context, id string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// List implements Backend. Most recently updated first.
func (b *SQLiteBackend) List(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
