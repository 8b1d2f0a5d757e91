// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned by backends when no document exists for an id.
	ErrNotFound = errors.New("session not found")

	// ErrCorrupt marks a document that exists but cannot be decoded.
	ErrCorrupt = errors.New("session document corrupt")

	// ErrLoadDegraded accompanies a fresh session returned by Store.Load
	// because the stored one could not be read. It is a warning.
	ErrLoadDegraded = errors.New("session load degraded")

	// ErrSaveFailed marks a persistence failure. The in-memory session is
	// still valid.
	ErrSaveFailed = errors.New("session save failed")
)

// StoreError records the operation and session id of a storage failure.
// Use errors.Is with the sentinels above to classify it.
type StoreError struct {
	Op   string
	ID   string
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Kind)
	}
	return fmt.Sprintf("%s %q: %v: %v", e.Op, e.ID, e.Kind, e.Err)
}

// Unwrap exposes both the classification and the cause.
func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
