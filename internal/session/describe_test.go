// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/morales-javx/javxseek/internal/cloud"
	"github.com/morales-javx/javxseek/internal/storage"
)

func TestKindAndDescribe(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     string
		contains string
	}{
		{"nil", nil, "", ""},
		{"auth", fmt.Errorf("open: %w", cloud.ErrAuthFailed), KindAuth, "authentication failed"},
		{"not configured", cloud.ErrNotConfigured, KindAuth, "no API key"},
		{"quota", cloud.ErrQuotaExceeded, KindQuota, "quota exhausted"},
		{"cancelled", context.Canceled, KindCancelled, "cancelled"},
		{"rate limited", fmt.Errorf("%w: %w", cloud.ErrRateLimited, cloud.ErrTransport), KindTransport, "rate limited"},
		{"stream", &cloud.StreamError{Partial: "x", Err: fmt.Errorf("%w: reset", cloud.ErrTransport)}, KindTransport, "[transport]"},
		{"save", &storage.StoreError{Op: "save", ID: "a", Kind: storage.ErrSaveFailed, Err: errors.New("disk")}, KindStorage, "could not be saved"},
		{"empty", ErrEmptyInput, KindInput, "empty"},
		{"other", errors.New("boom"), KindUnknown, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.kind {
				t.Errorf("Kind() = %q, want %q", got, tt.kind)
			}
			if got := Describe(tt.err); !strings.Contains(got, tt.contains) {
				t.Errorf("Describe() = %q, want it to contain %q", got, tt.contains)
			}
		})
	}
}
