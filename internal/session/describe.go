// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"

	"github.com/morales-javx/javxseek/internal/cloud"
	"github.com/morales-javx/javxseek/internal/storage"
)

// Error kinds reported to presentations.
const (
	KindAuth      = "auth"
	KindQuota     = "quota"
	KindTransport = "transport"
	KindStorage   = "storage"
	KindCancelled = "cancelled"
	KindInput     = "input"
	KindUnknown   = "unknown"
)

// Kind classifies err for presentations and the web error event.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, cloud.ErrAuthFailed), errors.Is(err, cloud.ErrNotConfigured):
		return KindAuth
	case errors.Is(err, cloud.ErrQuotaExceeded):
		return KindQuota
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, cloud.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return KindTransport
	case errors.Is(err, storage.ErrSaveFailed), errors.Is(err, storage.ErrLoadDegraded):
		return KindStorage
	case errors.Is(err, ErrEmptyInput):
		return KindInput
	default:
		return KindUnknown
	}
}

// Describe turns err into the message shown to the user.
func Describe(err error) string {
	switch Kind(err) {
	case "":
		return ""
	case KindAuth:
		if errors.Is(err, cloud.ErrNotConfigured) {
			return "no API key configured, set api.key or DEEPSEEK_API_KEY"
		}
		return "authentication failed, check api.key / DEEPSEEK_API_KEY"
	case KindQuota:
		return "API quota exhausted, top up the account balance"
	case KindCancelled:
		return "request cancelled"
	case KindTransport:
		if errors.Is(err, cloud.ErrRateLimited) {
			return "[transport] rate limited by the API, try again shortly"
		}
		if errors.Is(err, cloud.ErrIdleTimeout) {
			return "[transport] the stream stalled and was closed"
		}
		return "[transport] " + err.Error()
	case KindStorage:
		if errors.Is(err, storage.ErrLoadDegraded) {
			return "saved session could not be read, starting fresh"
		}
		return "reply kept, but the session could not be saved: " + err.Error()
	case KindInput:
		return "message is empty"
	default:
		return err.Error()
	}
}
