// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error variables for the transport taxonomy.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates the API rejected the key (HTTP 401).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrQuotaExceeded indicates the account ran out of quota or balance.
	ErrQuotaExceeded = errors.New("API quota exhausted")

	// ErrTransport covers network errors, non-200 statuses and body read
	// failures. Auth and quota failures are distinct and do not match it.
	ErrTransport = errors.New("transport failure")

	// ErrRateLimited indicates HTTP 429. It is also an ErrTransport.
	ErrRateLimited = errors.New("rate limited")

	// ErrIdleTimeout indicates the stream sent nothing for too long.
	ErrIdleTimeout = errors.New("stream idle timeout")
)

// quotaMarker is the error code and message fragment the API uses when the
// account has no quota left.
const quotaMarker = "insufficient_quota"

// APIError is a non-200 response from the completion endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string

	kind error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// Unwrap exposes the classification so callers can use errors.Is.
func (e *APIError) Unwrap() []error {
	switch e.kind {
	case ErrAuthFailed, ErrQuotaExceeded:
		return []error{e.kind}
	case nil:
		return []error{ErrTransport}
	default:
		return []error{e.kind, ErrTransport}
	}
}

// StreamError is a transport failure after part of the reply arrived.
type StreamError struct {
	Partial string // Content received before the error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len([]rune(e.Partial)), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// apiErrorResponse is the error envelope of OpenAI-compatible APIs.
type apiErrorResponse struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// codeString renders a code that may be a JSON string, number or null.
func codeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}

// classifyResponse maps a non-200 status and body onto the taxonomy.
func classifyResponse(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Code = codeString(envelope.Error.Code)
		if apiErr.Code == "" {
			apiErr.Code = envelope.Error.Type
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}

	switch status {
	case http.StatusUnauthorized:
		apiErr.kind = ErrAuthFailed
	case http.StatusPaymentRequired:
		apiErr.kind = ErrQuotaExceeded
	case http.StatusForbidden:
		if mentionsQuota(apiErr.Code) || mentionsQuota(apiErr.Message) {
			apiErr.kind = ErrQuotaExceeded
		}
	case http.StatusTooManyRequests:
		apiErr.kind = ErrRateLimited
		if mentionsQuota(apiErr.Code) {
			apiErr.kind = ErrQuotaExceeded
		}
	}
	return apiErr
}

func mentionsQuota(s string) bool {
	return strings.Contains(strings.ToLower(s), quotaMarker)
}

// isRetryable reports whether an OpenStream attempt may be repeated.
// Only network errors and 5xx responses are retried.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return err != nil
}
