// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to a hosted OpenAI-compatible chat-completion API
// (DeepSeek by default) and decodes its server-sent-events reply stream.
//
// # Key Types
//
//   - Client: streaming HTTP client with retry and error classification
//   - Payload: the chat-completion request body
//   - Decoder: turns "data: <json>" lines into text fragments
//   - APIError: non-200 response, classified into auth, quota or transport
//   - StreamError: a failure after some fragments were already received
//
// # Usage
//
//	client := cloud.NewClient(apiKey).WithBaseURL(cloud.DefaultBaseURL)
//	body, err := client.OpenStream(ctx, payload)
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//	for fragment, err := range cloud.Fragments(body) {
//	    ...
//	}
//
// # Security
//
// API keys are never logged. Only a short SHA-256 fingerprint is emitted.
package cloud
