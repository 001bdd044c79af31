// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the completion client used by liquidgpt.
//
// Two transports satisfy the same contract: OpenRouterClient speaks the
// OpenRouter chat completions API directly, and OpenAIClient goes through
// go-openai for any OpenAI-compatible endpoint. Both take the full message
// history and return a single, non-streamed reply.
//
// # Errors
//
//   - ErrNotConfigured: no API key
//   - ErrNetworkUnreachable: the endpoint could not be reached
//   - *APIError: the endpoint answered with a non-2xx status
//   - ErrUnexpectedResponse: a 2xx reply without a completion
//
// UserMessage turns any of these into the text shown in a transcript.
//
// # Usage
//
//	client := cloud.NewOpenRouterClient(apiKey)
//	reply, err := client.Complete(ctx, history, "deepseek/deepseek-r1-0528:free")
//
// Requests are never retried. API keys are never logged; only a SHA-256
// fingerprint is.
package cloud
